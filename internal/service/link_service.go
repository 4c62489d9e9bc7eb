package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"linkpulse/internal/domain"
	"linkpulse/internal/metrics"
	"linkpulse/internal/repository"
	"linkpulse/pkg/validator"

	"github.com/google/uuid"
)

// ResolutionCache is the read-through cache in front of the mapping store.
// Get returns (nil, nil) on a miss and domain.ErrLinkNotFound when a
// negative entry is cached.
type ResolutionCache interface {
	Get(ctx context.Context, code string) (*domain.ShortLink, error)
	Set(ctx context.Context, code string, link *domain.ShortLink) error
	SetNegative(ctx context.Context, code string) error
}

// CodeGenerator produces collision-free short codes.
type CodeGenerator interface {
	GenerateUniqueCode(ctx context.Context) (string, error)
}

// LinkService owns link creation and short-code resolution.
type LinkService struct {
	links  repository.LinkRepository
	cache  ResolutionCache
	codes  CodeGenerator
	logger *slog.Logger
}

// NewLinkService creates a link service.
func NewLinkService(links repository.LinkRepository, cache ResolutionCache, codes CodeGenerator, logger *slog.Logger) *LinkService {
	return &LinkService{
		links:  links,
		cache:  cache,
		codes:  codes,
		logger: logger,
	}
}

// CreateShortLink validates the destination, generates a unique code and
// persists the link. Validation runs before any code is generated or stored.
//
// The generator's uniqueness check races with concurrent inserts; the unique
// index on code is what actually enforces the invariant. Losing that race
// surfaces as domain.ErrCodeTaken, which triggers exactly one retry with a
// fresh code rather than a hard error.
func (s *LinkService) CreateShortLink(ctx context.Context, longURL, ownerID string) (*domain.ShortLink, error) {
	if err := validator.ValidateURL(longURL); err != nil {
		if errors.Is(err, validator.ErrEmptyURL) {
			return nil, domain.ErrEmptyURL
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidURL, err)
	}

	code, err := s.codes.GenerateUniqueCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate short code: %w", err)
	}

	link := domain.NewShortLink(code, longURL, ownerID)
	link.ID = uuid.NewString()

	if err := link.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	err = s.links.Add(ctx, link)
	if errors.Is(err, domain.ErrCodeTaken) {
		// Lost the insert race. One more draw, then give up.
		code, err = s.codes.GenerateUniqueCode(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to regenerate short code: %w", err)
		}
		link.Code = code
		err = s.links.Add(ctx, link)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create link: %w", err)
	}

	metrics.RecordLinkCreated()

	return link, nil
}

// Resolve looks up a link by short code, read-through: cache first, mapping
// store on a miss, populating the cache on the way back. The returned link
// may be expired or inactive; the caller decides how to treat that (the
// click recorder wants those too, as blocked/expired events).
func (s *LinkService) Resolve(ctx context.Context, code string) (*domain.ShortLink, error) {
	cached, err := s.cache.Get(ctx, code)
	if errors.Is(err, domain.ErrLinkNotFound) {
		return nil, err
	}
	if err != nil {
		// A broken cache must not take resolution down; fall through to
		// the store and log the degradation.
		s.logger.Warn("resolution cache unavailable", "code", code, "error", err)
	}
	if cached != nil {
		return cached, nil
	}

	link, err := s.links.GetByCode(ctx, code)
	if errors.Is(err, domain.ErrLinkNotFound) {
		if cacheErr := s.cache.SetNegative(ctx, code); cacheErr != nil {
			s.logger.Warn("failed to cache negative result", "code", code, "error", cacheErr)
		}
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve code: %w", err)
	}

	if cacheErr := s.cache.Set(ctx, code, link); cacheErr != nil {
		s.logger.Warn("failed to populate resolution cache", "code", code, "error", cacheErr)
	}

	return link, nil
}
