package domain

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"linkpulse/pkg/validator"
)

// ShortLink is the mapping from a short code to its destination URL.
// AccessCount and LastAccessedAt are maintained by the metrics aggregator,
// never by the redirect hot path.
type ShortLink struct {
	ID             string // UUID
	Code           string // unique short code (4-20 alphanumeric chars)
	LongURL        string // absolute destination URL
	OwnerID        string // user that created the link
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	ExpiresAt      *time.Time // nil = never expires
	IsActive       bool       // soft delete flag
	AccessCount    int64
	LastAccessedAt *time.Time
}

// Domain errors. Callers check these with errors.Is.
var (
	ErrEmptyURL      = errors.New("URL cannot be empty")
	ErrInvalidURL    = errors.New("invalid URL: must be an absolute http or https URL")
	ErrInvalidCode   = errors.New("short code must be 4-20 alphanumeric characters")
	ErrCodeTaken     = errors.New("short code already taken")
	ErrLinkNotFound  = errors.New("link not found")
	ErrLinkExpired   = errors.New("link has expired")
	ErrLinkNotActive = errors.New("link is not active")
)

// NewShortLink creates a link with sensible defaults. The caller is expected
// to run Validate before persisting.
func NewShortLink(code, longURL, ownerID string) *ShortLink {
	return &ShortLink{
		Code:      code,
		LongURL:   longURL,
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
		IsActive:  true,
	}
}

// IsExpired reports whether the link has passed its expiration time.
func (l *ShortLink) IsExpired() bool {
	if l.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*l.ExpiresAt)
}

// CanBeAccessed checks whether the link may be used for redirection.
func (l *ShortLink) CanBeAccessed() error {
	if !l.IsActive {
		return ErrLinkNotActive
	}
	if l.IsExpired() {
		return ErrLinkExpired
	}
	return nil
}

// Validate checks the creation-time invariants: the destination must parse as
// an absolute http(s) URL and the code must be 4-20 alphanumeric characters.
func (l *ShortLink) Validate() error {
	if strings.TrimSpace(l.LongURL) == "" {
		return ErrEmptyURL
	}

	parsed, err := url.Parse(l.LongURL)
	if err != nil {
		return ErrInvalidURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidURL
	}
	if parsed.Host == "" {
		return ErrInvalidURL
	}

	if err := validator.ValidateCode(l.Code); err != nil {
		return ErrInvalidCode
	}

	return nil
}

// WithExpiration sets an expiration time relative to now.
func (l *ShortLink) WithExpiration(d time.Duration) *ShortLink {
	expiresAt := time.Now().UTC().Add(d)
	l.ExpiresAt = &expiresAt
	return l
}
