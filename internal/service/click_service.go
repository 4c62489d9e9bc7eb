package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"linkpulse/internal/domain"
	"linkpulse/internal/enrich"
	"linkpulse/internal/metrics"
	"linkpulse/internal/repository"

	"github.com/google/uuid"
)

// ClickContext carries the request-side facts about one redirect attempt.
// The HTTP layer fills it in and hands it to RecordClick after the redirect
// response has already been dispatched.
type ClickContext struct {
	IPAddress   string
	UserAgent   string
	Referrer    string
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
	Status      domain.ClickStatus
	LatencyMs   int64
	OccurredAt  time.Time
}

// ClickService is the click recorder: it enriches one redirect attempt and
// persists it as an immutable click event. It runs off the redirect path,
// so nothing here may surface an error to the visitor; enrichment failures
// degrade to Unknown fields and only a persistence failure is reported back
// (for the caller to log).
type ClickService struct {
	clicks     repository.ClickRepository
	parser     enrich.UAParser
	geo        enrich.GeoResolver
	geoTimeout time.Duration
	logger     *slog.Logger
}

// NewClickService creates a click recorder. geoTimeout bounds each
// geolocation lookup so a slow resolver cannot back up the pipeline.
func NewClickService(clicks repository.ClickRepository, parser enrich.UAParser, geo enrich.GeoResolver, geoTimeout time.Duration, logger *slog.Logger) *ClickService {
	return &ClickService{
		clicks:     clicks,
		parser:     parser,
		geo:        geo,
		geoTimeout: geoTimeout,
		logger:     logger,
	}
}

// RecordClick enriches and persists one click event. Each call produces an
// independent row with a fresh identity; there is deliberately no
// uniqueness constraint, duplicates are tolerated and reconciled at the
// aggregation layer.
func (s *ClickService) RecordClick(ctx context.Context, linkID string, access ClickContext) error {
	occurredAt := access.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	device := s.parser.Parse(access.UserAgent)

	// Geolocation is best-effort with a hard deadline. Failure means
	// Unknown, never a dropped click.
	country, city := enrich.Unknown, ""
	geoCtx, cancel := context.WithTimeout(ctx, s.geoTimeout)
	geo, err := s.geo.Resolve(geoCtx, access.IPAddress)
	cancel()
	if err != nil {
		metrics.GeoLookupFailuresTotal.Inc()
		s.logger.Debug("geolocation lookup failed", "link_id", linkID, "error", err)
	} else {
		if geo.Country != "" {
			country = geo.Country
		}
		city = geo.City
	}

	event := &domain.ClickEvent{
		ID:              uuid.NewString(),
		LinkID:          linkID,
		Timestamp:       occurredAt,
		IPAddress:       domain.Truncate(access.IPAddress, domain.MaxIPLen),
		UserAgent:       domain.Truncate(access.UserAgent, domain.MaxUserAgentLen),
		DeviceType:      device.DeviceType,
		Browser:         domain.Truncate(device.Browser, domain.MaxGeoLen),
		OperatingSystem: domain.Truncate(device.OperatingSystem, domain.MaxGeoLen),
		Country:         domain.Truncate(country, domain.MaxGeoLen),
		City:            domain.Truncate(city, domain.MaxGeoLen),
		Referrer:        domain.Truncate(access.Referrer, domain.MaxReferrerLen),
		UTMSource:       domain.Truncate(access.UTMSource, domain.MaxUTMLen),
		UTMMedium:       domain.Truncate(access.UTMMedium, domain.MaxUTMLen),
		UTMCampaign:     domain.Truncate(access.UTMCampaign, domain.MaxUTMLen),
		Status:          access.Status,
		LatencyMs:       access.LatencyMs,
	}

	if err := s.clicks.Create(ctx, event); err != nil {
		metrics.ClickRecordFailuresTotal.Inc()
		return fmt.Errorf("failed to record click: %w", err)
	}

	metrics.RecordClickRecorded(string(event.Status))

	return nil
}
