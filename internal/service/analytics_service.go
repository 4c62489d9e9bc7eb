package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"linkpulse/internal/domain"
	"linkpulse/internal/repository"
)

// LinkAnalytics is the per-link report: the link itself, one row per day in
// the requested window, and totals over the window. StaleHours is nonzero
// only when the rollup store was unreachable and the report degraded to
// whatever was available.
type LinkAnalytics struct {
	Link       *domain.ShortLink
	Days       []*domain.DailyLinkMetric
	Totals     LinkTotals
	TodayLive  bool
	StaleHours float64
}

// LinkTotals sums a window of daily link rollups.
type LinkTotals struct {
	ClicksTotal     int64   `json:"clicks_total"`
	BlockedAttempts int64   `json:"blocked_attempts"`
	AvgLatencyMs    float64 `json:"avg_latency_ms"`
	TopCountry      string  `json:"top_country,omitempty"`
	TopDevice       string  `json:"top_device,omitempty"`
	TopBrowser      string  `json:"top_browser,omitempty"`
}

// UserDashboard is the per-owner report across all of their links.
type UserDashboard struct {
	UserID      string
	Days        []*domain.DailyUserMetric
	TotalClicks int64
	ActiveLinks int64
}

// AnalyticsService serves reads from the daily rollups, topping them up with
// a live fold of today's raw events since the aggregator only rolls up
// complete days.
type AnalyticsService struct {
	links   repository.LinkRepository
	clicks  repository.ClickRepository
	rollups repository.MetricRepository
	logger  *slog.Logger
	now     func() time.Time
}

func NewAnalyticsService(
	links repository.LinkRepository,
	clicks repository.ClickRepository,
	rollups repository.MetricRepository,
	logger *slog.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		links:   links,
		clicks:  clicks,
		rollups: rollups,
		logger:  logger,
		now:     time.Now,
	}
}

// GetLinkAnalytics returns the daily rollups for one link over the last
// `days` days, today included as a live fold of the raw events. If the
// stored rollups cannot be read the report degrades to today's live data
// instead of failing outright.
func (s *AnalyticsService) GetLinkAnalytics(ctx context.Context, linkID string, days int) (*LinkAnalytics, error) {
	link, err := s.links.GetByID(ctx, linkID)
	if err != nil {
		return nil, err
	}

	today := domain.Day(s.now())
	from := today.AddDate(0, 0, -(days - 1))

	rows, err := s.rollups.ListLinkMetrics(ctx, linkID, from, today)
	if err != nil {
		// Serve what we can live rather than a hard failure.
		s.logger.Error("link rollups unavailable, serving live data only",
			"link_id", linkID,
			"error", err,
		)
		rows = nil
	}

	if live, liveErr := s.foldToday(ctx, linkID, today); liveErr != nil {
		s.logger.Error("live fold of today failed", "link_id", linkID, "error", liveErr)
	} else if live != nil {
		rows = append(rows, live)
	}

	report := &LinkAnalytics{
		Link:      link,
		Days:      rows,
		Totals:    sumLinkDays(rows),
		TodayLive: true,
	}
	if err != nil {
		report.StaleHours = s.staleness(rows)
	}

	return report, nil
}

// GetUserDashboard returns the per-day rollups for one owner plus a live row
// for today built from the link table. Today's click total is whatever the
// last aggregation pass saw, so it can lag by up to one interval.
func (s *AnalyticsService) GetUserDashboard(ctx context.Context, userID string, days int) (*UserDashboard, error) {
	today := domain.Day(s.now())
	from := today.AddDate(0, 0, -(days - 1))

	rows, err := s.rollups.ListUserMetrics(ctx, userID, from, today)
	if err != nil {
		return nil, fmt.Errorf("failed to load user rollups: %w", err)
	}

	live, err := s.liveUserDay(ctx, userID, today)
	if err != nil {
		s.logger.Error("live user row failed", "user_id", userID, "error", err)
	} else {
		rows = append(rows, live)
	}

	dashboard := &UserDashboard{
		UserID: userID,
		Days:   rows,
	}
	for _, row := range rows {
		dashboard.TotalClicks += row.TotalClicks
	}
	if len(rows) > 0 {
		dashboard.ActiveLinks = rows[len(rows)-1].ActiveLinks
	}

	return dashboard, nil
}

// foldToday computes today's link row from raw events. Returns nil with no
// error when today has no events yet.
func (s *AnalyticsService) foldToday(ctx context.Context, linkID string, today time.Time) (*domain.DailyLinkMetric, error) {
	events, err := s.clicks.ListByLinkAndDay(ctx, linkID, today)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return FoldLinkDay(linkID, today, events), nil
}

// liveUserDay builds today's user row from the link table. The aggregator
// maintains the equivalent row for complete days.
func (s *AnalyticsService) liveUserDay(ctx context.Context, userID string, today time.Time) (*domain.DailyUserMetric, error) {
	created, err := s.links.CountCreatedOn(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	active, err := s.links.CountActiveByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &domain.DailyUserMetric{
		UserID:       userID,
		Date:         today,
		LinksCreated: created,
		ActiveLinks:  active,
	}, nil
}

// staleness reports how many hours behind the freshest available row is,
// for responses that had to fall back past a rollup read failure.
func (s *AnalyticsService) staleness(rows []*domain.DailyLinkMetric) float64 {
	var last time.Time
	for _, row := range rows {
		if row.UpdatedAt.After(last) {
			last = row.UpdatedAt
		}
	}
	if last.IsZero() {
		return 0
	}
	return s.now().UTC().Sub(last).Hours()
}

func sumLinkDays(rows []*domain.DailyLinkMetric) LinkTotals {
	var totals LinkTotals
	var weighted float64

	countries := make(map[string]int)
	devices := make(map[string]int)
	browsers := make(map[string]int)

	for _, row := range rows {
		totals.ClicksTotal += row.ClicksTotal
		totals.BlockedAttempts += row.BlockedAttempts
		weighted += row.AvgLatencyMs * float64(row.ClicksTotal)

		countInto(countries, row.TopCountry)
		countInto(devices, row.TopDevice)
		countInto(browsers, row.TopBrowser)
	}

	if totals.ClicksTotal > 0 {
		totals.AvgLatencyMs = weighted / float64(totals.ClicksTotal)
	}
	totals.TopCountry = mode(countries)
	totals.TopDevice = mode(devices)
	totals.TopBrowser = mode(browsers)

	return totals
}
