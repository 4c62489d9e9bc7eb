package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"linkpulse/internal/domain"
	"linkpulse/internal/metrics"
	"linkpulse/internal/repository"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// maxRunRetries is how many times a wholly failed pass is retried (after the
// configured backoff) before giving up until the next scheduled tick.
const maxRunRetries = 2

// Aggregator is the recurring background job that folds raw click events
// into the daily per-link and per-user rollups. Every pass recomputes its
// target days from scratch and upserts, so re-running a day is always safe;
// events that land after a day's pass are folded in on the next pass as
// long as the day is still inside the lookback window.
type Aggregator struct {
	links        repository.LinkRepository
	clicks       repository.ClickRepository
	rollups      repository.MetricRepository
	interval     time.Duration
	lookbackDays int
	backoff      time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewAggregator creates the aggregator. interval is how often a pass runs,
// lookbackDays is how many complete days before today each pass recomputes,
// and backoff is the delay before retrying a wholly failed pass.
func NewAggregator(
	links repository.LinkRepository,
	clicks repository.ClickRepository,
	rollups repository.MetricRepository,
	interval time.Duration,
	lookbackDays int,
	backoff time.Duration,
	logger *slog.Logger,
) *Aggregator {
	return &Aggregator{
		links:        links,
		clicks:       clicks,
		rollups:      rollups,
		interval:     interval,
		lookbackDays: lookbackDays,
		backoff:      backoff,
		logger:       logger,
		now:          time.Now,
	}
}

// Run is the aggregator's long-lived loop: run a pass, sleep until the next
// tick, repeat until ctx is cancelled. Abandoning a pass mid-way on
// shutdown is safe because the next pass recomputes the same days.
func (a *Aggregator) Run(ctx context.Context) {
	a.logger.Info("aggregator started",
		"interval", a.interval.String(),
		"lookback_days", a.lookbackDays,
	)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		a.runWithRetry(ctx)

		select {
		case <-ctx.Done():
			a.logger.Info("aggregator stopped")
			return
		case <-ticker.C:
		}
	}
}

// runWithRetry executes one pass, retrying a whole-pass failure after the
// configured backoff instead of tight-looping or crashing the process.
func (a *Aggregator) runWithRetry(ctx context.Context) {
	b := retry.WithMaxRetries(maxRunRetries, retry.NewConstant(a.backoff))

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		if err := a.RunOnce(ctx); err != nil {
			a.logger.Error("aggregation pass failed, backing off",
				"error", err,
				"backoff", a.backoff.String(),
			)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		a.logger.Error("aggregation pass abandoned until next tick", "error", err)
	}
}

// RunOnce executes a single Idle -> Aggregating -> Idle pass over the
// lookback window. Today is always excluded: only complete calendar days
// are rolled up, so yesterday's events are assumed fully landed.
func (a *Aggregator) RunOnce(ctx context.Context) error {
	start := a.now()
	a.logger.Info("aggregation pass starting")

	for d := a.lookbackDays; d >= 1; d-- {
		day := domain.Day(start.AddDate(0, 0, -d))
		if err := a.AggregateDay(ctx, day); err != nil {
			metrics.AggregationRunsTotal.WithLabelValues("failure").Inc()
			return fmt.Errorf("aggregating %s: %w", day.Format("2006-01-02"), err)
		}
	}

	elapsed := time.Since(start)
	metrics.AggregationDuration.Observe(elapsed.Seconds())
	metrics.AggregationRunsTotal.WithLabelValues("success").Inc()
	a.logger.Info("aggregation pass finished", "duration_ms", elapsed.Milliseconds())

	return nil
}

// AggregateDay recomputes every rollup for one UTC calendar day. A failure
// on one link is logged and skipped so a single bad link cannot abort the
// day; only failures to enumerate work at all fail the pass.
func (a *Aggregator) AggregateDay(ctx context.Context, day time.Time) error {
	day = domain.Day(day)

	linkIDs, err := a.clicks.LinkIDsWithEvents(ctx, day)
	if err != nil {
		return fmt.Errorf("failed to list links with events: %w", err)
	}

	// Clicks per owner, accumulated while walking links so the user pass
	// doesn't rescan events.
	ownerClicks := make(map[string]int64)
	skipped := 0

	for _, linkID := range linkIDs {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := a.aggregateLink(ctx, linkID, day, ownerClicks); err != nil {
			skipped++
			metrics.AggregationLinksSkippedTotal.Inc()
			a.logger.Error("skipping link in aggregation",
				"link_id", linkID,
				"day", day.Format("2006-01-02"),
				"error", err,
			)
		}
	}

	if err := a.aggregateUsers(ctx, day, ownerClicks); err != nil {
		return err
	}

	if skipped > 0 {
		metrics.AggregationRunsTotal.WithLabelValues("partial").Inc()
		a.logger.Warn("aggregation day completed with skips",
			"day", day.Format("2006-01-02"),
			"links", len(linkIDs),
			"skipped", skipped,
		)
	}

	return nil
}

func (a *Aggregator) aggregateLink(ctx context.Context, linkID string, day time.Time, ownerClicks map[string]int64) error {
	events, err := a.clicks.ListByLinkAndDay(ctx, linkID, day)
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	metric := FoldLinkDay(linkID, day, events)
	metric.ID = uuid.NewString()
	metric.UpdatedAt = a.now().UTC()

	if err := a.rollups.UpsertLinkMetric(ctx, metric); err != nil {
		return fmt.Errorf("failed to upsert link metric: %w", err)
	}

	link, err := a.links.GetByID(ctx, linkID)
	if err != nil {
		return fmt.Errorf("failed to load link owner: %w", err)
	}
	ownerClicks[link.OwnerID] += metric.ClicksTotal

	return nil
}

// aggregateUsers upserts the per-user rollups for a day: owners whose links
// saw clicks plus owners who created links that day without any clicks.
func (a *Aggregator) aggregateUsers(ctx context.Context, day time.Time, ownerClicks map[string]int64) error {
	creators, err := a.links.OwnersCreatedOn(ctx, day)
	if err != nil {
		return fmt.Errorf("failed to list creators: %w", err)
	}
	for _, owner := range creators {
		if _, ok := ownerClicks[owner]; !ok {
			ownerClicks[owner] = 0
		}
	}

	for owner, totalClicks := range ownerClicks {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := a.aggregateUser(ctx, owner, day, totalClicks); err != nil {
			a.logger.Error("skipping user in aggregation",
				"user_id", owner,
				"day", day.Format("2006-01-02"),
				"error", err,
			)
		}
	}

	return nil
}

func (a *Aggregator) aggregateUser(ctx context.Context, userID string, day time.Time, totalClicks int64) error {
	linksCreated, err := a.links.CountCreatedOn(ctx, userID, day)
	if err != nil {
		return fmt.Errorf("failed to count created links: %w", err)
	}

	activeLinks, err := a.links.CountActiveByOwner(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to count active links: %w", err)
	}

	metric := &domain.DailyUserMetric{
		ID:           uuid.NewString(),
		UserID:       userID,
		Date:         day,
		LinksCreated: linksCreated,
		ActiveLinks:  activeLinks,
		TotalClicks:  totalClicks,
		UpdatedAt:    a.now().UTC(),
	}

	if err := a.rollups.UpsertUserMetric(ctx, metric); err != nil {
		return fmt.Errorf("failed to upsert user metric: %w", err)
	}

	return nil
}

// FoldLinkDay folds one link's events for one day into a rollup. Pure: same
// events in, same rollup out, which is what makes reruns idempotent.
func FoldLinkDay(linkID string, day time.Time, events []*domain.ClickEvent) *domain.DailyLinkMetric {
	metric := &domain.DailyLinkMetric{
		LinkID: linkID,
		Date:   domain.Day(day),
	}

	uniqueIPs := make(map[string]struct{})
	countries := make(map[string]int)
	devices := make(map[string]int)
	browsers := make(map[string]int)
	referrers := make(map[string]int)

	var latencySum int64
	for _, event := range events {
		metric.ClicksTotal++
		latencySum += event.LatencyMs

		if event.IPAddress != "" {
			uniqueIPs[event.IPAddress] = struct{}{}
		}
		if event.Status == domain.StatusBlocked {
			metric.BlockedAttempts++
		}

		countInto(countries, event.Country)
		countInto(devices, event.DeviceType)
		countInto(browsers, event.Browser)
		countInto(referrers, event.Referrer)
	}

	metric.UniqueVisitors = int64(len(uniqueIPs))
	if metric.ClicksTotal > 0 {
		metric.AvgLatencyMs = float64(latencySum) / float64(metric.ClicksTotal)
	}

	metric.TopCountry = mode(countries)
	metric.TopDevice = mode(devices)
	metric.TopBrowser = mode(browsers)
	metric.TopReferrer = mode(referrers)

	return metric
}

func countInto(counts map[string]int, value string) {
	if value == "" {
		return
	}
	counts[value]++
}

// mode returns the most frequent value, breaking ties lexicographically so
// reruns over the same events always produce the same rollup.
func mode(counts map[string]int) string {
	if len(counts) == 0 {
		return ""
	}

	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Strings(values)

	best := values[0]
	for _, v := range values[1:] {
		if counts[v] > counts[best] {
			best = v
		}
	}

	return best
}
