package postgres

import (
	"context"
	"fmt"
	"time"

	"linkpulse/internal/domain"
	"linkpulse/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

type metricRepository struct {
	db *pgxpool.Pool
}

// NewMetricRepository creates the PostgreSQL store for daily aggregates.
func NewMetricRepository(db *pgxpool.Pool) repository.MetricRepository {
	return &metricRepository{db: db}
}

// UpsertLinkMetric writes one (link, day) rollup and refreshes the link's
// counters in the same transaction, so a reader never sees the rollup and
// the counters disagree after a partial write.
func (r *metricRepository) UpsertLinkMetric(ctx context.Context, metric *domain.DailyLinkMetric) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	upsert := `
		INSERT INTO daily_link_metrics (
			id, link_id, date, clicks_total, unique_visitors, blocked_attempts,
			avg_latency_ms, top_country, top_device, top_browser, top_referrer, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		ON CONFLICT (link_id, date) DO UPDATE SET
			clicks_total     = EXCLUDED.clicks_total,
			unique_visitors  = EXCLUDED.unique_visitors,
			blocked_attempts = EXCLUDED.blocked_attempts,
			avg_latency_ms   = EXCLUDED.avg_latency_ms,
			top_country      = EXCLUDED.top_country,
			top_device       = EXCLUDED.top_device,
			top_browser      = EXCLUDED.top_browser,
			top_referrer     = EXCLUDED.top_referrer,
			updated_at       = EXCLUDED.updated_at
	`

	_, err = tx.Exec(
		ctx,
		upsert,
		metric.ID,
		metric.LinkID,
		domain.Day(metric.Date),
		metric.ClicksTotal,
		metric.UniqueVisitors,
		metric.BlockedAttempts,
		metric.AvgLatencyMs,
		metric.TopCountry,
		metric.TopDevice,
		metric.TopBrowser,
		metric.TopReferrer,
		metric.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert link metric: %w", err)
	}

	// Link counters are derived entirely from the rollups and raw events.
	// The redirect hot path never writes them.
	refresh := `
		UPDATE short_links SET
			access_count = (
				SELECT COALESCE(SUM(clicks_total), 0)
				FROM daily_link_metrics
				WHERE link_id = $1
			),
			last_accessed_at = (
				SELECT MAX(occurred_at)
				FROM click_events
				WHERE link_id = $1
			)
		WHERE id = $1
	`

	if _, err := tx.Exec(ctx, refresh, metric.LinkID); err != nil {
		return fmt.Errorf("failed to refresh link counters: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit link metric: %w", err)
	}

	return nil
}

func (r *metricRepository) UpsertUserMetric(ctx context.Context, metric *domain.DailyUserMetric) error {
	query := `
		INSERT INTO daily_user_metrics (
			id, user_id, date, links_created, active_links, total_clicks, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		ON CONFLICT (user_id, date) DO UPDATE SET
			links_created = EXCLUDED.links_created,
			active_links  = EXCLUDED.active_links,
			total_clicks  = EXCLUDED.total_clicks,
			updated_at    = EXCLUDED.updated_at
	`

	_, err := r.db.Exec(
		ctx,
		query,
		metric.ID,
		metric.UserID,
		domain.Day(metric.Date),
		metric.LinksCreated,
		metric.ActiveLinks,
		metric.TotalClicks,
		metric.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user metric: %w", err)
	}

	return nil
}

func (r *metricRepository) ListLinkMetrics(ctx context.Context, linkID string, from, to time.Time) ([]*domain.DailyLinkMetric, error) {
	query := `
		SELECT id, link_id, date, clicks_total, unique_visitors, blocked_attempts,
		       avg_latency_ms, top_country, top_device, top_browser, top_referrer, updated_at
		FROM daily_link_metrics
		WHERE link_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`

	rows, err := r.db.Query(ctx, query, linkID, domain.Day(from), domain.Day(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list link metrics: %w", err)
	}
	defer rows.Close()

	var metrics []*domain.DailyLinkMetric
	for rows.Next() {
		m := &domain.DailyLinkMetric{}
		err := rows.Scan(
			&m.ID,
			&m.LinkID,
			&m.Date,
			&m.ClicksTotal,
			&m.UniqueVisitors,
			&m.BlockedAttempts,
			&m.AvgLatencyMs,
			&m.TopCountry,
			&m.TopDevice,
			&m.TopBrowser,
			&m.TopReferrer,
			&m.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link metric: %w", err)
		}
		metrics = append(metrics, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating link metrics: %w", err)
	}

	return metrics, nil
}

func (r *metricRepository) ListUserMetrics(ctx context.Context, userID string, from, to time.Time) ([]*domain.DailyUserMetric, error) {
	query := `
		SELECT id, user_id, date, links_created, active_links, total_clicks, updated_at
		FROM daily_user_metrics
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`

	rows, err := r.db.Query(ctx, query, userID, domain.Day(from), domain.Day(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list user metrics: %w", err)
	}
	defer rows.Close()

	var metrics []*domain.DailyUserMetric
	for rows.Next() {
		m := &domain.DailyUserMetric{}
		err := rows.Scan(
			&m.ID,
			&m.UserID,
			&m.Date,
			&m.LinksCreated,
			&m.ActiveLinks,
			&m.TotalClicks,
			&m.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user metric: %w", err)
		}
		metrics = append(metrics, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user metrics: %w", err)
	}

	return metrics, nil
}
