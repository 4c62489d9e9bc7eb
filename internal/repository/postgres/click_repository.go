package postgres

import (
	"context"
	"fmt"
	"time"

	"linkpulse/internal/domain"
	"linkpulse/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

type clickRepository struct {
	db *pgxpool.Pool
}

// NewClickRepository creates the PostgreSQL click-event store.
func NewClickRepository(db *pgxpool.Pool) repository.ClickRepository {
	return &clickRepository{db: db}
}

// Create inserts one immutable click event. There is no uniqueness
// constraint here: duplicate recordings simply inflate counts, and the
// aggregation layer is where idempotence lives.
func (r *clickRepository) Create(ctx context.Context, event *domain.ClickEvent) error {
	query := `
		INSERT INTO click_events (
			id, link_id, occurred_at, ip_address, user_agent,
			device_type, browser, operating_system, country, city,
			referrer, utm_source, utm_medium, utm_campaign, status, latency_ms
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
	`

	_, err := r.db.Exec(
		ctx,
		query,
		event.ID,
		event.LinkID,
		event.Timestamp,
		event.IPAddress,
		event.UserAgent,
		event.DeviceType,
		event.Browser,
		event.OperatingSystem,
		event.Country,
		event.City,
		event.Referrer,
		event.UTMSource,
		event.UTMMedium,
		event.UTMCampaign,
		event.Status,
		event.LatencyMs,
	)
	if err != nil {
		return fmt.Errorf("failed to insert click event: %w", err)
	}

	return nil
}

func (r *clickRepository) ListByLinkAndDay(ctx context.Context, linkID string, day time.Time) ([]*domain.ClickEvent, error) {
	query := `
		SELECT id, link_id, occurred_at, ip_address, user_agent,
		       device_type, browser, operating_system, country, city,
		       referrer, utm_source, utm_medium, utm_campaign, status, latency_ms
		FROM click_events
		WHERE link_id = $1
		  AND occurred_at >= $2 AND occurred_at < $3
		ORDER BY occurred_at ASC
	`

	day = domain.Day(day)
	rows, err := r.db.Query(ctx, query, linkID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to list click events: %w", err)
	}
	defer rows.Close()

	var events []*domain.ClickEvent
	for rows.Next() {
		event := &domain.ClickEvent{}
		err := rows.Scan(
			&event.ID,
			&event.LinkID,
			&event.Timestamp,
			&event.IPAddress,
			&event.UserAgent,
			&event.DeviceType,
			&event.Browser,
			&event.OperatingSystem,
			&event.Country,
			&event.City,
			&event.Referrer,
			&event.UTMSource,
			&event.UTMMedium,
			&event.UTMCampaign,
			&event.Status,
			&event.LatencyMs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan click event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating click events: %w", err)
	}

	return events, nil
}

func (r *clickRepository) LinkIDsWithEvents(ctx context.Context, day time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT link_id
		FROM click_events
		WHERE occurred_at >= $1 AND occurred_at < $2
	`

	day = domain.Day(day)
	rows, err := r.db.Query(ctx, query, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to list link ids with events: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan link id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating link ids: %w", err)
	}

	return ids, nil
}
