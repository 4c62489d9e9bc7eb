package repository

import (
	"context"
	"time"

	"linkpulse/internal/domain"
)

// LinkRepository is the mapping-store access layer. The unique index on the
// code column is the authoritative uniqueness enforcement; IsCodeUnique is
// only the cheap pre-check used by the code generator.
type LinkRepository interface {
	// Add inserts a new link atomically: either the row is fully visible
	// afterwards or nothing is. Returns domain.ErrCodeTaken when the unique
	// index rejects the code.
	Add(ctx context.Context, link *domain.ShortLink) error

	// GetByCode retrieves a link by its short code, including inactive and
	// expired rows (the redirect path records those as blocked/expired
	// events). Returns domain.ErrLinkNotFound when no row matches.
	GetByCode(ctx context.Context, code string) (*domain.ShortLink, error)

	// GetByID retrieves a link by its UUID.
	GetByID(ctx context.Context, id string) (*domain.ShortLink, error)

	// IsCodeUnique reports whether no live link uses the given code.
	IsCodeUnique(ctx context.Context, code string) (bool, error)

	// CountCreatedOn counts links an owner created on the given UTC day.
	CountCreatedOn(ctx context.Context, ownerID string, day time.Time) (int64, error)

	// CountActiveByOwner counts an owner's non-deleted links.
	CountActiveByOwner(ctx context.Context, ownerID string) (int64, error)

	// OwnersCreatedOn lists owners who created at least one link on the
	// given UTC day. Used so a user metric row exists even for users whose
	// links saw no clicks that day.
	OwnersCreatedOn(ctx context.Context, day time.Time) ([]string, error)
}

// ClickRepository is the append-only store of raw click events.
type ClickRepository interface {
	// Create inserts one immutable click event.
	Create(ctx context.Context, event *domain.ClickEvent) error

	// ListByLinkAndDay returns all events for a link within a UTC day.
	ListByLinkAndDay(ctx context.Context, linkID string, day time.Time) ([]*domain.ClickEvent, error)

	// LinkIDsWithEvents returns the distinct link IDs that saw at least one
	// event on the given UTC day.
	LinkIDsWithEvents(ctx context.Context, day time.Time) ([]string, error)
}

// MetricRepository persists and serves the daily aggregates. Upserts are
// keyed on (link, date) and (user, date) and overwrite numeric fields in
// place, so re-running aggregation for a day is idempotent.
type MetricRepository interface {
	// UpsertLinkMetric writes one daily link rollup. Within the same
	// transaction it refreshes the link's access_count and last_accessed_at,
	// which the redirect hot path never touches.
	UpsertLinkMetric(ctx context.Context, metric *domain.DailyLinkMetric) error

	// UpsertUserMetric writes one daily user rollup.
	UpsertUserMetric(ctx context.Context, metric *domain.DailyUserMetric) error

	// ListLinkMetrics returns daily link rollups for [from, to], ascending.
	ListLinkMetrics(ctx context.Context, linkID string, from, to time.Time) ([]*domain.DailyLinkMetric, error)

	// ListUserMetrics returns daily user rollups for [from, to], ascending.
	ListUserMetrics(ctx context.Context, userID string, from, to time.Time) ([]*domain.DailyUserMetric, error)
}
