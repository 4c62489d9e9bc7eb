package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"linkpulse/internal/domain"
	"linkpulse/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the PostgreSQL error code for unique index violations.
const uniqueViolation = "23505"

type linkRepository struct {
	db *pgxpool.Pool
}

// NewLinkRepository creates the PostgreSQL mapping-store implementation.
func NewLinkRepository(db *pgxpool.Pool) repository.LinkRepository {
	return &linkRepository{db: db}
}

// Add inserts a new link inside a transaction so the insert is atomic from
// the caller's perspective. The unique index on code is the authoritative
// uniqueness check; a violation surfaces as domain.ErrCodeTaken so the
// service can retry with a fresh code.
func (r *linkRepository) Add(ctx context.Context, link *domain.ShortLink) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO short_links (
			id, code, long_url, owner_id, created_at, expires_at, is_active, access_count
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err = tx.Exec(
		ctx,
		query,
		link.ID,
		link.Code,
		link.LongURL,
		link.OwnerID,
		link.CreatedAt,
		link.ExpiresAt,
		link.IsActive,
		link.AccessCount,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrCodeTaken
		}
		return fmt.Errorf("failed to insert link: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit link insert: %w", err)
	}

	return nil
}

// GetByCode retrieves a link by its short code. This is the cache-miss path
// of the resolution cache; the query is a plain read-only projection.
func (r *linkRepository) GetByCode(ctx context.Context, code string) (*domain.ShortLink, error) {
	query := `
		SELECT id, code, long_url, owner_id, created_at, updated_at,
		       expires_at, is_active, access_count, last_accessed_at
		FROM short_links
		WHERE code = $1
	`

	link := &domain.ShortLink{}
	err := r.db.QueryRow(ctx, query, code).Scan(
		&link.ID,
		&link.Code,
		&link.LongURL,
		&link.OwnerID,
		&link.CreatedAt,
		&link.UpdatedAt,
		&link.ExpiresAt,
		&link.IsActive,
		&link.AccessCount,
		&link.LastAccessedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link by code: %w", err)
	}

	return link, nil
}

func (r *linkRepository) GetByID(ctx context.Context, id string) (*domain.ShortLink, error) {
	query := `
		SELECT id, code, long_url, owner_id, created_at, updated_at,
		       expires_at, is_active, access_count, last_accessed_at
		FROM short_links
		WHERE id = $1
	`

	link := &domain.ShortLink{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&link.ID,
		&link.Code,
		&link.LongURL,
		&link.OwnerID,
		&link.CreatedAt,
		&link.UpdatedAt,
		&link.ExpiresAt,
		&link.IsActive,
		&link.AccessCount,
		&link.LastAccessedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link by id: %w", err)
	}

	return link, nil
}

func (r *linkRepository) IsCodeUnique(ctx context.Context, code string) (bool, error) {
	query := `SELECT NOT EXISTS(SELECT 1 FROM short_links WHERE code = $1)`

	var unique bool
	if err := r.db.QueryRow(ctx, query, code).Scan(&unique); err != nil {
		return false, fmt.Errorf("failed to check code uniqueness: %w", err)
	}

	return unique, nil
}

func (r *linkRepository) CountCreatedOn(ctx context.Context, ownerID string, day time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM short_links
		WHERE owner_id = $1
		  AND created_at >= $2 AND created_at < $3
	`

	day = domain.Day(day)
	var count int64
	if err := r.db.QueryRow(ctx, query, ownerID, day, day.AddDate(0, 0, 1)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count links created: %w", err)
	}

	return count, nil
}

func (r *linkRepository) CountActiveByOwner(ctx context.Context, ownerID string) (int64, error) {
	query := `SELECT COUNT(*) FROM short_links WHERE owner_id = $1 AND is_active = true`

	var count int64
	if err := r.db.QueryRow(ctx, query, ownerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active links: %w", err)
	}

	return count, nil
}

func (r *linkRepository) OwnersCreatedOn(ctx context.Context, day time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT owner_id
		FROM short_links
		WHERE created_at >= $1 AND created_at < $2
	`

	day = domain.Day(day)
	rows, err := r.db.Query(ctx, query, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}
		owners = append(owners, owner)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating owners: %w", err)
	}

	return owners, nil
}
