package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	infracontext "github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/context"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/domain"
)

// Repository stores profiles in the safety_profiles table.
type Repository struct {
	db      *sqlx.DB
	timeout time.Duration
}

var _ Provider = (*Repository)(nil)

// NewRepository returns a repository whose lookups are bounded by timeout
// (infracontext.QueryTimeout when zero).
func NewRepository(db *sqlx.DB, timeout time.Duration) *Repository {
	return &Repository{db: db, timeout: timeout}
}

// GetProfile implements Provider.
func (r *Repository) GetProfile(ctx context.Context, id string) (domain.SafetyProfile, error) {
	ctx, cancel := infracontext.WithQueryTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT profile_id, age_category, safety_level, jurisdiction, allowed_categories, blocked_categories
		FROM safety_profiles
		WHERE profile_id = $1
	`

	var p domain.SafetyProfile
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ProfileID,
		&p.AgeCategory,
		&p.SafetyLevel,
		&p.Jurisdiction,
		pq.Array(&p.AllowedCategories),
		pq.Array(&p.BlockedCategories),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SafetyProfile{}, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, id)
		}
		return domain.SafetyProfile{}, fmt.Errorf("get profile %s: %w", id, err)
	}
	return p, nil
}

// Upsert creates or replaces a profile.
func (r *Repository) Upsert(ctx context.Context, p domain.SafetyProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO safety_profiles (profile_id, age_category, safety_level, jurisdiction, allowed_categories, blocked_categories)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (profile_id) DO UPDATE SET
			age_category = EXCLUDED.age_category,
			safety_level = EXCLUDED.safety_level,
			jurisdiction = EXCLUDED.jurisdiction,
			allowed_categories = EXCLUDED.allowed_categories,
			blocked_categories = EXCLUDED.blocked_categories,
			updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query,
		p.ProfileID,
		p.AgeCategory,
		p.SafetyLevel,
		p.Jurisdiction,
		pq.Array(p.AllowedCategories),
		pq.Array(p.BlockedCategories),
	)
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", p.ProfileID, err)
	}
	return nil
}

// Ping checks the connection, for health probes.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrProfileNotFound)
}
