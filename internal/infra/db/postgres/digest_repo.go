package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/rotisserie/eris"

	"github.com/bryanwahyu/propvest/internal/domain/analysis"
	"github.com/bryanwahyu/propvest/internal/domain/digest"
)

type DigestRepository struct{ db *sql.DB }

func NewDigestRepository(db *sql.DB) *DigestRepository { return &DigestRepository{db: db} }

func (r *DigestRepository) Get(ctx context.Context, userID string) (*digest.Preferences, error) {
	const q = `
SELECT user_id, enabled, delivery_day, analysis_types, updated_at
FROM digest_preferences
WHERE user_id=$1;`
	var (
		p     digest.Preferences
		types []string
	)
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&p.UserID, &p.Enabled, &p.DeliveryDay, pq.Array(&types), &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get digest preferences")
	}
	for _, t := range types {
		p.AnalysisTypes = append(p.AnalysisTypes, analysis.Type(t))
	}
	return &p, nil
}

// Upsert insert/update preferences
func (r *DigestRepository) Upsert(ctx context.Context, p *digest.Preferences) error {
	const q = `
INSERT INTO digest_preferences (user_id, enabled, delivery_day, analysis_types, updated_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (user_id) DO UPDATE SET
 enabled = EXCLUDED.enabled,
 delivery_day = EXCLUDED.delivery_day,
 analysis_types = EXCLUDED.analysis_types,
 updated_at = EXCLUDED.updated_at;`
	types := make([]string, 0, len(p.AnalysisTypes))
	for _, t := range p.AnalysisTypes {
		types = append(types, string(t))
	}
	_, err := r.db.ExecContext(ctx, q, p.UserID, p.Enabled, string(p.DeliveryDay), pq.Array(types), p.UpdatedAt)
	return eris.Wrap(err, "postgres: upsert digest preferences")
}
