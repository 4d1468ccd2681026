package mysql

import (
	"context"
	"database/sql"
	"errors"

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
WHERE user_id=?;`
	var (
		p   digest.Preferences
		raw []byte
	)
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&p.UserID, &p.Enabled, &p.DeliveryDay, &raw, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "mysql: get digest preferences")
	}
	if p.AnalysisTypes, err = decodeList[analysis.Type](raw); err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert insert/update preferences
func (r *DigestRepository) Upsert(ctx context.Context, p *digest.Preferences) error {
	const q = `
INSERT INTO digest_preferences (user_id, enabled, delivery_day, analysis_types, updated_at)
VALUES (?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 enabled = VALUES(enabled),
 delivery_day = VALUES(delivery_day),
 analysis_types = VALUES(analysis_types),
 updated_at = VALUES(updated_at);`
	types, err := jsonList(p.AnalysisTypes)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q, p.UserID, p.Enabled, string(p.DeliveryDay), types, p.UpdatedAt)
	return eris.Wrap(err, "mysql: upsert digest preferences")
}
