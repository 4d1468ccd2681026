package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	domain "github.com/bryanwahyu/propvest/internal/domain/analysis"
)

// querier is the part of *sql.DB and *sql.Tx the repository needs.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// AnalysisStore is the Postgres Record Store for analyses and their versions.
type AnalysisStore struct {
	repo
	db *sql.DB
}

func NewAnalysisStore(db *sql.DB) *AnalysisStore {
	return &AnalysisStore{repo: repo{q: db}, db: db}
}

// Tx runs fn in one transaction. A serialization failure or deadlock (SQLSTATE
// class 40) is retried once.
func (s *AnalysisStore) Tx(ctx context.Context, fn func(domain.Repository) error) error {
	err := s.runTx(ctx, fn)
	if retryable(err) && ctx.Err() == nil {
		zap.L().Warn("postgres: retrying transaction", zap.Error(err))
		err = s.runTx(ctx, fn)
	}
	return err
}

func (s *AnalysisStore) runTx(ctx context.Context, fn func(domain.Repository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	if err := fn(&repo{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "postgres: commit")
	}
	return nil
}

func retryable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Class() == "40"
}

type repo struct{ q querier }

const analysisColumns = `id, user_id, type, property_address, data, notes, tags,
       ai_summary, ai_insights, public_id, is_public, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row scanner) (*domain.Analysis, error) {
	var (
		a        domain.Analysis
		data     []byte
		insights []byte
		publicID sql.NullString
		tags     []string
	)
	if err := row.Scan(
		&a.ID, &a.UserID, &a.Type, &a.PropertyAddress, &data, &a.Notes, pq.Array(&tags),
		&a.AISummary, &insights, &publicID, &a.IsPublic, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &a.Data); err != nil {
		return nil, eris.Wrap(err, "postgres: decode analysis data")
	}
	if len(insights) > 0 {
		if err := json.Unmarshal(insights, &a.AIInsights); err != nil {
			return nil, eris.Wrap(err, "postgres: decode ai insights")
		}
	}
	if a.Data == nil {
		a.Data = domain.Payload{}
	}
	if tags == nil {
		tags = []string{}
	}
	a.Tags = tags
	a.PublicID = publicID.String
	return &a, nil
}

func (r *repo) findOne(ctx context.Context, where string, args ...any) (*domain.Analysis, error) {
	q := `SELECT ` + analysisColumns + ` FROM analyses WHERE ` + where + ` LIMIT 1;`
	a, err := scanAnalysis(r.q.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find analysis")
	}
	return a, nil
}

func (r *repo) FindAnalysis(ctx context.Context, id domain.ID, userID string) (*domain.Analysis, error) {
	return r.findOne(ctx, `id=$1 AND user_id=$2`, string(id), userID)
}

func (r *repo) FindByPublicID(ctx context.Context, publicID string) (*domain.Analysis, error) {
	return r.findOne(ctx, `public_id=$1 AND is_public`, publicID)
}

func (r *repo) ListAnalyses(ctx context.Context, userID string, f domain.ListFilter) ([]*domain.Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE user_id=$1`
	args := []any{userID}
	next := 2
	if f.Type != "" {
		query += fmt.Sprintf(" AND type=$%d", next)
		args = append(args, string(f.Type))
		next++
	}
	if f.Tag != "" {
		query += fmt.Sprintf(" AND $%d = ANY(tags)", next)
		args = append(args, f.Tag)
		next++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d;", next, next+1)
	args = append(args, f.Limit, f.Offset)
	return r.queryAnalyses(ctx, "list analyses", query, args...)
}

func (r *repo) OwnedAnalyses(ctx context.Context, userID string, ids []domain.ID) ([]*domain.Analysis, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE user_id=$1 AND id = ANY($2);`
	return r.queryAnalyses(ctx, "owned analyses", query, userID, pq.Array(raw))
}

func (r *repo) queryAnalyses(ctx context.Context, op, query string, args ...any) ([]*domain.Analysis, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: "+op)
	}
	defer rows.Close()
	var out []*domain.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: "+op)
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: "+op)
}

func (r *repo) InsertAnalysis(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO analyses
(id, user_id, type, property_address, data, notes, tags,
 ai_summary, ai_insights, public_id, is_public, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,
        $8,$9,$10,$11,$12,$13);`
	data, insights, err := encodeAnalysis(a)
	if err != nil {
		return err
	}
	var publicID sql.NullString
	if a.PublicID != "" {
		publicID = sql.NullString{String: a.PublicID, Valid: true}
	}
	_, err = r.q.ExecContext(ctx, q,
		string(a.ID), a.UserID, string(a.Type), a.PropertyAddress, data, a.Notes, pq.Array(tagsOrEmpty(a.Tags)),
		a.AISummary, insights, publicID, a.IsPublic, a.CreatedAt, a.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: insert analysis")
}

func (r *repo) UpdateAnalysis(ctx context.Context, a *domain.Analysis) error {
	const q = `
UPDATE analyses SET
 data = $2,
 notes = $3,
 tags = $4,
 ai_summary = $5,
 updated_at = $6
WHERE id = $1;`
	data, err := json.Marshal(a.Data.Clone())
	if err != nil {
		return eris.Wrap(err, "postgres: encode analysis data")
	}
	_, err = r.q.ExecContext(ctx, q, string(a.ID), data, a.Notes, pq.Array(tagsOrEmpty(a.Tags)), a.AISummary, a.UpdatedAt)
	return eris.Wrap(err, "postgres: update analysis")
}

func (r *repo) UpdateInsight(ctx context.Context, id domain.ID, summary string, insights []string, at time.Time) error {
	const q = `UPDATE analyses SET ai_summary=$2, ai_insights=$3, updated_at=$4 WHERE id=$1;`
	raw, err := json.Marshal(insightsOrEmpty(insights))
	if err != nil {
		return eris.Wrap(err, "postgres: encode ai insights")
	}
	_, err = r.q.ExecContext(ctx, q, string(id), summary, raw, at)
	return eris.Wrap(err, "postgres: update insight")
}

func (r *repo) PublishAnalysis(ctx context.Context, id domain.ID, publicID string, at time.Time) (bool, error) {
	const q = `UPDATE analyses SET public_id=$2, is_public=TRUE, updated_at=$3 WHERE id=$1 AND public_id IS NULL;`
	res, err := r.q.ExecContext(ctx, q, string(id), publicID, at)
	if err != nil {
		return false, eris.Wrap(err, "postgres: publish analysis")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "postgres: publish analysis")
	}
	return n == 1, nil
}

func (r *repo) SetPublic(ctx context.Context, id domain.ID, public bool, at time.Time) error {
	const q = `UPDATE analyses SET is_public=$2, updated_at=$3 WHERE id=$1;`
	_, err := r.q.ExecContext(ctx, q, string(id), public, at)
	return eris.Wrap(err, "postgres: set public")
}

func (r *repo) DeleteAnalysis(ctx context.Context, id domain.ID) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM analyses WHERE id=$1;`, string(id))
	return eris.Wrap(err, "postgres: delete analysis")
}

func (r *repo) InsertVersion(ctx context.Context, v *domain.Version) error {
	const q = `
INSERT INTO analysis_versions (id, analysis_id, data, notes, ai_summary, created_at)
VALUES ($1,$2,$3,$4,$5,$6);`
	data, err := json.Marshal(v.Data.Clone())
	if err != nil {
		return eris.Wrap(err, "postgres: encode version data")
	}
	_, err = r.q.ExecContext(ctx, q, string(v.ID), string(v.AnalysisID), data, v.Notes, v.AISummary, v.CreatedAt)
	return eris.Wrap(err, "postgres: insert version")
}

func (r *repo) UpdateVersion(ctx context.Context, v *domain.Version) error {
	const q = `UPDATE analysis_versions SET data=$2, notes=$3, ai_summary=$4 WHERE id=$1;`
	data, err := json.Marshal(v.Data.Clone())
	if err != nil {
		return eris.Wrap(err, "postgres: encode version data")
	}
	_, err = r.q.ExecContext(ctx, q, string(v.ID), data, v.Notes, v.AISummary)
	return eris.Wrap(err, "postgres: update version")
}

func (r *repo) DeleteVersionsByAnalysis(ctx context.Context, id domain.ID) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM analysis_versions WHERE analysis_id=$1;`, string(id))
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete versions")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "postgres: delete versions")
}

func (r *repo) ListVersions(ctx context.Context, id domain.ID) ([]domain.Version, error) {
	const q = `
SELECT id, analysis_id, data, notes, ai_summary, created_at
FROM analysis_versions
WHERE analysis_id=$1
ORDER BY seq DESC;`
	rows, err := r.q.QueryContext(ctx, q, string(id))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list versions")
	}
	defer rows.Close()
	out := []domain.Version{}
	for rows.Next() {
		var v domain.Version
		var data []byte
		if err := rows.Scan(&v.ID, &v.AnalysisID, &data, &v.Notes, &v.AISummary, &v.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan version")
		}
		if err := json.Unmarshal(data, &v.Data); err != nil {
			return nil, eris.Wrap(err, "postgres: decode version data")
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list versions")
}

func encodeAnalysis(a *domain.Analysis) (data, insights []byte, err error) {
	data, err = json.Marshal(a.Data.Clone())
	if err != nil {
		return nil, nil, eris.Wrap(err, "postgres: encode analysis data")
	}
	insights, err = json.Marshal(insightsOrEmpty(a.AIInsights))
	if err != nil {
		return nil, nil, eris.Wrap(err, "postgres: encode ai insights")
	}
	return data, insights, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func insightsOrEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// compile-time check
var _ domain.Store = (*AnalysisStore)(nil)
