package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	drv "github.com/go-sql-driver/mysql"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	domain "github.com/bryanwahyu/propvest/internal/domain/analysis"
)

// MySQL error numbers worth one more attempt
const (
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// AnalysisStore is the MySQL Record Store. Tags and insights live in JSON columns.
type AnalysisStore struct {
	repo
	db *sql.DB
}

func NewAnalysisStore(db *sql.DB) *AnalysisStore {
	return &AnalysisStore{repo: repo{q: db}, db: db}
}

// Tx runs fn in one transaction and retries once on deadlock or lock wait timeout.
func (s *AnalysisStore) Tx(ctx context.Context, fn func(domain.Repository) error) error {
	err := s.runTx(ctx, fn)
	if retryable(err) && ctx.Err() == nil {
		zap.L().Warn("mysql: retrying transaction", zap.Error(err))
		err = s.runTx(ctx, fn)
	}
	return err
}

func (s *AnalysisStore) runTx(ctx context.Context, fn func(domain.Repository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "mysql: begin tx")
	}
	if err := fn(&repo{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return eris.Wrap(tx.Commit(), "mysql: commit")
}

func retryable(err error) bool {
	var myErr *drv.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	return myErr.Number == errDeadlock || myErr.Number == errLockWaitTimeout
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
		tags     []byte
		insights []byte
		publicID sql.NullString
	)
	if err := row.Scan(
		&a.ID, &a.UserID, &a.Type, &a.PropertyAddress, &data, &a.Notes, &tags,
		&a.AISummary, &insights, &publicID, &a.IsPublic, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &a.Data); err != nil {
		return nil, eris.Wrap(err, "mysql: decode analysis data")
	}
	if a.Data == nil {
		a.Data = domain.Payload{}
	}
	var err error
	if a.Tags, err = decodeList[string](tags); err != nil {
		return nil, err
	}
	if a.AIInsights, err = decodeList[string](insights); err != nil {
		return nil, err
	}
	if len(a.AIInsights) == 0 {
		a.AIInsights = nil
	}
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
		return nil, eris.Wrap(err, "mysql: find analysis")
	}
	return a, nil
}

func (r *repo) FindAnalysis(ctx context.Context, id domain.ID, userID string) (*domain.Analysis, error) {
	return r.findOne(ctx, `id=? AND user_id=?`, string(id), userID)
}

func (r *repo) FindByPublicID(ctx context.Context, publicID string) (*domain.Analysis, error) {
	return r.findOne(ctx, `public_id=? AND is_public=TRUE`, publicID)
}

func (r *repo) ListAnalyses(ctx context.Context, userID string, f domain.ListFilter) ([]*domain.Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE user_id=?`
	args := []any{userID}
	if f.Type != "" {
		query += ` AND type=?`
		args = append(args, string(f.Type))
	}
	if f.Tag != "" {
		query += ` AND JSON_CONTAINS(tags, JSON_QUOTE(?))`
		args = append(args, f.Tag)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?;`
	args = append(args, f.Limit, f.Offset)
	return r.queryAnalyses(ctx, "list analyses", query, args...)
}

func (r *repo) OwnedAnalyses(ctx context.Context, userID string, ids []domain.ID) ([]*domain.Analysis, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, string(id))
	}
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE user_id=? AND id IN (` + placeholders(len(ids)) + `);`
	return r.queryAnalyses(ctx, "owned analyses", query, args...)
}

func (r *repo) queryAnalyses(ctx context.Context, op, query string, args ...any) ([]*domain.Analysis, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "mysql: "+op)
	}
	defer rows.Close()
	var out []*domain.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, eris.Wrap(err, "mysql: "+op)
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "mysql: "+op)
}

func (r *repo) InsertAnalysis(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO analyses
(id, user_id, type, property_address, data, notes, tags,
 ai_summary, ai_insights, public_id, is_public, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?);`
	data, err := json.Marshal(a.Data.Clone())
	if err != nil {
		return eris.Wrap(err, "mysql: encode analysis data")
	}
	tags, err := jsonList(a.Tags)
	if err != nil {
		return err
	}
	insights, err := jsonList(a.AIInsights)
	if err != nil {
		return err
	}
	var publicID sql.NullString
	if a.PublicID != "" {
		publicID = sql.NullString{String: a.PublicID, Valid: true}
	}
	_, err = r.q.ExecContext(ctx, q,
		string(a.ID), a.UserID, string(a.Type), a.PropertyAddress, data, a.Notes, tags,
		a.AISummary, insights, publicID, a.IsPublic, a.CreatedAt, a.UpdatedAt,
	)
	return eris.Wrap(err, "mysql: insert analysis")
}

func (r *repo) UpdateAnalysis(ctx context.Context, a *domain.Analysis) error {
	const q = `UPDATE analyses SET data=?, notes=?, tags=?, ai_summary=?, updated_at=? WHERE id=?;`
	data, err := json.Marshal(a.Data.Clone())
	if err != nil {
		return eris.Wrap(err, "mysql: encode analysis data")
	}
	tags, err := jsonList(a.Tags)
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, q, data, a.Notes, tags, a.AISummary, a.UpdatedAt, string(a.ID))
	return eris.Wrap(err, "mysql: update analysis")
}

func (r *repo) UpdateInsight(ctx context.Context, id domain.ID, summary string, insights []string, at time.Time) error {
	raw, err := jsonList(insights)
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `UPDATE analyses SET ai_summary=?, ai_insights=?, updated_at=? WHERE id=?;`,
		summary, raw, at, string(id))
	return eris.Wrap(err, "mysql: update insight")
}

func (r *repo) PublishAnalysis(ctx context.Context, id domain.ID, publicID string, at time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE analyses SET public_id=?, is_public=TRUE, updated_at=? WHERE id=? AND public_id IS NULL;`,
		publicID, at, string(id))
	if err != nil {
		return false, eris.Wrap(err, "mysql: publish analysis")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "mysql: publish analysis")
	}
	return n == 1, nil
}

func (r *repo) SetPublic(ctx context.Context, id domain.ID, public bool, at time.Time) error {
	_, err := r.q.ExecContext(ctx, `UPDATE analyses SET is_public=?, updated_at=? WHERE id=?;`, public, at, string(id))
	return eris.Wrap(err, "mysql: set public")
}

func (r *repo) DeleteAnalysis(ctx context.Context, id domain.ID) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM analyses WHERE id=?;`, string(id))
	return eris.Wrap(err, "mysql: delete analysis")
}

func (r *repo) InsertVersion(ctx context.Context, v *domain.Version) error {
	data, err := json.Marshal(v.Data.Clone())
	if err != nil {
		return eris.Wrap(err, "mysql: encode version data")
	}
	_, err = r.q.ExecContext(ctx,
		`INSERT INTO analysis_versions (id, analysis_id, data, notes, ai_summary, created_at) VALUES (?,?,?,?,?,?);`,
		string(v.ID), string(v.AnalysisID), data, v.Notes, v.AISummary, v.CreatedAt)
	return eris.Wrap(err, "mysql: insert version")
}

func (r *repo) UpdateVersion(ctx context.Context, v *domain.Version) error {
	data, err := json.Marshal(v.Data.Clone())
	if err != nil {
		return eris.Wrap(err, "mysql: encode version data")
	}
	_, err = r.q.ExecContext(ctx, `UPDATE analysis_versions SET data=?, notes=?, ai_summary=? WHERE id=?;`,
		data, v.Notes, v.AISummary, string(v.ID))
	return eris.Wrap(err, "mysql: update version")
}

func (r *repo) DeleteVersionsByAnalysis(ctx context.Context, id domain.ID) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM analysis_versions WHERE analysis_id=?;`, string(id))
	if err != nil {
		return 0, eris.Wrap(err, "mysql: delete versions")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "mysql: delete versions")
}

func (r *repo) ListVersions(ctx context.Context, id domain.ID) ([]domain.Version, error) {
	rows, err := r.q.QueryContext(ctx, `
SELECT id, analysis_id, data, notes, ai_summary, created_at
FROM analysis_versions
WHERE analysis_id=?
ORDER BY seq DESC;`, string(id))
	if err != nil {
		return nil, eris.Wrap(err, "mysql: list versions")
	}
	defer rows.Close()
	out := []domain.Version{}
	for rows.Next() {
		var v domain.Version
		var data []byte
		if err := rows.Scan(&v.ID, &v.AnalysisID, &data, &v.Notes, &v.AISummary, &v.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "mysql: scan version")
		}
		if err := json.Unmarshal(data, &v.Data); err != nil {
			return nil, eris.Wrap(err, "mysql: decode version data")
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "mysql: list versions")
}

var _ domain.Store = (*AnalysisStore)(nil)
