package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "github.com/bryanwahyu/propvest/internal/domain/analysis"
)

// Store is an in-process Record Store for local runs and tests. Transactions are
// serialized and applied copy-on-write, so a failing fn leaves no partial writes.
type Store struct {
	mu sync.Mutex
	st *state

	// Fail, when set, is consulted before every write with the operation name.
	// A non-nil return aborts that write.
	Fail func(op string) error
}

type state struct {
	analyses map[domain.ID]*domain.Analysis
	versions map[domain.ID][]domain.Version // oldest first
}

// New returns an empty Store.
func New() *Store {
	return &Store{st: &state{
		analyses: map[domain.ID]*domain.Analysis{},
		versions: map[domain.ID][]domain.Version{},
	}}
}

func (s *Store) repo() *repo { return &repo{st: s.st, fail: s.Fail} }

// Tx runs fn against a private copy of the state and publishes it only when fn
// succeeds.
func (s *Store) Tx(ctx context.Context, fn func(domain.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	clone := s.st.clone()
	if err := fn(&repo{st: clone, fail: s.Fail}); err != nil {
		return err
	}
	s.st = clone
	return nil
}

// VersionCount reports how many Version rows reference id. Handy for asserting
// cascade behaviour.
func (s *Store) VersionCount(id domain.ID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.versions[id])
}

func (s *Store) FindAnalysis(ctx context.Context, id domain.ID, userID string) (*domain.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().FindAnalysis(ctx, id, userID)
}

func (s *Store) FindByPublicID(ctx context.Context, publicID string) (*domain.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().FindByPublicID(ctx, publicID)
}

func (s *Store) ListAnalyses(ctx context.Context, userID string, f domain.ListFilter) ([]*domain.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().ListAnalyses(ctx, userID, f)
}

func (s *Store) OwnedAnalyses(ctx context.Context, userID string, ids []domain.ID) ([]*domain.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().OwnedAnalyses(ctx, userID, ids)
}

func (s *Store) InsertAnalysis(ctx context.Context, a *domain.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().InsertAnalysis(ctx, a)
}

func (s *Store) UpdateAnalysis(ctx context.Context, a *domain.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().UpdateAnalysis(ctx, a)
}

func (s *Store) UpdateInsight(ctx context.Context, id domain.ID, summary string, insights []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().UpdateInsight(ctx, id, summary, insights, at)
}

func (s *Store) PublishAnalysis(ctx context.Context, id domain.ID, publicID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().PublishAnalysis(ctx, id, publicID, at)
}

func (s *Store) SetPublic(ctx context.Context, id domain.ID, public bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().SetPublic(ctx, id, public, at)
}

func (s *Store) DeleteAnalysis(ctx context.Context, id domain.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().DeleteAnalysis(ctx, id)
}

func (s *Store) InsertVersion(ctx context.Context, v *domain.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().InsertVersion(ctx, v)
}

func (s *Store) UpdateVersion(ctx context.Context, v *domain.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().UpdateVersion(ctx, v)
}

func (s *Store) DeleteVersionsByAnalysis(ctx context.Context, id domain.ID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().DeleteVersionsByAnalysis(ctx, id)
}

func (s *Store) ListVersions(ctx context.Context, id domain.ID) ([]domain.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().ListVersions(ctx, id)
}

// repo works on one state without locking; the caller holds Store.mu.
type repo struct {
	st   *state
	fail func(op string) error
}

func (r *repo) check(op string) error {
	if r.fail == nil {
		return nil
	}
	return r.fail(op)
}

func (r *repo) FindAnalysis(_ context.Context, id domain.ID, userID string) (*domain.Analysis, error) {
	a, ok := r.st.analyses[id]
	if !ok || a.UserID != userID {
		return nil, nil
	}
	return copyAnalysis(a), nil
}

func (r *repo) FindByPublicID(_ context.Context, publicID string) (*domain.Analysis, error) {
	if publicID == "" {
		return nil, nil
	}
	for _, a := range r.st.analyses {
		if a.PublicID == publicID && a.IsPublic {
			return copyAnalysis(a), nil
		}
	}
	return nil, nil
}

func (r *repo) ListAnalyses(_ context.Context, userID string, f domain.ListFilter) ([]*domain.Analysis, error) {
	var out []*domain.Analysis
	for _, a := range r.st.analyses {
		if a.UserID != userID {
			continue
		}
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		if f.Tag != "" && !hasTag(a.Tags, f.Tag) {
			continue
		}
		out = append(out, copyAnalysis(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *repo) OwnedAnalyses(_ context.Context, userID string, ids []domain.ID) ([]*domain.Analysis, error) {
	var out []*domain.Analysis
	for _, id := range ids {
		if a, ok := r.st.analyses[id]; ok && a.UserID == userID {
			out = append(out, copyAnalysis(a))
		}
	}
	return out, nil
}

func (r *repo) InsertAnalysis(_ context.Context, a *domain.Analysis) error {
	if err := r.check("insert_analysis"); err != nil {
		return err
	}
	r.st.analyses[a.ID] = copyAnalysis(a)
	return nil
}

func (r *repo) UpdateAnalysis(_ context.Context, a *domain.Analysis) error {
	if err := r.check("update_analysis"); err != nil {
		return err
	}
	cur, ok := r.st.analyses[a.ID]
	if !ok {
		return nil
	}
	cur.Data = a.Data.Clone()
	cur.Notes = a.Notes
	cur.Tags = append([]string(nil), a.Tags...)
	cur.AISummary = a.AISummary
	cur.UpdatedAt = a.UpdatedAt
	return nil
}

func (r *repo) UpdateInsight(_ context.Context, id domain.ID, summary string, insights []string, at time.Time) error {
	if err := r.check("update_insight"); err != nil {
		return err
	}
	if cur, ok := r.st.analyses[id]; ok {
		cur.AISummary = summary
		cur.AIInsights = append([]string(nil), insights...)
		cur.UpdatedAt = at
	}
	return nil
}

func (r *repo) PublishAnalysis(_ context.Context, id domain.ID, publicID string, at time.Time) (bool, error) {
	if err := r.check("publish_analysis"); err != nil {
		return false, err
	}
	cur, ok := r.st.analyses[id]
	if !ok || cur.PublicID != "" {
		return false, nil
	}
	cur.PublicID = publicID
	cur.IsPublic = true
	cur.UpdatedAt = at
	return true, nil
}

func (r *repo) SetPublic(_ context.Context, id domain.ID, public bool, at time.Time) error {
	if err := r.check("set_public"); err != nil {
		return err
	}
	if cur, ok := r.st.analyses[id]; ok {
		cur.IsPublic = public
		cur.UpdatedAt = at
	}
	return nil
}

func (r *repo) DeleteAnalysis(_ context.Context, id domain.ID) error {
	if err := r.check("delete_analysis"); err != nil {
		return err
	}
	delete(r.st.analyses, id)
	return nil
}

func (r *repo) InsertVersion(_ context.Context, v *domain.Version) error {
	if err := r.check("insert_version"); err != nil {
		return err
	}
	r.st.versions[v.AnalysisID] = append(r.st.versions[v.AnalysisID], copyVersion(*v))
	return nil
}

func (r *repo) UpdateVersion(_ context.Context, v *domain.Version) error {
	if err := r.check("update_version"); err != nil {
		return err
	}
	list := r.st.versions[v.AnalysisID]
	for i := range list {
		if list[i].ID == v.ID {
			list[i].Data = v.Data.Clone()
			list[i].Notes = v.Notes
			list[i].AISummary = v.AISummary
		}
	}
	return nil
}

func (r *repo) DeleteVersionsByAnalysis(_ context.Context, id domain.ID) (int64, error) {
	if err := r.check("delete_versions"); err != nil {
		return 0, err
	}
	n := int64(len(r.st.versions[id]))
	delete(r.st.versions, id)
	return n, nil
}

func (r *repo) ListVersions(_ context.Context, id domain.ID) ([]domain.Version, error) {
	list := r.st.versions[id]
	out := make([]domain.Version, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		out = append(out, copyVersion(list[i]))
	}
	return out, nil
}

func (st *state) clone() *state {
	c := &state{
		analyses: make(map[domain.ID]*domain.Analysis, len(st.analyses)),
		versions: make(map[domain.ID][]domain.Version, len(st.versions)),
	}
	for id, a := range st.analyses {
		c.analyses[id] = copyAnalysis(a)
	}
	for id, list := range st.versions {
		cp := make([]domain.Version, len(list))
		for i, v := range list {
			cp[i] = copyVersion(v)
		}
		c.versions[id] = cp
	}
	return c
}

func copyAnalysis(a *domain.Analysis) *domain.Analysis {
	c := *a
	c.Data = a.Data.Clone()
	c.Tags = append([]string{}, a.Tags...)
	c.AIInsights = append([]string(nil), a.AIInsights...)
	c.Versions = nil
	return &c
}

func copyVersion(v domain.Version) domain.Version {
	v.Data = v.Data.Clone()
	return v
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
