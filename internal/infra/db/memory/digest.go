package memory

import (
	"context"
	"sync"

	"github.com/bryanwahyu/propvest/internal/domain/analysis"
	"github.com/bryanwahyu/propvest/internal/domain/digest"
)

// DigestRepository keeps digest preferences in a map.
type DigestRepository struct {
	mu    sync.RWMutex
	prefs map[string]digest.Preferences
}

func NewDigestRepository() *DigestRepository {
	return &DigestRepository{prefs: map[string]digest.Preferences{}}
}

func (r *DigestRepository) Get(_ context.Context, userID string) (*digest.Preferences, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prefs[userID]
	if !ok {
		return nil, nil
	}
	p.AnalysisTypes = append([]analysis.Type(nil), p.AnalysisTypes...)
	return &p, nil
}

func (r *DigestRepository) Upsert(_ context.Context, p *digest.Preferences) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	cp.AnalysisTypes = append([]analysis.Type(nil), p.AnalysisTypes...)
	r.prefs[p.UserID] = cp
	return nil
}
