package analysis

import (
	"context"
	"time"
)

// Repository port (Record Store). Find* methods return (nil, nil) when no row
// matches.
type Repository interface {
	FindAnalysis(ctx context.Context, id ID, userID string) (*Analysis, error)
	FindByPublicID(ctx context.Context, publicID string) (*Analysis, error)
	ListAnalyses(ctx context.Context, userID string, f ListFilter) ([]*Analysis, error)
	// OwnedAnalyses returns the subset of ids owned by userID, without versions.
	OwnedAnalyses(ctx context.Context, userID string, ids []ID) ([]*Analysis, error)

	InsertAnalysis(ctx context.Context, a *Analysis) error
	// UpdateAnalysis writes the live fields: data, notes, tags, ai_summary, updated_at.
	UpdateAnalysis(ctx context.Context, a *Analysis) error
	UpdateInsight(ctx context.Context, id ID, summary string, insights []string, at time.Time) error
	// PublishAnalysis sets public_id only when none is set yet and reports whether
	// this call set it.
	PublishAnalysis(ctx context.Context, id ID, publicID string, at time.Time) (bool, error)
	SetPublic(ctx context.Context, id ID, public bool, at time.Time) error
	DeleteAnalysis(ctx context.Context, id ID) error

	InsertVersion(ctx context.Context, v *Version) error
	UpdateVersion(ctx context.Context, v *Version) error
	DeleteVersionsByAnalysis(ctx context.Context, id ID) (int64, error)
	// ListVersions returns every snapshot of an analysis, newest first.
	ListVersions(ctx context.Context, id ID) ([]Version, error)
}

// Store is a Repository that can run a group of writes atomically. The Repository
// handed to fn is bound to the transaction.
type Store interface {
	Repository
	Tx(ctx context.Context, fn func(Repository) error) error
}

// ShareCache keeps public projections close to the edge. Get reports a miss with
// ok=false and a nil error.
type ShareCache interface {
	Get(ctx context.Context, publicID string) (view *PublicView, ok bool, err error)
	Set(ctx context.Context, publicID string, view PublicView) error
	Invalidate(ctx context.Context, publicID string) error
}

// ArtifactStore port (interface untuk penyimpanan artefak export)
type ArtifactStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}
