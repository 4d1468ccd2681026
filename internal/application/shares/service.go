package shares

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/bryanwahyu/propvest/internal/application"
	domain "github.com/bryanwahyu/propvest/internal/domain/analysis"
	"github.com/bryanwahyu/propvest/internal/domain/identity"
	"github.com/bryanwahyu/propvest/internal/domain/tier"
)

// SharedPath is the public route prefix of a share link.
const SharedPath = "/shared/analysis/"

// DefaultLookupTimeout bounds the shared store read behind GetPublic.
const DefaultLookupTimeout = 5 * time.Second

// Service publishes read-only projections of analyses under unguessable ids.
type Service struct {
	Repo    domain.Repository
	Cache   domain.ShareCache
	BaseURL string
	Clock   application.Clock
	// LookupTimeout bounds the shared read on a cache miss; zero means
	// DefaultLookupTimeout.
	LookupTimeout time.Duration

	group singleflight.Group
}

// Share is the result of a publish.
type Share struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

// Publish enables anonymous reads. An analysis that already has a public id keeps
// it, so repeated calls return the same URL.
func (s *Service) Publish(ctx context.Context, p identity.Principal, id domain.ID) (*Share, error) {
	if !tier.Allows(p.Tier, tier.FeatureShareLink) {
		return nil, domain.Forbidden(domain.CodeShareNotAllowed, "sharing is not available on this plan")
	}
	a, err := s.find(ctx, p, id)
	if err != nil {
		return nil, err
	}
	now := application.Now(s.Clock)

	if a.PublicID != "" {
		if !a.IsPublic {
			if err := s.Repo.SetPublic(ctx, a.ID, true, now); err != nil {
				return nil, application.StoreError("republish analysis", err)
			}
			s.invalidate(ctx, a.PublicID)
		}
		return s.share(a.PublicID), nil
	}

	set, err := s.Repo.PublishAnalysis(ctx, a.ID, NewPublicID(), now)
	if err != nil {
		return nil, application.StoreError("publish analysis", err)
	}
	if !set {
		zap.L().Debug("publish raced, re-reading public id", zap.String("analysis_id", string(a.ID)))
	}
	// re-read so a concurrent winner's id is returned
	a, err = s.find(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if a.PublicID == "" {
		return nil, domain.Upstream(domain.CodeStoreFailure, "public id was not persisted", nil)
	}

	zap.L().Info("analysis published",
		zap.String("analysis_id", string(a.ID)),
		zap.String("user_id", p.UserID),
		zap.String("public_id", a.PublicID),
	)
	return s.share(a.PublicID), nil
}

// Unpublish disables anonymous reads. The public id stays reserved for a later
// publish.
func (s *Service) Unpublish(ctx context.Context, p identity.Principal, id domain.ID) error {
	a, err := s.find(ctx, p, id)
	if err != nil {
		return err
	}
	if !a.IsPublic {
		return nil
	}
	if err := s.Repo.SetPublic(ctx, a.ID, false, application.Now(s.Clock)); err != nil {
		return application.StoreError("unpublish analysis", err)
	}
	s.invalidate(ctx, a.PublicID)

	zap.L().Info("analysis unpublished",
		zap.String("analysis_id", string(a.ID)),
		zap.String("user_id", p.UserID),
	)
	return nil
}

// GetPublic serves the anonymous projection. Concurrent misses for one id share a
// single store read, which runs detached from any one caller so a reader that
// goes away does not fail the others.
func (s *Service) GetPublic(ctx context.Context, publicID string) (*domain.PublicView, error) {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return nil, domain.NotFound(domain.CodeShareNotFound, "shared analysis not found")
	}
	if s.Cache != nil {
		view, ok, err := s.Cache.Get(ctx, publicID)
		if err != nil {
			zap.L().Warn("share cache get failed", zap.String("public_id", publicID), zap.Error(err))
		} else if ok {
			return view, nil
		}
	}

	ch := s.group.DoChan(publicID, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.lookupTimeout())
		defer cancel()
		return s.loadPublic(lookupCtx, publicID)
	})
	select {
	case <-ctx.Done():
		return nil, application.StoreError("find shared analysis", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.PublicView), nil
	}
}

func (s *Service) loadPublic(ctx context.Context, publicID string) (*domain.PublicView, error) {
	a, err := s.Repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, application.StoreError("find shared analysis", err)
	}
	if a == nil || !a.Published() {
		return nil, domain.NotFound(domain.CodeShareNotFound, "shared analysis not found")
	}
	versions, err := s.Repo.ListVersions(ctx, a.ID)
	if err != nil {
		return nil, application.StoreError("list versions", err)
	}
	view := domain.Project(a, versions)
	if s.Cache != nil && s.unchanged(ctx, a) {
		if err := s.Cache.Set(ctx, publicID, view); err != nil {
			zap.L().Warn("share cache set failed", zap.String("public_id", publicID), zap.Error(err))
		}
	}
	return &view, nil
}

// unchanged re-reads the row before a cache fill; an unpublish or save that landed
// during the read means the view must not be cached.
func (s *Service) unchanged(ctx context.Context, read *domain.Analysis) bool {
	cur, err := s.Repo.FindByPublicID(ctx, read.PublicID)
	if err != nil || cur == nil {
		return false
	}
	if !cur.Published() || !cur.UpdatedAt.Equal(read.UpdatedAt) {
		zap.L().Debug("share changed during read, skipping cache fill", zap.String("public_id", read.PublicID))
		return false
	}
	return true
}

func (s *Service) lookupTimeout() time.Duration {
	if s.LookupTimeout > 0 {
		return s.LookupTimeout
	}
	return DefaultLookupTimeout
}

// URL builds the share link for publicID.
func (s *Service) URL(publicID string) string {
	return strings.TrimRight(s.BaseURL, "/") + SharedPath + publicID
}

func (s *Service) share(publicID string) *Share {
	return &Share{PublicID: publicID, URL: s.URL(publicID)}
}

func (s *Service) find(ctx context.Context, p identity.Principal, id domain.ID) (*domain.Analysis, error) {
	a, err := s.Repo.FindAnalysis(ctx, id, p.UserID)
	if err != nil {
		return nil, application.StoreError("find analysis", err)
	}
	if a == nil {
		return nil, domain.NotFound(domain.CodeAnalysisNotFound, fmt.Sprintf("analysis %s not found", id))
	}
	return a, nil
}

func (s *Service) invalidate(ctx context.Context, publicID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, publicID); err != nil {
		zap.L().Warn("share cache invalidate failed", zap.String("public_id", publicID), zap.Error(err))
	}
}

// NewPublicID encodes the 16 bytes of a v4 uuid as 22 url-safe characters.
func NewPublicID() string {
	u := uuid.New()
	return base64.RawURLEncoding.EncodeToString(u[:])
}
