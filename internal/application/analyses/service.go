package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/propvest/internal/application"
	"github.com/bryanwahyu/propvest/internal/domain/ai"
	domain "github.com/bryanwahyu/propvest/internal/domain/analysis"
	"github.com/bryanwahyu/propvest/internal/domain/identity"
	"github.com/bryanwahyu/propvest/internal/domain/tier"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Service is the version controller: the only writer of Version rows and of the
// live data/notes/ai fields of an Analysis. It keeps no state between calls and is
// safe for concurrent use.
type Service struct {
	Store    domain.Store
	Cache    domain.ShareCache
	Insights ai.Generator
	Clock    application.Clock
}

//
// ==== COMMANDS ====
//

// CreateCommand is the input of the first save of an analysis.
type CreateCommand struct {
	Type            string `validate:"required,oneof=mortgage rental wholesale airbnb"`
	PropertyAddress string `validate:"required,max=512"`
	Data            domain.Payload
	Notes           string   `validate:"max=20000"`
	Tags            []string `validate:"max=50,dive,max=64"`
}

// SaveCommand updates an existing analysis. Nil pointers and a nil Tags slice keep
// the current value. Type, when set, must match the stored type.
type SaveCommand struct {
	Type      string
	Data      domain.Payload
	Notes     *string  `validate:"omitempty,max=20000"`
	AISummary *string  `validate:"omitempty,max=20000"`
	Tags      []string `validate:"omitempty,max=50,dive,max=64"`
}

// Comparison is one column of a side-by-side compare.
type Comparison struct {
	ID              domain.ID       `json:"id"`
	Type            domain.Type     `json:"type"`
	PropertyAddress string          `json:"property_address"`
	Metrics         []domain.Metric `json:"metrics"`
}

//
// ==== USE CASES ====
//

// Create inserts a new analysis owned by the caller together with its first Version.
func (s *Service) Create(ctx context.Context, p identity.Principal, cmd CreateCommand) (*domain.Analysis, error) {
	cmd.Type = strings.ToLower(strings.TrimSpace(cmd.Type))
	cmd.PropertyAddress = strings.TrimSpace(cmd.PropertyAddress)
	if err := application.Validate(cmd); err != nil {
		return nil, err
	}

	now := application.Now(s.Clock)
	a := &domain.Analysis{
		ID:              domain.ID(uuid.NewString()),
		UserID:          p.UserID,
		Type:            domain.Type(cmd.Type),
		PropertyAddress: cmd.PropertyAddress,
		Data:            cmd.Data.Clone(),
		Notes:           cmd.Notes,
		Tags:            domain.NormalizeTags(cmd.Tags),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	v := a.Snapshot(newVersionID(), now)

	err := s.Store.Tx(ctx, func(r domain.Repository) error {
		if err := r.InsertAnalysis(ctx, a); err != nil {
			return err
		}
		return r.InsertVersion(ctx, &v)
	})
	if err != nil {
		return nil, application.StoreError("create analysis", err)
	}
	a.Versions = []domain.Version{v}

	zap.L().Info("analysis created",
		zap.String("analysis_id", string(a.ID)),
		zap.String("user_id", p.UserID),
		zap.String("type", string(a.Type)),
	)
	return a, nil
}

// Save writes new live data. Tiers with version history append a Version; other
// tiers overwrite their single Version in place. The Version write always happens
// before the Analysis update, inside one transaction.
func (s *Service) Save(ctx context.Context, p identity.Principal, id domain.ID, cmd SaveCommand) (*domain.Analysis, error) {
	if cmd.Data == nil {
		return nil, domain.Validation(domain.CodeInvalidInput, "data is required")
	}
	if err := application.Validate(cmd); err != nil {
		return nil, err
	}

	a, err := s.find(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if cmd.Type != "" {
		t, ok := domain.ParseType(cmd.Type)
		if !ok {
			return nil, domain.Validation(domain.CodeInvalidType, fmt.Sprintf("unknown analysis type %q", cmd.Type))
		}
		if t != a.Type {
			return nil, domain.Validation(domain.CodeTypeImmutable,
				fmt.Sprintf("analysis type is %s and cannot change to %s", a.Type, t))
		}
	}

	now := application.Now(s.Clock)
	a.Data = cmd.Data.Clone()
	if cmd.Notes != nil {
		a.Notes = *cmd.Notes
	}
	if cmd.AISummary != nil {
		a.AISummary = *cmd.AISummary
	}
	if cmd.Tags != nil {
		a.Tags = domain.NormalizeTags(cmd.Tags)
	}
	a.UpdatedAt = now

	appendVersion := tier.Allows(p.Tier, tier.FeatureVersionHistoryWrite)
	err = s.Store.Tx(ctx, func(r domain.Repository) error {
		if appendVersion {
			v := a.Snapshot(newVersionID(), now)
			if err := r.InsertVersion(ctx, &v); err != nil {
				return err
			}
		} else if err := overwriteLatest(ctx, r, a, now); err != nil {
			return err
		}
		if err := r.UpdateAnalysis(ctx, a); err != nil {
			return err
		}
		versions, err := r.ListVersions(ctx, a.ID)
		if err != nil {
			return err
		}
		a.Versions = versions
		return nil
	})
	if err != nil {
		return nil, application.StoreError("save analysis", err)
	}
	s.invalidate(ctx, a)

	zap.L().Info("analysis saved",
		zap.String("analysis_id", string(a.ID)),
		zap.String("user_id", p.UserID),
		zap.Bool("append_version", appendVersion),
		zap.Int("versions", len(a.Versions)),
	)
	return a, nil
}

// overwriteLatest rewrites the snapshot fields of the newest Version. An analysis
// with no Version at all gets one, and history left over from a downgraded plan is
// collapsed into the newest Version, so exactly one remains.
func overwriteLatest(ctx context.Context, r domain.Repository, a *domain.Analysis, now time.Time) error {
	versions, err := r.ListVersions(ctx, a.ID)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		v := a.Snapshot(newVersionID(), now)
		return r.InsertVersion(ctx, &v)
	}
	v := versions[0]
	v.Data = a.Data.Clone()
	v.Notes = a.Notes
	v.AISummary = a.AISummary
	if len(versions) == 1 {
		return r.UpdateVersion(ctx, &v)
	}

	// riwayat lama dari plan pro dibuang, versi terbaru dipertahankan
	dropped, err := r.DeleteVersionsByAnalysis(ctx, a.ID)
	if err != nil {
		return err
	}
	zap.L().Info("collapsed version history after downgrade",
		zap.String("analysis_id", string(a.ID)),
		zap.Int64("dropped", dropped-1),
	)
	return r.InsertVersion(ctx, &v)
}

// Restore brings back the Version at index (0 = newest). The current state is
// first captured as a new Version so it is never lost.
func (s *Service) Restore(ctx context.Context, p identity.Principal, id domain.ID, index int) (*domain.Analysis, error) {
	if !tier.Allows(p.Tier, tier.FeatureRestoreVersion) {
		return nil, domain.Forbidden(domain.CodeRestoreNotAllowed, "restoring versions requires a pro or elite plan")
	}
	a, err := s.find(ctx, p, id)
	if err != nil {
		return nil, err
	}

	now := application.Now(s.Clock)
	// taken before the transaction so a retried attempt snapshots the same state
	pre := a.Snapshot(newVersionID(), now)
	pre.Notes = domain.RestoreNote

	err = s.Store.Tx(ctx, func(r domain.Repository) error {
		versions, err := r.ListVersions(ctx, a.ID)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(versions) {
			return domain.Validation(domain.CodeVersionIndexOutOfRange,
				fmt.Sprintf("version index %d out of range [0,%d)", index, len(versions)))
		}
		target := versions[index]

		snap := pre
		if err := r.InsertVersion(ctx, &snap); err != nil {
			return err
		}

		a.Data = target.Data.Clone()
		a.Notes = target.Notes
		a.UpdatedAt = now
		if err := r.UpdateAnalysis(ctx, a); err != nil {
			return err
		}

		versions, err = r.ListVersions(ctx, a.ID)
		if err != nil {
			return err
		}
		a.Versions = versions
		return nil
	})
	if err != nil {
		return nil, application.StoreError("restore version", err)
	}
	s.invalidate(ctx, a)

	zap.L().Info("analysis restored",
		zap.String("analysis_id", string(a.ID)),
		zap.String("user_id", p.UserID),
		zap.Int("version_index", index),
	)
	return a, nil
}

// Delete removes an analysis and every Version of it atomically.
func (s *Service) Delete(ctx context.Context, p identity.Principal, id domain.ID) error {
	a, err := s.find(ctx, p, id)
	if err != nil {
		return err
	}
	var removed int64
	err = s.Store.Tx(ctx, func(r domain.Repository) error {
		n, err := r.DeleteVersionsByAnalysis(ctx, a.ID)
		if err != nil {
			return err
		}
		removed = n
		return r.DeleteAnalysis(ctx, a.ID)
	})
	if err != nil {
		return application.StoreError("delete analysis", err)
	}
	s.invalidate(ctx, a)

	zap.L().Info("analysis deleted",
		zap.String("analysis_id", string(a.ID)),
		zap.String("user_id", p.UserID),
		zap.Int64("versions_removed", removed),
	)
	return nil
}

// BulkDelete deletes the owned subset of ids and returns how many were removed.
// Ids the caller does not own are ignored.
func (s *Service) BulkDelete(ctx context.Context, p identity.Principal, ids []domain.ID) (int, error) {
	ids = application.UniqueIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	owned, err := s.Store.OwnedAnalyses(ctx, p.UserID, ids)
	if err != nil {
		return 0, application.StoreError("bulk delete", err)
	}
	if len(owned) == 0 {
		return 0, nil
	}
	err = s.Store.Tx(ctx, func(r domain.Repository) error {
		for _, a := range owned {
			if _, err := r.DeleteVersionsByAnalysis(ctx, a.ID); err != nil {
				return err
			}
			if err := r.DeleteAnalysis(ctx, a.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, application.StoreError("bulk delete", err)
	}
	for _, a := range owned {
		s.invalidate(ctx, a)
	}

	zap.L().Info("analyses bulk deleted",
		zap.String("user_id", p.UserID),
		zap.Int("requested", len(ids)),
		zap.Int("deleted", len(owned)),
	)
	return len(owned), nil
}

// Get returns one owned analysis with its full version history, newest first.
func (s *Service) Get(ctx context.Context, p identity.Principal, id domain.ID) (*domain.Analysis, error) {
	a, err := s.find(ctx, p, id)
	if err != nil {
		return nil, err
	}
	versions, err := s.Store.ListVersions(ctx, a.ID)
	if err != nil {
		return nil, application.StoreError("list versions", err)
	}
	a.Versions = versions
	return a, nil
}

// List returns the caller's analyses, newest first, without version history.
func (s *Service) List(ctx context.Context, p identity.Principal, f domain.ListFilter) ([]*domain.Analysis, error) {
	if f.Type != "" {
		t, ok := domain.ParseType(string(f.Type))
		if !ok {
			return nil, domain.Validation(domain.CodeInvalidType, fmt.Sprintf("unknown analysis type %q", f.Type))
		}
		f.Type = t
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	list, err := s.Store.ListAnalyses(ctx, p.UserID, f)
	if err != nil {
		return nil, application.StoreError("list analyses", err)
	}
	return list, nil
}

// Compare lines up the key metrics of several analyses. The number of columns is
// bounded per tier.
func (s *Service) Compare(ctx context.Context, p identity.Principal, ids []domain.ID) ([]Comparison, error) {
	ids = application.UniqueIDs(ids)
	if len(ids) == 0 {
		return nil, domain.Validation(domain.CodeNoAnalyses, "at least one analysis is required")
	}
	if !tier.AllowsCompare(p.Tier, len(ids)) {
		return nil, domain.Forbidden(domain.CodeCompareLimitExceeded,
			fmt.Sprintf("%s plan can compare at most %d analyses", tier.Parse(string(p.Tier)), tier.CompareLimit(p.Tier)))
	}
	out := make([]Comparison, 0, len(ids))
	for _, id := range ids {
		a, err := s.find(ctx, p, id)
		if err != nil {
			return nil, err
		}
		out = append(out, Comparison{
			ID:              a.ID,
			Type:            a.Type,
			PropertyAddress: a.PropertyAddress,
			Metrics:         a.Metrics(),
		})
	}
	return out, nil
}

// GenerateInsight asks the AI generator for commentary and stores it on the live
// analysis. A generator failure leaves the record untouched.
func (s *Service) GenerateInsight(ctx context.Context, p identity.Principal, id domain.ID) (*domain.Analysis, error) {
	if !tier.Allows(p.Tier, tier.FeatureAIInsight) {
		return nil, domain.Forbidden(domain.CodeAIInsightNotAllowed, "AI insights require a pro or elite plan")
	}
	a, err := s.find(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if s.Insights == nil {
		return nil, domain.Upstream(domain.CodeAIFailure, "AI insights are not configured", nil)
	}

	ins, err := s.Insights.Generate(ctx, ai.InsightRequest{
		Type:    a.Type,
		Address: a.PropertyAddress,
		Metrics: a.Metrics(),
		Notes:   a.Notes,
	})
	if err != nil {
		zap.L().Warn("ai insight failed",
			zap.String("analysis_id", string(a.ID)),
			zap.Error(err),
		)
		if errors.Is(err, ai.ErrQuotaExceeded) {
			return nil, domain.Upstream(domain.CodeAIQuotaExceeded, "AI provider quota exceeded", err)
		}
		return nil, domain.Upstream(domain.CodeAIFailure, "AI insight generation failed", err)
	}

	now := application.Now(s.Clock)
	if err := s.Store.UpdateInsight(ctx, a.ID, ins.Summary, ins.Insights, now); err != nil {
		return nil, application.StoreError("store insight", err)
	}
	a.AISummary = ins.Summary
	a.AIInsights = ins.Insights
	a.UpdatedAt = now

	versions, err := s.Store.ListVersions(ctx, a.ID)
	if err != nil {
		return nil, application.StoreError("list versions", err)
	}
	a.Versions = versions
	return a, nil
}

//
// ==== HELPERS ====
//

func (s *Service) find(ctx context.Context, p identity.Principal, id domain.ID) (*domain.Analysis, error) {
	if strings.TrimSpace(string(id)) == "" {
		return nil, domain.Validation(domain.CodeInvalidInput, "analysis id is required")
	}
	a, err := s.Store.FindAnalysis(ctx, id, p.UserID)
	if err != nil {
		return nil, application.StoreError("find analysis", err)
	}
	if a == nil {
		return nil, domain.NotFound(domain.CodeAnalysisNotFound, fmt.Sprintf("analysis %s not found", id))
	}
	return a, nil
}

// invalidate drops the cached public view of a published analysis. Failures are
// logged; the stale entry still expires with the cache TTL.
func (s *Service) invalidate(ctx context.Context, a *domain.Analysis) {
	if s.Cache == nil || a.PublicID == "" {
		return
	}
	if err := s.Cache.Invalidate(ctx, a.PublicID); err != nil {
		zap.L().Warn("share cache invalidate failed",
			zap.String("public_id", a.PublicID),
			zap.Error(err),
		)
	}
}

func newVersionID() domain.VersionID {
	return domain.VersionID(uuid.NewString())
}
