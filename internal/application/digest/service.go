package digest

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bryanwahyu/propvest/internal/application"
	"github.com/bryanwahyu/propvest/internal/domain/analysis"
	domain "github.com/bryanwahyu/propvest/internal/domain/digest"
	"github.com/bryanwahyu/propvest/internal/domain/identity"
	"github.com/bryanwahyu/propvest/internal/domain/tier"
)

// Service manages the preferences read by the external weekly digest job.
type Service struct {
	Repo  domain.Repository
	Clock application.Clock
}

// UpdateCommand replaces a user's preferences. An empty AnalysisTypes means all types.
type UpdateCommand struct {
	Enabled       bool
	DeliveryDay   string   `validate:"omitempty,oneof=monday wednesday friday"`
	AnalysisTypes []string `validate:"max=4,dive,oneof=mortgage rental wholesale airbnb"`
}

// Get returns stored preferences or the defaults when none were saved.
func (s *Service) Get(ctx context.Context, p identity.Principal) (*domain.Preferences, error) {
	prefs, err := s.Repo.Get(ctx, p.UserID)
	if err != nil {
		return nil, application.StoreError("get digest preferences", err)
	}
	if prefs == nil {
		d := domain.Default(p.UserID)
		return &d, nil
	}
	return prefs, nil
}

// Update stores new preferences. Turning the digest on requires digest_email;
// turning it off is always allowed.
func (s *Service) Update(ctx context.Context, p identity.Principal, cmd UpdateCommand) (*domain.Preferences, error) {
	cmd.DeliveryDay = strings.ToLower(strings.TrimSpace(cmd.DeliveryDay))
	for i, t := range cmd.AnalysisTypes {
		cmd.AnalysisTypes[i] = strings.ToLower(strings.TrimSpace(t))
	}
	if err := application.Validate(cmd); err != nil {
		return nil, err
	}
	if cmd.Enabled && !tier.Allows(p.Tier, tier.FeatureDigestEmail) {
		return nil, analysis.Forbidden(analysis.CodeDigestNotAllowed, "weekly digest requires a pro or elite plan")
	}

	prefs := domain.Default(p.UserID)
	prefs.Enabled = cmd.Enabled
	if cmd.DeliveryDay != "" {
		day, ok := domain.ParseDay(cmd.DeliveryDay)
		if !ok {
			return nil, analysis.Validation(analysis.CodeInvalidInput, fmt.Sprintf("unsupported delivery day %q", cmd.DeliveryDay))
		}
		prefs.DeliveryDay = day
	}
	if len(cmd.AnalysisTypes) > 0 {
		prefs.AnalysisTypes = prefs.AnalysisTypes[:0]
		seen := map[analysis.Type]bool{}
		for _, raw := range cmd.AnalysisTypes {
			t, _ := analysis.ParseType(raw)
			if !seen[t] {
				seen[t] = true
				prefs.AnalysisTypes = append(prefs.AnalysisTypes, t)
			}
		}
	}
	prefs.UpdatedAt = application.Now(s.Clock)

	if err := s.Repo.Upsert(ctx, &prefs); err != nil {
		return nil, application.StoreError("save digest preferences", err)
	}
	zap.L().Info("digest preferences updated",
		zap.String("user_id", p.UserID),
		zap.Bool("enabled", prefs.Enabled),
		zap.String("delivery_day", string(prefs.DeliveryDay)),
	)
	return &prefs, nil
}
