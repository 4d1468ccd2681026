package digest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/propvest/internal/domain/analysis"
	domain "github.com/bryanwahyu/propvest/internal/domain/digest"
	"github.com/bryanwahyu/propvest/internal/domain/identity"
	"github.com/bryanwahyu/propvest/internal/domain/tier"
	"github.com/bryanwahyu/propvest/internal/infra/db/memory"
)

func TestGetDefaults(t *testing.T) {
	svc := &Service{Repo: memory.NewDigestRepository()}

	got, err := svc.Get(context.Background(), identity.Principal{UserID: "u1"})
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	assert.Equal(t, domain.Monday, got.DeliveryDay)
	assert.Equal(t, analysis.Types, got.AnalysisTypes)
}

func TestUpdate(t *testing.T) {
	svc := &Service{Repo: memory.NewDigestRepository()}
	ctx := context.Background()
	pro := identity.Principal{UserID: "u1", Tier: tier.Pro}

	_, err := svc.Update(ctx, pro, UpdateCommand{
		Enabled:       true,
		DeliveryDay:   "friday",
		AnalysisTypes: []string{"rental", "airbnb", "rental"},
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, pro)
	require.NoError(t, err)
	assert.True(t, got.Enabled)
	assert.Equal(t, domain.Friday, got.DeliveryDay)
	assert.Equal(t, []analysis.Type{analysis.TypeRental, analysis.TypeAirbnb}, got.AnalysisTypes)
}

func TestUpdateFreeTier(t *testing.T) {
	svc := &Service{Repo: memory.NewDigestRepository()}
	ctx := context.Background()
	free := identity.Principal{UserID: "u1", Tier: tier.Free}

	_, err := svc.Update(ctx, free, UpdateCommand{Enabled: true})
	assert.ErrorIs(t, err, analysis.ErrForbidden)
	assert.Equal(t, analysis.CodeDigestNotAllowed, analysis.CodeOf(err))

	got, err := svc.Update(ctx, free, UpdateCommand{Enabled: false, DeliveryDay: "wednesday"})
	require.NoError(t, err)
	assert.Equal(t, domain.Wednesday, got.DeliveryDay)
}

func TestUpdateValidation(t *testing.T) {
	svc := &Service{Repo: memory.NewDigestRepository()}
	pro := identity.Principal{UserID: "u1", Tier: tier.Elite}

	_, err := svc.Update(context.Background(), pro, UpdateCommand{DeliveryDay: "sunday"})
	assert.ErrorIs(t, err, analysis.ErrValidation)

	_, err = svc.Update(context.Background(), pro, UpdateCommand{AnalysisTypes: []string{"condo"}})
	assert.ErrorIs(t, err, analysis.ErrValidation)
}
