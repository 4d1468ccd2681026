package analysis

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	got, ok := ParseType(" Rental ")
	require.True(t, ok)
	assert.Equal(t, TypeRental, got)

	_, ok = ParseType("condo")
	assert.False(t, ok)
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"flip", "austin"}, NormalizeTags([]string{" flip", "austin", "", "flip"}))
	assert.Empty(t, NormalizeTags(nil))
}

func TestSnapshotDoesNotAliasData(t *testing.T) {
	a := &Analysis{ID: "a1", Data: Payload{"price": 300000.0}, Notes: "n", AISummary: "s"}
	v := a.Snapshot("v1", time.Unix(0, 0))
	a.Data["price"] = 1.0

	assert.Equal(t, 300000.0, v.Data["price"])
	assert.Equal(t, ID("a1"), v.AnalysisID)
	assert.Equal(t, "n", v.Notes)
	assert.Equal(t, "s", v.AISummary)
}

func TestProjectOmitsPrivateFields(t *testing.T) {
	created := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	a := &Analysis{
		ID: "a1", UserID: "u1", Type: TypeAirbnb, PropertyAddress: "1 Main St",
		Data: Payload{"nightlyRate": 120.0}, Notes: "secret", CreatedAt: created,
	}
	versions := []Version{
		{ID: "v2", CreatedAt: created.Add(time.Hour), Data: Payload{"nightlyRate": 120.0}, Notes: "secret"},
		{ID: "v1", CreatedAt: created, Data: Payload{"nightlyRate": 99.0}},
	}

	view := Project(a, versions)
	assert.Equal(t, TypeAirbnb, view.Type)
	assert.Equal(t, "1 Main St", view.PropertyAddress)
	require.NotNil(t, view.LatestVersion)
	assert.Equal(t, 120.0, view.LatestVersion.Data["nightlyRate"])
	assert.Equal(t, created.Add(time.Hour), view.LatestVersion.CreatedAt)

	assert.Nil(t, Project(a, nil).LatestVersion)
}

func TestMetricsRenderNA(t *testing.T) {
	a := &Analysis{Type: TypeMortgage, Data: Payload{"monthlyPayment": 1432.256, "roi": nil}}
	assert.Equal(t, []Metric{
		{Name: "monthlyPayment", Value: "1432.26"},
		{Name: "totalCost", Value: NotAvailable},
		{Name: "roi", Value: NotAvailable},
	}, a.Metrics())
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, NotAvailable, FormatValue(nil))
	assert.Equal(t, NotAvailable, FormatValue("undefined"))
	assert.Equal(t, NotAvailable, FormatValue(math.NaN()))
	assert.Equal(t, NotAvailable, FormatValue(map[string]any{"x": 1}))
	assert.Equal(t, "7", FormatValue(7))
	assert.Equal(t, "0.08", FormatValue(0.0751))
	assert.Equal(t, "Austin", FormatValue("Austin"))
}

func TestMetricColumns(t *testing.T) {
	cols := MetricColumns([]Type{TypeRental, TypeMortgage, TypeRental})
	assert.Equal(t, []string{"monthlyPayment", "totalCost", "roi", "monthlyCashFlow", "capRate", "annualCashFlow"}, cols)
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("save: %w", Forbidden(CodeRestoreNotAllowed, "restore requires pro"))

	assert.Equal(t, KindForbidden, KindOf(err))
	assert.Equal(t, CodeRestoreNotAllowed, CodeOf(err))
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.True(t, errors.Is(err, &Error{Kind: KindForbidden, Code: CodeRestoreNotAllowed}))
	assert.False(t, errors.Is(err, ErrNotFound))

	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, "", CodeOf(errors.New("boom")))

	cause := errors.New("connection reset")
	up := Upstream(CodeStoreFailure, "store unavailable", cause)
	assert.True(t, errors.Is(up, cause))
	assert.Contains(t, up.Error(), "connection reset")
}
