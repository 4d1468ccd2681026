package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	assert.Equal(t, Pro, Parse("pro"))
	assert.Equal(t, Elite, Parse(" ELITE "))
	assert.Equal(t, Free, Parse(""))
	assert.Equal(t, Free, Parse("platinum"))
}

func TestAtLeast(t *testing.T) {
	assert.True(t, Elite.AtLeast(Pro))
	assert.True(t, Pro.AtLeast(Pro))
	assert.False(t, Free.AtLeast(Pro))
	assert.False(t, Pro.AtLeast(Elite))
}

func TestAllows(t *testing.T) {
	tests := []struct {
		feature Feature
		free    bool
		pro     bool
		elite   bool
	}{
		{FeatureAIInsight, false, true, true},
		{FeatureExportPDF, true, true, true},
		{FeatureExportCSV, true, true, true},
		{FeatureBulkExport, false, true, true},
		{FeatureBulkExportUnlimited, false, false, true},
		{FeatureVersionHistoryWrite, false, true, true},
		{FeatureRestoreVersion, false, true, true},
		{FeatureDigestEmail, false, true, true},
		{FeatureShareLink, true, true, true},
		{Feature("teleport"), false, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.feature), func(t *testing.T) {
			assert.Equal(t, tt.free, Allows(Free, tt.feature))
			assert.Equal(t, tt.pro, Allows(Pro, tt.feature))
			assert.Equal(t, tt.elite, Allows(Elite, tt.feature))
		})
	}
}

func TestAllowsExport(t *testing.T) {
	tests := []struct {
		name   string
		tier   Tier
		format string
		n      int
		want   bool
	}{
		{"free single pdf", Free, "pdf", 1, true},
		{"free single csv", Free, "csv", 1, true},
		{"free bulk", Free, "pdf", 2, false},
		{"pro bulk at limit", Pro, "csv", 5, true},
		{"pro bulk over limit", Pro, "csv", 6, false},
		{"elite bulk unbounded", Elite, "pdf", 250, true},
		{"unknown format", Elite, "docx", 1, false},
		{"zero analyses", Elite, "pdf", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AllowsExport(tt.tier, tt.format, tt.n))
		})
	}
}

func TestCompareLimit(t *testing.T) {
	assert.Equal(t, 2, CompareLimit(Free))
	assert.Equal(t, 5, CompareLimit(Pro))
	assert.Equal(t, 0, CompareLimit(Elite))

	assert.True(t, AllowsCompare(Free, 2))
	assert.False(t, AllowsCompare(Free, 3))
	assert.False(t, AllowsCompare(Pro, 6))
	assert.True(t, AllowsCompare(Elite, 40))
	assert.False(t, AllowsCompare(Elite, 0))
}

func TestBulkExportLimit(t *testing.T) {
	assert.Equal(t, -1, BulkExportLimit(Free))
	assert.Equal(t, ProBulkExportLimit, BulkExportLimit(Pro))
	assert.Equal(t, 0, BulkExportLimit(Elite))
}
