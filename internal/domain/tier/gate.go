package tier

// Feature is a capability that can be granted or denied per tier.
type Feature string

const (
	FeatureAIInsight           Feature = "ai_insight"
	FeatureExportPDF           Feature = "export_pdf"
	FeatureExportCSV           Feature = "export_csv"
	FeatureExportXLSX          Feature = "export_xlsx"
	FeatureBulkExport          Feature = "bulk_export"
	FeatureBulkExportUnlimited Feature = "bulk_export_unlimited"
	FeatureVersionHistoryWrite Feature = "version_history_write"
	FeatureRestoreVersion      Feature = "restore_version"
	FeatureDigestEmail         Feature = "digest_email"
	FeatureShareLink           Feature = "share_link"
	FeatureCompare             Feature = "compare"
)

// ProBulkExportLimit is the largest batch a pro user can export at once.
const ProBulkExportLimit = 5

// minimum tier per feature; features missing here are denied
var minimum = map[Feature]Tier{
	FeatureAIInsight:           Pro,
	FeatureExportPDF:           Free,
	FeatureExportCSV:           Free,
	FeatureExportXLSX:          Free,
	FeatureBulkExport:          Pro,
	FeatureBulkExportUnlimited: Elite,
	FeatureVersionHistoryWrite: Pro,
	FeatureRestoreVersion:      Pro,
	FeatureDigestEmail:         Pro,
	FeatureShareLink:           Free,
	FeatureCompare:             Free,
}

var compareLimits = map[Tier]int{
	Free:  2,
	Pro:   5,
	Elite: 0,
}

// Allows is the single tier gate. It has no side effects.
func Allows(t Tier, f Feature) bool {
	need, ok := minimum[f]
	if !ok {
		return false
	}
	return Parse(string(t)).AtLeast(need)
}

// ExportFeature returns the feature that guards a single export in the given format.
// ok is false for unknown formats.
func ExportFeature(format string) (Feature, bool) {
	switch format {
	case "pdf":
		return FeatureExportPDF, true
	case "csv":
		return FeatureExportCSV, true
	case "xlsx":
		return FeatureExportXLSX, true
	}
	return "", false
}

// AllowsExport decides whether n analyses may be exported in format.
// A single analysis only needs the format feature; batches need bulk_export and,
// above ProBulkExportLimit, bulk_export_unlimited.
func AllowsExport(t Tier, format string, n int) bool {
	f, ok := ExportFeature(format)
	if !ok || n <= 0 || !Allows(t, f) {
		return false
	}
	if n == 1 {
		return true
	}
	if !Allows(t, FeatureBulkExport) {
		return false
	}
	if n <= ProBulkExportLimit {
		return true
	}
	return Allows(t, FeatureBulkExportUnlimited)
}

// BulkExportLimit returns the max batch size for bulk export. 0 means unbounded,
// -1 means bulk export is not available.
func BulkExportLimit(t Tier) int {
	switch {
	case Allows(t, FeatureBulkExportUnlimited):
		return 0
	case Allows(t, FeatureBulkExport):
		return ProBulkExportLimit
	}
	return -1
}

// CompareLimit returns the max number of analyses comparable side by side.
// 0 means unbounded.
func CompareLimit(t Tier) int {
	return compareLimits[Parse(string(t))]
}

// AllowsCompare reports whether n analyses can be compared at tier t.
func AllowsCompare(t Tier, n int) bool {
	if n <= 0 || !Allows(t, FeatureCompare) {
		return false
	}
	limit := CompareLimit(t)
	return limit == 0 || n <= limit
}
