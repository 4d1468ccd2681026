package analysis

import (
	"strings"
	"time"
)

// ID tipe untuk Analysis
type ID string

// VersionID identifies a single snapshot row
type VersionID string

// Type enum, immutable after creation
type Type string

const (
	TypeMortgage  Type = "mortgage"
	TypeRental    Type = "rental"
	TypeWholesale Type = "wholesale"
	TypeAirbnb    Type = "airbnb"
)

// Types lists every calculator type in display order.
var Types = []Type{TypeMortgage, TypeRental, TypeWholesale, TypeAirbnb}

// ParseType normalizes s and reports whether it names a known type.
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Types {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// RestoreNote is stored on the snapshot taken right before a restore.
const RestoreNote = "Auto-saved before restore"

// Payload holds the calculator inputs and derived outputs for one Type.
type Payload map[string]any

// Clone returns a shallow copy so snapshots never alias live data.
func (p Payload) Clone() Payload {
	if p == nil {
		return Payload{}
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Aggregate Root: Analysis
type Analysis struct {
	ID              ID        `json:"id"`
	UserID          string    `json:"user_id"`
	Type            Type      `json:"type"`
	PropertyAddress string    `json:"property_address"`
	Data            Payload   `json:"data"`
	Notes           string    `json:"notes,omitempty"`
	Tags            []string  `json:"tags"`
	AISummary       string    `json:"ai_summary,omitempty"`
	AIInsights      []string  `json:"ai_insights,omitempty"`
	PublicID        string    `json:"public_id,omitempty"`
	IsPublic        bool      `json:"is_public"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Versions        []Version `json:"versions,omitempty"`
}

// Version is an immutable snapshot of an Analysis payload. It only references its
// Analysis, it never owns it.
type Version struct {
	ID         VersionID `json:"id"`
	AnalysisID ID        `json:"analysis_id"`
	CreatedAt  time.Time `json:"created_at"`
	Data       Payload   `json:"data"`
	Notes      string    `json:"notes,omitempty"`
	AISummary  string    `json:"ai_summary,omitempty"`
}

// Snapshot captures the live fields of a as a new Version.
func (a *Analysis) Snapshot(id VersionID, at time.Time) Version {
	return Version{
		ID:         id,
		AnalysisID: a.ID,
		CreatedAt:  at,
		Data:       a.Data.Clone(),
		Notes:      a.Notes,
		AISummary:  a.AISummary,
	}
}

// Published reports whether anonymous reads are enabled.
func (a *Analysis) Published() bool {
	return a.IsPublic && a.PublicID != ""
}

// NormalizeTags trims, drops empties and de-duplicates tags. Order is irrelevant
// but kept stable for output.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// PublicView is the read-only projection served for a share link.
type PublicView struct {
	Type            Type           `json:"type"`
	Data            Payload        `json:"data"`
	PropertyAddress string         `json:"property_address"`
	CreatedAt       time.Time      `json:"created_at"`
	LatestVersion   *PublicVersion `json:"latest_version,omitempty"`
}

// PublicVersion exposes the newest snapshot without owner-only fields.
type PublicVersion struct {
	CreatedAt time.Time `json:"created_at"`
	Data      Payload   `json:"data"`
}

// Project builds the public view of a. versions must be ordered newest first.
func Project(a *Analysis, versions []Version) PublicView {
	v := PublicView{
		Type:            a.Type,
		Data:            a.Data.Clone(),
		PropertyAddress: a.PropertyAddress,
		CreatedAt:       a.CreatedAt,
	}
	if len(versions) > 0 {
		v.LatestVersion = &PublicVersion{
			CreatedAt: versions[0].CreatedAt,
			Data:      versions[0].Data.Clone(),
		}
	}
	return v
}

// ListFilter narrows ListAnalyses results.
type ListFilter struct {
	Type   Type
	Tag    string
	Limit  int
	Offset int
}
