package exports

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/propvest/internal/application"
	domain "github.com/bryanwahyu/propvest/internal/domain/analysis"
	"github.com/bryanwahyu/propvest/internal/domain/identity"
	"github.com/bryanwahyu/propvest/internal/domain/tier"
)

// Delivery modes
const (
	DeliverInline = "inline"
	DeliverLink   = "link"
)

// maxConcurrentLoads bounds parallel store reads of one export.
const maxConcurrentLoads = 8

// Renderer turns analyses into one artifact. Implementations do no authorization.
type Renderer interface {
	Format() string
	ContentType() string
	Extension() string
	Render(list []*domain.Analysis) ([]byte, error)
}

// Service is the ExportAnalysis entry point: gate, load, render, deliver.
type Service struct {
	Repo      domain.Repository
	Renderers map[string]Renderer
	Artifacts domain.ArtifactStore
	Clock     application.Clock
}

// NewService indexes renderers by their format.
func NewService(repo domain.Repository, artifacts domain.ArtifactStore, clock application.Clock, renderers ...Renderer) *Service {
	m := make(map[string]Renderer, len(renderers))
	for _, r := range renderers {
		m[r.Format()] = r
	}
	return &Service{Repo: repo, Renderers: m, Artifacts: artifacts, Clock: clock}
}

type ExportCommand struct {
	IDs     []domain.ID
	Format  string
	Deliver string
}

// Artifact is the rendered export. URL is set only for link delivery, in which
// case Body is left empty.
type Artifact struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"-"`
	URL         string `json:"url,omitempty"`
	Count       int    `json:"count"`
}

// Export checks input and the tier gate first, so a denied request never touches
// the store.
func (s *Service) Export(ctx context.Context, p identity.Principal, cmd ExportCommand) (*Artifact, error) {
	ids := application.UniqueIDs(cmd.IDs)
	if len(ids) == 0 {
		return nil, domain.Validation(domain.CodeNoAnalyses, "at least one analysis is required")
	}
	format := strings.ToLower(strings.TrimSpace(cmd.Format))
	r, ok := s.Renderers[format]
	if _, known := tier.ExportFeature(format); !ok || !known {
		return nil, domain.Validation(domain.CodeUnsupportedFormat, fmt.Sprintf("unsupported export format %q", cmd.Format))
	}
	deliver := strings.ToLower(strings.TrimSpace(cmd.Deliver))
	if deliver == "" {
		deliver = DeliverInline
	}
	if deliver != DeliverInline && deliver != DeliverLink {
		return nil, domain.Validation(domain.CodeInvalidInput, fmt.Sprintf("unknown delivery %q", cmd.Deliver))
	}
	if err := gate(p.Tier, format, len(ids)); err != nil {
		return nil, err
	}

	list, err := s.load(ctx, p, ids)
	if err != nil {
		return nil, err
	}
	body, err := r.Render(list)
	if err != nil {
		return nil, err
	}

	now := application.Now(s.Clock)
	art := &Artifact{
		Filename:    filename(list, now.Format("20060102"), r.Extension()),
		ContentType: r.ContentType(),
		Count:       len(list),
	}
	if deliver == DeliverLink {
		if s.Artifacts == nil {
			return nil, domain.Upstream(domain.CodeArtifactUploadFailed, "artifact storage is not configured", nil)
		}
		key := fmt.Sprintf("exports/%s/%s/%s", p.UserID, uuid.NewString(), art.Filename)
		url, err := s.Artifacts.Put(ctx, key, art.ContentType, body)
		if err != nil {
			return nil, domain.Upstream(domain.CodeArtifactUploadFailed, "uploading export failed", err)
		}
		art.URL = url
	} else {
		art.Body = body
	}

	zap.L().Info("analyses exported",
		zap.String("user_id", p.UserID),
		zap.String("format", format),
		zap.String("deliver", deliver),
		zap.Int("count", len(list)),
		zap.Int("bytes", len(body)),
	)
	return art, nil
}

func gate(t tier.Tier, format string, n int) error {
	if tier.AllowsExport(t, format, n) {
		return nil
	}
	if n > 1 && tier.BulkExportLimit(t) > 0 {
		return domain.Forbidden(domain.CodeBulkLimitExceeded,
			fmt.Sprintf("%s plan can export at most %d analyses at once", tier.Parse(string(t)), tier.BulkExportLimit(t)))
	}
	if n > 1 {
		return domain.Forbidden(domain.CodeExportNotAllowed, "bulk export requires a pro or elite plan")
	}
	return domain.Forbidden(domain.CodeExportNotAllowed, fmt.Sprintf("%s export is not available on this plan", format))
}

// load fetches every owned analysis concurrently, keeping the caller's order.
func (s *Service) load(ctx context.Context, p identity.Principal, ids []domain.ID) ([]*domain.Analysis, error) {
	out := make([]*domain.Analysis, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	for i, id := range ids {
		g.Go(func() error {
			a, err := s.Repo.FindAnalysis(gctx, id, p.UserID)
			if err != nil {
				return application.StoreError("load analysis", err)
			}
			if a == nil {
				return domain.NotFound(domain.CodeAnalysisNotFound, fmt.Sprintf("analysis %s not found", id))
			}
			out[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func filename(list []*domain.Analysis, date, ext string) string {
	if len(list) == 1 {
		slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(list[0].PropertyAddress), "-"), "-")
		if len(slug) > 48 {
			slug = strings.TrimRight(slug[:48], "-")
		}
		if slug == "" {
			slug = string(list[0].Type)
		}
		return fmt.Sprintf("analysis-%s-%s.%s", slug, date, ext)
	}
	return fmt.Sprintf("analyses-%d-%s.%s", len(list), date, ext)
}
