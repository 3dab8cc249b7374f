package extraction

import (
	"context"
	"net/http"
	"time"

	"github.com/inkwell-app/inkwell/internal/core"
	"github.com/inkwell-app/inkwell/internal/models"
)

// Strategy converts one reference's raw content into plain text.
// Implementations must be safe for concurrent use; the dispatcher invokes
// them from multiple workers.
type Strategy interface {
	Extract(ctx context.Context, ref *models.Reference) (string, error)
}

// Policy carries the tunable extraction limits. The URL character cap and the
// caption length threshold were inherited as bare constants; keep them
// configurable rather than treating them as deliberate product decisions.
type Policy struct {
	Bucket          string
	MaxURLChars     int
	MinCaptionChars int
}

// DefaultHTTPClient is used by the strategies that fetch pages directly.
var DefaultHTTPClient = &http.Client{Timeout: 30 * time.Second}

const defaultUserAgent = "Mozilla/5.0 (compatible; Inkwell/1.0)"

// Registry maps job types to strategies.
type Registry struct {
	strategies map[string]Strategy
}

func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

func (r *Registry) Register(jobType string, s Strategy) {
	r.strategies[jobType] = s
}

// Get returns the strategy for jobType, or ErrUnsupportedJobType.
func (r *Registry) Get(jobType string) (Strategy, error) {
	s, ok := r.strategies[jobType]
	if !ok {
		return nil, core.ErrUnsupportedJobType
	}
	return s, nil
}

// DefaultRegistry wires one strategy per job type against the given backends.
func DefaultRegistry(obj core.ObjectClient, ai core.LLMProvider, pol Policy) *Registry {
	r := NewRegistry()
	r.Register(models.JobTypeTextParse, NewTextStrategy(obj, pol.Bucket))
	r.Register(models.JobTypePDFParse, NewDocumentStrategy(obj, ai, pol.Bucket, "application/pdf"))
	r.Register(models.JobTypeDocxParse, NewDocumentStrategy(obj, ai, pol.Bucket,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document"))
	r.Register(models.JobTypeImageParse, NewDocumentStrategy(obj, ai, pol.Bucket, "image/png"))
	r.Register(models.JobTypeAudioTranscribe, NewMediaStrategy(obj, ai, pol.Bucket, "audio/mpeg"))
	r.Register(models.JobTypeVideoTranscribe, NewMediaStrategy(obj, ai, pol.Bucket, "video/mp4"))
	r.Register(models.JobTypeYouTube, NewYouTubeStrategy(ai, DefaultHTTPClient, pol.MinCaptionChars))
	r.Register(models.JobTypeURLParse, NewURLStrategy(DefaultHTTPClient, pol.MaxURLChars))
	return r
}

// contentType prefers the reference's recorded content type over the
// strategy's default for its kind.
func contentType(ref *models.Reference, fallback string) string {
	if ct, ok := ref.Metadata["content_type"]; ok && ct != "" {
		return ct
	}
	return fallback
}
