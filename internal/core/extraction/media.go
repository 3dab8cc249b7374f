package extraction

import (
	"context"
	"fmt"
	"io"

	"github.com/inkwell-app/inkwell/internal/core"
	"github.com/inkwell-app/inkwell/internal/models"
)

// MediaStrategy transcribes audio and video blobs through the multimodal
// model. The download and the inference call run sequentially; there is
// nothing to parallelize within one job.
type MediaStrategy struct {
	obj      core.ObjectClient
	ai       core.LLMProvider
	bucket   string
	mimeType string
}

func NewMediaStrategy(obj core.ObjectClient, ai core.LLMProvider, bucket, mimeType string) *MediaStrategy {
	return &MediaStrategy{obj: obj, ai: ai, bucket: bucket, mimeType: mimeType}
}

func (s *MediaStrategy) Extract(ctx context.Context, ref *models.Reference) (string, error) {
	// Media blobs are the largest thing we store; read them through the
	// object reader instead of the whole-object getter.
	rc, err := s.obj.GetObjectReader(ctx, s.bucket, ref.StoragePath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrDownloadFailure, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrDownloadFailure, err)
	}

	text, err := s.ai.GenerateWithBlob(ctx, transcribePrompt, contentType(ref, s.mimeType), data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrProviderFailure, err)
	}
	if text == "" {
		return "", fmt.Errorf("%w: model returned no transcript for %q", core.ErrProviderFailure, ref.Name)
	}
	return text, nil
}
