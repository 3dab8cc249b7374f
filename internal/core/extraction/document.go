package extraction

import (
	"context"
	"fmt"

	"github.com/inkwell-app/inkwell/internal/core"
	"github.com/inkwell-app/inkwell/internal/models"
)

// DocumentStrategy handles binary documents (PDF, DOCX, images): download the
// blob and pass it inline to the vision model with the structured extraction
// instruction. An empty or blocked model reply is a failure, never a degraded
// success.
type DocumentStrategy struct {
	obj      core.ObjectClient
	ai       core.LLMProvider
	bucket   string
	mimeType string
}

func NewDocumentStrategy(obj core.ObjectClient, ai core.LLMProvider, bucket, mimeType string) *DocumentStrategy {
	return &DocumentStrategy{obj: obj, ai: ai, bucket: bucket, mimeType: mimeType}
}

func (s *DocumentStrategy) Extract(ctx context.Context, ref *models.Reference) (string, error) {
	data, err := s.obj.GetFile(ctx, s.bucket, ref.StoragePath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrDownloadFailure, err)
	}

	text, err := s.ai.GenerateWithBlob(ctx, documentPrompt, contentType(ref, s.mimeType), data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrProviderFailure, err)
	}
	if text == "" {
		return "", fmt.Errorf("%w: model returned no text for %q", core.ErrProviderFailure, ref.Name)
	}
	return text, nil
}
