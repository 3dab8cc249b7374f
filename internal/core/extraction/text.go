package extraction

import (
	"context"
	"fmt"

	"github.com/inkwell-app/inkwell/internal/core"
	"github.com/inkwell-app/inkwell/internal/models"
)

// TextStrategy reads the stored bytes verbatim. No transformation: pasted
// text comes back exactly as the user entered it.
type TextStrategy struct {
	obj    core.ObjectClient
	bucket string
}

func NewTextStrategy(obj core.ObjectClient, bucket string) *TextStrategy {
	return &TextStrategy{obj: obj, bucket: bucket}
}

func (s *TextStrategy) Extract(ctx context.Context, ref *models.Reference) (string, error) {
	data, err := s.obj.GetFile(ctx, s.bucket, ref.StoragePath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrDownloadFailure, err)
	}
	return string(data), nil
}
