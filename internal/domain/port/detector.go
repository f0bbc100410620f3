package port

import (
	"context"

	"github.com/abdulrahman-963/new-pluta/internal/domain/entity"
)

type DetectionRequest struct {
	ImagePath  string
	OutputDir  string
	Thresholds entity.Thresholds
	CameraID   int64
	TableID    int64
	Polygon    []string
}

// DetectionEngine analyses one table zone of one image.
type DetectionEngine interface {
	Detect(ctx context.Context, req DetectionRequest) (*entity.DetectionResult, error)
}
