package port

import (
	"context"
	"time"

	"github.com/abdulrahman-963/new-pluta/internal/domain/entity"
	"github.com/google/uuid"
)

type VideoRepository interface {
	Create(ctx context.Context, video *entity.Video) error
	// Update stores the lifecycle columns only if the persisted status is
	// still from. Otherwise it returns entity.ErrStatusConflict.
	Update(ctx context.Context, video *entity.Video, from entity.VideoStatus) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Video, error)
	ListByScope(ctx context.Context, scope entity.Scope, limit, offset int) ([]*entity.Video, error)
	FindStaleProcessing(ctx context.Context, startedBefore time.Time) ([]*entity.Video, error)
}

type FrameRepository interface {
	SaveBatch(ctx context.Context, frames []*entity.Frame) error
	ListByVideo(ctx context.Context, videoID uuid.UUID) ([]*entity.Frame, error)
}

// TableCatalog is read-only; the table CRUD lives elsewhere.
type TableCatalog interface {
	FindByCamera(ctx context.Context, scope entity.Scope, zoneID, cameraID int64) ([]entity.Table, error)
	FindByIDs(ctx context.Context, scope entity.Scope, ids []int64) (map[int64]entity.Table, error)
}
