package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/abdulrahman-963/new-pluta/internal/domain/entity"
	"github.com/abdulrahman-963/new-pluta/internal/domain/port"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UploadVideoInput struct {
	Scope       entity.Scope
	ZoneID      int64
	CameraID    int64
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadVideoUseCase validates and stores an upload, then queues its run.
//
// The returned video reads UPLOADED until a worker picks the message up;
// callers polling status right after upload will see that state for as long
// as the queue is backed up.
type UploadVideoUseCase struct {
	videos    port.VideoRepository
	storage   port.VideoStorage
	publisher port.RunPublisher
	logger    *zap.Logger
}

func NewUploadVideoUseCase(videos port.VideoRepository, storage port.VideoStorage, publisher port.RunPublisher, logger *zap.Logger) *UploadVideoUseCase {
	return &UploadVideoUseCase{videos: videos, storage: storage, publisher: publisher, logger: logger}
}

func (uc *UploadVideoUseCase) Execute(ctx context.Context, in UploadVideoInput) (*entity.Video, error) {
	if err := validateUpload(in); err != nil {
		return nil, err
	}

	fileName := storedFileName(in.FileName)
	video := entity.NewVideo(entity.NewVideoParams{
		Scope:            in.Scope,
		ZoneID:           in.ZoneID,
		CameraID:         in.CameraID,
		OriginalFileName: in.FileName,
		FileName:         fileName,
		FileSize:         in.Size,
		ContentType:      in.ContentType,
		StoragePath:      fmt.Sprintf("%d/%d/%s", in.Scope.TenantID, in.Scope.BranchID, fileName),
	})
	log := uc.logger.With(zap.String("video_id", video.ID.String()))

	if err := uc.storage.UploadVideo(ctx, video.StoragePath, in.Body, in.Size, in.ContentType); err != nil {
		return nil, fmt.Errorf("store video: %w", err)
	}

	if err := uc.videos.Create(ctx, video); err != nil {
		return nil, fmt.Errorf("create video: %w", err)
	}

	msg, err := json.Marshal(entity.VideoProcessingMessage{VideoID: video.ID, Scope: in.Scope})
	if err != nil {
		return nil, fmt.Errorf("marshal run message: %w", err)
	}

	if err := uc.publisher.PublishRun(ctx, msg); err != nil {
		log.Error("failed to enqueue run", zap.Error(err))
		video.MarkFailed("enqueue run: "+err.Error(), nil)
		if uerr := uc.videos.Update(context.WithoutCancel(ctx), video, entity.VideoStatusUploaded); uerr != nil {
			log.Error("failed to update video to FAILED", zap.Error(uerr))
		}
		return nil, fmt.Errorf("enqueue run: %w", err)
	}

	log.Info("video uploaded, run queued",
		zap.String("file_name", in.FileName),
		zap.Int64("size", in.Size),
	)
	return video, nil
}

func validateUpload(in UploadVideoInput) error {
	if err := in.Scope.Validate(); err != nil {
		return err
	}
	if in.ZoneID <= 0 || in.CameraID <= 0 {
		return fmt.Errorf("%w: zone=%d camera=%d", entity.ErrInvalidReference, in.ZoneID, in.CameraID)
	}
	if in.Size <= 0 || in.Body == nil {
		return entity.ErrEmptyUpload
	}
	if !strings.HasPrefix(strings.ToLower(in.ContentType), "video/") {
		return fmt.Errorf("%w: %q", entity.ErrUnsupportedContentType, in.ContentType)
	}
	return nil
}

// storedFileName prefixes the client's file name with a fresh id so two
// uploads of the same name never share an object key.
func storedFileName(original string) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "video"
	}
	return uuid.NewString() + "_" + base
}
