package usecase

import (
	"context"
	"fmt"

	"github.com/abdulrahman-963/new-pluta/internal/domain/entity"
	"github.com/abdulrahman-963/new-pluta/internal/domain/port"
	"github.com/google/uuid"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// QueryVideoUseCase serves the read side: status polling, details, listing
// and frame results. Every lookup is confined to the caller's scope.
type QueryVideoUseCase struct {
	videos port.VideoRepository
	frames port.FrameRepository
}

func NewQueryVideoUseCase(videos port.VideoRepository, frames port.FrameRepository) *QueryVideoUseCase {
	return &QueryVideoUseCase{videos: videos, frames: frames}
}

// Get returns the video, or ErrVideoNotFound when it belongs to another scope.
func (uc *QueryVideoUseCase) Get(ctx context.Context, scope entity.Scope, id uuid.UUID) (*entity.Video, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	video, err := uc.videos.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if video.Scope() != scope {
		return nil, fmt.Errorf("find video %s: %w", id, entity.ErrVideoNotFound)
	}
	return video, nil
}

func (uc *QueryVideoUseCase) Status(ctx context.Context, scope entity.Scope, id uuid.UUID) (entity.VideoStatus, error) {
	video, err := uc.Get(ctx, scope, id)
	if err != nil {
		return "", err
	}
	return video.Status, nil
}

func (uc *QueryVideoUseCase) List(ctx context.Context, scope entity.Scope, limit, offset int) ([]*entity.Video, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return uc.videos.ListByScope(ctx, scope, limit, offset)
}

func (uc *QueryVideoUseCase) Frames(ctx context.Context, scope entity.Scope, id uuid.UUID) ([]*entity.Frame, error) {
	if _, err := uc.Get(ctx, scope, id); err != nil {
		return nil, err
	}
	return uc.frames.ListByVideo(ctx, id)
}
