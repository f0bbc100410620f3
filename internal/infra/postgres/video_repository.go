package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdulrahman-963/new-pluta/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const videoColumns = `
	id, tenant_id, branch_id, zone_id, camera_id, original_file_name,
	file_name, file_size, content_type, storage_path, status, duration,
	frames_extracted, processing_started_at, processing_completed_at,
	error_message, created_at, updated_at`

type VideoRepository struct {
	pool *pgxpool.Pool
}

func NewVideoRepository(pool *pgxpool.Pool) *VideoRepository {
	return &VideoRepository{pool: pool}
}

func (r *VideoRepository) Create(ctx context.Context, v *entity.Video) error {
	query := `INSERT INTO videos (` + videoColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`

	_, err := r.pool.Exec(ctx, query,
		v.ID, v.TenantID, v.BranchID, v.ZoneID, v.CameraID, v.OriginalFileName,
		v.FileName, v.FileSize, v.ContentType, v.StoragePath, string(v.Status), v.Duration,
		v.FramesExtracted, v.ProcessingStartedAt, v.ProcessingCompletedAt,
		v.ErrorMessage, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

// Update writes the lifecycle columns only; identity and file metadata are
// fixed at upload time. The row must still be in status from.
func (r *VideoRepository) Update(ctx context.Context, v *entity.Video, from entity.VideoStatus) error {
	query := `
		UPDATE videos SET
			status=$2, duration=$3, frames_extracted=$4, processing_started_at=$5,
			processing_completed_at=$6, error_message=$7, updated_at=$8
		WHERE id=$1 AND status=$9`

	tag, err := r.pool.Exec(ctx, query,
		v.ID, string(v.Status), v.Duration, v.FramesExtracted, v.ProcessingStartedAt,
		v.ProcessingCompletedAt, v.ErrorMessage, v.UpdatedAt, string(from),
	)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM videos WHERE id=$1)`, v.ID).Scan(&exists); err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	if !exists {
		return fmt.Errorf("update video %s: %w", v.ID, entity.ErrVideoNotFound)
	}
	return fmt.Errorf("update video %s from %s: %w", v.ID, from, entity.ErrStatusConflict)
}

func (r *VideoRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id=$1`

	v, err := scanVideo(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("find video %s: %w", id, entity.ErrVideoNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find video by id: %w", err)
	}
	return v, nil
}

func (r *VideoRepository) ListByScope(ctx context.Context, scope entity.Scope, limit, offset int) ([]*entity.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos
		WHERE tenant_id=$1 AND branch_id=$2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	return r.queryVideos(ctx, query, scope.TenantID, scope.BranchID, limit, offset)
}

func (r *VideoRepository) FindStaleProcessing(ctx context.Context, startedBefore time.Time) ([]*entity.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos
		WHERE status=$1 AND processing_started_at < $2
		ORDER BY processing_started_at`

	return r.queryVideos(ctx, query, string(entity.VideoStatusProcessing), startedBefore)
}

func (r *VideoRepository) queryVideos(ctx context.Context, query string, args ...any) ([]*entity.Video, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	var videos []*entity.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func scanVideo(row pgx.Row) (*entity.Video, error) {
	v := &entity.Video{}
	var status string
	err := row.Scan(
		&v.ID, &v.TenantID, &v.BranchID, &v.ZoneID, &v.CameraID, &v.OriginalFileName,
		&v.FileName, &v.FileSize, &v.ContentType, &v.StoragePath, &status, &v.Duration,
		&v.FramesExtracted, &v.ProcessingStartedAt, &v.ProcessingCompletedAt,
		&v.ErrorMessage, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.Status = entity.VideoStatus(status)
	return v, nil
}
