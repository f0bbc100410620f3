package postgres

import (
	"context"
	"fmt"

	"github.com/abdulrahman-963/new-pluta/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const frameColumns = `
	id, video_id, stream_id, tenant_id, branch_id, table_id, frame_offset_seconds,
	resolution, tables_detected, chairs_detected, benches_detected, couches_detected,
	persons_detected, occupied_chairs, unoccupied_chairs, occupied_benches,
	unoccupied_benches, occupied_couches, unoccupied_couches, persons_sitting,
	total_detected, annotated_image_path, confidence_threshold, status,
	error_message, created_at`

type FrameRepository struct {
	pool *pgxpool.Pool
}

func NewFrameRepository(pool *pgxpool.Pool) *FrameRepository {
	return &FrameRepository{pool: pool}
}

// SaveBatch inserts all frames in one transaction using a pgx batch.
func (r *FrameRepository) SaveBatch(ctx context.Context, frames []*entity.Frame) error {
	if len(frames) == 0 {
		return nil
	}

	query := `INSERT INTO frames (` + frameColumns + `) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
		$21,$22,$23,$24,$25,$26)`

	batch := &pgx.Batch{}
	for _, f := range frames {
		c := f.Counts
		batch.Queue(query,
			f.ID, f.VideoID, f.StreamID, f.TenantID, f.BranchID, f.TableID, f.FrameOffsetSeconds,
			f.Resolution, c.TablesDetected, c.ChairsDetected, c.BenchesDetected, c.CouchesDetected,
			c.PersonsDetected, c.OccupiedChairs, c.UnoccupiedChairs, c.OccupiedBenches,
			c.UnoccupiedBenches, c.OccupiedCouches, c.UnoccupiedCouches, c.PersonsSitting,
			c.TotalDetected, f.AnnotatedImagePath, f.ConfidenceThreshold, string(f.Status),
			f.ErrorMessage, f.CreatedAt,
		)
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("insert %d frames: %w", len(frames), err)
	}
	return nil
}

func (r *FrameRepository) ListByVideo(ctx context.Context, videoID uuid.UUID) ([]*entity.Frame, error) {
	query := `SELECT ` + frameColumns + ` FROM frames
		WHERE video_id=$1
		ORDER BY frame_offset_seconds, table_id NULLS LAST`

	rows, err := r.pool.Query(ctx, query, videoID)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var frames []*entity.Frame
	for rows.Next() {
		f := &entity.Frame{}
		c := &f.Counts
		var status string
		err := rows.Scan(
			&f.ID, &f.VideoID, &f.StreamID, &f.TenantID, &f.BranchID, &f.TableID, &f.FrameOffsetSeconds,
			&f.Resolution, &c.TablesDetected, &c.ChairsDetected, &c.BenchesDetected, &c.CouchesDetected,
			&c.PersonsDetected, &c.OccupiedChairs, &c.UnoccupiedChairs, &c.OccupiedBenches,
			&c.UnoccupiedBenches, &c.OccupiedCouches, &c.UnoccupiedCouches, &c.PersonsSitting,
			&c.TotalDetected, &f.AnnotatedImagePath, &f.ConfidenceThreshold, &status,
			&f.ErrorMessage, &f.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		f.Status = entity.AnalysisStatus(status)
		frames = append(frames, f)
	}
	return frames, rows.Err()
}
