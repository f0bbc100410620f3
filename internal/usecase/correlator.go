package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/abdulrahman-963/new-pluta/internal/domain/entity"
	"github.com/abdulrahman-963/new-pluta/internal/domain/port"
	"github.com/abdulrahman-963/new-pluta/internal/infra/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ResultCorrelator maps detection results back to their tables and stores
// them as Frame records.
type ResultCorrelator struct {
	tables port.TableCatalog
	frames port.FrameRepository
	logger *zap.Logger
}

func NewResultCorrelator(tables port.TableCatalog, frames port.FrameRepository, logger *zap.Logger) *ResultCorrelator {
	return &ResultCorrelator{tables: tables, frames: frames, logger: logger}
}

type PersistResult struct {
	Saved         int
	UnknownTables int
}

// Persist resolves every table id referenced by analyses with a single
// catalog lookup within the video's scope, then writes one batch per
// extracted image.
func (c *ResultCorrelator) Persist(ctx context.Context, video *entity.Video, analyses []entity.AnalysisResult, thresholds entity.Thresholds) (PersistResult, error) {
	var out PersistResult

	known, err := c.tables.FindByIDs(ctx, video.Scope(), distinctTableIDs(analyses))
	if err != nil {
		return out, fmt.Errorf("resolve tables: %w", err)
	}

	for _, a := range analyses {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("persist frames: %w", err)
		}

		frames := make([]*entity.Frame, 0, len(a.Results))
		for _, r := range a.Results {
			f := c.buildFrame(video, a.Frame, r, thresholds)
			if f.TableID != nil {
				if _, ok := known[*f.TableID]; !ok {
					c.logger.Warn("table not found, storing frame without table",
						zap.Int64("table_id", *f.TableID),
						zap.Float64("offset", a.Frame.OffsetSeconds),
					)
					f.TableID = nil
					out.UnknownTables++
					metrics.UnresolvedTablesTotal.Inc()
				}
			}
			frames = append(frames, f)
		}

		if err := c.frames.SaveBatch(ctx, frames); err != nil {
			return out, fmt.Errorf("save frames at %.0fs: %w", a.Frame.OffsetSeconds, err)
		}
		out.Saved += len(frames)
		metrics.FrameRecordsSavedTotal.Add(float64(len(frames)))
	}

	return out, nil
}

func (c *ResultCorrelator) buildFrame(video *entity.Video, frame entity.ExtractedFrame, r entity.DetectionResult, thresholds entity.Thresholds) *entity.Frame {
	videoID := video.ID
	annotated := r.AnnotatedImagePath
	if annotated == "" {
		annotated = frame.Path
	}
	resolution := r.Resolution
	if resolution == "" {
		resolution = frame.Resolution
	}

	f := &entity.Frame{
		ID:                  uuid.New(),
		VideoID:             &videoID,
		TenantID:            video.TenantID,
		BranchID:            video.BranchID,
		FrameOffsetSeconds:  frame.OffsetSeconds,
		Resolution:          resolution,
		Counts:              r.Counts,
		AnnotatedImagePath:  annotated,
		ConfidenceThreshold: thresholds.Frame,
		Status:              entity.ParseAnalysisStatus(r.Status),
		CreatedAt:           time.Now().UTC(),
	}
	if r.TableID != nil {
		id := *r.TableID
		f.TableID = &id
	}
	return f
}

func distinctTableIDs(analyses []entity.AnalysisResult) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, a := range analyses {
		for _, r := range a.Results {
			if r.TableID == nil {
				continue
			}
			if _, ok := seen[*r.TableID]; ok {
				continue
			}
			seen[*r.TableID] = struct{}{}
			ids = append(ids, *r.TableID)
		}
	}
	return ids
}
