package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/abdulrahman-963/new-pluta/internal/domain/entity"
	"github.com/abdulrahman-963/new-pluta/internal/domain/port"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ZoneDispatcher fans one extracted image out to the detection engine, one
// call per table zone.
type ZoneDispatcher struct {
	engine      port.DetectionEngine
	concurrency int
	logger      *zap.Logger
}

func NewZoneDispatcher(engine port.DetectionEngine, concurrency int, logger *zap.Logger) *ZoneDispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ZoneDispatcher{engine: engine, concurrency: concurrency, logger: logger}
}

// AnalysisTarget is what stays fixed across the frames of one run.
type AnalysisTarget struct {
	CameraID  int64
	OutputDir string
	Zones     []entity.Zone
}

// GroupZones returns one zone per table that has a polygon, ordered by table
// id. The input slice is not modified.
func (d *ZoneDispatcher) GroupZones(tables []entity.Table) []entity.Zone {
	sorted := make([]entity.Table, len(tables))
	copy(sorted, tables)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	zones := make([]entity.Zone, 0, len(sorted))
	for _, t := range sorted {
		if len(t.Coordinates) == 0 {
			d.logger.Warn("table has no coordinates, skipping", zap.Int64("table_id", t.ID))
			continue
		}
		zones = append(zones, entity.Zone{TableID: t.ID, Polygon: t.Flatten()})
	}
	return zones
}

// Analyze runs the engine for every zone of target against frame. Results
// keep the zone order. The first failure cancels the remaining calls.
func (d *ZoneDispatcher) Analyze(ctx context.Context, frame entity.ExtractedFrame, target AnalysisTarget, thresholds entity.Thresholds) (entity.AnalysisResult, error) {
	results := make([]entity.DetectionResult, len(target.Zones))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for i, zone := range target.Zones {
		i, zone := i, zone
		g.Go(func() error {
			res, err := d.engine.Detect(gctx, port.DetectionRequest{
				ImagePath:  frame.Path,
				OutputDir:  target.OutputDir,
				Thresholds: thresholds,
				CameraID:   target.CameraID,
				TableID:    zone.TableID,
				Polygon:    zone.Polygon,
			})
			if err != nil {
				return fmt.Errorf("analyze table %d at %.0fs: %w", zone.TableID, frame.OffsetSeconds, err)
			}
			if res.TableID == nil {
				id := zone.TableID
				res.TableID = &id
			}
			results[i] = *res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return entity.AnalysisResult{}, err
	}
	return entity.AnalysisResult{Frame: frame, Results: results}, nil
}
