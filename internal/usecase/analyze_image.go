package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdulrahman-963/new-pluta/internal/domain/entity"
	"github.com/abdulrahman-963/new-pluta/internal/domain/port"
	"github.com/abdulrahman-963/new-pluta/internal/infra/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// MaxImageBytes caps a single on-demand analysis upload.
const MaxImageBytes = 10 << 20

var imageContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/webp": true,
}

// DefaultImageThresholds apply when the caller leaves a threshold out.
var DefaultImageThresholds = entity.Thresholds{Frame: 0.2, Zone: 0.7}

type AnalyzeImageInput struct {
	Scope       entity.Scope
	ZoneID      int64
	CameraID    int64
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
	Thresholds  entity.Thresholds
}

type AnalyzeImageConfig struct {
	TempDir      string
	AnnotatedDir string
}

// AnalyzeImageUseCase runs the zone analysis on one caller-supplied image and
// returns the per-table results. Nothing is persisted except the annotated
// images the engine writes.
type AnalyzeImageUseCase struct {
	tables     port.TableCatalog
	dispatcher *ZoneDispatcher
	cfg        AnalyzeImageConfig
	logger     *zap.Logger
}

func NewAnalyzeImageUseCase(tables port.TableCatalog, dispatcher *ZoneDispatcher, cfg AnalyzeImageConfig, logger *zap.Logger) *AnalyzeImageUseCase {
	return &AnalyzeImageUseCase{tables: tables, dispatcher: dispatcher, cfg: cfg, logger: logger}
}

func (uc *AnalyzeImageUseCase) Execute(ctx context.Context, in AnalyzeImageInput) ([]entity.DetectionResult, error) {
	ctx, span := otel.Tracer("usecase").Start(ctx, "AnalyzeImageUseCase.Execute")
	span.SetAttributes(
		attribute.Int64("camera.id", in.CameraID),
		attribute.Int64("zone.id", in.ZoneID),
	)

	results, err := uc.execute(ctx, in)
	endSpan(span, err)
	if err != nil {
		metrics.ImageAnalysesTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	metrics.ImageAnalysesTotal.WithLabelValues("completed").Inc()
	return results, nil
}

func (uc *AnalyzeImageUseCase) execute(ctx context.Context, in AnalyzeImageInput) ([]entity.DetectionResult, error) {
	if err := validateImage(in); err != nil {
		return nil, err
	}
	log := uc.logger.With(
		zap.Int64("tenant_id", in.Scope.TenantID),
		zap.Int64("branch_id", in.Scope.BranchID),
		zap.Int64("camera_id", in.CameraID),
	)

	tables, err := uc.tables.FindByCamera(ctx, in.Scope, in.ZoneID, in.CameraID)
	if err != nil {
		return nil, fmt.Errorf("load tables: %w", err)
	}
	zones := uc.dispatcher.GroupZones(tables)
	if len(zones) == 0 {
		log.Info("no monitored tables in view of camera")
		return []entity.DetectionResult{}, nil
	}

	requestID := uuid.NewString()
	imagePath, err := uc.saveTemp(requestID, in)
	if err != nil {
		return nil, err
	}
	defer os.Remove(imagePath)

	outputDir := filepath.Join(uc.cfg.AnnotatedDir, requestID)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	analysis, err := uc.dispatcher.Analyze(ctx,
		entity.ExtractedFrame{Path: imagePath},
		AnalysisTarget{CameraID: in.CameraID, OutputDir: outputDir, Zones: zones},
		in.Thresholds,
	)
	if err != nil {
		return nil, err
	}

	for i := range analysis.Results {
		if analysis.Results[i].CameraID == nil {
			id := in.CameraID
			analysis.Results[i].CameraID = &id
		}
	}
	log.Info("image analyzed", zap.Int("zones", len(zones)))
	return analysis.Results, nil
}

func (uc *AnalyzeImageUseCase) saveTemp(requestID string, in AnalyzeImageInput) (string, error) {
	if err := os.MkdirAll(uc.cfg.TempDir, 0755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	path := filepath.Join(uc.cfg.TempDir, requestID+strings.ToLower(filepath.Ext(in.FileName)))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	_, err = io.Copy(f, io.LimitReader(in.Body, MaxImageBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("save image: %w", err)
	}
	return path, nil
}

func validateImage(in AnalyzeImageInput) error {
	if err := in.Scope.Validate(); err != nil {
		return err
	}
	if in.ZoneID <= 0 || in.CameraID <= 0 {
		return fmt.Errorf("%w: zone=%d camera=%d", entity.ErrInvalidReference, in.ZoneID, in.CameraID)
	}
	if in.Size <= 0 || in.Body == nil {
		return entity.ErrEmptyUpload
	}
	if in.Size > MaxImageBytes {
		return entity.ErrImageTooLarge
	}
	if !imageContentTypes[strings.ToLower(in.ContentType)] {
		return fmt.Errorf("%w: %q", entity.ErrUnsupportedImageType, in.ContentType)
	}
	for _, v := range []float64{in.Thresholds.Frame, in.Thresholds.Zone} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%w: %v", entity.ErrInvalidThreshold, v)
		}
	}
	return nil
}
