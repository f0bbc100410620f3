package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abdulrahman-963/new-pluta/internal/domain/entity"
	"github.com/abdulrahman-963/new-pluta/internal/domain/port"
	"github.com/abdulrahman-963/new-pluta/internal/infra/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ProcessVideoUseCase struct {
	videos     port.VideoRepository
	tables     port.TableCatalog
	storage    port.VideoStorage
	sampler    *FrameSampler
	dispatcher *ZoneDispatcher
	correlator *ResultCorrelator
	dlq        port.DLQPublisher
	notifier   port.FailureNotifier
	logger     *zap.Logger
	cfg        ProcessVideoConfig
}

type ProcessVideoConfig struct {
	TempDir      string
	FramesDir    string
	AnnotatedDir string
	Thresholds   entity.Thresholds
}

// NewProcessVideoUseCase wires the run pipeline. notifier may be nil.
func NewProcessVideoUseCase(
	videos port.VideoRepository,
	tables port.TableCatalog,
	storage port.VideoStorage,
	sampler *FrameSampler,
	dispatcher *ZoneDispatcher,
	correlator *ResultCorrelator,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessVideoConfig,
) *ProcessVideoUseCase {
	return &ProcessVideoUseCase{
		videos:     videos,
		tables:     tables,
		storage:    storage,
		sampler:    sampler,
		dispatcher: dispatcher,
		correlator: correlator,
		dlq:        dlq,
		notifier:   notifier,
		logger:     logger,
		cfg:        cfg,
	}
}

// Execute is the queue handler. It returns an error only when the run could
// not be started, so the message is requeued. Everything that goes wrong once
// the video is PROCESSING is recorded on the video instead.
func (uc *ProcessVideoUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessVideoUseCase.Execute")
	defer span.End()

	var msg entity.VideoProcessingMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil || msg.VideoID == uuid.Nil {
		if err == nil {
			err = errors.New("missing video_id")
		}
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		uc.deadLetter(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}

	span.SetAttributes(
		attribute.String("video.id", msg.VideoID.String()),
		attribute.Int64("video.tenant_id", msg.Scope.TenantID),
		attribute.Int64("video.branch_id", msg.Scope.BranchID),
	)
	log := uc.logger.With(zap.String("video_id", msg.VideoID.String()))

	video, err := uc.videos.FindByID(ctx, msg.VideoID)
	if errors.Is(err, entity.ErrVideoNotFound) {
		log.Error("video not found, dropping message")
		uc.deadLetter(ctx, rawMsg, "video_not_found")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load video: %w", err)
	}

	if video.Scope() != msg.Scope {
		log.Error("message scope does not match video",
			zap.Any("message_scope", msg.Scope),
			zap.Any("video_scope", video.Scope()),
		)
		uc.deadLetter(ctx, rawMsg, "scope_mismatch")
		return nil
	}

	if video.Status != entity.VideoStatusUploaded {
		log.Warn("video is not awaiting processing, skipping", zap.String("status", string(video.Status)))
		return nil
	}

	_, err = uc.Run(ctx, video)
	if errors.Is(err, entity.ErrStatusConflict) {
		log.Warn("video claimed by another run, skipping")
		return nil
	}
	return err
}

// Run drives one video from UPLOADED to COMPLETED or FAILED. The returned
// error is non-nil only if the PROCESSING transition could not be stored.
// A final status is written only while the row is still PROCESSING, so a
// run the reconciler already failed stays FAILED.
func (uc *ProcessVideoUseCase) Run(ctx context.Context, video *entity.Video) (*entity.RunReport, error) {
	log := uc.logger.With(zap.String("video_id", video.ID.String()))

	from := video.Status
	video.MarkProcessing()
	if err := uc.videos.Update(ctx, video, from); err != nil {
		log.Error("failed to update video to PROCESSING", zap.Error(err))
		return nil, fmt.Errorf("mark processing: %w", err)
	}

	metrics.ActiveRuns.Inc()
	defer metrics.ActiveRuns.Dec()

	start := time.Now()
	report := &entity.RunReport{}
	runErr := uc.pipeline(ctx, video, report, log)

	// The run may have been cancelled; the final status must still land.
	finalCtx := context.WithoutCancel(ctx)

	if runErr != nil {
		var duration *float64
		if report.Sampling != nil {
			d := report.Sampling.Duration
			duration = &d
		}
		video.MarkFailed(runErr.Error(), duration)
		metrics.RunsProcessedTotal.WithLabelValues("failed").Inc()
		log.Error("video run failed", zap.Error(runErr))
		if err := uc.videos.Update(finalCtx, video, entity.VideoStatusProcessing); err != nil {
			logFinalWrite(log, entity.VideoStatusFailed, err)
			return report, nil
		}
		uc.notifyFailure(finalCtx, video, runErr, log)
		return report, nil
	}

	video.MarkCompleted(report.Sampling.Duration, len(report.Sampling.Frames))
	if err := uc.videos.Update(finalCtx, video, entity.VideoStatusProcessing); err != nil {
		logFinalWrite(log, entity.VideoStatusCompleted, err)
	}

	metrics.RunsProcessedTotal.WithLabelValues("completed").Inc()
	metrics.RunStageDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())

	log.Info("video run completed",
		zap.Float64("duration_secs", report.Sampling.Duration),
		zap.Int("frames_extracted", len(report.Sampling.Frames)),
		zap.Int("frame_records", report.FramesSaved),
		zap.Int("unknown_tables", report.UnknownTables),
	)
	return report, nil
}

func (uc *ProcessVideoUseCase) pipeline(ctx context.Context, video *entity.Video, report *entity.RunReport, log *zap.Logger) error {
	tracer := otel.Tracer("usecase")
	runID := uuid.New().String()

	workDir := filepath.Join(uc.cfg.TempDir, runID)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	framesDir := filepath.Join(uc.cfg.FramesDir, runID)
	annotatedDir := filepath.Join(uc.cfg.AnnotatedDir, runID)
	for _, dir := range []string{framesDir, annotatedDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	// Download video from MinIO
	dlStart := time.Now()
	dlCtx, spanDl := tracer.Start(ctx, "download_video")
	videoPath := filepath.Join(workDir, filepath.Base(video.FileName))
	err := uc.storage.DownloadVideo(dlCtx, video.StoragePath, videoPath)
	endSpan(spanDl, err)
	if err != nil {
		return fmt.Errorf("download video: %w", err)
	}
	metrics.RunStageDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	tables, err := uc.tables.FindByCamera(ctx, video.Scope(), video.ZoneID, video.CameraID)
	if err != nil {
		return fmt.Errorf("load tables: %w", err)
	}
	target := AnalysisTarget{
		CameraID:  video.CameraID,
		OutputDir: annotatedDir,
		Zones:     uc.dispatcher.GroupZones(tables),
	}
	if len(target.Zones) == 0 {
		log.Warn("no monitored tables in view of camera", zap.Int64("camera_id", video.CameraID))
	}

	// Sample frames
	smStart := time.Now()
	smCtx, spanSm := tracer.Start(ctx, "sample_frames")
	sampling, err := uc.sampler.Sample(smCtx, videoPath, framesDir, BaseName(video.OriginalFileName))
	endSpan(spanSm, err)
	report.Sampling = sampling
	if err != nil {
		return err
	}
	metrics.RunStageDuration.WithLabelValues("sample").Observe(time.Since(smStart).Seconds())
	metrics.FramesExtractedTotal.Add(float64(len(sampling.Frames)))

	// Analyze every table zone of every frame
	anStart := time.Now()
	anCtx, spanAn := tracer.Start(ctx, "analyze_frames")
	spanAn.SetAttributes(
		attribute.Int("frames", len(sampling.Frames)),
		attribute.Int("zones", len(target.Zones)),
	)
	err = uc.analyze(anCtx, sampling.Frames, target, report)
	endSpan(spanAn, err)
	if err != nil {
		return err
	}
	metrics.RunStageDuration.WithLabelValues("analyze").Observe(time.Since(anStart).Seconds())

	// Persist frame records
	psStart := time.Now()
	psCtx, spanPs := tracer.Start(ctx, "persist_frames")
	persisted, err := uc.correlator.Persist(psCtx, video, report.Analyses, uc.cfg.Thresholds)
	endSpan(spanPs, err)
	report.FramesSaved = persisted.Saved
	report.UnknownTables = persisted.UnknownTables
	if err != nil {
		return err
	}
	metrics.RunStageDuration.WithLabelValues("persist").Observe(time.Since(psStart).Seconds())

	return nil
}

func (uc *ProcessVideoUseCase) analyze(ctx context.Context, frames []entity.ExtractedFrame, target AnalysisTarget, report *entity.RunReport) error {
	if len(target.Zones) == 0 {
		return nil
	}
	for _, frame := range frames {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("analyze frames: %w", err)
		}
		result, err := uc.dispatcher.Analyze(ctx, frame, target, uc.cfg.Thresholds)
		if err != nil {
			return err
		}
		report.Analyses = append(report.Analyses, result)
	}
	return nil
}

func (uc *ProcessVideoUseCase) deadLetter(ctx context.Context, rawMsg []byte, reason string) {
	if err := uc.dlq.PublishToDLQ(ctx, rawMsg, reason); err != nil {
		uc.logger.Error("failed to publish to DLQ", zap.String("reason", reason), zap.Error(err))
	}
}

func (uc *ProcessVideoUseCase) notifyFailure(ctx context.Context, video *entity.Video, runErr error, log *zap.Logger) {
	if uc.notifier == nil {
		return
	}
	if err := uc.notifier.NotifyFailure(ctx, video.ID.String(), video.OriginalFileName, runErr.Error()); err != nil {
		log.Warn("failure notification not sent", zap.Error(err))
	}
}

func logFinalWrite(log *zap.Logger, status entity.VideoStatus, err error) {
	if errors.Is(err, entity.ErrStatusConflict) {
		log.Warn("video left PROCESSING during the run, outcome discarded", zap.String("outcome", string(status)))
		return
	}
	// Left PROCESSING; the reconciler fails it once it goes stale.
	log.Error("failed to store final status", zap.String("status", string(status)), zap.Error(err))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
