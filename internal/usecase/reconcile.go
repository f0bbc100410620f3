package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdulrahman-963/new-pluta/internal/domain/entity"
	"github.com/abdulrahman-963/new-pluta/internal/domain/port"
	"github.com/abdulrahman-963/new-pluta/internal/infra/metrics"
	"go.uber.org/zap"
)

// ReconcileRunsUseCase fails runs left in PROCESSING by a worker that died
// mid-run. Nothing else ever moves such a row out of PROCESSING.
type ReconcileRunsUseCase struct {
	videos     port.VideoRepository
	notifier   port.FailureNotifier
	staleAfter time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewReconcileRunsUseCase builds the sweeper. notifier may be nil.
func NewReconcileRunsUseCase(videos port.VideoRepository, notifier port.FailureNotifier, staleAfter time.Duration, logger *zap.Logger) *ReconcileRunsUseCase {
	return &ReconcileRunsUseCase{
		videos:     videos,
		notifier:   notifier,
		staleAfter: staleAfter,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Execute marks every stale PROCESSING video FAILED and returns how many it
// changed.
func (uc *ReconcileRunsUseCase) Execute(ctx context.Context) (int, error) {
	cutoff := uc.now().Add(-uc.staleAfter)
	stale, err := uc.videos.FindStaleProcessing(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find stale runs: %w", err)
	}

	failed := 0
	for _, video := range stale {
		log := uc.logger.With(zap.String("video_id", video.ID.String()))
		reason := fmt.Sprintf("run abandoned: still PROCESSING after %s", uc.staleAfter)
		video.MarkFailed(reason, nil)

		err := uc.videos.Update(ctx, video, entity.VideoStatusProcessing)
		if errors.Is(err, entity.ErrStatusConflict) {
			log.Info("run finished before it could be failed, leaving it")
			continue
		}
		if err != nil {
			log.Error("failed to fail stale run", zap.Error(err))
			continue
		}
		failed++
		metrics.ReconciledRunsTotal.Inc()
		log.Warn("stale run marked FAILED")

		if uc.notifier != nil {
			if err := uc.notifier.NotifyFailure(ctx, video.ID.String(), video.OriginalFileName, reason); err != nil {
				log.Warn("failure notification not sent", zap.Error(err))
			}
		}
	}
	return failed, nil
}

// Start runs Execute immediately and then every interval until ctx is done.
func (uc *ReconcileRunsUseCase) Start(ctx context.Context, interval time.Duration) {
	uc.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			uc.runOnce(ctx)
		}
	}
}

func (uc *ReconcileRunsUseCase) runOnce(ctx context.Context) {
	if _, err := uc.Execute(ctx); err != nil && ctx.Err() == nil {
		uc.logger.Error("reconcile failed", zap.Error(err))
	}
}
