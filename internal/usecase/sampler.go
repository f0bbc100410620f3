package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/abdulrahman-963/new-pluta/internal/domain/entity"
	"github.com/abdulrahman-963/new-pluta/internal/domain/port"
	"go.uber.org/zap"
)

// FrameSampler turns a video file into still images taken at a fixed
// interval.
type FrameSampler struct {
	extractor port.MediaExtractor
	interval  float64
	logger    *zap.Logger
}

func NewFrameSampler(extractor port.MediaExtractor, intervalSeconds float64, logger *zap.Logger) *FrameSampler {
	return &FrameSampler{extractor: extractor, interval: intervalSeconds, logger: logger}
}

// Offsets returns 0, interval, 2*interval, ... for every value below duration.
// Each offset is computed by multiplication so long videos do not accumulate
// rounding drift.
func Offsets(duration, interval float64) []float64 {
	if duration <= 0 || interval <= 0 {
		return nil
	}
	var offsets []float64
	for i := 0; ; i++ {
		offset := float64(i) * interval
		if offset >= duration {
			break
		}
		offsets = append(offsets, offset)
	}
	return offsets
}

// FrameFileName names the image for the n-th offset (1-based).
func FrameFileName(baseName string, n int, offset float64) string {
	return fmt.Sprintf("%s_frame_%03d_%.0fs.jpg", baseName, n, offset)
}

// Sample extracts one image per offset into outputDir. A failed extraction is
// logged and skipped; only a missing duration fails the whole call.
func (s *FrameSampler) Sample(ctx context.Context, videoPath, outputDir, baseName string) (*entity.SamplingResult, error) {
	if s.interval <= 0 {
		return nil, fmt.Errorf("sample frames: interval must be positive, got %v", s.interval)
	}

	duration, err := s.extractor.Duration(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("sample frames: %w", err)
	}

	offsets := Offsets(duration, s.interval)
	result := &entity.SamplingResult{
		Duration:  duration,
		Attempted: len(offsets),
		Frames:    make([]entity.ExtractedFrame, 0, len(offsets)),
	}

	for i, offset := range offsets {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("sample frames: %w", err)
		}

		out := filepath.Join(outputDir, FrameFileName(baseName, i+1, offset))
		resolution, err := s.extractor.ExtractFrame(ctx, videoPath, offset, out)
		if err != nil {
			s.logger.Warn("frame extraction failed, skipping offset",
				zap.Float64("offset", offset),
				zap.Error(err),
			)
			continue
		}

		result.Frames = append(result.Frames, entity.ExtractedFrame{
			Path:          out,
			OffsetSeconds: offset,
			Resolution:    resolution,
		})
	}

	s.logger.Info("sampling finished",
		zap.Float64("duration", duration),
		zap.Int("attempted", result.Attempted),
		zap.Int("extracted", len(result.Frames)),
	)
	return result, nil
}

// BaseName strips the directory and the last extension of a file name.
func BaseName(fileName string) string {
	base := filepath.Base(fileName)
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
