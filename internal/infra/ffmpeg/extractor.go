package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/abdulrahman-963/new-pluta/internal/domain/entity"
	"github.com/abdulrahman-963/new-pluta/internal/infra/subprocess"
	"go.uber.org/zap"
)

type ExtractorConfig struct {
	FFmpegPath  string
	FFprobePath string
	Width       int
	Height      int
}

// Extractor implements port.MediaExtractor on top of ffprobe and ffmpeg.
type Extractor struct {
	cfg    ExtractorConfig
	runner *subprocess.Runner
	logger *zap.Logger
}

func NewExtractor(cfg ExtractorConfig, runner *subprocess.Runner, logger *zap.Logger) *Extractor {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	return &Extractor{cfg: cfg, runner: runner, logger: logger}
}

func (e *Extractor) Duration(ctx context.Context, videoPath string) (float64, error) {
	output, err := e.runner.Output(ctx, e.cfg.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	if err != nil {
		if errors.Is(err, subprocess.ErrTimeout) {
			return 0, fmt.Errorf("%w: ffprobe: %w", entity.ErrExtractorTimeout, err)
		}
		return 0, fmt.Errorf("%w: ffprobe: %w", entity.ErrDurationUnavailable, err)
	}
	return ParseDuration(string(output))
}

// ParseDuration reads the single seconds value ffprobe prints.
func ParseDuration(output string) (float64, error) {
	durationStr := strings.TrimSpace(output)
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: parse %q: %w", entity.ErrDurationUnavailable, durationStr, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("%w: non-positive duration %f", entity.ErrDurationUnavailable, duration)
	}
	return duration, nil
}

func (e *Extractor) ExtractFrame(ctx context.Context, videoPath string, offset float64, outputPath string) (string, error) {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(offset, 'f', 3, 64),
		"-i", videoPath,
		"-frames:v", "1",
		"-vf", LetterboxFilter(e.cfg.Width, e.cfg.Height),
		"-q:v", "2",
		"-y",
		outputPath,
	}

	if _, err := e.runner.CombinedOutput(ctx, e.cfg.FFmpegPath, args...); err != nil {
		if errors.Is(err, subprocess.ErrTimeout) {
			err = fmt.Errorf("%w: %w", entity.ErrExtractorTimeout, err)
		}
		return "", fmt.Errorf("extract frame at %.2fs: %w", offset, err)
	}

	e.logger.Debug("frame extracted",
		zap.Float64("offset", offset),
		zap.String("path", outputPath),
	)
	return e.Resolution(), nil
}

// Resolution is the fixed size every extracted frame is normalised to.
func (e *Extractor) Resolution() string {
	return fmt.Sprintf("%dx%d", e.cfg.Width, e.cfg.Height)
}

// LetterboxFilter scales the source to fit inside width x height keeping its
// aspect ratio, then pads the remainder with black so the output is always
// exactly width x height.
func LetterboxFilter(width, height int) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black,setsar=1",
		width, height, width, height,
	)
}
