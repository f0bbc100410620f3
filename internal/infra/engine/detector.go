package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/abdulrahman-963/new-pluta/internal/domain/entity"
	"github.com/abdulrahman-963/new-pluta/internal/domain/port"
	"github.com/abdulrahman-963/new-pluta/internal/infra/metrics"
	"github.com/abdulrahman-963/new-pluta/internal/infra/subprocess"
	"go.uber.org/zap"
)

type DetectorConfig struct {
	// Executable is the program to run, e.g. a python interpreter.
	Executable string
	// Script is passed as the first argument when set.
	Script string
}

// Detector runs the external detection engine once per table zone.
type Detector struct {
	cfg    DetectorConfig
	runner *subprocess.Runner
	logger *zap.Logger
}

func NewDetector(cfg DetectorConfig, runner *subprocess.Runner, logger *zap.Logger) *Detector {
	return &Detector{cfg: cfg, runner: runner, logger: logger}
}

var _ port.DetectionEngine = (*Detector)(nil)

func (d *Detector) Detect(ctx context.Context, req port.DetectionRequest) (*entity.DetectionResult, error) {
	args := BuildArgs(d.cfg.Script, req)
	log := d.logger.With(
		zap.Int64("camera_id", req.CameraID),
		zap.Int64("table_id", req.TableID),
		zap.String("image", req.ImagePath),
	)
	log.Debug("invoking detection engine", zap.Strings("args", args))

	start := time.Now()
	output, err := d.runner.CombinedOutput(ctx, d.cfg.Executable, args...)
	metrics.EngineCallDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		switch {
		case errors.Is(err, subprocess.ErrTimeout):
			metrics.EngineCallsTotal.WithLabelValues("timeout").Inc()
			return nil, fmt.Errorf("%w: table %d: %w", entity.ErrEngineTimeout, req.TableID, err)
		case ctx.Err() != nil:
			metrics.EngineCallsTotal.WithLabelValues("cancelled").Inc()
			return nil, err
		default:
			metrics.EngineCallsTotal.WithLabelValues("failed").Inc()
			log.Error("detection engine failed", zap.Error(err))
			return nil, fmt.Errorf("%w: table %d: %w", entity.ErrEngineFailed, req.TableID, err)
		}
	}

	result, err := ParseResult(string(output))
	if err != nil {
		metrics.EngineCallsTotal.WithLabelValues("malformed").Inc()
		log.Error("unusable engine output", zap.Error(err), zap.ByteString("output", output))
		return nil, fmt.Errorf("table %d: %w", req.TableID, err)
	}

	metrics.EngineCallsTotal.WithLabelValues("ok").Inc()
	return result, nil
}

// BuildArgs lays out the engine command line:
// [script] image -o dir --confidence f --zone-threshold f --camera-id id --table-id id --zone x1 y1 ...
func BuildArgs(script string, req port.DetectionRequest) []string {
	args := make([]string, 0, 14+len(req.Polygon))
	if script != "" {
		args = append(args, script)
	}
	args = append(args,
		req.ImagePath,
		"-o", req.OutputDir,
		"--confidence", strconv.FormatFloat(req.Thresholds.Frame, 'f', -1, 64),
		"--zone-threshold", strconv.FormatFloat(req.Thresholds.Zone, 'f', -1, 64),
		"--camera-id", strconv.FormatInt(req.CameraID, 10),
		"--table-id", strconv.FormatInt(req.TableID, 10),
		"--zone",
	)
	return append(args, req.Polygon...)
}
