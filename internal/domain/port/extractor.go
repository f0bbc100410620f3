package port

import "context"

// MediaExtractor samples still images out of a video file.
type MediaExtractor interface {
	Duration(ctx context.Context, videoPath string) (float64, error)
	// ExtractFrame writes one image taken at offset seconds to outputPath and
	// returns its resolution as WIDTHxHEIGHT.
	ExtractFrame(ctx context.Context, videoPath string, offset float64, outputPath string) (string, error)
}
