package entity

import "errors"

// Input errors, rejected before a run is queued.
var (
	ErrEmptyUpload            = errors.New("uploaded file is empty")
	ErrUnsupportedContentType = errors.New("file must be a video")
	ErrInvalidScope           = errors.New("invalid tenant/branch scope")
	ErrInvalidReference       = errors.New("invalid zone or camera reference")
	ErrUnsupportedImageType   = errors.New("file must be a jpeg, png, gif, bmp or webp image")
	ErrImageTooLarge          = errors.New("image exceeds 10MB")
	ErrInvalidThreshold       = errors.New("confidence thresholds must be in (0, 1]")
)

var ErrVideoNotFound = errors.New("video not found")

// ErrStatusConflict means the stored status no longer matched the expected
// one, so the write was not applied.
var ErrStatusConflict = errors.New("video status changed concurrently")

// Run errors. They end up in Video.ErrorMessage, never in a response.
var (
	ErrDurationUnavailable   = errors.New("video duration unavailable")
	ErrExtractorTimeout      = errors.New("media extractor timeout")
	ErrEngineFailed          = errors.New("detection engine failed")
	ErrEngineTimeout         = errors.New("engine timeout")
	ErrMalformedEngineOutput = errors.New("malformed engine output")
	ErrEngineReportedFailure = errors.New("detection engine reported failure")
)
