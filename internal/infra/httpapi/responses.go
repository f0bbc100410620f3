package httpapi

import (
	"time"

	"github.com/abdulrahman-963/new-pluta/internal/domain/entity"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type uploadResponse struct {
	Success bool   `json:"success"`
	VideoID string `json:"videoId"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type videoResponse struct {
	ID                    string     `json:"id"`
	TenantID              int64      `json:"tenantId"`
	BranchID              int64      `json:"branchId"`
	ZoneID                int64      `json:"zoneId"`
	CameraID              int64      `json:"cameraId"`
	OriginalFileName      string     `json:"originalFileName"`
	FileName              string     `json:"fileName"`
	FileSize              int64      `json:"fileSize"`
	ContentType           string     `json:"contentType"`
	Status                string     `json:"status"`
	Duration              *float64   `json:"duration"`
	FramesExtracted       *int       `json:"framesExtracted"`
	ProcessingStartedAt   *time.Time `json:"processingStartedAt"`
	ProcessingCompletedAt *time.Time `json:"processingCompletedAt"`
	ErrorMessage          *string    `json:"errorMessage"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

func toVideoResponse(v *entity.Video) videoResponse {
	return videoResponse{
		ID:                    v.ID.String(),
		TenantID:              v.TenantID,
		BranchID:              v.BranchID,
		ZoneID:                v.ZoneID,
		CameraID:              v.CameraID,
		OriginalFileName:      v.OriginalFileName,
		FileName:              v.FileName,
		FileSize:              v.FileSize,
		ContentType:           v.ContentType,
		Status:                string(v.Status),
		Duration:              v.Duration,
		FramesExtracted:       v.FramesExtracted,
		ProcessingStartedAt:   v.ProcessingStartedAt,
		ProcessingCompletedAt: v.ProcessingCompletedAt,
		ErrorMessage:          v.ErrorMessage,
		CreatedAt:             v.CreatedAt,
		UpdatedAt:             v.UpdatedAt,
	}
}

type frameResponse struct {
	ID                 string  `json:"id"`
	VideoID            *string `json:"videoId"`
	TableID            *int64  `json:"tableId"`
	FrameOffsetSeconds float64 `json:"frameOffsetSeconds"`
	Resolution         string  `json:"resolution"`
	entity.DetectionCounts
	AnnotatedImagePath  string    `json:"annotatedImagePath"`
	ConfidenceThreshold float64   `json:"confidenceThreshold"`
	Status              string    `json:"status"`
	ErrorMessage        *string   `json:"errorMessage"`
	CreatedAt           time.Time `json:"createdAt"`
}

func toFrameResponse(f *entity.Frame) frameResponse {
	out := frameResponse{
		ID:                  f.ID.String(),
		TableID:             f.TableID,
		FrameOffsetSeconds:  f.FrameOffsetSeconds,
		Resolution:          f.Resolution,
		DetectionCounts:     f.Counts,
		AnnotatedImagePath:  f.AnnotatedImagePath,
		ConfidenceThreshold: f.ConfidenceThreshold,
		Status:              string(f.Status),
		ErrorMessage:        f.ErrorMessage,
		CreatedAt:           f.CreatedAt,
	}
	if f.VideoID != nil {
		id := f.VideoID.String()
		out.VideoID = &id
	}
	return out
}

type analysisResponse struct {
	CameraID           *int64  `json:"cameraId"`
	TableID            *int64  `json:"tableId"`
	FrameOffsetSeconds float64 `json:"frameOffsetSeconds"`
	Resolution         string  `json:"resolution"`
	entity.DetectionCounts
	AnnotatedImagePath string `json:"annotatedImagePath"`
	Status             string `json:"status"`
}

func toAnalysisResponse(r entity.DetectionResult) analysisResponse {
	return analysisResponse{
		CameraID:           r.CameraID,
		TableID:            r.TableID,
		Resolution:         r.Resolution,
		DetectionCounts:    r.Counts,
		AnnotatedImagePath: r.AnnotatedImagePath,
		Status:             r.Status,
	}
}
