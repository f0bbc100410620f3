package entity

import (
	"time"

	"github.com/google/uuid"
)

type VideoStatus string

const (
	VideoStatusUploaded   VideoStatus = "UPLOADED"
	VideoStatusProcessing VideoStatus = "PROCESSING"
	VideoStatusCompleted  VideoStatus = "COMPLETED"
	VideoStatusFailed     VideoStatus = "FAILED"
)

func (s VideoStatus) Terminal() bool {
	return s == VideoStatusCompleted || s == VideoStatusFailed
}

type Video struct {
	ID                    uuid.UUID
	TenantID              int64
	BranchID              int64
	ZoneID                int64
	CameraID              int64
	OriginalFileName      string
	FileName              string
	FileSize              int64
	ContentType           string
	StoragePath           string
	Status                VideoStatus
	Duration              *float64
	FramesExtracted       *int
	ProcessingStartedAt   *time.Time
	ProcessingCompletedAt *time.Time
	ErrorMessage          *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type NewVideoParams struct {
	Scope            Scope
	ZoneID           int64
	CameraID         int64
	OriginalFileName string
	FileName         string
	FileSize         int64
	ContentType      string
	StoragePath      string
}

func NewVideo(p NewVideoParams) *Video {
	now := time.Now().UTC()
	return &Video{
		ID:               uuid.New(),
		TenantID:         p.Scope.TenantID,
		BranchID:         p.Scope.BranchID,
		ZoneID:           p.ZoneID,
		CameraID:         p.CameraID,
		OriginalFileName: p.OriginalFileName,
		FileName:         p.FileName,
		FileSize:         p.FileSize,
		ContentType:      p.ContentType,
		StoragePath:      p.StoragePath,
		Status:           VideoStatusUploaded,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Scope returns the tenant and branch the video belongs to.
func (v *Video) Scope() Scope {
	return Scope{TenantID: v.TenantID, BranchID: v.BranchID}
}

func (v *Video) MarkProcessing() {
	now := time.Now().UTC()
	v.Status = VideoStatusProcessing
	v.ProcessingStartedAt = &now
	v.ProcessingCompletedAt = nil
	v.ErrorMessage = nil
	v.UpdatedAt = now
}

func (v *Video) MarkCompleted(duration float64, framesExtracted int) {
	now := time.Now().UTC()
	v.Status = VideoStatusCompleted
	v.Duration = &duration
	v.FramesExtracted = &framesExtracted
	v.ProcessingCompletedAt = &now
	v.UpdatedAt = now
}

// MarkFailed records the failure. Duration is kept when sampling got far
// enough to know it.
func (v *Video) MarkFailed(errMsg string, duration *float64) {
	now := time.Now().UTC()
	v.Status = VideoStatusFailed
	v.ErrorMessage = &errMsg
	if duration != nil {
		v.Duration = duration
	}
	v.ProcessingCompletedAt = &now
	v.UpdatedAt = now
}
