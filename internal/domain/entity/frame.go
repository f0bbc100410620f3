package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type AnalysisStatus string

const (
	AnalysisStatusPending    AnalysisStatus = "PENDING"
	AnalysisStatusProcessing AnalysisStatus = "PROCESSING"
	AnalysisStatusCompleted  AnalysisStatus = "COMPLETED"
	AnalysisStatusFailed     AnalysisStatus = "FAILED"
)

// ParseAnalysisStatus maps the engine's free-form status string onto the
// persisted enum. Anything unrecognised that is not an error is a completion.
func ParseAnalysisStatus(s string) AnalysisStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PENDING":
		return AnalysisStatusPending
	case "PROCESSING":
		return AnalysisStatusProcessing
	case "FAILED", "ERROR":
		return AnalysisStatusFailed
	default:
		return AnalysisStatusCompleted
	}
}

// DetectionCounts are the per-class counts for one table zone in one image.
type DetectionCounts struct {
	TablesDetected    int `json:"tablesDetected"`
	ChairsDetected    int `json:"chairsDetected"`
	BenchesDetected   int `json:"benchesDetected"`
	CouchesDetected   int `json:"couchesDetected"`
	PersonsDetected   int `json:"personsDetected"`
	OccupiedChairs    int `json:"occupiedChairs"`
	UnoccupiedChairs  int `json:"unoccupiedChairs"`
	OccupiedBenches   int `json:"occupiedBenches"`
	UnoccupiedBenches int `json:"unoccupiedBenches"`
	OccupiedCouches   int `json:"occupiedCouches"`
	UnoccupiedCouches int `json:"unoccupiedCouches"`
	PersonsSitting    int `json:"personsSitting"`
	TotalDetected     int `json:"totalDetected"`
}

// Frame is one persisted analysis of one table zone in one sampled image.
type Frame struct {
	ID                  uuid.UUID
	VideoID             *uuid.UUID
	StreamID            *int64
	TenantID            int64
	BranchID            int64
	TableID             *int64
	FrameOffsetSeconds  float64
	Resolution          string
	Counts              DetectionCounts
	AnnotatedImagePath  string
	ConfidenceThreshold float64
	Status              AnalysisStatus
	ErrorMessage        *string
	CreatedAt           time.Time
}

// DetectionResult is what the detection engine reports for one table zone.
type DetectionResult struct {
	CameraID           *int64
	TableID            *int64
	Resolution         string
	Counts             DetectionCounts
	AnnotatedImagePath string
	Status             string
}
