package entity

import "github.com/google/uuid"

// VideoProcessingMessage is the message queued for a run.
type VideoProcessingMessage struct {
	VideoID uuid.UUID `json:"video_id"`
	Scope   Scope     `json:"scope"`
}
