package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abdulrahman-963/new-pluta/internal/domain/entity"
)

// ExtractJSON returns the text between the first '{' and the last '}' of the
// engine's captured output. The engine mixes log lines with its JSON payload,
// so this is the whole framing protocol. Braces inside log lines around the
// payload will corrupt the slice; swap this function out if the engine ever
// gets a delimited output mode.
func ExtractJSON(output string) (string, error) {
	first := strings.IndexByte(output, '{')
	last := strings.LastIndexByte(output, '}')
	if first == -1 || last == -1 || first >= last {
		return "", fmt.Errorf("%w: no JSON object in output: %s", entity.ErrMalformedEngineOutput, output)
	}
	return output[first : last+1], nil
}

type rawResult struct {
	CameraID           *int64  `json:"cameraId"`
	TableID            *int64  `json:"tableId"`
	Resolution         *string `json:"resolution"`
	TablesDetected     int     `json:"tablesDetected"`
	ChairsDetected     int     `json:"chairsDetected"`
	BenchesDetected    int     `json:"benchesDetected"`
	CouchesDetected    int     `json:"couchesDetected"`
	PersonsDetected    int     `json:"personsDetected"`
	OccupiedChairs     int     `json:"occupiedChairs"`
	UnoccupiedChairs   int     `json:"unoccupiedChairs"`
	OccupiedBenches    int     `json:"occupiedBenches"`
	UnoccupiedBenches  int     `json:"unoccupiedBenches"`
	OccupiedCouches    int     `json:"occupiedCouches"`
	UnoccupiedCouches  int     `json:"unoccupiedCouches"`
	PersonsSitting     int     `json:"personsSitting"`
	TotalDetected      *int    `json:"totalDetected"`
	AnnotatedImagePath string  `json:"annotatedImagePath"`
	Status             *string `json:"status"`
	ErrorMessage       string  `json:"error_message"`
}

// ParseResult extracts and validates one detection result from raw engine output.
func ParseResult(output string) (*entity.DetectionResult, error) {
	payload, err := ExtractJSON(output)
	if err != nil {
		return nil, err
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", entity.ErrMalformedEngineOutput, err)
	}

	if raw.Status == nil || strings.TrimSpace(*raw.Status) == "" {
		return nil, fmt.Errorf("%w: missing status", entity.ErrMalformedEngineOutput)
	}
	if entity.ParseAnalysisStatus(*raw.Status) == entity.AnalysisStatusFailed {
		return nil, fmt.Errorf("%w: %s", entity.ErrEngineReportedFailure, raw.ErrorMessage)
	}
	if raw.Resolution == nil || *raw.Resolution == "" {
		return nil, fmt.Errorf("%w: missing resolution", entity.ErrMalformedEngineOutput)
	}
	if raw.TotalDetected == nil {
		return nil, fmt.Errorf("%w: missing totalDetected", entity.ErrMalformedEngineOutput)
	}

	return &entity.DetectionResult{
		CameraID:   raw.CameraID,
		TableID:    raw.TableID,
		Resolution: *raw.Resolution,
		Counts: entity.DetectionCounts{
			TablesDetected:    raw.TablesDetected,
			ChairsDetected:    raw.ChairsDetected,
			BenchesDetected:   raw.BenchesDetected,
			CouchesDetected:   raw.CouchesDetected,
			PersonsDetected:   raw.PersonsDetected,
			OccupiedChairs:    raw.OccupiedChairs,
			UnoccupiedChairs:  raw.UnoccupiedChairs,
			OccupiedBenches:   raw.OccupiedBenches,
			UnoccupiedBenches: raw.UnoccupiedBenches,
			OccupiedCouches:   raw.OccupiedCouches,
			UnoccupiedCouches: raw.UnoccupiedCouches,
			PersonsSitting:    raw.PersonsSitting,
			TotalDetected:     *raw.TotalDetected,
		},
		AnnotatedImagePath: raw.AnnotatedImagePath,
		Status:             *raw.Status,
	}, nil
}
