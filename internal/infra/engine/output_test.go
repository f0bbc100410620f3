package engine

import (
	"encoding/json"
	"testing"

	"github.com/abdulrahman-963/new-pluta/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completedPayload = `{
  "resolution": "1920x1080",
  "tablesDetected": 1,
  "chairsDetected": 4,
  "benchesDetected": 0,
  "couchesDetected": 0,
  "personsDetected": 3,
  "totalDetected": 8,
  "occupiedChairs": 3,
  "unoccupiedChairs": 1,
  "occupiedBenches": 0,
  "unoccupiedBenches": 0,
  "occupiedCouches": 0,
  "unoccupiedCouches": 0,
  "personsSitting": 3,
  "annotatedImagePath": "/labeled/run/frame_001_annotated.jpg",
  "status": "COMPLETED"
}`

func TestExtractJSONSkipsLogLines(t *testing.T) {
	payload, err := ExtractJSON("INFO: loading\n{\"status\":\"ok\"}\n")
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))
	assert.Equal(t, "ok", decoded["status"])
}

func TestExtractJSONTakesFirstOpenToLastClose(t *testing.T) {
	// Pins the current framing: earlier brace pairs are swallowed into the slice.
	output := "cfg {a} loaded\nmodel {b} ready\n{\"status\":\"ok\"}\n"

	payload, err := ExtractJSON(output)
	require.NoError(t, err)
	assert.Equal(t, "{a} loaded\nmodel {b} ready\n{\"status\":\"ok\"}", payload)
}

func TestExtractJSONWithoutObject(t *testing.T) {
	for _, output := range []string{"", "no json here", "} backwards {"} {
		_, err := ExtractJSON(output)
		assert.ErrorIs(t, err, entity.ErrMalformedEngineOutput, output)
	}
}

func TestParseResultCompleted(t *testing.T) {
	res, err := ParseResult("Loading YOLO model...\n" + completedPayload + "\nDone.\n")
	require.NoError(t, err)

	assert.Equal(t, "1920x1080", res.Resolution)
	assert.Equal(t, 4, res.Counts.ChairsDetected)
	assert.Equal(t, 3, res.Counts.OccupiedChairs)
	assert.Equal(t, 1, res.Counts.UnoccupiedChairs)
	assert.Equal(t, 3, res.Counts.PersonsSitting)
	assert.Equal(t, 8, res.Counts.TotalDetected)
	assert.Equal(t, "/labeled/run/frame_001_annotated.jpg", res.AnnotatedImagePath)
	assert.Equal(t, "COMPLETED", res.Status)
	assert.Nil(t, res.TableID)
}

func TestParseResultEchoedIDs(t *testing.T) {
	res, err := ParseResult(`{"cameraId": 7, "tableId": 42, "resolution": "1920x1080", "totalDetected": 0, "status": "COMPLETED"}`)
	require.NoError(t, err)
	require.NotNil(t, res.TableID)
	assert.Equal(t, int64(42), *res.TableID)
	require.NotNil(t, res.CameraID)
	assert.Equal(t, int64(7), *res.CameraID)
}

func TestParseResultEngineError(t *testing.T) {
	_, err := ParseResult(`{"status": "error", "error_message": "Cannot read image file: x.jpg", "image_path": "x.jpg"}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrEngineReportedFailure)
	assert.Contains(t, err.Error(), "Cannot read image file")
}

func TestParseResultMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":           "{this is not json}",
		"missing status":     `{"resolution": "1920x1080", "totalDetected": 1}`,
		"missing resolution": `{"status": "COMPLETED", "totalDetected": 1}`,
		"missing total":      `{"status": "COMPLETED", "resolution": "1920x1080"}`,
		"wrong type":         `{"status": "COMPLETED", "resolution": "1920x1080", "totalDetected": "many"}`,
	}
	for name, output := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseResult(output)
			assert.ErrorIs(t, err, entity.ErrMalformedEngineOutput)
		})
	}
}
