package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/abdulrahman-963/new-pluta/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func result(tableID int64, persons int) entity.DetectionResult {
	return entity.DetectionResult{
		TableID:            &tableID,
		Resolution:         "1920x1080",
		Counts:             entity.DetectionCounts{PersonsDetected: persons, TotalDetected: persons},
		AnnotatedImagePath: "/labeled/x.jpg",
		Status:             "completed",
	}
}

func TestPersistOneBatchPerImageAndScopeCopied(t *testing.T) {
	scoped := func(id int64) entity.Table {
		t := table(id)
		t.TenantID, t.BranchID = 17, 23
		return t
	}
	catalog := &fakeTableCatalog{known: map[int64]entity.Table{1: scoped(1), 2: scoped(2)}}
	frames := &fakeFrameRepo{}
	c := NewResultCorrelator(catalog, frames, zap.NewNop())

	video := uploadedVideo()
	video.TenantID, video.BranchID = 17, 23
	analyses := []entity.AnalysisResult{
		{Frame: entity.ExtractedFrame{Path: "/f/1.jpg", OffsetSeconds: 0}, Results: []entity.DetectionResult{result(1, 2), result(2, 0)}},
		{Frame: entity.ExtractedFrame{Path: "/f/2.jpg", OffsetSeconds: 10}, Results: []entity.DetectionResult{result(1, 1), result(2, 3)}},
	}

	out, err := c.Persist(context.Background(), video, analyses, entity.Thresholds{Frame: 0.4, Zone: 0.7})
	require.NoError(t, err)

	assert.Equal(t, 4, out.Saved)
	assert.Equal(t, 0, out.UnknownTables)
	assert.Equal(t, 1, catalog.byIDsCalls)
	assert.ElementsMatch(t, []int64{1, 2}, catalog.requested)
	assert.Equal(t, []entity.Scope{{TenantID: 17, BranchID: 23}}, catalog.scopes)
	require.Len(t, frames.batches, 2)

	for i, batch := range frames.batches {
		require.Len(t, batch, 2)
		for _, f := range batch {
			assert.Equal(t, int64(17), f.TenantID)
			assert.Equal(t, int64(23), f.BranchID)
			assert.Equal(t, video.ID, *f.VideoID)
			assert.Nil(t, f.StreamID)
			assert.Equal(t, 0.4, f.ConfidenceThreshold)
			assert.Equal(t, analyses[i].Frame.OffsetSeconds, f.FrameOffsetSeconds)
			assert.Equal(t, entity.AnalysisStatusCompleted, f.Status)
		}
	}
	assert.Equal(t, 3, frames.batches[1][1].Counts.PersonsDetected)
}

func TestPersistToleratesUnknownTable(t *testing.T) {
	catalog := &fakeTableCatalog{known: map[int64]entity.Table{1: table(1)}}
	frames := &fakeFrameRepo{}
	c := NewResultCorrelator(catalog, frames, zap.NewNop())

	analyses := []entity.AnalysisResult{
		{Frame: entity.ExtractedFrame{OffsetSeconds: 0}, Results: []entity.DetectionResult{result(1, 1), result(99, 4)}},
	}

	out, err := c.Persist(context.Background(), uploadedVideo(), analyses, entity.Thresholds{Frame: 0.4})
	require.NoError(t, err)

	assert.Equal(t, 2, out.Saved)
	assert.Equal(t, 1, out.UnknownTables)
	saved := frames.all()
	require.Len(t, saved, 2)
	require.NotNil(t, saved[0].TableID)
	assert.Equal(t, int64(1), *saved[0].TableID)
	assert.Nil(t, saved[1].TableID)
	assert.Equal(t, 4, saved[1].Counts.PersonsDetected)
}

func TestPersistFallsBackToFrameImage(t *testing.T) {
	frames := &fakeFrameRepo{}
	c := NewResultCorrelator(&fakeTableCatalog{known: map[int64]entity.Table{1: table(1)}}, frames, zap.NewNop())

	r := result(1, 0)
	r.AnnotatedImagePath = ""
	r.Resolution = ""
	r.Status = "FAILED"
	analyses := []entity.AnalysisResult{
		{Frame: entity.ExtractedFrame{Path: "/f/1.jpg", Resolution: "1280x720"}, Results: []entity.DetectionResult{r}},
	}

	_, err := c.Persist(context.Background(), uploadedVideo(), analyses, entity.Thresholds{})
	require.NoError(t, err)

	f := frames.all()[0]
	assert.Equal(t, "/f/1.jpg", f.AnnotatedImagePath)
	assert.Equal(t, "1280x720", f.Resolution)
	assert.Equal(t, entity.AnalysisStatusFailed, f.Status)
}

func TestPersistSaveError(t *testing.T) {
	frames := &fakeFrameRepo{saveErr: errors.New("connection reset")}
	c := NewResultCorrelator(&fakeTableCatalog{}, frames, zap.NewNop())

	analyses := []entity.AnalysisResult{
		{Frame: entity.ExtractedFrame{OffsetSeconds: 30}, Results: []entity.DetectionResult{result(1, 0)}},
	}
	_, err := c.Persist(context.Background(), uploadedVideo(), analyses, entity.Thresholds{})
	assert.ErrorContains(t, err, "save frames at 30s")
}

func TestPersistDropsTableFromAnotherScope(t *testing.T) {
	foreign := table(7)
	foreign.TenantID = 99
	catalog := &fakeTableCatalog{known: map[int64]entity.Table{1: table(1), 7: foreign}}
	frames := &fakeFrameRepo{}
	c := NewResultCorrelator(catalog, frames, zap.NewNop())

	analyses := []entity.AnalysisResult{
		{Frame: entity.ExtractedFrame{OffsetSeconds: 0}, Results: []entity.DetectionResult{result(1, 1), result(7, 2)}},
	}

	out, err := c.Persist(context.Background(), uploadedVideo(), analyses, entity.Thresholds{})
	require.NoError(t, err)

	assert.Equal(t, 1, out.UnknownTables)
	saved := frames.all()
	require.Len(t, saved, 2)
	assert.Nil(t, saved[1].TableID)
	assert.Equal(t, 2, saved[1].Counts.PersonsDetected)
}
