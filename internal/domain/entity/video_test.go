package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVideoLifecycle(t *testing.T) {
	v := NewVideo(NewVideoParams{Scope: Scope{TenantID: 1, BranchID: 2}, ZoneID: 3, CameraID: 4})
	assert.Equal(t, VideoStatusUploaded, v.Status)
	assert.False(t, v.Status.Terminal())
	assert.Equal(t, Scope{TenantID: 1, BranchID: 2}, v.Scope())

	v.MarkProcessing()
	assert.Equal(t, VideoStatusProcessing, v.Status)
	require.NotNil(t, v.ProcessingStartedAt)
	assert.Nil(t, v.ProcessingCompletedAt)

	v.MarkCompleted(25, 3)
	assert.True(t, v.Status.Terminal())
	assert.Equal(t, 25.0, *v.Duration)
	assert.Equal(t, 3, *v.FramesExtracted)
	require.NotNil(t, v.ProcessingCompletedAt)
	assert.False(t, v.ProcessingCompletedAt.Before(*v.ProcessingStartedAt))
}

func TestVideoMarkFailed(t *testing.T) {
	v := NewVideo(NewVideoParams{})
	v.MarkProcessing()
	v.MarkFailed("boom", nil)

	assert.Equal(t, VideoStatusFailed, v.Status)
	assert.Equal(t, "boom", *v.ErrorMessage)
	assert.Nil(t, v.Duration)
	assert.NotNil(t, v.ProcessingCompletedAt)

	d := 12.5
	v.MarkFailed("again", &d)
	assert.Equal(t, 12.5, *v.Duration)

	v.MarkProcessing()
	assert.Nil(t, v.ErrorMessage)
}

func TestScopeValidate(t *testing.T) {
	assert.NoError(t, Scope{TenantID: 1, BranchID: 1}.Validate())
	assert.ErrorIs(t, Scope{TenantID: 0, BranchID: 1}.Validate(), ErrInvalidScope)
	assert.ErrorIs(t, Scope{TenantID: 1}.Validate(), ErrInvalidScope)
}
