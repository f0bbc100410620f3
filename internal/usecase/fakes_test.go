package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/abdulrahman-963/new-pluta/internal/domain/entity"
	"github.com/abdulrahman-963/new-pluta/internal/domain/port"
	"github.com/google/uuid"
)

type fakeVideoRepo struct {
	mu        sync.Mutex
	videos    map[uuid.UUID]*entity.Video
	statuses  []entity.VideoStatus
	findErr   error
	updateErr func(v *entity.Video) error
	staleErr  error
	created   []*entity.Video
}

func newFakeVideoRepo(videos ...*entity.Video) *fakeVideoRepo {
	r := &fakeVideoRepo{videos: make(map[uuid.UUID]*entity.Video)}
	for _, v := range videos {
		cp := *v
		r.videos[v.ID] = &cp
	}
	return r
}

func (r *fakeVideoRepo) Create(_ context.Context, v *entity.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *v
	r.videos[v.ID] = &cp
	r.created = append(r.created, &cp)
	return nil
}

func (r *fakeVideoRepo) Update(_ context.Context, v *entity.Video, from entity.VideoStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		if err := r.updateErr(v); err != nil {
			return err
		}
	}
	stored, ok := r.videos[v.ID]
	if !ok {
		return entity.ErrVideoNotFound
	}
	if stored.Status != from {
		return entity.ErrStatusConflict
	}
	cp := *v
	r.videos[v.ID] = &cp
	r.statuses = append(r.statuses, v.Status)
	return nil
}

func (r *fakeVideoRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	v, ok := r.videos[id]
	if !ok {
		return nil, entity.ErrVideoNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *fakeVideoRepo) ListByScope(_ context.Context, scope entity.Scope, limit, offset int) ([]*entity.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Video
	for _, v := range r.videos {
		if v.Scope() == scope {
			out = append(out, v)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeVideoRepo) FindStaleProcessing(_ context.Context, startedBefore time.Time) ([]*entity.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.staleErr != nil {
		return nil, r.staleErr
	}
	var out []*entity.Video
	for _, v := range r.videos {
		if v.Status == entity.VideoStatusProcessing && v.ProcessingStartedAt != nil && v.ProcessingStartedAt.Before(startedBefore) {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeVideoRepo) get(id uuid.UUID) *entity.Video {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.videos[id]
}

type fakeTableCatalog struct {
	mu          sync.Mutex
	tables      []entity.Table
	known       map[int64]entity.Table
	byCameraErr error
	byIDsCalls  int
	requested   []int64
	scopes      []entity.Scope
}

func (c *fakeTableCatalog) FindByCamera(context.Context, entity.Scope, int64, int64) ([]entity.Table, error) {
	return c.tables, c.byCameraErr
}

func (c *fakeTableCatalog) FindByIDs(_ context.Context, scope entity.Scope, ids []int64) (map[int64]entity.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byIDsCalls++
	c.requested = append(c.requested, ids...)
	c.scopes = append(c.scopes, scope)
	out := make(map[int64]entity.Table)
	for _, id := range ids {
		if t, ok := c.known[id]; ok && t.TenantID == scope.TenantID && t.BranchID == scope.BranchID {
			out[id] = t
		}
	}
	return out, nil
}

type fakeFrameRepo struct {
	mu      sync.Mutex
	batches [][]*entity.Frame
	saveErr error
}

func (r *fakeFrameRepo) SaveBatch(_ context.Context, frames []*entity.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.batches = append(r.batches, frames)
	return nil
}

func (r *fakeFrameRepo) ListByVideo(_ context.Context, id uuid.UUID) ([]*entity.Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Frame
	for _, b := range r.batches {
		for _, f := range b {
			if f.VideoID != nil && *f.VideoID == id {
				out = append(out, f)
			}
		}
	}
	return out, nil
}

func (r *fakeFrameRepo) all() []*entity.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Frame
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out
}

type fakeStorage struct {
	downloadErr error
	uploadErr   error
	uploaded    map[string]string
}

func (s *fakeStorage) UploadVideo(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if s.uploaded == nil {
		s.uploaded = make(map[string]string)
	}
	s.uploaded[key] = string(data)
	return nil
}

func (s *fakeStorage) DownloadVideo(_ context.Context, _ string, dest string) error {
	if s.downloadErr != nil {
		return s.downloadErr
	}
	return os.WriteFile(dest, []byte("video"), 0644)
}

type fakeExtractor struct {
	mu          sync.Mutex
	duration    float64
	durationErr error
	failAt      map[float64]bool
	offsets     []float64
	outputs     []string
}

func (e *fakeExtractor) Duration(context.Context, string) (float64, error) {
	return e.duration, e.durationErr
}

func (e *fakeExtractor) ExtractFrame(_ context.Context, _ string, offset float64, out string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.offsets = append(e.offsets, offset)
	if e.failAt[offset] {
		return "", fmt.Errorf("%w: offset %.0f", entity.ErrExtractorTimeout, offset)
	}
	e.outputs = append(e.outputs, out)
	return "1920x1080", nil
}

// fakeEngine answers every call with a result for the requested table unless
// detect is set.
type fakeEngine struct {
	mu       sync.Mutex
	calls    int
	requests []port.DetectionRequest
	detect   func(call int, req port.DetectionRequest) (*entity.DetectionResult, error)
}

func (e *fakeEngine) Detect(ctx context.Context, req port.DetectionRequest) (*entity.DetectionResult, error) {
	e.mu.Lock()
	e.calls++
	call := e.calls
	e.requests = append(e.requests, req)
	e.mu.Unlock()

	if e.detect != nil {
		return e.detect(call, req)
	}
	tableID := req.TableID
	return &entity.DetectionResult{
		TableID:    &tableID,
		Resolution: "1920x1080",
		Counts:     entity.DetectionCounts{PersonsDetected: 1, TotalDetected: 1},
		Status:     "completed",
	}, nil
}

type fakeDLQ struct {
	mu      sync.Mutex
	reasons []string
}

func (d *fakeDLQ) PublishToDLQ(_ context.Context, _ []byte, reason string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reasons = append(d.reasons, reason)
	return nil
}

type fakeRunPublisher struct {
	messages [][]byte
	err      error
}

func (p *fakeRunPublisher) PublishRun(_ context.Context, msg []byte) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	videoIDs []string
	errors   []string
}

func (n *fakeNotifier) NotifyFailure(_ context.Context, videoID, _ string, errorMsg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.videoIDs = append(n.videoIDs, videoID)
	n.errors = append(n.errors, errorMsg)
	return nil
}

func table(id int64, coords ...int) entity.Table {
	t := entity.Table{ID: id, TenantID: 1, BranchID: 2, ZoneID: 3, CameraID: 4}
	for i := 0; i+1 < len(coords); i += 2 {
		t.Coordinates = append(t.Coordinates, entity.Coordinate{ID: int64(i), X: coords[i], Y: coords[i+1]})
	}
	return t
}

func uploadedVideo() *entity.Video {
	return entity.NewVideo(entity.NewVideoParams{
		Scope:            entity.Scope{TenantID: 1, BranchID: 2},
		ZoneID:           3,
		CameraID:         4,
		OriginalFileName: "lobby.mp4",
		FileName:         "abc_lobby.mp4",
		FileSize:         10,
		ContentType:      "video/mp4",
		StoragePath:      "1/2/abc_lobby.mp4",
	})
}
