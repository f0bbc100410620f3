package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/abdulrahman-963/new-pluta/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("pluta"),
		tcpostgres.WithUsername("pluta"),
		tcpostgres.WithPassword("pluta"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, RunMigrations(connStr, "../../../migrations"))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func seedTable(t *testing.T, pool *pgxpool.Pool, scope entity.Scope, zoneID, cameraID int64, coords ...[2]int) int64 {
	t.Helper()
	ctx := context.Background()

	var id int64
	err := pool.QueryRow(ctx,
		`INSERT INTO zone_tables (tenant_id, branch_id, zone_id, camera_id, name)
		 VALUES ($1,$2,$3,$4,'t') RETURNING id`,
		scope.TenantID, scope.BranchID, zoneID, cameraID,
	).Scan(&id)
	require.NoError(t, err)

	for _, c := range coords {
		_, err := pool.Exec(ctx, `INSERT INTO table_coordinates (table_id, x, y) VALUES ($1,$2,$3)`, id, c[0], c[1])
		require.NoError(t, err)
	}
	return id
}

func TestVideoRepositoryLifecycle(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	repo := NewVideoRepository(pool)
	scope := entity.Scope{TenantID: 7, BranchID: 3}

	v := entity.NewVideo(entity.NewVideoParams{
		Scope:            scope,
		ZoneID:           11,
		CameraID:         12,
		OriginalFileName: "lobby.mp4",
		FileName:         "abc_lobby.mp4",
		FileSize:         1024,
		ContentType:      "video/mp4",
		StoragePath:      "7/3/abc_lobby.mp4",
	})
	require.NoError(t, repo.Create(ctx, v))

	got, err := repo.FindByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.VideoStatusUploaded, got.Status)
	assert.Equal(t, scope, got.Scope())
	assert.Nil(t, got.Duration)

	v.MarkProcessing()
	require.NoError(t, repo.Update(ctx, v, entity.VideoStatusUploaded))
	v.MarkCompleted(25.5, 3)
	require.NoError(t, repo.Update(ctx, v, entity.VideoStatusProcessing))

	got, err = repo.FindByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.VideoStatusCompleted, got.Status)
	require.NotNil(t, got.Duration)
	assert.InDelta(t, 25.5, *got.Duration, 0.0001)
	require.NotNil(t, got.FramesExtracted)
	assert.Equal(t, 3, *got.FramesExtracted)
	assert.NotNil(t, got.ProcessingCompletedAt)

	list, err := repo.ListByScope(ctx, scope, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = repo.ListByScope(ctx, entity.Scope{TenantID: 8, BranchID: 3}, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, entity.ErrVideoNotFound)
}

func TestVideoRepositoryUpdateRequiresExpectedStatus(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	repo := NewVideoRepository(pool)

	v := entity.NewVideo(entity.NewVideoParams{Scope: entity.Scope{TenantID: 1, BranchID: 1}, FileName: "race"})
	v.MarkProcessing()
	require.NoError(t, repo.Create(ctx, v))

	failed := *v
	failed.MarkFailed("run abandoned", nil)
	require.NoError(t, repo.Update(ctx, &failed, entity.VideoStatusProcessing))

	v.MarkCompleted(10, 1)
	err := repo.Update(ctx, v, entity.VideoStatusProcessing)
	assert.ErrorIs(t, err, entity.ErrStatusConflict)

	got, err := repo.FindByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.VideoStatusFailed, got.Status)
	assert.Nil(t, got.FramesExtracted)

	missing := entity.NewVideo(entity.NewVideoParams{FileName: "missing"})
	err = repo.Update(ctx, missing, entity.VideoStatusUploaded)
	assert.ErrorIs(t, err, entity.ErrVideoNotFound)
}

func TestVideoRepositoryFindStaleProcessing(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	repo := NewVideoRepository(pool)

	stale := entity.NewVideo(entity.NewVideoParams{Scope: entity.Scope{TenantID: 1, BranchID: 1}, FileName: "a"})
	stale.MarkProcessing()
	old := time.Now().UTC().Add(-2 * time.Hour)
	stale.ProcessingStartedAt = &old
	require.NoError(t, repo.Create(ctx, stale))

	fresh := entity.NewVideo(entity.NewVideoParams{Scope: entity.Scope{TenantID: 1, BranchID: 1}, FileName: "b"})
	fresh.MarkProcessing()
	require.NoError(t, repo.Create(ctx, fresh))

	found, err := repo.FindStaleProcessing(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, stale.ID, found[0].ID)
}

func TestFrameRepositorySaveBatch(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	videos := NewVideoRepository(pool)
	frames := NewFrameRepository(pool)

	v := entity.NewVideo(entity.NewVideoParams{Scope: entity.Scope{TenantID: 2, BranchID: 5}, FileName: "v"})
	require.NoError(t, videos.Create(ctx, v))

	now := time.Now().UTC()
	tableID := int64(42)
	withTable := &entity.Frame{
		ID:                  uuid.New(),
		VideoID:             &v.ID,
		TenantID:            2,
		BranchID:            5,
		TableID:             &tableID,
		FrameOffsetSeconds:  10,
		Resolution:          "1920x1080",
		Counts:              entity.DetectionCounts{PersonsDetected: 2, OccupiedChairs: 1, TotalDetected: 4},
		ConfidenceThreshold: 0.4,
		Status:              entity.AnalysisStatusCompleted,
		CreatedAt:           now,
	}
	withoutTable := &entity.Frame{
		ID:                  uuid.New(),
		VideoID:             &v.ID,
		TenantID:            2,
		BranchID:            5,
		Resolution:          "1920x1080",
		ConfidenceThreshold: 0.4,
		Status:              entity.AnalysisStatusCompleted,
		CreatedAt:           now,
	}
	batch := []*entity.Frame{withTable, withoutTable}
	require.NoError(t, frames.SaveBatch(ctx, batch))
	require.NoError(t, frames.SaveBatch(ctx, nil))

	got, err := frames.ListByVideo(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0.0, got[0].FrameOffsetSeconds)
	assert.Nil(t, got[0].TableID)
	require.NotNil(t, got[1].TableID)
	assert.Equal(t, tableID, *got[1].TableID)
	assert.Equal(t, 2, got[1].Counts.PersonsDetected)
	assert.Equal(t, int64(2), got[1].TenantID)
}

func TestTableCatalog(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	catalog := NewTableCatalog(pool)
	scope := entity.Scope{TenantID: 1, BranchID: 2}

	first := seedTable(t, pool, scope, 3, 4, [2]int{10, 20}, [2]int{30, 40}, [2]int{5, 6})
	empty := seedTable(t, pool, scope, 3, 4)
	seedTable(t, pool, scope, 3, 99, [2]int{1, 1})

	tables, err := catalog.FindByCamera(ctx, scope, 3, 4)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, first, tables[0].ID)
	assert.Equal(t, []string{"10", "20", "30", "40", "5", "6"}, tables[0].Flatten())
	assert.Equal(t, empty, tables[1].ID)
	assert.Empty(t, tables[1].Coordinates)

	foreign := seedTable(t, pool, entity.Scope{TenantID: 9, BranchID: 2}, 3, 4, [2]int{1, 1})

	byID, err := catalog.FindByIDs(ctx, scope, []int64{first, foreign, 9999})
	require.NoError(t, err)
	assert.Len(t, byID, 1)
	assert.Equal(t, int64(4), byID[first].CameraID)
	assert.NotContains(t, byID, foreign)

	byID, err = catalog.FindByIDs(ctx, scope, nil)
	require.NoError(t, err)
	assert.Empty(t, byID)
}
