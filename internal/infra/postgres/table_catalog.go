package postgres

import (
	"context"
	"fmt"

	"github.com/abdulrahman-963/new-pluta/internal/domain/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const tableSelect = `
	SELECT t.id, t.tenant_id, t.branch_id, t.zone_id, t.camera_id, t.name,
	       c.id, c.x, c.y
	FROM zone_tables t
	LEFT JOIN table_coordinates c ON c.table_id = t.id`

// TableCatalog reads tables and their polygons. Coordinates come back in
// insertion order, which is the winding the engine expects.
type TableCatalog struct {
	pool *pgxpool.Pool
}

func NewTableCatalog(pool *pgxpool.Pool) *TableCatalog {
	return &TableCatalog{pool: pool}
}

func (c *TableCatalog) FindByCamera(ctx context.Context, scope entity.Scope, zoneID, cameraID int64) ([]entity.Table, error) {
	query := tableSelect + `
		WHERE t.tenant_id=$1 AND t.branch_id=$2 AND t.zone_id=$3 AND t.camera_id=$4
		ORDER BY t.id, c.id`

	rows, err := c.pool.Query(ctx, query, scope.TenantID, scope.BranchID, zoneID, cameraID)
	if err != nil {
		return nil, fmt.Errorf("query tables by camera: %w", err)
	}
	return collectTables(rows)
}

// FindByIDs ignores ids that belong to another tenant or branch.
func (c *TableCatalog) FindByIDs(ctx context.Context, scope entity.Scope, ids []int64) (map[int64]entity.Table, error) {
	if len(ids) == 0 {
		return map[int64]entity.Table{}, nil
	}

	query := tableSelect + `
		WHERE t.tenant_id=$1 AND t.branch_id=$2 AND t.id = ANY($3)
		ORDER BY t.id, c.id`

	rows, err := c.pool.Query(ctx, query, scope.TenantID, scope.BranchID, ids)
	if err != nil {
		return nil, fmt.Errorf("query tables by ids: %w", err)
	}
	tables, err := collectTables(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]entity.Table, len(tables))
	for _, t := range tables {
		byID[t.ID] = t
	}
	return byID, nil
}

// collectTables folds the joined rows into one Table per id. Rows must be
// ordered by table id.
func collectTables(rows pgx.Rows) ([]entity.Table, error) {
	defer rows.Close()

	var tables []entity.Table
	for rows.Next() {
		var (
			t      entity.Table
			cid    *int64
			cx, cy *int
		)
		if err := rows.Scan(&t.ID, &t.TenantID, &t.BranchID, &t.ZoneID, &t.CameraID, &t.Name, &cid, &cx, &cy); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}

		if n := len(tables); n == 0 || tables[n-1].ID != t.ID {
			tables = append(tables, t)
		}
		if cid != nil {
			last := &tables[len(tables)-1]
			last.Coordinates = append(last.Coordinates, entity.Coordinate{ID: *cid, X: *cx, Y: *cy})
		}
	}
	return tables, rows.Err()
}
