package entity

import "strconv"

// Coordinate is one polygon vertex. ID gives the insertion order.
type Coordinate struct {
	ID int64
	X  int
	Y  int
}

type Table struct {
	ID          int64
	TenantID    int64
	BranchID    int64
	ZoneID      int64
	CameraID    int64
	Name        string
	Coordinates []Coordinate
}

// Flatten returns the polygon as x1,y1,x2,y2,... tokens in the order the
// coordinates are held. Winding matters to the engine, so no sorting or dedup.
func (t Table) Flatten() []string {
	tokens := make([]string, 0, len(t.Coordinates)*2)
	for _, c := range t.Coordinates {
		tokens = append(tokens, strconv.Itoa(c.X), strconv.Itoa(c.Y))
	}
	return tokens
}

// Zone is a table's monitored polygon packaged for one engine call.
type Zone struct {
	TableID int64
	Polygon []string
}
