package main

// Entity kinds stored in the spatial grid
const (
	KindPlayer    byte = 'p'
	KindSplitBall byte = 'b'
	KindFood      byte = 'f'
)

// GridEntity is one entry in the spatial grid. Ref points at the
// underlying *Player, *SplitBall or *Food; ID is the stable dedup key
// (an entity inserted into several cells must be returned once).
type GridEntity struct {
	ID   string
	Kind byte
	X, Y float64
	Size float64
	Ref  interface{}
}

// SpatialGrid bins entities into uniform square cells for broad-phase
// proximity queries. Rebuilt from scratch every tick; holds no identity
// across ticks.
type SpatialGrid struct {
	cellSize float64
	cols     int
	rows     int
	cells    [][]GridEntity
}

// NewSpatialGrid creates a grid covering a mapW x mapH rectangle.
// cellSize should be about 2x the largest expected entity diameter so
// queries touch a small constant number of cells.
func NewSpatialGrid(cellSize, mapW, mapH float64) *SpatialGrid {
	cols := int(mapW/cellSize) + 1
	rows := int(mapH/cellSize) + 1
	return &SpatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    make([][]GridEntity, cols*rows),
	}
}

// Clear resets all cells (keeps allocated capacity)
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// cellRange returns the clamped cell index range covering the bounding
// square [x-r, x+r] x [y-r, y+r].
func (g *SpatialGrid) cellRange(x, y, r float64) (minCX, maxCX, minCY, maxCY int) {
	minCX = int((x - r) / g.cellSize)
	maxCX = int((x + r) / g.cellSize)
	minCY = int((y - r) / g.cellSize)
	maxCY = int((y + r) / g.cellSize)
	if minCX < 0 {
		minCX = 0
	}
	if maxCX >= g.cols {
		maxCX = g.cols - 1
	}
	if minCY < 0 {
		minCY = 0
	}
	if maxCY >= g.rows {
		maxCY = g.rows - 1
	}
	return
}

// Insert adds an entity to every cell its bounding square overlaps.
// Size 0 entities occupy a single cell.
func (g *SpatialGrid) Insert(e GridEntity) {
	minCX, maxCX, minCY, maxCY := g.cellRange(e.X, e.Y, e.Size)
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			idx := cy*g.cols + cx
			g.cells[idx] = append(g.cells[idx], e)
		}
	}
}

// GetNearby returns the entities whose center lies within radius of
// (x, y), optionally filtered by kind (0 matches all). Cell membership
// is a coarse prefilter; exact distance is re-checked, and entities
// spanning several cells are deduplicated by ID.
func (g *SpatialGrid) GetNearby(x, y, radius float64, kind byte) []GridEntity {
	minCX, maxCX, minCY, maxCY := g.cellRange(x, y, radius)

	var result []GridEntity
	seen := make(map[string]struct{})
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			for _, e := range g.cells[cy*g.cols+cx] {
				if kind != 0 && e.Kind != kind {
					continue
				}
				if _, dup := seen[e.ID]; dup {
					continue
				}
				if Distance(x, y, e.X, e.Y) <= radius {
					seen[e.ID] = struct{}{}
					result = append(result, e)
				}
			}
		}
	}
	return result
}
