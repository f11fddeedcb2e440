package merge

import (
	"fmt"
	"math"

	"github.com/bsaid97/go-river-driver/smsmap"
)

// JointIndex is a grid-cell index over the recorded intersection-joint
// points, used to find the joint (if any) a vertex should snap to.
type JointIndex struct {
	cellSize float64
	grid     map[string][]smsmap.Point
	count    int
}

func NewJointIndex(cellSize float64) *JointIndex {
	return &JointIndex{
		cellSize: cellSize,
		grid:     make(map[string][]smsmap.Point),
	}
}

func (ji *JointIndex) Add(p smsmap.Point) {
	key := ji.cellKey(p.X, p.Y)
	ji.grid[key] = append(ji.grid[key], p)
	ji.count++
}

// Len returns the number of indexed joints.
func (ji *JointIndex) Len() int {
	return ji.count
}

// Nearest returns the closest joint within distance of (x, y).
func (ji *JointIndex) Nearest(x, y, distance float64) (smsmap.Point, bool) {
	minCellX := int(math.Floor((x - distance) / ji.cellSize))
	minCellY := int(math.Floor((y - distance) / ji.cellSize))
	maxCellX := int(math.Floor((x + distance) / ji.cellSize))
	maxCellY := int(math.Floor((y + distance) / ji.cellSize))

	var best smsmap.Point
	bestDist := distance
	found := false
	for cx := minCellX; cx <= maxCellX; cx++ {
		for cy := minCellY; cy <= maxCellY; cy++ {
			for _, joint := range ji.grid[getCellKey(cx, cy)] {
				d := math.Hypot(joint.X-x, joint.Y-y)
				if d <= bestDist {
					best = joint
					bestDist = d
					found = true
				}
			}
		}
	}
	return best, found
}

func (ji *JointIndex) cellKey(x, y float64) string {
	return getCellKey(int(math.Floor(x/ji.cellSize)), int(math.Floor(y/ji.cellSize)))
}

func getCellKey(x, y int) string {
	return fmt.Sprintf("%d,%d", x, y)
}
