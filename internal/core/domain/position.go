package domain

import "math"

// Position is a point in a named world. Distances are only defined between
// positions in the same world; the fare dispatcher decides what a
// cross-world journey costs.
type Position struct {
	World string  `json:"world"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

// DistanceTo returns the straight-line distance to other. The second return
// is false when the positions are in different worlds, in which case the
// distance value is meaningless.
func (p Position) DistanceTo(other Position) (float64, bool) {
	if p.World != other.World {
		return 0, false
	}
	dx := p.X - other.X
	dy := p.Y - other.Y
	dz := p.Z - other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz), true
}
