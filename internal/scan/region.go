// Package scan walks a block store the way a map renderer does: column by
// column, one z-slice at a time, decoding blocks top-down.
package scan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/freeeve/blockmapper/internal/blockpos"
)

// Geometry is a rectangle of node columns: x in [X, X+W), z in [Z, Z+H).
type Geometry struct {
	X, Z, W, H int
}

// ParseGeometry parses "x:z+w+h". Width and height must be positive.
func ParseGeometry(s string) (Geometry, error) {
	bad := fmt.Errorf("invalid geometry %q: want x:z+w+h", s)
	xs, rest, ok := strings.Cut(s, ":")
	if !ok {
		return Geometry{}, bad
	}
	if rest == "" {
		return Geometry{}, bad
	}
	// z may carry a sign, so split on '+' after its first character.
	parts := strings.Split(rest[1:], "+")
	if len(parts) != 3 {
		return Geometry{}, bad
	}
	parts[0] = rest[:1] + parts[0]

	var v [4]int
	for i, p := range append([]string{xs}, parts...) {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Geometry{}, bad
		}
		v[i] = n
	}
	g := Geometry{X: v[0], Z: v[1], W: v[2], H: v[3]}
	if g.W < 1 || g.H < 1 {
		return Geometry{}, bad
	}
	return g, nil
}

// String formats g as "x:z+w+h".
func (g Geometry) String() string {
	return fmt.Sprintf("%d:%d+%d+%d", g.X, g.Z, g.W, g.H)
}

// Region selects the part of a map to scan. Y limits are node
// coordinates, both inclusive.
type Region struct {
	Geometry *Geometry // nil covers the whole map
	MinY     int
	MaxY     int
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func clampCoord(v int) int16 {
	if v < blockpos.MinCoord {
		return blockpos.MinCoord
	}
	if v > blockpos.MaxCoord+1 {
		return blockpos.MaxCoord + 1
	}
	return int16(v)
}

// BlockBox returns the half-open box of block positions the region
// touches, clamped to the encodable range.
func (r Region) BlockBox() (min, max blockpos.Pos) {
	const bs = blockpos.BlockSize
	min = blockpos.Pos{X: blockpos.MinCoord, Z: blockpos.MinCoord}
	max = blockpos.Pos{X: blockpos.MaxCoord + 1, Z: blockpos.MaxCoord + 1}
	if g := r.Geometry; g != nil {
		min.X = clampCoord(floorDiv(g.X, bs))
		min.Z = clampCoord(floorDiv(g.Z, bs))
		max.X = clampCoord(floorDiv(g.X+g.W-1, bs) + 1)
		max.Z = clampCoord(floorDiv(g.Z+g.H-1, bs) + 1)
	}
	min.Y = clampCoord(floorDiv(r.MinY, bs))
	max.Y = clampCoord(floorDiv(r.MaxY, bs) + 1)
	return min, max
}
