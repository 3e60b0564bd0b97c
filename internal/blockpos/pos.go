package blockpos

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// MinCoord and MaxCoord bound every coordinate that survives a key
	// round trip.
	MinCoord = -2048
	MaxCoord = 2047

	// BlockSize is the edge length of a map block in nodes.
	BlockSize = 16
)

// Pos is the position of a map block in block coordinates.
type Pos struct {
	X, Y, Z int16
}

// String returns the position as "(x,y,z)".
func (p Pos) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z)
}

// InBox reports whether p lies in the half-open box [min, max).
func (p Pos) InBox(min, max Pos) bool {
	return p.X >= min.X && p.X < max.X &&
		p.Y >= min.Y && p.Y < max.Y &&
		p.Z >= min.Z && p.Z < max.Z
}

// Column returns p with Y zeroed, identifying its (x,z) column.
func (p Pos) Column() Pos {
	return Pos{X: p.X, Z: p.Z}
}

// Valid reports whether every coordinate can be encoded into a key.
func (p Pos) Valid() bool {
	return inRange(int(p.X)) && inRange(int(p.Y)) && inRange(int(p.Z))
}

func inRange(v int) bool {
	return v >= MinCoord && v <= MaxCoord
}

// Parse parses "x,y,z".
func Parse(s string) (Pos, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Pos{}, fmt.Errorf("invalid position %q: want x,y,z", s)
	}
	var v [3]int16
	for i, part := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 16)
		if err != nil {
			return Pos{}, fmt.Errorf("invalid position %q: %w", s, err)
		}
		v[i] = int16(n)
	}
	return Pos{X: v[0], Y: v[1], Z: v[2]}, nil
}
