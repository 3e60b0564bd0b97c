package scan

import (
	"github.com/freeeve/blockmapper/internal/blockpos"
	"github.com/freeeve/blockmapper/internal/store"
)

// Extent is the bounding box of the stored columns in a region.
type Extent struct {
	Min, Max blockpos.Pos // inclusive block columns, Y unused
	Columns  int
}

// Geometry returns the node rectangle covering e.
func (e Extent) Geometry() Geometry {
	const bs = blockpos.BlockSize
	return Geometry{
		X: int(e.Min.X) * bs,
		Z: int(e.Min.Z) * bs,
		W: (int(e.Max.X) - int(e.Min.X) + 1) * bs,
		H: (int(e.Max.Z) - int(e.Min.Z) + 1) * bs,
	}
}

// FindExtent returns the extent of every column holding a block in r.
// It reports false when there is none.
func FindExtent(b store.Backend, r Region) (Extent, bool, error) {
	min, max := r.BlockBox()
	cols, err := b.ListColumns(min, max)
	if err != nil {
		return Extent{}, false, err
	}
	if len(cols) == 0 {
		return Extent{}, false, nil
	}
	return extentOf(cols), true, nil
}

// extentOf bounds a non-empty column list.
func extentOf(cols []blockpos.Pos) Extent {
	e := Extent{Min: cols[0], Max: cols[0], Columns: len(cols)}
	for _, c := range cols[1:] {
		if c.X < e.Min.X {
			e.Min.X = c.X
		}
		if c.X > e.Max.X {
			e.Max.X = c.X
		}
		if c.Z < e.Min.Z {
			e.Min.Z = c.Z
		}
		if c.Z > e.Max.Z {
			e.Max.Z = c.Z
		}
	}
	return e
}
