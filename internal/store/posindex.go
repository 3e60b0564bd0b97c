package store

import (
	"sort"

	"github.com/freeeve/blockmapper/internal/blockpos"
)

type xy struct {
	x, y int16
}

// positionIndex maps z to the (x, y) pairs stored in that slice, sorted
// by x then y. It is built once and never resorted.
type positionIndex struct {
	byZ   map[int16][]xy
	zs    []int16 // sorted keys of byZ
	count int
}

func newPositionIndex() *positionIndex {
	return &positionIndex{byZ: make(map[int16][]xy)}
}

func (ix *positionIndex) add(p blockpos.Pos) {
	ix.byZ[p.Z] = append(ix.byZ[p.Z], xy{p.X, p.Y})
}

// finish sorts every bucket and drops duplicate keys. It must be called
// once after the last add.
func (ix *positionIndex) finish() {
	ix.zs = ix.zs[:0]
	ix.count = 0
	for z, bucket := range ix.byZ {
		sort.Slice(bucket, func(i, j int) bool {
			if bucket[i].x != bucket[j].x {
				return bucket[i].x < bucket[j].x
			}
			return bucket[i].y < bucket[j].y
		})
		out := bucket[:0]
		for i, e := range bucket {
			if i > 0 && e == bucket[i-1] {
				continue
			}
			out = append(out, e)
		}
		ix.byZ[z] = out
		ix.zs = append(ix.zs, z)
		ix.count += len(out)
	}
	sort.Slice(ix.zs, func(i, j int) bool { return ix.zs[i] < ix.zs[j] })
}

// lowerBoundX returns the first index in bucket whose x is >= x.
func lowerBoundX(bucket []xy, x int16) int {
	return sort.Search(len(bucket), func(i int) bool { return bucket[i].x >= x })
}

// each calls fn for every indexed position in the box, ordered by z, x
// and y.
func (ix *positionIndex) each(min, max blockpos.Pos, fn func(p blockpos.Pos)) {
	start := sort.Search(len(ix.zs), func(i int) bool { return ix.zs[i] >= min.Z })
	for _, z := range ix.zs[start:] {
		if z >= max.Z {
			break
		}
		bucket := ix.byZ[z]
		for _, e := range bucket[lowerBoundX(bucket, min.X):] {
			if e.x >= max.X {
				break
			}
			if e.y < min.Y || e.y >= max.Y {
				continue
			}
			fn(blockpos.Pos{X: e.x, Y: e.y, Z: z})
		}
	}
}

func (ix *positionIndex) positions(min, max blockpos.Pos) []blockpos.Pos {
	var out []blockpos.Pos
	ix.each(min, max, func(p blockpos.Pos) {
		out = append(out, p)
	})
	return out
}

// columns returns the distinct (x, z) pairs in the box. Buckets are
// sorted by x, so comparing against the previous entry is enough.
func (ix *positionIndex) columns(min, max blockpos.Pos) []blockpos.Pos {
	var out []blockpos.Pos
	ix.each(min, max, func(p blockpos.Pos) {
		c := p.Column()
		if n := len(out); n > 0 && out[n-1] == c {
			return
		}
		out = append(out, c)
	})
	return out
}

// column returns the y values stored at (x, z) within [minY, maxY).
func (ix *positionIndex) column(x, z, minY, maxY int16) []int16 {
	bucket, ok := ix.byZ[z]
	if !ok {
		return nil
	}
	var ys []int16
	for _, e := range bucket[lowerBoundX(bucket, x):] {
		if e.x != x {
			break
		}
		if e.y < minY || e.y >= maxY {
			continue
		}
		ys = append(ys, e.y)
	}
	return ys
}
