package scan

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/freeeve/blockmapper/internal/block"
	"github.com/freeeve/blockmapper/internal/blockpos"
	"github.com/freeeve/blockmapper/internal/store"
)

// columnArea is the number of node columns in one block column.
const columnArea = blockpos.BlockSize * blockpos.BlockSize

// columnTop holds the top-most material of each node column of one block
// column. Material 0 means nothing found yet.
type columnTop struct {
	material [columnArea]uint32
	height   [columnArea]int32
}

// TopView holds the top-most material of every node column in a window.
// Only visited block columns take memory, so a window spanning the whole
// map costs no more than the columns actually stored in it.
type TopView struct {
	Window  Geometry
	names   []string // material id - 1 -> name
	ids     map[string]uint32
	columns map[blockpos.Pos]*columnTop

	Columns       int // block columns visited
	BlocksDecoded int
	BlocksFailed  int
	Filled        int // node columns with a material
}

func newTopView(g Geometry) *TopView {
	return &TopView{
		Window:  g,
		ids:     make(map[string]uint32),
		columns: make(map[blockpos.Pos]*columnTop),
	}
}

func (v *TopView) inWindow(x, z int) bool {
	dx, dz := x-v.Window.X, z-v.Window.Z
	return dx >= 0 && dz >= 0 && dx < v.Window.W && dz < v.Window.H
}

// locate maps node column (x, z) to its block column and the index within
// it.
func (v *TopView) locate(x, z int) (blockpos.Pos, int, bool) {
	const bs = blockpos.BlockSize
	if !v.inWindow(x, z) {
		return blockpos.Pos{}, 0, false
	}
	cx, cz := floorDiv(x, bs), floorDiv(z, bs)
	if cx < blockpos.MinCoord || cx > blockpos.MaxCoord || cz < blockpos.MinCoord || cz > blockpos.MaxCoord {
		return blockpos.Pos{}, 0, false
	}
	return blockpos.Pos{X: int16(cx), Z: int16(cz)}, (z-cz*bs)*bs + (x - cx*bs), true
}

func (v *TopView) materialID(name string) uint32 {
	id, ok := v.ids[name]
	if !ok {
		v.names = append(v.names, name)
		id = uint32(len(v.names))
		v.ids[name] = id
	}
	return id
}

// At returns the top-most material at node column (x, z) and its node y.
// ok is false outside the window or where nothing was found.
func (v *TopView) At(x, z int) (name string, y int, ok bool) {
	c, i, in := v.locate(x, z)
	if !in {
		return "", 0, false
	}
	top := v.columns[c]
	if top == nil || top.material[i] == 0 {
		return "", 0, false
	}
	return v.names[top.material[i]-1], int(top.height[i]), true
}

// Materials counts the node columns topped by each material.
func (v *TopView) Materials() map[string]int {
	out := make(map[string]int)
	for _, top := range v.columns {
		for _, id := range top.material {
			if id != 0 {
				out[v.names[id-1]]++
			}
		}
	}
	return out
}

// Surface finds the top-most material of every node column in r.
//
// Columns are visited z-slice by z-slice as the legacy sqlite3 column
// cache expects. Backends without range pushdown have their columns
// derived from the position list. Blocks are decoded from the top down
// and a column stops once all of its 256 node columns are known. A block
// that fails to decode is logged and skipped.
func Surface(b store.Backend, dec *block.Decoder, r Region, log zerolog.Logger) (*TopView, error) {
	min, max := r.BlockBox()
	cols, err := columnsOf(b, min, max)
	if err != nil {
		return nil, err
	}

	var g Geometry
	switch {
	case r.Geometry != nil:
		g = *r.Geometry
	case len(cols) == 0:
		return newTopView(Geometry{}), nil
	default:
		g = extentOf(cols).Geometry()
	}
	view := newTopView(g)

	const bs = blockpos.BlockSize
	for _, c := range cols {
		blocks, err := b.BlocksInColumn(c.X, c.Z, min.Y, max.Y)
		if err != nil {
			return nil, err
		}
		view.Columns++
		sort.Slice(blocks, func(i, j int) bool { return blocks[i].Pos.Y > blocks[j].Pos.Y })

		remaining := 0
		for lz := 0; lz < bs; lz++ {
			for lx := 0; lx < bs; lx++ {
				if view.inWindow(int(c.X)*bs+lx, int(c.Z)*bs+lz) {
					remaining++
				}
			}
		}
		if remaining == 0 {
			continue
		}
		top := &columnTop{}
		view.columns[c.Column()] = top
		for _, blk := range blocks {
			if remaining == 0 {
				break
			}
			if err := dec.Decode(blk.Data); err != nil {
				view.BlocksFailed++
				log.Warn().Err(err).Stringer("pos", blk.Pos).Msg("skipping undecodable block")
				continue
			}
			view.BlocksDecoded++
			if dec.IsEmpty() {
				continue
			}
			remaining -= view.fill(top, dec, blk.Pos, r)
		}
	}
	for _, top := range view.columns {
		for _, id := range top.material {
			if id != 0 {
				view.Filled++
			}
		}
	}
	log.Debug().Int("columns", view.Columns).Int("decoded", view.BlocksDecoded).
		Int("failed", view.BlocksFailed).Msg("surface scan done")
	return view, nil
}

// fill records into top the top-most material of each unfilled node
// column of the decoded block at p and returns how many it filled.
func (v *TopView) fill(top *columnTop, dec *block.Decoder, p blockpos.Pos, r Region) int {
	const bs = blockpos.BlockSize
	filled := 0
	for lz := 0; lz < bs; lz++ {
		for lx := 0; lx < bs; lx++ {
			i := lz*bs + lx
			if top.material[i] != 0 || !v.inWindow(int(p.X)*bs+lx, int(p.Z)*bs+lz) {
				continue
			}
			for ly := bs - 1; ly >= 0; ly-- {
				y := int(p.Y)*bs + ly
				if y < r.MinY || y > r.MaxY {
					continue
				}
				if name := dec.Node(lx, ly, lz); name != "" {
					top.material[i] = v.materialID(name)
					top.height[i] = int32(y)
					filled++
					break
				}
			}
		}
	}
	return filled
}

// columnsOf lists the columns in [min, max) ordered by z, then x.
func columnsOf(b store.Backend, min, max blockpos.Pos) ([]blockpos.Pos, error) {
	var cols []blockpos.Pos
	if b.PrefersRangeQueries() {
		var err error
		if cols, err = b.ListColumns(min, max); err != nil {
			return nil, err
		}
	} else {
		ps, err := b.ListPositions(min, max)
		if err != nil {
			return nil, err
		}
		cols = groupByColumn(ps)
	}
	sortColumns(cols)
	return cols, nil
}

// groupByColumn returns the distinct columns of ps.
func groupByColumn(ps []blockpos.Pos) []blockpos.Pos {
	seen := make(map[blockpos.Pos]struct{}, len(ps))
	var cols []blockpos.Pos
	for _, p := range ps {
		c := p.Column()
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		cols = append(cols, c)
	}
	return cols
}

func sortColumns(cols []blockpos.Pos) {
	sort.Slice(cols, func(i, j int) bool {
		if cols[i].Z != cols[j].Z {
			return cols[i].Z < cols[j].Z
		}
		return cols[i].X < cols[j].X
	})
}
