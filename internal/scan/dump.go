package scan

import (
	"fmt"
	"sort"

	"github.com/freeeve/blockmapper/internal/block"
	"github.com/freeeve/blockmapper/internal/blockpos"
	"github.com/freeeve/blockmapper/internal/store"
)

// BlockDump describes one decoded block.
type BlockDump struct {
	Pos          blockpos.Pos
	Size         int // stored bytes
	Version      int
	ContentWidth int
	Names        []block.NodeName
	Materials    []MaterialCount // most common first
	Unknown      int             // nodes whose id has no name
}

// MaterialCount is the number of nodes of one material in a block.
type MaterialCount struct {
	Name  string
	Nodes int
}

// DumpBlock fetches the block at pos and decodes it with dec. It returns
// store.ErrNotFound when the block is not stored.
func DumpBlock(b store.Backend, dec *block.Decoder, pos blockpos.Pos) (*BlockDump, error) {
	blocks, err := b.BlocksAtPositions([]blockpos.Pos{pos})
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("block %v: %w", pos, store.ErrNotFound)
	}
	raw := blocks[0]
	if err := dec.Decode(raw.Data); err != nil {
		return nil, fmt.Errorf("block %v: %w", pos, err)
	}

	d := &BlockDump{
		Pos:          pos,
		Size:         len(raw.Data),
		Version:      dec.Version(),
		ContentWidth: dec.ContentWidth(),
		Names:        dec.Names(),
	}
	names := make(map[uint16]string, len(d.Names))
	for _, n := range d.Names {
		names[n.ID] = n.Name
	}
	counts := make(map[string]int)
	for z := 0; z < blockpos.BlockSize; z++ {
		for y := 0; y < blockpos.BlockSize; y++ {
			for x := 0; x < blockpos.BlockSize; x++ {
				name, ok := names[dec.ContentID(x, y, z)]
				if !ok {
					d.Unknown++
					continue
				}
				counts[name]++
			}
		}
	}
	for name, n := range counts {
		d.Materials = append(d.Materials, MaterialCount{Name: name, Nodes: n})
	}
	sort.Slice(d.Materials, func(i, j int) bool {
		if d.Materials[i].Nodes != d.Materials[j].Nodes {
			return d.Materials[i].Nodes > d.Materials[j].Nodes
		}
		return d.Materials[i].Name < d.Materials[j].Name
	})
	return d, nil
}
