package store

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/freeeve/blockmapper/internal/blockpos"
)

// pointStore is the part of a key/value engine the KV backend needs:
// exact lookups and one pass over every key.
type pointStore interface {
	// Get returns a copy of the value of key, or ErrNotFound.
	Get(key []byte) ([]byte, error)
	// EachKey calls fn with every key in the store. The slice is only
	// valid during the call.
	EachKey(fn func(key []byte) error) error
	Close() error
}

// KV serves blocks from a log-structured key/value store. Keys are the
// decimal form of the encoded position. All queries are answered from a
// position index built by one full iteration at open, plus one point
// lookup per block.
type KV struct {
	name   string
	engine pointStore
	log    zerolog.Logger
	stats  *statsCollector
	index  *positionIndex
}

func newKV(name string, engine pointStore, opts Options) (*KV, error) {
	kv := &KV{
		name:   name,
		engine: engine,
		log:    opts.Log.With().Str("component", name).Logger(),
		stats:  newStatsCollector(name),
	}
	if err := kv.buildIndex(); err != nil {
		engine.Close()
		return nil, err
	}
	return kv, nil
}

func (kv *KV) buildIndex() error {
	ix := newPositionIndex()
	skipped := 0
	err := kv.engine.EachKey(func(key []byte) error {
		p, err := blockpos.ParseKey(string(key))
		if err != nil {
			skipped++
			return nil
		}
		ix.add(p)
		return nil
	})
	if err != nil {
		return kv.wrap("build position index", err)
	}
	if skipped > 0 {
		kv.log.Warn().Int("keys", skipped).Msg("ignored keys that are not block positions")
	}
	ix.finish()
	kv.index = ix
	kv.stats.setIndexedBlocks(ix.count)
	kv.log.Debug().Int("blocks", ix.count).Int("slices", len(ix.zs)).Msg("position index built")
	return nil
}

func (kv *KV) wrap(op string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrBackend, kv.name, op, err)
}

// PrefersRangeQueries is always false.
func (kv *KV) PrefersRangeQueries() bool {
	return false
}

// ListPositions returns every indexed position in [min, max).
func (kv *KV) ListPositions(min, max blockpos.Pos) ([]blockpos.Pos, error) {
	return kv.index.positions(min, max), nil
}

// ListColumns returns the distinct indexed (x,z) columns in [min, max).
func (kv *KV) ListColumns(min, max blockpos.Pos) ([]blockpos.Pos, error) {
	return kv.index.columns(min, max), nil
}

// BlocksInColumn looks up every indexed y of (x,z) in [minY, maxY).
func (kv *KV) BlocksInColumn(x, z, minY, maxY int16) ([]Block, error) {
	ys := kv.index.column(x, z, minY, maxY)
	ps := make([]blockpos.Pos, len(ys))
	for i, y := range ys {
		ps[i] = blockpos.Pos{X: x, Y: y, Z: z}
	}
	return kv.BlocksAtPositions(ps)
}

// BlocksAtPositions fetches each position with one point lookup.
func (kv *KV) BlocksAtPositions(ps []blockpos.Pos) ([]Block, error) {
	var out []Block
	for _, p := range ps {
		if !p.Valid() {
			continue
		}
		kv.stats.incrementQueries()
		data, err := kv.engine.Get([]byte(blockpos.KeyString(p)))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, kv.wrap("get block "+p.String(), err)
		}
		kv.stats.addBlock(len(data))
		out = append(out, Block{Pos: p, Data: data})
	}
	return out, nil
}

// Stats returns the backend counters.
func (kv *KV) Stats() Stats {
	return kv.stats.Stats()
}

// Close closes the engine.
func (kv *KV) Close() error {
	if err := kv.engine.Close(); err != nil {
		return kv.wrap("close", err)
	}
	return nil
}
