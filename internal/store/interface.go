package store

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/blockmapper/internal/blockpos"
)

var (
	// ErrBackend wraps every I/O error reported by a backend.
	ErrBackend = errors.New("backend error")

	// ErrNotFound is returned when a key is not present in a store.
	ErrNotFound = errors.New("not found")

	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown backend")
)

// Block is one raw map block record. Data is owned by the caller.
type Block struct {
	Pos  blockpos.Pos
	Data []byte
}

// Backend answers the queries a map reader needs. Boxes are half-open:
// [min, max).
type Backend interface {
	// ListPositions returns every stored position in the box, without
	// duplicates and in no particular order.
	ListPositions(min, max blockpos.Pos) ([]blockpos.Pos, error)

	// ListColumns returns the distinct (x,z) columns holding at least one
	// block in the box. Y is zero in every result.
	ListColumns(min, max blockpos.Pos) ([]blockpos.Pos, error)

	// BlocksInColumn returns the blocks of column (x,z) with y in
	// [minY, maxY).
	BlocksInColumn(x, z, minY, maxY int16) ([]Block, error)

	// BlocksAtPositions fetches the given positions. Missing ones are
	// omitted.
	BlocksAtPositions(ps []blockpos.Pos) ([]Block, error)

	// PrefersRangeQueries reports whether box queries are pushed down to
	// the store. Callers that get false should enumerate positions and
	// group them by column instead of listing columns.
	PrefersRangeQueries() bool

	Stats() Stats
	Close() error
}

// RetryPolicy controls how a busy store is retried.
type RetryPolicy struct {
	Backoff     time.Duration // default 10ms
	MaxAttempts int           // 0 retries forever
}

// DefaultRetryPolicy waits 10ms between attempts and never gives up.
var DefaultRetryPolicy = RetryPolicy{Backoff: 10 * time.Millisecond}

// Options configures a backend.
type Options struct {
	Log   zerolog.Logger
	Retry RetryPolicy
}

func (o Options) withDefaults() Options {
	if o.Retry.Backoff <= 0 {
		o.Retry.Backoff = DefaultRetryPolicy.Backoff
	}
	return o
}
