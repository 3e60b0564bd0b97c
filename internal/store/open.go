package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/freeeve/blockmapper/internal/world"
)

// Backend names as declared by the "backend" setting of world.mt.
const (
	BackendSQLite     = "sqlite3"
	BackendLevelDB    = "leveldb"
	BackendBadger     = "badger"
	BackendPostgreSQL = "postgresql"
)

type opener func(ctx context.Context, dir string, meta world.Metadata, opts Options) (Backend, error)

var openers = map[string]opener{
	BackendSQLite: func(_ context.Context, dir string, _ world.Metadata, opts Options) (Backend, error) {
		s, err := OpenSQLite(dir, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
	BackendLevelDB: func(_ context.Context, dir string, _ world.Metadata, opts Options) (Backend, error) {
		kv, err := OpenLevelDB(dir, opts)
		if err != nil {
			return nil, err
		}
		return kv, nil
	},
	BackendBadger: func(_ context.Context, dir string, _ world.Metadata, opts Options) (Backend, error) {
		kv, err := OpenBadger(dir, opts)
		if err != nil {
			return nil, err
		}
		return kv, nil
	},
	BackendPostgreSQL: func(ctx context.Context, _ string, meta world.Metadata, opts Options) (Backend, error) {
		conn, err := meta.Require(world.KeyPgConnection)
		if err != nil {
			return nil, fmt.Errorf("%w: postgresql: %w", ErrBackend, err)
		}
		pg, err := OpenPostgreSQL(ctx, conn, opts)
		if err != nil {
			return nil, err
		}
		return pg, nil
	},
}

// SupportedBackends returns the backend names Open accepts, sorted.
func SupportedBackends() []string {
	names := make([]string, 0, len(openers))
	for name := range openers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens the block store of the world in dir using the backend named
// by meta.
func Open(ctx context.Context, dir string, meta world.Metadata, opts Options) (Backend, error) {
	name := meta.Backend()
	open, ok := openers[name]
	if !ok {
		return nil, fmt.Errorf("%w %q, supported: %s", ErrUnknownBackend, name,
			strings.Join(SupportedBackends(), ", "))
	}
	opts = opts.withDefaults()
	opts.Log.Debug().Str("backend", name).Str("dir", dir).Msg("opening block store")
	return open(ctx, dir, meta, opts)
}
