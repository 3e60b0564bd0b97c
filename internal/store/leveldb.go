package store

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// LevelDBDir is the block store directory of a leveldb world.
const LevelDBDir = "map.db"

type levelDBEngine struct {
	db *leveldb.DB
}

// OpenLevelDB opens dir/map.db read-only and indexes its keys.
func OpenLevelDB(dir string, opts Options) (*KV, error) {
	path := filepath.Join(dir, LevelDBDir)
	db, err := leveldb.OpenFile(path, &opt.Options{
		ReadOnly:       true,
		ErrorIfMissing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: leveldb open %s: %w", ErrBackend, path, err)
	}
	return newKV("leveldb", &levelDBEngine{db: db}, opts.withDefaults())
}

func (e *levelDBEngine) Get(key []byte) ([]byte, error) {
	v, err := e.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return v, err
}

func (e *levelDBEngine) EachKey(fn func(key []byte) error) error {
	it := e.db.NewIterator(nil, nil)
	defer it.Release()
	for it.Next() {
		if err := fn(it.Key()); err != nil {
			return err
		}
	}
	return it.Error()
}

func (e *levelDBEngine) Close() error {
	return e.db.Close()
}
