package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v3"
	"github.com/rs/zerolog"
)

// BadgerDir is the block store directory of a badger world.
const BadgerDir = "map.badger"

type badgerEngine struct {
	db *badger.DB
}

// OpenBadger opens dir/map.badger read-only and indexes its keys.
func OpenBadger(dir string, opts Options) (*KV, error) {
	opts = opts.withDefaults()
	path := filepath.Join(dir, BadgerDir)
	bopts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(badgerLogger{opts.Log.With().Str("component", "badger-engine").Logger()})
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("%w: badger open %s: %w", ErrBackend, path, err)
	}
	return newKV("badger", &badgerEngine{db: db}, opts)
}

func (e *badgerEngine) Get(key []byte) ([]byte, error) {
	var v []byte
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		v, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return v, err
}

func (e *badgerEngine) EachKey(fn func(key []byte) error) error {
	return e.db.View(func(txn *badger.Txn) error {
		iopts := badger.DefaultIteratorOptions
		iopts.PrefetchValues = false
		it := txn.NewIterator(iopts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := fn(it.Item().Key()); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *badgerEngine) Close() error {
	return e.db.Close()
}

// badgerLogger routes badger's internal messages to zerolog.
type badgerLogger struct {
	log zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(strings.TrimSuffix(format, "\n"), args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn().Msgf(strings.TrimSuffix(format, "\n"), args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug().Msgf(strings.TrimSuffix(format, "\n"), args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Trace().Msgf(strings.TrimSuffix(format, "\n"), args...)
}
