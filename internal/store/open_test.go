package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/freeeve/blockmapper/internal/world"
)

func TestSupportedBackends(t *testing.T) {
	got := strings.Join(SupportedBackends(), ",")
	if got != "badger,leveldb,postgresql,sqlite3" {
		t.Errorf("SupportedBackends = %s", got)
	}
}

func TestOpenByName(t *testing.T) {
	data := fixture()
	testCases := []struct {
		backend string
		create  func(t *testing.T, dir string)
		ranges  bool
	}{
		{BackendSQLite, func(t *testing.T, dir string) { createSQLite(t, dir, true, data) }, true},
		{BackendLevelDB, func(t *testing.T, dir string) { createLevelDB(t, dir, data, nil) }, false},
		{BackendBadger, func(t *testing.T, dir string) { createBadger(t, dir, data) }, false},
	}
	for _, tc := range testCases {
		t.Run(tc.backend, func(t *testing.T) {
			dir := t.TempDir()
			tc.create(t, dir)
			meta := world.Metadata{}.With(world.KeyBackend, tc.backend)
			b, err := Open(context.Background(), dir, meta, Options{})
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer b.Close()
			if b.PrefersRangeQueries() != tc.ranges {
				t.Errorf("PrefersRangeQueries = %v", b.PrefersRangeQueries())
			}
			ps, err := b.ListPositions(fullBox[0], fullBox[1])
			if err != nil || len(ps) != len(data) {
				t.Errorf("ListPositions: %d positions, %v", len(ps), err)
			}
		})
	}
}

func TestOpenErrors(t *testing.T) {
	meta := world.Metadata{}.With(world.KeyBackend, "redis")
	_, err := Open(context.Background(), t.TempDir(), meta, Options{})
	if !errors.Is(err, ErrUnknownBackend) || !strings.Contains(err.Error(), "sqlite3") {
		t.Errorf("unknown backend: %v", err)
	}

	meta = world.Metadata{}.With(world.KeyBackend, BackendPostgreSQL)
	_, err = Open(context.Background(), t.TempDir(), meta, Options{})
	if !errors.Is(err, ErrBackend) || !errors.Is(err, world.ErrSettingNotFound) {
		t.Errorf("postgresql without connection string: %v", err)
	}
}
