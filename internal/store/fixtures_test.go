package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"
	"testing"

	"github.com/dgraph-io/badger/v3"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/freeeve/blockmapper/internal/blockpos"
)

// fixture is a small world: a few columns around the origin, one at each
// corner of the encodable range and a z=10 slice with several columns.
func fixture() map[blockpos.Pos][]byte {
	ps := []blockpos.Pos{
		{X: 0, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: -1, Z: 0},
		{X: 1, Y: 0, Z: 0}, {X: -1, Y: 3, Z: 0},
		{X: 2, Y: 0, Z: 10}, {X: 2, Y: 1, Z: 10}, {X: 2, Y: 5, Z: 10},
		{X: 3, Y: 0, Z: 10}, {X: -4, Y: -2, Z: 10},
		{X: 2, Y: 0, Z: 11},
		{X: -2048, Y: -2048, Z: -2048}, {X: 2047, Y: 2047, Z: 2047},
		{X: 2047, Y: -2048, Z: -2048}, {X: -2048, Y: 2047, Z: 2047},
	}
	out := make(map[blockpos.Pos][]byte, len(ps))
	for _, p := range ps {
		out[p] = []byte("block " + p.String())
	}
	return out
}

var fullBox = [2]blockpos.Pos{
	{X: blockpos.MinCoord, Y: blockpos.MinCoord, Z: blockpos.MinCoord},
	{X: blockpos.MaxCoord + 1, Y: blockpos.MaxCoord + 1, Z: blockpos.MaxCoord + 1},
}

func sortPositions(ps []blockpos.Pos) []blockpos.Pos {
	out := append([]blockpos.Pos(nil), ps...)
	sort.Slice(out, func(i, j int) bool {
		return blockpos.Encode(out[i]) < blockpos.Encode(out[j])
	})
	return out
}

func fixturePositions(data map[blockpos.Pos][]byte, min, max blockpos.Pos) []blockpos.Pos {
	var out []blockpos.Pos
	for p := range data {
		if p.InBox(min, max) {
			out = append(out, p)
		}
	}
	return sortPositions(out)
}

func equalPositions(a, b []blockpos.Pos) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func createSQLite(t *testing.T, dir string, split bool, data map[blockpos.Pos][]byte) {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(dir, SQLiteFile))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	schema := "CREATE TABLE blocks (pos INT PRIMARY KEY, data BLOB)"
	insert := "INSERT INTO blocks (pos, data) VALUES (?, ?)"
	if split {
		schema = "CREATE TABLE blocks (x INT, y INT, z INT, data BLOB NOT NULL, PRIMARY KEY (x, z, y))"
		insert = "INSERT INTO blocks (x, y, z, data) VALUES (?, ?, ?, ?)"
	}
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	for p, v := range data {
		args := []any{blockpos.Encode(p), v}
		if split {
			args = []any{int64(p.X), int64(p.Y), int64(p.Z), v}
		}
		if _, err := db.Exec(insert, args...); err != nil {
			t.Fatalf("insert %v: %v", p, err)
		}
	}
}

func createLevelDB(t *testing.T, dir string, data map[blockpos.Pos][]byte, extra map[string]string) {
	t.Helper()
	db, err := leveldb.OpenFile(filepath.Join(dir, LevelDBDir), nil)
	if err != nil {
		t.Fatalf("open leveldb: %v", err)
	}
	for p, v := range data {
		if err := db.Put([]byte(blockpos.KeyString(p)), v, nil); err != nil {
			t.Fatalf("put %v: %v", p, err)
		}
	}
	for k, v := range extra {
		if err := db.Put([]byte(k), []byte(v), nil); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close leveldb: %v", err)
	}
}

func createBadger(t *testing.T, dir string, data map[blockpos.Pos][]byte) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(filepath.Join(dir, BadgerDir)).WithLogger(nil))
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	err = db.Update(func(txn *badger.Txn) error {
		for p, v := range data {
			if err := txn.Set([]byte(blockpos.KeyString(p)), v); err != nil {
				return fmt.Errorf("set %v: %w", p, err)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("write badger: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close badger: %v", err)
	}
}
