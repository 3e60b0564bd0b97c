package store

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/freeeve/blockmapper/internal/blockpos"
)

// SQLiteFile is the block store file of a sqlite3 world.
const SQLiteFile = "map.sqlite"

const (
	// Split schema.
	sqlProbeSplit     = "SELECT x, y, z FROM blocks LIMIT 0"
	sqlSplitPositions = "SELECT x, y, z FROM blocks WHERE" +
		" x >= ? AND y >= ? AND z >= ? AND x < ? AND y < ? AND z < ?"
	sqlSplitColumns = "SELECT DISTINCT x, z FROM blocks WHERE" +
		" x >= ? AND y >= ? AND z >= ? AND x < ? AND y < ? AND z < ?"
	sqlSplitColumn = "SELECT y, data FROM blocks WHERE x = ? AND z = ? AND y BETWEEN ? AND ?"
	sqlSplitExact  = "SELECT data FROM blocks WHERE x = ? AND y = ? AND z = ?"

	// Legacy schema.
	sqlLegacyAll   = "SELECT pos FROM blocks"
	sqlLegacySlice = "SELECT pos, data FROM blocks WHERE pos BETWEEN ? AND ?"
	sqlLegacyExact = "SELECT data FROM blocks WHERE pos = ?"
)

// SQLite reads a map.sqlite file in either schema generation.
//
// The legacy schema keys blocks by encoded position. List queries are
// answered from a position index, and BlocksInColumn loads one z-slice at
// a time into a column cache whose entries are handed to the caller
// without copying. Visiting a column a second time before moving to
// another slice logs a warning, reloads the slice and returns nothing for
// that call.
type SQLite struct {
	db    *sql.DB
	log   zerolog.Logger
	retry RetryPolicy
	stats *statsCollector
	split bool

	positions *sql.Stmt // split only
	columns   *sql.Stmt // split only
	column    *sql.Stmt // split column, legacy slice
	exact     *sql.Stmt

	index       *positionIndex
	cache       map[int16][]Block // x -> blocks; nil value once handed out
	cacheZ      int16
	cacheLoaded bool
}

// OpenSQLite opens dir/map.sqlite read-only and detects its schema.
func OpenSQLite(dir string, opts Options) (*SQLite, error) {
	opts = opts.withDefaults()
	path, err := filepath.Abs(filepath.Join(dir, SQLiteFile))
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite3: %w", ErrBackend, err)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: sqlite3: %w", ErrBackend, err)
	}
	dsn := (&url.URL{Scheme: "file", Path: path, RawQuery: "mode=ro"}).String()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite3 open %s: %w", ErrBackend, path, err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLite{
		db:    db,
		log:   opts.Log.With().Str("component", "sqlite3").Logger(),
		retry: opts.Retry,
		stats: newStatsCollector("sqlite3"),
	}
	if err := s.init(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) init() error {
	// Statements are compiled lazily by the driver, so the probe has to run.
	err := s.retry.do(s.stats, func() error {
		rows, err := s.db.Query(sqlProbeSplit)
		if err != nil {
			return err
		}
		return rows.Close()
	})
	s.split = err == nil
	if errors.Is(err, errBusy) {
		return s.wrap("detect schema", err)
	}
	if s.split {
		s.log.Debug().Msg("detected split x/y/z schema")
		return s.prepare(map[**sql.Stmt]string{
			&s.positions: sqlSplitPositions,
			&s.columns:   sqlSplitColumns,
			&s.column:    sqlSplitColumn,
			&s.exact:     sqlSplitExact,
		})
	}

	s.log.Debug().Msg("detected legacy pos schema")
	if err := s.prepare(map[**sql.Stmt]string{
		&s.column: sqlLegacySlice,
		&s.exact:  sqlLegacyExact,
	}); err != nil {
		return err
	}
	return s.buildIndex()
}

func (s *SQLite) prepare(stmts map[**sql.Stmt]string) error {
	for dst, query := range stmts {
		stmt, err := s.db.Prepare(query)
		if err != nil {
			return s.wrap("prepare", err)
		}
		*dst = stmt
	}
	return nil
}

func (s *SQLite) wrap(op string, err error) error {
	if errors.Is(err, ErrBackend) {
		return err
	}
	return fmt.Errorf("%w: sqlite3 %s: %w", ErrBackend, op, err)
}

// query runs stmt and feeds every row to scan. A busy answer restarts the
// whole query, so reset must discard rows collected by an earlier attempt.
func (s *SQLite) query(op string, stmt *sql.Stmt, reset func(), scan func(*sql.Rows) error, args ...any) error {
	err := s.retry.do(s.stats, func() error {
		reset()
		s.stats.incrementQueries()
		rows, err := stmt.Query(args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			if err := scan(rows); err != nil {
				return err
			}
		}
		return rows.Err()
	})
	if err != nil {
		return s.wrap(op, err)
	}
	return nil
}

func (s *SQLite) buildIndex() error {
	var ix *positionIndex
	err := s.retry.do(s.stats, func() error {
		ix = newPositionIndex()
		s.stats.incrementQueries()
		rows, err := s.db.Query(sqlLegacyAll)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var key int64
			if err := rows.Scan(&key); err != nil {
				return err
			}
			ix.add(blockpos.Decode(key))
		}
		return rows.Err()
	})
	if err != nil {
		return s.wrap("build position index", err)
	}
	ix.finish()
	s.index = ix
	s.stats.setIndexedBlocks(ix.count)
	s.log.Debug().Int("blocks", ix.count).Int("slices", len(ix.zs)).Msg("position index built")
	return nil
}

// Split reports whether the file uses the split x/y/z schema.
func (s *SQLite) Split() bool {
	return s.split
}

// PrefersRangeQueries is true for the split schema only.
func (s *SQLite) PrefersRangeQueries() bool {
	return s.split
}

func boxArgs(min, max blockpos.Pos) []any {
	return []any{
		int64(min.X), int64(min.Y), int64(min.Z),
		int64(max.X), int64(max.Y), int64(max.Z),
	}
}

// ListPositions returns every stored position in [min, max).
func (s *SQLite) ListPositions(min, max blockpos.Pos) ([]blockpos.Pos, error) {
	if !s.split {
		return s.index.positions(min, max), nil
	}
	var out []blockpos.Pos
	err := s.query("list positions", s.positions,
		func() { out = out[:0] },
		func(rows *sql.Rows) error {
			var p blockpos.Pos
			if err := rows.Scan(&p.X, &p.Y, &p.Z); err != nil {
				return err
			}
			out = append(out, p)
			return nil
		}, boxArgs(min, max)...)
	return out, err
}

// ListColumns returns the distinct (x,z) columns in [min, max).
func (s *SQLite) ListColumns(min, max blockpos.Pos) ([]blockpos.Pos, error) {
	if !s.split {
		return s.index.columns(min, max), nil
	}
	var out []blockpos.Pos
	err := s.query("list columns", s.columns,
		func() { out = out[:0] },
		func(rows *sql.Rows) error {
			var p blockpos.Pos
			if err := rows.Scan(&p.X, &p.Z); err != nil {
				return err
			}
			out = append(out, p)
			return nil
		}, boxArgs(min, max)...)
	return out, err
}

// BlocksInColumn returns the blocks of (x,z) with y in [minY, maxY).
func (s *SQLite) BlocksInColumn(x, z, minY, maxY int16) ([]Block, error) {
	if minY >= maxY {
		return nil, nil
	}
	if s.split {
		return s.splitColumn(x, z, minY, maxY)
	}

	if !s.cacheLoaded || s.cacheZ != z {
		if err := s.loadColumnCache(z); err != nil {
			return nil, err
		}
	}
	entry, ok := s.cache[x]
	if !ok {
		return nil, nil
	}
	if entry == nil {
		s.stats.incrementCacheMisorders()
		s.log.Warn().Int16("x", x).Int16("z", z).
			Msg("column requested again after being handed out, reloading slice")
		if err := s.loadColumnCache(z); err != nil {
			return nil, err
		}
		return nil, nil
	}
	s.cache[x] = nil

	out := entry[:0]
	for _, b := range entry {
		if b.Pos.Y < minY || b.Pos.Y >= maxY {
			continue
		}
		s.stats.addBlock(len(b.Data))
		out = append(out, b)
	}
	return out, nil
}

// ResetColumnCache drops the cached slice so the next BlocksInColumn call
// reloads it.
func (s *SQLite) ResetColumnCache() {
	s.cache = nil
	s.cacheLoaded = false
}

func (s *SQLite) loadColumnCache(z int16) error {
	s.ResetColumnCache()
	lo, hi, ok := blockpos.KeyRange(int(z), int(z)+1)
	if !ok {
		return nil
	}
	var cache map[int16][]Block
	err := s.query("load column cache", s.column,
		func() { cache = make(map[int16][]Block) },
		func(rows *sql.Rows) error {
			var key int64
			var data []byte
			if err := rows.Scan(&key, &data); err != nil {
				return err
			}
			p := blockpos.Decode(key)
			cache[p.X] = append(cache[p.X], Block{Pos: p, Data: data})
			return nil
		}, lo, hi)
	if err != nil {
		return err
	}
	s.cache = cache
	s.cacheZ = z
	s.cacheLoaded = true
	s.stats.incrementCacheReloads()
	return nil
}

func (s *SQLite) splitColumn(x, z, minY, maxY int16) ([]Block, error) {
	var out []Block
	err := s.query("blocks in column", s.column,
		func() { out = out[:0] },
		func(rows *sql.Rows) error {
			var y int16
			var data []byte
			if err := rows.Scan(&y, &data); err != nil {
				return err
			}
			out = append(out, Block{Pos: blockpos.Pos{X: x, Y: y, Z: z}, Data: data})
			return nil
		}, int64(x), int64(z), int64(minY), int64(maxY)-1)
	if err != nil {
		return nil, err
	}
	for _, b := range out {
		s.stats.addBlock(len(b.Data))
	}
	return out, nil
}

// BlocksAtPositions fetches each position with one exact lookup.
// Positions outside the key range cannot be stored and are skipped.
func (s *SQLite) BlocksAtPositions(ps []blockpos.Pos) ([]Block, error) {
	var out []Block
	for _, p := range ps {
		if !p.Valid() {
			continue
		}
		args := []any{int64(p.X), int64(p.Y), int64(p.Z)}
		if !s.split {
			args = []any{blockpos.Encode(p)}
		}
		var data []byte
		err := s.retry.do(s.stats, func() error {
			s.stats.incrementQueries()
			return s.exact.QueryRow(args...).Scan(&data)
		})
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, s.wrap("get block "+p.String(), err)
		}
		s.stats.addBlock(len(data))
		out = append(out, Block{Pos: p, Data: data})
	}
	return out, nil
}

// Stats returns the backend counters.
func (s *SQLite) Stats() Stats {
	return s.stats.Stats()
}

// Close releases the statements and the database handle.
func (s *SQLite) Close() error {
	for _, stmt := range []*sql.Stmt{s.positions, s.columns, s.column, s.exact} {
		if stmt != nil {
			stmt.Close()
		}
	}
	s.cache = nil
	if err := s.db.Close(); err != nil {
		return s.wrap("close", err)
	}
	return nil
}
