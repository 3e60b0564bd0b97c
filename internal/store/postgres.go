package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/freeeve/blockmapper/internal/blockpos"
)

const (
	pgFormatBinary = 1

	pgStmtPositions = "get_block_pos"
	pgStmtColumns   = "get_block_columns"
	pgStmtColumn    = "get_blocks"
	pgStmtExact     = "get_block_exact"
)

var pgStatements = []struct{ name, sql string }{
	{pgStmtPositions, "SELECT posX::int4, posY::int4, posZ::int4 FROM blocks WHERE" +
		" (posX BETWEEN $1::int4 AND $2::int4) AND" +
		" (posY BETWEEN $3::int4 AND $4::int4) AND" +
		" (posZ BETWEEN $5::int4 AND $6::int4)"},
	{pgStmtColumns, "SELECT posX::int4, posZ::int4 FROM blocks WHERE" +
		" (posX BETWEEN $1::int4 AND $2::int4) AND" +
		" (posY BETWEEN $3::int4 AND $4::int4) AND" +
		" (posZ BETWEEN $5::int4 AND $6::int4) GROUP BY posX, posZ"},
	{pgStmtColumn, "SELECT posY::int4, data FROM blocks WHERE" +
		" posX = $1::int4 AND posZ = $2::int4" +
		" AND (posY BETWEEN $3::int4 AND $4::int4)"},
	{pgStmtExact, "SELECT data FROM blocks WHERE" +
		" posX = $1::int4 AND posY = $2::int4 AND posZ = $3::int4"},
}

var (
	errShortInt = errors.New("int4 column is not 4 bytes")
	errIntRange = errors.New("int4 column outside int16 range")
)

// PostgreSQL reads blocks from a posX/posY/posZ/data table. The whole
// session runs inside one REPEATABLE READ transaction so repeated queries
// see the same snapshot; Close commits it.
type PostgreSQL struct {
	conn  *pgconn.PgConn
	ctx   context.Context
	log   zerolog.Logger
	stats *statsCollector
}

// OpenPostgreSQL connects with connString, prepares the block queries and
// starts the read transaction.
func OpenPostgreSQL(ctx context.Context, connString string, opts Options) (*PostgreSQL, error) {
	opts = opts.withDefaults()
	conn, err := pgconn.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("%w: postgresql connect: %w", ErrBackend, err)
	}
	p := &PostgreSQL{
		conn:  conn,
		ctx:   ctx,
		log:   opts.Log.With().Str("component", "postgresql").Logger(),
		stats: newStatsCollector("postgresql"),
	}
	for _, st := range pgStatements {
		if _, err := conn.Prepare(ctx, st.name, st.sql, nil); err != nil {
			conn.Close(ctx)
			return nil, p.wrap("prepare "+st.name, err)
		}
	}
	if err := p.exec("START TRANSACTION ISOLATION LEVEL REPEATABLE READ"); err != nil {
		conn.Close(ctx)
		return nil, err
	}
	return p, nil
}

func (p *PostgreSQL) wrap(op string, err error) error {
	return fmt.Errorf("%w: postgresql %s: %w", ErrBackend, op, err)
}

func (p *PostgreSQL) exec(sql string) error {
	if _, err := p.conn.Exec(p.ctx, sql).ReadAll(); err != nil {
		return p.wrap(sql, err)
	}
	return nil
}

// int4 encodes v as a binary int4 parameter in network byte order.
func int4(v int) []byte {
	return binary.BigEndian.AppendUint32(nil, uint32(int32(v)))
}

func readInt4(b []byte) (int16, error) {
	if len(b) != 4 {
		return 0, errShortInt
	}
	v := int32(binary.BigEndian.Uint32(b))
	if v < math.MinInt16 || v > math.MaxInt16 {
		return 0, fmt.Errorf("%w: %d", errIntRange, v)
	}
	return int16(v), nil
}

// boxParams turns a half-open box into inclusive BETWEEN bounds.
func boxParams(min, max blockpos.Pos) [][]byte {
	return [][]byte{
		int4(int(min.X)), int4(int(max.X) - 1),
		int4(int(min.Y)), int4(int(max.Y) - 1),
		int4(int(min.Z)), int4(int(max.Z) - 1),
	}
}

func (p *PostgreSQL) query(stmt string, params [][]byte) ([][][]byte, error) {
	p.stats.incrementQueries()
	formats := make([]int16, len(params))
	for i := range formats {
		formats[i] = pgFormatBinary
	}
	res := p.conn.ExecPrepared(p.ctx, stmt, params, formats, []int16{pgFormatBinary}).Read()
	if res.Err != nil {
		return nil, p.wrap(stmt, res.Err)
	}
	return res.Rows, nil
}

// PrefersRangeQueries is always true.
func (p *PostgreSQL) PrefersRangeQueries() bool {
	return true
}

// ListPositions returns every stored position in [min, max).
func (p *PostgreSQL) ListPositions(min, max blockpos.Pos) ([]blockpos.Pos, error) {
	rows, err := p.query(pgStmtPositions, boxParams(min, max))
	if err != nil {
		return nil, err
	}
	out := make([]blockpos.Pos, 0, len(rows))
	for _, row := range rows {
		var pos blockpos.Pos
		for i, dst := range []*int16{&pos.X, &pos.Y, &pos.Z} {
			if *dst, err = readInt4(row[i]); err != nil {
				return nil, p.wrap(pgStmtPositions, err)
			}
		}
		out = append(out, pos)
	}
	return out, nil
}

// ListColumns returns the distinct (x,z) columns in [min, max).
func (p *PostgreSQL) ListColumns(min, max blockpos.Pos) ([]blockpos.Pos, error) {
	rows, err := p.query(pgStmtColumns, boxParams(min, max))
	if err != nil {
		return nil, err
	}
	out := make([]blockpos.Pos, 0, len(rows))
	for _, row := range rows {
		var pos blockpos.Pos
		if pos.X, err = readInt4(row[0]); err != nil {
			return nil, p.wrap(pgStmtColumns, err)
		}
		if pos.Z, err = readInt4(row[1]); err != nil {
			return nil, p.wrap(pgStmtColumns, err)
		}
		out = append(out, pos)
	}
	return out, nil
}

// BlocksInColumn returns the blocks of (x,z) with y in [minY, maxY).
func (p *PostgreSQL) BlocksInColumn(x, z, minY, maxY int16) ([]Block, error) {
	if minY >= maxY {
		return nil, nil
	}
	rows, err := p.query(pgStmtColumn, [][]byte{
		int4(int(x)), int4(int(z)), int4(int(minY)), int4(int(maxY) - 1),
	})
	if err != nil {
		return nil, err
	}
	out := make([]Block, 0, len(rows))
	for _, row := range rows {
		y, err := readInt4(row[0])
		if err != nil {
			return nil, p.wrap(pgStmtColumn, err)
		}
		p.stats.addBlock(len(row[1]))
		out = append(out, Block{Pos: blockpos.Pos{X: x, Y: y, Z: z}, Data: row[1]})
	}
	return out, nil
}

// BlocksAtPositions fetches each position with one exact query.
func (p *PostgreSQL) BlocksAtPositions(ps []blockpos.Pos) ([]Block, error) {
	var out []Block
	for _, pos := range ps {
		if !pos.Valid() {
			continue
		}
		rows, err := p.query(pgStmtExact, [][]byte{
			int4(int(pos.X)), int4(int(pos.Y)), int4(int(pos.Z)),
		})
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			continue
		}
		p.stats.addBlock(len(rows[0][0]))
		out = append(out, Block{Pos: pos, Data: rows[0][0]})
	}
	return out, nil
}

// Stats returns the backend counters.
func (p *PostgreSQL) Stats() Stats {
	return p.stats.Stats()
}

// Close commits the read transaction and closes the connection. A failed
// commit is logged; the connection is closed either way.
func (p *PostgreSQL) Close() error {
	if err := p.exec("COMMIT"); err != nil {
		p.log.Error().Err(err).Msg("could not finish read transaction")
	}
	if err := p.conn.Close(p.ctx); err != nil {
		return p.wrap("close", err)
	}
	return nil
}
