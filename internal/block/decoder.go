package block

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/freeeve/blockmapper/internal/decompress"
)

var (
	// ErrFormat wraps every error that aborts decoding of a record.
	ErrFormat = errors.New("invalid map block")

	// ErrUnknownContent is returned by Lookup for a node whose content id is
	// missing from the block's name-id mapping. It never aborts a record.
	ErrUnknownContent = errors.New("unknown content id")
)

const (
	nameAir    = "air"
	nameIgnore = "ignore"

	noID = -1
)

// NodeName is one entry of a block's name-id mapping.
type NodeName struct {
	ID   uint16
	Name string
}

// Decoder decodes one block at a time. Its state is reset by every call to
// Decode; buffers are reused between calls. A Decoder is not safe for
// concurrent use.
type Decoder struct {
	log  zerolog.Logger
	zstd *decompress.Zstd
	zlib *decompress.Zlib

	scratch []byte // decompressed version 29 body
	meta    []byte // node metadata stream, discarded

	version      byte
	contentWidth byte
	mapData      []byte
	names        map[uint16]string
	airID        int32
	ignoreID     int32
}

// NewDecoder returns a decoder that reports unknown content ids to log.
func NewDecoder(log zerolog.Logger) (*Decoder, error) {
	zs, err := decompress.NewZstd()
	if err != nil {
		return nil, err
	}
	d := &Decoder{
		log:   log,
		zstd:  zs,
		zlib:  decompress.NewZlib(),
		names: make(map[uint16]string),
	}
	d.reset()
	return d, nil
}

// Close releases the zstd decoder.
func (d *Decoder) Close() {
	d.zstd.Close()
}

func (d *Decoder) reset() {
	d.version = 0
	d.contentWidth = 0
	d.mapData = d.mapData[:0]
	d.airID = noID
	d.ignoreID = noID
	clear(d.names)
}

// Decode parses one serialized block. On error the decoder holds no
// partial result.
func (d *Decoder) Decode(data []byte) error {
	d.reset()
	if err := d.decode(data); err != nil {
		d.reset()
		return err
	}
	return nil
}

func (d *Decoder) decode(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty record", ErrFormat)
	}
	version := data[0]
	if version < MinVersion {
		return fmt.Errorf("%w: unsupported map version %d", ErrFormat, version)
	}
	d.version = version

	buf := data
	if version >= 29 {
		d.zstd.SetData(data, 1)
		out, err := d.zstd.Decompress(d.scratch)
		if err != nil {
			return fmt.Errorf("%w: version %d body: %w", ErrFormat, version, err)
		}
		d.scratch = out
		buf = out
	}
	r := &reader{buf: buf, off: headerOffset(version)}

	if version >= 29 {
		if err := d.readNameTable(r); err != nil {
			return err
		}
	}

	cw, err := r.u8()
	if err != nil {
		return err
	}
	pw, err := r.u8()
	if err != nil {
		return err
	}
	if cw != 1 && cw != 2 {
		return fmt.Errorf("%w: unsupported contentWidth=%d", ErrFormat, cw)
	}
	if pw != paramsWidth {
		return fmt.Errorf("%w: unsupported paramsWidth=%d", ErrFormat, pw)
	}
	size := mapDataSize(cw, pw)

	if version >= 29 {
		raw, err := r.bytes(size)
		if err != nil {
			return fmt.Errorf("%w: map data buffer truncated", ErrFormat)
		}
		d.mapData = append(d.mapData[:0], raw...)
		d.contentWidth = cw
		return nil
	}

	d.zlib.SetData(data, r.off)
	d.mapData, err = d.zlib.Decompress(d.mapData)
	if err != nil {
		return fmt.Errorf("%w: node data: %w", ErrFormat, err)
	}
	d.meta, err = d.zlib.Decompress(d.meta)
	if err != nil {
		return fmt.Errorf("%w: node metadata: %w", ErrFormat, err)
	}
	if len(d.mapData) < size {
		return fmt.Errorf("%w: map data buffer truncated (%d of %d bytes)", ErrFormat, len(d.mapData), size)
	}
	d.contentWidth = cw

	r.off = d.zlib.Offset()
	if err := skipLegacyTables(r, version); err != nil {
		return err
	}
	return d.readNameTable(r)
}

// skipLegacyTables skips node timers (23, 24), static objects and the
// timestamp that sit between the node metadata and the name-id mapping.
func skipLegacyTables(r *reader, version byte) error {
	switch version {
	case 23:
		if err := r.skip(1); err != nil {
			return err
		}
	case 24:
		ver, err := r.u8()
		if err != nil {
			return err
		}
		if ver == 1 {
			count, err := r.u16()
			if err != nil {
				return err
			}
			if err := r.skip(10 * int(count)); err != nil {
				return err
			}
		}
	}

	if err := r.skip(1); err != nil { // static object version
		return err
	}
	count, err := r.u16()
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		if err := r.skip(13); err != nil {
			return err
		}
		n, err := r.u16()
		if err != nil {
			return err
		}
		if err := r.skip(int(n)); err != nil {
			return err
		}
	}
	return r.skip(4) // timestamp
}

func (d *Decoder) readNameTable(r *reader) error {
	if err := r.skip(1); err != nil { // mapping version
		return err
	}
	count, err := r.u16()
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		id, err := r.u16()
		if err != nil {
			return err
		}
		n, err := r.u16()
		if err != nil {
			return err
		}
		name, err := r.bytes(int(n))
		if err != nil {
			return err
		}
		switch string(name) {
		case nameAir:
			d.airID = int32(id)
		case nameIgnore:
			d.ignoreID = int32(id)
		default:
			d.names[id] = string(name)
		}
	}
	return nil
}

// Lookup returns the material of node (x, y, z), each in [0, 16). Air,
// ignore and an undecoded block all yield "". A content id missing from the
// mapping yields "" and ErrUnknownContent.
func (d *Decoder) Lookup(x, y, z int) (string, error) {
	if d.contentWidth == 0 {
		return "", nil
	}
	id := contentAt(d.mapData, d.contentWidth, VoxelIndex(x, y, z))
	if int32(id) == d.airID || int32(id) == d.ignoreID {
		return "", nil
	}
	name, ok := d.names[id]
	if !ok {
		return "", fmt.Errorf("%w %d", ErrUnknownContent, id)
	}
	return name, nil
}

// ContentID returns the raw content id of node (x, y, z), or 0 before a
// successful decode.
func (d *Decoder) ContentID(x, y, z int) uint16 {
	if d.contentWidth == 0 {
		return 0
	}
	return contentAt(d.mapData, d.contentWidth, VoxelIndex(x, y, z))
}

// Node is Lookup with unknown content ids logged and skipped.
func (d *Decoder) Node(x, y, z int) string {
	name, err := d.Lookup(x, y, z)
	if err != nil {
		d.log.Warn().Err(err).Int("x", x).Int("y", y).Int("z", z).Msg("skipping node")
	}
	return name
}

// IsEmpty reports whether the block holds nothing but air and ignore.
func (d *Decoder) IsEmpty() bool {
	return len(d.names) == 0
}

// Version returns the serialization version of the last decoded block.
func (d *Decoder) Version() int {
	return int(d.version)
}

// ContentWidth returns 1 or 2, or 0 before a successful decode.
func (d *Decoder) ContentWidth() int {
	return int(d.contentWidth)
}

// Names returns the name-id mapping sorted by id, air and ignore included.
func (d *Decoder) Names() []NodeName {
	out := make([]NodeName, 0, len(d.names)+2)
	for id, name := range d.names {
		out = append(out, NodeName{ID: id, Name: name})
	}
	if d.airID != noID {
		out = append(out, NodeName{ID: uint16(d.airID), Name: nameAir})
	}
	if d.ignoreID != noID {
		out = append(out, NodeName{ID: uint16(d.ignoreID), Name: nameIgnore})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
