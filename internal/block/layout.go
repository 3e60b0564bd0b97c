package block

import (
	"encoding/binary"
	"fmt"
)

const (
	// MinVersion is the oldest supported serialization version.
	MinVersion = 22

	// NodeCount is the number of nodes in a 16x16x16 block.
	NodeCount = 16 * 16 * 16

	// highPlaneOffset is where the 4-bit high plane of one-byte content ids
	// begins, relative to the low byte.
	highPlaneOffset = 0x2000

	// paramsWidth is the only supported param1+param2 width.
	paramsWidth = 2
)

// headerOffset returns where contentWidth (or, from version 29, the
// name-id mapping) starts.
func headerOffset(version byte) int {
	switch {
	case version >= 29:
		return 7 // flags, lighting_complete, timestamp
	case version >= 27:
		return 4 // version, flags, lighting_complete
	default:
		return 2 // version, flags
	}
}

// mapDataSize is the size of the node content plus param1/param2 arrays.
func mapDataSize(contentWidth, paramsWidth byte) int {
	return (int(contentWidth) + int(paramsWidth)) * NodeCount
}

// VoxelIndex returns the index of node (x, y, z) inside a block.
func VoxelIndex(x, y, z int) int {
	return x + y<<4 + z<<8
}

// combineNibble builds a content id above 0x7F from its low byte and the
// byte holding its high nibble.
func combineNibble(low, highPlane byte) uint16 {
	return uint16(low)<<4 | uint16(highPlane>>4)
}

// contentAt reads the content id of node i.
func contentAt(mapData []byte, contentWidth byte, i int) uint16 {
	if contentWidth == 2 {
		return binary.BigEndian.Uint16(mapData[2*i:])
	}
	b := mapData[i]
	if b <= 0x7F {
		return uint16(b)
	}
	return combineNibble(b, mapData[i+highPlaneOffset])
}

// reader is a bounds-checked cursor over a record.
type reader struct {
	buf []byte
	off int
}

func (r *reader) need(n int) error {
	if n < 0 || r.off < 0 || r.off+n > len(r.buf) {
		return fmt.Errorf("%w: truncated at offset %d (need %d bytes, have %d)",
			ErrFormat, r.off, n, len(r.buf)-r.off)
	}
	return nil
}

func (r *reader) u8() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

func (r *reader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.off += n
	return nil
}
