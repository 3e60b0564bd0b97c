// Package decompress adapts stream codecs to a cursor over one shared
// source buffer, so that several compressed frames stored back to back can
// be decoded one after another.
package decompress

import (
	"errors"
	"fmt"
)

// ErrStream is returned when a compressed stream is malformed, truncated or
// otherwise does not end cleanly.
var ErrStream = errors.New("compressed stream did not end cleanly")

// Decompressor decodes one frame at a time from a source buffer.
type Decompressor interface {
	// SetData sets the source buffer and the offset of the next frame.
	SetData(src []byte, offset int)
	// Decompress decodes exactly one frame into dst (reusing its capacity)
	// and advances the offset by the number of source bytes consumed.
	Decompress(dst []byte) ([]byte, error)
	// Offset returns the offset of the next unread source byte.
	Offset() int
}

// cursor holds the state shared by both adapters.
type cursor struct {
	src []byte
	off int
}

func (c *cursor) SetData(src []byte, offset int) {
	c.src = src
	c.off = offset
}

func (c *cursor) Offset() int {
	return c.off
}

func (c *cursor) remaining() ([]byte, error) {
	if c.off < 0 || c.off > len(c.src) {
		return nil, fmt.Errorf("%w: offset %d outside %d byte buffer", ErrStream, c.off, len(c.src))
	}
	return c.src[c.off:], nil
}
