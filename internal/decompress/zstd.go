package decompress

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Zstd decodes zstd frames. The underlying decoder is created once and
// reused for every frame.
type Zstd struct {
	cursor
	dec *zstd.Decoder
}

// NewZstd creates a Zstd adapter. Call Close to release the decoder.
func NewZstd() (*Zstd, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Zstd{dec: dec}, nil
}

// Close releases the decoder.
func (z *Zstd) Close() {
	if z.dec != nil {
		z.dec.Close()
		z.dec = nil
	}
}

// Decompress decodes the frame at the current offset. The decoder would
// happily run on into a following frame, so the frame is measured first and
// only its bytes are handed over.
func (z *Zstd) Decompress(dst []byte) ([]byte, error) {
	in, err := z.remaining()
	if err != nil {
		return dst[:0], err
	}
	n, err := FrameLength(in)
	if err != nil {
		return dst[:0], fmt.Errorf("%w: zstd: %v", ErrStream, err)
	}
	out, err := z.dec.DecodeAll(in[:n], dst[:0])
	if err != nil {
		return dst[:0], fmt.Errorf("%w: zstd: %v", ErrStream, err)
	}
	z.off += n
	return out, nil
}

var errReservedBlock = errors.New("reserved block type")

// FrameLength returns the compressed size of the zstd frame (or skippable
// frame) at the start of in.
func FrameLength(in []byte) (int, error) {
	var h zstd.Header
	if err := h.Decode(in); err != nil {
		return 0, err
	}
	if h.Skippable {
		n := h.HeaderSize + int(h.SkippableSize)
		if n > len(in) {
			return 0, io.ErrUnexpectedEOF
		}
		return n, nil
	}

	pos := h.HeaderSize
	for {
		if pos+3 > len(in) {
			return 0, io.ErrUnexpectedEOF
		}
		bh := uint32(in[pos]) | uint32(in[pos+1])<<8 | uint32(in[pos+2])<<16
		pos += 3
		size := int(bh >> 3)
		switch (bh >> 1) & 3 {
		case 0, 2: // raw, compressed
			pos += size
		case 1: // rle
			pos++
		default:
			return 0, errReservedBlock
		}
		if bh&1 == 1 {
			break
		}
	}
	if h.HasCheckSum {
		pos += 4
	}
	if pos > len(in) {
		return 0, io.ErrUnexpectedEOF
	}
	return pos, nil
}
