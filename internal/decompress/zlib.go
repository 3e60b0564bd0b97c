package decompress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// zlibChunk is the step by which the output buffer grows.
const zlibChunk = 32 * 1024

// Zlib decodes zlib-wrapped deflate streams.
type Zlib struct {
	cursor
	br *bytes.Reader
	zr io.ReadCloser
}

// NewZlib returns a Zlib adapter with no source set.
func NewZlib() *Zlib {
	return &Zlib{br: bytes.NewReader(nil)}
}

// Decompress decodes one zlib stream. The bytes reader handed to the
// inflater implements io.ByteReader, so it never reads past the stream's
// trailing checksum and the consumed length is exact.
func (z *Zlib) Decompress(dst []byte) ([]byte, error) {
	in, err := z.remaining()
	if err != nil {
		return dst[:0], err
	}
	z.br.Reset(in)

	if z.zr == nil {
		z.zr, err = zlib.NewReader(z.br)
	} else {
		err = z.zr.(zlib.Resetter).Reset(z.br, nil)
	}
	if err != nil {
		return dst[:0], fmt.Errorf("%w: zlib header: %v", ErrStream, err)
	}

	out := dst[:0]
	for {
		if len(out) == cap(out) {
			out = append(out, make([]byte, zlibChunk)...)[:len(out)]
		}
		n, err := z.zr.Read(out[len(out):cap(out)])
		out = out[:len(out)+n]
		if err == io.EOF {
			break
		}
		if err != nil {
			return out[:0], fmt.Errorf("%w: zlib: %v", ErrStream, err)
		}
	}

	z.off += len(in) - z.br.Len()
	return out, nil
}
