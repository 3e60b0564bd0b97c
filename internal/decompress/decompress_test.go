package decompress

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

func zlibBytes(t *testing.T, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}
	return buf.Bytes()
}

func zstdBytes(t *testing.T, payload []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd.NewWriter: %v", err)
	}
	defer enc.Close()
	return enc.EncodeAll(payload, nil)
}

// payloads returns a compressible and an incompressible payload, the
// second larger than one output chunk.
func payloads() ([]byte, []byte) {
	a := bytes.Repeat([]byte("stone dirt grass "), 1000)
	b := make([]byte, 3*zlibChunk+17)
	rand.New(rand.NewSource(7)).Read(b)
	return a, b
}

func zlibAt(src []byte, offset int) *Zlib {
	z := NewZlib()
	z.SetData(src, offset)
	return z
}

func TestZlibBackToBack(t *testing.T) {
	a, b := payloads()
	prefix := []byte{0xAA, 0xBB, 0xCC}
	src := append(append(append([]byte(nil), prefix...), zlibBytes(t, a)...), zlibBytes(t, b)...)

	z := zlibAt(src, len(prefix))
	gotA, err := z.Decompress(nil)
	if err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if !bytes.Equal(gotA, a) {
		t.Errorf("first frame: got %d bytes, want %d", len(gotA), len(a))
	}
	if z.Offset() != len(prefix)+len(zlibBytes(t, a)) {
		t.Errorf("Offset after first frame = %d, want %d", z.Offset(), len(prefix)+len(zlibBytes(t, a)))
	}

	gotB, err := z.Decompress(gotA)
	if err != nil {
		t.Fatalf("second frame: %v", err)
	}
	if !bytes.Equal(gotB, b) {
		t.Errorf("second frame: got %d bytes, want %d", len(gotB), len(b))
	}
	if z.Offset() != len(src) {
		t.Errorf("Offset = %d, want %d (end of input)", z.Offset(), len(src))
	}
}

func TestZlibTruncated(t *testing.T) {
	a, _ := payloads()
	full := zlibBytes(t, a)

	testCases := []struct {
		name string
		src  []byte
	}{
		{"empty", nil},
		{"header only", full[:2]},
		{"missing checksum", full[:len(full)-2]},
		{"garbage", []byte{0x01, 0x02, 0x03, 0x04}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			z := zlibAt(tc.src, 0)
			if _, err := z.Decompress(nil); !errors.Is(err, ErrStream) {
				t.Errorf("Decompress error = %v, want ErrStream", err)
			}
		})
	}
}

func TestZlibBadOffset(t *testing.T) {
	z := zlibAt([]byte{1, 2, 3}, 10)
	if _, err := z.Decompress(nil); !errors.Is(err, ErrStream) {
		t.Errorf("Decompress error = %v, want ErrStream", err)
	}
}

func TestZstdBackToBack(t *testing.T) {
	a, b := payloads()
	fa, fb := zstdBytes(t, a), zstdBytes(t, b)
	src := append([]byte{29}, append(fa, fb...)...)

	z, err := NewZstd()
	if err != nil {
		t.Fatalf("NewZstd: %v", err)
	}
	defer z.Close()

	z.SetData(src, 1)
	gotA, err := z.Decompress(nil)
	if err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if !bytes.Equal(gotA, a) {
		t.Errorf("first frame mismatch: got %d bytes, want %d", len(gotA), len(a))
	}
	if z.Offset() != 1+len(fa) {
		t.Errorf("Offset = %d, want %d", z.Offset(), 1+len(fa))
	}
	gotB, err := z.Decompress(nil)
	if err != nil {
		t.Fatalf("second frame: %v", err)
	}
	if !bytes.Equal(gotB, b) {
		t.Errorf("second frame mismatch: got %d bytes, want %d", len(gotB), len(b))
	}
	if z.Offset() != len(src) {
		t.Errorf("Offset = %d, want %d", z.Offset(), len(src))
	}

	// The decoder is reusable for a new source.
	z.SetData(fa, 0)
	again, err := z.Decompress(gotB)
	if err != nil {
		t.Fatalf("reuse: %v", err)
	}
	if !bytes.Equal(again, a) {
		t.Error("reuse: payload mismatch")
	}
}

func TestZstdTruncated(t *testing.T) {
	a, _ := payloads()
	full := zstdBytes(t, a)

	z, err := NewZstd()
	if err != nil {
		t.Fatalf("NewZstd: %v", err)
	}
	defer z.Close()

	for _, src := range [][]byte{nil, full[:3], full[:len(full)-1], []byte("not zstd at all")} {
		z.SetData(src, 0)
		if _, err := z.Decompress(nil); !errors.Is(err, ErrStream) {
			t.Errorf("Decompress(%d bytes) error = %v, want ErrStream", len(src), err)
		}
	}
}

func TestFrameLength(t *testing.T) {
	a, _ := payloads()
	frame := zstdBytes(t, a)
	n, err := FrameLength(append(append([]byte(nil), frame...), 0xFF, 0xFF))
	if err != nil {
		t.Fatalf("FrameLength: %v", err)
	}
	if n != len(frame) {
		t.Errorf("FrameLength = %d, want %d", n, len(frame))
	}
}

func TestAdaptersShareInterface(t *testing.T) {
	z, err := NewZstd()
	if err != nil {
		t.Fatalf("NewZstd: %v", err)
	}
	defer z.Close()
	for _, d := range []Decompressor{NewZlib(), z} {
		d.SetData([]byte{1, 2, 3}, 2)
		if d.Offset() != 2 {
			t.Errorf("%T Offset = %d, want 2", d, d.Offset())
		}
	}
}
