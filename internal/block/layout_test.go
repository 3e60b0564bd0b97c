package block

import (
	"errors"
	"testing"
)

func TestVoxelIndex(t *testing.T) {
	testCases := []struct {
		x, y, z int
		want    int
	}{
		{0, 0, 0, 0},
		{1, 0, 0, 1},
		{0, 1, 0, 16},
		{0, 0, 1, 256},
		{15, 15, 15, 4095},
		{3, 2, 1, 3 + 32 + 256},
	}
	for _, tc := range testCases {
		if got := VoxelIndex(tc.x, tc.y, tc.z); got != tc.want {
			t.Errorf("VoxelIndex(%d,%d,%d) = %d, want %d", tc.x, tc.y, tc.z, got, tc.want)
		}
	}
}

func TestCombineNibble(t *testing.T) {
	if got := combineNibble(0x80, 0x50); got != 0x805 {
		t.Errorf("combineNibble(0x80, 0x50) = %#x, want 0x805", got)
	}
	if got := combineNibble(0xFF, 0xFF); got != 0xFFF {
		t.Errorf("combineNibble(0xFF, 0xFF) = %#x, want 0xfff", got)
	}
	// Only the high nibble of the plane byte counts.
	if got := combineNibble(0x90, 0x3C); got != 0x903 {
		t.Errorf("combineNibble(0x90, 0x3C) = %#x, want 0x903", got)
	}
}

func TestContentAt(t *testing.T) {
	wide := make([]byte, 4*NodeCount)
	wide[2*5], wide[2*5+1] = 0x27, 0x0F
	if got := contentAt(wide, 2, 5); got != 9999 {
		t.Errorf("two-byte content = %d, want 9999", got)
	}

	narrow := make([]byte, 3*NodeCount)
	narrow[7] = 0x42
	narrow[8] = 0x81
	narrow[8+highPlaneOffset] = 0xA0
	narrow[7+highPlaneOffset] = 0xF0 // ignored for literal ids
	if got := contentAt(narrow, 1, 7); got != 0x42 {
		t.Errorf("literal content = %#x, want 0x42", got)
	}
	if got := contentAt(narrow, 1, 8); got != 0x81A {
		t.Errorf("nibble content = %#x, want 0x81a", got)
	}
}

func TestHeaderOffset(t *testing.T) {
	want := map[byte]int{22: 2, 23: 2, 24: 2, 25: 2, 26: 2, 27: 4, 28: 4, 29: 7}
	for v, off := range want {
		if got := headerOffset(v); got != off {
			t.Errorf("headerOffset(%d) = %d, want %d", v, got, off)
		}
	}
}

func TestReaderBounds(t *testing.T) {
	r := &reader{buf: []byte{0x01, 0x02, 0x03}}
	if v, err := r.u16(); err != nil || v != 0x0102 {
		t.Fatalf("u16 = %#x, %v", v, err)
	}
	if _, err := r.u16(); !errors.Is(err, ErrFormat) {
		t.Errorf("u16 past end: %v, want ErrFormat", err)
	}
	if err := r.skip(-1); !errors.Is(err, ErrFormat) {
		t.Errorf("negative skip: %v, want ErrFormat", err)
	}
	if b, err := r.u8(); err != nil || b != 0x03 {
		t.Errorf("u8 = %#x, %v", b, err)
	}
}
