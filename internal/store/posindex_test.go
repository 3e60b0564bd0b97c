package store

import (
	"testing"

	"github.com/freeeve/blockmapper/internal/blockpos"
)

func newTestIndex(ps ...blockpos.Pos) *positionIndex {
	ix := newPositionIndex()
	for _, p := range ps {
		ix.add(p)
	}
	ix.finish()
	return ix
}

func TestPositionIndexFinish(t *testing.T) {
	ix := newTestIndex(
		blockpos.Pos{X: 3, Y: 0, Z: 1},
		blockpos.Pos{X: 1, Y: 5, Z: 1},
		blockpos.Pos{X: 1, Y: 2, Z: 1},
		blockpos.Pos{X: 1, Y: 2, Z: 1},
		blockpos.Pos{X: 0, Y: 0, Z: -7},
	)
	if ix.count != 4 {
		t.Errorf("count = %d, want 4", ix.count)
	}
	want := []xy{{1, 2}, {1, 5}, {3, 0}}
	got := ix.byZ[1]
	if len(got) != len(want) {
		t.Fatalf("bucket = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bucket[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if len(ix.zs) != 2 || ix.zs[0] != -7 || ix.zs[1] != 1 {
		t.Errorf("zs = %v, want [-7 1]", ix.zs)
	}
}

func TestPositionIndexQueries(t *testing.T) {
	ix := newTestIndex(
		blockpos.Pos{X: 0, Y: 0, Z: 0},
		blockpos.Pos{X: 0, Y: 1, Z: 0},
		blockpos.Pos{X: 1, Y: 9, Z: 0},
		blockpos.Pos{X: 2, Y: 0, Z: 0},
		blockpos.Pos{X: 0, Y: 0, Z: 1},
		blockpos.Pos{X: 0, Y: 0, Z: 5},
	)

	testCases := []struct {
		name     string
		min, max blockpos.Pos
		want     []blockpos.Pos
		columns  []blockpos.Pos
	}{
		{
			name:    "one slice",
			min:     blockpos.Pos{X: 0, Y: 0, Z: 0},
			max:     blockpos.Pos{X: 2, Y: 2, Z: 1},
			want:    []blockpos.Pos{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
			columns: []blockpos.Pos{{X: 0, Z: 0}},
		},
		{
			name:    "x bound is exclusive",
			min:     blockpos.Pos{X: 1, Y: -10, Z: 0},
			max:     blockpos.Pos{X: 2, Y: 10, Z: 1},
			want:    []blockpos.Pos{{X: 1, Y: 9, Z: 0}},
			columns: []blockpos.Pos{{X: 1, Z: 0}},
		},
		{
			name:    "several slices",
			min:     blockpos.Pos{X: 0, Y: 0, Z: 0},
			max:     blockpos.Pos{X: 1, Y: 1, Z: 6},
			want:    []blockpos.Pos{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 1}, {X: 0, Y: 0, Z: 5}},
			columns: []blockpos.Pos{{X: 0, Z: 0}, {X: 0, Z: 1}, {X: 0, Z: 5}},
		},
		{
			name: "empty box",
			min:  blockpos.Pos{X: 0, Y: 0, Z: 2},
			max:  blockpos.Pos{X: 5, Y: 5, Z: 5},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ix.positions(tc.min, tc.max); !equalPositions(got, tc.want) {
				t.Errorf("positions = %v, want %v", got, tc.want)
			}
			if got := ix.columns(tc.min, tc.max); !equalPositions(got, tc.columns) {
				t.Errorf("columns = %v, want %v", got, tc.columns)
			}
		})
	}
}

func TestPositionIndexColumn(t *testing.T) {
	ix := newTestIndex(
		blockpos.Pos{X: 4, Y: -1, Z: 2},
		blockpos.Pos{X: 4, Y: 0, Z: 2},
		blockpos.Pos{X: 4, Y: 7, Z: 2},
		blockpos.Pos{X: 5, Y: 0, Z: 2},
		blockpos.Pos{X: 3, Y: 0, Z: 2},
	)
	ys := ix.column(4, 2, -1, 7)
	if len(ys) != 2 || ys[0] != -1 || ys[1] != 0 {
		t.Errorf("column = %v, want [-1 0]", ys)
	}
	if ys := ix.column(6, 2, -100, 100); len(ys) != 0 {
		t.Errorf("missing x: %v", ys)
	}
	if ys := ix.column(4, 3, -100, 100); len(ys) != 0 {
		t.Errorf("missing z: %v", ys)
	}
}
