package blockpos

import "strconv"

const (
	xStride = 1
	yStride = 0x1000
	zStride = 0x1000000
)

// Encode packs p into a 64-bit key.
func Encode(p Pos) int64 {
	return int64(p.Z)*zStride + int64(p.Y)*yStride + int64(p.X)*xStride
}

// Decode reverses Encode.
func Decode(key int64) Pos {
	x := toSigned(floorMod(key, 4096))
	key = (key - x) / 4096
	y := toSigned(floorMod(key, 4096))
	key = (key - y) / 4096
	z := toSigned(floorMod(key, 4096))
	return Pos{X: int16(x), Y: int16(y), Z: int16(z)}
}

// floorMod returns i mod m in [0, m).
func floorMod(i, m int64) int64 {
	r := i % m
	if r < 0 {
		r += m
	}
	return r
}

// toSigned maps [0, 4096) onto [-2048, 2048).
func toSigned(u int64) int64 {
	if u < 2048 {
		return u
	}
	return u - 4096
}

// KeyString returns the decimal key form used by the key/value backends.
func KeyString(p Pos) string {
	return strconv.FormatInt(Encode(p), 10)
}

// ParseKey parses a decimal key.
func ParseKey(s string) (Pos, error) {
	key, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Pos{}, err
	}
	return Decode(key), nil
}

// KeyRange returns the inclusive key bounds of every block whose z lies in
// [zMin, zMax). Both ends are clamped to the encodable range and y is
// clamped to [-2048, 2048). ok is false when the clamped range is empty.
func KeyRange(zMin, zMax int) (lo, hi int64, ok bool) {
	if zMin < MinCoord {
		zMin = MinCoord
	}
	if zMax > MaxCoord+1 {
		zMax = MaxCoord + 1
	}
	if zMin >= zMax {
		return 0, 0, false
	}
	lo = Encode(Pos{X: MinCoord, Y: MinCoord, Z: int16(zMin)})
	hi = Encode(Pos{X: MaxCoord, Y: MaxCoord, Z: int16(zMax - 1)})
	return lo, hi, true
}
