// Package blockpos defines map block positions and the 64-bit key encoding
// used by the legacy single-key SQLite schema and by the log-structured
// backends.
//
// A key packs three 12-bit signed coordinates:
//
//	key = z*0x1000000 + y*0x1000 + x
//
// so keys order by z, then y, then x for every coordinate in [-2048, 2047].
package blockpos
