// Package store reads map blocks from the storage backends a world can be
// saved in.
//
// Backends:
//   - sqlite3: single-file store, either the legacy schema keyed by an
//     encoded position or the split x/y/z schema, detected at open
//   - leveldb, badger: log-structured key/value stores keyed by the decimal
//     form of the encoded position
//   - postgresql: relational store reached through a connection string
//
// Backends without range pushdown build a position index at open time by
// scanning every key once. Callers should visit columns z-slice by z-slice;
// the legacy sqlite3 backend caches one slice at a time and relies on it.
//
// A Backend is not safe for concurrent use.
package store
