// Package block decodes serialized map blocks into per-node material names.
//
// Supported serialization versions are 22 through 29. Versions before 29
// store the node content and node metadata as two zlib streams followed by
// a few legacy tables and the name-id mapping; version 29 compresses the
// whole record as one zstd frame and moves the name-id mapping in front of
// the node content.
package block
