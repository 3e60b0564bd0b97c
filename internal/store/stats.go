package store

import "sync/atomic"

// Stats holds counters for one open backend.
type Stats struct {
	Backend        string
	IndexedBlocks  uint64 // positions held by the position index, if any
	Queries        uint64
	BlocksRead     uint64
	BytesRead      uint64
	BusyRetries    uint64
	CacheReloads   uint64 // column cache slices loaded
	CacheMisorders uint64 // column requested again after being handed out
}

// statsCollector tracks Stats with atomic counters.
type statsCollector struct {
	backend        string
	indexedBlocks  uint64
	queries        uint64
	blocksRead     uint64
	bytesRead      uint64
	busyRetries    uint64
	cacheReloads   uint64
	cacheMisorders uint64
}

func newStatsCollector(backend string) *statsCollector {
	return &statsCollector{backend: backend}
}

func (s *statsCollector) incrementQueries() {
	atomic.AddUint64(&s.queries, 1)
}

// addBlock counts one block handed to the caller.
func (s *statsCollector) addBlock(n int) {
	atomic.AddUint64(&s.blocksRead, 1)
	atomic.AddUint64(&s.bytesRead, uint64(n))
}

func (s *statsCollector) incrementBusyRetries() {
	atomic.AddUint64(&s.busyRetries, 1)
}

func (s *statsCollector) incrementCacheReloads() {
	atomic.AddUint64(&s.cacheReloads, 1)
}

func (s *statsCollector) incrementCacheMisorders() {
	atomic.AddUint64(&s.cacheMisorders, 1)
}

func (s *statsCollector) setIndexedBlocks(n int) {
	atomic.StoreUint64(&s.indexedBlocks, uint64(n))
}

// Stats returns the current statistics.
func (s *statsCollector) Stats() Stats {
	return Stats{
		Backend:        s.backend,
		IndexedBlocks:  atomic.LoadUint64(&s.indexedBlocks),
		Queries:        atomic.LoadUint64(&s.queries),
		BlocksRead:     atomic.LoadUint64(&s.blocksRead),
		BytesRead:      atomic.LoadUint64(&s.bytesRead),
		BusyRetries:    atomic.LoadUint64(&s.busyRetries),
		CacheReloads:   atomic.LoadUint64(&s.cacheReloads),
		CacheMisorders: atomic.LoadUint64(&s.cacheMisorders),
	}
}
