package main

import (
	"sort"
	"sync"
	"sync/atomic"
)

type TTFlag uint8

const (
	TTExact TTFlag = iota
	TTLower
	TTUpper
)

const ttVeryOldGenerations = 8

// TTEntry remembers the best move found for a position. The searcher only
// uses it to try that move first; scores are informational.
type TTEntry struct {
	Key         uint64
	Depth       int
	Score       float64
	Flag        TTFlag
	BestMove    Move
	Hits        uint32
	GenWritten  uint32
	GenLastUsed uint32
	Valid       bool
}

// TranspositionTable is a set-associative table guarded by striped locks so
// that parallel root workers can share it.
type TranspositionTable struct {
	mask        uint64
	buckets     int
	entries     []TTEntry
	stripeLocks []sync.RWMutex
	stripeMask  uint64
	gen         atomic.Uint32
}

func NewTranspositionTable(size uint64, buckets int) *TranspositionTable {
	if buckets <= 0 {
		buckets = 2
	}
	if size < 1 {
		size = 1
	}
	if (size & (size - 1)) != 0 {
		size = nextPowerOfTwo(size)
	}
	maxStripes := 64
	if int(size) < maxStripes {
		maxStripes = int(size)
	}
	stripes := 1
	for stripes*2 <= maxStripes {
		stripes *= 2
	}
	tt := &TranspositionTable{
		mask:        size - 1,
		buckets:     buckets,
		entries:     make([]TTEntry, int(size)*buckets),
		stripeLocks: make([]sync.RWMutex, stripes),
		stripeMask:  uint64(stripes - 1),
	}
	tt.gen.Store(1)
	return tt
}

// NextGeneration ages existing entries; called once per root search.
func (tt *TranspositionTable) NextGeneration() {
	if tt.gen.Add(1) == 0 {
		tt.gen.CompareAndSwap(0, 1)
	}
}

func (tt *TranspositionTable) Generation() uint32 {
	return tt.currentGeneration()
}

func (tt *TranspositionTable) Clear() {
	tt.exclusive(func() {
		clear(tt.entries)
	})
	tt.gen.Store(1)
}

// slots returns the bucket key maps to, locked for writing. The caller must
// call the returned unlock.
func (tt *TranspositionTable) slots(key uint64) ([]TTEntry, func()) {
	lock := &tt.stripeLocks[(key&tt.mask)&tt.stripeMask]
	lock.Lock()
	first := int(key&tt.mask) * tt.buckets
	return tt.entries[first : first+tt.buckets], lock.Unlock
}

// Probe looks key up and counts the hit.
func (tt *TranspositionTable) Probe(key uint64) (TTEntry, bool) {
	bucket, unlock := tt.slots(key)
	defer unlock()
	for i := range bucket {
		if bucket[i].Valid && bucket[i].Key == key {
			bucket[i].Hits++
			bucket[i].GenLastUsed = tt.currentGeneration()
			return bucket[i], true
		}
	}
	return TTEntry{}, false
}

// Store writes an entry. A matching key is overwritten unless the stored
// entry is deeper and still recent. Otherwise the first empty slot is used,
// then the stalest entry that is not a recent deeper one.
func (tt *TranspositionTable) Store(key uint64, depth int, score float64, flag TTFlag, best Move) bool {
	bucket, unlock := tt.slots(key)
	defer unlock()
	gen := tt.currentGeneration()
	protected := func(e TTEntry) bool {
		return e.Depth > depth && entryAge(gen, e) < ttVeryOldGenerations
	}
	fresh := TTEntry{Key: key, Depth: depth, Score: score, Flag: flag, BestMove: best, GenWritten: gen, GenLastUsed: gen, Valid: true}

	for i := range bucket {
		if bucket[i].Valid && bucket[i].Key == key {
			if protected(bucket[i]) {
				return false
			}
			fresh.Hits = bucket[i].Hits
			bucket[i] = fresh
			return true
		}
	}
	target := -1
	for i := range bucket {
		if !bucket[i].Valid {
			target = i
			break
		}
		if protected(bucket[i]) {
			continue
		}
		if target == -1 || entryAge(gen, bucket[i]) > entryAge(gen, bucket[target]) {
			target = i
		}
	}
	if target == -1 {
		return false
	}
	bucket[target] = fresh
	return true
}

func (tt *TranspositionTable) DeleteByKey(key uint64) bool {
	bucket, unlock := tt.slots(key)
	defer unlock()
	deleted := false
	for i := range bucket {
		if bucket[i].Valid && bucket[i].Key == key {
			bucket[i] = TTEntry{}
			deleted = true
		}
	}
	return deleted
}

func (tt *TranspositionTable) TopEntriesByHits(offset int, limit int) ([]TTEntry, int) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	entries := tt.snapshotEntries()
	valid := make([]TTEntry, 0, len(entries))
	for i := range entries {
		if entries[i].Valid {
			valid = append(valid, entries[i])
		}
	}
	sort.Slice(valid, func(i, j int) bool {
		if valid[i].Hits != valid[j].Hits {
			return valid[i].Hits > valid[j].Hits
		}
		if valid[i].Depth != valid[j].Depth {
			return valid[i].Depth > valid[j].Depth
		}
		return valid[i].Key < valid[j].Key
	})
	total := len(valid)
	if offset >= total {
		return []TTEntry{}, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return valid[offset:end], total
}

func (tt *TranspositionTable) Count() int {
	if tt == nil {
		return 0
	}
	count := 0
	tt.shared(func() {
		for i := range tt.entries {
			if tt.entries[i].Valid {
				count++
			}
		}
	})
	return count
}

func (tt *TranspositionTable) Capacity() int {
	if tt == nil {
		return 0
	}
	return len(tt.entries)
}

// Dimensions reports the slot count and bucket width the table was built
// with.
func (tt *TranspositionTable) Dimensions() (int, int) {
	return int(tt.mask + 1), tt.buckets
}

func (tt *TranspositionTable) currentGeneration() uint32 {
	if gen := tt.gen.Load(); gen != 0 {
		return gen
	}
	return 1
}

// exclusive runs fn with every stripe write-locked.
func (tt *TranspositionTable) exclusive(fn func()) {
	for i := range tt.stripeLocks {
		tt.stripeLocks[i].Lock()
	}
	defer func() {
		for i := range tt.stripeLocks {
			tt.stripeLocks[i].Unlock()
		}
	}()
	fn()
}

// shared runs fn with every stripe read-locked.
func (tt *TranspositionTable) shared(fn func()) {
	for i := range tt.stripeLocks {
		tt.stripeLocks[i].RLock()
	}
	defer func() {
		for i := range tt.stripeLocks {
			tt.stripeLocks[i].RUnlock()
		}
	}()
	fn()
}

func (tt *TranspositionTable) snapshotEntries() []TTEntry {
	var entries []TTEntry
	tt.shared(func() {
		entries = append([]TTEntry(nil), tt.entries...)
	})
	return entries
}

// loadEntries copies a snapshot in, truncated to the table's capacity.
func (tt *TranspositionTable) loadEntries(entries []TTEntry) {
	tt.exclusive(func() {
		copy(tt.entries, entries)
	})
}

func entryAge(gen uint32, entry TTEntry) uint32 {
	last := entry.GenLastUsed
	if last == 0 {
		last = entry.GenWritten
	}
	return gen - last
}

func nextPowerOfTwo(v uint64) uint64 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32
	v++
	return v
}

var (
	sharedTTMu sync.Mutex
	sharedTT   *TranspositionTable
)

// SharedTT returns the process-wide table sized from cfg, or nil when the
// table is disabled. The table is rebuilt when its dimensions change.
func SharedTT(cfg Config) *TranspositionTable {
	if !cfg.AiTtEnabled || cfg.AiTtSize <= 0 {
		return nil
	}
	sharedTTMu.Lock()
	defer sharedTTMu.Unlock()
	size := nextPowerOfTwo(uint64(cfg.AiTtSize))
	buckets := cfg.AiTtBuckets
	if buckets <= 0 {
		buckets = 2
	}
	if sharedTT == nil || sharedTT.Capacity() != int(size)*buckets {
		sharedTT = NewTranspositionTable(size, buckets)
	}
	return sharedTT
}

func setSharedTT(tt *TranspositionTable) {
	sharedTTMu.Lock()
	sharedTT = tt
	sharedTTMu.Unlock()
}

func FlushSharedTT() {
	sharedTTMu.Lock()
	tt := sharedTT
	sharedTTMu.Unlock()
	if tt != nil {
		tt.Clear()
	}
}
