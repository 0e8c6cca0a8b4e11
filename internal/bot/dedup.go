package bot

import (
	"sort"
	"sync"
	"time"
)

// ProcessedUpdateSet is the idempotent replay guard: a bounded in-memory
// set of update identifiers that have been handled already.
//
// It uses a three-phase protocol so the check and the record are atomic
// with respect to concurrent deliveries of the same identifier:
//
//	Begin(id)    reserves the id; a second Begin for the same id fails
//	Commit(id)   finalizes the reservation after successful routing
//	Rollback(id) releases the reservation when routing failed, so the
//	             upstream platform's redelivery can be processed
//
// Memory is bounded two ways: committed entries beyond maxEntries are
// pruned down to the keepEntries most recent, and a background sweep
// evicts entries older than the configured window. Retention is
// approximate; pending reservations are never evicted.
type ProcessedUpdateSet struct {
	mu      sync.Mutex
	entries map[int64]*updateEntry
	seq     uint64

	maxEntries  int
	keepEntries int
	window      time.Duration
}

type updateEntry struct {
	seq     uint64
	doneAt  time.Time
	pending bool
}

// NewProcessedUpdateSet creates a replay guard that prunes to keepEntries
// once more than maxEntries are committed, and whose Sweep evicts entries
// committed longer than window ago.
func NewProcessedUpdateSet(maxEntries, keepEntries int, window time.Duration) *ProcessedUpdateSet {
	return &ProcessedUpdateSet{
		entries:     make(map[int64]*updateEntry),
		maxEntries:  maxEntries,
		keepEntries: keepEntries,
		window:      window,
	}
}

// Begin reserves the update id for processing. Returns false if the id is
// already reserved or committed, in which case the caller must skip the
// update.
func (s *ProcessedUpdateSet) Begin(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; ok {
		return false
	}
	s.seq++
	s.entries[id] = &updateEntry{seq: s.seq, pending: true}
	return true
}

// Commit marks the update id as fully processed. Triggers a prune when
// the set has grown past its threshold.
func (s *ProcessedUpdateSet) Commit(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return
	}
	entry.pending = false
	entry.doneAt = time.Now()

	if len(s.entries) > s.maxEntries {
		s.pruneLocked()
	}
}

// Rollback releases a pending reservation so the update can be retried.
// Committed entries are left untouched.
func (s *ProcessedUpdateSet) Rollback(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[id]; ok && entry.pending {
		delete(s.entries, id)
	}
}

// Sweep evicts committed entries older than the window, measured from
// now. Returns the number of evicted entries. Intended to be called
// periodically by a background job.
func (s *ProcessedUpdateSet) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-s.window)
	removed := 0
	for id, entry := range s.entries {
		if !entry.pending && entry.doneAt.Before(cutoff) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the current number of tracked identifiers.
func (s *ProcessedUpdateSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// pruneLocked keeps the keepEntries most recently committed entries plus
// every pending reservation. Caller must hold s.mu.
func (s *ProcessedUpdateSet) pruneLocked() {
	type committed struct {
		id  int64
		seq uint64
	}
	done := make([]committed, 0, len(s.entries))
	for id, entry := range s.entries {
		if !entry.pending {
			done = append(done, committed{id: id, seq: entry.seq})
		}
	}
	sort.Slice(done, func(i, j int) bool { return done[i].seq > done[j].seq })

	for i := s.keepEntries; i < len(done); i++ {
		delete(s.entries, done[i].id)
	}
}
