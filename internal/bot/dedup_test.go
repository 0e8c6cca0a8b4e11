package bot

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDedupBeginCommit(t *testing.T) {
	s := NewProcessedUpdateSet(1000, 500, 24*time.Hour)

	if !s.Begin(1) {
		t.Fatal("first Begin should succeed")
	}
	if s.Begin(1) {
		t.Error("second Begin for the same id should fail while pending")
	}

	s.Commit(1)
	if s.Begin(1) {
		t.Error("Begin should fail for a committed id")
	}
}

func TestDedupRollbackReleasesReservation(t *testing.T) {
	s := NewProcessedUpdateSet(1000, 500, 24*time.Hour)

	if !s.Begin(1) {
		t.Fatal("Begin should succeed")
	}
	s.Rollback(1)

	if !s.Begin(1) {
		t.Error("Begin should succeed again after rollback")
	}
}

func TestDedupRollbackKeepsCommitted(t *testing.T) {
	s := NewProcessedUpdateSet(1000, 500, 24*time.Hour)

	s.Begin(1)
	s.Commit(1)
	s.Rollback(1)

	if s.Begin(1) {
		t.Error("rollback must not release a committed id")
	}
}

func TestDedupConcurrentBegin(t *testing.T) {
	s := NewProcessedUpdateSet(1000, 500, 24*time.Hour)

	var won atomic.Int32
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Begin(99) {
				won.Add(1)
			}
		}()
	}
	wg.Wait()

	if won.Load() != 1 {
		t.Errorf("exactly one concurrent Begin should win, got %d", won.Load())
	}
}

func TestDedupPrunesToKeepEntries(t *testing.T) {
	s := NewProcessedUpdateSet(1000, 500, 24*time.Hour)

	for id := int64(1); id <= 1001; id++ {
		s.Begin(id)
		s.Commit(id)
	}

	if got := s.Len(); got != 500 {
		t.Errorf("expected 500 entries after prune, got %d", got)
	}
	// The most recent ids survive the prune
	if s.Begin(1001) {
		t.Error("most recent id should still be tracked")
	}
	// The oldest ids were evicted and are processable again
	if !s.Begin(1) {
		t.Error("oldest id should have been pruned")
	}
}

func TestDedupPruneKeepsPending(t *testing.T) {
	s := NewProcessedUpdateSet(10, 5, 24*time.Hour)

	s.Begin(999) // stays pending across the prune

	for id := int64(1); id <= 11; id++ {
		s.Begin(id)
		s.Commit(id)
	}

	if s.Begin(999) {
		t.Error("pending reservation must survive a prune")
	}
}

func TestDedupSweepEvictsOldEntries(t *testing.T) {
	s := NewProcessedUpdateSet(1000, 500, time.Hour)

	s.Begin(1)
	s.Commit(1)
	s.Begin(2) // pending, must survive any sweep

	removed := s.Sweep(time.Now().Add(2 * time.Hour))
	if removed != 1 {
		t.Errorf("expected 1 evicted entry, got %d", removed)
	}
	if !s.Begin(1) {
		t.Error("swept id should be processable again")
	}
	if s.Begin(2) {
		t.Error("pending reservation must survive the sweep")
	}
}

func TestDedupSweepKeepsRecent(t *testing.T) {
	s := NewProcessedUpdateSet(1000, 500, 24*time.Hour)

	s.Begin(1)
	s.Commit(1)

	if removed := s.Sweep(time.Now()); removed != 0 {
		t.Errorf("expected nothing evicted inside the window, got %d", removed)
	}
}
