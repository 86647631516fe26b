package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/marquee/internal/catalog"
)

// offlineThreshold is the number of consecutive failed polls after which the
// catalog is reported as offline.
const offlineThreshold = 2

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Stats               catalog.DashboardStats
	HasStats            bool
	LastSync            *catalog.SyncLog
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive poll failures
}

// IsOffline returns true when the API has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= offlineThreshold
}

// NeverSynced reports whether the catalog has no recorded sync run.
func (s Snapshot) NeverSynced() bool {
	return s.LastSync == nil
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	now      func() time.Time
}

// Update replaces the stored snapshot. When err is non-nil the previous data is
// kept but the error is recorded for visibility.
func (s *Store) Update(stats *catalog.DashboardStats, lastSync *catalog.SyncLog, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = now
		s.snapshot.ConsecutiveFailures++
		return
	}

	if stats != nil {
		s.snapshot.Stats = cloneStats(*stats)
		s.snapshot.HasStats = true
	} else {
		s.snapshot.HasStats = false
	}
	s.snapshot.LastSync = cloneSyncLog(lastSync)
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = now
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Stats = cloneStats(s.snapshot.Stats)
	snap.LastSync = cloneSyncLog(s.snapshot.LastSync)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func (s *Store) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func cloneStats(stats catalog.DashboardStats) catalog.DashboardStats {
	dup := stats
	dup.TopRatedMovies = cloneMovies(stats.TopRatedMovies)
	dup.MostPopular = cloneMovies(stats.MostPopular)
	dup.RecentlyAdded = cloneMovies(stats.RecentlyAdded)
	if stats.LastSyncTime != nil {
		ts := *stats.LastSyncTime
		dup.LastSyncTime = &ts
	}
	return dup
}

func cloneMovies(items []catalog.Movie) []catalog.Movie {
	if len(items) == 0 {
		return nil
	}
	dup := make([]catalog.Movie, len(items))
	copy(dup, items)
	return dup
}

func cloneSyncLog(log *catalog.SyncLog) *catalog.SyncLog {
	if log == nil {
		return nil
	}
	dup := *log
	return &dup
}
