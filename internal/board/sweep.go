package board

import (
	"context"
	"log"
	"time"
)

const DefaultSweepInterval = 60 * time.Second

// SetSweepHook registers fn to receive the number of tasks each sweep tick
// marked offline, including zero.
func (m *Manager) SetSweepHook(fn func(int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSweep = fn
}

// SweepOffline marks active viewer tasks whose owner has been silent longer
// than the offline threshold. Every list is checked and stamped; the board
// is persisted once when anything changed.
func (m *Manager) SweepOffline(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	threshold := m.cfg.OfflineThreshold
	if threshold <= 0 {
		threshold = DefaultOfflineThreshold
	}
	cutoff := millis(now.Add(-threshold))
	changed := 0
	for li := range m.lists {
		l := &m.lists[li]
		for ti := range l.Tasks {
			t := &l.Tasks[ti]
			if t.Username == "" || t.LastSeen == 0 || t.Status != StatusActive {
				continue
			}
			if t.LastSeen < cutoff {
				t.Status = StatusOffline
				changed++
			}
		}
		l.LastChecked = millis(now)
	}
	if changed > 0 {
		m.commitLocked()
	}
	if m.onSweep != nil {
		m.onSweep(changed)
	}
	return changed
}

// StartOfflineSweep runs SweepOffline on every tick until ctx is done.
func (m *Manager) StartOfflineSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.mu.Lock()
				now := m.now()
				m.mu.Unlock()
				if n := m.SweepOffline(now); n > 0 {
					log.Printf("offline sweep marked %d task(s) offline", n)
				}
			}
		}
	}()
}
