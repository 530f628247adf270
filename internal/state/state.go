// Package state holds the proxy's single piece of mutable shared
// state — the IAM container and the uni-key bucket index — behind a
// lock-free atomic snapshot, refreshed on a background ticker.
package state

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/patsnapops/piam-s3-proxy/internal/bucketindex"
	"github.com/patsnapops/piam-s3-proxy/internal/iam"
)

// Snapshot is one consistent, immutable view of everything the
// request pipeline reads per-request. Readers never see a torn
// combination of IAM data and bucket index: both are replaced together
// by a single pointer swap.
type Snapshot struct {
	IAM    iam.Container
	Bucket bucketindex.Index
}

// Refresher produces the next Snapshot, or an error if the refresh
// could not complete. A failed refresh must not mutate any state the
// caller can observe; Manager relies on this to retain the previous
// Snapshot on error.
type Refresher interface {
	Refresh(ctx context.Context) (Snapshot, error)
}

// Manager holds the live Snapshot and refreshes it periodically.
type Manager struct {
	refresher Refresher
	interval  time.Duration
	current   atomic.Pointer[Snapshot]
}

// NewManager builds a Manager seeded with an initial Snapshot. Load
// never returns nil once NewManager has returned successfully.
func NewManager(refresher Refresher, interval time.Duration, initial Snapshot) *Manager {
	m := &Manager{refresher: refresher, interval: interval}
	m.current.Store(&initial)
	return m
}

// Load returns the current Snapshot. Lock-free: readers never block
// on, or are blocked by, a concurrent refresh.
func (m *Manager) Load() *Snapshot {
	return m.current.Load()
}

// Start runs the refresh loop until ctx is cancelled. It is meant to
// be launched in its own goroutine.
func (m *Manager) Start(ctx context.Context) {
	logrus.WithField("interval", m.interval).Info("starting state refresh loop")

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("state refresh loop stopped")
			return
		case <-ticker.C:
			m.refreshOnce(ctx)
		}
	}
}

func (m *Manager) refreshOnce(ctx context.Context) {
	next, err := m.refresher.Refresh(ctx)
	if err != nil {
		logrus.WithError(err).Error("state refresh failed, retaining previous snapshot")
		return
	}
	m.current.Store(&next)
	logrus.Debug("state refresh succeeded")
}
