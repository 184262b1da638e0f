// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/instakpi/internal/config"
	"github.com/tomtom215/instakpi/internal/logging"
	"github.com/tomtom215/instakpi/internal/reconcile"
)

const defaultInterval = time.Hour

// ErrSnapshotIncomplete is returned by TriggerSync when the account id or
// token is missing. The cycle is still recorded as skipped.
var ErrSnapshotIncomplete = errors.New("account id or access token not configured")

// CycleRunner runs one reconciliation cycle. Implemented by
// *reconcile.Engine.
type CycleRunner interface {
	RunCycle(ctx context.Context, snap reconcile.Snapshot)
}

// Snapshotter builds the per-cycle snapshot. Implemented by *SnapshotSource.
type Snapshotter interface {
	Snapshot(ctx context.Context) reconcile.Snapshot
}

// Manager runs reconciliation cycles on a fixed interval.
type Manager struct {
	runner    CycleRunner
	snapshots Snapshotter
	cfg       *config.SyncConfig

	mu               sync.RWMutex
	running          bool
	lastSync         time.Time
	stopChan         chan struct{}
	wg               sync.WaitGroup
	onCycleCompleted func(duration time.Duration)
}

// NewManager creates a manager. cfg.Interval defaults to one hour.
func NewManager(runner CycleRunner, snapshots Snapshotter, cfg *config.SyncConfig) *Manager {
	logging.Info().
		Dur("interval", cfg.Interval).
		Bool("run_on_startup", cfg.RunOnStartup).
		Bool("parallel_categories", cfg.ParallelCategories).
		Msg("Sync manager config loaded")

	return &Manager{
		runner:    runner,
		snapshots: snapshots,
		cfg:       cfg,
		stopChan:  make(chan struct{}),
	}
}

// SetOnCycleCompleted registers a callback invoked after every cycle.
func (m *Manager) SetOnCycleCompleted(callback func(duration time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCycleCompleted = callback
}

// Start begins the periodic loop. It returns immediately.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is already running")
	}
	m.running = true
	m.stopChan = make(chan struct{})
	m.mu.Unlock()

	logging.Info().Msg("Starting sync manager...")

	m.wg.Add(1)
	go m.loop(ctx)
	return nil
}

// Stop ends the loop and waits for an in-flight scheduled cycle.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is not running")
	}
	m.running = false
	close(m.stopChan)
	m.mu.Unlock()

	logging.Info().Msg("Stopping sync manager...")
	m.wg.Wait()
	logging.Info().Msg("Sync manager stopped")
	return nil
}

// LastSyncTime returns when the last cycle finished.
func (m *Manager) LastSyncTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSync
}

// TriggerSync runs one cycle synchronously. It may overlap a scheduled one.
func (m *Manager) TriggerSync(ctx context.Context) error {
	snap := m.snapshots.Snapshot(ctx)
	m.run(ctx, snap)
	if !snap.Valid() {
		return ErrSnapshotIncomplete
	}
	return nil
}

func (m *Manager) loop(ctx context.Context) {
	defer m.wg.Done()

	m.mu.RLock()
	stop := m.stopChan
	m.mu.RUnlock()

	// Stop and ctx both end in-flight cycles.
	cycleCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-cycleCtx.Done():
		}
	}()

	if m.cfg.RunOnStartup {
		m.run(cycleCtx, m.snapshots.Snapshot(cycleCtx))
	}

	interval := m.cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-cycleCtx.Done():
			return
		case <-ticker.C:
			m.run(cycleCtx, m.snapshots.Snapshot(cycleCtx))
		}
	}
}

func (m *Manager) run(ctx context.Context, snap reconcile.Snapshot) {
	start := time.Now()
	m.runner.RunCycle(ctx, snap)
	duration := time.Since(start)

	m.mu.Lock()
	m.lastSync = time.Now()
	callback := m.onCycleCompleted
	m.mu.Unlock()

	if callback != nil {
		callback(duration)
	}
}
