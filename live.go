package main

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"
)

type fetchAlertsFunc func(ctx context.Context) ([]Summary, error)

// Poller owns the live view's data: the last known good alert list and the
// optional auto-refresh loop. A fetch failure never clears prior data, so
// an unattended ward display degrades to stale rather than blank.
type Poller struct {
	fetch fetchAlertsFunc

	// onUrgent, when set, fires on a transition from zero to one or more
	// residents at the two highest severity levels.
	onUrgent func(count int, rows []Summary)

	mu        sync.Mutex
	rows      []Summary
	fetchedAt time.Time
	hasData   bool
	handle    *PollHandle
}

func NewPoller(fetch fetchAlertsFunc) *Poller {
	return &Poller{fetch: fetch}
}

func (p *Poller) SetUrgentHook(hook func(count int, rows []Summary)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onUrgent = hook
}

// Refresh performs one fetch. On success the snapshot is replaced wholesale;
// on failure the previous snapshot is retained and the error is returned for
// the caller to surface or swallow.
func (p *Poller) Refresh(ctx context.Context) error {
	rows, err := p.fetch(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	prevUrgent := urgentCount(p.rows)
	p.rows = rows
	p.fetchedAt = time.Now()
	p.hasData = true
	nowUrgent := urgentCount(rows)
	hook := p.onUrgent
	p.mu.Unlock()

	if hook != nil && prevUrgent == 0 && nowUrgent > 0 {
		hook(nowUrgent, rows)
	}
	return nil
}

// Snapshot returns a copy of the last good alert list and its fetch time.
// Callers filter and sort the copy; the underlying snapshot never mutates.
func (p *Poller) Snapshot() ([]Summary, time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rows := make([]Summary, len(p.rows))
	copy(rows, p.rows)
	return rows, p.fetchedAt, p.hasData
}

// UrgentCount is the number of residents at the two highest severity levels
// in the current snapshot. It drives the urgent banner.
func (p *Poller) UrgentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return urgentCount(p.rows)
}

func urgentCount(rows []Summary) int {
	count := 0
	for _, row := range rows {
		if level := row.Level(); level == AlertHigh || level == AlertUrgent {
			count++
		}
	}
	return count
}

// PollHandle is the cancellation token for one auto-refresh loop. Stop is
// safe to call more than once and on every path that disables polling;
// it returns only after the loop goroutine has exited, so a stopped handle
// can never fire again.
type PollHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (h *PollHandle) Stop() {
	h.once.Do(func() {
		h.cancel()
		<-h.done
	})
}

// StartAuto begins refreshing at the given period and returns the handle.
// If a loop is already running it is stopped first; at most one live timer
// exists per poller.
func (p *Poller) StartAuto(interval time.Duration) *PollHandle {
	p.StopAuto()

	ctx, cancel := context.WithCancel(context.Background())
	handle := &PollHandle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(handle.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
					// Background failures are swallowed: prior data stays up.
					log.Printf("auto-refresh error (keeping last data): %v", err)
				}
			}
		}
	}()

	p.mu.Lock()
	p.handle = handle
	p.mu.Unlock()
	return handle
}

// StopAuto cancels the running loop, if any.
func (p *Poller) StopAuto() {
	p.mu.Lock()
	handle := p.handle
	p.handle = nil
	p.mu.Unlock()
	if handle != nil {
		handle.Stop()
	}
}

// AutoOn reports whether an auto-refresh loop is currently running.
func (p *Poller) AutoOn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle != nil
}

// FilterByLevel returns the rows matching one level, or all rows when level
// is AlertNone (the "ALL" filter). The input slice is not modified.
func FilterByLevel(rows []Summary, level AlertLevel) []Summary {
	if level == AlertNone {
		out := make([]Summary, len(rows))
		copy(out, rows)
		return out
	}
	var out []Summary
	for _, row := range rows {
		if row.Level() == level {
			out = append(out, row)
		}
	}
	return out
}

// Sort keys accepted by SortRows.
const (
	SortByScore = "score"
	SortByLevel = "level"
	SortByID    = "id"
)

// SortRows returns a sorted copy. Score and level sort descending (riskiest
// first); ties keep their incoming relative order.
func SortRows(rows []Summary, key string) []Summary {
	out := make([]Summary, len(rows))
	copy(out, rows)
	switch key {
	case SortByLevel:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Level().Rank() > out[j].Level().Rank()
		})
	case SortByID:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].DisplayID() < out[j].DisplayID()
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].RiskScore > out[j].RiskScore
		})
	}
	return out
}
