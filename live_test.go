package main

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"
)

// countingFetch is a controllable fetchAlertsFunc for poller tests.
type countingFetch struct {
	mu    sync.Mutex
	calls int
	rows  []Summary
	err   error
}

func (f *countingFetch) fetch(ctx context.Context) ([]Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	rows := make([]Summary, len(f.rows))
	copy(rows, f.rows)
	return rows, nil
}

func (f *countingFetch) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *countingFetch) set(rows []Summary, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = rows
	f.err = err
}

func TestRefreshReplacesSnapshot(t *testing.T) {
	fetch := &countingFetch{rows: []Summary{{ResidentID: "A"}, {ResidentID: "B"}}}
	poller := NewPoller(fetch.fetch)

	if err := poller.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	rows, _, hasData := poller.Snapshot()
	if !hasData {
		t.Fatal("hasData = false after successful refresh")
	}
	if len(rows) != 2 || rows[0].ResidentID != "A" {
		t.Errorf("snapshot = %v", rows)
	}
}

func TestRefreshFailureRetainsPriorData(t *testing.T) {
	fetch := &countingFetch{rows: []Summary{{ResidentID: "A"}, {ResidentID: "B"}}}
	poller := NewPoller(fetch.fetch)

	if err := poller.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	_, firstAt, _ := poller.Snapshot()

	fetch.set(nil, fmt.Errorf("connection refused"))
	if err := poller.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}

	rows, at, hasData := poller.Snapshot()
	if !hasData {
		t.Fatal("hasData flipped off after a failed refresh")
	}
	if len(rows) != 2 || rows[0].ResidentID != "A" || rows[1].ResidentID != "B" {
		t.Errorf("displayed list changed on failure: %v, want [A B]", rows)
	}
	if !at.Equal(firstAt) {
		t.Errorf("fetchedAt advanced on a failed refresh")
	}
}

func TestAutoRefreshTicks(t *testing.T) {
	fetch := &countingFetch{}
	poller := NewPoller(fetch.fetch)

	poller.StartAuto(20 * time.Millisecond)
	defer poller.StopAuto()

	deadline := time.Now().Add(2 * time.Second)
	for fetch.callCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := fetch.callCount(); got < 2 {
		t.Fatalf("auto-refresh produced %d fetches, want at least 2", got)
	}
	if !poller.AutoOn() {
		t.Error("AutoOn = false while loop running")
	}
}

func TestToggleOffBeforeTickLeavesNoTimer(t *testing.T) {
	fetch := &countingFetch{}
	poller := NewPoller(fetch.fetch)

	handle := poller.StartAuto(150 * time.Millisecond)
	poller.StopAuto() // off again before the first tick

	select {
	case <-handle.done:
	case <-time.After(time.Second):
		t.Fatal("poll goroutine still alive after StopAuto")
	}

	time.Sleep(400 * time.Millisecond)
	if got := fetch.callCount(); got != 0 {
		t.Errorf("fetches after toggle-off = %d, want 0", got)
	}
	if poller.AutoOn() {
		t.Error("AutoOn = true after StopAuto")
	}
}

func TestNoFetchesAfterStop(t *testing.T) {
	fetch := &countingFetch{}
	poller := NewPoller(fetch.fetch)

	poller.StartAuto(15 * time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for fetch.callCount() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	poller.StopAuto()

	after := fetch.callCount()
	time.Sleep(100 * time.Millisecond)
	if got := fetch.callCount(); got != after {
		t.Errorf("fetches continued after stop: %d -> %d", after, got)
	}
}

func TestHandleStopIdempotent(t *testing.T) {
	fetch := &countingFetch{}
	poller := NewPoller(fetch.fetch)

	handle := poller.StartAuto(50 * time.Millisecond)
	handle.Stop()
	handle.Stop() // second stop must not panic or block
	poller.StopAuto()
}

func TestStartAutoReplacesRunningLoop(t *testing.T) {
	fetch := &countingFetch{}
	poller := NewPoller(fetch.fetch)

	first := poller.StartAuto(10 * time.Second)
	second := poller.StartAuto(10 * time.Second)
	defer poller.StopAuto()

	select {
	case <-first.done:
	case <-time.After(time.Second):
		t.Fatal("first loop not stopped when a second was started")
	}
	select {
	case <-second.done:
		t.Fatal("second loop should still be running")
	default:
	}
}

func TestUrgentHookFiresOnZeroToPositiveTransition(t *testing.T) {
	fetch := &countingFetch{rows: []Summary{{ResidentID: "A", AlertLevel: "LOW"}}}
	poller := NewPoller(fetch.fetch)

	var mu sync.Mutex
	fired := 0
	poller.SetUrgentHook(func(count int, rows []Summary) {
		mu.Lock()
		fired++
		mu.Unlock()
	})

	// No urgent rows yet: no hook.
	if err := poller.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	// Transition 0 -> 2.
	fetch.set([]Summary{
		{ResidentID: "A", AlertLevel: "HIGH"},
		{ResidentID: "B", AlertLevel: "URGENT"},
	}, nil)
	if err := poller.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	// Still urgent: no second notification.
	if err := poller.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if fired != 1 {
		t.Errorf("urgent hook fired %d times, want exactly 1", fired)
	}
}

func TestUrgentCount(t *testing.T) {
	fetch := &countingFetch{rows: []Summary{
		{ResidentID: "A", AlertLevel: "LOW"},
		{ResidentID: "B", AlertLevel: "HIGH"},
		{ResidentID: "C", AlertLevel: "URGENT"},
		{ResidentID: "D", AlertLevel: "MEDIUM"},
	}}
	poller := NewPoller(fetch.fetch)
	if err := poller.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if got := poller.UrgentCount(); got != 2 {
		t.Errorf("UrgentCount = %d, want 2", got)
	}
}

func TestFilterByLevelIsPure(t *testing.T) {
	rows := []Summary{
		{ResidentID: "A", AlertLevel: "LOW"},
		{ResidentID: "B", AlertLevel: "HIGH"},
		{ResidentID: "C", AlertLevel: "LOW"},
	}
	original := make([]Summary, len(rows))
	copy(original, rows)

	high := FilterByLevel(rows, AlertHigh)
	if len(high) != 1 || high[0].ResidentID != "B" {
		t.Errorf("FilterByLevel(HIGH) = %v", high)
	}

	all := FilterByLevel(rows, AlertNone)
	if len(all) != 3 {
		t.Errorf("FilterByLevel(ALL) = %v", all)
	}
	all[0].ResidentID = "mutated"

	if !reflect.DeepEqual(rows, original) {
		t.Error("filtering mutated the underlying collection")
	}
}

func TestSortRowsIsPureAndStable(t *testing.T) {
	rows := []Summary{
		{ResidentID: "first", RiskScore: 0.5},
		{ResidentID: "high", RiskScore: 0.9},
		{ResidentID: "second", RiskScore: 0.5},
	}
	original := make([]Summary, len(rows))
	copy(original, rows)

	sorted := SortRows(rows, SortByScore)
	if sorted[0].ResidentID != "high" {
		t.Errorf("descending sort first = %s, want high", sorted[0].ResidentID)
	}
	// Equal scores keep their incoming relative order.
	if sorted[1].ResidentID != "first" || sorted[2].ResidentID != "second" {
		t.Errorf("tie order = %s, %s; want first, second", sorted[1].ResidentID, sorted[2].ResidentID)
	}
	if !reflect.DeepEqual(rows, original) {
		t.Error("sorting mutated the input slice")
	}
}

func TestSortRowsByLevelAndID(t *testing.T) {
	rows := []Summary{
		{ResidentID: "b", AlertLevel: "LOW", RiskScore: 0.2},
		{ResidentID: "a", AlertLevel: "URGENT", RiskScore: 0.1},
	}

	byLevel := SortRows(rows, SortByLevel)
	if byLevel[0].ResidentID != "a" {
		t.Errorf("level sort first = %s, want a (URGENT)", byLevel[0].ResidentID)
	}

	byID := SortRows(rows, SortByID)
	if byID[0].ResidentID != "a" || byID[1].ResidentID != "b" {
		t.Errorf("id sort = %v", byID)
	}
}

func TestSnapshotCopyIsolation(t *testing.T) {
	fetch := &countingFetch{rows: []Summary{{ResidentID: "A"}}}
	poller := NewPoller(fetch.fetch)
	if err := poller.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	rows, _, _ := poller.Snapshot()
	rows[0].ResidentID = "mutated"

	again, _, _ := poller.Snapshot()
	if again[0].ResidentID != "A" {
		t.Errorf("snapshot leaked internal slice: %v", again)
	}
}
