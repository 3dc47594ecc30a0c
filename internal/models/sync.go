package models

import (
	"fmt"
	"time"
)

// SyncProgress is a progress event emitted by a sync. The set of implementations is closed:
// [Starting], [Indeterminate] and [Running].
type SyncProgress interface {
	fmt.Stringer
	syncProgress()
}

// Starting is always the first event of a sync.
type Starting struct{}

// Indeterminate reports a stage whose length is unknown.
type Indeterminate struct {
	Message string
}

// Running reports determinate progress through the transaction list.
type Running struct {
	Current  int
	Total    int
	Fraction float64
}

// NewRunning builds a Running event. Fraction is zero when total is unknown.
func NewRunning(current, total int) Running {
	r := Running{Current: current, Total: total}
	if total > 0 {
		r.Fraction = float64(current) / float64(total)
	}
	return r
}

func (Starting) syncProgress()      {}
func (Indeterminate) syncProgress() {}
func (Running) syncProgress()       {}

func (Starting) String() string        { return "starting" }
func (i Indeterminate) String() string { return i.Message }
func (r Running) String() string {
	return fmt.Sprintf("%d/%d (%.0f%%)", r.Current, r.Total, r.Fraction*100)
}

// SyncResult summarises a completed sync.
type SyncResult struct {
	TransactionCount int
	AccountCount     int
	Duration         time.Duration
}

// SyncInfo is the record of the last sync kept by the application state.
type SyncInfo struct {
	Date              time.Time
	TransactionCount  int
	AccountCount      int
	TotalAccountCount int
}

// HasSynced reports whether info describes an actual sync.
func (s SyncInfo) HasSynced() bool {
	return !s.Date.IsZero()
}

// Summary renders a single line description.
func (s SyncInfo) Summary() string {
	if !s.HasSynced() {
		return "never synced"
	}
	return fmt.Sprintf("%d transactions, %d/%d accounts at %s",
		s.TransactionCount, s.AccountCount, s.TotalAccountCount, s.Date.Format(time.DateTime))
}
