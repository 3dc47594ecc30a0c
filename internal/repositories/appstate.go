package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/ledgerx/internal/models"
)

// AppState records sync summaries and notifies subscribers when stored data changes.
type AppState struct {
	store *Store

	mu          sync.Mutex
	subscribers map[int]chan struct{}
	next        int
}

func NewAppState(store *Store) *AppState {
	return &AppState{store: store, subscribers: map[int]chan struct{}{}}
}

// UpdateSyncInfo stores info as the latest sync of profile.
func (a *AppState) UpdateSyncInfo(ctx context.Context, profile models.Profile, info models.SyncInfo) error {
	return a.store.ExecTx(ctx, func(tx *Store) error {
		profileID, err := tx.UpsertProfile(ctx, profile)
		if err != nil {
			return err
		}

		query := `
			INSERT INTO sync_info (profile_id, synced_at, transaction_count, account_count, total_account_count)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (profile_id) DO UPDATE SET
				synced_at = excluded.synced_at,
				transaction_count = excluded.transaction_count,
				account_count = excluded.account_count,
				total_account_count = excluded.total_account_count
		`
		_, err = tx.db.ExecContext(ctx, query, profileID, info.Date.UTC(), info.TransactionCount, info.AccountCount, info.TotalAccountCount)
		if err != nil {
			return fmt.Errorf("failed to store sync info: %w", err)
		}
		return nil
	})
}

// SyncInfo returns the latest sync of profile, or the zero value if it never synced.
func (a *AppState) SyncInfo(ctx context.Context, profile models.Profile) (models.SyncInfo, error) {
	var (
		info     models.SyncInfo
		syncedAt time.Time
	)
	err := a.store.db.QueryRowContext(ctx, `
		SELECT s.synced_at, s.transaction_count, s.account_count, s.total_account_count
		FROM sync_info s
		JOIN profiles p ON p.id = s.profile_id
		WHERE p.uuid = ?
	`, profile.ID).Scan(&syncedAt, &info.TransactionCount, &info.AccountCount, &info.TotalAccountCount)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SyncInfo{}, nil
	}
	if err != nil {
		return models.SyncInfo{}, fmt.Errorf("failed to query sync info: %w", err)
	}
	info.Date = syncedAt
	return info, nil
}

// Subscribe returns a channel receiving a value after each data change, and a function to unsubscribe.
// Changes arriving while a previous one is unread are coalesced.
func (a *AppState) Subscribe() (<-chan struct{}, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.next
	a.next++
	ch := make(chan struct{}, 1)
	a.subscribers[id] = ch

	return ch, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.subscribers, id)
	}
}

func (a *AppState) SignalDataChanged() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, ch := range a.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
