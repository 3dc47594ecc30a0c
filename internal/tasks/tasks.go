package tasks

import (
	"context"
	"errors"

	"github.com/desertthunder/ledgerx/internal/models"
)

// ProgressFunc receives determinate progress. Returning an error aborts the operation reporting it.
type ProgressFunc func(current, total int) error

// AccountFetchResult is the outcome of a JSON account fetch.
type AccountFetchResult struct {
	Accounts []models.Account
	// ExpectedCount is the server's posting count, a hint for sizing and progress.
	ExpectedCount int
	// Version is the protocol version whose layout the document matched.
	Version models.APIVersion
}

// AccountListFetcher retrieves the account list over the JSON API.
//
// Fetch returns (nil, nil) when the server has no JSON account endpoint, and an
// [apperr.APINotSupported] error when the endpoint exists but no known version can read it.
type AccountListFetcher interface {
	Fetch(ctx context.Context, profile models.Profile) (*AccountFetchResult, error)
}

// TransactionListFetcher retrieves the transaction list over the JSON API.
//
// Fetch returns (nil, nil) when the server has no JSON transaction endpoint. onProgress is
// invoked once per decoded transaction.
type TransactionListFetcher interface {
	Fetch(ctx context.Context, profile models.Profile, expected int, onProgress ProgressFunc) ([]models.Transaction, error)
}

// LegacyParseResult holds everything scraped from the HTML journal page.
type LegacyParseResult struct {
	Accounts     []models.Account
	Transactions []models.Transaction
}

// LegacyHTMLParser scrapes accounts and transactions from servers without a JSON API.
// Progress is reported against hint only when hint is positive.
type LegacyHTMLParser interface {
	Parse(ctx context.Context, profile models.Profile, hint int, onProgress ProgressFunc) (*LegacyParseResult, error)
}

// SyncPersistence stores the result of a sync, replacing the previous state of the profile.
type SyncPersistence interface {
	Save(ctx context.Context, profile models.Profile, accounts []models.Account, transactions []models.Transaction) error
}

// AppStateService records sync summaries and tells observers that stored data changed.
type AppStateService interface {
	UpdateSyncInfo(ctx context.Context, profile models.Profile, info models.SyncInfo) error
	SignalDataChanged()
}

// errStopped aborts a fetch when the consumer of a sync stops listening.
var errStopped = errors.New("sync stopped by consumer")
