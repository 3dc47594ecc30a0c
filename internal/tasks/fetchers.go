package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ledgerx/internal/apperr"
	"github.com/desertthunder/ledgerx/internal/models"
	"github.com/desertthunder/ledgerx/internal/services"
	"github.com/desertthunder/ledgerx/internal/shared"
)

func discardLogger(l *log.Logger) *log.Logger {
	if l == nil {
		return log.New(io.Discard)
	}
	return l
}

// JSONAccountFetcher implements [AccountListFetcher].
type JSONAccountFetcher struct {
	client  services.Client
	catalog VersionCatalog
	logger  *log.Logger
}

// NewJSONAccountFetcher creates an account fetcher using the default catalog.
func NewJSONAccountFetcher(client services.Client, logger *log.Logger) *JSONAccountFetcher {
	return &JSONAccountFetcher{client: client, catalog: DefaultCatalog(), logger: discardLogger(logger)}
}

// Fetch downloads the account list once and decodes it with each candidate version until one fits.
func (f *JSONAccountFetcher) Fetch(ctx context.Context, profile models.Profile) (*AccountFetchResult, error) {
	candidates := f.catalog.JSONCandidates(profile.APIVersion)
	if len(candidates) == 0 {
		return nil, nil
	}

	body, err := f.client.Get(ctx, profile, services.PathAccounts)
	if errors.Is(err, shared.ErrNotFound) {
		f.logger.Debug("no JSON accounts endpoint", "profile", profile.Label())
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, v := range candidates {
		list, err := services.DecodeAccounts(v, body)
		if err != nil {
			f.logger.Debug("account layout rejected", "version", v, "err", err)
			lastErr = err
			continue
		}
		f.logger.Debug("accounts decoded", "version", v, "count", len(list.Accounts))
		return &AccountFetchResult{
			Accounts:      models.EnsureParents(list.Accounts),
			ExpectedCount: list.ExpectedPostings,
			Version:       v,
		}, nil
	}

	return nil, &apperr.APINotSupported{
		Detail: fmt.Sprintf("accounts readable by none of %v", candidates),
		Err:    fmt.Errorf("%w: %w", shared.ErrAPINotSupported, lastErr),
	}
}

// JSONTransactionFetcher implements [TransactionListFetcher].
type JSONTransactionFetcher struct {
	client  services.Client
	catalog VersionCatalog
	logger  *log.Logger
}

// NewJSONTransactionFetcher creates a transaction fetcher using the default catalog.
func NewJSONTransactionFetcher(client services.Client, logger *log.Logger) *JSONTransactionFetcher {
	return &JSONTransactionFetcher{client: client, catalog: DefaultCatalog(), logger: discardLogger(logger)}
}

// Fetch downloads the transaction list, picks the version whose layout matches the first element,
// and decodes every element with it. The result is ordered newest first.
//
// expected only sizes the result; progress totals are the exact element count.
func (f *JSONTransactionFetcher) Fetch(ctx context.Context, profile models.Profile, expected int, onProgress ProgressFunc) ([]models.Transaction, error) {
	candidates := f.catalog.JSONCandidates(profile.APIVersion)
	if len(candidates) == 0 {
		return nil, nil
	}

	body, err := f.client.Get(ctx, profile, services.PathTransactions)
	if errors.Is(err, shared.ErrNotFound) {
		f.logger.Debug("no JSON transactions endpoint", "profile", profile.Label())
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	items, err := services.SplitTransactions(body)
	if err != nil {
		return nil, &apperr.APINotSupported{Detail: "transactions", Err: fmt.Errorf("%w: %w", shared.ErrAPINotSupported, err)}
	}

	version, err := f.detect(candidates, items)
	if err != nil {
		return nil, err
	}

	total := len(items)
	txs := make([]models.Transaction, 0, max(total, expected))
	for i, raw := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tx, err := services.DecodeTransaction(version, raw)
		if err != nil {
			return nil, fmt.Errorf("transaction %d of %d: %w", i+1, total, err)
		}
		txs = append(txs, tx)
		if onProgress != nil {
			if err := onProgress(i+1, total); err != nil {
				return nil, err
			}
		}
	}

	models.SortTransactions(txs)
	f.logger.Debug("transactions decoded", "version", version, "count", len(txs))
	return txs, nil
}

// detect returns the first candidate able to decode the first element.
func (f *JSONTransactionFetcher) detect(candidates []models.APIVersion, items []json.RawMessage) (models.APIVersion, error) {
	if len(items) == 0 {
		return candidates[0], nil
	}

	var lastErr error
	for _, v := range candidates {
		if _, err := services.DecodeTransaction(v, items[0]); err != nil {
			f.logger.Debug("transaction layout rejected", "version", v, "err", err)
			lastErr = err
			continue
		}
		return v, nil
	}
	return 0, &apperr.APINotSupported{
		Detail: fmt.Sprintf("transactions readable by none of %v", candidates),
		Err:    fmt.Errorf("%w: %w", shared.ErrAPINotSupported, lastErr),
	}
}
