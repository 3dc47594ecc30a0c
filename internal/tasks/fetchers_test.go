package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/ledgerx/internal/apperr"
	"github.com/desertthunder/ledgerx/internal/models"
	"github.com/desertthunder/ledgerx/internal/services"
	"github.com/desertthunder/ledgerx/internal/shared"
	tu "github.com/desertthunder/ledgerx/internal/testing"
)

const accountsDoc140 = `[
  {"aname": "assets:bank:checking", "anumpostings": 2,
   "aibalance": [{"acommodity": "EUR", "aquantity": {"decimalMantissa": 150000, "decimalPlaces": 2, "floatingPoint": 1500}}]},
  {"aname": "expenses", "anumpostings": 1, "aibalance": []}
]`

const accountsDoc150 = `[
  {"aname": "assets:cash", "adata": {"pdperiods": [
    ["2024-01-01", {"bdincludingsubs": [{"acommodity": "$", "aquantity": {"decimalMantissa": 500, "decimalPlaces": 1, "floatingPoint": 50}}], "bdnumpostings": 4}]
  ]}}
]`

func transactionJSON140(index int, date string) string {
	return fmt.Sprintf(`{"tindex": %d, "tdate": %q, "tdescription": "tx %d",
  "tsourcepos": {"sourceName": "main.journal", "sourceLine": %d, "sourceColumn": 1},
  "tpostings": [{"paccount": "assets:cash", "pamount": [{"acommodity": "EUR", "aquantity": {"decimalMantissa": -100, "decimalPlaces": 2, "floatingPoint": -1}}]},
                {"paccount": "expenses:misc", "pamount": []}]}`, index, date, index, index)
}

func transactionsDoc(items ...string) []byte {
	return []byte("[" + strings.Join(items, ",") + "]")
}

func scripted(bodies map[string][]byte) *tu.FakeClient {
	return &tu.FakeClient{GetFunc: func(_ context.Context, path string) ([]byte, error) {
		body, ok := bodies[path]
		if !ok {
			return nil, fmt.Errorf("GET %s: %w", path, shared.ErrNotFound)
		}
		return body, nil
	}}
}

func TestJSONAccountFetcher(t *testing.T) {
	ctx := context.Background()

	t.Run("detects version and adds parents", func(t *testing.T) {
		client := scripted(map[string][]byte{services.PathAccounts: []byte(accountsDoc140)})

		res, err := NewJSONAccountFetcher(client, nil).Fetch(ctx, savedProfile())
		require.NoError(t, err)
		require.NotNil(t, res)

		assert.Equal(t, models.APIv1_40, res.Version)
		assert.Equal(t, 3, res.ExpectedCount)
		names := make([]string, len(res.Accounts))
		for i, a := range res.Accounts {
			names[i] = a.Name
		}
		assert.Equal(t, []string{"assets", "assets:bank", "assets:bank:checking", "expenses"}, names)
		assert.True(t, res.Accounts[2].Amounts[0].Amount.Equal(decimal.NewFromInt(1500)))
		assert.Equal(t, 1, client.CallCount("GET"), "document is fetched once for all candidates")
	})

	t.Run("newest layout", func(t *testing.T) {
		client := scripted(map[string][]byte{services.PathAccounts: []byte(accountsDoc150)})

		res, err := NewJSONAccountFetcher(client, nil).Fetch(ctx, savedProfile())
		require.NoError(t, err)
		assert.Equal(t, models.APIv1_50, res.Version)
		assert.Equal(t, 4, res.ExpectedCount)
	})

	t.Run("missing endpoint yields nil", func(t *testing.T) {
		res, err := NewJSONAccountFetcher(scripted(nil), nil).Fetch(ctx, savedProfile())
		assert.NoError(t, err)
		assert.Nil(t, res)
	})

	t.Run("unreadable document is unsupported", func(t *testing.T) {
		client := scripted(map[string][]byte{services.PathAccounts: []byte(`<html></html>`)})

		_, err := NewJSONAccountFetcher(client, nil).Fetch(ctx, savedProfile())
		var target *apperr.APINotSupported
		require.ErrorAs(t, err, &target)
		assert.ErrorIs(t, err, shared.ErrAPINotSupported)
	})

	t.Run("explicit version does not probe others", func(t *testing.T) {
		client := scripted(map[string][]byte{services.PathAccounts: []byte(accountsDoc140)})

		_, err := NewJSONAccountFetcher(client, nil).Fetch(ctx, savedProfile().WithAPIVersion(models.APIv1_50))
		assert.ErrorIs(t, err, shared.ErrAPINotSupported)
	})

	t.Run("html selector makes no request", func(t *testing.T) {
		client := scripted(nil)

		res, err := NewJSONAccountFetcher(client, nil).Fetch(ctx, savedProfile().WithAPIVersion(models.APIHTML))
		assert.NoError(t, err)
		assert.Nil(t, res)
		assert.Empty(t, client.Calls())
	})

	t.Run("network failures propagate", func(t *testing.T) {
		boom := errors.New("connection reset")
		client := &tu.FakeClient{GetFunc: func(context.Context, string) ([]byte, error) { return nil, boom }}

		res, err := NewJSONAccountFetcher(client, nil).Fetch(ctx, savedProfile())
		assert.ErrorIs(t, err, boom)
		assert.Nil(t, res)
	})
}

func TestJSONTransactionFetcher(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes with progress and sorts newest first", func(t *testing.T) {
		doc := transactionsDoc(transactionJSON140(1, "2024-01-01"), transactionJSON140(2, "2024-02-01"), transactionJSON140(3, "2024-01-15"))
		client := scripted(map[string][]byte{services.PathTransactions: doc})

		var progress [][2]int
		txs, err := NewJSONTransactionFetcher(client, nil).Fetch(ctx, savedProfile(), 10, func(current, total int) error {
			progress = append(progress, [2]int{current, total})
			return nil
		})
		require.NoError(t, err)

		assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress)
		require.Len(t, txs, 3)
		assert.Equal(t, []int64{2, 3, 1}, []int64{txs[0].LedgerID, txs[1].LedgerID, txs[2].LedgerID})
		assert.Len(t, txs[0].Lines, 2)
		assert.Nil(t, txs[0].Lines[1].Amount)
	})

	t.Run("empty list", func(t *testing.T) {
		client := scripted(map[string][]byte{services.PathTransactions: []byte(`[]`)})

		txs, err := NewJSONTransactionFetcher(client, nil).Fetch(ctx, savedProfile(), 0, nil)
		require.NoError(t, err)
		assert.NotNil(t, txs)
		assert.Empty(t, txs)
	})

	t.Run("missing endpoint yields nil", func(t *testing.T) {
		txs, err := NewJSONTransactionFetcher(scripted(nil), nil).Fetch(ctx, savedProfile(), 0, nil)
		assert.NoError(t, err)
		assert.Nil(t, txs)
	})

	t.Run("layout of first element decides", func(t *testing.T) {
		doc := transactionsDoc(transactionJSON140(1, "2024-01-01"))
		client := scripted(map[string][]byte{services.PathTransactions: doc})

		_, err := NewJSONTransactionFetcher(client, nil).Fetch(ctx, savedProfile().WithAPIVersion(models.APIv1_50), 0, nil)
		assert.ErrorIs(t, err, shared.ErrAPINotSupported)
	})

	t.Run("progress error aborts", func(t *testing.T) {
		doc := transactionsDoc(transactionJSON140(1, "2024-01-01"), transactionJSON140(2, "2024-01-02"))
		client := scripted(map[string][]byte{services.PathTransactions: doc})

		calls := 0
		_, err := NewJSONTransactionFetcher(client, nil).Fetch(ctx, savedProfile(), 0, func(int, int) error {
			calls++
			return errStopped
		})
		assert.ErrorIs(t, err, errStopped)
		assert.Equal(t, 1, calls)
	})

	t.Run("later malformed element is an error", func(t *testing.T) {
		doc := transactionsDoc(transactionJSON140(1, "2024-01-01"), `{"tindex": 2}`)
		client := scripted(map[string][]byte{services.PathTransactions: doc})

		_, err := NewJSONTransactionFetcher(client, nil).Fetch(ctx, savedProfile(), 0, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "transaction 2 of 2")
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		client := scripted(map[string][]byte{services.PathTransactions: []byte(`[]`)})

		_, err := NewJSONTransactionFetcher(client, nil).Fetch(cctx, savedProfile(), 0, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
