package models

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountAmount is the balance of one currency in an account.
type AccountAmount struct {
	Currency string
	Amount   decimal.Decimal
}

// Account is a node in the colon-delimited account tree.
type Account struct {
	Name    string
	Level   int
	Amounts []AccountAmount
}

// NewAccount builds an account, deriving its level from the name.
func NewAccount(name string, amounts ...AccountAmount) Account {
	return Account{Name: name, Level: AccountLevel(name), Amounts: amounts}
}

// AccountLevel is the number of ':' separators in name.
func AccountLevel(name string) int {
	return strings.Count(name, ":")
}

// ParentAccountName returns the name of the parent account, or "" for top-level accounts.
func ParentAccountName(name string) string {
	i := strings.LastIndex(name, ":")
	if i < 0 {
		return ""
	}
	return name[:i]
}

// AddAmount adds amount to the balance held for currency.
func (a *Account) AddAmount(currency string, amount decimal.Decimal) {
	for i := range a.Amounts {
		if a.Amounts[i].Currency == currency {
			a.Amounts[i].Amount = a.Amounts[i].Amount.Add(amount)
			return
		}
	}
	a.Amounts = append(a.Amounts, AccountAmount{Currency: currency, Amount: amount})
}

// EnsureParents inserts any missing ancestor accounts ahead of their first descendant.
// Servers report a flat list and may omit parents with no postings of their own.
func EnsureParents(accounts []Account) []Account {
	seen := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		seen[a.Name] = true
	}

	out := make([]Account, 0, len(accounts))
	for _, a := range accounts {
		var missing []string
		for p := ParentAccountName(a.Name); p != ""; p = ParentAccountName(p) {
			if seen[p] {
				break
			}
			seen[p] = true
			missing = append(missing, p)
		}
		for i := len(missing) - 1; i >= 0; i-- {
			out = append(out, NewAccount(missing[i]))
		}
		out = append(out, a)
	}
	return out
}

// TransactionLine is one posting of a transaction. A nil Amount is filled in by the server.
type TransactionLine struct {
	AccountName string
	Amount      *decimal.Decimal
	Currency    string
	Comment     string
}

// Transaction is a dated entry in the ledger.
//
// ID is nil until the transaction is stored locally; LedgerID is the server's index.
type Transaction struct {
	ID          *int64
	LedgerID    int64
	Date        time.Time
	Description string
	Comment     string
	Lines       []TransactionLine
}

// DateFormat is the calendar date layout used on the wire.
const DateFormat = "2006-01-02"

// LedgerDate returns the transaction date formatted for the server.
func (t Transaction) LedgerDate() string {
	return t.Date.Format(DateFormat)
}

// SortTransactions orders transactions newest first, breaking ties on the ledger index.
func SortTransactions(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date)
		}
		return txs[i].LedgerID > txs[j].LedgerID
	})
}
