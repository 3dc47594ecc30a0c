package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/desertthunder/ledgerx/internal/models"
)

// Save replaces the accounts and transactions stored for profile in one transaction.
func (s *Store) Save(ctx context.Context, profile models.Profile, accounts []models.Account, transactions []models.Transaction) error {
	return s.ExecTx(ctx, func(tx *Store) error {
		profileID, err := tx.UpsertProfile(ctx, profile)
		if err != nil {
			return err
		}
		if err := tx.clearLedger(ctx, profileID); err != nil {
			return err
		}
		if err := tx.insertAccounts(ctx, profileID, accounts); err != nil {
			return err
		}
		return tx.insertTransactions(ctx, profileID, transactions)
	})
}

func (s *Store) clearLedger(ctx context.Context, profileID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE profile_id = ?`, profileID); err != nil {
		return fmt.Errorf("failed to clear accounts: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE profile_id = ?`, profileID); err != nil {
		return fmt.Errorf("failed to clear transactions: %w", err)
	}
	return nil
}

func (s *Store) insertAccounts(ctx context.Context, profileID int64, accounts []models.Account) error {
	for i, a := range accounts {
		result, err := s.db.ExecContext(ctx,
			`INSERT INTO accounts (profile_id, name, level, position) VALUES (?, ?, ?, ?)`,
			profileID, a.Name, a.Level, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert account %s: %w", a.Name, err)
		}
		accountID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get account id: %w", err)
		}

		for _, amt := range a.Amounts {
			_, err := s.db.ExecContext(ctx,
				`INSERT INTO account_values (account_id, currency, value) VALUES (?, ?, ?)`,
				accountID, amt.Currency, amt.Amount.String(),
			)
			if err != nil {
				return fmt.Errorf("failed to insert balance of %s: %w", a.Name, err)
			}
		}
	}
	return nil
}

func (s *Store) insertTransactions(ctx context.Context, profileID int64, transactions []models.Transaction) error {
	for _, t := range transactions {
		result, err := s.db.ExecContext(ctx,
			`INSERT INTO transactions (profile_id, ledger_id, date, description, comment) VALUES (?, ?, ?, ?, ?)`,
			profileID, t.LedgerID, t.LedgerDate(), t.Description, t.Comment,
		)
		if err != nil {
			return fmt.Errorf("failed to insert transaction %d: %w", t.LedgerID, err)
		}
		txID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get transaction id: %w", err)
		}

		for pos, line := range t.Lines {
			var amount any
			if line.Amount != nil {
				amount = line.Amount.String()
			}
			_, err := s.db.ExecContext(ctx,
				`INSERT INTO transaction_lines (transaction_id, position, account_name, amount, currency, comment) VALUES (?, ?, ?, ?, ?, ?)`,
				txID, pos, line.AccountName, amount, line.Currency, line.Comment,
			)
			if err != nil {
				return fmt.Errorf("failed to insert line %d of transaction %d: %w", pos, t.LedgerID, err)
			}
		}
	}
	return nil
}

// Accounts returns the stored accounts of profile in server order, with their balances.
func (s *Store) Accounts(ctx context.Context, profile models.Profile) ([]models.Account, error) {
	profileID, err := s.profileRowID(ctx, profile.ID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.name, a.level, v.currency, v.value
		FROM accounts a
		LEFT JOIN account_values v ON v.account_id = a.id
		WHERE a.profile_id = ?
		ORDER BY a.position, v.id
	`, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var (
		accounts []models.Account
		lastID   int64 = -1
	)
	for rows.Next() {
		var (
			id       int64
			name     string
			level    int
			currency sql.NullString
			value    sql.NullString
		)
		if err := rows.Scan(&id, &name, &level, &currency, &value); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		if id != lastID {
			accounts = append(accounts, models.Account{Name: name, Level: level})
			lastID = id
		}
		if !value.Valid {
			continue
		}
		amount, err := decimal.NewFromString(value.String)
		if err != nil {
			return nil, fmt.Errorf("account %s has invalid balance %q: %w", name, value.String, err)
		}
		acc := &accounts[len(accounts)-1]
		acc.Amounts = append(acc.Amounts, models.AccountAmount{Currency: currency.String, Amount: amount})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return accounts, nil
}

// TransactionFilter narrows [Store.Transactions]. Zero values match everything.
type TransactionFilter struct {
	// Account matches transactions with a line on the account or one of its sub-accounts.
	Account string
	Since   time.Time
	Limit   int
}

// Transactions returns the stored transactions of profile, newest first.
func (s *Store) Transactions(ctx context.Context, profile models.Profile, filter TransactionFilter) ([]models.Transaction, error) {
	profileID, err := s.profileRowID(ctx, profile.ID)
	if err != nil {
		return nil, err
	}

	query := `SELECT t.id, t.ledger_id, t.date, t.description, t.comment FROM transactions t WHERE t.profile_id = ?`
	args := []any{profileID}

	if filter.Account != "" {
		query += ` AND EXISTS (SELECT 1 FROM transaction_lines l WHERE l.transaction_id = t.id AND (l.account_name = ? OR l.account_name LIKE ?))`
		args = append(args, filter.Account, filter.Account+":%")
	}
	if !filter.Since.IsZero() {
		query += ` AND t.date >= ?`
		args = append(args, filter.Since.Format(models.DateFormat))
	}
	query += ` ORDER BY t.date DESC, t.ledger_id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	txs, ids, err := s.scanTransactions(ctx, query, args...)
	if err != nil || len(txs) == 0 {
		return txs, err
	}

	lines, err := s.transactionLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range txs {
		txs[i].Lines = lines[*txs[i].ID]
	}
	return txs, nil
}

func (s *Store) scanTransactions(ctx context.Context, query string, args ...any) ([]models.Transaction, []any, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var (
		txs []models.Transaction
		ids []any
	)
	for rows.Next() {
		var (
			t    models.Transaction
			id   int64
			date string
		)
		if err := rows.Scan(&id, &t.LedgerID, &date, &t.Description, &t.Comment); err != nil {
			return nil, nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if t.Date, err = time.Parse(models.DateFormat, date); err != nil {
			return nil, nil, fmt.Errorf("transaction %d has invalid date %q: %w", t.LedgerID, date, err)
		}
		t.ID = &id
		txs = append(txs, t)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("row iteration error: %w", err)
	}
	return txs, ids, nil
}

func (s *Store) transactionLines(ctx context.Context, ids []any) (map[int64][]models.TransactionLine, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := s.db.QueryContext(ctx, `
		SELECT transaction_id, account_name, amount, currency, comment
		FROM transaction_lines
		WHERE transaction_id IN (`+placeholders+`)
		ORDER BY transaction_id, position
	`, ids...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction lines: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]models.TransactionLine, len(ids))
	for rows.Next() {
		var (
			txID   int64
			line   models.TransactionLine
			amount sql.NullString
		)
		if err := rows.Scan(&txID, &line.AccountName, &amount, &line.Currency, &line.Comment); err != nil {
			return nil, fmt.Errorf("failed to scan transaction line: %w", err)
		}
		if amount.Valid {
			d, err := decimal.NewFromString(amount.String)
			if err != nil {
				return nil, fmt.Errorf("line of transaction %d has invalid amount %q: %w", txID, amount.String, err)
			}
			line.Amount = &d
		}
		out[txID] = append(out[txID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}
