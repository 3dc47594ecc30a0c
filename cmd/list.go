package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ledgerx/internal/formatter"
	"github.com/desertthunder/ledgerx/internal/models"
	"github.com/desertthunder/ledgerx/internal/repositories"
	"github.com/desertthunder/ledgerx/internal/shared"
)

// Accounts prints the account tree stored for the selected profile.
func (r *Runner) Accounts(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	profile, err := r.profile(cmd)
	if err != nil {
		return err
	}

	store, db, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	accounts, err := store.Accounts(ctx, profile)
	if err != nil && !errors.Is(err, shared.ErrProfileNotFound) {
		return err
	}

	switch format {
	case formatter.FormatCSV:
		data, err := formatter.AccountsToCSV(accounts)
		if err != nil {
			return err
		}
		return r.writeBytes(data)
	case formatter.FormatText:
		if len(accounts) == 0 {
			return r.writePlain("%s\n", styles.warn.Render("No accounts stored; run 'ledgerx sync' first."))
		}
		return r.writeBytes(formatter.AccountsToText(accounts))
	default:
		return fmt.Errorf("%w: accounts cannot be shown as %s", shared.ErrInvalidArgument, format)
	}
}

// Transactions prints stored transactions for the selected profile, newest first.
func (r *Runner) Transactions(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	filter := repositories.TransactionFilter{
		Account: cmd.String("account"),
		Limit:   int(cmd.Int("limit")),
	}
	if s := cmd.String("since"); s != "" {
		if filter.Since, err = time.Parse(models.DateFormat, s); err != nil {
			return fmt.Errorf("%w: since %q must be YYYY-MM-DD", shared.ErrInvalidArgument, s)
		}
	}

	profile, err := r.profile(cmd)
	if err != nil {
		return err
	}

	store, db, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	txs, err := store.Transactions(ctx, profile, filter)
	if err != nil && !errors.Is(err, shared.ErrProfileNotFound) {
		return err
	}

	switch format {
	case formatter.FormatCSV:
		data, err := formatter.TransactionsToCSV(txs)
		if err != nil {
			return err
		}
		return r.writeBytes(data)
	case formatter.FormatJournal:
		return r.writeBytes(formatter.TransactionsToJournal(txs))
	case formatter.FormatText:
		if len(txs) == 0 {
			return r.writePlain("%s\n", styles.warn.Render("No transactions found."))
		}
		for _, tx := range txs {
			r.writePlain("%s %s\n", styles.title.Render(tx.LedgerDate()), tx.Description)
			for _, line := range tx.Lines {
				amount := ""
				if line.Amount != nil {
					amount = formatter.FormatAmount(line.Currency, *line.Amount)
				}
				if err := r.writePlain("    %-40s %s\n", line.AccountName, amount); err != nil {
					return err
				}
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: transactions cannot be shown as %s", shared.ErrInvalidArgument, format)
	}
}

// Export writes the stored data of the selected profile to files.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	profile, err := r.profile(cmd)
	if err != nil {
		return err
	}

	store, db, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	accounts, err := store.Accounts(ctx, profile)
	if err != nil {
		return err
	}
	txs, err := store.Transactions(ctx, profile, repositories.TransactionFilter{})
	if err != nil {
		return err
	}
	info, err := repositories.NewAppState(store).SyncInfo(ctx, profile)
	if err != nil {
		return err
	}

	result, err := formatter.WriteExport(cmd.String("output"), format, profile, info, accounts, txs)
	if err != nil {
		return err
	}
	for _, f := range result.Files {
		r.writePlain("%s %s\n", styles.ok.Render("✓"), f)
	}
	return nil
}
