package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ledgerx/internal/models"
	"github.com/desertthunder/ledgerx/internal/shared"
	"github.com/desertthunder/ledgerx/internal/tasks"
)

// Add submits a transaction built from flags to the selected profile.
func (r *Runner) Add(ctx context.Context, cmd *cli.Command) error {
	profile, err := r.profile(cmd)
	if err != nil {
		return err
	}

	date := time.Now()
	if s := cmd.String("date"); s != "" {
		if date, err = time.Parse(models.DateFormat, s); err != nil {
			return fmt.Errorf("%w: date %q must be YYYY-MM-DD", shared.ErrInvalidArgument, s)
		}
	}

	tx, err := buildTransaction(date, cmd.String("description"), cmd.String("comment"), cmd.StringSlice("posting"), profile.DefaultCurrency)
	if err != nil {
		return err
	}

	var opts []tasks.SenderOption
	if r.sleep != nil {
		opts = append(opts, tasks.WithSleeper(r.sleep))
	}
	sender := tasks.NewTransactionSender(r.hledger(), shared.WithLogger(r.logger, "profile", profile.Label()), opts...)

	simulate := cmd.Bool("simulate")
	if err := sender.Send(ctx, profile, tx, simulate); err != nil {
		r.writePlain("%s %v\n", styles.err.Render("✗"), err)
		return err
	}

	verb := "Submitted"
	if simulate {
		verb = "Simulated"
	}
	return r.writePlain("%s %s %s %s (%d postings)\n",
		styles.ok.Render("✓"), verb, tx.LedgerDate(), tx.Description, len(tx.Lines))
}

// buildTransaction assembles a transaction from "account=amount currency" postings.
// Postings without an amount are left for the server to balance; at most one is allowed per currency.
func buildTransaction(date time.Time, description, comment string, postings []string, defaultCurrency string) (models.Transaction, error) {
	if strings.TrimSpace(description) == "" {
		return models.Transaction{}, fmt.Errorf("%w: description", shared.ErrMissingArgument)
	}
	if len(postings) < 2 {
		return models.Transaction{}, fmt.Errorf("%w: a transaction needs at least two postings", shared.ErrInvalidArgument)
	}

	tx := models.Transaction{Date: date, Description: description, Comment: comment}
	elided := map[string]bool{}
	for _, p := range postings {
		line, err := parsePosting(p, defaultCurrency)
		if err != nil {
			return models.Transaction{}, err
		}
		if line.Amount == nil {
			if elided[line.Currency] {
				return models.Transaction{}, fmt.Errorf("%w: more than one posting without amount in %q", shared.ErrInvalidArgument, line.Currency)
			}
			elided[line.Currency] = true
		}
		tx.Lines = append(tx.Lines, line)
	}
	return tx, nil
}

// parsePosting parses "account", "account=amount" or "account=amount currency".
func parsePosting(s, defaultCurrency string) (models.TransactionLine, error) {
	account, value, _ := strings.Cut(s, "=")
	account = strings.TrimSpace(account)
	if account == "" {
		return models.TransactionLine{}, fmt.Errorf("%w: posting %q has no account", shared.ErrInvalidArgument, s)
	}

	line := models.TransactionLine{AccountName: account, Currency: defaultCurrency}
	fields := strings.Fields(value)
	switch len(fields) {
	case 0:
		return line, nil
	case 1, 2:
		amount, err := decimal.NewFromString(fields[0])
		if err != nil {
			return models.TransactionLine{}, fmt.Errorf("%w: posting %q has invalid amount: %w", shared.ErrInvalidArgument, s, err)
		}
		line.Amount = &amount
		if len(fields) == 2 {
			line.Currency = fields[1]
		}
		return line, nil
	default:
		return models.TransactionLine{}, fmt.Errorf("%w: posting %q", shared.ErrInvalidArgument, s)
	}
}
