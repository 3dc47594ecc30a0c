package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ledgerx/internal/models"
	"github.com/desertthunder/ledgerx/internal/repositories"
	"github.com/desertthunder/ledgerx/internal/shared"
	"github.com/desertthunder/ledgerx/internal/tasks"
)

// Sync downloads the ledger of the selected profile and replaces the local copy.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	profile, err := r.profile(cmd)
	if err != nil {
		return err
	}

	store, db, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	state := repositories.NewAppState(store)
	changed, unsubscribe := state.Subscribe()
	defer unsubscribe()

	logger := shared.WithLogger(r.logger, "profile", profile.Label())
	client := r.hledger()
	syncer := tasks.NewSyncOrchestrator(
		tasks.NewJSONAccountFetcher(client, logger),
		tasks.NewJSONTransactionFetcher(client, logger),
		tasks.NewJournalScraper(client, logger),
		store,
		logger,
		tasks.WithAppState(state),
	)

	r.writePlain("%s\n", styles.title.Render("Syncing "+profile.Label()))

	lastStep := -1
	for event, err := range syncer.Sync(ctx, profile) {
		if err != nil {
			r.writePlain("%s %v\n", styles.err.Render("✗"), err)
			return err
		}
		switch e := event.(type) {
		case models.Running:
			// redraw at most every 5%
			if step := int(e.Fraction * 20); step != lastStep || e.Current == e.Total {
				lastStep = step
				r.writePlain("  %s %s\n", progressBar(e.Fraction), e)
			}
		default:
			r.writePlain("%s %s\n", styles.help.Render("•"), e)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	result := syncer.LastResult()
	if result == nil {
		return fmt.Errorf("sync of %s did not complete", profile.Label())
	}

	select {
	case <-changed:
		r.logger.Debug("local ledger data updated")
	default:
	}

	return r.writePlain("%s %d transactions, %d accounts in %s\n",
		styles.ok.Render("✓"), result.TransactionCount, result.AccountCount, result.Duration.Round(time.Millisecond))
}
