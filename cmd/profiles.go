package main

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ledgerx/internal/repositories"
	"github.com/desertthunder/ledgerx/internal/shared"
)

type profileSummary struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	APIVersion string `json:"api_version"`
	Saved      bool   `json:"saved"`
	LastSync   string `json:"last_sync"`
}

// Profiles lists the configured profiles with their last sync.
func (r *Runner) Profiles(ctx context.Context, cmd *cli.Command) error {
	store, db, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()
	state := repositories.NewAppState(store)

	summaries := make([]profileSummary, 0, len(r.config.Profiles))
	for _, pc := range r.config.Profiles {
		profile, err := pc.Profile()
		if err != nil {
			r.logger.Warn("skipping invalid profile", "name", pc.Name, "error", err)
			continue
		}

		s := profileSummary{
			Name:       profile.Label(),
			URL:        profile.URL,
			APIVersion: profile.APIVersion.String(),
			Saved:      profile.HasIdentity(),
			LastSync:   "never synced",
		}
		if profile.HasIdentity() {
			info, err := state.SyncInfo(ctx, profile)
			if err != nil && !errors.Is(err, shared.ErrProfileNotFound) {
				return err
			}
			s.LastSync = info.Summary()
		}
		summaries = append(summaries, s)
	}

	if cmd.Bool("json") {
		return r.writeJSON(summaries, true)
	}

	if len(summaries) == 0 {
		return r.writePlain("%s\n", styles.warn.Render("No profiles configured; run 'ledgerx setup config'."))
	}
	for _, s := range summaries {
		name := styles.title.Render(s.Name)
		if !s.Saved {
			name += " " + styles.warn.Render("(no id, read-only)")
		}
		if err := r.writePlain("%s\n  %s  api %s\n  %s\n", name, s.URL, s.APIVersion, styles.help.Render(s.LastSync)); err != nil {
			return err
		}
	}
	return nil
}
