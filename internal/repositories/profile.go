package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/ledgerx/internal/models"
	"github.com/desertthunder/ledgerx/internal/shared"
)

// StoredProfile is a profile row as last written by a sync.
type StoredProfile struct {
	RowID      int64
	UUID       string
	Name       string
	URL        string
	APIVersion models.APIVersion
}

// UpsertProfile records profile and returns its row id.
func (s *Store) UpsertProfile(ctx context.Context, profile models.Profile) (int64, error) {
	if !profile.HasIdentity() {
		return 0, fmt.Errorf("upsert profile: %w", shared.ErrUnsavedProfile)
	}

	query := `
		INSERT INTO profiles (uuid, name, url, api_version, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (uuid) DO UPDATE SET
			name = excluded.name,
			url = excluded.url,
			api_version = excluded.api_version,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, profile.ID, profile.Name, profile.URL, profile.APIVersion.Code()); err != nil {
		return 0, fmt.Errorf("failed to upsert profile: %w", err)
	}
	return s.profileRowID(ctx, profile.ID)
}

func (s *Store) profileRowID(ctx context.Context, uuid string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM profiles WHERE uuid = ?`, uuid).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", shared.ErrProfileNotFound, uuid)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query profile: %w", err)
	}
	return id, nil
}

// Profiles lists every profile that has been synced at least once, by name.
func (s *Store) Profiles(ctx context.Context) ([]StoredProfile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, uuid, name, url, api_version FROM profiles ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var out []StoredProfile
	for rows.Next() {
		var (
			p    StoredProfile
			code int
		)
		if err := rows.Scan(&p.RowID, &p.UUID, &p.Name, &p.URL, &code); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		p.APIVersion = models.APIVersionFromCode(code)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// DeleteProfile removes a profile and, through cascades, all of its data.
func (s *Store) DeleteProfile(ctx context.Context, uuid string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE uuid = ?`, uuid)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrProfileNotFound, uuid)
	}
	return nil
}
