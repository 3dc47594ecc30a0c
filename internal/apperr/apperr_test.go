package apperr

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/ledgerx/internal/shared"
)

func TestConstraintTable(t *testing.T) {
	tests := []struct {
		msg   string
		table string
		ok    bool
	}{
		{"UNIQUE constraint failed: profiles.uuid", "profiles", true},
		{"NOT NULL constraint failed: transaction_lines.account_name", "transaction_lines", true},
		{"UNIQUE constraint failed: accounts.profile_id, accounts.name", "accounts", true},
		{"FOREIGN KEY constraint failed", "", false},
		{"something else", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			table, ok := ConstraintTable(tt.msg)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.table, table)
		})
	}
}

func TestClassify(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, Classify(nil))
	})

	t.Run("already classified errors pass through", func(t *testing.T) {
		orig := &ServerError{Code: 502}
		assert.Same(t, orig, Classify(orig))
		assert.Same(t, orig, Classify(fmt.Errorf("wrapped: %w", orig)))
		assert.Same(t, orig, Classify(&SyncException{Err: orig}))
	})

	t.Run("sqlite unique constraint from the driver", func(t *testing.T) {
		db, err := shared.NewDatabase(shared.MemoryDatabase)
		require.NoError(t, err)
		defer db.Close()
		require.NoError(t, shared.RunMigrations(db))

		_, err = db.Exec(`INSERT INTO profiles (uuid, url) VALUES ('a', 'http://x')`)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO profiles (uuid, url) VALUES ('a', 'http://y')`)
		require.Error(t, err)

		got := Classify(err)
		var cv *ConstraintViolation
		require.ErrorAs(t, got, &cv)
		assert.Equal(t, "profiles", cv.Table)
		assert.Implements(t, (*DatabaseError)(nil), got)
	})

	t.Run("constraint message without driver type", func(t *testing.T) {
		got := Classify(errors.New("UNIQUE constraint failed: profiles.uuid"))
		var cv *ConstraintViolation
		require.ErrorAs(t, got, &cv)
		assert.Equal(t, "profiles", cv.Table)
	})

	t.Run("other sqlite errors are query failures", func(t *testing.T) {
		db, err := shared.NewDatabase(shared.MemoryDatabase)
		require.NoError(t, err)
		defer db.Close()

		_, err = db.Exec(`SELECT * FROM missing_table`)
		require.Error(t, err)
		assert.IsType(t, &QueryFailed{}, Classify(err))

		assert.IsType(t, &QueryFailed{}, Classify(sql.ErrTxDone))
		assert.IsType(t, &QueryFailed{}, Classify(errors.New("database is locked")))
	})

	t.Run("file errors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.toml")
		_, err := os.ReadFile(path)
		require.Error(t, err)

		got := Classify(err)
		var nf *NotFound
		require.ErrorAs(t, got, &nf)
		assert.Equal(t, path, nf.Path)
		assert.ErrorIs(t, got, os.ErrNotExist)

		perm := &os.PathError{Op: "open", Path: "/etc/shadow", Err: os.ErrPermission}
		assert.IsType(t, &PermissionDenied{}, Classify(perm))
		assert.Implements(t, (*FileError)(nil), Classify(perm))
	})

	t.Run("server errors", func(t *testing.T) {
		tests := []struct {
			name string
			err  error
			want AppError
		}{
			{"auth sentinel", fmt.Errorf("get accounts: %w", shared.ErrAuthFailed), &AuthenticationError{}},
			{"401 status", &shared.HTTPStatusError{Code: 401}, &AuthenticationError{}},
			{"500 status", &shared.HTTPStatusError{Code: 500}, &ServerError{}},
			{"not found", shared.ErrNotFound, &ServerError{}},
			{"unsupported", shared.ErrAPINotSupported, &APINotSupported{}},
			{"deadline", context.DeadlineExceeded, &TimeoutError{}},
			{"timeout sentinel", shared.ErrTimeout, &TimeoutError{}},
			{"url error", &url.Error{Op: "Get", URL: "http://x", Err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}}, &NetworkError{}},
			{"eof", io.ErrUnexpectedEOF, &NetworkError{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got := Classify(tt.err)
				assert.IsType(t, tt.want, got)
				assert.Implements(t, (*SyncError)(nil), got)
				assert.ErrorIs(t, got, tt.err)
			})
		}

		var se *ServerError
		require.ErrorAs(t, Classify(&shared.HTTPStatusError{Code: 503}), &se)
		assert.Equal(t, 503, se.Code)
		assert.True(t, se.Retryable())

		require.ErrorAs(t, Classify(shared.ErrNotFound), &se)
		assert.Equal(t, 404, se.Code)
		assert.False(t, se.Retryable())
	})

	t.Run("unrecognised errors default to network", func(t *testing.T) {
		got := Classify(errors.New("boom"))
		var ne *NetworkError
		require.ErrorAs(t, got, &ne)
		assert.Equal(t, "boom", ne.Message)
		assert.Equal(t, "network error: boom", got.Error())
		assert.True(t, ne.Retryable())
	})
}

func TestSyncException(t *testing.T) {
	exc := &SyncException{Err: &AuthenticationError{Err: shared.ErrAuthFailed}}
	assert.Equal(t, "sync failed: authentication failed (HTTP 401)", exc.Error())
	assert.ErrorIs(t, exc, shared.ErrAuthFailed)

	var auth *AuthenticationError
	assert.ErrorAs(t, exc, &auth)
	assert.False(t, auth.Retryable())
}
