package apperr

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/desertthunder/ledgerx/internal/shared"
)

var reConstraint = regexp.MustCompile(`constraint failed: ([A-Za-z_][A-Za-z0-9_]*)\.`)

// ConstraintTable extracts the table name from a SQLite constraint message such as
// "UNIQUE constraint failed: profiles.uuid".
func ConstraintTable(msg string) (string, bool) {
	m := reConstraint.FindStringSubmatch(msg)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Classify maps any error onto the closed taxonomy. Errors that are already classified are
// returned unchanged; unrecognised errors become a [NetworkError] carrying the original message.
func Classify(err error) AppError {
	if err == nil {
		return nil
	}

	var exc *SyncException
	if errors.As(err, &exc) {
		return exc.Err
	}
	var app AppError
	if errors.As(err, &app) {
		return app
	}

	for _, classify := range []func(error) AppError{classifyDatabase, classifyFile, classifySync, classifyMessage} {
		if classified := classify(err); classified != nil {
			return classified
		}
	}
	return &NetworkError{Message: err.Error(), Err: err}
}

func classifyDatabase(err error) AppError {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code == sqlite3.ErrConstraint {
			table, _ := ConstraintTable(sqliteErr.Error())
			return &ConstraintViolation{Table: table, Err: err}
		}
		return &QueryFailed{Err: err}
	}

	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) || errors.Is(err, sql.ErrNoRows) {
		return &QueryFailed{Err: err}
	}
	return nil
}

func classifyFile(err error) AppError {
	if errors.Is(err, fs.ErrNotExist) {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return &NotFound{Path: pathErr.Path, Err: err}
		}
		return &NotFound{Err: err}
	}
	if errors.Is(err, fs.ErrPermission) {
		return &PermissionDenied{Err: err}
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) && containsAny(pathErr.Err.Error(), "permission", "access", "read-only", "write") {
		return &PermissionDenied{Err: err}
	}
	return nil
}

func classifySync(err error) AppError {
	var statusErr *shared.HTTPStatusError
	switch {
	case errors.Is(err, shared.ErrAuthFailed):
		return &AuthenticationError{Err: err}
	case errors.As(err, &statusErr):
		if statusErr.Code == http.StatusUnauthorized {
			return &AuthenticationError{Err: err}
		}
		return &ServerError{Code: statusErr.Code, Err: err}
	case errors.Is(err, shared.ErrNotFound):
		return &ServerError{Code: http.StatusNotFound, Err: err}
	case errors.Is(err, shared.ErrAPINotSupported):
		return &APINotSupported{Err: err}
	case isTimeout(err):
		return &TimeoutError{Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return &NetworkError{Err: err}
	}
	return nil
}

// classifyMessage handles errors whose only signal is their text, such as driver errors
// that were flattened by an intermediate layer.
func classifyMessage(err error) AppError {
	msg := err.Error()
	switch {
	case containsAny(msg, "constraint failed"):
		table, _ := ConstraintTable(msg)
		return &ConstraintViolation{Table: table, Err: err}
	case containsAny(msg, "database", "cursor", "sqlite"):
		return &QueryFailed{Err: err}
	case containsAny(msg, "permission denied", "access denied"):
		return &PermissionDenied{Err: err}
	}
	return nil
}

func containsAny(s string, hints ...string) bool {
	s = strings.ToLower(s)
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, shared.ErrTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
