// Package apperr defines the closed error taxonomy returned by the ledgerx engine.
//
// Every failure leaving the engine is one of:
//
//   - [DatabaseError]: [QueryFailed], [ConstraintViolation]
//   - [FileError]: [NotFound], [PermissionDenied]
//   - [SyncError]: [NetworkError], [TimeoutError], [AuthenticationError], [ServerError], [APINotSupported]
//
// Values are produced by [Classify]. Each variant unwraps to its cause so [errors.Is]
// continues to match the sentinels in the shared package.
package apperr

import (
	"fmt"
	"net/http"
)

// AppError is implemented only by the variants in this package.
type AppError interface {
	error
	appError()
}

// DatabaseError groups local storage failures.
type DatabaseError interface {
	AppError
	databaseError()
}

// FileError groups filesystem failures.
type FileError interface {
	AppError
	fileError()
}

// SyncError groups failures talking to the ledger server.
type SyncError interface {
	AppError
	syncError()
	// Retryable reports whether repeating the operation may succeed.
	Retryable() bool
}

// QueryFailed is a failed statement or unusable connection.
type QueryFailed struct {
	Err error
}

// ConstraintViolation is a rejected write. Table is empty when it could not be determined.
type ConstraintViolation struct {
	Table string
	Err   error
}

// NotFound is a missing file.
type NotFound struct {
	Path string
	Err  error
}

// PermissionDenied is a filesystem access failure.
type PermissionDenied struct {
	Err error
}

// NetworkError is a connection or I/O failure, and the fallback for unrecognised errors.
type NetworkError struct {
	Message string
	Err     error
}

// TimeoutError is an expired deadline.
type TimeoutError struct {
	Err error
}

// AuthenticationError is a rejected credential (HTTP 401).
type AuthenticationError struct {
	Err error
}

// ServerError is an unexpected HTTP status.
type ServerError struct {
	Code int
	Err  error
}

// APINotSupported signals that the server does not speak the requested protocol version.
// It drives version fallback and is not surfaced to callers of a completed operation.
type APINotSupported struct {
	Detail string
	Err    error
}

func (*QueryFailed) appError()         {}
func (*ConstraintViolation) appError() {}
func (*NotFound) appError()            {}
func (*PermissionDenied) appError()    {}
func (*NetworkError) appError()        {}
func (*TimeoutError) appError()        {}
func (*AuthenticationError) appError() {}
func (*ServerError) appError()         {}
func (*APINotSupported) appError()     {}

func (*QueryFailed) databaseError()         {}
func (*ConstraintViolation) databaseError() {}

func (*NotFound) fileError()         {}
func (*PermissionDenied) fileError() {}

func (*NetworkError) syncError()        {}
func (*TimeoutError) syncError()        {}
func (*AuthenticationError) syncError() {}
func (*ServerError) syncError()         {}
func (*APINotSupported) syncError()     {}

func (*NetworkError) Retryable() bool        { return true }
func (*TimeoutError) Retryable() bool        { return true }
func (*AuthenticationError) Retryable() bool { return false }
func (e *ServerError) Retryable() bool       { return e.Code >= 500 }
func (*APINotSupported) Retryable() bool     { return false }

func (e *QueryFailed) Error() string { return withCause("database query failed", e.Err) }

func (e *ConstraintViolation) Error() string {
	if e.Table == "" {
		return withCause("constraint violation", e.Err)
	}
	return withCause("constraint violation on "+e.Table, e.Err)
}

func (e *NotFound) Error() string { return "file not found: " + e.Path }

func (e *PermissionDenied) Error() string { return withCause("permission denied", e.Err) }

func (e *NetworkError) Error() string {
	if e.Message != "" {
		return "network error: " + e.Message
	}
	return withCause("network error", e.Err)
}

func (e *TimeoutError) Error() string { return "request timed out" }

func (e *AuthenticationError) Error() string { return "authentication failed (HTTP 401)" }

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: HTTP %d %s", e.Code, http.StatusText(e.Code))
}

func (e *APINotSupported) Error() string {
	if e.Detail == "" {
		return "API version not supported by server"
	}
	return "API version not supported by server: " + e.Detail
}

func (e *QueryFailed) Unwrap() error         { return e.Err }
func (e *ConstraintViolation) Unwrap() error { return e.Err }
func (e *NotFound) Unwrap() error            { return e.Err }
func (e *PermissionDenied) Unwrap() error    { return e.Err }
func (e *NetworkError) Unwrap() error        { return e.Err }
func (e *TimeoutError) Unwrap() error        { return e.Err }
func (e *AuthenticationError) Unwrap() error { return e.Err }
func (e *ServerError) Unwrap() error         { return e.Err }
func (e *APINotSupported) Unwrap() error     { return e.Err }

func withCause(msg string, err error) string {
	if err == nil {
		return msg
	}
	return msg + ": " + err.Error()
}

// SyncException carries the classified failure of a sync stream.
type SyncException struct {
	Err AppError
}

func (e *SyncException) Error() string { return "sync failed: " + e.Err.Error() }

func (e *SyncException) Unwrap() error { return e.Err }
