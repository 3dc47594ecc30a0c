// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/ledgerx/internal/models"
	"github.com/desertthunder/ledgerx/internal/services"
)

// Call records one request made through a [FakeClient].
type Call struct {
	Method  string
	Path    string
	Profile models.Profile
	Body    []byte
	Form    url.Values
	Cookies map[string]string
	DryRun  bool
}

// FakeClient is a scripted [services.Client]. Unset handlers answer GET with
// [ErrUnscripted], PUT with success and POST with 303 See Other.
type FakeClient struct {
	GetFunc  func(ctx context.Context, path string) ([]byte, error)
	PutFunc  func(call Call) error
	PostFunc func(call Call) (*services.FormPostResponse, error)

	mu    sync.Mutex
	calls []Call
}

// ErrUnscripted is returned for GET requests without a handler.
var ErrUnscripted = errors.New("unscripted request")

func (f *FakeClient) record(c Call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

// Calls returns a copy of the recorded calls.
func (f *FakeClient) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallCount returns the number of calls made with method.
func (f *FakeClient) CallCount(method string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (f *FakeClient) Get(ctx context.Context, profile models.Profile, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.record(Call{Method: http.MethodGet, Path: path, Profile: profile})
	if f.GetFunc == nil {
		return nil, ErrUnscripted
	}
	return f.GetFunc(ctx, path)
}

func (f *FakeClient) PutJSON(ctx context.Context, profile models.Profile, path string, body []byte, dryRun bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c := Call{Method: http.MethodPut, Path: path, Profile: profile, Body: body, DryRun: dryRun}
	f.record(c)
	if f.PutFunc == nil {
		return nil
	}
	return f.PutFunc(c)
}

func (f *FakeClient) PostForm(ctx context.Context, profile models.Profile, path string, form url.Values, cookies map[string]string, dryRun bool) (*services.FormPostResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clone := make(map[string]string, len(cookies))
	for k, v := range cookies {
		clone[k] = v
	}
	c := Call{Method: http.MethodPost, Path: path, Profile: profile, Form: form, Cookies: clone, DryRun: dryRun}
	f.record(c)
	if f.PostFunc == nil {
		return &services.FormPostResponse{StatusCode: http.StatusSeeOther}, nil
	}
	return f.PostFunc(c)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
