package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/ledgerx/internal/models"
	"github.com/desertthunder/ledgerx/internal/shared"
)

// HledgerClient implements [Client] over HTTP.
type HledgerClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	logger     *log.Logger
}

// ClientOption configures a [HledgerClient].
type ClientOption func(*HledgerClient)

// WithHTTPClient uses c for requests. Redirects are never followed regardless of c's policy.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(h *HledgerClient) {
		clone := *c
		h.httpClient = &clone
	}
}

// WithTimeout sets the overall request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(h *HledgerClient) { h.httpClient.Timeout = d }
}

// WithRateLimit caps outgoing requests per second. Zero or negative disables limiting.
func WithRateLimit(rps float64) ClientOption {
	return func(h *HledgerClient) {
		if rps <= 0 {
			h.limiter = nil
			return
		}
		h.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(h *HledgerClient) { h.userAgent = ua }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) ClientOption {
	return func(h *HledgerClient) { h.logger = l }
}

// NewHledgerClient creates a client. Without options it uses a 30 second timeout and no rate limit.
func NewHledgerClient(opts ...ClientOption) *HledgerClient {
	h := &HledgerClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  "ledgerx",
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.httpClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return h
}

// Endpoint resolves path against the profile URL, which is treated as a directory.
func Endpoint(profile models.Profile, path string) string {
	base := profile.URL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + strings.TrimPrefix(path, "/")
}

// response is a fully read HTTP response.
type response struct {
	status  int
	cookies []*http.Cookie
	body    []byte
}

// doRequest performs a request against the profile's server and reads the whole body.
func (h *HledgerClient) doRequest(ctx context.Context, profile models.Profile, method, path string, body io.Reader, header http.Header) (*response, error) {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	endpoint := Endpoint(profile, path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("User-Agent", h.userAgent)
	if profile.UsesAuth() {
		req.SetBasicAuth(profile.Auth.User, profile.Auth.Password)
	}

	start := time.Now()
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	h.logger.Debug("request", "method", method, "url", endpoint, "status", resp.StatusCode, "bytes", len(data), "elapsed", time.Since(start))

	return &response{status: resp.StatusCode, cookies: resp.Cookies(), body: data}, nil
}

// Get fetches path and returns the body of a 2xx response.
func (h *HledgerClient) Get(ctx context.Context, profile models.Profile, path string) ([]byte, error) {
	resp, err := h.doRequest(ctx, profile, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.status >= 200 && resp.status < 300:
		return resp.body, nil
	case resp.status == http.StatusUnauthorized:
		return nil, fmt.Errorf("GET %s: %w", path, shared.ErrAuthFailed)
	case resp.status == http.StatusNotFound:
		return nil, fmt.Errorf("GET %s: %w", path, shared.ErrNotFound)
	default:
		return nil, &shared.HTTPStatusError{Code: resp.status, Body: snippet(resp.body)}
	}
}

// PutJSON sends body as a JSON document.
func (h *HledgerClient) PutJSON(ctx context.Context, profile models.Profile, path string, body []byte, dryRun bool) error {
	if dryRun {
		h.logger.Info("dry run, request not sent", "method", http.MethodPut, "url", Endpoint(profile, path), "body", string(body))
		return nil
	}

	header := http.Header{"Content-Type": {"application/json"}, "Accept": {"*/*"}}
	resp, err := h.doRequest(ctx, profile, http.MethodPut, path, bytes.NewReader(body), header)
	if err != nil {
		return err
	}

	switch resp.status {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent, http.StatusAccepted:
		return nil
	case http.StatusBadRequest, http.StatusNotFound, http.StatusMethodNotAllowed:
		return fmt.Errorf("%w: HTTP %d %s", shared.ErrAPINotSupported, resp.status, snippet(resp.body))
	case http.StatusUnauthorized:
		return fmt.Errorf("PUT %s: %w", path, shared.ErrAuthFailed)
	default:
		return &shared.HTTPStatusError{Code: resp.status, Body: snippet(resp.body)}
	}
}

// PostForm submits form with the given cookies attached.
func (h *HledgerClient) PostForm(ctx context.Context, profile models.Profile, path string, form url.Values, cookies map[string]string, dryRun bool) (*FormPostResponse, error) {
	if dryRun {
		h.logger.Info("dry run, request not sent", "method", http.MethodPost, "url", Endpoint(profile, path), "form", redactForm(form))
		return &FormPostResponse{StatusCode: http.StatusSeeOther, Cookies: map[string]string{}}, nil
	}

	header := http.Header{"Content-Type": {"application/x-www-form-urlencoded"}}
	if len(cookies) > 0 {
		parts := make([]string, 0, len(cookies))
		for name, value := range cookies {
			parts = append(parts, (&http.Cookie{Name: name, Value: value}).String())
		}
		sort.Strings(parts)
		header.Set("Cookie", strings.Join(parts, "; "))
	}

	resp, err := h.doRequest(ctx, profile, http.MethodPost, path, strings.NewReader(form.Encode()), header)
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusUnauthorized {
		return nil, fmt.Errorf("POST %s: %w", path, shared.ErrAuthFailed)
	}

	out := &FormPostResponse{StatusCode: resp.status, Body: resp.body, Cookies: make(map[string]string, len(resp.cookies))}
	for _, c := range resp.cookies {
		out.Cookies[c.Name] = c.Value
	}
	return out, nil
}

func redactForm(form url.Values) string {
	clone := url.Values{}
	for k, v := range form {
		if k == TokenField {
			clone.Set(k, "***")
			continue
		}
		clone[k] = v
	}
	return clone.Encode()
}

func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
