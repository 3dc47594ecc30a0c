// package services defines the transport used to talk to hledger-web servers
package services

import (
	"context"
	"net/url"

	"github.com/desertthunder/ledgerx/internal/models"
)

// Endpoint paths, relative to the profile URL.
const (
	PathAccounts     = "accounts"
	PathTransactions = "transactions"
	PathJournal      = "journal"
	PathAdd          = "add"
)

// Client performs requests against the server described by a [models.Profile].
//
// Status codes are mapped as follows:
//   - Get: 2xx returns the body, 401 [shared.ErrAuthFailed], 404 [shared.ErrNotFound], others [shared.HTTPStatusError]
//   - PutJSON: 2xx succeeds, 400/404/405 [shared.ErrAPINotSupported], 401 [shared.ErrAuthFailed], others [shared.HTTPStatusError]
//   - PostForm: 401 [shared.ErrAuthFailed]; any other status is returned to the caller for interpretation
//
// When dryRun is set, write requests are logged and reported as successful without being sent.
type Client interface {
	Get(ctx context.Context, profile models.Profile, path string) ([]byte, error)
	PutJSON(ctx context.Context, profile models.Profile, path string, body []byte, dryRun bool) error
	PostForm(ctx context.Context, profile models.Profile, path string, form url.Values, cookies map[string]string, dryRun bool) (*FormPostResponse, error)
}

// FormPostResponse is the outcome of a form submission. Cookies holds the values of any
// Set-Cookie headers keyed by name.
type FormPostResponse struct {
	StatusCode int
	Body       []byte
	Cookies    map[string]string
}
