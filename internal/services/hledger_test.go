package services_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/ledgerx/internal/models"
	"github.com/desertthunder/ledgerx/internal/services"
	"github.com/desertthunder/ledgerx/internal/shared"
	tu "github.com/desertthunder/ledgerx/internal/testing"
)

func profileFor(srv *httptest.Server) models.Profile {
	return models.Profile{ID: "p1", Name: "test", URL: srv.URL + "/ledger"}
}

func TestEndpoint(t *testing.T) {
	p := models.Profile{URL: "http://host/ledger"}
	assert.Equal(t, "http://host/ledger/accounts", services.Endpoint(p, services.PathAccounts))

	p.URL = "http://host/ledger/"
	assert.Equal(t, "http://host/ledger/add", services.Endpoint(p, "/add"))
}

func TestHledgerClient(t *testing.T) {
	t.Run("Get", func(t *testing.T) {
		t.Run("returns body with basic auth", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/ledger/accounts", r.URL.Path)
				user, pass, ok := r.BasicAuth()
				assert.True(t, ok)
				assert.Equal(t, "me", user)
				assert.Equal(t, "secret", pass)
				assert.Equal(t, "ledgerx-test", r.Header.Get("User-Agent"))
				w.Write([]byte(`[]`))
			}))
			defer srv.Close()

			p := profileFor(srv)
			p.Auth = &models.Credentials{User: "me", Password: "secret"}
			c := services.NewHledgerClient(services.WithUserAgent("ledgerx-test"))

			body, err := c.Get(context.Background(), p, services.PathAccounts)
			require.NoError(t, err)
			assert.Equal(t, "[]", string(body))
		})

		t.Run("omits auth without a user", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _, ok := r.BasicAuth()
				assert.False(t, ok)
			}))
			defer srv.Close()

			p := profileFor(srv)
			p.Auth = &models.Credentials{}
			_, err := services.NewHledgerClient().Get(context.Background(), p, services.PathAccounts)
			require.NoError(t, err)
		})

		t.Run("maps status codes", func(t *testing.T) {
			tests := []struct {
				status int
				check  func(t *testing.T, err error)
			}{
				{http.StatusUnauthorized, func(t *testing.T, err error) { assert.ErrorIs(t, err, shared.ErrAuthFailed) }},
				{http.StatusNotFound, func(t *testing.T, err error) { assert.ErrorIs(t, err, shared.ErrNotFound) }},
				{http.StatusBadGateway, func(t *testing.T, err error) {
					var se *shared.HTTPStatusError
					require.ErrorAs(t, err, &se)
					assert.Equal(t, http.StatusBadGateway, se.Code)
					assert.Equal(t, "upstream down", se.Body)
				}},
			}
			for _, tt := range tests {
				t.Run(http.StatusText(tt.status), func(t *testing.T) {
					srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
						w.WriteHeader(tt.status)
						w.Write([]byte("upstream down"))
					}))
					defer srv.Close()

					_, err := services.NewHledgerClient().Get(context.Background(), profileFor(srv), services.PathAccounts)
					require.Error(t, err)
					tt.check(t, err)
				})
			}
		})

		t.Run("transport failure", func(t *testing.T) {
			hc := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
			c := services.NewHledgerClient(services.WithHTTPClient(hc))

			_, err := c.Get(context.Background(), models.Profile{URL: "http://unreachable"}, services.PathAccounts)
			require.Error(t, err)
			var urlErr *url.Error
			assert.ErrorAs(t, err, &urlErr)
		})

		t.Run("body read failure", func(t *testing.T) {
			resp := &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(&tu.FCloser{}), Header: http.Header{}}
			hc := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}
			c := services.NewHledgerClient(services.WithHTTPClient(hc))

			_, err := c.Get(context.Background(), models.Profile{URL: "http://x"}, services.PathAccounts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to read response body")
		})

		t.Run("honours context cancellation", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				<-r.Context().Done()
			}))
			defer srv.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			_, err := services.NewHledgerClient().Get(ctx, profileFor(srv), services.PathAccounts)
			assert.ErrorIs(t, err, context.DeadlineExceeded)
		})
	})

	t.Run("PutJSON", func(t *testing.T) {
		t.Run("sends json body", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPut, r.Method)
				assert.Equal(t, "/ledger/add", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				body, _ := io.ReadAll(r.Body)
				assert.JSONEq(t, `{"a":1}`, string(body))
				w.WriteHeader(http.StatusCreated)
			}))
			defer srv.Close()

			err := services.NewHledgerClient().PutJSON(context.Background(), profileFor(srv), services.PathAdd, []byte(`{"a":1}`), false)
			assert.NoError(t, err)
		})

		t.Run("unsupported statuses", func(t *testing.T) {
			for _, status := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusMethodNotAllowed} {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(status)
				}))

				err := services.NewHledgerClient().PutJSON(context.Background(), profileFor(srv), services.PathAdd, []byte(`{}`), false)
				assert.ErrorIs(t, err, shared.ErrAPINotSupported, "status %d", status)
				srv.Close()
			}
		})

		t.Run("auth and server errors", func(t *testing.T) {
			status := http.StatusUnauthorized
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			}))
			defer srv.Close()
			c := services.NewHledgerClient()

			err := c.PutJSON(context.Background(), profileFor(srv), services.PathAdd, []byte(`{}`), false)
			assert.ErrorIs(t, err, shared.ErrAuthFailed)

			status = http.StatusInternalServerError
			err = c.PutJSON(context.Background(), profileFor(srv), services.PathAdd, []byte(`{}`), false)
			var se *shared.HTTPStatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, http.StatusInternalServerError, se.Code)
		})

		t.Run("dry run sends nothing", func(t *testing.T) {
			called := false
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))
			defer srv.Close()

			err := services.NewHledgerClient().PutJSON(context.Background(), profileFor(srv), services.PathAdd, []byte(`{}`), true)
			assert.NoError(t, err)
			assert.False(t, called)
		})
	})

	t.Run("PostForm", func(t *testing.T) {
		t.Run("does not follow redirects and returns cookies", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.NoError(t, r.ParseForm())
				assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
				assert.Equal(t, "identify-add", r.PostForm.Get("_formid"))

				if c, err := r.Cookie(services.SessionCookie); assert.NoError(t, err) {
					assert.Equal(t, "old", c.Value)
				}

				http.SetCookie(w, &http.Cookie{Name: services.SessionCookie, Value: "new", Path: "/"})
				http.Redirect(w, r, "/journal", http.StatusSeeOther)
			}))
			defer srv.Close()

			form := url.Values{"_formid": {"identify-add"}}
			resp, err := services.NewHledgerClient().PostForm(context.Background(), profileFor(srv), services.PathAdd, form,
				map[string]string{services.SessionCookie: "old"}, false)
			require.NoError(t, err)
			assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
			assert.Equal(t, "new", resp.Cookies[services.SessionCookie])
		})

		t.Run("returns other statuses to the caller", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<form><input type="hidden" name="_token" value="t1"></form>`))
			}))
			defer srv.Close()

			resp, err := services.NewHledgerClient().PostForm(context.Background(), profileFor(srv), services.PathAdd, url.Values{}, nil, false)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.True(t, strings.Contains(string(resp.Body), "_token"))
		})

		t.Run("unauthorized", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			}))
			defer srv.Close()

			_, err := services.NewHledgerClient().PostForm(context.Background(), profileFor(srv), services.PathAdd, url.Values{}, nil, false)
			assert.ErrorIs(t, err, shared.ErrAuthFailed)
		})

		t.Run("dry run reports see other", func(t *testing.T) {
			resp, err := services.NewHledgerClient().PostForm(context.Background(), models.Profile{URL: "http://unused"}, services.PathAdd, url.Values{}, nil, true)
			require.NoError(t, err)
			assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		})
	})

	t.Run("rate limit waits between requests", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer srv.Close()

		c := services.NewHledgerClient(services.WithRateLimit(20))
		start := time.Now()
		for range 3 {
			_, err := c.Get(context.Background(), profileFor(srv), services.PathAccounts)
			require.NoError(t, err)
		}
		assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	})
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		token string
		ok    bool
	}{
		{"hidden input", `<form><input type="hidden" name="_token" value="abc123"></form>`, "abc123", true},
		{"self closing with attribute order", `<input value="xyz" name="_token" type="hidden"/>`, "xyz", true},
		{"ignores visible inputs", `<input type="text" name="_token" value="no">`, "", false},
		{"missing", `<html><body>nothing</body></html>`, "", false},
		{"empty", ``, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, ok := services.ExtractToken([]byte(tt.body))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.token, token)
		})
	}
}
