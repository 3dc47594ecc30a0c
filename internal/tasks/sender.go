package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ledgerx/internal/apperr"
	"github.com/desertthunder/ledgerx/internal/models"
	"github.com/desertthunder/ledgerx/internal/services"
	"github.com/desertthunder/ledgerx/internal/shared"
)

const (
	// MaxRetries bounds the number of HTML form posts for one transaction.
	MaxRetries = 3
	RetryDelay = 100 * time.Millisecond
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the default [Sleeper].
func ContextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// TransactionSender submits transactions, probing JSON versions before falling back to the HTML form.
type TransactionSender struct {
	client     services.Client
	catalog    VersionCatalog
	sleep      Sleeper
	logger     *log.Logger
	maxRetries int
	retryDelay time.Duration
}

type SenderOption func(*TransactionSender)

func WithSleeper(fn Sleeper) SenderOption {
	return func(s *TransactionSender) { s.sleep = fn }
}

func WithCatalog(c VersionCatalog) SenderOption {
	return func(s *TransactionSender) { s.catalog = c }
}

func WithRetryDelay(d time.Duration) SenderOption {
	return func(s *TransactionSender) { s.retryDelay = d }
}

func NewTransactionSender(client services.Client, logger *log.Logger, opts ...SenderOption) *TransactionSender {
	s := &TransactionSender{
		client:     client,
		catalog:    DefaultCatalog(),
		sleep:      ContextSleep,
		logger:     discardLogger(logger),
		maxRetries: MaxRetries,
		retryDelay: RetryDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send submits tx to the server of profile. With simulate the requests are built but not sent.
//
// Every failure other than an unsaved profile is returned as an [apperr.AppError].
func (s *TransactionSender) Send(ctx context.Context, profile models.Profile, tx models.Transaction, simulate bool) error {
	if !profile.HasIdentity() {
		return fmt.Errorf("send transaction: %w", shared.ErrUnsavedProfile)
	}

	for _, v := range s.catalog.Candidates(profile.APIVersion) {
		if v == models.APIHTML {
			if err := s.sendForm(ctx, profile, tx, simulate); err != nil {
				return apperr.Classify(err)
			}
			s.logger.Info("transaction submitted", "profile", profile.Label(), "via", "html", "simulate", simulate)
			return nil
		}

		err := s.sendJSON(ctx, profile, v, tx, simulate)
		if err == nil {
			s.logger.Info("transaction submitted", "profile", profile.Label(), "via", v.String(), "simulate", simulate)
			return nil
		}
		if !errors.Is(err, shared.ErrAPINotSupported) {
			return apperr.Classify(err)
		}
		s.logger.Debug("version not supported, trying next", "version", v)
	}

	// unreachable with a catalog that always ends in the HTML sentinel
	return &apperr.APINotSupported{Detail: "no submission method left", Err: shared.ErrAPINotSupported}
}

func (s *TransactionSender) sendJSON(ctx context.Context, profile models.Profile, v models.APIVersion, tx models.Transaction, simulate bool) error {
	body, err := services.EncodeTransaction(v, tx)
	if err != nil {
		return err
	}
	return s.client.PutJSON(ctx, profile, services.PathAdd, body, simulate)
}

// sendForm posts the add form, replaying the token and session cookie handed out by a 200 response.
func (s *TransactionSender) sendForm(ctx context.Context, profile models.Profile, tx models.Transaction, simulate bool) error {
	cookies := map[string]string{}
	token := ""

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		resp, err := s.client.PostForm(ctx, profile, services.PathAdd, transactionForm(tx, token), cookies, simulate)
		if err != nil {
			return err
		}

		switch resp.StatusCode {
		case http.StatusSeeOther:
			return nil
		case http.StatusOK:
			tok, ok := services.ExtractToken(resp.Body)
			if !ok {
				return shared.ErrMissingToken
			}
			token = tok
			if session, ok := resp.Cookies[services.SessionCookie]; ok {
				cookies[services.SessionCookie] = session
			}
			s.logger.Debug("form token refreshed", "attempt", attempt)
		default:
			return &shared.HTTPStatusError{Code: resp.StatusCode, Body: string(resp.Body)}
		}

		if attempt < s.maxRetries {
			if err := s.sleep(ctx, s.retryDelay); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("%w: aborting after %d attempts", shared.ErrRetriesExhausted, s.maxRetries)
}

// transactionForm mirrors tx as the hledger-web add form. Lines without an account are skipped;
// amounts keep their full precision.
func transactionForm(tx models.Transaction, token string) url.Values {
	form := url.Values{}
	form.Set(services.FormIDField, services.FormID)
	if token != "" {
		form.Set(services.TokenField, token)
	}
	form.Set("date", tx.LedgerDate())
	form.Set("description", tx.Description)
	if tx.Comment != "" {
		form.Set("tcomment", tx.Comment)
	}

	for _, line := range tx.Lines {
		if line.AccountName == "" {
			continue
		}
		amount := ""
		if line.Amount != nil {
			amount = line.Amount.String()
		}
		form.Add("account", line.AccountName)
		form.Add("amount", amount)
		form.Add("currency", line.Currency)
		form.Add("comment", line.Comment)
	}
	return form
}
