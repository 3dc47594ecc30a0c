package tasks

import (
	"context"
	"errors"
	"iter"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ledgerx/internal/apperr"
	"github.com/desertthunder/ledgerx/internal/models"
)

// SyncOrchestrator pulls accounts and transactions from a server and hands them to persistence.
//
// Syncs of the same profile are serialized: a second Sync waits for the first to finish or for its
// own context to be cancelled. The last result is written only by the orchestrator and may be read
// concurrently.
type SyncOrchestrator struct {
	accounts     AccountListFetcher
	transactions TransactionListFetcher
	legacy       LegacyHTMLParser
	persistence  SyncPersistence
	state        AppStateService
	logger       *log.Logger
	now          func() time.Time

	mu   sync.RWMutex
	last *models.SyncResult

	locksMu sync.Mutex
	locks   map[string]*profileLock
}

// profileLock serializes syncs of one profile. The entry is dropped once no sync holds or awaits it.
type profileLock struct {
	ch   chan struct{}
	refs int
}

type SyncerOption func(*SyncOrchestrator)

// WithClock replaces time.Now, for deterministic durations in tests.
func WithClock(now func() time.Time) SyncerOption {
	return func(o *SyncOrchestrator) { o.now = now }
}

// WithAppState registers the observer of completed syncs.
func WithAppState(state AppStateService) SyncerOption {
	return func(o *SyncOrchestrator) { o.state = state }
}

func NewSyncOrchestrator(
	accounts AccountListFetcher,
	transactions TransactionListFetcher,
	legacy LegacyHTMLParser,
	persistence SyncPersistence,
	logger *log.Logger,
	opts ...SyncerOption,
) *SyncOrchestrator {
	o := &SyncOrchestrator{
		accounts:     accounts,
		transactions: transactions,
		legacy:       legacy,
		persistence:  persistence,
		logger:       discardLogger(logger),
		now:          time.Now,
		locks:        map[string]*profileLock{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// LastResult returns the outcome of the most recent successful sync, or nil.
func (o *SyncOrchestrator) LastResult() *models.SyncResult {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.last == nil {
		return nil
	}
	r := *o.last
	return &r
}

// Sync returns a cold progress stream. Nothing happens until the stream is ranged over.
//
// A failed sync ends with a single (nil, *apperr.SyncException) pair, including a ctx deadline,
// reported as [apperr.TimeoutError]. Breaking out of the loop or cancelling ctx aborts in-flight
// requests; no events follow cancellation.
func (o *SyncOrchestrator) Sync(ctx context.Context, profile models.Profile) iter.Seq2[models.SyncProgress, error] {
	return func(yield func(models.SyncProgress, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		unlock, err := o.lock(ctx, lockKey(profile))
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				o.logger.Error("sync timed out waiting for a running sync", "profile", profile.Label())
				yield(nil, &apperr.SyncException{Err: &apperr.TimeoutError{Err: err}})
			}
			return
		}
		defer unlock()

		r := &syncRun{o: o, ctx: ctx, cancel: cancel, profile: profile, yield: yield, start: o.now()}
		r.run()
	}
}

func lockKey(p models.Profile) string {
	if p.ID != "" {
		return p.ID
	}
	return p.URL
}

func (o *SyncOrchestrator) lock(ctx context.Context, key string) (func(), error) {
	o.locksMu.Lock()
	l, ok := o.locks[key]
	if !ok {
		l = &profileLock{ch: make(chan struct{}, 1)}
		o.locks[key] = l
	}
	l.refs++
	o.locksMu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			o.release(key, l)
		}, nil
	case <-ctx.Done():
		o.release(key, l)
		return nil, ctx.Err()
	}
}

func (o *SyncOrchestrator) release(key string, l *profileLock) {
	o.locksMu.Lock()
	defer o.locksMu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(o.locks, key)
	}
}

func (o *SyncOrchestrator) setLast(r models.SyncResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.last = &r
}

// syncRun is the state of one pass over the stream.
type syncRun struct {
	o       *SyncOrchestrator
	ctx     context.Context
	cancel  context.CancelFunc
	profile models.Profile
	yield   func(models.SyncProgress, error) bool
	start   time.Time
	stopped bool
}

func (r *syncRun) emit(p models.SyncProgress) bool {
	if r.stopped {
		return false
	}
	if err := r.ctx.Err(); err != nil {
		r.fail(err)
		return false
	}
	if !r.yield(p, nil) {
		r.stopped = true
		r.cancel()
		return false
	}
	return true
}

// fail reports err once. A cancelled sync ends silently; a passed deadline is a timeout
// whatever error the interrupted stage returned.
func (r *syncRun) fail(err error) {
	ctxErr := r.ctx.Err()
	if r.stopped || errors.Is(ctxErr, context.Canceled) {
		return
	}
	var classified apperr.AppError
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		classified = &apperr.TimeoutError{Err: err}
	} else {
		classified = apperr.Classify(err)
	}
	r.o.logger.Error("sync failed", "profile", r.profile.Label(), "err", classified)
	r.stopped = true
	r.yield(nil, &apperr.SyncException{Err: classified})
}

func (r *syncRun) progress(current, total int) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	p, ok := transactionUpdate(current, total)
	if !ok {
		return nil
	}
	if !r.emit(p) {
		return errStopped
	}
	return nil
}

func (r *syncRun) run() {
	if !r.emit(startingUpdate()) || !r.emit(fetchingAccountsUpdate()) {
		return
	}

	acc, err := r.o.accounts.Fetch(r.ctx, r.profile)
	if isUnsupported(err) {
		r.o.logger.Debug("JSON accounts not supported", "profile", r.profile.Label(), "err", err)
		acc, err = nil, nil
	}
	if err != nil {
		r.fail(err)
		return
	}
	if acc == nil {
		r.fallback(0)
		return
	}

	if !r.emit(fetchingTransactionsUpdate()) {
		return
	}

	txs, err := r.o.transactions.Fetch(r.ctx, r.profile.WithAPIVersion(acc.Version), acc.ExpectedCount, r.progress)
	if isUnsupported(err) {
		r.o.logger.Debug("JSON transactions not supported", "profile", r.profile.Label(), "err", err)
		txs, err = nil, nil
	}
	if err != nil {
		r.fail(err)
		return
	}
	if txs == nil {
		r.fallback(acc.ExpectedCount)
		return
	}

	r.save(acc.Accounts, txs)
}

func (r *syncRun) fallback(hint int) {
	if !r.emit(fallbackUpdate()) {
		return
	}
	res, err := r.o.legacy.Parse(r.ctx, r.profile, hint, r.progress)
	if err != nil {
		r.fail(err)
		return
	}
	r.save(res.Accounts, res.Transactions)
}

func (r *syncRun) save(accounts []models.Account, txs []models.Transaction) {
	if !r.emit(savingUpdate()) {
		return
	}
	if err := r.o.persistence.Save(r.ctx, r.profile, accounts, txs); err != nil {
		r.fail(err)
		return
	}

	result := models.SyncResult{
		TransactionCount: len(txs),
		AccountCount:     len(accounts),
		Duration:         r.o.now().Sub(r.start),
	}
	r.o.setLast(result)

	if r.o.state != nil {
		withAmounts := 0
		for _, a := range accounts {
			if len(a.Amounts) > 0 {
				withAmounts++
			}
		}
		info := models.SyncInfo{
			Date:              r.o.now(),
			TransactionCount:  len(txs),
			AccountCount:      withAmounts,
			TotalAccountCount: len(accounts),
		}
		if err := r.o.state.UpdateSyncInfo(r.ctx, r.profile, info); err != nil {
			r.o.logger.Warn("could not record sync info", "profile", r.profile.Label(), "err", err)
		}
		r.o.state.SignalDataChanged()
	}

	r.o.logger.Info("sync complete", "profile", r.profile.Label(),
		"accounts", result.AccountCount, "transactions", result.TransactionCount, "duration", result.Duration)
}

func isUnsupported(err error) bool {
	var unsupported *apperr.APINotSupported
	return errors.As(err, &unsupported)
}
