package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ledgerly/accounting-api/internal/api/metrics"
	"github.com/ledgerly/accounting-api/internal/core/domain"
	"github.com/ledgerly/accounting-api/internal/core/ports"
)

const defaultWaitTimeout = 3000 * time.Millisecond

// Options tunes a LoginPipeline.
type Options struct {
	// WaitTimeout bounds how long a caller waits for its own result.
	// Defaults to 3s.
	WaitTimeout time.Duration
	// IdleTTL evicts a per-user worker after it has been idle this long.
	// Zero keeps workers for the lifetime of the process.
	IdleTTL time.Duration
}

type loginResult struct {
	principal domain.Principal
	err       error
}

type loginRequest struct {
	id       string
	username string
	password string
	// result has capacity one so a worker never blocks on a caller that
	// already gave up.
	result chan loginResult
}

// LoginPipeline routes login attempts to one sequential worker per username.
// Each worker holds at most one pending request: a newer request for the
// same user replaces the pending one, whose caller then times out with
// domain.ErrLoginUnavailable. Different usernames never wait on each other.
type LoginPipeline struct {
	verifier ports.CredentialVerifier
	opts     Options
	log      zerolog.Logger

	mu      sync.Mutex
	ctx     context.Context
	workers map[string]*userWorker
}

// NewLoginPipeline creates a pipeline around verifier. Workers are created
// lazily on the first request for a username.
func NewLoginPipeline(verifier ports.CredentialVerifier, opts Options, log zerolog.Logger) *LoginPipeline {
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = defaultWaitTimeout
	}
	return &LoginPipeline{
		verifier: verifier,
		opts:     opts,
		log:      log.With().Str("component", "login_pipeline").Logger(),
		ctx:      context.Background(),
		workers:  make(map[string]*userWorker),
	}
}

// Start binds worker lifetime to ctx. Workers stop when ctx is cancelled;
// requests submitted afterwards time out.
func (p *LoginPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	p.ctx = ctx
	p.mu.Unlock()
}

// Authenticate submits the attempt and waits for its own result, at most
// WaitTimeout.
func (p *LoginPipeline) Authenticate(ctx context.Context, username, password string) (domain.Principal, error) {
	if username == "" || password == "" {
		metrics.LoginAttemptsTotal.WithLabelValues(outcome(domain.ErrInvalidCredentials)).Inc()
		return domain.Principal{}, domain.ErrInvalidCredentials
	}

	req := &loginRequest{
		id:       uuid.NewString(),
		username: username,
		password: password,
		result:   make(chan loginResult, 1),
	}
	p.submit(req)

	timer := time.NewTimer(p.opts.WaitTimeout)
	defer timer.Stop()

	var res loginResult
	select {
	case res = <-req.result:
	case <-timer.C:
		p.log.Debug().Str("attempt_id", req.id).Str("username", username).Msg("login wait timed out")
		res.err = domain.ErrLoginUnavailable
	case <-ctx.Done():
		res.err = fmt.Errorf("%w: %v", domain.ErrLoginUnavailable, ctx.Err())
	}

	metrics.LoginAttemptsTotal.WithLabelValues(outcome(res.err)).Inc()
	return res.principal, res.err
}

// Workers reports the number of live per-user workers.
func (p *LoginPipeline) Workers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// submit hands req to the username's worker, creating it if needed. The map
// lock is held while offering so eviction cannot race with a new request.
func (p *LoginPipeline) submit(req *loginRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w, ok := p.workers[req.username]
	if !ok {
		w = &userWorker{username: req.username, wake: make(chan struct{}, 1)}
		p.workers[req.username] = w
		metrics.LoginWorkers.Inc()
		go p.run(p.ctx, w)
	}

	if dropped := w.offer(req); dropped != nil {
		metrics.LoginCollapsedTotal.Inc()
		p.log.Debug().
			Str("username", req.username).
			Str("dropped_attempt_id", dropped.id).
			Str("attempt_id", req.id).
			Msg("pending login replaced")
	}
}

func (p *LoginPipeline) run(ctx context.Context, w *userWorker) {
	var idle <-chan time.Time
	var idleTimer *time.Timer
	if p.opts.IdleTTL > 0 {
		idleTimer = time.NewTimer(p.opts.IdleTTL)
		defer idleTimer.Stop()
		idle = idleTimer.C
	}

	for {
		select {
		case <-ctx.Done():
			p.remove(w)
			return
		case <-idle:
			if p.evict(w) {
				return
			}
			idleTimer.Reset(p.opts.IdleTTL)
			continue
		case <-w.wake:
		}

		if req := w.take(); req != nil {
			p.process(ctx, req)
		}
		if idleTimer != nil {
			if !idleTimer.Stop() {
				select {
				case <-idleTimer.C:
				default:
				}
			}
			idleTimer.Reset(p.opts.IdleTTL)
		}
	}
}

func (p *LoginPipeline) process(ctx context.Context, req *loginRequest) {
	start := time.Now()
	principal, err := p.verifier.Verify(ctx, req.username, req.password)
	metrics.LoginVerificationDuration.Observe(time.Since(start).Seconds())

	if err != nil && !isExpectedFailure(err) {
		p.log.Error().Err(err).Str("attempt_id", req.id).Str("username", req.username).Msg("credential verification failed")
	}

	select {
	case req.result <- loginResult{principal: principal, err: err}:
	default:
	}
}

// evict removes w if nothing is pending. Called with the worker idle.
func (p *LoginPipeline) evict(w *userWorker) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w.hasPending() {
		return false
	}
	if p.workers[w.username] == w {
		delete(p.workers, w.username)
		metrics.LoginWorkers.Dec()
	}
	return true
}

func (p *LoginPipeline) remove(w *userWorker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.workers[w.username] == w {
		delete(p.workers, w.username)
		metrics.LoginWorkers.Dec()
	}
}

// userWorker is the depth-one collapsing mailbox of a single username.
type userWorker struct {
	username string
	wake     chan struct{}

	mu      sync.Mutex
	pending *loginRequest
}

// offer stores req as the pending request and returns the request it replaced.
func (w *userWorker) offer(req *loginRequest) *loginRequest {
	w.mu.Lock()
	dropped := w.pending
	w.pending = req
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return dropped
}

func (w *userWorker) take() *loginRequest {
	w.mu.Lock()
	defer w.mu.Unlock()
	req := w.pending
	w.pending = nil
	return req
}

func (w *userWorker) hasPending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending != nil
}

func isExpectedFailure(err error) bool {
	return errors.Is(err, domain.ErrInvalidCredentials) || errors.Is(err, domain.ErrAccountLocked)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrAccountLocked):
		return "locked"
	case errors.Is(err, domain.ErrLoginUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
