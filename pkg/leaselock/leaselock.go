// Package leaselock hands out expiring, renewable leases stored in
// Postgres. The ingestion worker takes one lease per document so a
// redelivered message never runs next to the original.
package leaselock

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrBusy     = errors.New("lease held by another worker")
	ErrLost     = errors.New("lease lost")
	ErrEmptyKey = errors.New("lease key is empty")
)

const (
	DefaultTTL          = 5 * time.Minute
	DefaultWaitInterval = 250 * time.Millisecond

	renewAttempts = 3
	renewTimeout  = 15 * time.Second
)

// DB is the subset of a pgx pool or connection the locker needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Locker acquires leases from the document_leases table.
type Locker struct {
	db DB
}

// Options controls lease lifetime and acquisition behaviour. The zero value
// is usable: a five minute TTL renewed at half-life, no waiting.
type Options struct {
	TTL        time.Duration
	RenewEvery time.Duration

	Wait         bool
	WaitInterval time.Duration
	WaitJitter   time.Duration

	// HolderPrefix is prepended to the random holder token, usually the
	// worker's hostname, so stuck rows can be traced back.
	HolderPrefix string
}

func (o Options) normalize() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.RenewEvery <= 0 || o.RenewEvery >= o.TTL {
		o.RenewEvery = max(o.TTL/2, time.Second)
	}
	if o.WaitInterval <= 0 {
		o.WaitInterval = DefaultWaitInterval
	}
	if o.WaitJitter < 0 {
		o.WaitJitter = 0
	}
	return o
}

// Lease is a held lock. Its Context is cancelled when the lease is released
// or when renewal fails; work done under the lease should use it.
type Lease struct {
	Key    string
	Holder string

	Context context.Context

	locker *Locker
	cancel context.CancelCauseFunc

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewLocker returns a Locker backed by db.
func NewLocker(db DB) *Locker {
	return &Locker{db: db}
}

// DocumentKey is the lease key used for ingesting a document.
func DocumentKey(documentID string) string {
	return "document:" + documentID
}

// WithDocumentLease runs fn while holding the lease for documentID.
func (l *Locker) WithDocumentLease(
	ctx context.Context,
	documentID string,
	opts Options,
	fn func(ctx context.Context) error,
) error {
	return l.WithLease(ctx, DocumentKey(documentID), opts, fn)
}

// WithLease runs fn while holding the lease for key and releases it
// afterwards. If the lease is lost mid-run, fn's context is cancelled with
// ErrLost as cause.
func (l *Locker) WithLease(ctx context.Context, key string, opts Options, fn func(ctx context.Context) error) error {
	lease, err := l.Acquire(ctx, key, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := lease.Release(context.Background()); err != nil {
			logger.Warn("[Lease] Release failed", "key", key, "err", err)
		}
	}()

	err = fn(lease.Context)
	if cause := context.Cause(lease.Context); errors.Is(cause, ErrLost) && err != nil {
		return errors.Join(ErrLost, err)
	}
	return err
}

// Acquire takes the lease for key. With opts.Wait unset a held lease yields
// ErrBusy immediately; otherwise it polls until ctx is done.
func (l *Locker) Acquire(ctx context.Context, key string, opts Options) (*Lease, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	opts = opts.normalize()
	ttlMs := opts.TTL.Milliseconds()

	tok, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	holder := opts.HolderPrefix + tok

	for {
		ok, err := l.tryAcquire(ctx, key, holder, ttlMs)
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if !opts.Wait {
			return nil, ErrBusy
		}
		if err := sleepWithJitter(ctx, opts.WaitInterval, opts.WaitJitter); err != nil {
			return nil, err
		}
	}
	logger.Debug("[Lease] Acquired", "key", key, "holder", holder, "ttl", opts.TTL)

	leaseCtx, cancel := context.WithCancelCause(ctx)
	lease := &Lease{
		Key:     key,
		Holder:  holder,
		Context: leaseCtx,
		locker:  l,
		cancel:  cancel,
		stopCh:  make(chan struct{}),
	}
	go lease.renewLoop(opts.RenewEvery, ttlMs)

	return lease, nil
}

func (l *Locker) tryAcquire(ctx context.Context, key, holder string, ttlMs int64) (bool, error) {
	var got string
	err := l.db.QueryRow(ctx, tryAcquireSQL, key, holder, ttlMs).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return got != "", nil
}

// Release stops renewal and deletes the lease row if this holder still owns
// it. Calling Release more than once is safe.
func (le *Lease) Release(ctx context.Context) error {
	le.stopOnce.Do(func() {
		close(le.stopCh)
		le.cancel(context.Canceled)
	})

	_, err := le.locker.db.Exec(ctx, releaseSQL, le.Key, le.Holder)
	return err
}

func (le *Lease) renewLoop(every time.Duration, ttlMs int64) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-le.stopCh:
			return
		case <-le.Context.Done():
			return
		case <-t.C:
			if err := le.renewOnce(ttlMs); err != nil {
				logger.Warn("[Lease] Renewal failed", "key", le.Key, "err", err)
				le.cancel(err)
				return
			}
		}
	}
}

func (le *Lease) renewOnce(ttlMs int64) error {
	var lastErr error
	for attempt := range renewAttempts {
		ctx, cancel := context.WithTimeout(le.Context, renewTimeout)
		var got string
		err := le.locker.db.QueryRow(ctx, renewSQL, le.Key, le.Holder, ttlMs).Scan(&got)
		cancel()
		if err == nil {
			return nil
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrLost
		}
		lastErr = err
		if attempt < renewAttempts-1 {
			if err := sleepWithJitter(le.Context, 200*time.Millisecond, 0); err != nil {
				return err
			}
		}
	}
	return errors.Join(ErrLost, lastErr)
}

func sleepWithJitter(ctx context.Context, base, jitter time.Duration) error {
	d := base
	if jitter > 0 {
		d += time.Duration(rand.Int64N(int64(jitter) + 1))
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

const tryAcquireSQL = `
INSERT INTO document_leases (lease_key, holder, expires_at)
VALUES ($1, $2, now() + ($3::bigint * interval '1 millisecond'))
ON CONFLICT (lease_key) DO UPDATE
SET holder     = EXCLUDED.holder,
    expires_at = EXCLUDED.expires_at
WHERE document_leases.expires_at < now()
   OR document_leases.holder = EXCLUDED.holder
RETURNING lease_key;
`

const renewSQL = `
UPDATE document_leases
SET expires_at = now() + ($3::bigint * interval '1 millisecond')
WHERE lease_key = $1 AND holder = $2
RETURNING lease_key;
`

const releaseSQL = `
DELETE FROM document_leases
WHERE lease_key = $1 AND holder = $2;
`
