package leaselock

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	val string
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.val
	return nil
}

// fakeDB keeps leases in memory and never expires them unless told to.
type fakeDB struct {
	mu      sync.Mutex
	holders map[string]string
	renews  int
}

func newFakeDB() *fakeDB {
	return &fakeDB{holders: map[string]string{}}
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.mu.Lock()
	defer db.mu.Unlock()

	key, holder := args[0].(string), args[1].(string)
	current, held := db.holders[key]
	switch {
	case strings.Contains(sql, "INSERT INTO document_leases"):
		if held && current != holder {
			return fakeRow{err: pgx.ErrNoRows}
		}
		db.holders[key] = holder
		return fakeRow{val: key}
	case strings.Contains(sql, "UPDATE document_leases"):
		db.renews++
		if !held || current != holder {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{val: key}
	}
	return fakeRow{err: errors.New("unexpected query")}
}

func (db *fakeDB) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	key, holder := args[0].(string), args[1].(string)
	if db.holders[key] == holder {
		delete(db.holders, key)
		return pgconn.NewCommandTag("DELETE 1"), nil
	}
	return pgconn.NewCommandTag("DELETE 0"), nil
}

func (db *fakeDB) steal(key string) {
	db.mu.Lock()
	db.holders[key] = "someone-else"
	db.mu.Unlock()
}

func TestAcquire_BusyWhenHeld(t *testing.T) {
	db := newFakeDB()
	locker := NewLocker(db)
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, DocumentKey("doc1"), Options{HolderPrefix: "w1-"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(lease.Holder, "w1-"))

	_, err = locker.Acquire(ctx, DocumentKey("doc1"), Options{})
	assert.ErrorIs(t, err, ErrBusy)

	require.NoError(t, lease.Release(ctx))
	require.NoError(t, lease.Release(ctx))
	assert.ErrorIs(t, lease.Context.Err(), context.Canceled)

	again, err := locker.Acquire(ctx, DocumentKey("doc1"), Options{})
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestAcquire_EmptyKey(t *testing.T) {
	_, err := NewLocker(newFakeDB()).Acquire(context.Background(), "", Options{})
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestAcquire_WaitHonoursContext(t *testing.T) {
	db := newFakeDB()
	db.steal(DocumentKey("doc1"))
	locker := NewLocker(db)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := locker.Acquire(ctx, DocumentKey("doc1"), Options{Wait: true, WaitInterval: time.Millisecond})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithDocumentLease_ReleasesAfterRun(t *testing.T) {
	db := newFakeDB()
	locker := NewLocker(db)

	ran := false
	err := locker.WithDocumentLease(context.Background(), "doc1", Options{}, func(ctx context.Context) error {
		ran = true
		assert.NoError(t, ctx.Err())
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Empty(t, db.holders)
}

func TestLease_LostCancelsContext(t *testing.T) {
	db := newFakeDB()
	locker := NewLocker(db)
	key := DocumentKey("doc1")

	lease, err := locker.Acquire(context.Background(), key, Options{TTL: 2 * time.Second, RenewEvery: 10 * time.Millisecond})
	require.NoError(t, err)
	db.steal(key)

	select {
	case <-lease.Context.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("lease context was not cancelled after the row was taken over")
	}
	assert.ErrorIs(t, context.Cause(lease.Context), ErrLost)
	_ = lease.Release(context.Background())
	assert.Equal(t, "someone-else", db.holders[key])
}

func TestOptionsNormalize(t *testing.T) {
	o := Options{TTL: 10 * time.Second, RenewEvery: time.Minute, WaitJitter: -1}.normalize()
	assert.Equal(t, 5*time.Second, o.RenewEvery)
	assert.Equal(t, DefaultWaitInterval, o.WaitInterval)
	assert.Zero(t, o.WaitJitter)

	z := Options{}.normalize()
	assert.Equal(t, DefaultTTL, z.TTL)
}
