// Package lock provides MySQL advisory locking so that two gopurge runs do
// not delete from the same table at the same time.
package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrLockTimeout is returned when another instance holds the lock.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Timeouts for GET_LOCK, in seconds.
const (
	TimeoutImmediate = 0
	TimeoutShort     = 1
	TimeoutMedium    = 10
)

// maxLockNameLen is MySQL's limit on GET_LOCK names.
const maxLockNameLen = 64

// AdvisoryLock is a named MySQL lock held on a dedicated connection.
// GET_LOCK is connection scoped, so the connection stays pinned from
// acquisition until release.
type AdvisoryLock struct {
	db       *sql.DB
	lockName string
	conn     *sql.Conn
}

// NewAdvisoryLock creates a lock with the given name. Nothing is acquired
// until Acquire is called.
func NewAdvisoryLock(db *sql.DB, lockName string) *AdvisoryLock {
	return &AdvisoryLock{db: db, lockName: lockName}
}

// NewTargetLock creates the lock guarding deletes from table in database.
func NewTargetLock(db *sql.DB, database, table string) *AdvisoryLock {
	return NewAdvisoryLock(db, TargetLockName(database, table))
}

// TargetLockName returns "gopurge:{database}.{table}" with unsafe characters
// replaced, truncated to MySQL's lock name limit.
func TargetLockName(database, table string) string {
	sanitize := func(s string) string {
		return strings.Map(func(r rune) rune {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
				return r
			}
			return '_'
		}, s)
	}

	name := fmt.Sprintf("gopurge:%s.%s", sanitize(database), sanitize(table))
	if len(name) > maxLockNameLen {
		name = name[:maxLockNameLen]
	}
	return name
}

// LockName returns the name of the advisory lock.
func (a *AdvisoryLock) LockName() string {
	return a.lockName
}

// IsHeld reports whether this instance holds the lock.
func (a *AdvisoryLock) IsHeld() bool {
	return a.conn != nil
}

// Acquire waits up to timeoutSeconds for the lock.
//
// GET_LOCK returns 1 when obtained, 0 on timeout and NULL on error.
// A timeout yields ErrLockTimeout.
func (a *AdvisoryLock) Acquire(ctx context.Context, timeoutSeconds int) error {
	if a.conn != nil {
		return nil
	}

	conn, err := a.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to reserve connection for lock %q: %w", a.lockName, err)
	}

	var result sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", a.lockName, timeoutSeconds).Scan(&result); err != nil {
		conn.Close()
		return fmt.Errorf("failed to execute GET_LOCK: %w", err)
	}

	if !result.Valid {
		conn.Close()
		return fmt.Errorf("GET_LOCK returned NULL for lock %q", a.lockName)
	}

	switch result.Int64 {
	case 1:
		a.conn = conn
		return nil
	case 0:
		conn.Close()
		return fmt.Errorf("%w: lock %q is held by another instance", ErrLockTimeout, a.lockName)
	default:
		conn.Close()
		return fmt.Errorf("unexpected GET_LOCK return value: %d", result.Int64)
	}
}

// Release frees the lock and returns its connection to the pool. Releasing
// a lock that is not held is a no-op.
func (a *AdvisoryLock) Release(ctx context.Context) error {
	if a.conn == nil {
		return nil
	}
	conn := a.conn
	a.conn = nil
	defer conn.Close()

	var result sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT RELEASE_LOCK(?)", a.lockName).Scan(&result); err != nil {
		return fmt.Errorf("failed to execute RELEASE_LOCK: %w", err)
	}
	if !result.Valid || result.Int64 != 1 {
		return fmt.Errorf("lock %q was not held by this connection", a.lockName)
	}
	return nil
}

// WithLock runs fn while holding the lock. The lock is released even if fn
// panics; release uses its own short-lived context so a cancelled run still
// cleans up.
func (a *AdvisoryLock) WithLock(ctx context.Context, timeoutSeconds int, fn func() error) (err error) {
	if err := a.Acquire(ctx, timeoutSeconds); err != nil {
		return err
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if releaseErr := a.Release(releaseCtx); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()

	return fn()
}
