package utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/mitchellh/go-homedir"
)

const (
	lockFileSuffix = ".lock"
	lockRetryDelay = 250 * time.Millisecond
)

// DBLock serializes catalog writers on one database across processes: a
// `catalog import` and the poller inside `serve` never diff prices against
// each other's half-applied upserts.
type DBLock struct {
	lock *flock.Flock
	path string
}

// NewDBLock creates a lock file next to the given database path.
func NewDBLock(dbPath string) (*DBLock, error) {
	absPath, err := GetAbsDBPath(dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute db path: %w", err)
	}
	lockPath := absPath + lockFileSuffix
	return &DBLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}, nil
}

// Lock acquires the lock. When another writer holds it, Lock logs once and
// retries until the lock is free or ctx is done.
func (l *DBLock) Lock(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}

	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("locking %s: %w", l.path, err)
	}
	if locked {
		return nil
	}

	Log.WithField("lock", l.path).Warn("Another catalog writer holds the database, waiting")
	locked, err = l.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("locking %s: %w", l.path, err)
	}
	if !locked {
		return fmt.Errorf("locking %s: %w", l.path, ctx.Err())
	}
	return nil
}

// Unlock releases the lock. Releasing a lock that was never taken is not an
// error.
func (l *DBLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("unlocking %s: %w", l.path, err)
	}
	return nil
}

// GetAbsDBPath expands ~ and resolves the database path, defaulting to
// ~/.config/stackprice/stackprice.sqlite.
func GetAbsDBPath(dbPath string) (string, error) {
	if dbPath == "" {
		home, err := homedir.Dir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "stackprice", "stackprice.sqlite"), nil
	}
	expanded, err := homedir.Expand(dbPath)
	if err != nil {
		return "", err
	}
	return filepath.Abs(expanded)
}
