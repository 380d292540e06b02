package utils

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogLevel(t *testing.T) {
	defer Log.SetLevel(Log.GetLevel())

	require.NoError(t, SetLogLevel("WARN"))
	assert.Equal(t, logrus.WarnLevel, Log.GetLevel())
	require.NoError(t, SetLogLevel("debug"))
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())
	assert.Error(t, SetLogLevel("verbose"))
}

func TestUniqueStrings(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, UniqueStrings([]string{" a", "b", "", "a", "c", "b "}))
	assert.Equal(t, []string{}, UniqueStrings(nil))
}

func TestDBLock(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "test.sqlite")

	lock, err := NewDBLock(dbPath)
	require.NoError(t, err)
	require.NoError(t, lock.Lock(context.Background()))
	assert.FileExists(t, dbPath+lockFileSuffix)
	require.NoError(t, lock.Unlock())
	require.NoError(t, lock.Unlock())

	abs, err := GetAbsDBPath("")
	require.NoError(t, err)
	assert.Equal(t, "stackprice.sqlite", filepath.Base(abs))
}

func TestDBLockWaitsForHolder(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.sqlite")

	holder, err := NewDBLock(dbPath)
	require.NoError(t, err)
	waiter, err := NewDBLock(dbPath)
	require.NoError(t, err)

	require.NoError(t, holder.Lock(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err = waiter.Lock(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, holder.Unlock())
	require.NoError(t, waiter.Lock(context.Background()))
	require.NoError(t, waiter.Unlock())
}
