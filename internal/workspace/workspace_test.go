package workspace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupCreatesControlDirAndLocks(t *testing.T) {
	root := t.TempDir()
	ws, err := New(root)
	require.NoError(t, err)

	require.False(t, ws.IsInitialized())
	require.NoError(t, ws.Setup())
	require.True(t, ws.IsInitialized())

	require.NoError(t, ws.Unlock())
}

func TestLockIsExclusive(t *testing.T) {
	root := t.TempDir()
	a, err := New(root)
	require.NoError(t, err)
	require.NoError(t, a.Lock())
	defer a.Unlock()

	b, err := New(root)
	require.NoError(t, err)
	err = b.Lock()
	require.ErrorIs(t, err, ErrLocked)
}
