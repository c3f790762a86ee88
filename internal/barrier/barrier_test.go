package barrier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pushwork/pushwork/internal/docmodel"
	"github.com/pushwork/pushwork/internal/repo"
	"github.com/pushwork/pushwork/internal/repo/memrepo"
)

func TestWaitForSyncReturnsImmediatelyWhenAlreadyAcked(t *testing.T) {
	r := memrepo.New()
	handle, err := r.CreateFile(docmodel.NewFileDocument("a.txt", ".txt", "text/plain", 0o644))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err = WaitForSync(ctx, []repo.FileHandle{handle}, "relay-1", 500*time.Millisecond)
	require.NoError(t, err)
}

func TestWaitForBidirectionalSyncStabilizesOnStaticTree(t *testing.T) {
	walker := func(ctx context.Context, rootURL string) (map[string]repo.Heads, error) {
		return map[string]repo.Heads{rootURL: "fixed"}, nil
	}

	err := WaitForBidirectionalSync(context.Background(), walker, "pushwork://root", BidirectionalOptions{
		Timeout:              2 * time.Second,
		PollInterval:         10 * time.Millisecond,
		StableChecksRequired: 3,
	})
	require.NoError(t, err)
}

func TestNormalizeKeyStripsHeads(t *testing.T) {
	require.Equal(t, "pushwork://abc", NormalizeKey("pushwork://abc?heads=h1"))
}
