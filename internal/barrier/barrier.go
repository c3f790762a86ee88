// Package barrier implements the Network Sync Barrier (spec §4.5): wait
// until chosen documents have reached the relay (outgoing), and until
// the tree's heads stop changing (incoming).
//
// Grounded on internal/client/sync/sync_engine.go's full-sync polling
// loop and pkg/fswatch's channel-select idiom (periodic tick + event
// channel + timeout branch).
package barrier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pushwork/pushwork/internal/docurl"
	"github.com/pushwork/pushwork/internal/repo"
)

const defaultPollInterval = 100 * time.Millisecond

type pendingAck struct {
	handle repo.FileHandle
	events <-chan repo.RemoteHeadsEvent
	stop   func()
}

// WaitForSync blocks until every handle's local head equals the
// relay's last-seen head, or until timeout elapses (spec §4.5).
func WaitForSync(ctx context.Context, handles []repo.FileHandle, relayID string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var waiting []pendingAck
	defer func() {
		for _, p := range waiting {
			p.stop()
		}
	}()

	for _, h := range handles {
		info, err := h.GetSyncInfo(relayID)
		if err != nil {
			return fmt.Errorf("barrier: sync info for %s: %w", h.URL(), err)
		}
		if info.LastHeads == h.Heads() {
			continue
		}
		events, stop := h.Subscribe()
		waiting = append(waiting, pendingAck{handle: h, events: events, stop: stop})
	}

	if len(waiting) == 0 {
		return nil
	}

	ticker := time.NewTicker(defaultPollInterval)
	defer ticker.Stop()

	for len(waiting) > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("barrier: waitForSync timed out with %d document(s) unacked", len(waiting))
		case <-ticker.C:
			waiting = filterConverged(waiting, relayID)
		case <-anyEvent(waiting):
			waiting = filterConverged(waiting, relayID)
		}
	}
	return nil
}

// anyEvent merges all pending handles' event channels into one signal
// channel; the barrier only needs to know "something changed", not
// which handle fired.
func anyEvent(waiting []pendingAck) <-chan struct{} {
	out := make(chan struct{}, 1)
	if len(waiting) == 0 {
		close(out)
		return out
	}
	for _, p := range waiting {
		p := p
		go func() {
			select {
			case _, ok := <-p.events:
				if ok {
					select {
					case out <- struct{}{}:
					default:
					}
				}
			case <-time.After(defaultPollInterval):
			}
		}()
	}
	return out
}

func filterConverged(waiting []pendingAck, relayID string) []pendingAck {
	out := waiting[:0]
	for _, p := range waiting {
		info, err := p.handle.GetSyncInfo(relayID)
		if err == nil && info.LastHeads == p.handle.Heads() {
			p.stop()
			continue
		}
		out = append(out, p)
	}
	return out
}

// BidirectionalOptions configures WaitForBidirectionalSync.
type BidirectionalOptions struct {
	Timeout              time.Duration
	PollInterval         time.Duration
	StableChecksRequired int
}

func (o BidirectionalOptions) withDefaults() BidirectionalOptions {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.StableChecksRequired <= 0 {
		o.StableChecksRequired = 3
	}
	return o
}

// TreeWalker collects {url -> heads} for every document reachable from
// rootURL. The engine supplies this since only it knows how to descend
// a directory document's children.
type TreeWalker func(ctx context.Context, rootURL string) (map[string]repo.Heads, error)

// WaitForBidirectionalSync polls walk(rootURL) until the returned
// {url->heads} map is unchanged for StableChecksRequired consecutive
// polls (spec §4.5). On timeout it logs a warning and returns nil —
// stability is best-effort, not a hard failure.
func WaitForBidirectionalSync(ctx context.Context, walk TreeWalker, rootURL string, opts BidirectionalOptions) error {
	opts = opts.withDefaults()
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	var prev map[string]repo.Heads
	stable := 0
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		cur, err := walk(ctx, rootURL)
		if err != nil {
			return fmt.Errorf("barrier: tree walk: %w", err)
		}
		if sameHeadsMap(prev, cur) {
			stable++
			if stable >= opts.StableChecksRequired {
				return nil
			}
		} else {
			stable = 0
			prev = cur
		}

		select {
		case <-ctx.Done():
			slog.Warn("barrier: waitForBidirectionalSync timed out before stabilizing", "stableChecks", stable, "required", opts.StableChecksRequired)
			return nil
		case <-ticker.C:
		}
	}
}

func sameHeadsMap(a, b map[string]repo.Heads) bool {
	if a == nil || b == nil {
		return false
	}
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// NormalizeKey strips heads from a URL so map identity is stable across
// version changes (spec §4.5: "use plain URLs as keys").
func NormalizeKey(url string) string {
	return docurl.Plain(url)
}
