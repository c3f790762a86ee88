package engine

import (
	"context"
	"time"

	"github.com/pushwork/pushwork/internal/barrier"
	"github.com/pushwork/pushwork/internal/docmodel"
	"github.com/pushwork/pushwork/internal/docurl"
	"github.com/pushwork/pushwork/internal/repo"
)

// waitOutgoing blocks until the relay has acknowledged every handle the
// push phase touched this round (spec §4.5 WaitForSync).
func (e *Engine) waitOutgoing(ctx context.Context, handles []repo.FileHandle) error {
	if len(handles) == 0 {
		return nil
	}
	return barrier.WaitForSync(ctx, handles, e.opts.RelayID, e.opts.OutgoingTimeout)
}

// waitTreeStable blocks until the document tree reachable from the
// snapshot's root stops changing, or until timeout (spec §4.5
// WaitForBidirectionalSync).
func (e *Engine) waitTreeStable(ctx context.Context, snap *docmodel.SyncSnapshot, timeout time.Duration) error {
	if snap.RootDirectoryURL == "" {
		return nil
	}
	walker := func(ctx context.Context, rootURL string) (map[string]repo.Heads, error) {
		out := map[string]repo.Heads{}
		var walk func(url string) error
		walk = func(url string) error {
			handle, err := e.repo.FindDir(ctx, url)
			if err != nil {
				return nil //nolint:nilerr // best-effort walk: unreachable subtree just contributes nothing
			}
			out[barrier.NormalizeKey(url)] = handle.Heads()
			doc, ok := handle.Doc()
			if !ok {
				return nil
			}
			for _, entry := range doc.Docs {
				if entry.Type == docmodel.EntryFolder {
					if err := walk(entry.URL); err != nil {
						return err
					}
					continue
				}
				fh, err := e.repo.FindFile(ctx, docurl.Plain(entry.URL))
				if err != nil {
					continue
				}
				out[barrier.NormalizeKey(docurl.Plain(entry.URL))] = fh.Heads()
			}
			return nil
		}
		if err := walk(rootURL); err != nil {
			return nil, err
		}
		return out, nil
	}

	opts := barrier.BidirectionalOptions{
		Timeout:              timeout,
		PollInterval:         e.opts.BidirectionalOpts.PollInterval,
		StableChecksRequired: e.opts.BidirectionalOpts.StableChecksRequired,
	}
	return barrier.WaitForBidirectionalSync(ctx, walker, snap.RootDirectoryURL, opts)
}
