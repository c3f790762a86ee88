package engine

import "context"

// InitRoot creates the root directory document if the snapshot doesn't
// already have one, and returns its URL (spec §6 `init`: "create root
// directory doc").
func (e *Engine) InitRoot(ctx context.Context) (string, error) {
	if err := e.store.Lock(); err != nil {
		return "", err
	}
	defer e.store.Unlock()

	snap, err := e.loadOrCreateSnapshot()
	if err != nil {
		return "", err
	}
	if snap.RootDirectoryURL != "" {
		return snap.RootDirectoryURL, e.store.Save(snap)
	}

	if _, err := e.findOrCreateRoot(ctx, snap); err != nil {
		return "", err
	}
	if err := e.store.Save(snap); err != nil {
		return "", err
	}
	return snap.RootDirectoryURL, nil
}

// AdoptRoot records an existing remote root directory URL in the
// snapshot without creating a new document (spec §6 `clone`: "set
// rootDirectoryUrl=url").
func (e *Engine) AdoptRoot(url string) error {
	if err := e.store.Lock(); err != nil {
		return err
	}
	defer e.store.Unlock()

	snap, err := e.loadOrCreateSnapshot()
	if err != nil {
		return err
	}
	snap.RootDirectoryURL = url
	return e.store.Save(snap)
}
