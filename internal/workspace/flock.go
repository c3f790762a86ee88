package workspace

import "github.com/gofrs/flock"

func newFlock(path string) flocker {
	return flock.New(path)
}
