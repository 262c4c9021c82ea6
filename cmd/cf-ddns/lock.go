package main

import (
	"fmt"

	"github.com/gofrs/flock"

	"github.com/Travis-Britz/cfddns"
)

// acquireLock takes an exclusive lock on path without waiting.
// An empty path disables locking.
func acquireLock(path string) (unlock func(), err error) {
	if path == "" {
		return func() {}, nil
	}
	l := flock.New(path)
	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: unable to lock %s: %w", ddns.ErrConfig, path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: another cf-ddns run holds %s", ddns.ErrConfig, path)
	}
	return func() { l.Unlock() }, nil
}
