package syncer

import "errors"

var (
	ErrNoHandler = errors.New("no handler registered")
	// ErrDependencyPending marks an item that has to wait for another one,
	// e.g. an appointment whose patient has not reached the server yet.
	ErrDependencyPending = errors.New("dependency not synced yet")
)
