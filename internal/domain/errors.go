package domain

import "errors"

var (
	// ErrCancelled means the operation observed the shutdown signal.
	// It is always recovered locally and never reported as a failure.
	ErrCancelled = errors.New("cancelled")

	// ErrExternalCallFailed is returned by the outbound ping when the call
	// errors or answers with a non-2xx status. Startup continues.
	ErrExternalCallFailed = errors.New("external call failed")

	// ErrSourceUnavailable marks a non-2xx page fetch. It ends the sync loop
	// without failing the orchestration.
	ErrSourceUnavailable = errors.New("catalog source unavailable")

	// ErrSyncFailed wraps unexpected transport, decode or store faults
	// during sync. It is terminal for the orchestration.
	ErrSyncFailed = errors.New("sync failed")

	// ErrInvalidProduct is returned when a catalog item cannot be stored.
	ErrInvalidProduct = errors.New("invalid product")
)
