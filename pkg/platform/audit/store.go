package audit

import "context"

// Store persists audit events. Append-only; events are never mutated.
type Store interface {
	Append(ctx context.Context, event Event) error

	// Recent returns up to n most recent events, newest first.
	Recent(ctx context.Context, n int) ([]Event, error)
}
