package wrap

import "context"

// SlotStore persists one-shot memoization slots outside the owning process.
// Store must be conditional-create: when several writers race, exactly one
// observes created == true and the rest re-read the winning value.
type SlotStore interface {
	Driver() Driver

	// Load returns the slot payload for key when present.
	Load(ctx context.Context, key string) ([]byte, bool, error)

	// Store writes the slot payload only when key is absent and reports
	// whether this call created it.
	Store(ctx context.Context, key string, value []byte) (bool, error)

	// Forget removes a slot. The SharedMemoize policy never calls this;
	// it exists for operational hygiene and tests.
	Forget(ctx context.Context, key string) error

	// Flush removes every slot within the store's prefix scope.
	Flush(ctx context.Context) error
}

func cloneBytes(value []byte) []byte {
	if value == nil {
		return nil
	}
	clone := make([]byte, len(value))
	copy(clone, value)
	return clone
}
