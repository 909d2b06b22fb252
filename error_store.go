package wrap

import "context"

// errorStore is returned when a driver fails to initialize; it preserves the
// driver identity while surfacing the construction error on every call.
type errorStore struct {
	driver Driver
	err    error
}

func (e *errorStore) Driver() Driver { return e.driver }

func (e *errorStore) Load(context.Context, string) ([]byte, bool, error) {
	return nil, false, e.err
}

func (e *errorStore) Store(context.Context, string, []byte) (bool, error) {
	return false, e.err
}

func (e *errorStore) Forget(context.Context, string) error { return e.err }

func (e *errorStore) Flush(context.Context) error { return e.err }
