package wrap

import "context"

// shapingStore enforces payload shaping concerns (compression, size limits)
// transparently on top of any concrete SlotStore implementation.
type shapingStore struct {
	inner SlotStore
	codec CompressionCodec
	max   int
}

func newShapingStore(inner SlotStore, codec CompressionCodec, max int) SlotStore {
	if codec == CompressionNone && max <= 0 {
		return inner
	}
	return &shapingStore{inner: inner, codec: codec, max: max}
}

func (s *shapingStore) Driver() Driver { return s.inner.Driver() }

func (s *shapingStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	body, ok, err := s.inner.Load(ctx, key)
	if err != nil || !ok {
		return body, ok, err
	}
	decoded, err := decodeValue(body)
	if err != nil {
		return nil, false, err
	}
	return decoded, true, nil
}

func (s *shapingStore) Store(ctx context.Context, key string, value []byte) (bool, error) {
	encoded, err := encodeValue(s.codec, s.max, value)
	if err != nil {
		return false, err
	}
	return s.inner.Store(ctx, key, encoded)
}

func (s *shapingStore) Forget(ctx context.Context, key string) error {
	return s.inner.Forget(ctx, key)
}

func (s *shapingStore) Flush(ctx context.Context) error {
	return s.inner.Flush(ctx)
}
