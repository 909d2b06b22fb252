package wrap

import (
	"context"
	"strings"

	gocache "github.com/patrickmn/go-cache"
)

type memoryStore struct {
	cache *gocache.Cache
}

func newMemoryStore() SlotStore {
	// Slots are one-shot and never expire, so no sweep interval is needed.
	return &memoryStore{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

func (s *memoryStore) Driver() Driver {
	return DriverMemory
}

func (s *memoryStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	item, ok := s.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	body, ok := item.([]byte)
	if !ok {
		return nil, false, nil
	}
	return cloneBytes(body), true, nil
}

func (s *memoryStore) Store(_ context.Context, key string, value []byte) (bool, error) {
	if err := s.cache.Add(key, cloneBytes(value), gocache.NoExpiration); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *memoryStore) Forget(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

func (s *memoryStore) Flush(_ context.Context) error {
	s.cache.Flush()
	return nil
}
