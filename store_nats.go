package wrap

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/nats-io/nats.go"
)

// NATSKeyValue captures the subset of nats.KeyValue used by the store.
type NATSKeyValue interface {
	Get(key string) (nats.KeyValueEntry, error)
	Create(key string, value []byte) (uint64, error)
	Delete(key string, opts ...nats.DeleteOpt) error
	Purge(key string, opts ...nats.DeleteOpt) error
	ListKeys(opts ...nats.WatchOpt) (nats.KeyLister, error)
}

type natsStore struct {
	kv     NATSKeyValue
	prefix string
}

func newNATSStore(kv NATSKeyValue, prefix string) SlotStore {
	if prefix == "" {
		prefix = defaultSlotPrefix
	}
	return &natsStore{
		kv:     kv,
		prefix: prefix,
	}
}

func (s *natsStore) Driver() Driver { return DriverNATS }

func (s *natsStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	if s.kv == nil {
		return nil, false, errors.New("nats slot key-value unavailable")
	}
	entry, err := s.kv.Get(s.slotKey(key))
	if isNATSMiss(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if entry.Operation() == nats.KeyValueDelete || entry.Operation() == nats.KeyValuePurge {
		return nil, false, nil
	}
	return cloneBytes(entry.Value()), true, nil
}

func (s *natsStore) Store(_ context.Context, key string, value []byte) (bool, error) {
	if s.kv == nil {
		return false, errors.New("nats slot key-value unavailable")
	}
	_, err := s.kv.Create(s.slotKey(key), cloneBytes(value))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, nats.ErrKeyExists) {
		return false, nil
	}
	return false, err
}

func (s *natsStore) Forget(_ context.Context, key string) error {
	if s.kv == nil {
		return errors.New("nats slot key-value unavailable")
	}
	err := s.kv.Purge(s.slotKey(key))
	if isNATSMiss(err) {
		return nil
	}
	return err
}

func (s *natsStore) Flush(_ context.Context) error {
	if s.kv == nil {
		return errors.New("nats slot key-value unavailable")
	}
	lister, err := s.kv.ListKeys(nats.IgnoreDeletes())
	if err != nil {
		if errors.Is(err, nats.ErrNoKeysFound) {
			return nil
		}
		return err
	}
	defer func() { _ = lister.Stop() }()

	scopePrefix := s.scopePrefix()
	for key := range lister.Keys() {
		if !strings.HasPrefix(key, scopePrefix) {
			continue
		}
		if err := s.kv.Purge(key); err != nil && !isNATSMiss(err) {
			return err
		}
	}
	return nil
}

func (s *natsStore) slotKey(key string) string {
	return s.scopePrefix() + encodeNATSKeyPart(key)
}

func (s *natsStore) scopePrefix() string {
	return "p." + encodeNATSKeyPart(s.prefix) + ".s."
}

func isNATSMiss(err error) bool {
	return errors.Is(err, nats.ErrKeyNotFound) || errors.Is(err, nats.ErrKeyDeleted)
}

func encodeNATSKeyPart(part string) string {
	if part == "" {
		return "_"
	}
	return base64.RawURLEncoding.EncodeToString([]byte(part))
}
