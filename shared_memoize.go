package wrap

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
)

// SlotKeyer supplies a stable cross-process identity for an instance whose
// methods are designated with SharedMemoize. Keys must be stable across
// restarts; pointer identity is meaningless between processes.
type SlotKeyer interface {
	SlotKey() string
}

// SharedOption adjusts a SharedMemoize policy.
type SharedOption func(*sharedPolicy)

// WithSlotKeyFunc overrides instance keying for targets that do not implement
// SlotKeyer.
func WithSlotKeyFunc(fn func(recv any) string) SharedOption {
	return func(p *sharedPolicy) {
		p.keyFn = fn
	}
}

// WithSlotCodec overrides the JSON round-trip used for slot payloads. Callers
// that need exact result types back supply their own pair.
func WithSlotCodec(encode func(any) ([]byte, error), decode func([]byte) (any, error)) SharedOption {
	return func(p *sharedPolicy) {
		p.encode = encode
		p.decode = decode
	}
}

// SharedMemoize returns a one-shot memoization policy whose slots live in a
// SlotStore, so independent processes share the compute-once contract. The
// first writer wins; a process that loses the creation race adopts the stored
// value. Failed calls never populate a slot. Within a process, first calls
// for an instance still serialize through its local slot; between processes
// redundant computation is permitted but at most one result is ever stored.
// @group Policies
//
// Example: memoize across processes via redis
//
//	store := wrap.NewRedisSlotStore(ctx, redisClient, wrap.WithPrefix("app"))
//	r := wrap.NewRegistry()
//	_ = r.Designate(report, "Total", wrap.SharedMemoize(store))
//	_ = r.Install(report)
func SharedMemoize(store SlotStore, opts ...SharedOption) Policy {
	p := &sharedPolicy{
		store:  store,
		encode: json.Marshal,
		decode: decodeJSONSlot,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type sharedPolicy struct {
	store  SlotStore
	keyFn  func(recv any) string
	encode func(any) ([]byte, error)
	decode func([]byte) (any, error)
}

func (*sharedPolicy) Kind() PolicyKind { return KindShared }

func (p *sharedPolicy) wrap(site wrapSite, next boundFn) boundFn {
	return func(ctx context.Context, recv any, args []any) (any, error) {
		key := p.slotKey(site, recv)

		// Local slot first: serializes in-process first calls and avoids a
		// round trip once the value is known.
		slot := site.slots.acquire(recv, site.method)
		slot.mu.Lock()
		defer slot.mu.Unlock()
		if slot.computed {
			return slot.value, nil
		}

		body, ok, err := p.store.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			value, err := p.decode(body)
			if err != nil {
				return nil, err
			}
			slot.value = value
			slot.computed = true
			return value, nil
		}

		value, err := next(ctx, recv, args)
		if err != nil {
			return nil, err
		}
		payload, err := p.encode(value)
		if err != nil {
			return nil, fmt.Errorf("wrap: encode slot %s: %w", key, err)
		}
		created, err := p.store.Store(ctx, key, payload)
		if err != nil {
			return nil, err
		}
		if !created {
			// Lost the cross-process race; adopt the stored value so every
			// caller sees the same result forever.
			body, ok, err := p.store.Load(ctx, key)
			if err == nil && ok {
				if stored, decErr := p.decode(body); decErr == nil {
					value = stored
				}
			}
		}
		slot.value = value
		slot.computed = true
		return value, nil
	}
}

func (p *sharedPolicy) slotKey(site wrapSite, recv any) string {
	instance := ""
	switch {
	case p.keyFn != nil:
		instance = p.keyFn(recv)
	default:
		if keyer, ok := recv.(SlotKeyer); ok {
			instance = keyer.SlotKey()
		}
	}
	return site.qualified() + ":" + instance
}

func decodeJSONSlot(body []byte) (any, error) {
	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return nil, fmt.Errorf("wrap: decode slot payload: %w", err)
	}
	return value, nil
}

// validatePolicyTarget runs policy-specific designation checks so failures
// surface at designate time, not on first call.
func validatePolicyTarget(t reflect.Type, method string, policy Policy, target any) error {
	p, ok := policy.(*sharedPolicy)
	if !ok {
		return nil
	}
	if p.store == nil {
		return fmt.Errorf("wrap: shared memoize for %s.%s requires a slot store", t.String(), method)
	}
	if p.keyFn != nil {
		return nil
	}
	if _, ok := target.(SlotKeyer); !ok {
		return &SignatureError{
			Type:   t.String(),
			Method: method,
			Reason: "shared memoize requires SlotKeyer or WithSlotKeyFunc",
		}
	}
	return nil
}
