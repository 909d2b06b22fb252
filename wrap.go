package wrap

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Fn is a wrapped callable bound to a single instance.
type Fn func(ctx context.Context, args ...any) (any, error)

// Registry designates wrapping policies for named methods on a type and
// routes calls through the installed wrappers. The registry itself holds no
// method results and no per-instance values; all such state lives in per-type
// tables and per-instance cache slots.
type Registry struct {
	mu    sync.Mutex
	types map[reflect.Type]*typeTable
}

// typeTable holds one type's wrapper entries plus the slot table that owns
// every per-instance cache slot for that type.
type typeTable struct {
	name    string
	entries map[string]*wrapperEntry
	slots   *slotTable
}

// wrapperEntry associates a method name with its captured handle, pending
// designation, and installed wrapper chain. It never stores instance data.
type wrapperEntry struct {
	method   string
	handle   *methodHandle
	pending  Policy
	resolved boundFn      // head of the installed chain, nil before install
	chain    []PolicyKind // installed kinds, innermost first
}

// NewRegistry creates an empty registry.
// @group Registry
//
// Example: registry lifecycle
//
//	r := wrap.NewRegistry()
//	_ = r.Designate(svc, "Fetch", wrap.Memoize())
//	_ = r.Install(svc)
//	value, _ := r.Call(context.Background(), svc, "Fetch")
//	_ = value
func NewRegistry() *Registry {
	return &Registry{types: make(map[reflect.Type]*typeTable)}
}

// Designate marks method on target's type for wrapping under policy. The
// method must exist and have at most one non-error result; designation fails
// synchronously with *NotFoundError or *SignatureError otherwise.
// Re-designating a pending method with the same policy kind is a no-op;
// a different kind fails with *ConflictError and leaves the prior
// designation untouched. Designating again after Install starts a new layer
// that will wrap the previously installed one.
// @group Registry
func (r *Registry) Designate(target any, method string, policy Policy) error {
	t, err := targetType(target)
	if err != nil {
		return err
	}
	if policy == nil {
		return fmt.Errorf("wrap: nil policy for %s.%s", t.String(), method)
	}
	if err := validatePolicyTarget(t, method, policy, target); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	tbl := r.table(t)
	e, ok := tbl.entries[method]
	if !ok {
		handle, err := captureHandle(t, method)
		if err != nil {
			return err
		}
		e = &wrapperEntry{method: method, handle: handle}
		tbl.entries[method] = e
	}
	if e.pending != nil {
		if e.pending.Kind() == policy.Kind() {
			return nil
		}
		return &ConflictError{
			Type:     tbl.name,
			Method:   method,
			Existing: e.pending.Kind(),
			Proposed: policy.Kind(),
		}
	}
	e.pending = policy
	return nil
}

// Install replaces the resolvable implementation of every pending designation
// on target's type with its policy wrapper. The wrapper captures whatever is
// currently resolvable - the previous wrapper when one is installed, the
// original method handle otherwise - so repeated designate/install rounds
// chain like nested function wrapping, earliest installed closest to the
// body. Install with nothing pending is a no-op; a designation is never
// installed twice. Calls already in flight keep the implementation they
// resolved.
// @group Registry
func (r *Registry) Install(target any) error {
	t, err := targetType(target)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	tbl, ok := r.types[t]
	if !ok {
		return nil
	}
	site := wrapSite{typeName: tbl.name, slots: tbl.slots}
	for _, e := range tbl.entries {
		if e.pending == nil {
			continue
		}
		base := e.resolved
		if base == nil {
			base = e.handle.invoke
		}
		site.method = e.method
		e.resolved = e.pending.wrap(site, base)
		e.chain = append(e.chain, e.pending.Kind())
		e.pending = nil
	}
	return nil
}

// Call invokes method on target through the installed wrapper chain. Names
// that were never designated fall through to the original method exactly
// once. Arguments, including trailing callback funcs, pass through unchanged.
// @group Registry
func (r *Registry) Call(ctx context.Context, target any, method string, args ...any) (any, error) {
	t, err := targetType(target)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	var fn boundFn
	if tbl, ok := r.types[t]; ok {
		if e, ok := tbl.entries[method]; ok {
			if e.resolved != nil {
				fn = e.resolved
			} else {
				fn = e.handle.invoke
			}
		}
	}
	r.mu.Unlock()

	if fn != nil {
		return fn(ctx, target, args)
	}
	handle, err := captureHandle(t, method)
	if err != nil {
		return nil, err
	}
	return handle.invoke(ctx, target, args)
}

// Func returns the wrapped callable bound to target, the explicit
// higher-order form of the replacement.
// @group Registry
//
// Example: bound callable
//
//	fetch := r.Func(svc, "Fetch")
//	value, err := fetch(ctx)
func (r *Registry) Func(target any, method string) Fn {
	return func(ctx context.Context, args ...any) (any, error) {
		return r.Call(ctx, target, method, args...)
	}
}

// Installed reports whether method on target's type has at least one
// installed wrapper.
// @group Registry
func (r *Registry) Installed(target any, method string) bool {
	t, err := targetType(target)
	if err != nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	tbl, ok := r.types[t]
	if !ok {
		return false
	}
	e, ok := tbl.entries[method]
	return ok && e.resolved != nil
}

// Chain returns the installed policy kinds for method on target's type,
// innermost first.
// @group Registry
func (r *Registry) Chain(target any, method string) []PolicyKind {
	t, err := targetType(target)
	if err != nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	tbl, ok := r.types[t]
	if !ok {
		return nil
	}
	e, ok := tbl.entries[method]
	if !ok {
		return nil
	}
	chain := make([]PolicyKind, len(e.chain))
	copy(chain, e.chain)
	return chain
}

func (r *Registry) table(t reflect.Type) *typeTable {
	tbl, ok := r.types[t]
	if !ok {
		tbl = &typeTable{
			name:    t.String(),
			entries: make(map[string]*wrapperEntry),
			slots:   newSlotTable(),
		}
		r.types[t] = tbl
	}
	return tbl
}

func targetType(target any) (reflect.Type, error) {
	if target == nil {
		return nil, fmt.Errorf("wrap: nil target")
	}
	t := reflect.TypeOf(target)
	if t.Comparable() || t.Kind() == reflect.Ptr {
		return t, nil
	}
	return nil, fmt.Errorf("wrap: target type %s is not comparable", t.String())
}
