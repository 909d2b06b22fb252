package wrap

import "fmt"

// NotFoundError reports a designation against a method that does not exist
// on the target type. It is returned synchronously by Designate, never
// deferred to call time.
type NotFoundError struct {
	Type   string
	Method string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("wrap: method %s.%s not found", e.Type, e.Method)
}

// ConflictError reports a re-designation of a pending method with a
// different policy kind. The prior designation is left untouched.
type ConflictError struct {
	Type     string
	Method   string
	Existing PolicyKind
	Proposed PolicyKind
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("wrap: method %s.%s already designated as %s, refusing %s",
		e.Type, e.Method, e.Existing, e.Proposed)
}

// SignatureError reports a method whose shape cannot be bridged by the
// registry (for example, more than one non-error result).
type SignatureError struct {
	Type   string
	Method string
	Reason string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("wrap: method %s.%s has an unsupported signature: %s",
		e.Type, e.Method, e.Reason)
}
