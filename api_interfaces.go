package wrap

import "context"

// DesignateAPI exposes the registration half of the registry.
type DesignateAPI interface {
	Designate(target any, method string, policy Policy) error
	Install(target any) error
}

// CallAPI exposes the dispatch half of the registry.
type CallAPI interface {
	Call(ctx context.Context, target any, method string, args ...any) (any, error)
	Func(target any, method string) Fn
	Installed(target any, method string) bool
	Chain(target any, method string) []PolicyKind
}

// RegistryAPI is the full registry surface.
type RegistryAPI interface {
	DesignateAPI
	CallAPI
}

var _ RegistryAPI = (*Registry)(nil)
