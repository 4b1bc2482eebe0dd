package resolver

import "errors"

var (
	// ErrDuplicateModule indicates two manifests in one Input share the same module identity.
	ErrDuplicateModule = errors.New("duplicate module in resolver input")
)
