package analysis

import (
	"errors"
	"fmt"

	"github.com/bayleafwalker/bindery-usecheck/internal/metadata"
)

var (
	// ErrInvalidModuleReference indicates a query target that is not part of the current registry snapshot.
	ErrInvalidModuleReference = errors.New("module not found in registry snapshot")
)

// QueryError wraps an unexpected failure from the Registry or Oracle.
type QueryError struct {
	Op      string
	Module  metadata.ModuleRef
	Package string
	Err     error
}

func (e *QueryError) Error() string {
	if e.Package == "" {
		return fmt.Sprintf("%s failed for module %s: %v", e.Op, e.Module, e.Err)
	}
	return fmt.Sprintf("%s failed for module %s package %s: %v", e.Op, e.Module, e.Package, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

func queryError(op string, module metadata.ModuleRef, pkg string, err error) error {
	var qe *QueryError
	if errors.As(err, &qe) {
		return err
	}
	return &QueryError{Op: op, Module: module, Package: pkg, Err: err}
}

// ModuleError reports the failure of one module inside a batch query.
type ModuleError struct {
	Module metadata.ModuleRef
	Err    error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("analyze %s: %v", e.Module, e.Err)
}

func (e *ModuleError) Unwrap() error { return e.Err }
