package registry

import (
	"errors"
	"fmt"
)

// Op names the loader that failed.
type Op string

const (
	// OpActions is the action-list loader.
	OpActions Op = "actions"
	// OpComponent is the root component loader.
	OpComponent Op = "component"
)

// ErrUnknownModule reports a load for a key with no registry entry.
var ErrUnknownModule = errors.New("module is not registered")

// ModuleLoadError wraps a failed remote load with the module and loader that
// produced it.
type ModuleLoadError struct {
	Module ModuleKey
	Op     Op
	Err    error
}

func (e *ModuleLoadError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("load %s for module %q: %v", e.Op, e.Module, e.Err)
}

func (e *ModuleLoadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsActionLoadError reports whether err is a failed action-list load.
func IsActionLoadError(err error) bool {
	var loadErr *ModuleLoadError
	return errors.As(err, &loadErr) && loadErr.Op == OpActions
}

// IsComponentLoadError reports whether err is a failed component load.
func IsComponentLoadError(err error) bool {
	var loadErr *ModuleLoadError
	return errors.As(err, &loadErr) && loadErr.Op == OpComponent
}
