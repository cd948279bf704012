package expand

import (
	"fmt"
	"strings"

	"github.com/thoreinstein/crossbuild/internal/errors"
)

// Sentinel errors for template resolution.
var (
	// ErrUnresolvedReference indicates a placeholder names a key that exists in
	// no namespace, scalar, or the inherited environment.
	ErrUnresolvedReference = errors.New("unresolved reference")

	// ErrCyclicReference indicates a template (transitively) references itself.
	ErrCyclicReference = errors.New("cyclic reference")

	// ErrFrozen indicates a write was attempted while a run group holds the store.
	ErrFrozen = errors.New("store is frozen")
)

// ReferenceError describes a failed placeholder lookup.
type ReferenceError struct {
	// Name is the placeholder that could not be resolved.
	Name string

	// Chain lists the names being resolved when the failure occurred,
	// outermost first. For cycles it ends with Name.
	Chain []string

	// Err is ErrUnresolvedReference or ErrCyclicReference.
	Err error
}

func (e *ReferenceError) Error() string {
	if len(e.Chain) == 0 {
		return fmt.Sprintf("%s: {{ %s }}", e.Err, e.Name)
	}
	return fmt.Sprintf("%s: {{ %s }} (via %s)", e.Err, e.Name, strings.Join(e.Chain, " -> "))
}

func (e *ReferenceError) Unwrap() error {
	return e.Err
}
