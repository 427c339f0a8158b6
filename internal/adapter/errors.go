package adapter

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnsupportedType = errors.New("unsupported type")
)

// NotFoundError reports a schema, table, view or sequence that a resolving
// lookup could not find. It matches ErrNotFound.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// UnsupportedTypeError reports a catalog type name with no mapping.
// It matches ErrUnsupportedType.
type UnsupportedTypeError struct {
	TypeName string
	Column   string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("can't resolve type %q (column %q)", e.TypeName, e.Column)
}

func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrUnsupportedType
}
