package modelconfig

import (
	"errors"
	"fmt"
)

var ErrFrozen = errors.New("config registry is frozen")

// UnknownFieldError reports an update naming a field Config does not declare.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown config field %q", e.Field)
}

type FieldTypeError struct {
	Field string
	Want  string
	Got   any
}

func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("config field %q: expected %s, got %T", e.Field, e.Want, e.Got)
}

type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("config %q not found", e.Name)
}
