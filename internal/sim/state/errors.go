package state

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMissingField       = errors.New("missing required field")
	ErrUnknownVariant     = errors.New("unknown variant")
	ErrInvalidCombination = errors.New("field not allowed for this entity class")
)

// DecodeError reports why a snapshot could not be decoded. Path is the JSON
// location of the offending value (e.g. "entities[2].role"); Offset is the
// byte offset into the input when the JSON parser knows it.
type DecodeError struct {
	Path   string
	Offset int64
	Err    error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Path != "" && e.Offset > 0:
		return fmt.Sprintf("decode snapshot: %s (offset %d): %v", e.Path, e.Offset, e.Err)
	case e.Path != "":
		return fmt.Sprintf("decode snapshot: %s: %v", e.Path, e.Err)
	case e.Offset > 0:
		return fmt.Sprintf("decode snapshot: offset %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("decode snapshot: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func missing(path string) error {
	return &DecodeError{Path: path, Err: ErrMissingField}
}

func unknownVariant(path, value string) error {
	return &DecodeError{Path: path, Err: fmt.Errorf("%w %q", ErrUnknownVariant, value)}
}

func invalidFor(path string, class EntityClass) error {
	return &DecodeError{Path: path, Err: fmt.Errorf("%w %q", ErrInvalidCombination, class)}
}

// wrapJSON converts encoding/json failures into a DecodeError rooted at prefix.
func wrapJSON(prefix string, err error) error {
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syn):
		return &DecodeError{Path: prefix, Offset: syn.Offset, Err: err}
	case errors.As(err, &typ):
		return &DecodeError{Path: joinPath(prefix, typ.Field), Offset: typ.Offset, Err: err}
	}
	return &DecodeError{Path: prefix, Err: err}
}

func joinPath(prefix, field string) string {
	switch {
	case prefix == "":
		return field
	case field == "":
		return prefix
	}
	return prefix + "." + field
}
