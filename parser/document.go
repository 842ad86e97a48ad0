package parser

import (
	"fmt"
	"strings"
)

// Payload is an untyped JSON object as decoded by encoding/json.
type Payload = map[string]any

// MissingKeyError reports a key absent from a decoded payload.
type MissingKeyError struct {
	Path string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing key %q", e.Path)
}

// TypeError reports a payload value whose JSON type is not the one expected.
type TypeError struct {
	Path string
	Want string
	Got  any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("key %q: expected %s, got %s", e.Path, e.Want, jsonType(e.Got))
}

// Lookup walks keys from doc and returns the value at the end of the path.
func Lookup(doc Payload, keys ...string) (any, error) {
	var current any = doc
	for i, key := range keys {
		obj, ok := current.(Payload)
		if !ok {
			return nil, &TypeError{Path: joinPath(keys[:i]), Want: "object", Got: current}
		}
		value, ok := obj[key]
		if !ok {
			return nil, &MissingKeyError{Path: joinPath(keys[:i+1])}
		}
		current = value
	}
	return current, nil
}

// LookupObject is Lookup for values that must be JSON objects.
func LookupObject(doc Payload, keys ...string) (Payload, error) {
	value, err := Lookup(doc, keys...)
	if err != nil {
		return nil, err
	}
	obj, ok := value.(Payload)
	if !ok {
		return nil, &TypeError{Path: joinPath(keys), Want: "object", Got: value}
	}
	return obj, nil
}

// LookupString is Lookup for values that must be JSON strings.
func LookupString(doc Payload, keys ...string) (string, error) {
	value, err := Lookup(doc, keys...)
	if err != nil {
		return "", err
	}
	s, ok := value.(string)
	if !ok {
		return "", &TypeError{Path: joinPath(keys), Want: "string", Got: value}
	}
	return s, nil
}

// LookupArray is Lookup for values that must be JSON arrays.
func LookupArray(doc Payload, keys ...string) ([]any, error) {
	value, err := Lookup(doc, keys...)
	if err != nil {
		return nil, err
	}
	arr, ok := value.([]any)
	if !ok {
		return nil, &TypeError{Path: joinPath(keys), Want: "array", Got: value}
	}
	return arr, nil
}

// truthy mirrors JSON-ish truthiness: null, false, 0, "" and empty
// containers are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case Payload:
		return len(t) > 0
	default:
		return true
	}
}

func joinPath(keys []string) string {
	if len(keys) == 0 {
		return "$"
	}
	return strings.Join(keys, ".")
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case Payload:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
