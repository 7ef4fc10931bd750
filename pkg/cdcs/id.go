package cdcs

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// IDKind distinguishes the two identifier shapes CDCS servers produce.
type IDKind int

const (
	// IDNone is the kind of the zero ID.
	IDNone IDKind = iota
	// IDString identifiers are emitted by v2 servers ("1", "5f3b...").
	IDString
	// IDInt identifiers are emitted by v3 servers.
	IDInt
)

// ID is a server-assigned entity identifier.
//
// v2 servers key entities by strings and v3 servers by integers. An ID keeps
// the shape it was received in so it can be sent back unchanged, while
// Equal compares by rendered value so "1" and 1 identify the same entity.
type ID struct {
	kind IDKind
	s    string
	n    int64
}

// StringID returns a string-kind identifier.
func StringID(s string) ID {
	if s == "" {
		return ID{}
	}
	return ID{kind: IDString, s: s}
}

// IntID returns an integer-kind identifier.
func IntID(n int64) ID {
	return ID{kind: IDInt, n: n}
}

// MustParseID parses an identifier, panicking on error.
// This is useful for test fixtures where the value is known valid.
func MustParseID(v any) ID {
	id, err := ParseID(v)
	if err != nil {
		panic(fmt.Sprintf("invalid ID %v: %v", v, err))
	}
	return id
}

// ParseID converts a decoded JSON value into an ID.
// Accepts strings, json.Number, float64 with no fractional part, integer
// types and existing IDs. A nil value yields the zero ID.
func ParseID(v any) (ID, error) {
	switch x := v.(type) {
	case nil:
		return ID{}, nil
	case ID:
		return x, nil
	case string:
		return StringID(x), nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return IntID(n), nil
		}
		return ID{}, fmt.Errorf("%w: non-integer numeric id %q", ErrFormat, x.String())
	case float64:
		if x != math.Trunc(x) {
			return ID{}, fmt.Errorf("%w: non-integer numeric id %v", ErrFormat, x)
		}
		return IntID(int64(x)), nil
	case int:
		return IntID(int64(x)), nil
	case int32:
		return IntID(int64(x)), nil
	case int64:
		return IntID(x), nil
	default:
		return ID{}, fmt.Errorf("%w: cannot use %T as an id", ErrType, v)
	}
}

// Kind reports the identifier shape.
func (id ID) Kind() IDKind {
	return id.kind
}

// IsZero returns true for the unset identifier.
func (id ID) IsZero() bool {
	return id.kind == IDNone
}

// String renders the identifier for URLs and form fields.
func (id ID) String() string {
	switch id.kind {
	case IDString:
		return id.s
	case IDInt:
		return strconv.FormatInt(id.n, 10)
	default:
		return ""
	}
}

// Int returns the integer value of the identifier. String identifiers made
// only of digits convert; anything else reports false.
func (id ID) Int() (int64, bool) {
	switch id.kind {
	case IDInt:
		return id.n, true
	case IDString:
		n, err := strconv.ParseInt(strings.TrimSpace(id.s), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// Equal compares two identifiers by rendered value.
func (id ID) Equal(other ID) bool {
	return id.String() == other.String()
}

// MarshalJSON emits a JSON string or number depending on the kind.
func (id ID) MarshalJSON() ([]byte, error) {
	switch id.kind {
	case IDString:
		return json.Marshal(id.s)
	case IDInt:
		return []byte(strconv.FormatInt(id.n, 10)), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("invalid id: %w", err)
	}
	parsed, err := ParseID(v)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MarshalYAML renders the identifier as its natural scalar.
func (id ID) MarshalYAML() (any, error) {
	switch id.kind {
	case IDString:
		return id.s, nil
	case IDInt:
		return id.n, nil
	default:
		return nil, nil
	}
}
