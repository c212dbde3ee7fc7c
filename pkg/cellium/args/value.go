// Package args models the argument value passed to cell command handlers.
//
// Inbound argument text is either plain, a JSON object, or a JSON array.
// Decode produces a tagged union so handlers consume one explicit type
// instead of relying on runtime type switches over arbitrary any values.
// Decoding never fails: malformed structured input falls back to the
// original string unchanged.
package args

import (
	"encoding/json"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	// KindString is a plain string argument.
	KindString Kind = iota

	// KindList is an ordered list of values (from a JSON array).
	KindList

	// KindMap is a mapping of string keys to values (from a JSON object).
	KindMap
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is the tagged union of argument shapes. The zero value is the
// empty string.
type Value struct {
	kind Kind
	str  string
	list []Value
	m    map[string]Value
}

// String constructs a string value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// List constructs a list value.
func List(items ...Value) Value {
	return Value{kind: KindList, list: items}
}

// Map constructs a map value.
func Map(m map[string]Value) Value {
	if m == nil {
		m = make(map[string]Value)
	}
	return Value{kind: KindMap, m: m}
}

// Kind returns which variant this value holds.
func (v Value) Kind() Kind {
	return v.kind
}

// Str returns the string content. For non-string values it returns the
// empty string; use Kind to discriminate first.
func (v Value) Str() string {
	return v.str
}

// Items returns the list content, or nil for non-list values.
func (v Value) Items() []Value {
	return v.list
}

// Fields returns the map content, or nil for non-map values.
func (v Value) Fields() map[string]Value {
	return v.m
}

// Get returns the value for key in a map value. The second result is
// false if the value is not a map or the key is absent.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	item, ok := v.m[key]
	return item, ok
}

// GetString returns the string at key, or defaultVal if the value is not
// a map, the key is absent, or the field is not a string.
func (v Value) GetString(key, defaultVal string) string {
	item, ok := v.Get(key)
	if !ok || item.kind != KindString {
		return defaultVal
	}
	return item.str
}

// Len returns the number of elements: list length, map size, or string
// byte length.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.m)
	default:
		return len(v.str)
	}
}

// Interface converts the value to plain Go data: string, []any, or
// map[string]any. Useful for JSON encoding handler results.
func (v Value) Interface() any {
	switch v.kind {
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Interface()
		}
		return out
	default:
		return v.str
	}
}

// Decode parses raw argument text into a Value.
//
// If the trimmed text starts with '{' an object decode is attempted; with
// '[' a list decode. Any decode failure is swallowed and the original
// string is returned unchanged — Decode never reports an error. The
// second result is true when structured decoding was attempted but fell
// back to the plain string.
func Decode(raw string) (Value, bool) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) == 0 {
		return String(raw), false
	}

	switch trimmed[0] {
	case '{':
		var m map[string]any
		if err := json.Unmarshal([]byte(trimmed), &m); err != nil {
			return String(raw), true
		}
		return fromAny(m), false
	case '[':
		var list []any
		if err := json.Unmarshal([]byte(trimmed), &list); err != nil {
			return String(raw), true
		}
		return fromAny(list), false
	default:
		return String(raw), false
	}
}

// fromAny converts decoded JSON data into a Value. Scalars other than
// strings are rendered through their JSON representation so handlers see
// one canonical textual form.
func fromAny(data any) Value {
	switch d := data.(type) {
	case nil:
		return String("")
	case string:
		return String(d)
	case []any:
		items := make([]Value, len(d))
		for i, item := range d {
			items[i] = fromAny(item)
		}
		return Value{kind: KindList, list: items}
	case map[string]any:
		m := make(map[string]Value, len(d))
		for k, item := range d {
			m[k] = fromAny(item)
		}
		return Value{kind: KindMap, m: m}
	default:
		b, err := json.Marshal(d)
		if err != nil {
			return String("")
		}
		return String(string(b))
	}
}
