// Package react extracts and models the metadata payload embedded in
// Netflix title pages.
package react

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Kind enumerates the variants a Value can hold.
type Kind int

// Value kinds. Missing fields and the embedded-language null sentinel
// both surface as KindNull.
const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is a tagged variant over the JSON-like metadata tree. Accessors
// never panic; missing or mistyped access returns the zero value and
// ok=false.
type Value struct {
	kind   Kind
	boolV  bool
	numV   float64
	intV   int64
	isInt  bool
	strV   string
	items  []Value
	fields map[string]Value
}

// Null returns the absent value.
func Null() Value {
	return Value{kind: KindNull}
}

// Bool wraps a boolean.
func Bool(b bool) Value {
	return Value{kind: KindBool, boolV: b}
}

// Int wraps an integer.
func Int(i int64) Value {
	return Value{kind: KindNumber, numV: float64(i), intV: i, isInt: true}
}

// Float wraps a float, narrowing mathematically integral values to ints.
func Float(f float64) Value {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<53 {
		return Int(int64(f))
	}
	return Value{kind: KindNumber, numV: f}
}

// String wraps a string.
func String(s string) Value {
	return Value{kind: KindString, strV: s}
}

// Array wraps a sequence.
func Array(items ...Value) Value {
	return Value{kind: KindArray, items: items}
}

// Object wraps a mapping. Null members are dropped so that a sanitized
// tree never distinguishes "present but null" from "absent".
func Object(fields map[string]Value) Value {
	kept := make(map[string]Value, len(fields))
	for k, v := range fields {
		if v.kind == KindNull {
			continue
		}
		kept[k] = v
	}
	return Value{kind: KindObject, fields: kept}
}

// EmptyObject returns an object with no fields, the shape returned for
// documents where no metadata could be extracted.
func EmptyObject() Value {
	return Value{kind: KindObject, fields: map[string]Value{}}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether v is the absent value.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// IsEmpty reports whether v carries no metadata: null, an empty object,
// or an empty array.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindObject:
		return len(v.fields) == 0
	case KindArray:
		return len(v.items) == 0
	default:
		return false
	}
}

// Field returns the named member of an object value. Access on non-object
// values or missing keys yields Null and ok=false, never an error.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindObject {
		return Null(), false
	}
	member, ok := v.fields[name]
	if !ok {
		return Null(), false
	}
	return member, true
}

// Index returns the i-th element of an array value.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindArray || i < 0 || i >= len(v.items) {
		return Null(), false
	}
	return v.items[i], true
}

// Len returns the element or member count for arrays and objects.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.items)
	case KindObject:
		return len(v.fields)
	default:
		return 0
	}
}

// Bool returns the boolean payload.
func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.boolV, true
}

// Int returns the integer payload for integral numbers.
func (v Value) Int() (int64, bool) {
	if v.kind != KindNumber || !v.isInt {
		return 0, false
	}
	return v.intV, true
}

// Float returns the numeric payload for any number.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.numV, true
}

// Str returns the string payload.
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.strV, true
}

// StringField is the lenient field accessor used when building Title
// rows: it returns nil for anything that is not a present string.
func (v Value) StringField(name string) *string {
	member, ok := v.Field(name)
	if !ok {
		return nil
	}
	s, ok := member.Str()
	if !ok {
		return nil
	}
	return &s
}

// IntField returns the named member as *int, nil when absent or not an
// integral number.
func (v Value) IntField(name string) *int {
	member, ok := v.Field(name)
	if !ok {
		return nil
	}
	i, ok := member.Int()
	if !ok {
		return nil
	}
	out := int(i)
	return &out
}

// Path descends through nested objects, returning Null and ok=false as
// soon as any segment is missing.
func (v Value) Path(segments ...string) (Value, bool) {
	current := v
	for _, seg := range segments {
		next, ok := current.Field(seg)
		if !ok {
			return Null(), false
		}
		current = next
	}
	return current, true
}

// FromAny sanitizes a decoded JSON tree into a Value: nulls become the
// absent value, integral floats narrow to ints, containers are walked
// recursively, everything else passes through.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case float64:
		return Float(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i)
		}
		f, err := t.Float64()
		if err != nil {
			return Null()
		}
		return Float(f)
	case string:
		return String(t)
	case []any:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			items = append(items, FromAny(item))
		}
		return Array(items...)
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, member := range t {
			fields[k] = FromAny(member)
		}
		return Object(fields)
	default:
		return Null()
	}
}

// Decode parses JSON into a sanitized Value.
func Decode(data []byte) (Value, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Null(), fmt.Errorf("decode metadata: %w", err)
	}
	return FromAny(raw), nil
}

// Interface converts back to the plain Go representation used by
// encoding/json. Object keys marshal in sorted order.
func (v Value) Interface() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.boolV
	case KindNumber:
		if v.isInt {
			return v.intV
		}
		return v.numV
	case KindString:
		return v.strV
	case KindArray:
		out := make([]any, 0, len(v.items))
		for _, item := range v.items {
			out = append(out, item.Interface())
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.fields))
		for k, member := range v.fields {
			out[k] = member.Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON round-trips the sanitized tree.
func (v Value) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(v.Interface())
	if err != nil {
		return nil, fmt.Errorf("marshal metadata value: %w", err)
	}
	return data, nil
}

// UnmarshalJSON decodes and sanitizes in one step.
func (v *Value) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// Keys lists an object's member names in sorted order.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(v.fields))
	for k := range v.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
