// Package value provides the dynamic value type templates are evaluated
// against.
//
// A Value holds one of a small set of kinds: undefined, nil, booleans,
// numbers (integers and floats are kept apart), strings, sequences and
// maps. Values are built from Go data with FromAny, which understands the
// shapes produced by YAML decoding (map[string]any, []any, time.Time), or
// with the typed constructors:
//
//	ctx := value.FromMap(map[string]value.Value{
//	    "title": value.FromString("Home"),
//	    "tags":  value.FromSlice([]value.Value{value.FromString("go")}),
//	})
//
// Truthiness follows Liquid: only nil, false and undefined are false. Empty
// strings, zero and empty collections are true.
package value

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// ValueKind describes the type of a Value.
type ValueKind int

const (
	// KindUndefined is the kind of a lookup that found nothing.
	KindUndefined ValueKind = iota
	KindNil
	KindBool
	KindNumber
	KindString
	KindSeq
	KindMap
)

func (k ValueKind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSeq:
		return "sequence"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// TimeLayout is how time values from front matter are rendered.
const TimeLayout = "2006-01-02 15:04:05 -0700"

// Value represents a dynamically typed value in the template engine.
//
// The zero Value is undefined.
type Value struct {
	data any
}

// internal marker types for special values
type undefinedType struct{}
type nilType struct{}

// Undefined returns the undefined value.
func Undefined() Value {
	return Value{data: undefinedType{}}
}

// Nil returns the nil value.
func Nil() Value {
	return Value{data: nilType{}}
}

// FromBool creates a Value from a boolean.
func FromBool(v bool) Value {
	return Value{data: v}
}

// FromInt creates a Value from an int64.
func FromInt(v int64) Value {
	return Value{data: v}
}

// FromFloat creates a Value from a float64.
func FromFloat(v float64) Value {
	return Value{data: v}
}

// FromString creates a Value from a string.
func FromString(v string) Value {
	return Value{data: v}
}

// FromSlice creates a sequence Value.
func FromSlice(v []Value) Value {
	if v == nil {
		v = []Value{}
	}
	return Value{data: v}
}

// FromMap creates a map Value.
func FromMap(v map[string]Value) Value {
	if v == nil {
		v = map[string]Value{}
	}
	return Value{data: v}
}

// FromObject wraps a map-like object.
func FromObject(o MapObject) Value {
	return Value{data: o}
}

// FromAny converts a Go value into a Value.
//
// Maps with non-string keys are converted by formatting the key with %v.
// Struct fields honor `json` tags. time.Time values become strings in
// TimeLayout.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Nil()
	case Value:
		return t
	case MapObject:
		return FromObject(t)
	case string:
		return FromString(t)
	case bool:
		return FromBool(t)
	case int:
		return FromInt(int64(t))
	case int64:
		return FromInt(t)
	case float64:
		return FromFloat(t)
	case time.Time:
		return FromString(t.Format(TimeLayout))
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			m[k] = FromAny(item)
		}
		return FromMap(m)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromAny(item)
		}
		return FromSlice(items)
	}
	return fromReflectValue(reflect.ValueOf(v))
}

func fromReflectValue(rv reflect.Value) Value {
	if !rv.IsValid() {
		return Nil()
	}
	if rv.CanInterface() {
		switch iv := rv.Interface().(type) {
		case Value:
			return iv
		case time.Time:
			return FromString(iv.Format(TimeLayout))
		}
	}

	switch rv.Kind() {
	case reflect.Bool:
		return FromBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return FromInt(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return FromInt(int64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return FromFloat(rv.Float())
	case reflect.String:
		return FromString(rv.String())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return FromString(string(rv.Bytes()))
		}
		items := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = fromReflectValue(rv.Index(i))
		}
		return FromSlice(items)
	case reflect.Map:
		m := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key()
			var key string
			if k.Kind() == reflect.String {
				key = k.String()
			} else {
				key = fmt.Sprintf("%v", k.Interface())
			}
			m[key] = fromReflectValue(iter.Value())
		}
		return FromMap(m)
	case reflect.Struct:
		return fromStruct(rv)
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return Nil()
		}
		return fromReflectValue(rv.Elem())
	default:
		return FromString(fmt.Sprintf("%v", rv.Interface()))
	}
}

func fromStruct(rv reflect.Value) Value {
	t := rv.Type()
	m := make(map[string]Value)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag := field.Tag.Get("json"); tag != "" {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		m[name] = fromReflectValue(rv.Field(i))
	}
	return FromMap(m)
}

// Kind returns the kind of value.
func (v Value) Kind() ValueKind {
	switch v.data.(type) {
	case nil, undefinedType:
		return KindUndefined
	case nilType:
		return KindNil
	case bool:
		return KindBool
	case int64, float64:
		return KindNumber
	case string:
		return KindString
	case []Value:
		return KindSeq
	case map[string]Value, MapObject:
		return KindMap
	default:
		return KindUndefined
	}
}

// IsUndefined returns true if the value is undefined.
func (v Value) IsUndefined() bool {
	return v.Kind() == KindUndefined
}

// IsNil returns true for nil and undefined values.
func (v Value) IsNil() bool {
	k := v.Kind()
	return k == KindNil || k == KindUndefined
}

// IsScalar reports whether the value can be interpolated into output.
func (v Value) IsScalar() bool {
	k := v.Kind()
	return k != KindSeq && k != KindMap
}

// IsTrue returns the truthiness of the value.
func (v Value) IsTrue() bool {
	switch d := v.data.(type) {
	case nil, undefinedType, nilType:
		return false
	case bool:
		return d
	default:
		return true
	}
}

// IsEmpty reports whether the value compares equal to the `empty` literal.
func (v Value) IsEmpty() bool {
	switch v.Kind() {
	case KindString, KindSeq, KindMap:
		n, _ := v.Len()
		return n == 0
	default:
		return false
	}
}

// IsBlank reports whether the value compares equal to the `blank` literal.
func (v Value) IsBlank() bool {
	switch d := v.data.(type) {
	case nil, undefinedType, nilType:
		return true
	case bool:
		return !d
	case string:
		return strings.TrimSpace(d) == ""
	default:
		return v.IsEmpty()
	}
}

// IsInt returns true if the value is stored as an integer.
func (v Value) IsInt() bool {
	_, ok := v.data.(int64)
	return ok
}

// IsFloat returns true if the value is stored as a float.
func (v Value) IsFloat() bool {
	_, ok := v.data.(float64)
	return ok
}

// String returns the text a value renders as.
//
// Sequences render as the concatenation of their items and maps as their
// Repr; the evaluator refuses to interpolate either directly.
func (v Value) String() string {
	switch d := v.data.(type) {
	case nil, undefinedType, nilType:
		return ""
	case bool:
		return strconv.FormatBool(d)
	case int64:
		return strconv.FormatInt(d, 10)
	case float64:
		return FormatFloat(d)
	case string:
		return d
	case []Value:
		var sb strings.Builder
		for _, item := range d {
			sb.WriteString(item.String())
		}
		return sb.String()
	default:
		return v.Repr()
	}
}

// Repr returns a debug representation of the value.
func (v Value) Repr() string {
	switch d := v.data.(type) {
	case nil, undefinedType:
		return "undefined"
	case nilType:
		return "nil"
	case string:
		return strconv.Quote(d)
	case []Value:
		parts := make([]string, len(d))
		for i, item := range d {
			parts[i] = item.Repr()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]Value, MapObject:
		keys := v.Keys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%q=>%s", k, v.GetAttr(k).Repr())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return v.String()
	}
}

// FormatFloat renders a float with the shortest representation that
// round-trips, always keeping a fractional part (2.0, not 2).
func FormatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// AsString returns the string if this is a string value.
func (v Value) AsString() (string, bool) {
	s, ok := v.data.(string)
	return s, ok
}

// AsBool returns the boolean if this is a bool value.
func (v Value) AsBool() (bool, bool) {
	b, ok := v.data.(bool)
	return b, ok
}

// AsInt returns the value as an integer. Floats are truncated.
func (v Value) AsInt() (int64, bool) {
	switch d := v.data.(type) {
	case int64:
		return d, true
	case float64:
		return int64(d), true
	}
	if n, ok := v.AsNumber(); ok && n.Kind() == KindNumber {
		return n.AsInt()
	}
	return 0, false
}

// AsFloat returns the value as a float.
func (v Value) AsFloat() (float64, bool) {
	switch d := v.data.(type) {
	case int64:
		return float64(d), true
	case float64:
		return d, true
	}
	if n, ok := v.AsNumber(); ok && n.Kind() == KindNumber {
		return n.AsFloat()
	}
	return 0, false
}

// AsNumber coerces the value to a number the way arithmetic filters do:
// numeric strings are parsed, nil becomes 0.
func (v Value) AsNumber() (Value, bool) {
	switch d := v.data.(type) {
	case int64, float64:
		return v, true
	case nil, undefinedType, nilType:
		return FromInt(0), true
	case string:
		s := strings.TrimSpace(d)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return FromInt(i), true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return FromFloat(f), true
		}
	}
	return Undefined(), false
}

// AsSlice returns the items if this is a sequence.
func (v Value) AsSlice() ([]Value, bool) {
	s, ok := v.data.([]Value)
	return s, ok
}

// AsMap returns the entries if this is a map. Map objects are materialized.
func (v Value) AsMap() (map[string]Value, bool) {
	switch d := v.data.(type) {
	case map[string]Value:
		return d, true
	case MapObject:
		keys := d.Keys()
		m := make(map[string]Value, len(keys))
		for _, k := range keys {
			m[k], _ = d.Lookup(k)
		}
		return m, true
	}
	return nil, false
}

// Len returns the length of strings (in runes), sequences and maps.
func (v Value) Len() (int, bool) {
	switch d := v.data.(type) {
	case string:
		return utf8.RuneCountInString(d), true
	case []Value:
		return len(d), true
	case map[string]Value:
		return len(d), true
	case MapObject:
		return len(d.Keys()), true
	}
	return 0, false
}

// Keys returns the sorted keys of a map value.
func (v Value) Keys() []string {
	var keys []string
	switch d := v.data.(type) {
	case map[string]Value:
		keys = make([]string, 0, len(d))
		for k := range d {
			keys = append(keys, k)
		}
	case MapObject:
		keys = append(keys, d.Keys()...)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the entry for key and whether it exists. Only maps have
// entries.
func (v Value) Lookup(key string) (Value, bool) {
	switch d := v.data.(type) {
	case map[string]Value:
		val, ok := d[key]
		return val, ok
	case MapObject:
		return d.Lookup(key)
	}
	return Undefined(), false
}

// GetAttr looks up a map entry by name.
func (v Value) GetAttr(name string) Value {
	val, _ := v.Lookup(name)
	return val
}

// GetItem looks up a sequence element by index (negative indexes count from
// the end) or a map entry by key.
func (v Value) GetItem(key Value) Value {
	if items, ok := v.AsSlice(); ok {
		idx, ok := key.data.(int64)
		if !ok {
			return Undefined()
		}
		if idx < 0 {
			idx += int64(len(items))
		}
		if idx < 0 || idx >= int64(len(items)) {
			return Undefined()
		}
		return items[idx]
	}
	return v.GetAttr(key.String())
}

// Iter returns the items a `for` loop visits.
//
// Maps yield [key, value] pairs in key order. Strings and other scalars
// yield themselves once; nil and undefined yield nothing.
func (v Value) Iter() []Value {
	switch d := v.data.(type) {
	case nil, undefinedType, nilType:
		return nil
	case []Value:
		return d
	case map[string]Value, MapObject:
		keys := v.Keys()
		pairs := make([]Value, len(keys))
		for i, k := range keys {
			pairs[i] = FromSlice([]Value{FromString(k), v.GetAttr(k)})
		}
		return pairs
	case string:
		if d == "" {
			return nil
		}
		return []Value{v}
	default:
		return []Value{v}
	}
}

// ToNative converts the value back into plain Go data (nil, bool, int64,
// float64, string, []any, map[string]any).
func (v Value) ToNative() any {
	switch d := v.data.(type) {
	case nil, undefinedType, nilType:
		return nil
	case bool, int64, float64, string:
		return d
	case []Value:
		out := make([]any, len(d))
		for i, item := range d {
			out[i] = item.ToNative()
		}
		return out
	default:
		m, ok := v.AsMap()
		if !ok {
			return nil
		}
		out := make(map[string]any, len(m))
		for k, item := range m {
			out[k] = item.ToNative()
		}
		return out
	}
}
