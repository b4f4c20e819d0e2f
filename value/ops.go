package value

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrDivisionByZero is returned by Div and Mod for a zero integer divisor.
var ErrDivisionByZero = errors.New("divided by 0")

func numericPair(a, b Value) (Value, Value, error) {
	an, ok := a.AsNumber()
	if !ok {
		return Undefined(), Undefined(), fmt.Errorf("%s is not a number", a.Repr())
	}
	bn, ok := b.AsNumber()
	if !ok {
		return Undefined(), Undefined(), fmt.Errorf("%s is not a number", b.Repr())
	}
	return an, bn, nil
}

func bothInts(a, b Value) (int64, int64, bool) {
	ai, aok := a.data.(int64)
	bi, bok := b.data.(int64)
	return ai, bi, aok && bok
}

func floats(a, b Value) (float64, float64) {
	af, _ := a.AsFloat()
	bf, _ := b.AsFloat()
	return af, bf
}

// Add returns v + other. Integers stay integers.
func (v Value) Add(other Value) (Value, error) {
	a, b, err := numericPair(v, other)
	if err != nil {
		return Undefined(), err
	}
	if ai, bi, ok := bothInts(a, b); ok {
		return FromInt(ai + bi), nil
	}
	af, bf := floats(a, b)
	return FromFloat(af + bf), nil
}

// Sub returns v - other.
func (v Value) Sub(other Value) (Value, error) {
	a, b, err := numericPair(v, other)
	if err != nil {
		return Undefined(), err
	}
	if ai, bi, ok := bothInts(a, b); ok {
		return FromInt(ai - bi), nil
	}
	af, bf := floats(a, b)
	return FromFloat(af - bf), nil
}

// Mul returns v * other.
func (v Value) Mul(other Value) (Value, error) {
	a, b, err := numericPair(v, other)
	if err != nil {
		return Undefined(), err
	}
	if ai, bi, ok := bothInts(a, b); ok {
		return FromInt(ai * bi), nil
	}
	af, bf := floats(a, b)
	return FromFloat(af * bf), nil
}

// Div returns v / other. Integer division floors toward negative infinity.
func (v Value) Div(other Value) (Value, error) {
	a, b, err := numericPair(v, other)
	if err != nil {
		return Undefined(), err
	}
	if ai, bi, ok := bothInts(a, b); ok {
		if bi == 0 {
			return Undefined(), ErrDivisionByZero
		}
		return FromInt(floorDiv(ai, bi)), nil
	}
	af, bf := floats(a, b)
	if bf == 0 {
		return Undefined(), ErrDivisionByZero
	}
	return FromFloat(af / bf), nil
}

// Mod returns v modulo other. The result takes the sign of the divisor.
func (v Value) Mod(other Value) (Value, error) {
	a, b, err := numericPair(v, other)
	if err != nil {
		return Undefined(), err
	}
	if ai, bi, ok := bothInts(a, b); ok {
		if bi == 0 {
			return Undefined(), ErrDivisionByZero
		}
		return FromInt(ai - bi*floorDiv(ai, bi)), nil
	}
	af, bf := floats(a, b)
	if bf == 0 {
		return Undefined(), ErrDivisionByZero
	}
	return FromFloat(af - bf*math.Floor(af/bf)), nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Equal compares two values. Integers and floats compare by numeric value;
// values of different kinds are never equal, except that nil and undefined
// are equal to each other.
func (v Value) Equal(other Value) bool {
	if v.IsNil() || other.IsNil() {
		return v.IsNil() && other.IsNil()
	}
	vk := v.Kind()
	if vk != other.Kind() {
		return false
	}
	switch vk {
	case KindBool:
		return v.data.(bool) == other.data.(bool)
	case KindNumber:
		if ai, bi, ok := bothInts(v, other); ok {
			return ai == bi
		}
		af, bf := floats(v, other)
		return af == bf
	case KindString:
		return v.data.(string) == other.data.(string)
	case KindSeq:
		a, _ := v.AsSlice()
		b, _ := other.AsSlice()
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !a[i].Equal(b[i]) {
				return false
			}
		}
		return true
	case KindMap:
		a, _ := v.AsMap()
		b, _ := other.AsMap()
		if len(a) != len(b) {
			return false
		}
		for k, av := range a {
			bv, ok := b[k]
			if !ok || !av.Equal(bv) {
				return false
			}
		}
		return true
	}
	return false
}

// Compare orders two numbers or two strings. ok is false when the values
// cannot be ordered against each other.
func (v Value) Compare(other Value) (int, bool) {
	switch {
	case v.Kind() == KindNumber && other.Kind() == KindNumber:
		if ai, bi, ok := bothInts(v, other); ok {
			return cmp3(ai < bi, ai > bi), true
		}
		af, bf := floats(v, other)
		return cmp3(af < bf, af > bf), true
	case v.Kind() == KindString && other.Kind() == KindString:
		return strings.Compare(v.data.(string), other.data.(string)), true
	}
	return 0, false
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	default:
		return 0
	}
}

// Contains implements the `contains` operator: substring test for strings,
// element test for sequences and key test for maps.
func (v Value) Contains(needle Value) bool {
	switch d := v.data.(type) {
	case string:
		if needle.IsNil() {
			return false
		}
		return strings.Contains(d, needle.String())
	case []Value:
		for _, item := range d {
			if item.Equal(needle) {
				return true
			}
		}
		return false
	case map[string]Value, MapObject:
		_, ok := v.Lookup(needle.String())
		return ok
	}
	return false
}
