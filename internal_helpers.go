package liquidpage

import (
	"fmt"

	"github.com/v3gtb/liquidpage/value"
)

// argAt returns the positional argument at i, or undefined when absent.
func argAt(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Undefined()
}

// requireArgs fails unless at least n positional arguments were passed.
func requireArgs(filter string, args []value.Value, n int) error {
	if len(args) < n {
		plural := "s"
		if n == 1 {
			plural = ""
		}
		return NewError(ErrInvalidOperation, fmt.Sprintf("filter '%s' expects %d argument%s, got %d", filter, n, plural, len(args)))
	}
	return nil
}

// intArg returns the positional argument at i as an integer, or def when
// it is absent or nil.
func intArg(filter string, args []value.Value, i int, def int64) (int64, error) {
	arg := argAt(args, i)
	if arg.IsNil() {
		return def, nil
	}
	n, ok := arg.AsInt()
	if !ok {
		return 0, NewError(ErrInvalidOperation, fmt.Sprintf("filter '%s' expects a number, got %s", filter, arg.Repr()))
	}
	return n, nil
}

// stringArg returns the positional argument at i as text, or def when it
// is absent.
func stringArg(args []value.Value, i int, def string) string {
	arg := argAt(args, i)
	if arg.IsUndefined() {
		return def
	}
	return arg.String()
}

// numberOf coerces a filter operand to a number.
func numberOf(filter string, v value.Value) (value.Value, error) {
	n, ok := v.AsNumber()
	if !ok {
		return value.Undefined(), NewError(ErrInvalidOperation, fmt.Sprintf("filter '%s' expects a number, got %s", filter, v.Repr()))
	}
	return n, nil
}

// seqOf returns the items a sequence filter operates on. Non-sequences
// are treated as a one-item sequence; nil as an empty one.
func seqOf(v value.Value) []value.Value {
	if items, ok := v.AsSlice(); ok {
		return items
	}
	if v.IsNil() {
		return nil
	}
	return []value.Value{v}
}

// propertyOf looks up a property of a sequence item, for filters that take
// a property name.
func propertyOf(item value.Value, prop string) value.Value {
	v, ok := attr(item, prop)
	if !ok {
		return value.Nil()
	}
	return v
}
