package annotation

import (
	"fmt"
	"math"
)

// Value is one annotation field value. The set of implementations is closed:
// every Value knows its own Kind, so callers never inspect a value's dynamic
// Go type to find out what it is.
type Value interface {
	Kind() Kind
	isValue()
}

type (
	BoolValue   bool
	ByteValue   int8
	CharValue   uint16
	ShortValue  int16
	IntValue    int32
	LongValue   int64
	FloatValue  float32
	DoubleValue float64
	StringValue string
)

// ClassValue is a class literal, held as a canonical source type name such
// as "java.lang.String" or "int[]".
type ClassValue string

// EnumValue is an enum constant paired with its declaring type.
type EnumValue struct {
	Type string
	Name string
}

// ArrayValue is an array value. Elem is Unknown only when Items is empty and
// no declared kind was available.
type ArrayValue struct {
	Elem  Kind
	Items []Value
}

func (BoolValue) Kind() Kind   { return Boolean }
func (ByteValue) Kind() Kind   { return Byte }
func (CharValue) Kind() Kind   { return Char }
func (ShortValue) Kind() Kind  { return Short }
func (IntValue) Kind() Kind    { return Int }
func (LongValue) Kind() Kind   { return Long }
func (FloatValue) Kind() Kind  { return Float }
func (DoubleValue) Kind() Kind { return Double }
func (StringValue) Kind() Kind { return String }
func (ClassValue) Kind() Kind  { return Class }
func (e EnumValue) Kind() Kind { return EnumOf(e.Type) }
func (a ArrayValue) Kind() Kind {
	return ArrayOf(a.Elem)
}

func (BoolValue) isValue()   {}
func (ByteValue) isValue()   {}
func (CharValue) isValue()   {}
func (ShortValue) isValue()  {}
func (IntValue) isValue()    {}
func (LongValue) isValue()   {}
func (FloatValue) isValue()  {}
func (DoubleValue) isValue() {}
func (StringValue) isValue() {}
func (ClassValue) isValue()  {}
func (EnumValue) isValue()   {}
func (ArrayValue) isValue()  {}

// ValueOf converts a Go scalar into a Value. It is the only place where a
// dynamic type switch decides a value's kind.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case Value:
		return x, nil
	case bool:
		return BoolValue(x), nil
	case int8:
		return ByteValue(x), nil
	case uint16:
		return CharValue(x), nil
	case int16:
		return ShortValue(x), nil
	case int32:
		return IntValue(x), nil
	case int:
		if x < math.MinInt32 || x > math.MaxInt32 {
			return LongValue(x), nil
		}
		return IntValue(x), nil
	case int64:
		return LongValue(x), nil
	case float32:
		return FloatValue(x), nil
	case float64:
		return DoubleValue(x), nil
	case string:
		return StringValue(x), nil
	}
	return nil, fmt.Errorf("unsupported annotation value type %T", v)
}

// ValuesEqual reports whether two values are structurally equal. Empty arrays
// are equal regardless of element kind, and floats compare by bit pattern.
func ValuesEqual(a, b Value) bool {
	switch x := a.(type) {
	case ArrayValue:
		y, ok := b.(ArrayValue)
		if !ok || len(x.Items) != len(y.Items) {
			return false
		}
		if len(x.Items) > 0 && !x.Elem.Equal(y.Elem) {
			return false
		}
		for i := range x.Items {
			if !ValuesEqual(x.Items[i], y.Items[i]) {
				return false
			}
		}
		return true
	case *Annotation:
		y, ok := b.(*Annotation)
		return ok && x.Equal(y)
	case FloatValue:
		y, ok := b.(FloatValue)
		return ok && math.Float32bits(float32(x)) == math.Float32bits(float32(y))
	case DoubleValue:
		y, ok := b.(DoubleValue)
		return ok && math.Float64bits(float64(x)) == math.Float64bits(float64(y))
	}
	return a == b
}
