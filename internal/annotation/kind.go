package annotation

import "strings"

// KindTag identifies the shape of a field kind.
type KindTag int

const (
	KindUnknown KindTag = iota
	KindBoolean
	KindByte
	KindChar
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindString
	KindClass
	KindEnum
	KindNested
	KindArray
)

// Kind is the declared type of an annotation field. The zero value is the
// unknown kind, which is only meaningful as the element of an empty array.
type Kind struct {
	tag      KindTag
	enumType string
	nested   *AnnotationDef
	elem     *Kind
}

var (
	Unknown = Kind{tag: KindUnknown}
	Boolean = Kind{tag: KindBoolean}
	Byte    = Kind{tag: KindByte}
	Char    = Kind{tag: KindChar}
	Short   = Kind{tag: KindShort}
	Int     = Kind{tag: KindInt}
	Long    = Kind{tag: KindLong}
	Float   = Kind{tag: KindFloat}
	Double  = Kind{tag: KindDouble}
	String  = Kind{tag: KindString}
	Class   = Kind{tag: KindClass}
)

// primitiveNames maps the index-file spelling of scalar kinds to kinds.
var primitiveNames = map[string]Kind{
	"boolean": Boolean,
	"byte":    Byte,
	"char":    Char,
	"short":   Short,
	"int":     Int,
	"long":    Long,
	"float":   Float,
	"double":  Double,
	"String":  String,
	"Class":   Class,
}

// ScalarKind returns the scalar kind spelled name ("int", "String", ...).
func ScalarKind(name string) (Kind, bool) {
	k, ok := primitiveNames[name]
	return k, ok
}

// EnumOf returns the kind of an enum constant of the given type.
func EnumOf(typeName string) Kind {
	return Kind{tag: KindEnum, enumType: typeName}
}

// NestedOf returns the kind of a nested annotation of def.
func NestedOf(def *AnnotationDef) Kind {
	return Kind{tag: KindNested, nested: def}
}

// ArrayOf returns the kind of an array with elements of elem.
func ArrayOf(elem Kind) Kind {
	e := elem
	return Kind{tag: KindArray, elem: &e}
}

func (k Kind) Tag() KindTag { return k.tag }

// EnumType is the enum's type name for KindEnum.
func (k Kind) EnumType() string { return k.enumType }

// Def is the nested annotation's definition for KindNested.
func (k Kind) Def() *AnnotationDef { return k.nested }

// Elem is the element kind of an array kind. It returns Unknown for
// non-array kinds.
func (k Kind) Elem() Kind {
	if k.elem == nil {
		return Unknown
	}
	return *k.elem
}

func (k Kind) IsArray() bool   { return k.tag == KindArray }
func (k Kind) IsUnknown() bool { return k.tag == KindUnknown }

// Equal reports structural equality. Nested kinds compare by definition name.
func (k Kind) Equal(o Kind) bool {
	if k.tag != o.tag {
		return false
	}
	switch k.tag {
	case KindEnum:
		return k.enumType == o.enumType
	case KindNested:
		return defName(k.nested) == defName(o.nested)
	case KindArray:
		return k.Elem().Equal(o.Elem())
	}
	return true
}

// unify returns the kind both k and o can be described by. An array of the
// unknown kind unifies with any array.
func (k Kind) unify(o Kind) (Kind, bool) {
	if k.Equal(o) {
		return k, true
	}
	if k.tag == KindArray && o.tag == KindArray {
		switch {
		case k.Elem().IsUnknown():
			return o, true
		case o.Elem().IsUnknown():
			return k, true
		}
	}
	return Kind{}, false
}

// String spells the kind the way index files declare field types.
func (k Kind) String() string {
	switch k.tag {
	case KindUnknown:
		return "unknown"
	case KindEnum:
		return "enum " + k.enumType
	case KindNested:
		return "annotation-field " + defName(k.nested)
	case KindArray:
		return k.Elem().String() + "[]"
	}
	for name, p := range primitiveNames {
		if p.tag == k.tag {
			return name
		}
	}
	return "?"
}

func defName(d *AnnotationDef) string {
	if d == nil {
		return ""
	}
	return d.Name
}

// ShortName returns the unqualified part of a dotted type name.
func ShortName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
