// Package target describes where a type annotation sits: the target kinds of
// the class-file format, which position fields each kind carries, the
// validator that checks buffered position data against that table, and typed
// per-kind records built from validated data.
package target

import "fmt"

// Kind is a target_type value from JVMS 4.7.20.1, plus Declaration for
// annotations that carry no position data.
type Kind uint8

const (
	ClassTypeParameter                Kind = 0x00
	MethodTypeParameter               Kind = 0x01
	ClassExtends                      Kind = 0x10
	ClassTypeParameterBound           Kind = 0x11
	MethodTypeParameterBound          Kind = 0x12
	Field                             Kind = 0x13
	MethodReturn                      Kind = 0x14
	MethodReceiver                    Kind = 0x15
	MethodFormalParameter             Kind = 0x16
	Throws                            Kind = 0x17
	LocalVariable                     Kind = 0x40
	ResourceVariable                  Kind = 0x41
	ExceptionParameter                Kind = 0x42
	Instanceof                        Kind = 0x43
	New                               Kind = 0x44
	ConstructorReference              Kind = 0x45
	MethodReference                   Kind = 0x46
	Cast                              Kind = 0x47
	ConstructorInvocationTypeArgument Kind = 0x48
	MethodInvocationTypeArgument      Kind = 0x49
	ConstructorReferenceTypeArgument  Kind = 0x4A
	MethodReferenceTypeArgument       Kind = 0x4B

	Declaration Kind = 0xFF
)

var kindNames = map[Kind]string{
	ClassTypeParameter:                "class type parameter",
	MethodTypeParameter:               "method type parameter",
	ClassExtends:                      "class extends",
	ClassTypeParameterBound:           "class type parameter bound",
	MethodTypeParameterBound:          "method type parameter bound",
	Field:                             "field",
	MethodReturn:                      "method return",
	MethodReceiver:                    "method receiver",
	MethodFormalParameter:             "method formal parameter",
	Throws:                            "throws",
	LocalVariable:                     "local variable",
	ResourceVariable:                  "resource variable",
	ExceptionParameter:                "exception parameter",
	Instanceof:                        "instanceof",
	New:                               "new",
	ConstructorReference:              "constructor reference",
	MethodReference:                   "method reference",
	Cast:                              "cast",
	ConstructorInvocationTypeArgument: "constructor invocation type argument",
	MethodInvocationTypeArgument:      "method invocation type argument",
	ConstructorReferenceTypeArgument:  "constructor reference type argument",
	MethodReferenceTypeArgument:       "method reference type argument",
	Declaration:                       "declaration",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("target 0x%02X", uint8(k))
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// Kinds lists every known kind, Declaration last.
func Kinds() []Kind {
	return []Kind{
		ClassTypeParameter, MethodTypeParameter, ClassExtends,
		ClassTypeParameterBound, MethodTypeParameterBound,
		Field, MethodReturn, MethodReceiver, MethodFormalParameter, Throws,
		LocalVariable, ResourceVariable, ExceptionParameter,
		Instanceof, New, ConstructorReference, MethodReference, Cast,
		ConstructorInvocationTypeArgument, MethodInvocationTypeArgument,
		ConstructorReferenceTypeArgument, MethodReferenceTypeArgument,
		Declaration,
	}
}
