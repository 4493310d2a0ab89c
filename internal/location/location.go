// Package location defines the keys that address a position inside a class:
// type-parameter bounds, supertypes, local variables, bytecode-relative
// expressions and paths into nested types. All keys are comparable values and
// may be used directly as map keys.
package location

import (
	"fmt"
)

// BoundLocation addresses a type parameter or one of its bounds.
// Bound == -1 means the type parameter declaration itself.
type BoundLocation struct {
	Param int
	Bound int
}

func Bound(param, bound int) BoundLocation { return BoundLocation{Param: param, Bound: bound} }

// TypeParameter addresses the declaration of type parameter param.
func TypeParameter(param int) BoundLocation { return BoundLocation{Param: param, Bound: -1} }

func (l BoundLocation) IsTypeParameter() bool { return l.Bound < 0 }

func (l BoundLocation) String() string {
	if l.IsTypeParameter() {
		return fmt.Sprintf("typeparam %d", l.Param)
	}
	return fmt.Sprintf("bound %d&%d", l.Param, l.Bound)
}

// TypeIndexLocation addresses an entry of a class's supertype list or a
// method's throws clause. Index -1 is the superclass.
type TypeIndexLocation struct {
	Index int
}

// Extends addresses the superclass.
var Extends = TypeIndexLocation{Index: -1}

func TypeIndex(i int) TypeIndexLocation { return TypeIndexLocation{Index: i} }

// LocalLocation addresses a local variable, either in bytecode terms (slot
// plus live range) or in source terms (name plus occurrence index).
type LocalLocation struct {
	Index       int
	ScopeStart  int
	ScopeLength int
	VarName     string
	VarIndex    int
}

// Local addresses slot index live over [start, start+length).
func Local(index, start, length int) LocalLocation {
	return LocalLocation{Index: index, ScopeStart: start, ScopeLength: length, VarIndex: -1}
}

// NamedLocal addresses the occurrence-th local variable called name.
func NamedLocal(name string, occurrence int) LocalLocation {
	return LocalLocation{Index: -1, ScopeStart: -1, ScopeLength: -1, VarName: name, VarIndex: occurrence}
}

// IsBytecode reports whether l uses the slot and range form.
func (l LocalLocation) IsBytecode() bool { return l.VarName == "" }

func (l LocalLocation) String() string {
	if l.IsBytecode() {
		return fmt.Sprintf("%d #%d+%d", l.Index, l.ScopeStart, l.ScopeLength)
	}
	return fmt.Sprintf("%s *%d", l.VarName, l.VarIndex)
}

// RelativeLocation addresses an expression inside a method body by its
// bytecode offset or by its source index; exactly one of the two is >= 0.
// TypeArg selects a type argument of a call or reference and is -1 when
// absent.
type RelativeLocation struct {
	Offset  int
	Index   int
	TypeArg int
}

// Offset addresses the instruction at bytecode offset off.
func Offset(off int) RelativeLocation { return RelativeLocation{Offset: off, Index: -1, TypeArg: -1} }

// SourceIndex addresses the index-th expression of its kind in source order.
func SourceIndex(i int) RelativeLocation { return RelativeLocation{Offset: -1, Index: i, TypeArg: -1} }

// WithTypeArg returns l addressing type argument arg.
func (l RelativeLocation) WithTypeArg(arg int) RelativeLocation {
	l.TypeArg = arg
	return l
}

func (l RelativeLocation) IsBytecode() bool { return l.Offset >= 0 }

func (l RelativeLocation) String() string {
	var s string
	if l.IsBytecode() {
		s = fmt.Sprintf("#%d", l.Offset)
	} else {
		s = fmt.Sprintf("*%d", l.Index)
	}
	if l.TypeArg >= 0 {
		s += fmt.Sprintf(", %d", l.TypeArg)
	}
	return s
}
