package target

import (
	"fmt"

	"github.com/funvibe/annoscene/internal/location"
)

// PositionSink receives the position data of one type annotation, one call
// per field.
type PositionSink interface {
	TargetType(k Kind)
	Index(v int)
	Length(v int)
	StartOffset(v int)
	Offset(v int)
	TypePathLength(n int)
	TypePathStep(kind, arg int)
	ParamIndex(v int)
	BoundIndex(v int)
	TypeArgIndex(v int)
}

// Target is the validated position of a type annotation. Each implementation
// carries exactly the fields its kinds need.
type Target interface {
	Kind() Kind
	emit(PositionSink)
}

// TypeParameterTarget: class or method type parameter declarations.
type TypeParameterTarget struct {
	K     Kind
	Param int
}

// SupertypeTarget: Index -1 is the superclass, otherwise an interface.
type SupertypeTarget struct {
	Index int
}

// BoundTarget: a bound of a class or method type parameter.
type BoundTarget struct {
	K     Kind
	Param int
	Bound int
}

// EmptyTarget: field, return and receiver types.
type EmptyTarget struct {
	K Kind
}

type FormalParameterTarget struct {
	Param int
}

type ThrowsTarget struct {
	Index int
}

// LocalVarTarget: a local or resource variable in slot Index, live over
// [Start, Start+Length).
type LocalVarTarget struct {
	K      Kind
	Index  int
	Start  int
	Length int
}

// CatchTarget: the exception parameter of exception table entry Index.
type CatchTarget struct {
	Index int
}

// OffsetTarget: instanceof, new and member references at a bytecode offset.
type OffsetTarget struct {
	K      Kind
	Offset int
}

// TypeArgumentTarget: casts and the type arguments of calls and references.
type TypeArgumentTarget struct {
	K       Kind
	Offset  int
	TypeArg int
}

func (t TypeParameterTarget) Kind() Kind   { return t.K }
func (SupertypeTarget) Kind() Kind         { return ClassExtends }
func (t BoundTarget) Kind() Kind           { return t.K }
func (t EmptyTarget) Kind() Kind           { return t.K }
func (FormalParameterTarget) Kind() Kind   { return MethodFormalParameter }
func (ThrowsTarget) Kind() Kind            { return Throws }
func (t LocalVarTarget) Kind() Kind        { return t.K }
func (CatchTarget) Kind() Kind             { return ExceptionParameter }
func (t OffsetTarget) Kind() Kind          { return t.K }
func (t TypeArgumentTarget) Kind() Kind    { return t.K }

func (t TypeParameterTarget) emit(s PositionSink) { s.ParamIndex(t.Param) }
func (t SupertypeTarget) emit(s PositionSink)     { s.Index(t.Index) }
func (t BoundTarget) emit(s PositionSink) {
	s.ParamIndex(t.Param)
	s.BoundIndex(t.Bound)
}
func (EmptyTarget) emit(PositionSink)               {}
func (t FormalParameterTarget) emit(s PositionSink) { s.ParamIndex(t.Param) }
func (t ThrowsTarget) emit(s PositionSink)          { s.Index(t.Index) }
func (t LocalVarTarget) emit(s PositionSink) {
	s.Index(t.Index)
	s.StartOffset(t.Start)
	s.Length(t.Length)
}
func (t CatchTarget) emit(s PositionSink)  { s.Index(t.Index) }
func (t OffsetTarget) emit(s PositionSink) { s.Offset(t.Offset) }
func (t TypeArgumentTarget) emit(s PositionSink) {
	s.Offset(t.Offset)
	s.TypeArgIndex(t.TypeArg)
}

// TypeRef is a target plus the path into the targeted type.
type TypeRef struct {
	Target Target
	Path   location.TypePath
}

// Emit replays ref as position calls on s.
func Emit(ref TypeRef, s PositionSink) {
	s.TargetType(ref.Target.Kind())
	ref.Target.emit(s)
	s.TypePathLength(ref.Path.Len())
	for _, st := range ref.Path.Steps() {
		s.TypePathStep(int(st.Kind), int(st.Arg))
	}
}

// Accumulator buffers position calls that may arrive in any order and
// resolves them once the annotation is complete.
type Accumulator struct {
	kind   Kind
	counts Counts
	nKind  int
	vals   [numFields]int
	steps  [][2]int
}

func (a *Accumulator) set(f PosField, v int) {
	a.counts[f]++
	a.vals[f] = v
}

func (a *Accumulator) TargetType(k Kind) {
	a.nKind++
	a.kind = k
}
func (a *Accumulator) Index(v int)          { a.set(FieldIndex, v) }
func (a *Accumulator) Length(v int)         { a.set(FieldLength, v) }
func (a *Accumulator) StartOffset(v int)    { a.set(FieldStartOffset, v) }
func (a *Accumulator) Offset(v int)         { a.set(FieldOffset, v) }
func (a *Accumulator) TypePathLength(n int) { a.set(FieldTypePathLength, n) }
func (a *Accumulator) ParamIndex(v int)     { a.set(FieldParamIndex, v) }
func (a *Accumulator) BoundIndex(v int)     { a.set(FieldBoundIndex, v) }
func (a *Accumulator) TypeArgIndex(v int)   { a.set(FieldTypeArgIndex, v) }
func (a *Accumulator) TypePathStep(kind, arg int) {
	a.counts[FieldTypePath]++
	a.steps = append(a.steps, [2]int{kind, arg})
}

// Seen reports whether any position call arrived.
func (a *Accumulator) Seen() bool {
	if a.nKind > 0 {
		return true
	}
	for _, n := range a.counts {
		if n > 0 {
			return true
		}
	}
	return false
}

// Counts returns the number of calls seen per field.
func (a *Accumulator) Counts() Counts { return a.counts }

// Resolve validates the buffered data and builds the typed target.
func (a *Accumulator) Resolve() (TypeRef, error) {
	if a.nKind != 1 {
		return TypeRef{}, &ValidationError{Kind: a.kind, Detail: fmt.Sprintf("target type given %d times", a.nKind)}
	}
	if err := Validate(a.kind, a.counts); err != nil {
		return TypeRef{}, err
	}
	if want := a.vals[FieldTypePathLength]; want != len(a.steps) {
		return TypeRef{}, &ValidationError{
			Kind:   a.kind,
			Detail: fmt.Sprintf("type path length %d but %d steps", want, len(a.steps)),
		}
	}
	steps := make([]location.Step, len(a.steps))
	for i, p := range a.steps {
		st, err := location.NewStep(p[0], p[1])
		if err != nil {
			return TypeRef{}, &ValidationError{Kind: a.kind, Detail: err.Error()}
		}
		steps[i] = st
	}
	t, err := a.build()
	if err != nil {
		return TypeRef{}, err
	}
	return TypeRef{Target: t, Path: location.Path(steps...)}, nil
}

func (a *Accumulator) build() (Target, error) {
	v := a.vals
	for f, n := range v {
		if a.counts[f] > 0 && n < 0 && PosField(f) != FieldIndex {
			return nil, &ValidationError{Kind: a.kind, Detail: fmt.Sprintf("negative %s %d", PosField(f), n)}
		}
	}
	switch a.kind {
	case ClassTypeParameter, MethodTypeParameter:
		return TypeParameterTarget{K: a.kind, Param: v[FieldParamIndex]}, nil
	case ClassExtends:
		return SupertypeTarget{Index: v[FieldIndex]}, nil
	case ClassTypeParameterBound, MethodTypeParameterBound:
		return BoundTarget{K: a.kind, Param: v[FieldParamIndex], Bound: v[FieldBoundIndex]}, nil
	case Field, MethodReturn, MethodReceiver:
		return EmptyTarget{K: a.kind}, nil
	case MethodFormalParameter:
		return FormalParameterTarget{Param: v[FieldParamIndex]}, nil
	case Throws:
		return ThrowsTarget{Index: v[FieldIndex]}, nil
	case LocalVariable, ResourceVariable:
		return LocalVarTarget{K: a.kind, Index: v[FieldIndex], Start: v[FieldStartOffset], Length: v[FieldLength]}, nil
	case ExceptionParameter:
		return CatchTarget{Index: v[FieldIndex]}, nil
	case Instanceof, New, ConstructorReference, MethodReference:
		return OffsetTarget{K: a.kind, Offset: v[FieldOffset]}, nil
	case Cast, ConstructorInvocationTypeArgument, MethodInvocationTypeArgument,
		ConstructorReferenceTypeArgument, MethodReferenceTypeArgument:
		return TypeArgumentTarget{K: a.kind, Offset: v[FieldOffset], TypeArg: v[FieldTypeArgIndex]}, nil
	}
	return nil, &ValidationError{Kind: a.kind, Detail: "no position record for kind"}
}
