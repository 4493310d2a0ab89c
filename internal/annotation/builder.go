package annotation

import "fmt"

// Builder assembles one annotation from push-style value calls. A strict
// builder checks every value against a known definition; a learning builder
// starts from an empty definition and declares fields as values arrive,
// which is how annotations read from compiled classes are typed.
type Builder struct {
	def    *AnnotationDef
	strict bool
	ann    *Annotation
	ended  bool

	// finish hands the built annotation to the enclosing builder, if any.
	finish func(*Annotation) error
}

// NewBuilder returns a strict builder for def.
func NewBuilder(def *AnnotationDef) *Builder {
	return &Builder{def: def, strict: true, ann: New(def)}
}

// NewLearningBuilder returns a builder that derives the definition of name
// from the values it is given.
func NewLearningBuilder(name string) *Builder {
	def := NewDef(name)
	def.Learned = true
	return &Builder{def: def, ann: New(def)}
}

// Def is the definition values are checked against or learned into.
func (b *Builder) Def() *AnnotationDef { return b.def }

func (b *Builder) declare(name string, got Kind) (Kind, error) {
	if want, ok := b.def.Field(name); ok {
		return want, nil
	}
	if b.strict {
		return Kind{}, &UnknownFieldError{Annotation: b.def.Name, Field: name}
	}
	if err := b.def.AddField(name, got); err != nil {
		return Kind{}, err
	}
	return got, nil
}

// Scalar sets a non-array, non-annotation field.
func (b *Builder) Scalar(name string, v Value) error {
	if b.ended {
		return fmt.Errorf("@%s: value %s after end", b.def.Name, name)
	}
	if c, ok := v.(ClassValue); ok {
		v = ClassOf(string(c))
	}
	want, err := b.declare(name, v.Kind())
	if err != nil {
		return err
	}
	if !fits(want, v) {
		return &KindMismatchError{Annotation: b.def.Name, Field: name, Want: want, Got: v.Kind()}
	}
	return b.ann.Set(name, v)
}

// Enum sets an enum-valued field.
func (b *Builder) Enum(name, typeName, constant string) error {
	return b.Scalar(name, EnumValue{Type: TypeName(typeName), Name: constant})
}

// Nested opens a builder for an annotation-valued field. typeName may be
// empty for strict builders, in which case the declared type is used.
func (b *Builder) Nested(name, typeName string) (*Builder, error) {
	var child *Builder
	if b.strict {
		want, ok := b.def.Field(name)
		if !ok {
			return nil, &UnknownFieldError{Annotation: b.def.Name, Field: name}
		}
		if want.Tag() != KindNested || (typeName != "" && want.Def().Name != typeName) {
			return nil, &KindMismatchError{Annotation: b.def.Name, Field: name, Want: want, Got: NestedOf(NewDef(typeName))}
		}
		child = NewBuilder(want.Def())
	} else {
		child = NewLearningBuilder(typeName)
	}
	child.finish = func(a *Annotation) error {
		if _, err := b.declare(name, a.Kind()); err != nil {
			return err
		}
		return b.ann.Set(name, a)
	}
	return child, nil
}

// Array opens a builder for an array-valued field.
func (b *Builder) Array(name string) (*ArrayBuilder, error) {
	elem := Unknown
	if want, ok := b.def.Field(name); ok {
		if !want.IsArray() {
			return nil, &KindMismatchError{Annotation: b.def.Name, Field: name, Want: want, Got: ArrayOf(Unknown)}
		}
		elem = want.Elem()
	} else if b.strict {
		return nil, &UnknownFieldError{Annotation: b.def.Name, Field: name}
	}
	return &ArrayBuilder{parent: b, name: name, elem: elem, declared: !elem.IsUnknown()}, nil
}

// End finishes the annotation. A strict builder requires every field
// without a default. For nested builders the result is also stored in the
// enclosing annotation.
func (b *Builder) End() (*Annotation, error) {
	if b.ended {
		return nil, fmt.Errorf("@%s: end called twice", b.def.Name)
	}
	b.ended = true
	if b.strict {
		if err := b.ann.CheckComplete(); err != nil {
			return nil, err
		}
	}
	if b.finish != nil {
		if err := b.finish(b.ann); err != nil {
			return nil, err
		}
	}
	return b.ann, nil
}

// ArrayBuilder collects the elements of one array value. All elements share
// one kind: the declared element kind when known, otherwise the kind of the
// first element.
type ArrayBuilder struct {
	parent   *Builder
	name     string
	elem     Kind
	declared bool
	items    []Value
	ended    bool
}

func (ab *ArrayBuilder) mismatch(got Kind) error {
	return &KindMismatchError{
		Annotation: ab.parent.def.Name,
		Field:      fmt.Sprintf("%s[%d]", ab.name, len(ab.items)),
		Want:       ab.elem,
		Got:        got,
	}
}

func (ab *ArrayBuilder) accept(v Value) error {
	got := v.Kind()
	if ab.elem.IsUnknown() {
		ab.elem = got
	} else if !ab.elem.Equal(got) {
		return ab.mismatch(got)
	}
	ab.items = append(ab.items, v)
	return nil
}

// Scalar appends a scalar element.
func (ab *ArrayBuilder) Scalar(v Value) error {
	if c, ok := v.(ClassValue); ok {
		v = ClassOf(string(c))
	}
	return ab.accept(v)
}

// Enum appends an enum constant.
func (ab *ArrayBuilder) Enum(typeName, constant string) error {
	return ab.accept(EnumValue{Type: TypeName(typeName), Name: constant})
}

// Nested opens a builder for an annotation element. Every annotation
// element of one array must have the same definition.
func (ab *ArrayBuilder) Nested(typeName string) (*Builder, error) {
	var child *Builder
	switch {
	case ab.elem.Tag() == KindNested && ab.declared:
		if typeName != "" && ab.elem.Def().Name != typeName {
			return nil, ab.mismatch(NestedOf(NewDef(typeName)))
		}
		child = NewBuilder(ab.elem.Def())
	case ab.elem.IsUnknown() || ab.elem.Tag() == KindNested:
		child = NewLearningBuilder(typeName)
	default:
		return nil, ab.mismatch(NestedOf(NewDef(typeName)))
	}
	child.finish = func(a *Annotation) error {
		if ab.elem.Tag() == KindNested && !ab.declared {
			// Learned element definitions are folded into the first one.
			if err := ab.elem.Def().UnifyWith(a.Def); err != nil {
				return err
			}
			a.Def = ab.elem.Def()
		}
		return ab.accept(a)
	}
	return child, nil
}

// End stores the array in the parent annotation. An array that saw no
// elements and had no declared kind records the unknown element kind.
func (ab *ArrayBuilder) End() error {
	if ab.ended {
		return fmt.Errorf("@%s.%s: end called twice", ab.parent.def.Name, ab.name)
	}
	ab.ended = true
	v := ArrayValue{Elem: ab.elem, Items: ab.items}
	// Declares the field when learning, and refines a declared unknown[].
	if err := ab.parent.def.AddField(ab.name, v.Kind()); err != nil {
		return err
	}
	return ab.parent.ann.Set(ab.name, v)
}
