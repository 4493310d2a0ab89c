package annotation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArrayRejectsMixedElementKinds(t *testing.T) {
	b := NewLearningBuilder("p.Bar")
	ab, err := b.Array("xs")
	require.NoError(t, err)
	require.NoError(t, ab.Scalar(IntValue(1)))

	err = ab.Scalar(StringValue("two"))
	var km *KindMismatchError
	require.ErrorAs(t, err, &km)
	require.Equal(t, "xs[1]", km.Field)
}

func TestArrayOfNestedRequiresOneDefinition(t *testing.T) {
	b := NewLearningBuilder("p.Outer")
	ab, err := b.Array("items")
	require.NoError(t, err)

	first, err := ab.Nested("p.Inner")
	require.NoError(t, err)
	require.NoError(t, first.Scalar("v", IntValue(1)))
	_, err = first.End()
	require.NoError(t, err)

	other, err := ab.Nested("p.Other")
	require.NoError(t, err)
	_, err = other.End()
	var conflict *DefConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestEmptyArrayRecordsUnknownKind(t *testing.T) {
	b := NewLearningBuilder("p.Bar")
	ab, err := b.Array("xs")
	require.NoError(t, err)
	require.NoError(t, ab.End())
	a, err := b.End()
	require.NoError(t, err)

	k, ok := a.Def.Field("xs")
	require.True(t, ok)
	require.True(t, k.IsArray())
	require.True(t, k.Elem().IsUnknown())
}

func TestStrictBuilderChecksDeclaredKinds(t *testing.T) {
	def := NewDef("p.Foo")
	require.NoError(t, def.AddField("value", String))
	require.NoError(t, def.AddField("n", Int))

	b := NewBuilder(def)
	require.NoError(t, b.Scalar("value", StringValue("x")))

	var km *KindMismatchError
	require.ErrorAs(t, b.Scalar("n", StringValue("nope")), &km)

	var uf *UnknownFieldError
	require.ErrorAs(t, b.Scalar("missing", IntValue(1)), &uf)

	var dup *DuplicateFieldError
	require.ErrorAs(t, b.Scalar("value", StringValue("again")), &dup)
}

func TestStrictArrayRefinesUnknownDeclaration(t *testing.T) {
	def := NewDef("p.Bar")
	require.NoError(t, def.AddField("xs", ArrayOf(Unknown)))
	b := NewBuilder(def)
	ab, err := b.Array("xs")
	require.NoError(t, err)
	require.NoError(t, ab.Scalar(IntValue(3)))
	require.NoError(t, ab.End())

	k, _ := def.Field("xs")
	require.True(t, k.Equal(ArrayOf(Int)), "got %s", k)
}

func TestClassValuesAreNormalized(t *testing.T) {
	b := NewLearningBuilder("p.Ref")
	require.NoError(t, b.Scalar("type", ClassValue("Ljava/util/List;")))
	require.NoError(t, b.Enum("mode", "Lp/Mode;", "FAST"))
	a, err := b.End()
	require.NoError(t, err)

	v, _ := a.Get("type")
	require.Equal(t, ClassValue("java.util.List"), v)
	e, _ := a.Get("mode")
	require.Equal(t, EnumValue{Type: "p.Mode", Name: "FAST"}, e)
}

func TestUnifyEmptyArrayWithConcrete(t *testing.T) {
	a := NewDef("p.Bar")
	require.NoError(t, a.AddField("xs", ArrayOf(Unknown)))
	b := NewDef("p.Bar")
	require.NoError(t, b.AddField("xs", ArrayOf(Int)))

	for _, pair := range [][2]*AnnotationDef{{a, b}, {b, a}} {
		u, err := Unify(pair[0], pair[1])
		require.NoError(t, err)
		k, _ := u.Field("xs")
		require.True(t, k.Equal(ArrayOf(Int)), "got %s", k)
	}
}

func TestUnifyConflict(t *testing.T) {
	a := NewDef("p.Bar")
	require.NoError(t, a.AddField("xs", ArrayOf(Int)))
	b := NewDef("p.Bar")
	require.NoError(t, b.AddField("xs", ArrayOf(String)))

	_, err := Unify(a, b)
	var conflict *DefConflictError
	require.True(t, errors.As(err, &conflict))
	require.Equal(t, "p.Bar", conflict.Name)
	require.Equal(t, "xs", conflict.Field)
}

func TestUnifyRequiresSameFields(t *testing.T) {
	a := NewDef("p.Bar")
	require.NoError(t, a.AddField("x", Int))
	b := NewDef("p.Bar")
	require.NoError(t, b.AddField("x", Int))
	require.NoError(t, b.AddField("y", Int))

	for _, pair := range [][2]*AnnotationDef{{a, b}, {b, a}} {
		_, err := Unify(pair[0], pair[1])
		var conflict *DefConflictError
		require.ErrorAs(t, err, &conflict)
		require.Equal(t, "y", conflict.Field)
	}

	r := NewRegistry()
	_, err := r.Define(a)
	require.NoError(t, err)
	_, err = r.Define(b)
	var conflict *DefConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, []string{"x"}, a.FieldNames(), "failed unify changed the registered definition")
}

func TestLearnedFieldsGetDefaults(t *testing.T) {
	build := func(field string) *AnnotationDef {
		b := NewLearningBuilder("p.Bar")
		require.NoError(t, b.Scalar(field, IntValue(1)))
		a, err := b.End()
		require.NoError(t, err)
		return a.Def
	}
	u, err := Unify(build("x"), build("y"))
	require.NoError(t, err)
	require.Equal(t, []string{"x", "y"}, u.FieldNames())
	require.True(t, u.HasDefault("x"))
	require.True(t, u.HasDefault("y"))
	require.True(t, u.Learned)

	declared := NewDef("p.Bar")
	require.NoError(t, declared.AddField("x", Int))
	require.NoError(t, declared.AddField("y", Int))
	require.NoError(t, declared.UnifyWith(build("x")))
	require.False(t, declared.HasDefault("x"))
	require.True(t, declared.HasDefault("y"))
	require.False(t, declared.Learned)

	// a learned field the declaration lacks
	for _, pair := range [][2]*AnnotationDef{{build("z"), declared}, {declared, build("z")}} {
		_, err = Unify(pair[0], pair[1])
		var conflict *DefConflictError
		require.ErrorAs(t, err, &conflict)
		require.Equal(t, "z", conflict.Field)
	}
}

func TestStrictBuilderRequiresFieldsWithoutDefault(t *testing.T) {
	def := NewDef("p.Foo")
	require.NoError(t, def.AddField("value", String))
	require.NoError(t, def.AddField("n", Int))
	def.SetDefault("n")

	b := NewBuilder(def)
	require.NoError(t, b.Scalar("n", IntValue(2)))
	_, err := b.End()
	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "value", missing.Field)

	b = NewBuilder(def)
	require.NoError(t, b.Scalar("value", StringValue("v")))
	_, err = b.End()
	require.NoError(t, err)
}

func TestRegistryShortNames(t *testing.T) {
	r := NewRegistry()
	_, err := r.Define(NewDef("a.Nullable"))
	require.NoError(t, err)

	d, err := r.Lookup("Nullable")
	require.NoError(t, err)
	require.Equal(t, "a.Nullable", d.Name)

	_, err = r.Define(NewDef("b.Nullable"))
	require.NoError(t, err)
	_, err = r.Lookup("Nullable")
	var amb *AmbiguousNameError
	require.ErrorAs(t, err, &amb)
	require.Equal(t, []string{"a.Nullable", "b.Nullable"}, amb.Candidates)

	d, err = r.Lookup("b.Nullable")
	require.NoError(t, err)
	require.Equal(t, "b.Nullable", d.Name)
}

func TestRegistriesAreIndependent(t *testing.T) {
	r1, r2 := NewRegistry(), NewRegistry()
	_, err := r1.Define(NewDef("p.Only"))
	require.NoError(t, err)
	d, err := r2.Lookup("p.Only")
	require.NoError(t, err)
	require.Nil(t, d)
	require.NotEqual(t, r1.Session, r2.Session)
}

func TestDescriptorNames(t *testing.T) {
	tests := []struct {
		desc, name string
	}{
		{"I", "int"},
		{"[[J", "long[][]"},
		{"Ljava/lang/String;", "java.lang.String"},
		{"[Lp/Outer$Inner;", "p.Outer$Inner[]"},
	}
	for _, tt := range tests {
		if got := TypeName(tt.desc); got != tt.name {
			t.Errorf("TypeName(%q) = %q, want %q", tt.desc, got, tt.name)
		}
		if got := Descriptor(tt.name); got != tt.desc {
			t.Errorf("Descriptor(%q) = %q, want %q", tt.name, got, tt.desc)
		}
	}
}

func TestMetaAnnotations(t *testing.T) {
	d := NewDef("p.NonNull")
	require.Equal(t, RetentionClass, d.Retention())
	require.False(t, d.IsTypeAnnotation())

	d.AddMeta(RetentionAnnotation(RetentionRuntime))
	d.AddMeta(TypeUseTarget())
	require.Equal(t, RetentionRuntime, d.Retention())
	require.True(t, d.IsTypeAnnotation())
}
