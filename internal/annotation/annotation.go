// Package annotation models annotation types and annotation instances: the
// closed set of field kinds, the values those kinds admit, definitions and
// their unification, and the push-style builder the codecs feed.
package annotation

// Annotation is one applied annotation: a definition plus field values in
// the order they were given.
type Annotation struct {
	Def *AnnotationDef

	fieldNames []string
	fields     map[string]Value
}

// New returns an annotation of def with no field values.
func New(def *AnnotationDef) *Annotation {
	return &Annotation{Def: def, fields: make(map[string]Value)}
}

func (a *Annotation) Name() string { return a.Def.Name }

// Kind makes a nested annotation usable as a Value.
func (a *Annotation) Kind() Kind { return NestedOf(a.Def) }

func (a *Annotation) isValue() {}

// Set stores a field value, checking it against the definition.
func (a *Annotation) Set(name string, v Value) error {
	if _, dup := a.fields[name]; dup {
		return &DuplicateFieldError{Annotation: a.Name(), Field: name}
	}
	want, ok := a.Def.Field(name)
	if !ok {
		return &UnknownFieldError{Annotation: a.Name(), Field: name}
	}
	if !fits(want, v) {
		return &KindMismatchError{Annotation: a.Name(), Field: name, Want: want, Got: v.Kind()}
	}
	a.fieldNames = append(a.fieldNames, name)
	a.fields[name] = v
	return nil
}

// Get returns the value of a field.
func (a *Annotation) Get(name string) (Value, bool) {
	v, ok := a.fields[name]
	return v, ok
}

// FieldNames lists the fields that carry values, in the order set.
func (a *Annotation) FieldNames() []string {
	return append([]string(nil), a.fieldNames...)
}

// CheckComplete returns a *MissingFieldError for the first declared field
// without a default that a has no value for.
func (a *Annotation) CheckComplete() error {
	for _, name := range a.Def.fieldNames {
		if _, ok := a.fields[name]; !ok && !a.Def.defaults[name] {
			return &MissingFieldError{Annotation: a.Def.Name, Field: name}
		}
	}
	return nil
}

// Equal compares definition names and field values; field order is ignored.
func (a *Annotation) Equal(b *Annotation) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Name() != b.Name() || len(a.fields) != len(b.fields) {
		return false
	}
	for name, v := range a.fields {
		w, ok := b.fields[name]
		if !ok || !ValuesEqual(v, w) {
			return false
		}
	}
	return true
}

// fits reports whether v may be stored in a field declared as want.
func fits(want Kind, v Value) bool {
	got := v.Kind()
	if want.Equal(got) {
		return true
	}
	if want.IsArray() && got.IsArray() {
		if arr, ok := v.(ArrayValue); ok && len(arr.Items) == 0 {
			return true
		}
		_, ok := want.unify(got)
		return ok
	}
	return false
}
