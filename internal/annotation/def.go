package annotation

// AnnotationDef describes an annotation type: its name, its fields in
// declaration order, and the meta-annotations applied to the type itself.
type AnnotationDef struct {
	Name string
	Meta []*Annotation

	// Learned marks a definition inferred from compiled annotations. Its
	// field set is only what those instances carried, since the compiler
	// omits fields left at their default.
	Learned bool

	fieldNames []string
	fields     map[string]Kind
	defaults   map[string]bool
}

// NewDef returns an empty definition named name.
func NewDef(name string) *AnnotationDef {
	return &AnnotationDef{Name: name, fields: make(map[string]Kind)}
}

// AddField declares a field. Declaring the same field twice is an error
// unless both declarations unify.
func (d *AnnotationDef) AddField(name string, k Kind) error {
	if old, ok := d.fields[name]; ok {
		u, ok := old.unify(k)
		if !ok {
			return NewDefConflictError(d.Name, name, old, k)
		}
		d.fields[name] = u
		return nil
	}
	if d.fields == nil {
		d.fields = make(map[string]Kind)
	}
	d.fieldNames = append(d.fieldNames, name)
	d.fields[name] = k
	return nil
}

// SetDefault marks a declared field as having a default, so annotations may
// omit it.
func (d *AnnotationDef) SetDefault(name string) {
	if _, ok := d.fields[name]; !ok {
		return
	}
	if d.defaults == nil {
		d.defaults = make(map[string]bool)
	}
	d.defaults[name] = true
}

// HasDefault reports whether annotations may omit the named field.
func (d *AnnotationDef) HasDefault(name string) bool { return d.defaults[name] }

// Field returns the declared kind of the named field.
func (d *AnnotationDef) Field(name string) (Kind, bool) {
	k, ok := d.fields[name]
	return k, ok
}

// FieldNames lists field names in declaration order.
func (d *AnnotationDef) FieldNames() []string {
	return append([]string(nil), d.fieldNames...)
}

// AddMeta attaches a meta-annotation unless one of the same name is
// already present.
func (d *AnnotationDef) AddMeta(a *Annotation) {
	for _, m := range d.Meta {
		if m.Name() == a.Name() {
			return
		}
	}
	d.Meta = append(d.Meta, a)
}

// Equal reports structural equality of names and field kinds. Field order and
// meta-annotations do not participate.
func (d *AnnotationDef) Equal(o *AnnotationDef) bool {
	if d == o {
		return true
	}
	if d == nil || o == nil || d.Name != o.Name || len(d.fields) != len(o.fields) {
		return false
	}
	for name, k := range d.fields {
		ok2, ok := o.fields[name]
		if !ok || !k.Equal(ok2) {
			return false
		}
	}
	return true
}

// Clone returns a copy that shares nested definitions and meta-annotations.
func (d *AnnotationDef) Clone() *AnnotationDef {
	c := NewDef(d.Name)
	c.Meta = append(c.Meta, d.Meta...)
	c.Learned = d.Learned
	for _, name := range d.fieldNames {
		c.fieldNames = append(c.fieldNames, name)
		c.fields[name] = d.fields[name]
		if d.defaults[name] {
			c.SetDefault(name)
		}
	}
	return c
}

// UnifyWith folds o into d. Declared definitions must have the same fields
// with unifiable kinds. A learned definition may lack fields the other has;
// those become fields with a default. Nothing is changed on error.
func (d *AnnotationDef) UnifyWith(o *AnnotationDef) error {
	if d.Name != o.Name {
		return &DefConflictError{Name: d.Name, Reason: "cannot unify with " + o.Name}
	}
	for _, name := range o.fieldNames {
		k := o.fields[name]
		old, ok := d.fields[name]
		if !ok {
			if !d.Learned {
				return missingFrom(d.Name, name)
			}
			continue
		}
		if _, ok := old.unify(k); !ok {
			return NewDefConflictError(d.Name, name, old, k)
		}
	}
	for _, name := range d.fieldNames {
		if _, ok := o.fields[name]; !ok && !o.Learned {
			return missingFrom(d.Name, name)
		}
	}

	for _, name := range o.fieldNames {
		_, had := d.fields[name]
		_ = d.AddField(name, o.fields[name])
		if !had || o.defaults[name] {
			d.SetDefault(name)
		}
	}
	for _, name := range d.fieldNames {
		if _, ok := o.fields[name]; !ok {
			d.SetDefault(name)
		}
	}
	d.Learned = d.Learned && o.Learned
	for _, m := range o.Meta {
		d.AddMeta(m)
	}
	return nil
}

func missingFrom(name, field string) *DefConflictError {
	return &DefConflictError{Name: name, Field: field, Reason: "field " + field + " is not declared in both"}
}

// Unify returns a new definition describing both a and b.
func Unify(a, b *AnnotationDef) (*AnnotationDef, error) {
	u := a.Clone()
	if err := u.UnifyWith(b); err != nil {
		return nil, err
	}
	return u, nil
}
