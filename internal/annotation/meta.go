package annotation

const (
	RetentionName      = "java.lang.annotation.Retention"
	RetentionPolicy    = "java.lang.annotation.RetentionPolicy"
	TargetName         = "java.lang.annotation.Target"
	ElementTypeName    = "java.lang.annotation.ElementType"
	elementTypeUse     = "TYPE_USE"
	elementTypeParam   = "TYPE_PARAMETER"
	retentionRuntime   = "RUNTIME"
	retentionClassOnly = "CLASS"
	retentionSource    = "SOURCE"
)

// Retention says where an annotation type survives.
type Retention int

const (
	RetentionClass Retention = iota
	RetentionRuntime
	RetentionSource
)

func (r Retention) String() string {
	switch r {
	case RetentionRuntime:
		return retentionRuntime
	case RetentionSource:
		return retentionSource
	}
	return retentionClassOnly
}

var (
	retentionDef = func() *AnnotationDef {
		d := NewDef(RetentionName)
		_ = d.AddField("value", EnumOf(RetentionPolicy))
		return d
	}()
	targetDef = func() *AnnotationDef {
		d := NewDef(TargetName)
		_ = d.AddField("value", ArrayOf(EnumOf(ElementTypeName)))
		return d
	}()
)

// RetentionAnnotation builds @Retention(r).
func RetentionAnnotation(r Retention) *Annotation {
	a := New(retentionDef)
	_ = a.Set("value", EnumValue{Type: RetentionPolicy, Name: r.String()})
	return a
}

// TypeUseTarget builds @Target({TYPE_USE}).
func TypeUseTarget() *Annotation {
	a := New(targetDef)
	_ = a.Set("value", ArrayValue{
		Elem:  EnumOf(ElementTypeName),
		Items: []Value{EnumValue{Type: ElementTypeName, Name: elementTypeUse}},
	})
	return a
}

// Retention reads the definition's @Retention meta-annotation. Without one
// the language default, CLASS, applies.
func (d *AnnotationDef) Retention() Retention {
	for _, m := range d.Meta {
		if m.Name() != RetentionName {
			continue
		}
		if v, ok := m.Get("value"); ok {
			if e, ok := v.(EnumValue); ok {
				switch e.Name {
				case retentionRuntime:
					return RetentionRuntime
				case retentionSource:
					return RetentionSource
				}
			}
		}
	}
	return RetentionClass
}

// IsTypeAnnotation reports whether the definition's @Target admits type uses.
func (d *AnnotationDef) IsTypeAnnotation() bool {
	for _, m := range d.Meta {
		if m.Name() != TargetName {
			continue
		}
		v, ok := m.Get("value")
		if !ok {
			continue
		}
		var items []Value
		switch x := v.(type) {
		case ArrayValue:
			items = x.Items
		case EnumValue:
			items = []Value{x}
		}
		for _, it := range items {
			if e, ok := it.(EnumValue); ok && (e.Name == elementTypeUse || e.Name == elementTypeParam) {
				return true
			}
		}
	}
	return false
}

// MetaDefs returns fresh copies of the @Retention and @Target definitions,
// for sessions that must resolve those names before any class declares them.
func MetaDefs() []*AnnotationDef {
	return []*AnnotationDef{retentionDef.Clone(), targetDef.Clone()}
}
