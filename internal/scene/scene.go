package scene

import (
	"github.com/funvibe/annoscene/internal/annotation"
)

// Scene is the annotation tree for one unit of work: package-level
// annotations keyed by package name and classes keyed by binary name.
//
// A Scene is filled by one decode pass (or by hand in tests) and must not be
// changed once encoding starts.
type Scene struct {
	Packages *Table[string, *AElement]
	Classes  *Table[string, *AClass]
}

func New() *Scene {
	return &Scene{
		Packages: NewTable[string](NewElement),
		Classes:  NewTable[string](NewClass),
	}
}

func (s *Scene) IsEmpty() bool {
	return tableEmpty(s.Packages, (*AElement).IsEmpty) && tableEmpty(s.Classes, (*AClass).IsEmpty)
}

// Equal reports structural equality. Entries that hold no annotations
// anywhere below them are ignored, as is table order.
func Equal(a, b *Scene) bool {
	return tablesEqual(a.Packages, b.Packages, (*AElement).equal, (*AElement).IsEmpty) &&
		tablesEqual(a.Classes, b.Classes, (*AClass).equal, (*AClass).IsEmpty)
}

// Merge adds every annotation of src to dst. Annotations present in both
// with equal values are kept once; differing ones are a
// *DuplicateAnnotationError, and then dst is left unchanged.
func Merge(dst, src *Scene) error {
	if err := mergeScene(dst, src, true); err != nil {
		return err
	}
	return mergeScene(dst, src, false)
}

func mergeScene(dst, src *Scene, dry bool) error {
	if err := mergeTable(dst.Packages, src.Packages, (*AElement).merge, dry); err != nil {
		return err
	}
	return mergeTable(dst.Classes, src.Classes, (*AClass).merge, dry)
}

// Prune removes entries that carry no annotations.
func (s *Scene) Prune() {
	s.Packages.retain(func(_ string, e *AElement) bool { return !e.IsEmpty() })
	pruneTable(s.Classes, (*AClass).prune, (*AClass).IsEmpty)
}

// CollectDefs gathers the definitions of every annotation in the scene,
// nested annotations and meta-annotations included, and unifies those that
// share a name. The scene's own definitions are not modified.
func CollectDefs(s *Scene) (*annotation.Registry, error) {
	reg := annotation.NewRegistry()
	var visitDef func(d *annotation.AnnotationDef) error
	var visitValue func(v annotation.Value) error
	seen := make(map[*annotation.AnnotationDef]bool)

	var visitAnno func(a *annotation.Annotation) error
	visitAnno = func(a *annotation.Annotation) error {
		if err := visitDef(a.Def); err != nil {
			return err
		}
		for _, name := range a.FieldNames() {
			v, _ := a.Get(name)
			if err := visitValue(v); err != nil {
				return err
			}
		}
		return nil
	}
	visitValue = func(v annotation.Value) error {
		switch x := v.(type) {
		case *annotation.Annotation:
			return visitAnno(x)
		case annotation.ArrayValue:
			for _, it := range x.Items {
				if err := visitValue(it); err != nil {
					return err
				}
			}
		}
		return nil
	}
	visitDef = func(d *annotation.AnnotationDef) error {
		if seen[d] {
			return nil
		}
		seen[d] = true
		for _, name := range d.FieldNames() {
			k, _ := d.Field(name)
			for k.IsArray() {
				k = k.Elem()
			}
			if k.Tag() == annotation.KindNested {
				if err := visitDef(k.Def()); err != nil {
					return err
				}
			}
		}
		for _, m := range d.Meta {
			if err := visitAnno(m); err != nil {
				return err
			}
		}
		if _, err := reg.Define(d.Clone()); err != nil {
			return err
		}
		return nil
	}

	var err error
	Walk(s, func(_ Path, e *AElement) bool {
		for _, a := range e.annotations {
			if err = visitAnno(a); err != nil {
				return false
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func tableEmpty[K comparable, V any](t *Table[K, V], empty func(V) bool) bool {
	for _, v := range t.All() {
		if !empty(v) {
			return false
		}
	}
	return true
}

func tablesEqual[K comparable, V any](a, b *Table[K, V], eq func(V, V) bool, empty func(V) bool) bool {
	for k, av := range a.All() {
		bv, ok := b.Get(k)
		if !ok {
			if !empty(av) {
				return false
			}
			continue
		}
		if !eq(av, bv) {
			return false
		}
	}
	for k, bv := range b.All() {
		if _, ok := a.Get(k); !ok && !empty(bv) {
			return false
		}
	}
	return true
}

// mergeTable merges src into dst entry by entry. A dry run vivifies
// nothing: keys dst lacks cannot conflict.
func mergeTable[K comparable, V any](dst, src *Table[K, V], merge func(V, V, bool) error, dry bool) error {
	for k, v := range src.All() {
		d, ok := dst.Get(k)
		if !ok {
			if dry {
				continue
			}
			d = dst.Vivify(k)
		}
		if err := merge(d, v, dry); err != nil {
			return err
		}
	}
	return nil
}

func pruneTable[K comparable, V any](t *Table[K, V], prune func(V), empty func(V) bool) {
	for _, v := range t.All() {
		prune(v)
	}
	t.retain(func(_ K, v V) bool { return !empty(v) })
}
