package parser

import (
	"fmt"
	"math"
	"strconv"

	"github.com/funvibe/annoscene/internal/annotation"
	"github.com/funvibe/annoscene/internal/diagnostics"
	"github.com/funvibe/annoscene/internal/token"
)

// resolve runs once the whole file is read. Definitions are registered
// before any field kind or value is looked at, so a use may precede its
// definition.
func (p *Parser) resolve() {
	defs := make([]*annotation.AnnotationDef, len(p.defs))
	for i, d := range p.defs {
		def, ok := p.reg.Get(d.name)
		if !ok {
			var err error
			if def, err = p.reg.Define(annotation.NewDef(d.name)); err != nil {
				p.report(diagnostics.Wrap(diagnostics.ErrS005, d.tok, err))
				return
			}
		}
		defs[i] = def
	}
	// The first block naming a fresh definition fills it in. Any other block
	// is built on its own and must match what is already declared.
	claimed := make(map[*annotation.AnnotationDef]bool)
	for i, d := range p.defs {
		into := defs[i]
		repeat := claimed[into] || len(into.FieldNames()) > 0
		claimed[into] = true
		if repeat {
			into = annotation.NewDef(d.name)
		}
		for _, f := range d.fields {
			k, ok := p.resolveKind(f.kind)
			if !ok {
				return
			}
			if err := into.AddField(f.name, k); err != nil {
				p.report(diagnostics.Wrap(diagnostics.ErrS005, f.tok, err))
				return
			}
			if f.optional {
				into.SetDefault(f.name)
			}
		}
		if !repeat {
			continue
		}
		if err := defs[i].UnifyWith(into); err != nil {
			p.report(diagnostics.Wrap(diagnostics.ErrS005, d.conflictToken(err), err))
			return
		}
	}
	for i, d := range p.defs {
		for _, m := range d.meta {
			a := p.resolveAnnotation(m)
			if a == nil {
				return
			}
			defs[i].AddMeta(a)
		}
	}
	for _, u := range p.uses {
		a := p.resolveAnnotation(u.anno)
		if a == nil {
			return
		}
		if err := u.elem.Add(a); err != nil {
			p.report(diagnostics.Wrap(diagnostics.ErrS004, u.anno.tok, err))
			return
		}
	}
}

func (p *Parser) resolveKind(k rawKind) (annotation.Kind, bool) {
	var kind annotation.Kind
	switch k.tag {
	case annotation.KindEnum:
		kind = annotation.EnumOf(k.ref)
	case annotation.KindNested:
		def, ok := p.lookupDef(k.tok, k.ref, false)
		if !ok {
			return kind, false
		}
		kind = annotation.NestedOf(def)
	case annotation.KindUnknown:
		kind = annotation.Unknown
	default:
		kind = k.scalar
	}
	if k.array {
		kind = annotation.ArrayOf(kind)
	}
	return kind, true
}

// lookupDef finds the definition called name. An undefined name used as a
// marker, with no arguments, gets an empty definition of its own.
func (p *Parser) lookupDef(tok token.Token, name string, marker bool) (*annotation.AnnotationDef, bool) {
	def, err := p.reg.Lookup(name)
	if err != nil {
		p.report(diagnostics.Wrap(diagnostics.ErrS002, tok, err))
		return nil, false
	}
	if def != nil {
		return def, true
	}
	if !marker {
		p.report(diagnostics.NewError(diagnostics.ErrS001, tok, name))
		return nil, false
	}
	def, _ = p.reg.Define(annotation.NewDef(name))
	return def, true
}

func (p *Parser) resolveAnnotation(r *rawAnno) *annotation.Annotation {
	def, ok := p.lookupDef(r.tok, r.name, len(r.fields) == 0)
	if !ok {
		return nil
	}
	a := annotation.New(def)
	for _, f := range r.fields {
		k, ok := def.Field(f.name)
		if !ok {
			p.report(diagnostics.Wrap(diagnostics.ErrS003, f.tok,
				&annotation.UnknownFieldError{Annotation: def.Name, Field: f.name}))
			return nil
		}
		v := p.convert(f.value, k, "@"+def.Name+"."+f.name)
		if v == nil {
			return nil
		}
		if err := a.Set(f.name, v); err != nil {
			p.report(diagnostics.Wrap(diagnostics.ErrS003, f.tok, err))
			return nil
		}
	}
	if err := a.CheckComplete(); err != nil {
		p.report(diagnostics.Wrap(diagnostics.ErrS003, r.tok, err))
		return nil
	}
	return a
}

// convert turns a raw value into a value of kind k. A single value given
// for an array field becomes a one-element array.
func (p *Parser) convert(v rawValue, k annotation.Kind, where string) annotation.Value {
	switch k.Tag() {
	case annotation.KindArray:
		arr, ok := v.(*rawArray)
		if !ok {
			item := p.convert(v, k.Elem(), where)
			if item == nil {
				return nil
			}
			return annotation.ArrayValue{Elem: k.Elem(), Items: []annotation.Value{item}}
		}
		out := annotation.ArrayValue{Elem: k.Elem()}
		for _, it := range arr.items {
			item := p.convert(it, k.Elem(), where)
			if item == nil {
				return nil
			}
			out.Items = append(out.Items, item)
		}
		return out
	case annotation.KindNested:
		if r, ok := v.(*rawAnno); ok {
			a := p.resolveAnnotation(r)
			if a == nil {
				return nil
			}
			if a.Name() == k.Def().Name {
				return a
			}
		}
	case annotation.KindEnum:
		if n, ok := v.(*rawName); ok {
			return annotation.EnumValue{Type: k.EnumType(), Name: n.name}
		}
	case annotation.KindClass:
		if c, ok := v.(*rawClass); ok {
			return annotation.ClassOf(c.name)
		}
	case annotation.KindString:
		if lit, ok := v.(*rawLit); ok && lit.tok.Type == token.STRING {
			return annotation.StringValue(lit.tok.Literal.(string))
		}
	case annotation.KindBoolean:
		if lit, ok := v.(*rawLit); ok && (lit.tok.Type == token.TRUE || lit.tok.Type == token.FALSE) {
			return annotation.BoolValue(lit.tok.Type == token.TRUE)
		}
	case annotation.KindChar:
		if lit, ok := v.(*rawLit); ok && (lit.tok.Type == token.CHAR || lit.tok.Type == token.INT) {
			if n, ok := p.integer(lit, 0, math.MaxUint16); ok {
				return annotation.CharValue(n)
			}
			return nil
		}
	case annotation.KindByte, annotation.KindShort, annotation.KindInt, annotation.KindLong:
		if lit, ok := v.(*rawLit); ok && lit.tok.Type == token.INT {
			return p.integerValue(lit, k)
		}
	case annotation.KindFloat, annotation.KindDouble:
		if f, ok := p.float(v); ok {
			if k.Tag() == annotation.KindDouble {
				return annotation.DoubleValue(f)
			}
			if !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
				p.report(diagnostics.NewError(diagnostics.ErrP003, v.pos(), v.pos().Lexeme))
				return nil
			}
			return annotation.FloatValue(float32(f))
		}
	}
	p.report(diagnostics.Wrap(diagnostics.ErrS003, v.pos(),
		fmt.Errorf("%s: expected %s, found %s", where, k, describeRaw(v))))
	return nil
}

func (p *Parser) integerValue(lit *rawLit, k annotation.Kind) annotation.Value {
	switch k.Tag() {
	case annotation.KindByte:
		if n, ok := p.integer(lit, math.MinInt8, math.MaxInt8); ok {
			return annotation.ByteValue(n)
		}
	case annotation.KindShort:
		if n, ok := p.integer(lit, math.MinInt16, math.MaxInt16); ok {
			return annotation.ShortValue(n)
		}
	case annotation.KindInt:
		if n, ok := p.integer(lit, math.MinInt32, math.MaxInt32); ok {
			return annotation.IntValue(n)
		}
	default:
		n, _ := lit.tok.Literal.(int64)
		return annotation.LongValue(n)
	}
	return nil
}

func (p *Parser) integer(lit *rawLit, lo, hi int64) (int64, bool) {
	n, _ := lit.tok.Literal.(int64)
	if n < lo || n > hi {
		p.report(diagnostics.NewError(diagnostics.ErrP003, lit.tok, strconv.FormatInt(n, 10)))
		return 0, false
	}
	return n, true
}

func (p *Parser) float(v rawValue) (float64, bool) {
	switch x := v.(type) {
	case *rawLit:
		switch x.tok.Type {
		case token.FLOAT:
			f, _ := x.tok.Literal.(float64)
			return f, true
		case token.INT:
			n, _ := x.tok.Literal.(int64)
			return float64(n), true
		}
	case *rawName:
		switch x.name {
		case "NaN":
			return math.NaN(), true
		case "Infinity":
			return math.Inf(1), true
		case "-Infinity":
			return math.Inf(-1), true
		}
	}
	return 0, false
}

func describeRaw(v rawValue) string {
	switch x := v.(type) {
	case *rawName:
		return x.name
	case *rawClass:
		return x.name + ".class"
	case *rawArray:
		return "an array"
	case *rawAnno:
		return "@" + x.name
	}
	return v.pos().Lexeme
}
