// Package prettyprinter writes a Scene as an index file.
package prettyprinter

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/funvibe/annoscene/internal/annotation"
	"github.com/funvibe/annoscene/internal/location"
	"github.com/funvibe/annoscene/internal/scene"
)

// IndexPrinter renders scenes in the index-file format read by the parser.
// Entries come out in the order the binary encoder emits them.
type IndexPrinter struct {
	buf    bytes.Buffer
	indent int
	unit   string
	defs   *annotation.Registry
}

func NewIndexPrinter() *IndexPrinter {
	return NewIndexPrinterWithIndent(4)
}

// NewIndexPrinterWithIndent indents nested entries by width spaces.
func NewIndexPrinterWithIndent(width int) *IndexPrinter {
	if width <= 0 {
		width = 4
	}
	return &IndexPrinter{unit: strings.Repeat(" ", width)}
}

// Print renders s with the default indentation.
func Print(s *scene.Scene) (string, error) {
	p := NewIndexPrinter()
	if err := p.PrintScene(s); err != nil {
		return "", err
	}
	return p.String(), nil
}

func (p *IndexPrinter) String() string {
	return p.buf.String()
}

func (p *IndexPrinter) write(s string) {
	p.buf.WriteString(s)
}

func (p *IndexPrinter) writeln() {
	p.buf.WriteString("\n")
}

func (p *IndexPrinter) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.buf.WriteString(p.unit)
	}
}

// PrintScene appends s to the output. Each package block repeats the
// definitions its annotations need. Definitions that cannot be unified
// across the scene are an error and nothing is written.
func (p *IndexPrinter) PrintScene(s *scene.Scene) error {
	defs, err := scene.CollectDefs(s)
	if err != nil {
		return fmt.Errorf("annotation definitions: %w", err)
	}
	p.defs = defs
	for i, blk := range packageBlocks(s) {
		if i > 0 {
			p.writeln()
		}
		if err := p.printPackage(blk); err != nil {
			return err
		}
	}
	return nil
}

type packageBlock struct {
	name    string
	elem    *scene.AElement
	classes []namedClass
}

type namedClass struct {
	binary string
	class  *scene.AClass
}

// packageBlocks groups non-empty classes by package, in order of first
// appearance.
func packageBlocks(s *scene.Scene) []*packageBlock {
	var out []*packageBlock
	byName := make(map[string]*packageBlock)
	block := func(name string) *packageBlock {
		if b, ok := byName[name]; ok {
			return b
		}
		b := &packageBlock{name: name}
		byName[name] = b
		out = append(out, b)
		return b
	}
	for name, e := range s.Packages.All() {
		if !e.IsEmpty() {
			block(name).elem = e
		}
	}
	for name, c := range s.Classes.All() {
		if c.IsEmpty() {
			continue
		}
		b := block(PackageOf(name))
		b.classes = append(b.classes, namedClass{binary: name, class: c})
	}
	return out
}

// PackageOf returns the package part of a binary class name.
func PackageOf(binary string) string {
	if i := strings.LastIndexByte(binary, '.'); i >= 0 {
		return binary[:i]
	}
	return ""
}

func simpleName(binary string) string {
	return annotation.ShortName(binary)
}

func (p *IndexPrinter) printPackage(blk *packageBlock) error {
	p.write("package " + blk.name + ":")
	if blk.elem != nil {
		p.annotations(blk.elem)
	}
	p.writeln()

	sub := scene.New()
	if blk.elem != nil {
		sub.Packages.Put(blk.name, blk.elem)
	}
	for _, c := range blk.classes {
		sub.Classes.Put(c.binary, c.class)
	}
	local, err := scene.CollectDefs(sub)
	if err != nil {
		return fmt.Errorf("package %s: %w", blk.name, err)
	}
	for _, d := range local.Defs() {
		def, err := p.defs.Lookup(d.Name)
		if err != nil || def == nil {
			def = d
		}
		p.printDef(def)
	}
	for _, c := range blk.classes {
		p.printClass(simpleName(c.binary), c.class)
	}
	return nil
}

func (p *IndexPrinter) printDef(d *annotation.AnnotationDef) {
	p.writeIndent()
	p.write("annotation @" + d.Name + ":")
	for _, m := range d.Meta {
		p.write(" ")
		p.annotation(m)
	}
	p.writeln()
	p.indent++
	for _, name := range d.FieldNames() {
		k, _ := d.Field(name)
		p.writeIndent()
		p.write(k.String() + " " + name)
		if d.HasDefault(name) {
			p.write(" = default")
		}
		p.writeln()
	}
	p.indent--
}

func (p *IndexPrinter) printClass(name string, c *scene.AClass) {
	p.line("class "+name, &c.AElement)
	p.indent++
	defer func() { p.indent-- }()

	p.bounds(c.Bounds)
	for loc, t := range c.Extends.All() {
		if t.IsEmpty() {
			continue
		}
		if loc == location.Extends {
			p.typeElement("extends", t)
		} else {
			p.typeElement(fmt.Sprintf("implements %d", loc.Index), t)
		}
	}
	for name, f := range c.Fields.All() {
		if !f.IsEmpty() {
			p.field("field "+name, f)
		}
	}
	for key, m := range c.Methods.All() {
		if !m.IsEmpty() {
			p.printMethod(key, m)
		}
	}
	for idx, b := range c.StaticInits.All() {
		if b.IsEmpty() {
			continue
		}
		p.writeIndent()
		p.write(fmt.Sprintf("staticinit *%d:", idx))
		p.writeln()
		p.indent++
		p.block(b)
		p.indent--
	}
}

func (p *IndexPrinter) printMethod(key string, m *scene.AMethod) {
	p.line("method "+key, &m.AElement)
	p.indent++
	defer func() { p.indent-- }()

	p.bounds(m.Bounds)
	if !m.Return.IsEmpty() {
		p.typeElement("return", m.Return)
	}
	if !m.Receiver.IsEmpty() {
		p.field("receiver", m.Receiver)
	}
	for i, f := range m.Parameters.All() {
		if !f.IsEmpty() {
			p.field(fmt.Sprintf("parameter #%d", i), f)
		}
	}
	for loc, t := range m.Throws.All() {
		if !t.IsEmpty() {
			p.typeElement(fmt.Sprintf("throws %d", loc.Index), t)
		}
	}
	p.block(m.Body)
}

var exprKeywords = []string{"new", "typecast", "instanceof", "reference", "constructor-reference", "call"}

func (p *IndexPrinter) block(b *scene.ABlock) {
	for loc, f := range b.Locals.All() {
		if !f.IsEmpty() {
			p.field("local "+loc.String(), f)
		}
	}
	for loc, f := range b.Resources.All() {
		if !f.IsEmpty() {
			p.field("resource "+loc.String(), f)
		}
	}
	for idx, t := range b.Catches.All() {
		if !t.IsEmpty() {
			p.typeElement(fmt.Sprintf("catch %d", idx), t)
		}
	}
	tables := []*scene.Table[location.RelativeLocation, *scene.ATypeElement]{
		b.News, b.Typecasts, b.Instanceofs, b.Refs, b.NewRefs, b.Calls,
	}
	for i, tab := range tables {
		for loc, t := range tab.All() {
			if !t.IsEmpty() {
				p.typeElement(exprKeywords[i]+" "+loc.String(), t)
			}
		}
	}
}

func (p *IndexPrinter) bounds(t *scene.Table[location.BoundLocation, *scene.ATypeElement]) {
	for loc, b := range t.All() {
		if b.IsEmpty() {
			continue
		}
		header := fmt.Sprintf("typeparam %d", loc.Param)
		if !loc.IsTypeParameter() {
			header = fmt.Sprintf("bound %d & %d", loc.Param, loc.Bound)
		}
		p.typeElement(header, b)
	}
}

func (p *IndexPrinter) field(header string, f *scene.AField) {
	p.line(header, &f.AElement)
	if f.Type.IsEmpty() {
		return
	}
	p.indent++
	p.typeElement("type", f.Type)
	p.indent--
}

func (p *IndexPrinter) typeElement(header string, t *scene.ATypeElement) {
	p.line(header, &t.AElement)
	p.indent++
	for path, e := range t.InnerTypes.All() {
		if !e.IsEmpty() {
			p.line("inner-type "+path.String(), e)
		}
	}
	p.indent--
}

// line writes "header: @A @B" on its own line.
func (p *IndexPrinter) line(header string, e *scene.AElement) {
	p.writeIndent()
	p.write(header + ":")
	p.annotations(e)
	p.writeln()
}

func (p *IndexPrinter) annotations(e *scene.AElement) {
	for _, a := range e.Annotations() {
		p.write(" ")
		p.annotation(a)
	}
}

func (p *IndexPrinter) annotation(a *annotation.Annotation) {
	p.write("@" + a.Name())
	names := a.FieldNames()
	if len(names) == 0 {
		return
	}
	p.write("(")
	for i, name := range names {
		if i > 0 {
			p.write(", ")
		}
		v, _ := a.Get(name)
		p.write(name + "=")
		p.value(v)
	}
	p.write(")")
}

func (p *IndexPrinter) value(v annotation.Value) {
	switch x := v.(type) {
	case annotation.BoolValue:
		p.write(strconv.FormatBool(bool(x)))
	case annotation.ByteValue:
		p.write(strconv.FormatInt(int64(x), 10))
	case annotation.ShortValue:
		p.write(strconv.FormatInt(int64(x), 10))
	case annotation.IntValue:
		p.write(strconv.FormatInt(int64(x), 10))
	case annotation.LongValue:
		p.write(strconv.FormatInt(int64(x), 10))
	case annotation.CharValue:
		p.write(QuoteChar(rune(x)))
	case annotation.FloatValue:
		p.write(FormatFloat(float64(x), 32))
	case annotation.DoubleValue:
		p.write(FormatFloat(float64(x), 64))
	case annotation.StringValue:
		p.write(QuoteString(string(x)))
	case annotation.ClassValue:
		p.write(string(x) + ".class")
	case annotation.EnumValue:
		p.write(x.Name)
	case *annotation.Annotation:
		p.annotation(x)
	case annotation.ArrayValue:
		p.write("{")
		for i, it := range x.Items {
			if i > 0 {
				p.write(", ")
			}
			p.value(it)
		}
		p.write("}")
	}
}

// FormatFloat spells f so that the lexer reads back the same bits.
func FormatFloat(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, bitSize)
}

// QuoteString writes s as a double-quoted index-file string.
func QuoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		writeEscaped(&b, r, '"')
	}
	b.WriteByte('"')
	return b.String()
}

// QuoteChar writes r as a single-quoted character literal.
func QuoteChar(r rune) string {
	var b strings.Builder
	b.WriteByte('\'')
	writeEscaped(&b, r, '\'')
	b.WriteByte('\'')
	return b.String()
}

func writeEscaped(b *strings.Builder, r rune, quote rune) {
	switch r {
	case quote, '\\':
		b.WriteByte('\\')
		b.WriteRune(r)
	case '\n':
		b.WriteString(`\n`)
	case '\t':
		b.WriteString(`\t`)
	case '\r':
		b.WriteString(`\r`)
	case '\b':
		b.WriteString(`\b`)
	case '\f':
		b.WriteString(`\f`)
	default:
		switch {
		case r > 0xFFFF:
			hi, lo := 0xD800+((r-0x10000)>>10), 0xDC00+((r-0x10000)&0x3FF)
			fmt.Fprintf(b, `\u%04X\u%04X`, hi, lo)
		case r < 0x20 || (0xD800 <= r && r < 0xE000) || !unicode.IsPrint(r):
			fmt.Fprintf(b, `\u%04X`, r)
		default:
			b.WriteRune(r)
		}
	}
}
