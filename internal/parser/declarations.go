package parser

import (
	"strings"

	"github.com/funvibe/annoscene/internal/annotation"
	"github.com/funvibe/annoscene/internal/diagnostics"
	"github.com/funvibe/annoscene/internal/location"
	"github.com/funvibe/annoscene/internal/scene"
	"github.com/funvibe/annoscene/internal/token"
)

const (
	maxU8  = 0xFF
	maxU16 = 0xFFFF
	maxI32 = 1<<31 - 1
)

// parsePackage parses one package block. The current token is "package".
func (p *Parser) parsePackage() {
	p.pkg = ""
	if p.peekToken.Type.IsWord() {
		name, ok := p.parseDottedName()
		if !ok {
			return
		}
		p.pkg = name
	}
	if !p.expectPeek(token.COLON) {
		return
	}
	p.parseAnnos(p.scene.Packages.Vivify(p.pkg))

	for !p.failed {
		switch p.peekToken.Type {
		case token.ANNOTATION:
			p.nextToken()
			p.parseAnnotationDef()
		case token.CLASS:
			p.nextToken()
			p.parseClass()
		default:
			return
		}
	}
}

// parseDottedName reads word { "." word } starting at the peek token.
func (p *Parser) parseDottedName() (string, bool) {
	first, ok := p.expectWord("name")
	if !ok {
		return "", false
	}
	parts := []string{first}
	for p.peekTokenIs(token.DOT) {
		p.nextToken()
		next, ok := p.expectWord("name")
		if !ok {
			return "", false
		}
		parts = append(parts, next)
	}
	return strings.Join(parts, "."), true
}

// parseAnnotationDef parses
//
//	annotation @NAME: meta-annotations { fieldKind fieldName [= default] }
func (p *Parser) parseAnnotationDef() {
	tok := p.curToken
	if !p.expectPeek(token.AT) {
		return
	}
	name, ok := p.parseDottedName()
	if !ok || !p.expectPeek(token.COLON) {
		return
	}
	d := &pendingDef{tok: tok, name: name}
	for !p.failed && p.peekTokenIs(token.AT) {
		p.nextToken()
		if a := p.parseAnnotation(); a != nil {
			d.meta = append(d.meta, a)
		}
	}
	for !p.failed && p.startsFieldKind() {
		k, ok := p.parseFieldKind()
		if !ok {
			return
		}
		field, ok := p.expectWord("field name")
		if !ok {
			return
		}
		f := pendingField{tok: p.curToken, name: field, kind: k}
		if p.peekTokenIs(token.ASSIGN) {
			p.nextToken()
			if !p.peekTokenIs(token.IDENT) || p.peekToken.Lexeme != "default" {
				p.peekError(`"default"`)
				return
			}
			p.nextToken()
			f.optional = true
		}
		d.fields = append(d.fields, f)
	}
	if p.peekTokenIs(token.IDENT) {
		p.report(diagnostics.NewError(diagnostics.ErrP006, p.peekToken, p.peekToken.Lexeme))
		return
	}
	p.defs = append(p.defs, d)
}

func (p *Parser) startsFieldKind() bool {
	switch p.peekToken.Type {
	case token.ENUM, token.ANNOTATION_FIELD, token.UNKNOWN:
		return true
	case token.IDENT:
		_, ok := annotation.ScalarKind(p.peekToken.Lexeme)
		return ok
	}
	return false
}

// parseFieldKind reads a field type such as "int[]", "enum p.E" or
// "annotation-field p.B".
func (p *Parser) parseFieldKind() (rawKind, bool) {
	p.nextToken()
	k := rawKind{tok: p.curToken}
	switch p.curToken.Type {
	case token.ENUM, token.ANNOTATION_FIELD:
		k.tag = annotation.KindEnum
		if p.curTokenIs(token.ANNOTATION_FIELD) {
			k.tag = annotation.KindNested
		}
		name, ok := p.parseDottedName()
		if !ok {
			return k, false
		}
		k.ref = name
	case token.UNKNOWN:
		k.tag = annotation.KindUnknown
	default:
		scalar, _ := annotation.ScalarKind(p.curToken.Lexeme)
		k.tag = scalar.Tag()
		k.scalar = scalar
	}
	if p.peekTokenIs(token.BRACKETS) {
		p.nextToken()
		k.array = true
	}
	if k.tag == annotation.KindUnknown && !k.array {
		p.peekError("[] after unknown")
		return k, false
	}
	return k, true
}

// parseClass parses a class block. The current token is "class".
func (p *Parser) parseClass() {
	name, ok := p.parseDottedName()
	if !ok || !p.expectPeek(token.COLON) {
		return
	}
	if p.pkg != "" {
		name = p.pkg + "." + name
	}
	c := p.scene.Classes.Vivify(name)
	p.parseAnnos(&c.AElement)

	for !p.failed {
		switch p.peekToken.Type {
		case token.TYPEPARAM, token.BOUND:
			p.nextToken()
			p.parseBound(c.Bounds)
		case token.EXTENDS:
			p.nextToken()
			p.parseTypeElement(c.Extends.Vivify(location.Extends))
		case token.IMPLEMENTS:
			p.nextToken()
			if i, ok := p.expectInt(maxU16); ok {
				p.parseTypeElement(c.Extends.Vivify(location.TypeIndex(i)))
			}
		case token.FIELD:
			p.nextToken()
			if name, ok := p.expectWord("field name"); ok {
				p.parseFieldLike(c.Fields.Vivify(name))
			}
		case token.STATICINIT:
			p.nextToken()
			if !p.expectPeek(token.ASTERISK) {
				return
			}
			if i, ok := p.expectInt(maxI32); ok && p.expectPeek(token.COLON) {
				b := c.StaticInits.Vivify(i)
				for !p.failed && p.parseBodyItem(b) {
				}
			}
		case token.METHOD:
			p.nextToken()
			p.parseMethod(c)
		default:
			return
		}
	}
}

// parseBound parses "typeparam N:" or "bound N & M:". The current token is
// the keyword.
func (p *Parser) parseBound(t *scene.Table[location.BoundLocation, *scene.ATypeElement]) {
	isBound := p.curTokenIs(token.BOUND)
	param, ok := p.expectInt(maxU8)
	if !ok {
		return
	}
	loc := location.TypeParameter(param)
	if isBound {
		if !p.expectPeek(token.AMP) {
			return
		}
		b, ok := p.expectInt(maxU8)
		if !ok {
			return
		}
		loc = location.Bound(param, b)
	}
	p.parseTypeElement(t.Vivify(loc))
}

// parseMethod parses a method block. The current token is "method".
func (p *Parser) parseMethod(c *scene.AClass) {
	if !p.expectPeek(token.METHOD_KEY) {
		return
	}
	m := c.Methods.Vivify(p.curToken.Lexeme)
	if !p.expectPeek(token.COLON) {
		return
	}
	p.parseAnnos(&m.AElement)

	for !p.failed {
		switch p.peekToken.Type {
		case token.TYPEPARAM, token.BOUND:
			p.nextToken()
			p.parseBound(m.Bounds)
		case token.RETURN:
			p.nextToken()
			p.parseTypeElement(m.Return)
		case token.RECEIVER:
			p.nextToken()
			p.parseFieldLike(m.Receiver)
		case token.PARAMETER:
			p.nextToken()
			if !p.expectPeek(token.HASH) {
				return
			}
			if i, ok := p.expectInt(maxU8); ok {
				p.parseFieldLike(m.Parameters.Vivify(i))
			}
		case token.THROWS:
			p.nextToken()
			if i, ok := p.expectInt(maxU16); ok {
				p.parseTypeElement(m.Throws.Vivify(location.TypeIndex(i)))
			}
		default:
			if !p.parseBodyItem(m.Body) {
				return
			}
		}
	}
}

// parseBodyItem parses one local, resource, catch or expression entry and
// reports whether the peek token started one.
func (p *Parser) parseBodyItem(b *scene.ABlock) bool {
	switch p.peekToken.Type {
	case token.LOCAL, token.RESOURCE:
		p.nextToken()
		t := b.Locals
		if p.curTokenIs(token.RESOURCE) {
			t = b.Resources
		}
		if loc, ok := p.parseLocalLocation(); ok {
			p.parseFieldLike(t.Vivify(loc))
		}
	case token.CATCH:
		p.nextToken()
		if i, ok := p.expectInt(maxU16); ok {
			p.parseTypeElement(b.Catches.Vivify(i))
		}
	case token.TYPECAST, token.INSTANCEOF, token.NEW, token.REFERENCE, token.CONSTRUCTOR_REF, token.CALL:
		p.nextToken()
		t := exprTable(b, p.curToken.Type)
		if loc, ok := p.parseRelativeLocation(); ok {
			p.parseTypeElement(t.Vivify(loc))
		}
	default:
		return false
	}
	return true
}

func exprTable(b *scene.ABlock, t token.TokenType) *scene.Table[location.RelativeLocation, *scene.ATypeElement] {
	switch t {
	case token.TYPECAST:
		return b.Typecasts
	case token.INSTANCEOF:
		return b.Instanceofs
	case token.NEW:
		return b.News
	case token.REFERENCE:
		return b.Refs
	case token.CONSTRUCTOR_REF:
		return b.NewRefs
	}
	return b.Calls
}

// parseFieldLike parses the declaration annotations of a field, parameter,
// receiver, local or resource, then its optional "type:" block.
func (p *Parser) parseFieldLike(f *scene.AField) {
	if !p.expectPeek(token.COLON) {
		return
	}
	p.parseAnnos(&f.AElement)
	if p.peekTokenIs(token.TYPE) {
		p.nextToken()
		p.parseTypeElement(f.Type)
		return
	}
	p.parseTypeTail(f.Type)
}

// parseTypeElement parses ": annos { inner-type ... }" for a type position.
func (p *Parser) parseTypeElement(t *scene.ATypeElement) {
	if !p.expectPeek(token.COLON) {
		return
	}
	p.parseAnnos(&t.AElement)
	p.parseTypeTail(t)
}

func (p *Parser) parseTypeTail(t *scene.ATypeElement) {
	for !p.failed && p.peekTokenIs(token.INNER_TYPE) {
		p.nextToken()
		path, ok := p.parseTypePath()
		if !ok || !p.expectPeek(token.COLON) {
			return
		}
		p.parseAnnos(t.At(path))
	}
}
