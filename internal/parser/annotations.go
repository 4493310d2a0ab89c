package parser

import (
	"errors"
	"strings"

	"github.com/funvibe/annoscene/internal/annotation"
	"github.com/funvibe/annoscene/internal/scene"
	"github.com/funvibe/annoscene/internal/token"
)

// Raw values keep the literal form until definitions are known.
type rawValue interface {
	pos() token.Token
}

type (
	// rawLit is a number, string, char or boolean literal.
	rawLit struct{ tok token.Token }
	// rawName is an enum constant, or NaN and the infinities.
	rawName struct {
		tok  token.Token
		name string
	}
	// rawClass is a class literal; name excludes the ".class" suffix.
	rawClass struct {
		tok  token.Token
		name string
	}
	rawArray struct {
		tok   token.Token
		items []rawValue
	}
	rawAnno struct {
		tok    token.Token
		name   string
		fields []rawField
	}
)

type rawField struct {
	tok   token.Token
	name  string
	value rawValue
}

func (v *rawLit) pos() token.Token   { return v.tok }
func (v *rawName) pos() token.Token  { return v.tok }
func (v *rawClass) pos() token.Token { return v.tok }
func (v *rawArray) pos() token.Token { return v.tok }
func (v *rawAnno) pos() token.Token  { return v.tok }

// rawKind is a field kind whose enum or annotation type may not be defined
// yet.
type rawKind struct {
	tok    token.Token
	tag    annotation.KindTag
	scalar annotation.Kind
	ref    string
	array  bool
}

type pendingField struct {
	tok      token.Token
	name     string
	kind     rawKind
	optional bool // declared "= default"
}

type pendingDef struct {
	tok    token.Token
	name   string
	meta   []*rawAnno
	fields []pendingField
}

// conflictToken locates a definition conflict at the field it names, or at
// the definition itself.
func (d *pendingDef) conflictToken(err error) token.Token {
	var conflict *annotation.DefConflictError
	if errors.As(err, &conflict) {
		for _, f := range d.fields {
			if f.name == conflict.Field {
				return f.tok
			}
		}
	}
	return d.tok
}

// pendingUse is an annotation waiting to be attached to elem.
type pendingUse struct {
	anno *rawAnno
	elem *scene.AElement
}

// parseAnnos reads annotations while the peek token is "@".
func (p *Parser) parseAnnos(elem *scene.AElement) {
	for !p.failed && p.peekTokenIs(token.AT) {
		p.nextToken()
		if a := p.parseAnnotation(); a != nil {
			p.uses = append(p.uses, &pendingUse{anno: a, elem: elem})
		}
	}
}

// parseAnnotation parses "@NAME" with an optional argument list. The current
// token is "@".
func (p *Parser) parseAnnotation() *rawAnno {
	a := &rawAnno{tok: p.curToken}
	name, ok := p.parseDottedName()
	if !ok {
		return nil
	}
	a.name = name
	if !p.peekTokenIs(token.LPAREN) {
		return a
	}
	p.nextToken()
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return a
	}
	p.nextToken()
	// @A(5) is short for @A(value=5).
	if !p.curToken.Type.IsWord() || !p.peekTokenIs(token.ASSIGN) {
		v := p.parseValue()
		if v == nil || !p.expectPeek(token.RPAREN) {
			return nil
		}
		a.fields = []rawField{{tok: v.pos(), name: "value", value: v}}
		return a
	}
	for {
		f := rawField{tok: p.curToken, name: p.curToken.Lexeme}
		if !p.expectPeek(token.ASSIGN) {
			return nil
		}
		p.nextToken()
		if f.value = p.parseValue(); f.value == nil {
			return nil
		}
		a.fields = append(a.fields, f)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		if _, ok := p.expectWord("field name"); !ok {
			return nil
		}
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return a
}

// parseValue parses the value starting at the current token.
func (p *Parser) parseValue() rawValue {
	if p.failed {
		return nil
	}
	switch p.curToken.Type {
	case token.INT, token.FLOAT, token.STRING, token.CHAR, token.TRUE, token.FALSE:
		return &rawLit{tok: p.curToken}
	case token.AT:
		if a := p.parseAnnotation(); a != nil {
			return a
		}
		return nil
	case token.LBRACE:
		return p.parseArray()
	}
	if p.curToken.Type.IsWord() {
		return p.parseNameValue()
	}
	p.report(newUnexpected(p.curToken, "annotation value"))
	return nil
}

func (p *Parser) parseArray() rawValue {
	arr := &rawArray{tok: p.curToken}
	if p.peekTokenIs(token.RBRACE) {
		p.nextToken()
		return arr
	}
	for {
		p.nextToken()
		v := p.parseValue()
		if v == nil {
			return nil
		}
		arr.items = append(arr.items, v)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(token.RBRACE) {
		return nil
	}
	return arr
}

// parseNameValue parses an enum constant ("RUNTIME", "p.E.RUNTIME") or a
// class literal ("java.lang.String.class", "int[].class").
func (p *Parser) parseNameValue() rawValue {
	tok := p.curToken
	parts := []string{tok.Lexeme}
	for p.peekTokenIs(token.DOT) {
		p.nextToken()
		if p.peekTokenIs(token.CLASS) {
			p.nextToken()
			return &rawClass{tok: tok, name: strings.Join(parts, ".")}
		}
		next, ok := p.expectWord("name")
		if !ok {
			return nil
		}
		parts = append(parts, next)
	}
	if p.peekTokenIs(token.BRACKETS) {
		name := strings.Join(parts, ".")
		for p.peekTokenIs(token.BRACKETS) {
			p.nextToken()
			name += "[]"
		}
		if !p.expectPeek(token.DOT) || !p.expectPeek(token.CLASS) {
			return nil
		}
		return &rawClass{tok: tok, name: name}
	}
	return &rawName{tok: tok, name: parts[len(parts)-1]}
}
