package parser

import (
	"github.com/funvibe/annoscene/internal/diagnostics"
	"github.com/funvibe/annoscene/internal/location"
	"github.com/funvibe/annoscene/internal/token"
)

// parseLocalLocation reads "SLOT #START+LENGTH" or "NAME *OCCURRENCE".
func (p *Parser) parseLocalLocation() (location.LocalLocation, bool) {
	if p.peekTokenIs(token.INT) {
		slot, ok := p.expectInt(maxU16)
		if !ok || !p.expectPeek(token.HASH) {
			return location.LocalLocation{}, false
		}
		start, ok := p.expectInt(maxU16)
		if !ok || !p.expectPeek(token.PLUS) {
			return location.LocalLocation{}, false
		}
		length, ok := p.expectInt(maxU16)
		if !ok {
			return location.LocalLocation{}, false
		}
		return location.Local(slot, start, length), true
	}
	name, ok := p.expectWord("local variable slot or name")
	if !ok || !p.expectPeek(token.ASTERISK) {
		return location.LocalLocation{}, false
	}
	occ, ok := p.expectInt(maxI32)
	if !ok {
		return location.LocalLocation{}, false
	}
	return location.NamedLocal(name, occ), true
}

// parseRelativeLocation reads "#OFFSET" or "*INDEX", optionally followed by
// ", TYPEARG".
func (p *Parser) parseRelativeLocation() (location.RelativeLocation, bool) {
	var loc location.RelativeLocation
	switch {
	case p.peekTokenIs(token.HASH):
		p.nextToken()
		off, ok := p.expectInt(maxU16)
		if !ok {
			return loc, false
		}
		loc = location.Offset(off)
	case p.peekTokenIs(token.ASTERISK):
		p.nextToken()
		i, ok := p.expectInt(maxI32)
		if !ok {
			return loc, false
		}
		loc = location.SourceIndex(i)
	default:
		p.peekError("# or *")
		return loc, false
	}
	if p.peekTokenIs(token.COMMA) {
		p.nextToken()
		arg, ok := p.expectInt(maxU8)
		if !ok {
			return loc, false
		}
		loc = loc.WithTypeArg(arg)
	}
	return loc, true
}

// parseTypePath reads step { "," step }. The current token is "inner-type".
func (p *Parser) parseTypePath() (location.TypePath, bool) {
	var steps []location.Step
	for {
		switch p.peekToken.Type {
		case token.INT, token.BRACKETS, token.DOT, token.ASTERISK:
		default:
			p.peekError("type path step")
			return location.TypePath{}, false
		}
		p.nextToken()
		step, err := location.ParseStep(p.curToken.Lexeme)
		if err != nil {
			p.report(diagnostics.NewError(diagnostics.ErrP004, p.curToken, p.curToken.Lexeme))
			return location.TypePath{}, false
		}
		steps = append(steps, step)
		if !p.peekTokenIs(token.COMMA) {
			return location.Path(steps...), true
		}
		p.nextToken()
	}
}
