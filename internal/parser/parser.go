// Package parser reads index files into a Scene.
//
// Parsing is two-phase. The first phase walks the grammar, vivifying scene
// elements and recording every annotation definition and use with its raw
// values. At end of file the second phase resolves names against the
// definitions seen anywhere in the file, so definitions may follow their
// uses, then converts raw values to the declared field kinds and attaches
// the annotations.
package parser

import (
	"fmt"
	"strconv"

	"github.com/funvibe/annoscene/internal/annotation"
	"github.com/funvibe/annoscene/internal/diagnostics"
	"github.com/funvibe/annoscene/internal/pipeline"
	"github.com/funvibe/annoscene/internal/scene"
	"github.com/funvibe/annoscene/internal/token"
)

type Parser struct {
	stream pipeline.TokenSource
	ctx    *pipeline.PipelineContext
	scene  *scene.Scene

	curToken  token.Token
	peekToken token.Token

	failed bool
	pkg    string // package of the current block

	reg  *annotation.Registry
	defs []*pendingDef
	uses []*pendingUse
}

func New(stream pipeline.TokenSource, ctx *pipeline.PipelineContext) *Parser {
	p := &Parser{stream: stream, ctx: ctx, scene: ctx.Scene, reg: annotation.NewRegistry()}
	if p.scene == nil {
		p.scene = scene.New()
		ctx.Scene = p.scene
	}
	for _, d := range annotation.MetaDefs() {
		_, _ = p.reg.Define(d)
	}
	// peekToken holds the first token; ParseFile expects a package there
	p.nextToken()
	return p
}

// Registry returns the definitions of this parse session.
func (p *Parser) Registry() *annotation.Registry { return p.reg }

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.stream.NextToken()
}

func (p *Parser) curTokenIs(t token.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.TokenType) bool { return p.peekToken.Type == t }

// expectPeek advances when the next token has type t and reports an error
// otherwise.
func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.failed {
		return false
	}
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(string(t))
	return false
}

// expectWord advances over an identifier or keyword used as a name.
func (p *Parser) expectWord(what string) (string, bool) {
	if p.failed {
		return "", false
	}
	if !p.peekToken.Type.IsWord() {
		p.peekError(what)
		return "", false
	}
	p.nextToken()
	return p.curToken.Lexeme, true
}

func (p *Parser) peekError(expected string) {
	p.report(newUnexpected(p.peekToken, expected))
}

func newUnexpected(tok token.Token, expected string) *diagnostics.DiagnosticError {
	return diagnostics.NewError(diagnostics.ErrP001, tok, expected, describe(tok))
}

func describe(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "end of file"
	case token.ILLEGAL:
		return fmt.Sprintf("malformed token %q", tok.Lexeme)
	case token.IDENT, token.INT, token.FLOAT, token.STRING, token.CHAR, token.METHOD_KEY:
		return fmt.Sprintf("%s %q", tok.Type, tok.Lexeme)
	}
	return fmt.Sprintf("%q", tok.Lexeme)
}

// report records err and stops the parse: the grammar has no recovery
// points worth resuming from.
func (p *Parser) report(err *diagnostics.DiagnosticError) {
	if p.failed {
		return
	}
	p.failed = true
	err.File = p.ctx.FilePath
	p.ctx.Errors = append(p.ctx.Errors, err)
}

func (p *Parser) errorf(tok token.Token, format string, args ...any) {
	p.report(diagnostics.NewError(diagnostics.ErrP005, tok, fmt.Sprintf(format, args...)))
}

// expectInt advances over a non-negative integer no larger than max.
func (p *Parser) expectInt(max int) (int, bool) {
	if p.failed {
		return 0, false
	}
	if !p.peekTokenIs(token.INT) {
		p.report(diagnostics.NewError(diagnostics.ErrP002, p.peekToken, describe(p.peekToken)))
		return 0, false
	}
	p.nextToken()
	n, _ := p.curToken.Literal.(int64)
	if n < 0 || n > int64(max) {
		p.report(diagnostics.NewError(diagnostics.ErrP003, p.curToken, strconv.FormatInt(n, 10)))
		return 0, false
	}
	return int(n), true
}

// ParseFile parses the whole token stream into the scene, then resolves
// annotation names and values. Errors go to the pipeline context.
func (p *Parser) ParseFile() {
	for !p.failed && !p.peekTokenIs(token.EOF) {
		if !p.expectPeek(token.PACKAGE) {
			return
		}
		p.parsePackage()
	}
	if !p.failed {
		p.resolve()
	}
}
