package lexer

import (
	"github.com/funvibe/annoscene/internal/diagnostics"
	"github.com/funvibe/annoscene/internal/pipeline"
	"github.com/funvibe/annoscene/internal/token"
)

// TokenStream buffers a whole file of tokens. Malformed tokens are reported
// once, when the stream is built.
type TokenStream struct {
	tokens []token.Token
	pos    int
}

func NewTokenStream(l *Lexer) *TokenStream {
	return &TokenStream{tokens: l.All()}
}

// NextToken returns the next token, repeating EOF at the end.
func (s *TokenStream) NextToken() token.Token {
	tok := s.tokens[s.pos]
	if s.pos < len(s.tokens)-1 {
		s.pos++
	}
	return tok
}

// Illegal returns the malformed tokens of the stream.
func (s *TokenStream) Illegal() []token.Token {
	var out []token.Token
	for _, tok := range s.tokens {
		if tok.Type == token.ILLEGAL {
			out = append(out, tok)
		}
	}
	return out
}

type LexerProcessor struct{}

func (lp *LexerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	stream := NewTokenStream(New(ctx.SourceCode))
	for _, tok := range stream.Illegal() {
		err := diagnostics.NewError(diagnostics.ErrL001, tok, tok.Literal)
		err.File = ctx.FilePath
		ctx.Errors = append(ctx.Errors, err)
	}
	ctx.TokenStream = stream
	return ctx
}
