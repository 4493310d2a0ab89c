package parser

import (
	"context"
	"fmt"
	"io"

	"github.com/funvibe/annoscene/internal/ctxlog"
	"github.com/funvibe/annoscene/internal/diagnostics"
	"github.com/funvibe/annoscene/internal/lexer"
	"github.com/funvibe/annoscene/internal/pipeline"
	"github.com/funvibe/annoscene/internal/scene"
	"github.com/funvibe/annoscene/internal/token"
)

type ParserProcessor struct{}

func (pp *ParserProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.TokenStream == nil {
		ctx.Errors = append(ctx.Errors, diagnostics.NewError(diagnostics.ErrP000, token.Token{}, "no token stream"))
		return ctx
	}
	p := New(ctx.TokenStream, ctx)
	p.ParseFile()
	if ctx.Context != nil {
		ctxlog.FromContext(ctx.Context).Debug("parsed index file",
			"session", p.reg.Session.String(), "file", ctx.FilePath,
			"uses", len(p.uses), "definitions", len(p.defs), "errors", len(ctx.Errors))
	}
	return ctx
}

// ParseInto reads the index file src, reported as name in errors, and adds
// its annotations to s. A file that fails to parse adds nothing.
func ParseInto(ctx context.Context, s *scene.Scene, name string, src io.Reader) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	pctx := pipeline.NewContext(ctx, name, string(data), scene.New())
	pctx = pipeline.New(&lexer.LexerProcessor{}, &ParserProcessor{}).Run(pctx)
	if err := pctx.Err(); err != nil {
		return err
	}
	if err := scene.Merge(s, pctx.Scene); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
