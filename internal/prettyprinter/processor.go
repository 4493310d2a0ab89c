package prettyprinter

import (
	"errors"

	"github.com/funvibe/annoscene/internal/annotation"
	"github.com/funvibe/annoscene/internal/diagnostics"
	"github.com/funvibe/annoscene/internal/pipeline"
	"github.com/funvibe/annoscene/internal/token"
)

// PrinterProcessor renders the context's scene into Output.
type PrinterProcessor struct {
	// Indent is the width of one nesting level; zero means the default.
	Indent int
}

func (pp *PrinterProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	p := NewIndexPrinterWithIndent(pp.Indent)
	if err := p.PrintScene(ctx.Scene); err != nil {
		code := diagnostics.ErrP000
		var conflict *annotation.DefConflictError
		if errors.As(err, &conflict) {
			code = diagnostics.ErrS005
		}
		d := diagnostics.Wrap(code, token.Token{}, err)
		d.File = ctx.FilePath
		ctx.Errors = append(ctx.Errors, d)
		return ctx
	}
	ctx.Output = p.String()
	return ctx
}
