package pipeline

import (
	"context"

	"github.com/funvibe/annoscene/internal/diagnostics"
	"github.com/funvibe/annoscene/internal/scene"
	"github.com/funvibe/annoscene/internal/token"
)

// TokenSource yields the tokens of one index file, ending with EOF.
type TokenSource interface {
	NextToken() token.Token
}

// PipelineContext carries one index file through the stages that read or
// write it.
type PipelineContext struct {
	Context     context.Context
	FilePath    string
	SourceCode  string
	TokenStream TokenSource
	Scene       *scene.Scene
	Output      string
	Errors      []*diagnostics.DiagnosticError
}

// NewContext returns a context for the file at path holding src, adding to s.
func NewContext(ctx context.Context, path, src string, s *scene.Scene) *PipelineContext {
	if s == nil {
		s = scene.New()
	}
	return &PipelineContext{Context: ctx, FilePath: path, SourceCode: src, Scene: s}
}

// Err returns the collected errors as one error, or nil.
func (c *PipelineContext) Err() error {
	return diagnostics.List(c.Errors).Err()
}

// Processor is one stage of a pipeline.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline. A stage that reports errors stops it, since
// later stages would see a partial scene.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
		if len(ctx.Errors) > 0 {
			break
		}
	}
	return ctx
}
