package parser_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/funvibe/annoscene/internal/annotation"
	"github.com/funvibe/annoscene/internal/diagnostics"
	"github.com/funvibe/annoscene/internal/lexer"
	"github.com/funvibe/annoscene/internal/parser"
	"github.com/funvibe/annoscene/internal/pipeline"
	"github.com/funvibe/annoscene/internal/scene"
)

// parseWithErrors runs the lexer and parser and returns all diagnostic errors.
func parseWithErrors(input string) []*diagnostics.DiagnosticError {
	ctx := &pipeline.PipelineContext{SourceCode: input, FilePath: "in.jaif"}
	ctx = pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}).Run(ctx)
	return ctx.Errors
}

// expectError asserts an error with the given code at line:col.
func expectError(t *testing.T, input string, code diagnostics.ErrorCode, line, col int) *diagnostics.DiagnosticError {
	t.Helper()
	errs := parseWithErrors(input)
	if len(errs) == 0 {
		t.Fatalf("expected error %s, but got none\ninput: %s", code, input)
	}
	for _, e := range errs {
		if e.Code == code {
			if e.Line() != line || e.Column() != col {
				t.Errorf("%s at %d:%d, want %d:%d (%v)", code, e.Line(), e.Column(), line, col, e)
			}
			return e
		}
	}
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	t.Fatalf("expected error %s, got:\n%s\ninput: %s", code, strings.Join(msgs, "\n"), input)
	return nil
}

func expectNoErrors(t *testing.T, input string) {
	t.Helper()
	if errs := parseWithErrors(input); len(errs) > 0 {
		t.Fatalf("expected no errors, got: %v\ninput: %s", diagnostics.List(errs), input)
	}
}

func TestP001_MissingColon(t *testing.T) {
	e := expectError(t, "package p:\nclass C:\n    field f @A\n", diagnostics.ErrP001, 3, 13)
	if !strings.Contains(e.Message, "expected :") || !strings.Contains(e.Message, `"@"`) {
		t.Errorf("message %q should name the expected and found tokens", e.Message)
	}
	if !strings.HasPrefix(e.Error(), "in.jaif:3:13: [P001]") {
		t.Errorf("Error() = %q", e.Error())
	}
}

func TestP001_TopLevelMustBePackage(t *testing.T) {
	e := expectError(t, "class C:\n", diagnostics.ErrP001, 1, 1)
	if !strings.Contains(e.Message, "package") {
		t.Errorf("message %q", e.Message)
	}
}

func TestP001_UnterminatedArguments(t *testing.T) {
	expectError(t, "package p:\nclass C: @A(x=1\n", diagnostics.ErrP001, 3, 1)
}

func TestP002_ExpectedNumber(t *testing.T) {
	expectError(t, "package p:\nclass C:\n    typeparam x: @A\n", diagnostics.ErrP002, 3, 15)
}

func TestP003_OutOfRange(t *testing.T) {
	expectError(t, "package p:\nclass C:\n    typeparam 256: @A\n", diagnostics.ErrP003, 3, 15)
	expectError(t, "package p:\nannotation @p.A:\n    byte b\nclass C: @A(b=300)\n", diagnostics.ErrP003, 4, 15)
}

func TestP004_BadTypePathStep(t *testing.T) {
	expectError(t, "package p:\nclass C:\n    extends: @A\n        inner-type 1, 300: @A\n", diagnostics.ErrP004, 4, 23)
}

func TestP006_UnknownFieldKind(t *testing.T) {
	expectError(t, "package p:\nannotation @p.A:\n    integer x\n", diagnostics.ErrP006, 3, 5)
}

func TestL001_MalformedToken(t *testing.T) {
	expectError(t, "package p:\nclass C: %\n", diagnostics.ErrL001, 2, 10)
}

func TestS001_UndefinedAnnotation(t *testing.T) {
	expectError(t, "package p:\nclass C: @Nope(x=1)\n", diagnostics.ErrS001, 2, 10)
}

func TestS002_AmbiguousShortName(t *testing.T) {
	input := `package a:
annotation @a.N:
package b:
annotation @b.N:
class C: @N
`
	e := expectError(t, input, diagnostics.ErrS002, 5, 10)
	var amb *annotation.AmbiguousNameError
	if !errors.As(e, &amb) {
		t.Fatalf("expected *AmbiguousNameError, got %v", e.Err)
	}
	if len(amb.Candidates) != 2 {
		t.Errorf("candidates = %v", amb.Candidates)
	}
}

func TestS003_ValueDoesNotFit(t *testing.T) {
	def := "package p:\nannotation @p.A:\n    int n\n"
	expectError(t, def+`class C: @A(n="s")`+"\n", diagnostics.ErrS003, 4, 15)
	expectError(t, def+"class C: @A(m=1)\n", diagnostics.ErrS003, 4, 13)
	expectError(t, def+"class C: @A(n=1, n=2)\n", diagnostics.ErrS003, 4, 18)
}

func TestS003_MissingField(t *testing.T) {
	def := "package p:\nannotation @p.A:\n    int n\n    int m = default\n"
	e := expectError(t, def+"class C: @A(m=1)\n", diagnostics.ErrS003, 5, 10)
	var missing *annotation.MissingFieldError
	if !errors.As(e, &missing) || missing.Field != "n" {
		t.Fatalf("expected missing field n, got %v", e.Err)
	}
	expectError(t, def+"class C: @A\n", diagnostics.ErrS003, 5, 10)
	expectNoErrors(t, def+"class C: @A(n=1)\n")
}

func TestS004_DuplicateAnnotation(t *testing.T) {
	e := expectError(t, "package p:\nclass C: @p.M @p.M\n", diagnostics.ErrS004, 2, 15)
	var dup *scene.DuplicateAnnotationError
	if !errors.As(e, &dup) {
		t.Fatalf("expected *DuplicateAnnotationError, got %v", e.Err)
	}
}

func TestS005_ConflictingDefinitions(t *testing.T) {
	input := `package p:
annotation @p.A:
    int x
annotation @p.A:
    String x
`
	e := expectError(t, input, diagnostics.ErrS005, 5, 12)
	var conflict *annotation.DefConflictError
	if !errors.As(e, &conflict) {
		t.Fatalf("expected *DefConflictError, got %v", e.Err)
	}
}

func TestS005_RepeatedDefinitionWithOtherFields(t *testing.T) {
	first := "package p:\nannotation @p.A:\n    int x\n"
	e := expectError(t, first+"annotation @p.A:\n    int x\n    int y\n", diagnostics.ErrS005, 6, 9)
	var conflict *annotation.DefConflictError
	if !errors.As(e, &conflict) || conflict.Field != "y" {
		t.Fatalf("expected a conflict on y, got %v", e.Err)
	}
	expectError(t, "package p:\nannotation @p.A:\n    int x\n    int y\nannotation @p.A:\n    int x\n", diagnostics.ErrS005, 5, 1)
}

func TestRepeatedCompatibleDefinitions(t *testing.T) {
	expectNoErrors(t, `package p:
annotation @p.A:
    unknown[] xs
annotation @p.A:
    int[] xs
class C: @A(xs={1})
`)
}

func TestParseIntoReportsDiagnostics(t *testing.T) {
	err := parser.ParseInto(context.Background(), scene.New(), "f.jaif", strings.NewReader("package p:\nclass C: @A(\n"))
	var diag *diagnostics.DiagnosticError
	if !errors.As(err, &diag) {
		t.Fatalf("expected a diagnostic, got %v", err)
	}
	if diag.File != "f.jaif" {
		t.Errorf("file = %q", diag.File)
	}
}
