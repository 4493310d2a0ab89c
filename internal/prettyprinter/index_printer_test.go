package prettyprinter

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/annoscene/internal/annotation"
	"github.com/funvibe/annoscene/internal/diagnostics"
	"github.com/funvibe/annoscene/internal/lexer"
	"github.com/funvibe/annoscene/internal/location"
	"github.com/funvibe/annoscene/internal/parser"
	"github.com/funvibe/annoscene/internal/pipeline"
	"github.com/funvibe/annoscene/internal/scene"
)

func withValue(t *testing.T, name, field string, v annotation.Value) *annotation.Annotation {
	t.Helper()
	d := annotation.NewDef(name)
	require.NoError(t, d.AddField(field, v.Kind()))
	a := annotation.New(d)
	require.NoError(t, a.Set(field, v))
	return a
}

func reparse(t *testing.T, text string) *scene.Scene {
	t.Helper()
	s := scene.New()
	require.NoError(t, parser.ParseInto(context.Background(), s, "printed.jaif", strings.NewReader(text)), "printed text:\n%s", text)
	return s
}

func TestPrintLayout(t *testing.T) {
	s := scene.New()
	m := annotation.New(annotation.NewDef("p.M"))
	c := s.Classes.Vivify("p.C")
	require.NoError(t, c.Add(m))
	f := c.Fields.Vivify("f")
	require.NoError(t, f.Add(withValue(t, "p.V", "value", annotation.IntValue(1))))
	require.NoError(t, f.Type.At(location.Args(1, 0)).Add(m))
	s.Classes.Vivify("p.Empty")

	got, err := Print(s)
	require.NoError(t, err)
	want := `package p:
annotation @p.M:
annotation @p.V:
    int value
class C: @p.M
    field f: @p.V(value=1)
        type:
            inner-type 1, 0: @p.M
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("printed text (-want +got):\n%s", diff)
	}
}

func TestPrintIndentWidth(t *testing.T) {
	s := scene.New()
	c := s.Classes.Vivify("C")
	m := c.Methods.Vivify("run()V")
	require.NoError(t, m.Return.Add(annotation.New(annotation.NewDef("T"))))

	p := NewIndexPrinterWithIndent(2)
	require.NoError(t, p.PrintScene(s))
	want := "package :\nannotation @T:\nclass C:\n  method run()V:\n    return: @T\n"
	require.Equal(t, want, p.String())
}

const everyLocation = `package p: @p.Pkg
annotation @p.Foo: @java.lang.annotation.Retention(value=RUNTIME)
    String value = default
    int[] xs = default
    enum p.Color c = default
    annotation-field p.Inner[] inner = default
    Class k = default
    float f = default
    long l = default
annotation @p.Inner:
    char ch
    double d
annotation @p.Pkg:
annotation @p.T: @java.lang.annotation.Target(value={TYPE_USE})
class C: @p.Foo(value="tab\there \"q\" \u00e9 \uD83D\uDE00")
    typeparam 0: @p.T
    bound 0 & 1: @p.T
        inner-type 0, *: @p.T
    extends: @p.T
    implements 1: @p.T
    field f: @p.Foo(xs={1, -2}, c=RED, inner={@p.Inner(ch='\'', d=-Infinity), @p.Inner(ch='\n', d=1.0E-7)})
        type: @p.T
            inner-type 1, 0: @p.T
            inner-type []: @p.T
    method <init>(ILjava/lang/String;)V: @p.Foo(k=java.util.Map$Entry[].class, f=NaN, l=-9223372036854775808)
        return: @p.T
        receiver: @p.T
        parameter #1: @p.Foo(xs={})
            type: @p.T
        throws 0: @p.T
        local 3 #0+15: @p.T
        local x *1:
            type: @p.T
        resource 2 #4+6: @p.T
        catch 0: @p.T
        typecast #4, 1: @p.T
        instanceof *0: @p.T
        new #8:
            inner-type [], .: @p.T
        reference #9: @p.T
        constructor-reference *2, 0: @p.T
        call #12: @p.T
    staticinit *0:
        new #3: @p.T
class C$D: @p.T
package q:
class E:
    field g: @p.T
`

func TestTextRoundTrip(t *testing.T) {
	s := reparse(t, everyLocation)
	text, err := Print(s)
	require.NoError(t, err)
	again := reparse(t, text)
	require.True(t, scene.Equal(s, again), "round trip changed the scene; printed:\n%s", text)

	// printing is stable once normalized
	text2, err := Print(again)
	require.NoError(t, err)
	if diff := cmp.Diff(text, text2); diff != "" {
		t.Errorf("second print differs (-first +second):\n%s", diff)
	}
}

func TestEachPackageCarriesItsDefinitions(t *testing.T) {
	text, err := Print(reparse(t, everyLocation))
	require.NoError(t, err)
	blocks := strings.Split(text, "\npackage ")
	require.Len(t, blocks, 2, "printed:\n%s", text)
	require.Contains(t, blocks[1], "annotation @p.T:")
	require.NotContains(t, blocks[1], "annotation @p.Foo:")
	require.Equal(t, 1, strings.Count(blocks[0], "annotation @p.Inner:"))
}

func TestLearnedFieldsPrintWithDefault(t *testing.T) {
	learned := func(field string) *annotation.Annotation {
		b := annotation.NewLearningBuilder("p.A")
		require.NoError(t, b.Scalar(field, annotation.IntValue(1)))
		a, err := b.End()
		require.NoError(t, err)
		return a
	}
	s := scene.New()
	c := s.Classes.Vivify("p.C")
	require.NoError(t, c.Add(learned("x")))
	require.NoError(t, c.Fields.Vivify("f").Add(learned("y")))

	text, err := Print(s)
	require.NoError(t, err)
	require.Contains(t, text, "    int x = default\n    int y = default\n")
	require.True(t, scene.Equal(s, reparse(t, text)), "printed:\n%s", text)
}

func TestPrintFailsOnConflictingDefinitions(t *testing.T) {
	s := scene.New()
	c := s.Classes.Vivify("p.C")
	require.NoError(t, c.Add(withValue(t, "p.A", "x", annotation.IntValue(1))))
	require.NoError(t, c.Fields.Vivify("f").Add(withValue(t, "p.A", "x", annotation.StringValue("s"))))

	_, err := Print(s)
	var conflict *annotation.DefConflictError
	require.True(t, errors.As(err, &conflict), "expected a definition conflict, got %v", err)
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		f       float64
		bitSize int
		want    string
	}{
		{math.NaN(), 64, "NaN"},
		{math.Inf(1), 32, "Infinity"},
		{math.Inf(-1), 64, "-Infinity"},
		{1, 64, "1"},
		{float64(float32(0.1)), 32, "0.1"},
		{1e21, 64, "1e+21"},
	}
	for _, tt := range tests {
		if got := FormatFloat(tt.f, tt.bitSize); got != tt.want {
			t.Errorf("FormatFloat(%v, %d) = %q, want %q", tt.f, tt.bitSize, got, tt.want)
		}
	}
}

func TestQuote(t *testing.T) {
	require.Equal(t, `"a\"b\\c\n\u0001é"`, QuoteString("a\"b\\c\n\x01é"))
	require.Equal(t, `"\uD83D\uDE00"`, QuoteString("😀"))
	require.Equal(t, `'\''`, QuoteChar('\''))
	require.Equal(t, `'"'`, QuoteChar('"'))
	require.Equal(t, `'\uD800'`, QuoteChar(0xD800))
}

func TestPrinterProcessorFormatsFile(t *testing.T) {
	src := "package p:\nclass C: @p.M\n  field f:   @p.M\n"
	pctx := pipeline.NewContext(context.Background(), "in.jaif", src, nil)
	pctx = pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}, &PrinterProcessor{Indent: 2}).Run(pctx)
	require.NoError(t, pctx.Err())
	require.Equal(t, "package p:\nannotation @p.M:\nclass C: @p.M\n  field f: @p.M\n", pctx.Output)
}

func TestPrinterProcessorReportsConflicts(t *testing.T) {
	s := scene.New()
	c := s.Classes.Vivify("p.C")
	require.NoError(t, c.Add(withValue(t, "p.A", "x", annotation.IntValue(1))))
	require.NoError(t, c.Fields.Vivify("f").Add(withValue(t, "p.A", "x", annotation.BoolValue(true))))

	pctx := (&PrinterProcessor{}).Process(pipeline.NewContext(context.Background(), "out.jaif", "", s))
	require.Len(t, pctx.Errors, 1)
	require.Equal(t, diagnostics.ErrS005, pctx.Errors[0].Code)
	require.Empty(t, pctx.Output)
}
