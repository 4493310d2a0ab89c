package prettyprinter

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/funvibe/annoscene/internal/parser"
	"github.com/funvibe/annoscene/internal/scene"
)

// FuzzTextRoundTrip checks that whatever parses prints to text that parses
// back to the same scene: parse(print(parse(src))) == parse(src).
func FuzzTextRoundTrip(f *testing.F) {
	f.Add(everyLocation)
	f.Add("package p:\nclass C: @p.M\n")
	f.Add("package :\nannotation @A:\n    int[] xs\nclass C: @A(xs=1)\n")
	f.Add("package p:\nclass C:\n    method m()V:\n        new #1:\n            inner-type [], *, 0: @p.T\n")

	f.Fuzz(func(t *testing.T, src string) {
		if len(src) > 4000 {
			return
		}
		// buffered so the goroutine can finish after a timeout
		done := make(chan *scene.Scene, 1)
		go func() {
			s := scene.New()
			if parser.ParseInto(context.Background(), s, "fuzz.jaif", strings.NewReader(src)) != nil {
				s = nil
			}
			done <- s
		}()
		var first *scene.Scene
		select {
		case first = <-done:
		case <-time.After(time.Second):
			t.Fatalf("parser did not finish on %q", src)
		}
		if first == nil {
			return
		}

		text, err := Print(first)
		if err != nil {
			// parsed defs are unified, so printing can only fail on a bug
			t.Fatalf("print failed: %v\nsource:\n%s", err, src)
		}
		second := scene.New()
		if err := parser.ParseInto(context.Background(), second, "printed.jaif", strings.NewReader(text)); err != nil {
			t.Fatalf("printed text does not parse: %v\nprinted:\n%s", err, text)
		}
		first.Prune()
		if !scene.Equal(first, second) {
			t.Fatalf("round trip changed the scene\nsource:\n%s\nprinted:\n%s", src, text)
		}
	})
}
