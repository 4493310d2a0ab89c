package bytecodec

import (
	"bytes"
	"context"
	"testing"

	"github.com/funvibe/annoscene/internal/classfile"
	"github.com/funvibe/annoscene/internal/scene"
)

// FuzzReadInto feeds arbitrary bytes to the decoder. Malformed input must
// come back as an error, never a panic, and a decoded class must encode.
func FuzzReadInto(f *testing.F) {
	w := classfile.NewWriter(nil)
	if err := w.Visit(classfile.Header{Major: 61, Access: 0x21, Name: "p/C", Super: "java/lang/Object"}); err != nil {
		f.Fatal(err)
	}
	if err := w.VisitEnd(); err != nil {
		f.Fatal(err)
	}
	seed, err := w.Bytes()
	if err != nil {
		f.Fatal(err)
	}
	f.Add(seed)
	f.Add([]byte{0xCA, 0xFE, 0xBA, 0xBE})
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) > 1<<16 {
			return
		}
		s := scene.New()
		if err := ReadInto(context.Background(), s, bytes.NewReader(data)); err != nil {
			return
		}
		if _, err := WriteFrom(context.Background(), s, bytes.NewReader(data), false); err != nil {
			t.Fatalf("decoded class does not encode: %v", err)
		}
	})
}
