package classfile

import "encoding/binary"

// input is a bounds-checked big-endian cursor. The first failure sticks;
// later reads return zero values so callers check err once per structure.
type input struct {
	b   []byte
	off int
	err *FormatError
}

func (in *input) need(n int) bool {
	if in.err != nil {
		return false
	}
	if n < 0 || in.off+n > len(in.b) {
		in.err = formatErr(in.off, "truncated: need %d bytes, have %d", n, len(in.b)-in.off)
		return false
	}
	return true
}

func (in *input) u1() int {
	if !in.need(1) {
		return 0
	}
	v := in.b[in.off]
	in.off++
	return int(v)
}

func (in *input) u2() int {
	if !in.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(in.b[in.off:])
	in.off += 2
	return int(v)
}

func (in *input) u4() uint32 {
	if !in.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(in.b[in.off:])
	in.off += 4
	return v
}

func (in *input) bytes(n int) []byte {
	if !in.need(n) {
		return nil
	}
	v := in.b[in.off : in.off+n]
	in.off += n
	return v
}

func (in *input) fail(format string, args ...any) {
	if in.err == nil {
		in.err = formatErr(in.off, format, args...)
	}
}

// errOrNil keeps a nil *FormatError from becoming a non-nil error.
func (in *input) errOrNil() error {
	if in.err == nil {
		return nil
	}
	return in.err
}

type output struct {
	b []byte
}

func (o *output) u1(v int) { o.b = append(o.b, byte(v)) }

func (o *output) u2(v int) { o.b = binary.BigEndian.AppendUint16(o.b, uint16(v)) }

func (o *output) u4(v uint32) { o.b = binary.BigEndian.AppendUint32(o.b, v) }

func (o *output) raw(p []byte) { o.b = append(o.b, p...) }
