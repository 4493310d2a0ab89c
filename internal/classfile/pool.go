package classfile

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Constant pool tags (JVMS 4.4).
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

type constant struct {
	tag  byte
	data []byte // info bytes following the tag
	str  string // decoded text of Utf8 entries
}

// Pool is a class constant pool. Entries read from a class keep their
// indices, so bytecode and attributes copied verbatim stay valid; new
// entries are appended and deduplicated.
type Pool struct {
	entries []constant // entries[0] and the slot after Long/Double are unused
	index   map[string]int
}

func newPool() *Pool {
	return &Pool{entries: make([]constant, 1), index: make(map[string]int)}
}

func poolKey(tag byte, data []byte) string { return string(tag) + string(data) }

func readPool(in *input) *Pool {
	p := newPool()
	n := in.u2()
	for i := 1; i < n && in.err == nil; i++ {
		start := in.off
		tag := byte(in.u1())
		var size int
		switch tag {
		case tagUtf8:
			size = in.u2()
		case tagInteger, tagFloat, tagFieldref, tagMethodref, tagInterfaceMethodref,
			tagNameAndType, tagDynamic, tagInvokeDynamic:
			size = 4
		case tagLong, tagDouble:
			size = 8
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			size = 2
		case tagMethodHandle:
			size = 3
		default:
			in.fail("constant %d: unknown tag %d", i, tag)
			return p
		}
		data := in.bytes(size)
		c := constant{tag: tag, data: data}
		if tag == tagUtf8 {
			s, ok := decodeMUTF8(data)
			if !ok {
				in.err = formatErr(start, "constant %d: malformed modified UTF-8", i)
				return p
			}
			c.str = s
			// keep the length prefix so writing is a plain copy
			c.data = append(binary.BigEndian.AppendUint16(nil, uint16(size)), data...)
		}
		p.entries = append(p.entries, c)
		if _, dup := p.index[poolKey(tag, c.data)]; !dup {
			p.index[poolKey(tag, c.data)] = i
		}
		if tag == tagLong || tag == tagDouble {
			p.entries = append(p.entries, constant{})
			i++
		}
	}
	if in.err == nil && len(p.entries) != n {
		in.fail("constant pool count %d does not match %d entries", n, len(p.entries))
	}
	return p
}

// Len is the constant_pool_count value.
func (p *Pool) Len() int { return len(p.entries) }

func (p *Pool) entry(i int, tag byte) (constant, error) {
	if i <= 0 || i >= len(p.entries) || p.entries[i].tag != tag {
		return constant{}, fmt.Errorf("constant %d is not of tag %d", i, tag)
	}
	return p.entries[i], nil
}

// Utf8 returns the text of a CONSTANT_Utf8 entry.
func (p *Pool) Utf8(i int) (string, error) {
	c, err := p.entry(i, tagUtf8)
	return c.str, err
}

// ClassName returns the internal name of a CONSTANT_Class entry.
func (p *Pool) ClassName(i int) (string, error) {
	c, err := p.entry(i, tagClass)
	if err != nil {
		return "", err
	}
	return p.Utf8(int(binary.BigEndian.Uint16(c.data)))
}

func (p *Pool) u32(i int, tag byte) (uint32, error) {
	c, err := p.entry(i, tag)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(c.data), nil
}

func (p *Pool) u64(i int, tag byte) (uint64, error) {
	c, err := p.entry(i, tag)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(c.data), nil
}

func (p *Pool) Int(i int) (int32, error) {
	v, err := p.u32(i, tagInteger)
	return int32(v), err
}

func (p *Pool) Float(i int) (float32, error) {
	v, err := p.u32(i, tagFloat)
	return math.Float32frombits(v), err
}

func (p *Pool) Long(i int) (int64, error) {
	v, err := p.u64(i, tagLong)
	return int64(v), err
}

func (p *Pool) Double(i int) (float64, error) {
	v, err := p.u64(i, tagDouble)
	return math.Float64frombits(v), err
}

func (p *Pool) add(tag byte, data []byte, str string) int {
	key := poolKey(tag, data)
	if i, ok := p.index[key]; ok {
		return i
	}
	i := len(p.entries)
	p.entries = append(p.entries, constant{tag: tag, data: data, str: str})
	if tag == tagLong || tag == tagDouble {
		p.entries = append(p.entries, constant{})
	}
	p.index[key] = i
	return i
}

// AddUtf8 returns the index of a Utf8 entry for s, adding one if needed.
func (p *Pool) AddUtf8(s string) int {
	enc := encodeMUTF8(s)
	data := append(binary.BigEndian.AppendUint16(nil, uint16(len(enc))), enc...)
	return p.add(tagUtf8, data, s)
}

// AddClass returns the index of a Class entry for an internal name.
func (p *Pool) AddClass(internalName string) int {
	return p.add(tagClass, binary.BigEndian.AppendUint16(nil, uint16(p.AddUtf8(internalName))), "")
}

func (p *Pool) AddInt(v int32) int {
	return p.add(tagInteger, binary.BigEndian.AppendUint32(nil, uint32(v)), "")
}

func (p *Pool) AddFloat(v float32) int {
	return p.add(tagFloat, binary.BigEndian.AppendUint32(nil, math.Float32bits(v)), "")
}

func (p *Pool) AddLong(v int64) int {
	return p.add(tagLong, binary.BigEndian.AppendUint64(nil, uint64(v)), "")
}

func (p *Pool) AddDouble(v float64) int {
	return p.add(tagDouble, binary.BigEndian.AppendUint64(nil, math.Float64bits(v)), "")
}

func (p *Pool) write(o *output) error {
	if len(p.entries) > math.MaxUint16 {
		return fmt.Errorf("constant pool overflow: %d entries", len(p.entries))
	}
	o.u2(len(p.entries))
	for _, c := range p.entries[1:] {
		if c.tag == 0 {
			continue
		}
		o.u1(int(c.tag))
		o.raw(c.data)
	}
	return nil
}

func (p *Pool) clone() *Pool {
	q := &Pool{entries: append([]constant(nil), p.entries...), index: make(map[string]int, len(p.index))}
	for k, v := range p.index {
		q.index[k] = v
	}
	return q
}
