package classfile

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrBadConstantPool means a pool entry had an unknown tag or a reference
// to an entry of the wrong kind.
var ErrBadConstantPool = errors.New("bad constant pool")

// Constant pool entry tags from the class-file format.
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

// cpEntry is one slot of the pool. The pool is a flat array indexed by
// pool index; entries refer to each other by index, never by pointer, so
// the structure cannot cycle.
type cpEntry struct {
	tag  uint8
	str  string // Utf8
	i32  int32
	i64  int64
	f32  float32
	f64  float64
	ref1 uint16
	ref2 uint16
}

// constantPool is the decoded pool of one class file.
type constantPool struct {
	entries []cpEntry
}

// parseConstantPool reads the pool table. Long and double constants
// occupy two slots; the second slot stays zeroed.
func parseConstantPool(r *reader) (*constantPool, error) {
	count := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: zero-length pool", ErrBadConstantPool)
	}

	entries := make([]cpEntry, count)

	for i := 1; i < count; i++ {
		tag := r.u1()
		if r.err != nil {
			return nil, r.err
		}

		entry := cpEntry{tag: tag}
		switch tag {
		case tagUtf8:
			length := int(r.u2())
			entry.str = string(r.bytes(length))
		case tagInteger:
			entry.i32 = int32(r.u4())
		case tagFloat:
			entry.f32 = math.Float32frombits(r.u4())
		case tagLong:
			hi := uint64(r.u4())
			lo := uint64(r.u4())
			entry.i64 = int64(hi<<32 | lo)
		case tagDouble:
			hi := uint64(r.u4())
			lo := uint64(r.u4())
			entry.f64 = math.Float64frombits(hi<<32 | lo)
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			entry.ref1 = r.u2()
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType, tagDynamic, tagInvokeDynamic:
			entry.ref1 = r.u2()
			entry.ref2 = r.u2()
		case tagMethodHandle:
			entry.ref1 = uint16(r.u1())
			entry.ref2 = r.u2()
		default:
			return nil, fmt.Errorf("%w: unknown tag %d at index %d", ErrBadConstantPool, tag, i)
		}

		entries[i] = entry

		// Long and double take two pool slots
		if tag == tagLong || tag == tagDouble {
			i++
		}
	}

	if r.err != nil {
		return nil, r.err
	}

	return &constantPool{entries: entries}, nil
}

func (p *constantPool) entry(index uint16, wantTag uint8) (*cpEntry, error) {
	i := int(index)
	if i <= 0 || i >= len(p.entries) {
		return nil, fmt.Errorf("%w: index %d out of range", ErrBadConstantPool, index)
	}
	e := &p.entries[i]
	if e.tag != wantTag {
		return nil, fmt.Errorf("%w: index %d has tag %d, want %d", ErrBadConstantPool, index, e.tag, wantTag)
	}
	return e, nil
}

// Utf8 resolves a Utf8 entry.
func (p *constantPool) Utf8(index uint16) (string, error) {
	e, err := p.entry(index, tagUtf8)
	if err != nil {
		return "", err
	}
	return e.str, nil
}

// ClassName resolves a Class entry to its internal (slash-separated) name.
func (p *constantPool) ClassName(index uint16) (string, error) {
	e, err := p.entry(index, tagClass)
	if err != nil {
		return "", err
	}
	return p.Utf8(e.ref1)
}

// NameAndType resolves a NameAndType entry.
func (p *constantPool) NameAndType(index uint16) (name, descriptor string, err error) {
	e, err := p.entry(index, tagNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = p.Utf8(e.ref1); err != nil {
		return "", "", err
	}
	if descriptor, err = p.Utf8(e.ref2); err != nil {
		return "", "", err
	}
	return name, descriptor, nil
}

// MethodRef resolves a Methodref or InterfaceMethodref entry to its
// dotted owner, name, and descriptor.
func (p *constantPool) MethodRef(index uint16) (owner, name, descriptor string, err error) {
	i := int(index)
	if i <= 0 || i >= len(p.entries) {
		return "", "", "", fmt.Errorf("%w: index %d out of range", ErrBadConstantPool, index)
	}
	e := &p.entries[i]
	if e.tag != tagMethodref && e.tag != tagInterfaceMethodref {
		return "", "", "", fmt.Errorf("%w: index %d has tag %d, want method reference", ErrBadConstantPool, index, e.tag)
	}

	internal, err := p.ClassName(e.ref1)
	if err != nil {
		return "", "", "", err
	}
	name, descriptor, err = p.NameAndType(e.ref2)
	if err != nil {
		return "", "", "", err
	}

	return strings.ReplaceAll(internal, "/", "."), name, descriptor, nil
}
