// Package classfiletest synthesizes minimal but format-correct class
// files and WAR archives for tests. Only the structures the decoder reads
// are emitted: constant pool, runtime annotation tables, and Code bodies
// made of invocation instructions.
package classfiletest

import (
	"bytes"
	"encoding/binary"
	"strings"
)

// Value is one annotation element value to encode.
type Value struct {
	tag       byte
	str       string
	i32       int32
	boolean   bool
	enumType  string
	enumConst string
	classDesc string
	nested    *Annotation
	array     []Value
}

// Str encodes a string constant value.
func Str(s string) Value { return Value{tag: 's', str: s} }

// Bool encodes a boolean constant value.
func Bool(b bool) Value { return Value{tag: 'Z', boolean: b} }

// Int encodes an int constant value.
func Int(i int32) Value { return Value{tag: 'I', i32: i} }

// Enum encodes an enum reference, e.g.
// Enum("Lorg/springframework/web/bind/annotation/RequestMethod;", "GET").
func Enum(typeDesc, constName string) Value {
	return Value{tag: 'e', enumType: typeDesc, enumConst: constName}
}

// ClassRef encodes a class reference value.
func ClassRef(desc string) Value { return Value{tag: 'c', classDesc: desc} }

// Nested encodes a nested annotation value.
func Nested(a Annotation) Value { return Value{tag: '@', nested: &a} }

// Array encodes an ordered sequence of values.
func Array(values ...Value) Value { return Value{tag: '[', array: values} }

// Pair is one name=value element of an annotation.
type Pair struct {
	Name  string
	Value Value
}

// Annotation describes one annotation to encode. Type is the descriptor
// form, e.g. "Lorg/springframework/web/bind/annotation/GetMapping;".
type Annotation struct {
	Type  string
	Pairs []Pair
}

// Ann is shorthand for building an Annotation.
func Ann(typeDesc string, pairs ...Pair) Annotation {
	return Annotation{Type: typeDesc, Pairs: pairs}
}

// Call is one invocation to place in a method body. Owner is the internal
// slash-separated class name.
type Call struct {
	Owner string
	Name  string
	Desc  string
}

// MethodBuilder accumulates one method_info.
type MethodBuilder struct {
	name        string
	descriptor  string
	annotations []Annotation
	paramAnns   map[int][]Annotation
	calls       []Call
	noBody      bool
}

// NewMethod starts a method with the given name and descriptor.
func NewMethod(name, descriptor string) *MethodBuilder {
	return &MethodBuilder{name: name, descriptor: descriptor, paramAnns: map[int][]Annotation{}}
}

// Annotate adds a method-level annotation.
func (m *MethodBuilder) Annotate(annotations ...Annotation) *MethodBuilder {
	m.annotations = append(m.annotations, annotations...)
	return m
}

// AnnotateParam adds annotations at one parameter position.
func (m *MethodBuilder) AnnotateParam(index int, annotations ...Annotation) *MethodBuilder {
	m.paramAnns[index] = append(m.paramAnns[index], annotations...)
	return m
}

// Calls adds invokevirtual call sites to the method body.
func (m *MethodBuilder) Calls(calls ...Call) *MethodBuilder {
	m.calls = append(m.calls, calls...)
	return m
}

// NoBody omits the Code attribute, as for abstract methods.
func (m *MethodBuilder) NoBody() *MethodBuilder {
	m.noBody = true
	return m
}

// ClassBuilder accumulates one class file.
type ClassBuilder struct {
	name        string // internal slash-separated name
	super       string
	annotations []Annotation
	methods     []*MethodBuilder
}

// NewClass starts a class with the given internal name, e.g.
// "com/ex/UserController".
func NewClass(name string) *ClassBuilder {
	return &ClassBuilder{name: name, super: "java/lang/Object"}
}

// Super overrides the super class internal name.
func (b *ClassBuilder) Super(name string) *ClassBuilder {
	b.super = name
	return b
}

// Annotate adds class-level annotations.
func (b *ClassBuilder) Annotate(annotations ...Annotation) *ClassBuilder {
	b.annotations = append(b.annotations, annotations...)
	return b
}

// Method adds a method.
func (b *ClassBuilder) Method(m *MethodBuilder) *ClassBuilder {
	b.methods = append(b.methods, m)
	return b
}

// constant pool builder with dedup

type poolItem struct {
	tag  byte
	str  string
	i32  int32
	ref1 uint16
	ref2 uint16
}

type poolBuilder struct {
	items []poolItem
	index map[poolItem]uint16
}

func newPoolBuilder() *poolBuilder {
	return &poolBuilder{index: map[poolItem]uint16{}}
}

func (p *poolBuilder) add(item poolItem) uint16 {
	if idx, ok := p.index[item]; ok {
		return idx
	}
	p.items = append(p.items, item)
	idx := uint16(len(p.items)) // pool indices are 1-based
	p.index[item] = idx
	return idx
}

func (p *poolBuilder) utf8(s string) uint16 {
	return p.add(poolItem{tag: 1, str: s})
}

func (p *poolBuilder) integer(v int32) uint16 {
	return p.add(poolItem{tag: 3, i32: v})
}

func (p *poolBuilder) class(internalName string) uint16 {
	nameIdx := p.utf8(internalName)
	return p.add(poolItem{tag: 7, ref1: nameIdx})
}

func (p *poolBuilder) nameAndType(name, descriptor string) uint16 {
	return p.add(poolItem{tag: 12, ref1: p.utf8(name), ref2: p.utf8(descriptor)})
}

func (p *poolBuilder) methodref(owner, name, descriptor string) uint16 {
	return p.add(poolItem{tag: 10, ref1: p.class(owner), ref2: p.nameAndType(name, descriptor)})
}

func (p *poolBuilder) write(w *bytes.Buffer) {
	u2(w, uint16(len(p.items)+1))
	for _, item := range p.items {
		w.WriteByte(item.tag)
		switch item.tag {
		case 1:
			u2(w, uint16(len(item.str)))
			w.WriteString(item.str)
		case 3:
			u4(w, uint32(item.i32))
		case 7:
			u2(w, item.ref1)
		case 10, 12:
			u2(w, item.ref1)
			u2(w, item.ref2)
		}
	}
}

// Bytes assembles the class file.
func (b *ClassBuilder) Bytes() []byte {
	pool := newPoolBuilder()

	thisIdx := pool.class(b.name)
	superIdx := pool.class(b.super)

	// Encode methods and class attributes against the pool first; the
	// pool table is written before them but referenced by them
	var methodsBuf bytes.Buffer
	u2(&methodsBuf, uint16(len(b.methods)))
	for _, m := range b.methods {
		m.write(&methodsBuf, pool)
	}

	var classAttrs bytes.Buffer
	writeAnnotationAttributes(&classAttrs, pool, b.annotations)

	var out bytes.Buffer
	u4(&out, 0xCAFEBABE)
	u2(&out, 0)  // minor
	u2(&out, 61) // major, Java 17
	pool.write(&out)
	u2(&out, 0x0021) // ACC_PUBLIC | ACC_SUPER
	u2(&out, thisIdx)
	u2(&out, superIdx)
	u2(&out, 0) // interfaces
	u2(&out, 0) // fields
	out.Write(methodsBuf.Bytes())
	out.Write(classAttrs.Bytes())

	return out.Bytes()
}

func (m *MethodBuilder) write(w *bytes.Buffer, pool *poolBuilder) {
	u2(w, 0x0001) // ACC_PUBLIC
	u2(w, pool.utf8(m.name))
	u2(w, pool.utf8(m.descriptor))

	var attrs [][]byte

	if len(m.annotations) > 0 {
		attrs = append(attrs, encodeAttribute(pool, "RuntimeVisibleAnnotations", encodeAnnotations(pool, m.annotations)))
	}

	if len(m.paramAnns) > 0 {
		attrs = append(attrs, encodeAttribute(pool, "RuntimeVisibleParameterAnnotations", m.encodeParamAnnotations(pool)))
	}

	if !m.noBody {
		attrs = append(attrs, encodeAttribute(pool, "Code", m.encodeCode(pool)))
	}

	u2(w, uint16(len(attrs)))
	for _, attr := range attrs {
		w.Write(attr)
	}
}

func (m *MethodBuilder) encodeParamAnnotations(pool *poolBuilder) []byte {
	count := descriptorParamCount(m.descriptor)

	var w bytes.Buffer
	w.WriteByte(byte(count))
	for i := 0; i < count; i++ {
		w.Write(encodeAnnotations(pool, m.paramAnns[i]))
	}
	return w.Bytes()
}

func (m *MethodBuilder) encodeCode(pool *poolBuilder) []byte {
	var code bytes.Buffer
	for _, call := range m.calls {
		code.WriteByte(0xb6) // invokevirtual
		u2(&code, pool.methodref(call.Owner, call.Name, call.Desc))
	}
	code.WriteByte(0xb1) // return

	var w bytes.Buffer
	u2(&w, 2) // max_stack
	u2(&w, 4) // max_locals
	u4(&w, uint32(code.Len()))
	w.Write(code.Bytes())
	u2(&w, 0) // exception table
	u2(&w, 0) // attributes
	return w.Bytes()
}

func writeAnnotationAttributes(w *bytes.Buffer, pool *poolBuilder, annotations []Annotation) {
	if len(annotations) == 0 {
		u2(w, 0)
		return
	}
	u2(w, 1)
	w.Write(encodeAttribute(pool, "RuntimeVisibleAnnotations", encodeAnnotations(pool, annotations)))
}

func encodeAttribute(pool *poolBuilder, name string, body []byte) []byte {
	var w bytes.Buffer
	u2(&w, pool.utf8(name))
	u4(&w, uint32(len(body)))
	w.Write(body)
	return w.Bytes()
}

func encodeAnnotations(pool *poolBuilder, annotations []Annotation) []byte {
	var w bytes.Buffer
	u2(&w, uint16(len(annotations)))
	for _, a := range annotations {
		encodeAnnotation(&w, pool, a)
	}
	return w.Bytes()
}

func encodeAnnotation(w *bytes.Buffer, pool *poolBuilder, a Annotation) {
	u2(w, pool.utf8(a.Type))
	u2(w, uint16(len(a.Pairs)))
	for _, pair := range a.Pairs {
		u2(w, pool.utf8(pair.Name))
		encodeValue(w, pool, pair.Value)
	}
}

func encodeValue(w *bytes.Buffer, pool *poolBuilder, v Value) {
	w.WriteByte(v.tag)
	switch v.tag {
	case 's':
		u2(w, pool.utf8(v.str))
	case 'Z':
		val := int32(0)
		if v.boolean {
			val = 1
		}
		u2(w, pool.integer(val))
	case 'I':
		u2(w, pool.integer(v.i32))
	case 'e':
		u2(w, pool.utf8(v.enumType))
		u2(w, pool.utf8(v.enumConst))
	case 'c':
		u2(w, pool.utf8(v.classDesc))
	case '@':
		encodeAnnotation(w, pool, *v.nested)
	case '[':
		u2(w, uint16(len(v.array)))
		for _, item := range v.array {
			encodeValue(w, pool, item)
		}
	}
}

// descriptorParamCount counts the parameters of a method descriptor.
func descriptorParamCount(descriptor string) int {
	count := 0
	i := 1 // skip '('
	for i < len(descriptor) && descriptor[i] != ')' {
		for descriptor[i] == '[' {
			i++
		}
		if descriptor[i] == 'L' {
			end := strings.IndexByte(descriptor[i:], ';')
			i += end + 1
		} else {
			i++
		}
		count++
	}
	return count
}

func u2(w *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.Write(b[:])
}

func u4(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.Write(b[:])
}
