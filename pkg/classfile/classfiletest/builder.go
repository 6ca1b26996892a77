// Package classfiletest builds class file byte images for tests.
package classfiletest

import (
	"bytes"
	"encoding/binary"
)

// Opcodes used by the canned method bodies.
const (
	OpIconst3       = 0x06
	OpAload0        = 0x2A
	OpReturn        = 0xB1
	OpGetstatic     = 0xB2
	OpInvokespecial = 0xB7
)

// ByteWriter accumulates big-endian encoded values.
type ByteWriter struct {
	buf bytes.Buffer
}

func (w *ByteWriter) U8(v uint8) *ByteWriter {
	w.buf.WriteByte(v)
	return w
}

func (w *ByteWriter) U16(v uint16) *ByteWriter {
	binary.Write(&w.buf, binary.BigEndian, v)
	return w
}

func (w *ByteWriter) U32(v uint32) *ByteWriter {
	binary.Write(&w.buf, binary.BigEndian, v)
	return w
}

func (w *ByteWriter) Raw(b []byte) *ByteWriter {
	w.buf.Write(b)
	return w
}

func (w *ByteWriter) Bytes() []byte {
	return w.buf.Bytes()
}

type method struct {
	flags uint16
	name  uint16
	desc  uint16
	attrs [][]byte
}

// Builder assembles a class file. Constant pool helpers deduplicate
// identical entries and return their 1-based index.
type Builder struct {
	Magic        uint32
	MinorVersion uint16
	MajorVersion uint16
	AccessFlags  uint16

	pool      [][]byte
	index     map[string]uint16
	this      uint16
	super     uint16
	ifaces    []uint16
	fields    uint16
	methods   []method
	classAttr [][]byte
}

// New creates a Builder for a Java 8 class.
func New() *Builder {
	return &Builder{
		Magic:        0xCAFEBABE,
		MajorVersion: 52,
		AccessFlags:  0x0021,
		index:        make(map[string]uint16),
	}
}

func (b *Builder) add(key string, entry []byte) uint16 {
	if key != "" {
		if i, ok := b.index[key]; ok {
			return i
		}
	}
	b.pool = append(b.pool, entry)
	i := uint16(len(b.pool))
	if key != "" {
		b.index[key] = i
	}
	return i
}

// Raw appends a constant pool entry with an arbitrary tag and body.
func (b *Builder) Raw(tag uint8, body ...byte) uint16 {
	w := &ByteWriter{}
	w.U8(tag).Raw(body)
	return b.add("", w.Bytes())
}

// RawUtf8 appends a Utf8 entry without validating its bytes.
func (b *Builder) RawUtf8(data []byte) uint16 {
	w := &ByteWriter{}
	w.U8(1).U16(uint16(len(data))).Raw(data)
	return b.add("", w.Bytes())
}

func (b *Builder) Utf8(s string) uint16 {
	w := &ByteWriter{}
	w.U8(1).U16(uint16(len(s))).Raw([]byte(s))
	return b.add("utf8:"+s, w.Bytes())
}

func (b *Builder) Class(name string) uint16 {
	n := b.Utf8(name)
	w := &ByteWriter{}
	w.U8(7).U16(n)
	return b.add("class:"+name, w.Bytes())
}

func (b *Builder) StringConst(s string) uint16 {
	n := b.Utf8(s)
	w := &ByteWriter{}
	w.U8(8).U16(n)
	return b.add("string:"+s, w.Bytes())
}

func (b *Builder) NameAndType(name, desc string) uint16 {
	n, d := b.Utf8(name), b.Utf8(desc)
	w := &ByteWriter{}
	w.U8(12).U16(n).U16(d)
	return b.add("nat:"+name+":"+desc, w.Bytes())
}

func (b *Builder) Fieldref(class, name, desc string) uint16 {
	c, nt := b.Class(class), b.NameAndType(name, desc)
	w := &ByteWriter{}
	w.U8(9).U16(c).U16(nt)
	return b.add("field:"+class+"."+name+":"+desc, w.Bytes())
}

func (b *Builder) Methodref(class, name, desc string) uint16 {
	c, nt := b.Class(class), b.NameAndType(name, desc)
	w := &ByteWriter{}
	w.U8(10).U16(c).U16(nt)
	return b.add("method:"+class+"."+name+":"+desc, w.Bytes())
}

// SetThis sets this_class and super_class.
func (b *Builder) SetThis(name, super string) *Builder {
	b.this = b.Class(name)
	if super != "" {
		b.super = b.Class(super)
	}
	return b
}

// AddInterface records an implemented interface.
func (b *Builder) AddInterface(name string) *Builder {
	b.ifaces = append(b.ifaces, b.Class(name))
	return b
}

// SetFieldCount writes a non-zero fields_count with no field bodies.
func (b *Builder) SetFieldCount(n uint16) *Builder {
	b.fields = n
	return b
}

// AddMethod appends a method with pre-encoded attributes.
func (b *Builder) AddMethod(flags uint16, name, desc string, attrs ...[]byte) *Builder {
	b.methods = append(b.methods, method{
		flags: flags,
		name:  b.Utf8(name),
		desc:  b.Utf8(desc),
		attrs: attrs,
	})
	return b
}

// AddClassAttribute appends a pre-encoded class-level attribute.
func (b *Builder) AddClassAttribute(attr []byte) *Builder {
	b.classAttr = append(b.classAttr, attr)
	return b
}

// Attribute encodes an attribute_info with the given name and body.
func (b *Builder) Attribute(name string, body []byte) []byte {
	w := &ByteWriter{}
	w.U16(b.Utf8(name)).U32(uint32(len(body))).Raw(body)
	return w.Bytes()
}

// ExceptionEntry is one exception table row.
type ExceptionEntry struct {
	StartPC, EndPC, HandlerPC, CatchType uint16
}

// Code encodes a Code attribute.
func (b *Builder) Code(maxStack, maxLocals uint16, code []byte, exceptions []ExceptionEntry, nested ...[]byte) []byte {
	w := &ByteWriter{}
	w.U16(maxStack).U16(maxLocals).U32(uint32(len(code))).Raw(code)
	w.U16(uint16(len(exceptions)))
	for _, e := range exceptions {
		w.U16(e.StartPC).U16(e.EndPC).U16(e.HandlerPC).U16(e.CatchType)
	}
	w.U16(uint16(len(nested)))
	for _, attr := range nested {
		w.Raw(attr)
	}
	return b.Attribute("Code", w.Bytes())
}

// LineNumberTable encodes a LineNumberTable from (start_pc, line) pairs.
func (b *Builder) LineNumberTable(pairs ...uint16) []byte {
	w := &ByteWriter{}
	w.U16(uint16(len(pairs) / 2))
	for i := 0; i+1 < len(pairs); i += 2 {
		w.U16(pairs[i]).U16(pairs[i+1])
	}
	return b.Attribute("LineNumberTable", w.Bytes())
}

// SourceFile encodes a SourceFile attribute.
func (b *Builder) SourceFile(name string) []byte {
	w := &ByteWriter{}
	w.U16(b.Utf8(name))
	return b.Attribute("SourceFile", w.Bytes())
}

// Bytes encodes the class file.
func (b *Builder) Bytes() []byte {
	w := &ByteWriter{}
	w.U32(b.Magic).U16(b.MinorVersion).U16(b.MajorVersion)

	w.U16(uint16(len(b.pool) + 1))
	for _, e := range b.pool {
		w.Raw(e)
	}

	w.U16(b.AccessFlags).U16(b.this).U16(b.super)

	w.U16(uint16(len(b.ifaces)))
	for _, i := range b.ifaces {
		w.U16(i)
	}
	w.U16(b.fields)

	w.U16(uint16(len(b.methods)))
	for _, m := range b.methods {
		w.U16(m.flags).U16(m.name).U16(m.desc).U16(uint16(len(m.attrs)))
		for _, a := range m.attrs {
			w.Raw(a)
		}
	}

	w.U16(uint16(len(b.classAttr)))
	for _, a := range b.classAttr {
		w.Raw(a)
	}
	return w.Bytes()
}

// HelloWorld returns a builder for the class javac emits for an empty
// program: <init> calls Object.<init>, main returns immediately.
func HelloWorld() *Builder {
	b := New()
	b.SetThis("HelloWorld", "java/lang/Object")
	ctor := b.Methodref("java/lang/Object", "<init>", "()V")
	b.AddMethod(0x0001, "<init>", "()V",
		b.Code(1, 1, []byte{
			OpAload0,
			OpInvokespecial, byte(ctor >> 8), byte(ctor),
			OpReturn,
		}, nil, b.LineNumberTable(0, 1)))
	b.AddMethod(0x0009, "main", "([Ljava/lang/String;)V",
		b.Code(0, 1, []byte{OpReturn}, nil, b.LineNumberTable(0, 3)))
	b.AddClassAttribute(b.SourceFile("HelloWorld.java"))
	return b
}
