package classfile

import (
	"fmt"

	"go.uber.org/zap"

	jvmerrors "github.com/daimatz/minijvm/pkg/errors"
)

// Attribute names
const (
	AttrCode            = "Code"
	AttrLineNumberTable = "LineNumberTable"
	AttrSourceFile      = "SourceFile"
)

// Attribute is implemented by every decoded attribute variant.
type Attribute interface {
	Name() string
	Header() AttributeHeader
}

// AttributeHeader holds the fields common to every attribute. Length is
// the declared attribute_length; decoding does not rely on it.
type AttributeHeader struct {
	NameIndex uint16
	Length    uint32
}

func (h AttributeHeader) Header() AttributeHeader { return h }

// ExceptionTableEntry is one row of a Code attribute's exception table.
type ExceptionTableEntry struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

// CodeAttribute represents the Code attribute of a method. Code aliases
// the class file buffer.
type CodeAttribute struct {
	AttributeHeader
	MaxStack       uint16
	MaxLocals      uint16
	Code           []byte
	ExceptionTable []ExceptionTableEntry
	Attributes     []Attribute
}

func (*CodeAttribute) Name() string { return AttrCode }

// LineNumberTable returns the first nested LineNumberTable, or nil.
func (c *CodeAttribute) LineNumberTable() *LineNumberTableAttribute {
	for _, attr := range c.Attributes {
		if lnt, ok := attr.(*LineNumberTableAttribute); ok {
			return lnt
		}
	}
	return nil
}

// LineNumberEntry maps a code offset to a source line.
type LineNumberEntry struct {
	StartPC    uint16
	LineNumber uint16
}

type LineNumberTableAttribute struct {
	AttributeHeader
	Entries []LineNumberEntry
}

func (*LineNumberTableAttribute) Name() string { return AttrLineNumberTable }

// LineFor returns the source line for pc: the entry with the greatest
// StartPC not after pc. ok is false when no entry covers pc.
func (l *LineNumberTableAttribute) LineFor(pc int) (line uint16, ok bool) {
	best := -1
	for _, e := range l.Entries {
		if int(e.StartPC) <= pc && int(e.StartPC) > best {
			best = int(e.StartPC)
			line = e.LineNumber
			ok = true
		}
	}
	return line, ok
}

type SourceFileAttribute struct {
	AttributeHeader
	SourceFileIndex uint16
}

func (*SourceFileAttribute) Name() string { return AttrSourceFile }

// attributeDecoder decodes an attribute body; the name index and length
// have already been consumed.
type attributeDecoder func(r *Reader, pool ConstantPool, h AttributeHeader) (Attribute, error)

var attributeDecoders map[string]attributeDecoder

func init() {
	// Assigned in init because decodeCode recurses through decodeAttribute.
	attributeDecoders = map[string]attributeDecoder{
		AttrCode:            decodeCode,
		AttrLineNumberTable: decodeLineNumberTable,
		AttrSourceFile:      decodeSourceFile,
	}
}

// decodeAttribute reads one attribute_info structure.
func decodeAttribute(r *Reader, pool ConstantPool) (Attribute, error) {
	nameIndex, err := r.ReadU16("attribute name_index")
	if err != nil {
		return nil, err
	}
	name, err := pool.Utf8(nameIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving attribute name: %w", err)
	}
	length, err := r.ReadU32("attribute length")
	if err != nil {
		return nil, err
	}

	decode, ok := attributeDecoders[name]
	if !ok {
		return nil, jvmerrors.UnsupportedAttribute(name)
	}

	start := r.Position()
	attr, err := decode(r, pool, AttributeHeader{NameIndex: nameIndex, Length: length})
	if err != nil {
		return nil, fmt.Errorf("%s attribute: %w", name, err)
	}
	if consumed := r.Position() - start; uint32(consumed) != length {
		Logger().Warn("attribute length mismatch",
			zap.String("attribute", name),
			zap.Uint32("declared", length),
			zap.Int("consumed", consumed))
	}
	return attr, nil
}

func decodeAttributes(r *Reader, pool ConstantPool, count uint16) ([]Attribute, error) {
	attrs := make([]Attribute, 0, count)
	for i := uint16(0); i < count; i++ {
		attr, err := decodeAttribute(r, pool)
		if err != nil {
			return nil, fmt.Errorf("attribute %d: %w", i, err)
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

func decodeCode(r *Reader, pool ConstantPool, h AttributeHeader) (Attribute, error) {
	code := &CodeAttribute{AttributeHeader: h}

	var err error
	if code.MaxStack, err = r.ReadU16("max_stack"); err != nil {
		return nil, err
	}
	if code.MaxLocals, err = r.ReadU16("max_locals"); err != nil {
		return nil, err
	}
	codeLength, err := r.ReadU32("code_length")
	if err != nil {
		return nil, err
	}
	if code.Code, err = r.ReadSlice("code", int(codeLength)); err != nil {
		return nil, err
	}

	// The exception table precedes nested attributes.
	exCount, err := r.ReadU16("exception_table_length")
	if err != nil {
		return nil, err
	}
	code.ExceptionTable = make([]ExceptionTableEntry, exCount)
	for i := range code.ExceptionTable {
		e := &code.ExceptionTable[i]
		if e.StartPC, err = r.ReadU16("exception start_pc"); err != nil {
			return nil, err
		}
		if e.EndPC, err = r.ReadU16("exception end_pc"); err != nil {
			return nil, err
		}
		if e.HandlerPC, err = r.ReadU16("exception handler_pc"); err != nil {
			return nil, err
		}
		if e.CatchType, err = r.ReadU16("exception catch_type"); err != nil {
			return nil, err
		}
	}

	attrCount, err := r.ReadU16("Code attributes_count")
	if err != nil {
		return nil, err
	}
	if code.Attributes, err = decodeAttributes(r, pool, attrCount); err != nil {
		return nil, err
	}

	return code, nil
}

func decodeLineNumberTable(r *Reader, _ ConstantPool, h AttributeHeader) (Attribute, error) {
	count, err := r.ReadU16("line_number_table_length")
	if err != nil {
		return nil, err
	}
	lnt := &LineNumberTableAttribute{
		AttributeHeader: h,
		Entries:         make([]LineNumberEntry, count),
	}
	for i := range lnt.Entries {
		if lnt.Entries[i].StartPC, err = r.ReadU16("line number start_pc"); err != nil {
			return nil, err
		}
		if lnt.Entries[i].LineNumber, err = r.ReadU16("line_number"); err != nil {
			return nil, err
		}
	}
	return lnt, nil
}

func decodeSourceFile(r *Reader, _ ConstantPool, h AttributeHeader) (Attribute, error) {
	index, err := r.ReadU16("sourcefile_index")
	if err != nil {
		return nil, err
	}
	return &SourceFileAttribute{AttributeHeader: h, SourceFileIndex: index}, nil
}
