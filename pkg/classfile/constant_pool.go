package classfile

import (
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	jvmerrors "github.com/daimatz/minijvm/pkg/errors"
)

// Constant pool tags
const (
	TagUtf8        = 1
	TagClass       = 7
	TagString      = 8
	TagFieldref    = 9
	TagMethodref   = 10
	TagNameAndType = 12
)

// ConstantPoolEntry is an interface implemented by all constant pool types.
type ConstantPoolEntry interface {
	Tag() uint8
	String() string
}

// ConstantUtf8 holds the bytes of a CONSTANT_Utf8 entry. Bytes aliases the
// class file buffer.
type ConstantUtf8 struct {
	Bytes []byte
}

func (c *ConstantUtf8) Tag() uint8 { return TagUtf8 }

// Text returns the entry's contents as a string.
func (c *ConstantUtf8) Text() string { return string(c.Bytes) }

func (c *ConstantUtf8) String() string {
	return fmt.Sprintf("Utf8 %q", c.Bytes)
}

type ConstantClass struct {
	NameIndex uint16
}

func (c *ConstantClass) Tag() uint8 { return TagClass }

func (c *ConstantClass) String() string {
	return fmt.Sprintf("Class name_index=%d", c.NameIndex)
}

type ConstantString struct {
	StringIndex uint16
}

func (c *ConstantString) Tag() uint8 { return TagString }

func (c *ConstantString) String() string {
	return fmt.Sprintf("String string_index=%d", c.StringIndex)
}

type ConstantFieldref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantFieldref) Tag() uint8 { return TagFieldref }

func (c *ConstantFieldref) String() string {
	return fmt.Sprintf("Fieldref class_index=%d name_and_type_index=%d", c.ClassIndex, c.NameAndTypeIndex)
}

type ConstantMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantMethodref) Tag() uint8 { return TagMethodref }

func (c *ConstantMethodref) String() string {
	return fmt.Sprintf("Methodref class_index=%d name_and_type_index=%d", c.ClassIndex, c.NameAndTypeIndex)
}

type ConstantNameAndType struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

func (c *ConstantNameAndType) Tag() uint8 { return TagNameAndType }

func (c *ConstantNameAndType) String() string {
	return fmt.Sprintf("NameAndType name_index=%d descriptor_index=%d", c.NameIndex, c.DescriptorIndex)
}

// constantDecoder decodes the body of one entry; the tag byte has already
// been consumed.
type constantDecoder func(r *Reader, index uint16) (ConstantPoolEntry, error)

var constantDecoders = map[uint8]constantDecoder{
	TagUtf8:        decodeUtf8,
	TagClass:       decodeClass,
	TagString:      decodeString,
	TagFieldref:    decodeFieldref,
	TagMethodref:   decodeMethodref,
	TagNameAndType: decodeNameAndType,
}

func decodeUtf8(r *Reader, index uint16) (ConstantPoolEntry, error) {
	length, err := r.ReadU16("Utf8 length")
	if err != nil {
		return nil, err
	}
	b, err := r.ReadSlice("Utf8 bytes", int(length))
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(b) {
		return nil, jvmerrors.InvalidUTF8(index, b)
	}
	return &ConstantUtf8{Bytes: b}, nil
}

func decodeClass(r *Reader, _ uint16) (ConstantPoolEntry, error) {
	nameIndex, err := r.ReadU16("Class name_index")
	if err != nil {
		return nil, err
	}
	return &ConstantClass{NameIndex: nameIndex}, nil
}

func decodeString(r *Reader, _ uint16) (ConstantPoolEntry, error) {
	stringIndex, err := r.ReadU16("String string_index")
	if err != nil {
		return nil, err
	}
	return &ConstantString{StringIndex: stringIndex}, nil
}

func readIndexPair(r *Reader, first, second string) (uint16, uint16, error) {
	a, err := r.ReadU16(first)
	if err != nil {
		return 0, 0, err
	}
	b, err := r.ReadU16(second)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func decodeFieldref(r *Reader, _ uint16) (ConstantPoolEntry, error) {
	classIndex, natIndex, err := readIndexPair(r, "Fieldref class_index", "Fieldref name_and_type_index")
	if err != nil {
		return nil, err
	}
	return &ConstantFieldref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}, nil
}

func decodeMethodref(r *Reader, _ uint16) (ConstantPoolEntry, error) {
	classIndex, natIndex, err := readIndexPair(r, "Methodref class_index", "Methodref name_and_type_index")
	if err != nil {
		return nil, err
	}
	return &ConstantMethodref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}, nil
}

func decodeNameAndType(r *Reader, _ uint16) (ConstantPoolEntry, error) {
	nameIndex, descIndex, err := readIndexPair(r, "NameAndType name_index", "NameAndType descriptor_index")
	if err != nil {
		return nil, err
	}
	return &ConstantNameAndType{NameIndex: nameIndex, DescriptorIndex: descIndex}, nil
}

// decodeConstantEntry reads one tag-prefixed entry.
func decodeConstantEntry(r *Reader, index uint16) (ConstantPoolEntry, error) {
	tag, err := r.ReadU8("constant pool tag")
	if err != nil {
		return nil, err
	}
	decode, ok := constantDecoders[tag]
	if !ok {
		return nil, jvmerrors.UnsupportedConstantTag(tag, index)
	}
	return decode(r, index)
}

// ConstantPool is the decoded constant pool. It is 1-indexed: index 0 is
// always nil, as is any index past the declared count.
type ConstantPool []ConstantPoolEntry

// decodeConstantPool reads constant_pool_count-1 entries.
func decodeConstantPool(r *Reader, count uint16) (ConstantPool, error) {
	pool := make(ConstantPool, max(int(count), 1))

	for i := uint16(1); i < count; i++ {
		entry, err := decodeConstantEntry(r, i)
		if err != nil {
			return nil, fmt.Errorf("constant pool entry %d: %w", i, err)
		}
		pool[i] = entry
		Logger().Debug("constant pool entry",
			zap.Uint16("index", i),
			zap.Stringer("entry", entry))
	}

	return pool, nil
}

// Len returns the number of usable entries (constant_pool_count - 1).
func (p ConstantPool) Len() int {
	if len(p) == 0 {
		return 0
	}
	return len(p) - 1
}

// Entry returns the entry at index.
func (p ConstantPool) Entry(index uint16) (ConstantPoolEntry, error) {
	if int(index) >= len(p) || p[index] == nil {
		return nil, jvmerrors.MissingConstantPoolEntry(index)
	}
	return p[index], nil
}

// Utf8 returns the string held by the Utf8 entry at index.
func (p ConstantPool) Utf8(index uint16) (string, error) {
	entry, err := p.Entry(index)
	if err != nil {
		return "", err
	}
	u, ok := entry.(*ConstantUtf8)
	if !ok {
		return "", jvmerrors.ExpectedUtf8(index, entry.Tag())
	}
	return u.Text(), nil
}

// ClassName returns the class name referenced by a CONSTANT_Class entry.
func (p ConstantPool) ClassName(index uint16) (string, error) {
	entry, err := p.Entry(index)
	if err != nil {
		return "", err
	}
	class, ok := entry.(*ConstantClass)
	if !ok {
		return "", jvmerrors.UnexpectedConstant(index, "Class", entry.Tag())
	}
	return p.Utf8(class.NameIndex)
}

// NameAndType returns the name and descriptor of a CONSTANT_NameAndType
// entry.
func (p ConstantPool) NameAndType(index uint16) (name, descriptor string, err error) {
	entry, err := p.Entry(index)
	if err != nil {
		return "", "", err
	}
	nat, ok := entry.(*ConstantNameAndType)
	if !ok {
		return "", "", jvmerrors.UnexpectedConstant(index, "NameAndType", entry.Tag())
	}
	name, err = p.Utf8(nat.NameIndex)
	if err != nil {
		return "", "", fmt.Errorf("resolving name: %w", err)
	}
	descriptor, err = p.Utf8(nat.DescriptorIndex)
	if err != nil {
		return "", "", fmt.Errorf("resolving descriptor: %w", err)
	}
	return name, descriptor, nil
}

// MethodRefInfo holds resolved method reference info.
type MethodRefInfo struct {
	ClassName  string
	MethodName string
	Descriptor string
}

func (m *MethodRefInfo) String() string {
	return m.ClassName + "." + m.MethodName + ":" + m.Descriptor
}

// ResolveMethodref resolves a CONSTANT_Methodref entry.
func (p ConstantPool) ResolveMethodref(index uint16) (*MethodRefInfo, error) {
	entry, err := p.Entry(index)
	if err != nil {
		return nil, err
	}
	mref, ok := entry.(*ConstantMethodref)
	if !ok {
		return nil, jvmerrors.UnexpectedConstant(index, "Methodref", entry.Tag())
	}

	className, err := p.ClassName(mref.ClassIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving Methodref class: %w", err)
	}
	methodName, descriptor, err := p.NameAndType(mref.NameAndTypeIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving Methodref name and type: %w", err)
	}

	return &MethodRefInfo{
		ClassName:  className,
		MethodName: methodName,
		Descriptor: descriptor,
	}, nil
}

// FieldRefInfo holds resolved field reference info.
type FieldRefInfo struct {
	ClassName  string
	FieldName  string
	Descriptor string
}

func (f *FieldRefInfo) String() string {
	return f.ClassName + "." + f.FieldName + ":" + f.Descriptor
}

// ResolveFieldref resolves a CONSTANT_Fieldref entry.
func (p ConstantPool) ResolveFieldref(index uint16) (*FieldRefInfo, error) {
	entry, err := p.Entry(index)
	if err != nil {
		return nil, err
	}
	fref, ok := entry.(*ConstantFieldref)
	if !ok {
		return nil, jvmerrors.UnexpectedConstant(index, "Fieldref", entry.Tag())
	}

	className, err := p.ClassName(fref.ClassIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving Fieldref class: %w", err)
	}
	fieldName, descriptor, err := p.NameAndType(fref.NameAndTypeIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving Fieldref name and type: %w", err)
	}

	return &FieldRefInfo{
		ClassName:  className,
		FieldName:  fieldName,
		Descriptor: descriptor,
	}, nil
}
