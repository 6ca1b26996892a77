package classfile

// Access flags
const (
	AccPublic    = 0x0001
	AccPrivate   = 0x0002
	AccProtected = 0x0004
	AccStatic    = 0x0008
	AccFinal     = 0x0010
	AccSuper     = 0x0020
)

// ObjectClassName is the root class every supported class extends.
const ObjectClassName = "java/lang/Object"

// ClassFile is a decoded .class file. It owns the raw buffer it was parsed
// from; Utf8 constants and Code attributes are views into that buffer.
// A ClassFile is never modified after Parse returns.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16
	// Methods in declaration order.
	Methods    []*Method
	Attributes []Attribute

	raw           []byte
	pool          ConstantPool
	methodsByName map[string]*Method
}

// Bytes returns the raw class file buffer. Callers must not modify it.
func (cf *ClassFile) Bytes() []byte {
	return cf.raw
}

// ConstantPool returns the decoded constant pool.
func (cf *ClassFile) ConstantPool() ConstantPool {
	return cf.pool
}

// ClassName returns the fully qualified name of this class.
func (cf *ClassFile) ClassName() (string, error) {
	return cf.pool.ClassName(cf.ThisClass)
}

// SuperClassName returns the fully qualified name of the super class.
// Returns "" if the class has no super class (SuperClass == 0).
func (cf *ClassFile) SuperClassName() (string, error) {
	if cf.SuperClass == 0 {
		return "", nil
	}
	return cf.pool.ClassName(cf.SuperClass)
}

// SourceFile returns the name recorded in the class-level SourceFile
// attribute, or "" if there is none.
func (cf *ClassFile) SourceFile() (string, error) {
	for _, attr := range cf.Attributes {
		if sf, ok := attr.(*SourceFileAttribute); ok {
			return cf.pool.Utf8(sf.SourceFileIndex)
		}
	}
	return "", nil
}

// FindMethod returns the method with the given name, or nil.
//
// Methods are keyed by name only. When a class declares overloads, the one
// declared last shadows the others here; all of them remain in Methods.
func (cf *ClassFile) FindMethod(name string) *Method {
	return cf.methodsByName[name]
}

// Method is a decoded method_info structure.
type Method struct {
	AccessFlags     uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Name            string
	Descriptor      string
	Attributes      []Attribute
}

// Code returns the method's Code attribute, or nil if it has none.
func (m *Method) Code() *CodeAttribute {
	for _, attr := range m.Attributes {
		if code, ok := attr.(*CodeAttribute); ok {
			return code
		}
	}
	return nil
}

// IsStatic reports whether ACC_STATIC is set.
func (m *Method) IsStatic() bool {
	return m.AccessFlags&AccStatic != 0
}
