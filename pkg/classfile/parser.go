package classfile

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	jvmerrors "github.com/daimatz/minijvm/pkg/errors"
)

const classMagic = 0xCAFEBABE

// ParseFile reads and parses a .class file from the given path.
func ParseFile(path string) (*ClassFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// ParseReader reads r to EOF and parses the result.
func ParseReader(r io.Reader) (*ClassFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading class file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a class file. The returned ClassFile takes ownership of
// data; the caller must not modify it afterwards.
func Parse(data []byte) (*ClassFile, error) {
	r := NewReader(data)
	cf := &ClassFile{raw: data}
	log := Logger()

	// Magic number
	magic, err := r.ReadU32("magic")
	if err != nil {
		return nil, err
	}
	if magic != classMagic {
		return nil, jvmerrors.BadMagic(magic)
	}

	// Version
	if cf.MinorVersion, err = r.ReadU16("minor_version"); err != nil {
		return nil, err
	}
	if cf.MajorVersion, err = r.ReadU16("major_version"); err != nil {
		return nil, err
	}
	log.Debug("class file header",
		zap.Int("bytes", len(data)),
		zap.Uint16("major", cf.MajorVersion),
		zap.Uint16("minor", cf.MinorVersion))

	// Constant pool
	cpCount, err := r.ReadU16("constant_pool_count")
	if err != nil {
		return nil, err
	}
	if cf.pool, err = decodeConstantPool(r, cpCount); err != nil {
		return nil, fmt.Errorf("parsing constant pool: %w", err)
	}

	// Access flags, this_class, super_class
	if cf.AccessFlags, err = r.ReadU16("access_flags"); err != nil {
		return nil, err
	}
	if cf.ThisClass, err = r.ReadU16("this_class"); err != nil {
		return nil, err
	}
	if cf.SuperClass, err = r.ReadU16("super_class"); err != nil {
		return nil, err
	}

	// Interfaces and fields are rejected, not skipped.
	interfacesCount, err := r.ReadU16("interfaces_count")
	if err != nil {
		return nil, err
	}
	if interfacesCount != 0 {
		return nil, jvmerrors.UnsupportedFeature("interfaces", interfacesCount)
	}
	fieldsCount, err := r.ReadU16("fields_count")
	if err != nil {
		return nil, err
	}
	if fieldsCount != 0 {
		return nil, jvmerrors.UnsupportedFeature("fields", fieldsCount)
	}

	// Methods
	methodsCount, err := r.ReadU16("methods_count")
	if err != nil {
		return nil, err
	}
	cf.Methods = make([]*Method, 0, methodsCount)
	cf.methodsByName = make(map[string]*Method, methodsCount)
	for i := uint16(0); i < methodsCount; i++ {
		m, err := decodeMethod(r, cf.pool)
		if err != nil {
			return nil, fmt.Errorf("parsing method %d: %w", i, err)
		}
		if prev, ok := cf.methodsByName[m.Name]; ok {
			log.Warn("method name collision, later declaration shadows earlier",
				zap.String("method", m.Name),
				zap.String("shadowed", prev.Descriptor),
				zap.String("descriptor", m.Descriptor))
		}
		cf.Methods = append(cf.Methods, m)
		cf.methodsByName[m.Name] = m
		log.Debug("method",
			zap.String("name", m.Name),
			zap.String("descriptor", m.Descriptor),
			zap.Int("attributes", len(m.Attributes)),
			zap.Int("offset", r.Position()))
	}

	// Class-level attributes
	attrCount, err := r.ReadU16("attributes_count")
	if err != nil {
		return nil, err
	}
	if cf.Attributes, err = decodeAttributes(r, cf.pool, attrCount); err != nil {
		return nil, fmt.Errorf("parsing class attributes: %w", err)
	}

	if n := r.Remaining(); n > 0 {
		log.Warn("trailing bytes after class attributes", zap.Int("bytes", n))
	}

	return cf, nil
}
