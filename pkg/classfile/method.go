package classfile

import (
	"fmt"
)

// decodeMethod reads one method_info structure.
func decodeMethod(r *Reader, pool ConstantPool) (*Method, error) {
	m := &Method{}

	var err error
	if m.AccessFlags, err = r.ReadU16("method access_flags"); err != nil {
		return nil, err
	}
	if m.NameIndex, err = r.ReadU16("method name_index"); err != nil {
		return nil, err
	}
	if m.DescriptorIndex, err = r.ReadU16("method descriptor_index"); err != nil {
		return nil, err
	}
	attrCount, err := r.ReadU16("method attributes_count")
	if err != nil {
		return nil, err
	}

	if m.Name, err = pool.Utf8(m.NameIndex); err != nil {
		return nil, fmt.Errorf("resolving method name: %w", err)
	}
	if m.Descriptor, err = pool.Utf8(m.DescriptorIndex); err != nil {
		return nil, fmt.Errorf("resolving method descriptor: %w", err)
	}

	if m.Attributes, err = decodeAttributes(r, pool, attrCount); err != nil {
		return nil, fmt.Errorf("method %s: %w", m.Name, err)
	}
	return m, nil
}
