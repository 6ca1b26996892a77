// Package dump renders a decoded class file as a human-readable listing or
// as a CBOR summary.
package dump

import (
	"fmt"
	"io"
	"strings"

	"github.com/daimatz/minijvm/pkg/classfile"
)

// Summary is a printable, self-contained view of a class file. It holds no
// references into the class buffer.
type Summary struct {
	MinorVersion uint16          `cbor:"1,keyasint"`
	MajorVersion uint16          `cbor:"2,keyasint"`
	AccessFlags  uint16          `cbor:"3,keyasint"`
	ClassName    string          `cbor:"4,keyasint"`
	SuperName    string          `cbor:"5,keyasint,omitempty"`
	SourceFile   string          `cbor:"6,keyasint,omitempty"`
	Constants    []ConstantEntry `cbor:"7,keyasint"`
	Methods      []MethodEntry   `cbor:"8,keyasint"`
}

// ConstantEntry is one constant pool slot.
type ConstantEntry struct {
	Index uint16 `cbor:"1,keyasint"`
	Tag   uint8  `cbor:"2,keyasint"`
	Text  string `cbor:"3,keyasint"`
}

// MethodEntry describes one declared method.
type MethodEntry struct {
	AccessFlags uint16      `cbor:"1,keyasint"`
	Name        string      `cbor:"2,keyasint"`
	Descriptor  string      `cbor:"3,keyasint"`
	Code        *CodeEntry  `cbor:"4,keyasint,omitempty"`
	Lines       []LineEntry `cbor:"5,keyasint,omitempty"`
}

// CodeEntry holds the Code attribute shape of a method.
type CodeEntry struct {
	MaxStack   uint16 `cbor:"1,keyasint"`
	MaxLocals  uint16 `cbor:"2,keyasint"`
	Length     int    `cbor:"3,keyasint"`
	Exceptions int    `cbor:"4,keyasint,omitempty"`
}

type LineEntry struct {
	StartPC    uint16 `cbor:"1,keyasint"`
	LineNumber uint16 `cbor:"2,keyasint"`
}

// Summarize builds a Summary of cf.
func Summarize(cf *classfile.ClassFile) (*Summary, error) {
	s := &Summary{
		MinorVersion: cf.MinorVersion,
		MajorVersion: cf.MajorVersion,
		AccessFlags:  cf.AccessFlags,
	}

	var err error
	if s.ClassName, err = cf.ClassName(); err != nil {
		return nil, fmt.Errorf("this_class: %w", err)
	}
	if s.SuperName, err = cf.SuperClassName(); err != nil {
		return nil, fmt.Errorf("super_class: %w", err)
	}
	if s.SourceFile, err = cf.SourceFile(); err != nil {
		return nil, fmt.Errorf("source file: %w", err)
	}

	pool := cf.ConstantPool()
	for i := 1; i <= pool.Len(); i++ {
		entry, err := pool.Entry(uint16(i))
		if err != nil {
			continue
		}
		s.Constants = append(s.Constants, ConstantEntry{
			Index: uint16(i),
			Tag:   entry.Tag(),
			Text:  entry.String(),
		})
	}

	for _, m := range cf.Methods {
		me := MethodEntry{
			AccessFlags: m.AccessFlags,
			Name:        m.Name,
			Descriptor:  m.Descriptor,
		}
		if code := m.Code(); code != nil {
			me.Code = &CodeEntry{
				MaxStack:   code.MaxStack,
				MaxLocals:  code.MaxLocals,
				Length:     len(code.Code),
				Exceptions: len(code.ExceptionTable),
			}
			if lnt := code.LineNumberTable(); lnt != nil {
				for _, e := range lnt.Entries {
					me.Lines = append(me.Lines, LineEntry{StartPC: e.StartPC, LineNumber: e.LineNumber})
				}
			}
		}
		s.Methods = append(s.Methods, me)
	}
	return s, nil
}

const rule = "==================================================="

// WriteText prints s in the listing layout used by the command line tool.
func WriteText(w io.Writer, s *Summary) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Class: %s\n", s.ClassName)
	if s.SuperName != "" {
		fmt.Fprintf(&b, "Super class: %s\n", s.SuperName)
	}
	fmt.Fprintf(&b, "Major version: %d, minor version: %d\n", s.MajorVersion, s.MinorVersion)
	fmt.Fprintf(&b, "Access flags: 0x%x\n", s.AccessFlags)

	fmt.Fprintf(&b, "BEGIN Constant Pool (Count: %d)\n%s\n", len(s.Constants), rule)
	for _, c := range s.Constants {
		fmt.Fprintf(&b, "  %d:\t%s\n", c.Index, c.Text)
	}
	fmt.Fprintf(&b, "END Constant Pool\n%s\n", rule)

	fmt.Fprintf(&b, "BEGIN Methods (Count: %d)\n%s\n", len(s.Methods), rule)
	for i, m := range s.Methods {
		fmt.Fprintf(&b, "  %d:\t%s%s flags=0x%04x", i, m.Name, m.Descriptor, m.AccessFlags)
		if m.Code != nil {
			fmt.Fprintf(&b, " max_stack=%d max_locals=%d code_length=%d",
				m.Code.MaxStack, m.Code.MaxLocals, m.Code.Length)
		}
		b.WriteByte('\n')
		for _, l := range m.Lines {
			fmt.Fprintf(&b, "    line %d: pc %d\n", l.LineNumber, l.StartPC)
		}
	}
	fmt.Fprintf(&b, "END Methods\n%s\n", rule)

	if s.SourceFile != "" {
		fmt.Fprintf(&b, "Source file: %s\n", s.SourceFile)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
