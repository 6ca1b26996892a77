// Package errors provides the structured error type shared by the class file
// decoder, the interpreter and the class loader.
//
// Every error carries a Phase (where it happened) and a Kind (what went
// wrong). Errors compare with errors.Is by Kind, so callers can match on the
// package-level sentinels regardless of detail or wrapping:
//
//	if errors.Is(err, jvmerrors.ErrUnsupportedOpcode) { ... }
package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDecode  Phase = "decode"  // raw bytes to class model
	PhaseResolve Phase = "resolve" // constant pool symbolic resolution
	PhaseExecute Phase = "execute" // bytecode interpretation
	PhaseLoad    Phase = "load"    // locating and reading class files
)

// Kind categorizes the error
type Kind string

const (
	KindBadMagic                   Kind = "bad_magic"
	KindUnsupportedConstantTag     Kind = "unsupported_constant_tag"
	KindInvalidUTF8                Kind = "invalid_utf8"
	KindExpectedUtf8               Kind = "expected_utf8"
	KindUnexpectedConstant         Kind = "unexpected_constant"
	KindMissingConstantPoolEntry   Kind = "missing_constant_pool_entry"
	KindUnsupportedAttribute       Kind = "unsupported_attribute"
	KindUnsupportedFeature         Kind = "unsupported_feature"
	KindUnsupportedOpcode          Kind = "unsupported_opcode"
	KindUnsupportedDynamicDispatch Kind = "unsupported_dynamic_dispatch"
	KindMissingMethod              Kind = "missing_method"
	KindMissingCode                Kind = "missing_code"
	KindTruncated                  Kind = "truncated"
	KindStackOverflow              Kind = "stack_overflow"
	KindStackUnderflow             Kind = "stack_underflow"
	KindLocalOutOfRange            Kind = "local_out_of_range"
	KindTypeMismatch               Kind = "type_mismatch"
	KindNotFound                   Kind = "not_found"
)

// Sentinels for errors.Is. They carry no phase, so they match an error of
// the same kind raised in any phase.
var (
	ErrBadMagic                   = &Error{Kind: KindBadMagic}
	ErrUnsupportedConstantTag     = &Error{Kind: KindUnsupportedConstantTag}
	ErrInvalidUTF8                = &Error{Kind: KindInvalidUTF8}
	ErrExpectedUtf8               = &Error{Kind: KindExpectedUtf8}
	ErrUnexpectedConstant         = &Error{Kind: KindUnexpectedConstant}
	ErrMissingConstantPoolEntry   = &Error{Kind: KindMissingConstantPoolEntry}
	ErrUnsupportedAttribute       = &Error{Kind: KindUnsupportedAttribute}
	ErrUnsupportedFeature         = &Error{Kind: KindUnsupportedFeature}
	ErrUnsupportedOpcode          = &Error{Kind: KindUnsupportedOpcode}
	ErrUnsupportedDynamicDispatch = &Error{Kind: KindUnsupportedDynamicDispatch}
	ErrMissingMethod              = &Error{Kind: KindMissingMethod}
	ErrMissingCode                = &Error{Kind: KindMissingCode}
	ErrTruncated                  = &Error{Kind: KindTruncated}
	ErrStackOverflow              = &Error{Kind: KindStackOverflow}
	ErrStackUnderflow             = &Error{Kind: KindStackUnderflow}
	ErrLocalOutOfRange            = &Error{Kind: KindLocalOutOfRange}
	ErrTypeMismatch               = &Error{Kind: KindTypeMismatch}
	ErrNotFound                   = &Error{Kind: KindNotFound}
)

// Error is the structured error type used throughout minijvm
type Error struct {
	// Value is the offending datum: a tag byte, an opcode, an index or a name.
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target without a phase
// matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Phase == "" || t.Phase == e.Phase
}

// BadMagic reports a class file that does not start with 0xCAFEBABE.
func BadMagic(magic uint32) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindBadMagic,
		Detail: fmt.Sprintf("got 0x%08X, want 0xCAFEBABE", magic),
		Value:  magic,
	}
}

// UnsupportedConstantTag reports a constant pool tag the decoder has no
// routine for.
func UnsupportedConstantTag(tag uint8, index uint16) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindUnsupportedConstantTag,
		Detail: fmt.Sprintf("tag %d at constant pool index %d", tag, index),
		Value:  tag,
	}
}

// InvalidUTF8 reports a Utf8 constant whose bytes are not valid UTF-8.
func InvalidUTF8(index uint16, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindInvalidUTF8,
		Detail: fmt.Sprintf("constant pool index %d: invalid UTF-8 sequence %x", index, preview),
		Value:  index,
	}
}

// ExpectedUtf8 reports a pool index that should hold a Utf8 entry but holds
// another variant.
func ExpectedUtf8(index uint16, tag uint8) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindExpectedUtf8,
		Detail: fmt.Sprintf("constant pool index %d has tag %d", index, tag),
		Value:  index,
	}
}

// UnexpectedConstant reports a pool index holding the wrong variant for a
// non-Utf8 expectation (Class, NameAndType, Fieldref, Methodref).
func UnexpectedConstant(index uint16, want string, tag uint8) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindUnexpectedConstant,
		Detail: fmt.Sprintf("constant pool index %d: want %s, got tag %d", index, want, tag),
		Value:  index,
	}
}

// MissingConstantPoolEntry reports a reference to an index with no entry.
func MissingConstantPoolEntry(index uint16) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindMissingConstantPoolEntry,
		Detail: fmt.Sprintf("no entry at constant pool index %d", index),
		Value:  index,
	}
}

// UnsupportedAttribute reports an attribute name without a decoder.
func UnsupportedAttribute(name string) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindUnsupportedAttribute,
		Detail: fmt.Sprintf("attribute %q", name),
		Value:  name,
	}
}

// UnsupportedFeature reports a structural class file feature that is
// rejected outright, such as "interfaces" or "fields".
func UnsupportedFeature(feature string, count uint16) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindUnsupportedFeature,
		Detail: fmt.Sprintf("%s (count %d)", feature, count),
		Value:  feature,
	}
}

// UnsupportedOpcode reports an opcode outside the interpreted subset.
func UnsupportedOpcode(op byte, pc int) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindUnsupportedOpcode,
		Detail: fmt.Sprintf("opcode 0x%02x at pc %d", op, pc),
		Value:  op,
	}
}

// UnsupportedDynamicDispatch reports an invocation target that would
// require loading and running another class's code.
func UnsupportedDynamicDispatch(className, methodName, descriptor string) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindUnsupportedDynamicDispatch,
		Detail: fmt.Sprintf("%s.%s:%s", className, methodName, descriptor),
		Value:  className + "." + methodName + ":" + descriptor,
	}
}

// MissingMethod reports a lookup of a method name the class does not have.
func MissingMethod(name string) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindMissingMethod,
		Detail: fmt.Sprintf("method %q not found", name),
		Value:  name,
	}
}

// MissingCode reports a method selected for interpretation that has no
// Code attribute.
func MissingCode(name string) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindMissingCode,
		Detail: fmt.Sprintf("method %q has no Code attribute", name),
		Value:  name,
	}
}

// Truncated reports a read of n bytes at pos that runs past the end of a
// buffer of the given length.
func Truncated(phase Phase, what string, pos, n, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTruncated,
		Detail: fmt.Sprintf("%s: need %d bytes at position %d, have %d", what, n, pos, length-pos),
		Value:  pos,
	}
}

// StackOverflow reports a push onto a full operand stack.
func StackOverflow(max int) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindStackOverflow,
		Detail: fmt.Sprintf("operand stack full (max %d)", max),
		Value:  max,
	}
}

// StackUnderflow reports a pop from an empty operand stack.
func StackUnderflow() *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindStackUnderflow,
		Detail: "operand stack empty",
	}
}

// LocalOutOfRange reports an access to a local variable slot beyond the
// frame's capacity.
func LocalOutOfRange(index, max int) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindLocalOutOfRange,
		Detail: fmt.Sprintf("local variable index %d out of range (max %d)", index, max),
		Value:  index,
	}
}

// TypeMismatch reports an operand of the wrong variant.
func TypeMismatch(what, want, got string) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindTypeMismatch,
		Detail: fmt.Sprintf("%s: want %s, got %s", what, want, got),
	}
}

// NotFound reports a class the loader could not locate.
func NotFound(name string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("class %s", name),
		Value:  name,
		Cause:  cause,
	}
}
