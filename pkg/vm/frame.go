package vm

import (
	"github.com/daimatz/minijvm/pkg/classfile"
	jvmerrors "github.com/daimatz/minijvm/pkg/errors"
)

// ValueType represents the type of a Value on the stack or in local variables.
type ValueType int

const (
	TypeInt ValueType = iota
	TypeRef
)

func (t ValueType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeRef:
		return "reference"
	default:
		return "unknown"
	}
}

// Value represents a value on the operand stack or in local variables.
type Value struct {
	Type ValueType
	Int  int32
	Ref  *Object
}

// IntValue creates an integer Value.
func IntValue(v int32) Value {
	return Value{Type: TypeInt, Int: v}
}

// RefValue creates a reference Value.
func RefValue(ref *Object) Value {
	return Value{Type: TypeRef, Ref: ref}
}

// State is a step of the per-frame interpreter state machine.
type State int

const (
	StateFetch State = iota
	StateDecode
	StateExecute
	StateReturn
	StateFail
)

func (s State) String() string {
	switch s {
	case StateFetch:
		return "fetch"
	case StateDecode:
		return "decode"
	case StateExecute:
		return "execute"
	case StateReturn:
		return "return"
	case StateFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Frame represents a stack frame for method execution.
type Frame struct {
	Method       *classfile.Method
	LocalVars    []Value
	OperandStack []Value
	SP           int
	Code         []byte
	PC           int
	State        State
	Pool         classfile.ConstantPool
}

// NewFrame creates a new Frame. At least one local slot is always
// allocated because slot 0 holds the receiver.
func NewFrame(maxLocals, maxStack uint16, code []byte, pool classfile.ConstantPool) *Frame {
	return &Frame{
		LocalVars:    make([]Value, max(int(maxLocals), 1)),
		OperandStack: make([]Value, maxStack),
		Code:         code,
		Pool:         pool,
	}
}

// StackDepth returns the number of values on the operand stack.
func (f *Frame) StackDepth() int {
	return f.SP
}

// Push pushes a value onto the operand stack.
func (f *Frame) Push(v Value) error {
	if f.SP >= len(f.OperandStack) {
		return jvmerrors.StackOverflow(len(f.OperandStack))
	}
	f.OperandStack[f.SP] = v
	f.SP++
	return nil
}

// Pop pops a value from the operand stack.
func (f *Frame) Pop() (Value, error) {
	if f.SP <= 0 {
		return Value{}, jvmerrors.StackUnderflow()
	}
	f.SP--
	return f.OperandStack[f.SP], nil
}

// GetLocal returns the value at the given local variable index.
func (f *Frame) GetLocal(index int) (Value, error) {
	if index < 0 || index >= len(f.LocalVars) {
		return Value{}, jvmerrors.LocalOutOfRange(index, len(f.LocalVars))
	}
	return f.LocalVars[index], nil
}

// SetLocal sets the value at the given local variable index.
func (f *Frame) SetLocal(index int, v Value) error {
	if index < 0 || index >= len(f.LocalVars) {
		return jvmerrors.LocalOutOfRange(index, len(f.LocalVars))
	}
	f.LocalVars[index] = v
	return nil
}

// ReadU8 reads a uint8 operand and advances PC.
func (f *Frame) ReadU8() (uint8, error) {
	if f.PC >= len(f.Code) {
		return 0, jvmerrors.Truncated(jvmerrors.PhaseExecute, "operand", f.PC, 1, len(f.Code))
	}
	val := f.Code[f.PC]
	f.PC++
	return val, nil
}

// ReadU16 reads a uint16 operand (big-endian) and advances PC by 2.
func (f *Frame) ReadU16() (uint16, error) {
	if f.PC+2 > len(f.Code) {
		return 0, jvmerrors.Truncated(jvmerrors.PhaseExecute, "operand", f.PC, 2, len(f.Code))
	}
	val := uint16(f.Code[f.PC])<<8 | uint16(f.Code[f.PC+1])
	f.PC += 2
	return val, nil
}
