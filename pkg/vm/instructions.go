package vm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/daimatz/minijvm/pkg/classfile"
	jvmerrors "github.com/daimatz/minijvm/pkg/errors"
)

// Opcodes
const (
	OpIconst3       = 0x06
	OpAload0        = 0x2A
	OpReturn        = 0xB1
	OpGetstatic     = 0xB2
	OpInvokespecial = 0xB7
)

// instruction describes one supported opcode. exec runs after the opcode
// byte has been consumed; it must consume its own operands so that PC ends
// exactly width bytes past the opcode.
type instruction struct {
	name  string
	width int
	exec  func(vm *VM, frame *Frame) (State, error)
}

// instructionTable is indexed by opcode. A nil entry is an unsupported
// opcode.
var instructionTable = [256]*instruction{
	OpAload0:        {name: "aload_0", width: 1, exec: (*VM).executeAload0},
	OpIconst3:       {name: "iconst_3", width: 1, exec: (*VM).executeIconst3},
	OpGetstatic:     {name: "getstatic", width: 3, exec: (*VM).executeGetstatic},
	OpInvokespecial: {name: "invokespecial", width: 3, exec: (*VM).executeInvokespecial},
	OpReturn:        {name: "return", width: 1, exec: (*VM).executeReturn},
}

// OpcodeName returns the mnemonic of a supported opcode, or "" if the
// opcode is not interpreted.
func OpcodeName(op byte) string {
	if inst := instructionTable[op]; inst != nil {
		return inst.name
	}
	return ""
}

func (vm *VM) executeAload0(frame *Frame) (State, error) {
	v, err := frame.GetLocal(0)
	if err != nil {
		return StateFail, err
	}
	if err := frame.Push(v); err != nil {
		return StateFail, err
	}
	return StateFetch, nil
}

func (vm *VM) executeIconst3(frame *Frame) (State, error) {
	if err := frame.Push(IntValue(3)); err != nil {
		return StateFail, err
	}
	return StateFetch, nil
}

// executeGetstatic resolves the field reference. Static field storage is
// not implemented, so nothing is pushed.
func (vm *VM) executeGetstatic(frame *Frame) (State, error) {
	index, err := frame.ReadU16()
	if err != nil {
		return StateFail, err
	}

	fieldRef, err := frame.Pool.ResolveFieldref(index)
	if err != nil {
		return StateFail, err
	}

	Logger().Debug("getstatic resolved; static field storage not implemented",
		zap.String("class", fieldRef.ClassName),
		zap.String("field", fieldRef.FieldName),
		zap.String("descriptor", fieldRef.Descriptor))
	return StateFetch, nil
}

// executeInvokespecial handles the invokespecial instruction. Only the
// java/lang/Object default constructor can be invoked, and it does nothing.
func (vm *VM) executeInvokespecial(frame *Frame) (State, error) {
	objectRef, err := frame.Pop()
	if err != nil {
		return StateFail, err
	}
	if objectRef.Type != TypeRef {
		return StateFail, jvmerrors.TypeMismatch("invokespecial receiver", TypeRef.String(), objectRef.Type.String())
	}

	index, err := frame.ReadU16()
	if err != nil {
		return StateFail, err
	}

	methodRef, err := frame.Pool.ResolveMethodref(index)
	if err != nil {
		return StateFail, err
	}

	if isObjectInit(methodRef) {
		return StateFetch, nil
	}
	return StateFail, jvmerrors.UnsupportedDynamicDispatch(methodRef.ClassName, methodRef.MethodName, methodRef.Descriptor)
}

func isObjectInit(m *classfile.MethodRefInfo) bool {
	return m.ClassName == classfile.ObjectClassName && m.MethodName == "<init>" && m.Descriptor == "()V"
}

func (vm *VM) executeReturn(_ *Frame) (State, error) {
	return StateReturn, nil
}

// step runs one Fetch → Decode → Execute cycle and returns the state the
// frame moves to.
func (vm *VM) step(frame *Frame) (State, error) {
	frame.State = StateFetch
	pc := frame.PC
	if pc >= len(frame.Code) {
		return StateFail, jvmerrors.Truncated(jvmerrors.PhaseExecute, "code ended without return", pc, 1, len(frame.Code))
	}
	opcode := frame.Code[pc]
	frame.PC++

	frame.State = StateDecode
	inst := instructionTable[opcode]
	if inst == nil {
		return StateFail, jvmerrors.UnsupportedOpcode(opcode, pc)
	}

	frame.State = StateExecute
	next, err := inst.exec(vm, frame)
	if err != nil {
		return StateFail, fmt.Errorf("%s at pc %d: %w", inst.name, pc, err)
	}
	if frame.PC != pc+inst.width {
		return StateFail, fmt.Errorf("%s at pc %d advanced pc to %d, want %d", inst.name, pc, frame.PC, pc+inst.width)
	}

	Logger().Debug("executed",
		zap.String("op", inst.name),
		zap.Int("pc", pc),
		zap.Int("stack", frame.SP))
	return next, nil
}
