package vm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/daimatz/minijvm/pkg/classfile"
	jvmerrors "github.com/daimatz/minijvm/pkg/errors"
)

// Entry points run by Run, in order.
const (
	InitMethod = "<init>"
	MainMethod = "main"
)

// VM interprets methods of a single class.
type VM struct {
	ClassFile *classfile.ClassFile
}

// New creates a VM for the given class file.
func New(cf *classfile.ClassFile) *VM {
	return &VM{ClassFile: cf}
}

// Load loads className through loader and returns a VM for it.
func Load(loader ClassLoader, className string) (*VM, error) {
	cf, err := loader.LoadClass(className)
	if err != nil {
		return nil, err
	}
	return New(cf), nil
}

// Execute instantiates the class and runs it.
func (vm *VM) Execute() error {
	name, err := vm.ClassFile.ClassName()
	if err != nil {
		return fmt.Errorf("resolving class name: %w", err)
	}
	return vm.Run(NewObject(name))
}

// Run invokes <init> and then main on obj. A class without main is
// rejected before anything is interpreted.
func (vm *VM) Run(obj *Object) error {
	if vm.ClassFile.FindMethod(MainMethod) == nil {
		return jvmerrors.MissingMethod(MainMethod)
	}
	if _, err := vm.RunMethod(obj, InitMethod); err != nil {
		return err
	}
	if _, err := vm.RunMethod(obj, MainMethod); err != nil {
		return err
	}
	return nil
}

// RunMethod interprets the named method with obj bound to local slot 0 and
// returns the final frame. On failure the frame is returned alongside the
// error with its State set to StateFail.
func (vm *VM) RunMethod(obj *Object, name string) (*Frame, error) {
	method := vm.ClassFile.FindMethod(name)
	if method == nil {
		return nil, jvmerrors.MissingMethod(name)
	}
	code := method.Code()
	if code == nil {
		return nil, jvmerrors.MissingCode(name)
	}

	frame := NewFrame(code.MaxLocals, code.MaxStack, code.Code, vm.ClassFile.ConstantPool())
	frame.Method = method
	if err := frame.SetLocal(0, RefValue(obj)); err != nil {
		return nil, err
	}

	Logger().Debug("invoke",
		zap.String("method", name),
		zap.String("descriptor", method.Descriptor),
		zap.Uint16("max_stack", code.MaxStack),
		zap.Uint16("max_locals", code.MaxLocals))

	if err := vm.executeFrame(frame); err != nil {
		return frame, fmt.Errorf("%s%s: %w", name, lineSuffix(code, frame.PC), err)
	}
	return frame, nil
}

func (vm *VM) executeFrame(frame *Frame) error {
	for {
		pc := frame.PC
		next, err := vm.step(frame)
		if err != nil {
			frame.State = StateFail
			frame.PC = pc
			return err
		}
		if next == StateReturn {
			frame.State = StateReturn
			return nil
		}
	}
}

// lineSuffix renders the source line of pc if the method carries a
// LineNumberTable.
func lineSuffix(code *classfile.CodeAttribute, pc int) string {
	lnt := code.LineNumberTable()
	if lnt == nil {
		return ""
	}
	if line, ok := lnt.LineFor(pc); ok {
		return fmt.Sprintf(" (line %d)", line)
	}
	return ""
}
