package vm

import (
	"errors"
	"strings"
	"testing"

	"github.com/daimatz/minijvm/pkg/classfile"
	"github.com/daimatz/minijvm/pkg/classfile/classfiletest"
	jvmerrors "github.com/daimatz/minijvm/pkg/errors"
)

func TestRunHelloWorld(t *testing.T) {
	v := buildVM(t, classfiletest.HelloWorld())
	obj := NewObject("HelloWorld")

	if err := v.Run(obj); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, name := range []string{InitMethod, MainMethod} {
		frame, err := v.RunMethod(obj, name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if frame.State != StateReturn {
			t.Errorf("%s state: got %s, want return", name, frame.State)
		}
		if frame.StackDepth() != 0 {
			t.Errorf("%s left %d values on the stack", name, frame.StackDepth())
		}
		if frame.PC != len(frame.Code) {
			t.Errorf("%s PC: got %d, want %d", name, frame.PC, len(frame.Code))
		}
		if frame.Method == nil || frame.Method.Name != name {
			t.Errorf("%s frame bound to wrong method", name)
		}
	}
}

func TestExecuteUsesThisClass(t *testing.T) {
	if err := buildVM(t, classfiletest.HelloWorld()).Execute(); err != nil {
		t.Errorf("Execute: %v", err)
	}
}

func TestRunMissingMainBeforeInit(t *testing.T) {
	b := classfiletest.New()
	b.SetThis("NoMain", classfile.ObjectClassName)
	// <init> would fail if it were interpreted.
	b.AddMethod(0x0001, "<init>", "()V", b.Code(1, 1, []byte{0xFF}, nil))

	err := buildVM(t, b).Run(NewObject("NoMain"))
	if !errors.Is(err, jvmerrors.ErrMissingMethod) {
		t.Fatalf("got %v, want missing method", err)
	}
	var je *jvmerrors.Error
	if !errors.As(err, &je) || je.Value != MainMethod {
		t.Errorf("missing method value: got %v", err)
	}
	if errors.Is(err, jvmerrors.ErrUnsupportedOpcode) {
		t.Error("<init> was interpreted before main was checked")
	}
}

func TestRunMissingInit(t *testing.T) {
	v := buildVM(t, classWithMain(0, bytecode(OpReturn)))
	err := v.Run(NewObject("T"))
	var je *jvmerrors.Error
	if !errors.As(err, &je) || je.Kind != jvmerrors.KindMissingMethod || je.Value != InitMethod {
		t.Errorf("got %v, want missing method <init>", err)
	}
}

func TestRunStopsAfterInitFailure(t *testing.T) {
	b := classfiletest.New()
	b.SetThis("T", classfile.ObjectClassName)
	other := b.Methodref("Base", "<init>", "()V")
	b.AddMethod(0x0001, "<init>", "()V", b.Code(1, 1, []byte{
		OpAload0, OpInvokespecial, byte(other >> 8), byte(other), OpReturn,
	}, nil))
	b.AddMethod(0x0009, "main", "([Ljava/lang/String;)V", b.Code(0, 1, []byte{0xFF}, nil))

	err := buildVM(t, b).Run(NewObject("T"))
	if !errors.Is(err, jvmerrors.ErrUnsupportedDynamicDispatch) {
		t.Fatalf("got %v, want unsupported dynamic dispatch from <init>", err)
	}
	if !strings.HasPrefix(err.Error(), InitMethod) {
		t.Errorf("error should name <init>: %v", err)
	}
}

func TestRunMethodMissingCode(t *testing.T) {
	b := classfiletest.New()
	b.SetThis("T", classfile.ObjectClassName)
	b.AddMethod(0x0109, "main", "([Ljava/lang/String;)V")

	_, err := buildVM(t, b).RunMethod(NewObject("T"), "main")
	if !errors.Is(err, jvmerrors.ErrMissingCode) {
		t.Errorf("got %v, want missing code", err)
	}
}

func TestRunMethodErrorNamesSourceLine(t *testing.T) {
	b := classfiletest.New()
	b.SetThis("T", classfile.ObjectClassName)
	b.AddMethod(0x0009, "main", "([Ljava/lang/String;)V",
		b.Code(1, 1, []byte{OpAload0, 0xFF}, nil, b.LineNumberTable(0, 7)))

	_, err := buildVM(t, b).RunMethod(NewObject("T"), "main")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "main (line 7)") {
		t.Errorf("error should carry method and line: %v", err)
	}
}

func TestRunMethodLocalsFromCode(t *testing.T) {
	// max_locals 0 still binds the receiver.
	b := classfiletest.New()
	b.SetThis("T", classfile.ObjectClassName)
	b.AddMethod(0x0009, "main", "()V", b.Code(1, 0, []byte{OpAload0, OpReturn}, nil))

	obj := NewObject("T")
	frame, err := buildVM(t, b).RunMethod(obj, "main")
	if err != nil {
		t.Fatal(err)
	}
	if frame.OperandStack[0].Ref != obj {
		t.Error("receiver not in local 0")
	}
}
