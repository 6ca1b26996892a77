package vm

import (
	"errors"
	"testing"

	jvmerrors "github.com/daimatz/minijvm/pkg/errors"
)

func TestFramePushPop(t *testing.T) {
	t.Run("LIFO order", func(t *testing.T) {
		frame := NewFrame(0, 3, nil, nil)
		for _, v := range []int32{10, 20, 30} {
			if err := frame.Push(IntValue(v)); err != nil {
				t.Fatalf("Push(%d): %v", v, err)
			}
		}

		for _, want := range []int32{30, 20, 10} {
			v, err := frame.Pop()
			if err != nil {
				t.Fatalf("Pop: %v", err)
			}
			if v.Int != want {
				t.Errorf("Pop: got %d, want %d", v.Int, want)
			}
		}
		if frame.StackDepth() != 0 {
			t.Errorf("depth after draining: got %d", frame.StackDepth())
		}
	})

	t.Run("push after pop reuses space", func(t *testing.T) {
		frame := NewFrame(0, 2, nil, nil)
		frame.Push(IntValue(1))
		frame.Push(IntValue(2))
		frame.Pop()

		if err := frame.Push(IntValue(3)); err != nil {
			t.Fatalf("Push: %v", err)
		}
		if v, _ := frame.Pop(); v.Int != 3 {
			t.Errorf("got %d, want 3", v.Int)
		}
		if v, _ := frame.Pop(); v.Int != 1 {
			t.Errorf("got %d, want 1", v.Int)
		}
	})

	t.Run("reference values", func(t *testing.T) {
		obj := NewObject("Foo")
		frame := NewFrame(0, 1, nil, nil)
		frame.Push(RefValue(obj))

		v, err := frame.Pop()
		if err != nil {
			t.Fatal(err)
		}
		if v.Type != TypeRef || v.Ref != obj {
			t.Errorf("got %+v, want reference to %p", v, obj)
		}
	})
}

func TestFrameStackBounds(t *testing.T) {
	frame := NewFrame(1, 1, nil, nil)
	if err := frame.Push(IntValue(1)); err != nil {
		t.Fatal(err)
	}
	if err := frame.Push(IntValue(2)); !errors.Is(err, jvmerrors.ErrStackOverflow) {
		t.Errorf("Push past max_stack: got %v, want stack overflow", err)
	}
	if frame.StackDepth() != 1 {
		t.Errorf("depth after failed push: got %d, want 1", frame.StackDepth())
	}

	frame.Pop()
	if _, err := frame.Pop(); !errors.Is(err, jvmerrors.ErrStackUnderflow) {
		t.Errorf("Pop on empty stack: got %v, want stack underflow", err)
	}

	empty := NewFrame(1, 0, nil, nil)
	if err := empty.Push(IntValue(1)); !errors.Is(err, jvmerrors.ErrStackOverflow) {
		t.Errorf("Push with max_stack 0: got %v, want stack overflow", err)
	}
}

func TestFrameLocals(t *testing.T) {
	frame := NewFrame(2, 0, nil, nil)
	if err := frame.SetLocal(1, IntValue(7)); err != nil {
		t.Fatal(err)
	}
	v, err := frame.GetLocal(1)
	if err != nil || v.Int != 7 {
		t.Errorf("GetLocal(1): got %+v, %v", v, err)
	}

	for _, idx := range []int{-1, 2, 100} {
		if _, err := frame.GetLocal(idx); !errors.Is(err, jvmerrors.ErrLocalOutOfRange) {
			t.Errorf("GetLocal(%d): got %v, want local out of range", idx, err)
		}
		if err := frame.SetLocal(idx, IntValue(0)); !errors.Is(err, jvmerrors.ErrLocalOutOfRange) {
			t.Errorf("SetLocal(%d): got %v, want local out of range", idx, err)
		}
	}
}

func TestNewFrameReservesReceiverSlot(t *testing.T) {
	frame := NewFrame(0, 0, nil, nil)
	if len(frame.LocalVars) != 1 {
		t.Fatalf("locals: got %d, want 1", len(frame.LocalVars))
	}
	if err := frame.SetLocal(0, RefValue(NewObject("A"))); err != nil {
		t.Errorf("SetLocal(0): %v", err)
	}
	if frame.State != StateFetch {
		t.Errorf("initial state: got %s, want fetch", frame.State)
	}
}

func TestFrameReadOperands(t *testing.T) {
	frame := NewFrame(1, 0, []byte{0x01, 0x00, 0xAB, 0xCD}, nil)

	v, err := frame.ReadU16()
	if err != nil || v != 256 {
		t.Errorf("ReadU16: got %d, %v, want 256", v, err)
	}
	b, err := frame.ReadU8()
	if err != nil || b != 0xAB {
		t.Errorf("ReadU8: got %#x, %v", b, err)
	}
	if frame.PC != 3 {
		t.Errorf("PC: got %d, want 3", frame.PC)
	}

	if _, err := frame.ReadU16(); !errors.Is(err, jvmerrors.ErrTruncated) {
		t.Errorf("ReadU16 past end: got %v, want truncated", err)
	}
	if frame.PC != 3 {
		t.Errorf("PC moved on failed read: %d", frame.PC)
	}
	frame.ReadU8()
	if _, err := frame.ReadU8(); !errors.Is(err, jvmerrors.ErrTruncated) {
		t.Errorf("ReadU8 past end: got %v, want truncated", err)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateFetch, "fetch"},
		{StateDecode, "decode"},
		{StateExecute, "execute"},
		{StateReturn, "return"},
		{StateFail, "fail"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d): got %q, want %q", int(tt.state), got, tt.want)
		}
	}
	if TypeInt.String() != "int" || TypeRef.String() != "reference" {
		t.Errorf("ValueType strings: %s, %s", TypeInt, TypeRef)
	}
}
