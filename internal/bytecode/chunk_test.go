package bytecode_test

import (
	"testing"

	"github.com/quilldsl/quill/internal/bytecode"
)

func TestAddConstantDedupesScalars(t *testing.T) {
	c := bytecode.NewChunk()
	i1 := c.AddConstant(bytecode.ConstString("x"))
	i2 := c.AddConstant(bytecode.ConstString("x"))
	if i1 != i2 {
		t.Errorf("expected dedup, got indices %d and %d", i1, i2)
	}
	if len(c.Constants) != 1 {
		t.Errorf("constants = %v, want 1 entry", c.Constants)
	}
}

func TestAddConstantDedupesObjectsDeeply(t *testing.T) {
	c := bytecode.NewChunk()
	obj1 := bytecode.ConstObject{}
	obj1.Set("label", bytecode.ConstString("Hello"))
	obj2 := bytecode.ConstObject{}
	obj2.Set("label", bytecode.ConstString("Hello"))

	i1 := c.AddConstant(obj1)
	i2 := c.AddConstant(obj2)
	if i1 != i2 {
		t.Errorf("expected structural dedup, got %d and %d", i1, i2)
	}
}

func TestAddConstantNeverDedupesChunks(t *testing.T) {
	c := bytecode.NewChunk()
	nested1 := bytecode.NewChunk()
	nested2 := bytecode.NewChunk()

	i1 := c.AddConstant(bytecode.ConstChunk{Chunk: nested1})
	i2 := c.AddConstant(bytecode.ConstChunk{Chunk: nested2})
	if i1 == i2 {
		t.Errorf("expected distinct indices for distinct chunk pointers, got %d twice", i1)
	}
}

func TestEmitAndReadOperandRoundTrip(t *testing.T) {
	c := bytecode.NewChunk()
	idx := c.AddConstant(bytecode.ConstString("hello"))
	c.Emit(bytecode.PUSH_CONST, idx)
	c.Emit(bytecode.POP, 0)

	if got := bytecode.Opcode(c.Code[0]); got != bytecode.PUSH_CONST {
		t.Fatalf("Code[0] = %s, want PUSH_CONST", got)
	}
	if got := c.ReadOperand(1); got != idx {
		t.Errorf("operand = %d, want %d", got, idx)
	}
	if got := bytecode.Opcode(c.Code[3]); got != bytecode.POP {
		t.Fatalf("Code[3] = %s, want POP", got)
	}
	if c.Len() != 4 {
		t.Errorf("Len() = %d, want 4", c.Len())
	}
}
