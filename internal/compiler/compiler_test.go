package compiler_test

import (
	"testing"

	"github.com/quilldsl/quill/internal/ast"
	"github.com/quilldsl/quill/internal/bytecode"
	"github.com/quilldsl/quill/internal/compiler"
	"github.com/quilldsl/quill/internal/parser"
)

func compile(t *testing.T, src string) *bytecode.Chunk {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	chunk, err := compiler.New().Compile(prog)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return chunk
}

func opsOf(chunk *bytecode.Chunk) []bytecode.Opcode {
	var ops []bytecode.Opcode
	offset := 0
	for offset < len(chunk.Code) {
		op := bytecode.Opcode(chunk.Code[offset])
		ops = append(ops, op)
		if op.HasOperand() {
			offset += 3
		} else {
			offset++
		}
	}
	return ops
}

func TestCompileSetEmitsExactSequence(t *testing.T) {
	chunk := compile(t, `set my_var "hello"`)
	want := []bytecode.Opcode{bytecode.PUSH_CONST, bytecode.PUSH_CONST, bytecode.SET_STATE}
	got := opsOf(chunk)
	if !opsEqual(got, want) {
		t.Fatalf("ops = %v, want %v", got, want)
	}
	if len(chunk.Constants) != 2 {
		t.Fatalf("constants = %v, want 2 entries", chunk.Constants)
	}
	if chunk.Constants[0] != bytecode.ConstString("hello") {
		t.Errorf("constants[0] = %v, want \"hello\"", chunk.Constants[0])
	}
	if chunk.Constants[1] != bytecode.ConstString("my_var") {
		t.Errorf("constants[1] = %v, want \"my_var\"", chunk.Constants[1])
	}
}

func TestCompileWatchNestsChunk(t *testing.T) {
	src := "watch my_var\n  set other_var 1\n"
	chunk := compile(t, src)

	top := opsOf(chunk)
	want := []bytecode.Opcode{bytecode.DEF_BLOCK, bytecode.PUSH_CONST, bytecode.WATCH_STATE}
	if !opsEqual(top, want) {
		t.Fatalf("top ops = %v, want %v", top, want)
	}

	nested := findNestedChunk(t, chunk)
	nestedOps := opsOf(nested)
	wantNested := []bytecode.Opcode{bytecode.PUSH_CONST, bytecode.PUSH_CONST, bytecode.SET_STATE}
	if !opsEqual(nestedOps, wantNested) {
		t.Fatalf("nested ops = %v, want %v", nestedOps, wantNested)
	}
	if len(nested.Constants) != 2 {
		t.Fatalf("nested constants = %v, want [\"1\", \"other_var\"]", nested.Constants)
	}
	if nested.Constants[0] != bytecode.ConstString("1") || nested.Constants[1] != bytecode.ConstString("other_var") {
		t.Errorf("nested constants = %v, want [\"1\", \"other_var\"]", nested.Constants)
	}
}

func TestCompileConstantPoolDeduplication(t *testing.T) {
	chunk := compile(t, "set a \"x\"\nset b \"x\"\n")
	count := 0
	for _, c := range chunk.Constants {
		if c == bytecode.ConstString("x") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("\"x\" appears %d times in the pool, want 1", count)
	}
}

func TestCompileArgumentUniformity(t *testing.T) {
	chunk := compile(t, `conf w -text {$v}`)
	ops := opsOf(chunk)
	hasPushVar := false
	for _, op := range ops {
		if op == bytecode.PUSH_VAR {
			hasPushVar = true
		}
	}
	if !hasPushVar {
		t.Fatalf("expected a PUSH_VAR for the variable substitution, ops = %v", ops)
	}
	// One push per argument: {$v} -> PUSH_VAR, -text -> PUSH_CONST,
	// w -> PUSH_CONST.
	want := []bytecode.Opcode{bytecode.PUSH_VAR, bytecode.PUSH_CONST, bytecode.BUILD_OBJ, bytecode.PUSH_CONST, bytecode.UPDATE_WIDGET}
	if !opsEqual(ops, want) {
		t.Errorf("ops = %v, want %v", ops, want)
	}
}

func TestCompileMissingBlockFails(t *testing.T) {
	_, err := compiler.New().Compile(mustParse(t, "watch my_var\n"))
	if err == nil {
		t.Fatalf("expected a compile error for watch without a block")
	}
	if _, ok := err.(*compiler.CompileError); !ok {
		t.Errorf("error = %T, want *compiler.CompileError", err)
	}
}

func TestCompileWrongAritySetFails(t *testing.T) {
	_, err := compiler.New().Compile(mustParse(t, "set a\n"))
	if err == nil {
		t.Fatalf("expected a compile error for set with one argument")
	}
}

func TestCompileDefaultCommandEmitsCallProc(t *testing.T) {
	chunk := compile(t, `lappend todos {$new_todo_text}`)
	ops := opsOf(chunk)
	want := []bytecode.Opcode{bytecode.PUSH_CONST, bytecode.PUSH_VAR, bytecode.PUSH_CONST, bytecode.CALL_PROC}
	if !opsEqual(ops, want) {
		t.Fatalf("ops = %v, want %v", ops, want)
	}
}

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return prog
}

func opsEqual(a, b []bytecode.Opcode) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func findNestedChunk(t *testing.T, chunk *bytecode.Chunk) *bytecode.Chunk {
	t.Helper()
	for _, c := range chunk.Constants {
		if nested, ok := c.(bytecode.ConstChunk); ok {
			return nested.Chunk
		}
	}
	t.Fatalf("no nested chunk found in constants %v", chunk.Constants)
	return nil
}
