// Package vm implements the stack-based virtual machine that executes
// compiled chunks against a Host facade.
//
// Run is reentrant: event handlers, watchers, procedures, and HTTP/RPC
// completion callbacks are all "run this chunk now" one-shots that call
// Run again from inside an opcode handler, each with its own operand
// stack (spec §4.3's stack policy — no state leaks across chunk
// boundaries). The VM itself carries no persistent fields; a fresh
// machine is built for every Run call.
package vm

import (
	"github.com/quilldsl/quill/internal/bytecode"
	"github.com/quilldsl/quill/internal/value"
)

// Run executes chunk to completion against host. bindings, when
// non-nil, are the positional parameter bindings of an in-progress
// CALL_PROC: they shadow host state for the duration of this call, but
// only for names actually present in bindings — the fetch-decode-execute
// loop still asks host for anything bindings doesn't declare.
func Run(chunk *bytecode.Chunk, host Host, bindings map[string]value.Value) error {
	m := &machine{chunk: chunk, host: host, bindings: bindings}
	return m.run()
}

// machine is the per-invocation execution context: one operand stack,
// one instruction pointer, over one chunk.
type machine struct {
	chunk    *bytecode.Chunk
	host     Host
	bindings map[string]value.Value
	stack    []value.Value
}

func (m *machine) push(v value.Value) { m.stack = append(m.stack, v) }

func (m *machine) pop() (value.Value, error) {
	if len(m.stack) == 0 {
		return nil, errf("stack underflow")
	}
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v, nil
}

func (m *machine) popString() (string, error) {
	v, err := m.pop()
	if err != nil {
		return "", err
	}
	s, ok := v.(value.String)
	if !ok {
		return "", errf("expected string operand, got %s", v.Inspect())
	}
	return string(s), nil
}

func (m *machine) popChunkRef() (*bytecode.Chunk, error) {
	v, err := m.pop()
	if err != nil {
		return nil, err
	}
	c, ok := v.(value.ChunkRef)
	if !ok {
		return nil, errf("expected chunk operand, got %s", v.Inspect())
	}
	return c.Chunk, nil
}

// popNamedChunkPairs pops n (chunk, name) pairs pushed by the compiler
// as DEF_BLOCK+name, name-on-top per pair. Popping unwinds them in
// reverse source order; the returned slice is reversed back so callers
// see pairs in source order, per spec §4.3's BIND_WIDGET note (applied
// uniformly to HTTP_GET and RPC_CALL, which share the same emission
// shape).
func (m *machine) popNamedChunkPairs(n int) ([]namedChunk, error) {
	pairs := make([]namedChunk, n)
	for i := n - 1; i >= 0; i-- {
		name, err := m.popString()
		if err != nil {
			return nil, err
		}
		chunk, err := m.popChunkRef()
		if err != nil {
			return nil, err
		}
		pairs[i] = namedChunk{name: name, chunk: chunk}
	}
	return pairs, nil
}

type namedChunk struct {
	name  string
	chunk *bytecode.Chunk
}

func namedChunksToMap(pairs []namedChunk) map[string]*bytecode.Chunk {
	out := make(map[string]*bytecode.Chunk, len(pairs))
	for _, p := range pairs {
		out[p.name] = p.chunk
	}
	return out
}

func (m *machine) run() error {
	ip := 0
	code := m.chunk.Code
	for ip < len(code) {
		op := bytecode.Opcode(code[ip])
		ip++

		var operand int
		if op.HasOperand() {
			if ip+2 > len(code) {
				return errf("truncated instruction stream")
			}
			operand = m.chunk.ReadOperand(ip)
			ip += 2
		}

		if err := m.exec(op, operand); err != nil {
			return err
		}
	}
	return nil
}
