package runtime

import (
	"sync"

	"github.com/quilldsl/quill/internal/bytecode"
)

type procDef struct {
	params []string
	chunk  *bytecode.Chunk
}

type procTable struct {
	mu    sync.RWMutex
	procs map[string]procDef
}

func newProcTable() *procTable {
	return &procTable{procs: make(map[string]procDef)}
}

func (t *procTable) define(name string, params []string, chunk *bytecode.Chunk) {
	t.mu.Lock()
	t.procs[name] = procDef{params: params, chunk: chunk}
	t.mu.Unlock()
}

func (t *procTable) lookup(name string) ([]string, *bytecode.Chunk, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	def, ok := t.procs[name]
	if !ok {
		return nil, nil, false
	}
	return def.params, def.chunk, true
}

// DefineProc registers name as callable with the given positional
// parameters and body.
func (h *Host) DefineProc(name string, params []string, chunk *bytecode.Chunk) {
	h.procs.define(name, params, chunk)
}

// LookupProc resolves a previously defined procedure by name.
func (h *Host) LookupProc(name string) ([]string, *bytecode.Chunk, bool) {
	return h.procs.lookup(name)
}
