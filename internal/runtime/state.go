// Package runtime implements vm.Host: the reactive state store, widget
// tree, procedure table, and the asynchronous HTTP/RPC bridges the
// language's http.get and rpc.call commands schedule work against.
//
// Its state store is grounded on the teacher's Environment
// (internal/evaluator/environment.go): an RWMutex-guarded map with a
// plain Get/Set pair, generalized here with a registration-ordered
// watcher list per name so SetState can fire watchers synchronously
// before returning, per the VM's Host contract.
package runtime

import (
	"sync"

	"github.com/quilldsl/quill/internal/bytecode"
	"github.com/quilldsl/quill/internal/value"
	"github.com/quilldsl/quill/internal/vm"
)

// stateStore is the reactive variable table: values plus, per name, the
// watcher chunks registered against it in declaration order.
type stateStore struct {
	mu       sync.RWMutex
	values   map[string]value.Value
	watchers map[string][]*bytecode.Chunk
}

func newStateStore() *stateStore {
	return &stateStore{
		values:   make(map[string]value.Value),
		watchers: make(map[string][]*bytecode.Chunk),
	}
}

func (s *stateStore) get(name string) (value.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

// set stores v and returns the watcher chunks registered for name, in
// registration order, so the caller can run them outside the lock.
func (s *stateStore) set(name string, v value.Value) []*bytecode.Chunk {
	s.mu.Lock()
	s.values[name] = v
	watchers := append([]*bytecode.Chunk(nil), s.watchers[name]...)
	s.mu.Unlock()
	return watchers
}

func (s *stateStore) watch(name string, chunk *bytecode.Chunk) {
	s.mu.Lock()
	s.watchers[name] = append(s.watchers[name], chunk)
	s.mu.Unlock()
}

// SetState stores v for name, then runs every watcher registered
// against name, depth-first and in registration order, before
// returning — this is where the language's reactivity actually lives;
// the VM's SET_STATE opcode is a thin wrapper around this call.
func (h *Host) SetState(name string, v value.Value) {
	watchers := h.state.set(name, v)
	for _, chunk := range watchers {
		if err := vm.Run(chunk, h, nil); err != nil {
			h.logf("watcher for %q failed: %v", name, err)
		}
	}
}

// GetState returns the current value of name and whether it has ever
// been set.
func (h *Host) GetState(name string) (value.Value, bool) {
	return h.state.get(name)
}

// WatchState registers chunk to run, depth-first, every time name is
// next set via SetState.
func (h *Host) WatchState(name string, chunk *bytecode.Chunk) {
	h.state.watch(name, chunk)
}
