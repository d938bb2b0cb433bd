package vm

import (
	"github.com/quilldsl/quill/internal/bytecode"
	"github.com/quilldsl/quill/internal/value"
)

// Host is the external collaborator the VM consumes: a widget tree, a
// reactive state store, a procedure table, and asynchronous fetch. Its
// internals (how a "widget" actually renders) are deliberately out of
// scope for this package — internal/runtime provides the concrete
// implementation.
//
// SetState is responsible for firing that variable's watchers, in
// registration order, before returning — the VM's SET_STATE opcode
// does nothing more than call it.
type Host interface {
	SetState(name string, v value.Value)
	GetState(name string) (value.Value, bool)

	CreateWidget(name, widgetType string, options value.Value)
	UpdateWidget(name string, options value.Value)
	PackWidget(name string, options value.Value)

	BindWidget(widgetName string, handlers map[string]*bytecode.Chunk)
	WatchState(name string, chunk *bytecode.Chunk)

	DefineProc(name string, params []string, chunk *bytecode.Chunk)
	LookupProc(name string) (params []string, chunk *bytecode.Chunk, ok bool)

	HTTPGet(url string, callbacks map[string]*bytecode.Chunk)
	RPCCall(method, url string, callbacks map[string]*bytecode.Chunk)
}
