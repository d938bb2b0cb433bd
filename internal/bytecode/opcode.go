// Package bytecode defines the instruction set, chunk representation,
// and constant pool the compiler emits and the VM executes.
package bytecode

// Opcode identifies a single VM instruction.
type Opcode byte

const (
	// PUSH_CONST k pushes constants[k].
	PUSH_CONST Opcode = iota
	// PUSH_VAR k pushes state[constants[k]], or null if absent.
	PUSH_VAR
	// POP discards the top of the stack.
	POP
	// SET_STATE pops name then value, writes state[name] = value, and
	// fires that name's watchers in registration order.
	SET_STATE
	// BUILD_OBJ n pops n (value, key) pairs and pushes an object.
	BUILD_OBJ
	// CREATE_WIDGET pops name, type, options and registers a widget.
	CREATE_WIDGET
	// UPDATE_WIDGET pops name, options and applies a conf update.
	UPDATE_WIDGET
	// PACK_WIDGET pops name, options and applies a layout update.
	PACK_WIDGET
	// DEF_BLOCK k pushes constants[k], expected to be a Chunk.
	DEF_BLOCK
	// BIND_WIDGET n pops a widget name then n (chunk, eventName) pairs
	// and registers the handlers.
	BIND_WIDGET
	// WATCH_STATE pops varName then chunk and registers a watcher.
	WATCH_STATE
	// DEF_PROC n pops procName, then n param names (reverse order), then
	// chunk, and registers a procedure.
	DEF_PROC
	// CALL_PROC n pops procName then n arguments (reverse order) and
	// invokes the named procedure.
	CALL_PROC
	// HTTP_GET n pops url then n (chunk, callbackName) pairs and
	// schedules an asynchronous fetch.
	HTTP_GET
	// RPC_CALL n pops url, methodName, then n (chunk, callbackName)
	// pairs and schedules an asynchronous unary gRPC call.
	RPC_CALL
)

var opcodeNames = map[Opcode]string{
	PUSH_CONST:     "PUSH_CONST",
	PUSH_VAR:       "PUSH_VAR",
	POP:            "POP",
	SET_STATE:      "SET_STATE",
	BUILD_OBJ:      "BUILD_OBJ",
	CREATE_WIDGET:  "CREATE_WIDGET",
	UPDATE_WIDGET:  "UPDATE_WIDGET",
	PACK_WIDGET:    "PACK_WIDGET",
	DEF_BLOCK:      "DEF_BLOCK",
	BIND_WIDGET:    "BIND_WIDGET",
	WATCH_STATE:    "WATCH_STATE",
	DEF_PROC:       "DEF_PROC",
	CALL_PROC:      "CALL_PROC",
	HTTP_GET:       "HTTP_GET",
	RPC_CALL:       "RPC_CALL",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "UNKNOWN_OPCODE"
}

// HasOperand reports whether op carries a 2-byte immediate operand
// (a constant-pool index or an arity count).
func (op Opcode) HasOperand() bool {
	switch op {
	case PUSH_CONST, PUSH_VAR, BUILD_OBJ, DEF_BLOCK, BIND_WIDGET, DEF_PROC, CALL_PROC, HTTP_GET, RPC_CALL:
		return true
	default:
		return false
	}
}
