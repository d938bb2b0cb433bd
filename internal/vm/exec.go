package vm

import (
	"github.com/quilldsl/quill/internal/bytecode"
	"github.com/quilldsl/quill/internal/value"
)

func (m *machine) exec(op bytecode.Opcode, operand int) error {
	switch op {
	case bytecode.PUSH_CONST:
		return m.execPushConst(operand)
	case bytecode.PUSH_VAR:
		return m.execPushVar(operand)
	case bytecode.POP:
		_, err := m.pop()
		return err
	case bytecode.SET_STATE:
		return m.execSetState()
	case bytecode.BUILD_OBJ:
		return m.execBuildObj(operand)
	case bytecode.CREATE_WIDGET:
		return m.execCreateWidget()
	case bytecode.UPDATE_WIDGET:
		return m.execConfLike(m.host.UpdateWidget)
	case bytecode.PACK_WIDGET:
		return m.execConfLike(m.host.PackWidget)
	case bytecode.DEF_BLOCK:
		return m.execDefBlock(operand)
	case bytecode.BIND_WIDGET:
		return m.execBindWidget(operand)
	case bytecode.WATCH_STATE:
		return m.execWatchState()
	case bytecode.DEF_PROC:
		return m.execDefProc(operand)
	case bytecode.CALL_PROC:
		return m.execCallProc(operand)
	case bytecode.HTTP_GET:
		return m.execHTTPGet(operand)
	case bytecode.RPC_CALL:
		return m.execRPCCall(operand)
	default:
		return errf("unknown opcode %d", op)
	}
}

func (m *machine) execPushConst(idx int) error {
	if idx < 0 || idx >= len(m.chunk.Constants) {
		return errf("invalid constant index %d", idx)
	}
	m.push(value.FromConstant(m.chunk.Constants[idx]))
	return nil
}

func (m *machine) execPushVar(idx int) error {
	if idx < 0 || idx >= len(m.chunk.Constants) {
		return errf("invalid constant index %d", idx)
	}
	name, ok := m.chunk.Constants[idx].(bytecode.ConstString)
	if !ok {
		return errf("PUSH_VAR constant %d is not a name", idx)
	}
	if m.bindings != nil {
		if v, ok := m.bindings[string(name)]; ok {
			m.push(v)
			return nil
		}
	}
	if v, ok := m.host.GetState(string(name)); ok {
		m.push(v)
		return nil
	}
	m.push(value.Null{})
	return nil
}

func (m *machine) execSetState() error {
	name, err := m.popString()
	if err != nil {
		return err
	}
	v, err := m.pop()
	if err != nil {
		return err
	}
	m.host.SetState(name, v)
	return nil
}

// execBuildObj pops n (value, key) pairs. Popping unwinds them in
// reverse source order (the compiler pushed value-then-key per pair,
// n times); reversing before insertion restores source order in the
// resulting object's iteration, per SPEC_FULL's Open Question (a)
// decision.
func (m *machine) execBuildObj(n int) error {
	type pair struct {
		key string
		val value.Value
	}
	pairs := make([]pair, n)
	for i := n - 1; i >= 0; i-- {
		key, err := m.popString()
		if err != nil {
			return err
		}
		val, err := m.pop()
		if err != nil {
			return err
		}
		pairs[i] = pair{key: key, val: val}
	}
	obj := value.NewObject()
	for _, p := range pairs {
		obj.Set(p.key, p.val)
	}
	m.push(obj)
	return nil
}

func (m *machine) execCreateWidget() error {
	name, err := m.popString()
	if err != nil {
		return err
	}
	widgetType, err := m.popString()
	if err != nil {
		return err
	}
	options, err := m.pop()
	if err != nil {
		return err
	}
	m.host.CreateWidget(name, widgetType, options)
	return nil
}

func (m *machine) execConfLike(apply func(name string, options value.Value)) error {
	name, err := m.popString()
	if err != nil {
		return err
	}
	options, err := m.pop()
	if err != nil {
		return err
	}
	apply(name, options)
	return nil
}

func (m *machine) execDefBlock(idx int) error {
	if idx < 0 || idx >= len(m.chunk.Constants) {
		return errf("invalid constant index %d", idx)
	}
	c, ok := m.chunk.Constants[idx].(bytecode.ConstChunk)
	if !ok {
		return errf("DEF_BLOCK constant %d is not a chunk", idx)
	}
	m.push(value.ChunkRef{Chunk: c.Chunk})
	return nil
}

func (m *machine) execBindWidget(n int) error {
	widgetName, err := m.popString()
	if err != nil {
		return err
	}
	pairs, err := m.popNamedChunkPairs(n)
	if err != nil {
		return err
	}
	handlers := make(map[string]*bytecode.Chunk, n)
	for _, p := range pairs {
		handlers[stripLeadingDot(p.name)] = p.chunk
	}
	m.host.BindWidget(widgetName, handlers)
	return nil
}

func stripLeadingDot(s string) string {
	if len(s) > 0 && s[0] == '.' {
		return s[1:]
	}
	return s
}

func (m *machine) execWatchState() error {
	varName, err := m.popString()
	if err != nil {
		return err
	}
	chunk, err := m.popChunkRef()
	if err != nil {
		return err
	}
	m.host.WatchState(varName, chunk)
	return nil
}

// execDefProc follows spec.md's table literally: … chunk param₁ …
// paramₙ procName → …. Pop order is name, then n params (reversed back
// to declaration order), then the chunk.
func (m *machine) execDefProc(n int) error {
	name, err := m.popString()
	if err != nil {
		return err
	}
	params := make([]string, n)
	for i := n - 1; i >= 0; i-- {
		p, err := m.popString()
		if err != nil {
			return err
		}
		params[i] = p
	}
	chunk, err := m.popChunkRef()
	if err != nil {
		return err
	}
	m.host.DefineProc(name, params, chunk)
	return nil
}

func (m *machine) execCallProc(n int) error {
	name, err := m.popString()
	if err != nil {
		return err
	}
	args := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		a, err := m.pop()
		if err != nil {
			return err
		}
		args[i] = a
	}
	params, chunk, ok := m.host.LookupProc(name)
	if !ok {
		return errf("call to undefined procedure %q", name)
	}
	bindings := make(map[string]value.Value, len(params))
	for i, p := range params {
		if i < len(args) {
			bindings[p] = args[i]
		} else {
			bindings[p] = value.Null{}
		}
	}
	return Run(chunk, m.host, bindings)
}

func (m *machine) execHTTPGet(n int) error {
	url, err := m.popString()
	if err != nil {
		return err
	}
	pairs, err := m.popNamedChunkPairs(n)
	if err != nil {
		return err
	}
	m.host.HTTPGet(url, namedChunksToMap(pairs))
	return nil
}

func (m *machine) execRPCCall(n int) error {
	url, err := m.popString()
	if err != nil {
		return err
	}
	method, err := m.popString()
	if err != nil {
		return err
	}
	pairs, err := m.popNamedChunkPairs(n)
	if err != nil {
		return err
	}
	m.host.RPCCall(method, url, namedChunksToMap(pairs))
	return nil
}
