// Package compiler lowers an ast.Program into a bytecode.Chunk: a flat
// instruction stream paired with a deduplicated constant pool.
//
// Each nested block (an event handler, a watcher body, a proc body, an
// HTTP or RPC callback) is compiled by a fresh Compiler with its own
// isolated pool, matching the teacher's pattern of representing a
// recursive compile as a plain function returning a Chunk rather than
// as a thread of shared mutable state.
package compiler

import (
	"github.com/quilldsl/quill/internal/ast"
	"github.com/quilldsl/quill/internal/bytecode"
)

// widgetTypeTags maps a widget-constructor command name to its
// canonical, uppercased type tag.
var widgetTypeTags = map[string]string{
	"l":         "LABEL",
	"label":     "LABEL",
	"b":         "BUTTON",
	"button":    "BUTTON",
	"i":         "INPUT",
	"input":     "INPUT",
	"listbox":   "LISTBOX",
	"canvas":    "CANVAS",
	"c":         "CONTAINER",
	"container": "CONTAINER",
}

// Compiler compiles a single Program (or nested block) into a Chunk.
type Compiler struct{}

// New returns a Compiler ready to compile a top-level program or a
// nested block.
func New() *Compiler {
	return &Compiler{}
}

// Compile lowers program into a top-level Chunk.
func (c *Compiler) Compile(program *ast.Program) (*bytecode.Chunk, error) {
	return c.compileBody(program.Body)
}

// compileBody compiles body as if it were a fresh top-level program,
// isolated from any enclosing chunk's constant pool.
func (c *Compiler) compileBody(body []*ast.Command) (*bytecode.Chunk, error) {
	chunk := bytecode.NewChunk()
	for _, cmd := range body {
		if err := c.compileCommand(chunk, cmd); err != nil {
			return nil, err
		}
	}
	return chunk, nil
}

func (c *Compiler) compileCommand(chunk *bytecode.Chunk, cmd *ast.Command) error {
	switch {
	case cmd.Name == "set":
		return c.compileSet(chunk, cmd)
	case isWidgetConstructor(cmd.Name):
		return c.compileWidgetConstructor(chunk, cmd)
	case cmd.Name == "conf" || cmd.Name == "config":
		return c.compileConfOrPack(chunk, cmd, bytecode.UPDATE_WIDGET)
	case cmd.Name == "pack":
		return c.compileConfOrPack(chunk, cmd, bytecode.PACK_WIDGET)
	case cmd.Name == "bind":
		return c.compileBind(chunk, cmd)
	case cmd.Name == "watch":
		return c.compileWatch(chunk, cmd)
	case cmd.Name == "proc":
		return c.compileProc(chunk, cmd)
	case cmd.Name == "http.get":
		return c.compileHTTPGet(chunk, cmd)
	case cmd.Name == "rpc.call":
		return c.compileRPCCall(chunk, cmd)
	default:
		return c.compileCallProc(chunk, cmd)
	}
}

func isWidgetConstructor(name string) bool {
	_, ok := widgetTypeTags[name]
	return ok
}

func (c *Compiler) compileSet(chunk *bytecode.Chunk, cmd *ast.Command) error {
	if len(cmd.Args) != 2 {
		return &CompileError{Command: cmd.Name, Msg: "expects exactly (name, value)"}
	}
	compileArgument(chunk, cmd.Args[1]) // value
	compileArgument(chunk, cmd.Args[0]) // name
	chunk.Emit(bytecode.SET_STATE, 0)
	return nil
}

func (c *Compiler) compileWidgetConstructor(chunk *bytecode.Chunk, cmd *ast.Command) error {
	if len(cmd.Args) < 1 {
		return &CompileError{Command: cmd.Name, Msg: "requires a widget name"}
	}
	chunk.EmitConst(buildWidgetOptions(cmd))
	chunk.EmitConst(bytecode.ConstString(widgetTypeTags[cmd.Name]))
	compileArgument(chunk, cmd.Args[0])
	chunk.Emit(bytecode.CREATE_WIDGET, 0)
	return nil
}

// buildWidgetOptions assembles the static options object for a widget
// constructor per family, as described in spec §4.2.
func buildWidgetOptions(cmd *ast.Command) bytecode.ConstObject {
	obj := bytecode.ConstObject{}
	switch widgetTypeTags[cmd.Name] {
	case "LABEL", "BUTTON":
		if len(cmd.Args) > 1 {
			obj.Set("label", staticConstant(cmd.Args[1]))
		}
	case "INPUT":
		if len(cmd.Args) > 1 {
			obj.Set("initialText", staticConstant(cmd.Args[1]))
		}
	case "CANVAS":
		if len(cmd.Args) > 1 {
			obj.Set("width", staticConstant(cmd.Args[1]))
		}
		if len(cmd.Args) > 2 {
			obj.Set("height", staticConstant(cmd.Args[2]))
		}
	}
	return obj
}

func (c *Compiler) compileConfOrPack(chunk *bytecode.Chunk, cmd *ast.Command, op bytecode.Opcode) error {
	if len(cmd.Args) < 1 || (len(cmd.Args)-1)%2 != 0 {
		return &CompileError{Command: cmd.Name, Msg: "requires a widget name followed by (option, value) pairs"}
	}
	n := (len(cmd.Args) - 1) / 2
	for i := 0; i < n; i++ {
		optArg := cmd.Args[1+2*i]
		valArg := cmd.Args[2+2*i]
		compileArgument(chunk, valArg)
		compileArgument(chunk, optArg)
	}
	chunk.Emit(bytecode.BUILD_OBJ, n)
	compileArgument(chunk, cmd.Args[0])
	chunk.Emit(op, 0)
	return nil
}

func (c *Compiler) compileBind(chunk *bytecode.Chunk, cmd *ast.Command) error {
	if len(cmd.Args) < 1 {
		return &CompileError{Command: cmd.Name, Msg: "requires a widget name"}
	}
	if cmd.Body == nil {
		return &CompileError{Command: cmd.Name, Msg: "requires a block of event handlers"}
	}
	n, err := c.compileEventPairs(chunk, cmd.Body)
	if err != nil {
		return err
	}
	compileArgument(chunk, cmd.Args[0])
	chunk.Emit(bytecode.BIND_WIDGET, n)
	return nil
}

func (c *Compiler) compileWatch(chunk *bytecode.Chunk, cmd *ast.Command) error {
	if len(cmd.Args) != 1 {
		return &CompileError{Command: cmd.Name, Msg: "expects exactly one variable name"}
	}
	if cmd.Body == nil {
		return &CompileError{Command: cmd.Name, Msg: "requires a block body"}
	}
	nested, err := c.compileBody(cmd.Body)
	if err != nil {
		return err
	}
	idx := chunk.AddConstant(bytecode.ConstChunk{Chunk: nested})
	chunk.Emit(bytecode.DEF_BLOCK, idx)
	compileArgument(chunk, cmd.Args[0])
	chunk.Emit(bytecode.WATCH_STATE, 0)
	return nil
}

func (c *Compiler) compileProc(chunk *bytecode.Chunk, cmd *ast.Command) error {
	if len(cmd.Args) < 1 {
		return &CompileError{Command: cmd.Name, Msg: "requires a procedure name"}
	}
	if cmd.Body == nil {
		return &CompileError{Command: cmd.Name, Msg: "requires a block body"}
	}
	nested, err := c.compileBody(cmd.Body)
	if err != nil {
		return err
	}
	idx := chunk.AddConstant(bytecode.ConstChunk{Chunk: nested})
	chunk.Emit(bytecode.DEF_BLOCK, idx)
	params := cmd.Args[1:]
	for _, p := range params {
		compileArgument(chunk, p)
	}
	compileArgument(chunk, cmd.Args[0])
	chunk.Emit(bytecode.DEF_PROC, len(params))
	return nil
}

func (c *Compiler) compileHTTPGet(chunk *bytecode.Chunk, cmd *ast.Command) error {
	if len(cmd.Args) != 1 {
		return &CompileError{Command: cmd.Name, Msg: "expects exactly one url"}
	}
	if cmd.Body == nil {
		return &CompileError{Command: cmd.Name, Msg: "requires a block of callbacks"}
	}
	n, err := c.compileEventPairs(chunk, cmd.Body)
	if err != nil {
		return err
	}
	compileArgument(chunk, cmd.Args[0])
	chunk.Emit(bytecode.HTTP_GET, n)
	return nil
}

func (c *Compiler) compileRPCCall(chunk *bytecode.Chunk, cmd *ast.Command) error {
	if len(cmd.Args) != 2 {
		return &CompileError{Command: cmd.Name, Msg: "expects exactly (method, url)"}
	}
	if cmd.Body == nil {
		return &CompileError{Command: cmd.Name, Msg: "requires a block of callbacks"}
	}
	n, err := c.compileEventPairs(chunk, cmd.Body)
	if err != nil {
		return err
	}
	compileArgument(chunk, cmd.Args[0]) // method
	compileArgument(chunk, cmd.Args[1]) // url
	chunk.Emit(bytecode.RPC_CALL, n)
	return nil
}

func (c *Compiler) compileCallProc(chunk *bytecode.Chunk, cmd *ast.Command) error {
	for _, a := range cmd.Args {
		compileArgument(chunk, a)
	}
	chunk.EmitConst(bytecode.ConstString(cmd.Name))
	chunk.Emit(bytecode.CALL_PROC, len(cmd.Args))
	return nil
}

// compileEventPairs compiles each child's Body as a fresh nested chunk
// and emits DEF_BLOCK+its event/callback name, in source order. Shared
// by bind (event children), http.get, and rpc.call (callback children).
func (c *Compiler) compileEventPairs(chunk *bytecode.Chunk, children []*ast.Command) (int, error) {
	n := 0
	for _, child := range children {
		nested, err := c.compileBody(child.Body)
		if err != nil {
			return 0, err
		}
		idx := chunk.AddConstant(bytecode.ConstChunk{Chunk: nested})
		chunk.Emit(bytecode.DEF_BLOCK, idx)
		chunk.EmitConst(bytecode.ConstString(child.Name))
		n++
	}
	return n, nil
}

// compileArgument emits a single push for arg: PUSH_CONST for
// identifiers, options, and string literals; PUSH_VAR for a deferred
// variable substitution.
func compileArgument(chunk *bytecode.Chunk, arg ast.Argument) {
	switch a := arg.(type) {
	case ast.VariableSubstitution:
		idx := chunk.AddConstant(bytecode.ConstString(a.Name))
		chunk.Emit(bytecode.PUSH_VAR, idx)
	case ast.StringLiteral:
		chunk.EmitConst(bytecode.ConstString(a.Value))
	case ast.Identifier:
		chunk.EmitConst(bytecode.ConstString(a.Value))
	case ast.Option:
		chunk.EmitConst(bytecode.ConstString(a.Value))
	}
}

// staticConstant embeds arg's textual value directly into a constant
// used inside a widget constructor's static options object. Variable
// substitutions can't be embedded this way — see SPEC_FULL's Open
// Question (c) — so their lexeme is stored verbatim instead of being
// resolved at CREATE_WIDGET time.
func staticConstant(arg ast.Argument) bytecode.Constant {
	switch a := arg.(type) {
	case ast.StringLiteral:
		return bytecode.ConstString(a.Value)
	case ast.Identifier:
		return bytecode.ConstString(a.Value)
	case ast.Option:
		return bytecode.ConstString(a.Value)
	case ast.VariableSubstitution:
		return bytecode.ConstString(a.String())
	default:
		return bytecode.ConstString("")
	}
}
