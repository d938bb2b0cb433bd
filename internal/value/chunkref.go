package value

import "github.com/quilldsl/quill/internal/bytecode"

// ChunkRef is a runtime reference to a compiled nested chunk — the
// stack value DEF_BLOCK produces, later consumed by BIND_WIDGET,
// WATCH_STATE, DEF_PROC, HTTP_GET, or RPC_CALL.
type ChunkRef struct {
	Chunk *bytecode.Chunk
}

func (ChunkRef) value()          {}
func (ChunkRef) Inspect() string { return "<chunk>" }

// FromConstant converts a pooled bytecode.Constant into its runtime
// Value representation. Scalars map directly; ObjectLiteral and
// ListLiteral are expanded recursively into their runtime Object/List
// counterparts; a Chunk constant becomes a ChunkRef.
func FromConstant(c bytecode.Constant) Value {
	switch k := c.(type) {
	case bytecode.ConstString:
		return String(k)
	case bytecode.ConstNumber:
		return Number(k)
	case bytecode.ConstObject:
		obj := NewObject()
		for i, key := range k.Keys {
			obj.Set(key, FromConstant(k.Values[i]))
		}
		return obj
	case bytecode.ConstList:
		items := make([]Value, len(k.Items))
		for i, item := range k.Items {
			items[i] = FromConstant(item)
		}
		return List{Items: items}
	case bytecode.ConstChunk:
		return ChunkRef{Chunk: k.Chunk}
	default:
		return Null{}
	}
}
