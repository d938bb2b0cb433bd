package runtime

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/quilldsl/quill/internal/bytecode"
	"github.com/quilldsl/quill/internal/value"
	"github.com/quilldsl/quill/internal/vm"
)

// discoverProtoFiles walks each import path and returns every .proto
// file found under it, relative to that import path — the form
// protoparse.Parser.ParseFiles expects when ImportPaths is set.
func discoverProtoFiles(importPaths []string) ([]string, error) {
	var files []string
	for _, root := range importPaths {
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || filepath.Ext(path) != ".proto" {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			files = append(files, rel)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}
	}
	return files, nil
}

// protoRegistry holds every service/message descriptor parsed out of
// the .proto files under a set of import paths, ported from the
// teacher's package-level protoRegistry (builtins_grpc.go) and its
// findServiceDescriptor/findMethodDescriptor lookup helpers, wrapped
// in a struct instead of package globals so each Host gets its own.
type protoRegistry struct {
	mu    sync.RWMutex
	files []*desc.FileDescriptor
}

func newProtoRegistry(importPaths []string, logf func(string, ...any)) *protoRegistry {
	r := &protoRegistry{}
	if len(importPaths) == 0 {
		return r
	}
	protoFiles, err := discoverProtoFiles(importPaths)
	if err != nil {
		logf("rpc: scanning proto import paths: %v", err)
		return r
	}
	if len(protoFiles) == 0 {
		return r
	}
	parser := protoparse.Parser{ImportPaths: importPaths}
	fds, err := parser.ParseFiles(protoFiles...)
	if err != nil {
		logf("rpc: parsing proto files: %v", err)
		return r
	}
	r.files = fds
	return r
}

func (r *protoRegistry) findMethod(fullMethod string) (*desc.MethodDescriptor, error) {
	serviceName, methodName, err := splitMethodPath(fullMethod)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, fd := range r.files {
		svc := fd.FindService(serviceName)
		if svc == nil {
			continue
		}
		if method := svc.FindMethodByName(methodName); method != nil {
			return method, nil
		}
	}
	return nil, fmt.Errorf("method %q not found (is its .proto under rpc.protoImportPaths?)", fullMethod)
}

func splitMethodPath(path string) (service, method string, err error) {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "", "", fmt.Errorf("invalid method %q, expected \"package.Service/Method\"", path)
	}
	return path[:idx], path[idx+1:], nil
}

// RPCCall dials url, resolves method against the proto descriptors
// loaded from quill.yaml's rpc.protoImportPaths, builds a request
// message from state.rpc_request, and invokes it. On completion it
// stores the decoded response in state.rpc_response (success) or
// state.error (failure) before invoking the matching ".callback"/".error"
// callback chunk, mirroring HTTPGet's contract. Ported from the
// teacher's builtinGrpcInvoke (builtins_grpc.go), generalized from a
// synchronous Result-returning call to this language's fire-and-forget
// async command shape.
func (h *Host) RPCCall(method, url string, callbacks map[string]*bytecode.Chunk) {
	requestID := uuid.NewString()
	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		h.logf("rpc.call %s %s started (request %s)", method, url, requestID)

		respValue, err := h.invokeRPC(method, url)
		if err != nil {
			h.SetState("error", value.String(err.Error()))
			h.runCallback(callbacks, ".error", map[string]value.Value{
				"error": value.String(err.Error()),
			}, requestID)
			return
		}
		h.SetState("rpc_response", respValue)
		h.runCallback(callbacks, ".callback", map[string]value.Value{
			"response": respValue,
		}, requestID)
	}()
}

func (h *Host) invokeRPC(method, url string) (value.Value, error) {
	methodDesc, err := h.protos.findMethod(method)
	if err != nil {
		return nil, err
	}
	if methodDesc.IsClientStreaming() || methodDesc.IsServerStreaming() {
		return nil, fmt.Errorf("rpc.call only supports unary methods, %s is streaming", method)
	}

	reqMsg := dynamic.NewMessage(methodDesc.GetInputType())
	if req, ok := h.GetState("rpc_request"); ok {
		if err := populateMessage(reqMsg, req); err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
	}

	conn, err := grpc.NewClient(url, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), h.rpcTimeout)
	defer cancel()

	respMsg := dynamic.NewMessage(methodDesc.GetOutputType())
	if err := conn.Invoke(ctx, "/"+method, reqMsg, respMsg); err != nil {
		return nil, fmt.Errorf("invoking %s: %w", method, err)
	}

	return messageToValue(respMsg), nil
}

// populateMessage sets msg's known fields from req's matching keys.
// Only scalar fields are supported — this language's Value has no
// nested-object literal syntax richer than what BUILD_OBJ produces, so
// there's nothing to feed a nested message field with, matching the
// teacher's own objectToDynamicMessage, which likewise skips fields it
// can't convert rather than failing the whole call.
func populateMessage(msg *dynamic.Message, req value.Value) error {
	obj, ok := req.(*value.Object)
	if !ok {
		return fmt.Errorf("state.rpc_request must be an object, got %s", req.Inspect())
	}
	for _, key := range obj.Keys {
		field := msg.GetMessageDescriptor().FindFieldByName(key)
		if field == nil {
			continue
		}
		v, _ := obj.Get(key)
		protoVal, err := valueToProtoScalar(v, field)
		if err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
		if err := msg.TrySetField(field, protoVal); err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
	}
	return nil
}

func valueToProtoScalar(v value.Value, field *desc.FieldDescriptor) (interface{}, error) {
	switch t := v.(type) {
	case value.String:
		return string(t), nil
	case value.Number:
		return numberToFieldKind(float64(t), field), nil
	case value.Bool:
		return bool(t), nil
	default:
		return nil, fmt.Errorf("unsupported value %s for proto field", v.Inspect())
	}
}

func numberToFieldKind(n float64, field *desc.FieldDescriptor) interface{} {
	switch field.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_FLOAT:
		return float32(n)
	case descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:
		return n
	case descriptorpb.FieldDescriptorProto_TYPE_INT64,
		descriptorpb.FieldDescriptorProto_TYPE_SINT64,
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED64:
		return int64(n)
	case descriptorpb.FieldDescriptorProto_TYPE_UINT64,
		descriptorpb.FieldDescriptorProto_TYPE_FIXED64:
		return uint64(n)
	case descriptorpb.FieldDescriptorProto_TYPE_UINT32,
		descriptorpb.FieldDescriptorProto_TYPE_FIXED32:
		return uint32(n)
	default:
		return int32(n)
	}
}

// messageToValue converts a dynamic message's known, present fields
// into a value.Object, mirroring the teacher's dynamicMessageToObject.
func messageToValue(msg *dynamic.Message) value.Value {
	obj := value.NewObject()
	for _, field := range msg.GetMessageDescriptor().GetFields() {
		if !msg.HasField(field) {
			continue
		}
		obj.Set(field.GetName(), protoScalarToValue(msg.GetField(field)))
	}
	return obj
}

func protoScalarToValue(v interface{}) value.Value {
	switch t := v.(type) {
	case string:
		return value.String(t)
	case bool:
		return value.Bool(t)
	case int32:
		return value.Number(t)
	case int64:
		return value.Number(t)
	case uint32:
		return value.Number(t)
	case uint64:
		return value.Number(t)
	case float32:
		return value.Number(t)
	case float64:
		return value.Number(t)
	case []byte:
		return value.String(string(t))
	case *dynamic.Message:
		return messageToValue(t)
	default:
		return value.String(fmt.Sprintf("%v", t))
	}
}

// runCallback runs callbacks[event] (if bound) with bindings, and logs
// when no handler is bound or the handler fails — a request with no
// ".error" handler simply drops a
// failed request on the floor, matching the language's fire-and-forget
// async model rather than surfacing an unhandled error. event carries
// its leading dot (".callback", ".error") since that's how namedChunksToMap
// keys callbacks — http.get/rpc.call callback blocks are looked up by
// their literal command name, unlike bind's handler map, which strips
// the dot.
func (h *Host) runCallback(callbacks map[string]*bytecode.Chunk, event string, bindings map[string]value.Value, requestID string) {
	chunk, ok := callbacks[event]
	if !ok {
		h.logf("request %s: no %s handler bound, dropping result", requestID, event)
		return
	}
	if err := vm.Run(chunk, h, bindings); err != nil {
		h.logf("request %s: %s handler failed: %v", requestID, event, err)
	}
}
