package runtime_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quilldsl/quill/internal/compiler"
	"github.com/quilldsl/quill/internal/config"
	"github.com/quilldsl/quill/internal/parser"
	"github.com/quilldsl/quill/internal/runtime"
	"github.com/quilldsl/quill/internal/value"
	"github.com/quilldsl/quill/internal/vm"
)

func run(t *testing.T, host *runtime.Host, src string) {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	chunk, err := compiler.New().Compile(prog)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if err := vm.Run(chunk, host, nil); err != nil {
		t.Fatalf("run error: %v", err)
	}
}

func TestHostCreateAndConfWidget(t *testing.T) {
	host := runtime.New(config.Default(), nil)
	run(t, host, "l greeting \"Hello\"\nconf greeting -bg \"blue\"\n")

	widgets := host.Widgets()
	if len(widgets) != 1 {
		t.Fatalf("widgets = %d, want 1", len(widgets))
	}
	w := widgets[0]
	if w.Name() != "greeting" || w.Type() != "LABEL" {
		t.Errorf("widget = %q/%q, want greeting/LABEL", w.Name(), w.Type())
	}
	obj, ok := w.Options().(*value.Object)
	if !ok {
		t.Fatalf("options not an object")
	}
	if v, _ := obj.Get("label"); v != value.String("Hello") {
		t.Errorf("label = %v, want Hello", v)
	}
	if v, _ := obj.Get("-bg"); v != value.String("blue") {
		t.Errorf("-bg = %v, want blue (conf should merge, not replace)", v)
	}
}

func TestHostBindRecordsHandler(t *testing.T) {
	host := runtime.New(config.Default(), nil)
	run(t, host, "b clicker \"Go\"\nbind clicker\n  .click\n    set fired \"yes\"\n")

	widgets := host.Widgets()
	if len(widgets) != 1 || !widgets[0].HasHandler("click") {
		t.Fatalf("expected clicker to have a click handler, got %+v", widgets)
	}
}

func TestHostWatchFiresInRegistrationOrder(t *testing.T) {
	host := runtime.New(config.Default(), nil)
	run(t, host, "watch counter\n  set first \"a\"\n  set last \"a\"\nwatch counter\n  set second \"b\"\n  set last \"b\"\nset counter \"1\"\n")

	first, _ := host.GetState("first")
	second, _ := host.GetState("second")
	if first != value.String("a") || second != value.String("b") {
		t.Errorf("first=%v second=%v, want both watchers to have fired", first, second)
	}
	if last, _ := host.GetState("last"); last != value.String("b") {
		t.Errorf("last = %v, want b (second-registered watcher runs last)", last)
	}
}

func TestHostHTTPGetRunsCallbackOnSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	}))
	defer server.Close()

	host := runtime.New(config.Default(), nil)
	run(t, host, "http.get \""+server.URL+"\"\n  .callback\n    set response_body {$body}\n")
	host.Wait()

	got, ok := host.GetState("response_body")
	if !ok || got != value.String("pong") {
		t.Errorf("response_body = %v, want pong", got)
	}
	if state, ok := host.GetState("http_response"); !ok || state != value.String("pong") {
		t.Errorf("state.http_response = %v, want pong", state)
	}
}

func TestHostHTTPGetRunsErrorCallbackOnBadURL(t *testing.T) {
	host := runtime.New(config.Default(), nil)
	run(t, host, "http.get \"http://127.0.0.1:0\"\n  .error\n    set failed \"yes\"\n")
	host.Wait()

	got, ok := host.GetState("failed")
	if !ok || got != value.String("yes") {
		t.Errorf("failed = %v, want yes", got)
	}
}

func TestHostRPCCallWithNoProtoPathsRunsErrorCallback(t *testing.T) {
	host := runtime.New(config.Default(), nil)
	run(t, host, "rpc.call \"pkg.Greeter/SayHello\" \"localhost:9090\"\n  .error\n    set failed \"yes\"\n")
	host.Wait()

	got, ok := host.GetState("failed")
	if !ok || got != value.String("yes") {
		t.Errorf("failed = %v, want yes (no proto import paths configured)", got)
	}
}

func TestHostProcDefineAndLookup(t *testing.T) {
	host := runtime.New(config.Default(), nil)
	run(t, host, "proc greet name\n  set greeting {$name}\ngreet \"Ada\"\n")

	got, ok := host.GetState("greeting")
	if !ok || got != value.String("Ada") {
		t.Errorf("greeting = %v, want Ada", got)
	}
}
