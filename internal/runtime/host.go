package runtime

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/quilldsl/quill/internal/config"
)

// Host is the concrete vm.Host: reactive state, a widget tree, a
// procedure table, and the HTTP and gRPC clients backing http.get and
// rpc.call. One Host is built per program run — nothing in it is
// meant to survive past a single cmd/quill invocation.
type Host struct {
	state   *stateStore
	widgets *widgetTree
	procs   *procTable

	httpClient *http.Client
	rpcTimeout time.Duration
	protos     *protoRegistry

	logger *log.Logger

	pending sync.WaitGroup
}

// New builds a Host configured from cfg. logger receives diagnostic
// lines for watcher failures and async request completions; pass
// log.Default() for the ordinary command-line behavior. Proto files
// under cfg.RPC.ProtoImportPaths are parsed eagerly so an rpc.call's
// first invocation doesn't pay a parse cost mid-request. A scan or
// parse failure is logged and does not fail startup, but it leaves no
// descriptors loaded at all, so every rpc.call then fails to resolve
// its method, not only the ones that needed the bad file.
func New(cfg *config.Config, logger *log.Logger) *Host {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = log.Default()
	}
	h := &Host{
		state:      newStateStore(),
		widgets:    newWidgetTree(),
		procs:      newProcTable(),
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout()},
		rpcTimeout: cfg.RPCTimeout(),
		logger:     logger,
	}
	h.protos = newProtoRegistry(cfg.RPC.ProtoImportPaths, h.logf)
	return h
}

func (h *Host) logf(format string, args ...any) {
	h.logger.Printf(format, args...)
}

// Wait blocks until every in-flight HTTPGet/RPCCall started against
// this Host has run its completion callback. cmd/quill's run
// subcommand calls this after executing the top-level program so a
// script's async callbacks get a chance to fire before the process
// renders its final widget tree and exits.
func (h *Host) Wait() {
	h.pending.Wait()
}

// Widgets returns the widget tree in creation order, for the run
// subcommand's terminal renderer.
func (h *Host) Widgets() []*Widget {
	return h.widgets.snapshot()
}
