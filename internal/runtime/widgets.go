package runtime

import (
	"sync"

	"github.com/quilldsl/quill/internal/bytecode"
	"github.com/quilldsl/quill/internal/value"
)

// Widget is a single node in the flat widget tree: a name, its type
// tag (LABEL, BUTTON, INPUT, LISTBOX, CANVAS, CONTAINER), its current
// options object, and its event handlers as bound by bind.
type Widget struct {
	name     string
	typ      string
	options  value.Value
	handlers map[string]*bytecode.Chunk
	packed   bool
}

func (w *Widget) Name() string    { return w.name }
func (w *Widget) Type() string    { return w.typ }
func (w *Widget) Options() value.Value { return w.options }
func (w *Widget) Packed() bool    { return w.packed }
func (w *Widget) HasHandler(event string) bool {
	_, ok := w.handlers[event]
	return ok
}

// widgetTree is the runtime host's rendering-agnostic widget registry.
// There's no real toolkit behind it (this is a headless reference
// host, grounded on the teacher's own text-mode terminal builtins in
// builtins_term.go) — CreateWidget/UpdateWidget/PackWidget just record
// state; cmd/quill's run subcommand renders it to a terminal listing
// after the program finishes settling.
type widgetTree struct {
	mu    sync.Mutex
	order []string
	byName map[string]*Widget
}

func newWidgetTree() *widgetTree {
	return &widgetTree{byName: make(map[string]*Widget)}
}

func (t *widgetTree) create(name, typ string, options value.Value) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.byName[name]; !exists {
		t.order = append(t.order, name)
	}
	t.byName[name] = &Widget{name: name, typ: typ, options: options}
}

func (t *widgetTree) update(name string, options value.Value) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.byName[name]
	if !ok {
		w = &Widget{name: name}
		t.byName[name] = w
		t.order = append(t.order, name)
	}
	w.options = mergeOptions(w.options, options)
}

func (t *widgetTree) pack(name string, options value.Value) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.byName[name]
	if !ok {
		w = &Widget{name: name}
		t.byName[name] = w
		t.order = append(t.order, name)
	}
	w.options = mergeOptions(w.options, options)
	w.packed = true
}

func (t *widgetTree) bind(name string, handlers map[string]*bytecode.Chunk) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.byName[name]
	if !ok {
		w = &Widget{name: name}
		t.byName[name] = w
		t.order = append(t.order, name)
	}
	w.handlers = handlers
}

// snapshot returns widgets in creation order, safe to read without
// holding the tree's lock afterward.
func (t *widgetTree) snapshot() []*Widget {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Widget, len(t.order))
	for i, name := range t.order {
		out[i] = t.byName[name]
	}
	return out
}

func (t *widgetTree) lookup(name string) (*Widget, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.byName[name]
	return w, ok
}

// mergeOptions layers update's keys on top of base, preserving base's
// key order and appending any new ones — conf/pack are incremental,
// not replacing, updates to a widget's option set.
func mergeOptions(base, update value.Value) value.Value {
	baseObj, _ := base.(*value.Object)
	updateObj, ok := update.(*value.Object)
	if !ok {
		return base
	}
	if baseObj == nil {
		return updateObj
	}
	merged := value.NewObject()
	for _, k := range baseObj.Keys {
		v, _ := baseObj.Get(k)
		merged.Set(k, v)
	}
	for _, k := range updateObj.Keys {
		v, _ := updateObj.Get(k)
		merged.Set(k, v)
	}
	return merged
}

// CreateWidget records a newly constructed widget.
func (h *Host) CreateWidget(name, widgetType string, options value.Value) {
	h.widgets.create(name, widgetType, options)
}

// UpdateWidget applies conf's incremental option changes to name.
func (h *Host) UpdateWidget(name string, options value.Value) {
	h.widgets.update(name, options)
}

// PackWidget applies pack's incremental option changes and marks name
// as laid out.
func (h *Host) PackWidget(name string, options value.Value) {
	h.widgets.pack(name, options)
}

// BindWidget attaches handlers, keyed by bare event name ("click", not
// ".click"), to the widget named widgetName.
func (h *Host) BindWidget(widgetName string, handlers map[string]*bytecode.Chunk) {
	h.widgets.bind(widgetName, handlers)
}
