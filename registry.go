package fncengine

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Registry holds the callables and the session's output store.
//
// Registrations live until replaced; outputs live until Reset. All methods are safe for
// concurrent use, but a Dispatcher processes descriptors one at a time and a session is
// meant to be owned by one caller.
type Registry struct {
	funcs       map[string]Func  // wrapped with middlewares, used by Lookup
	rawFuncs    map[string]Func  // unwrapped, used by Use() to re-apply middlewares from scratch
	tools       map[string]*Tool // registered through RegisterTool, for Definitions
	outputs     map[string]any
	session     string
	opts        registryOptions
	mu          sync.Mutex
	middlewares []Middleware
}

// NewRegistry creates an empty Registry with a fresh session.
func NewRegistry(opts ...RegistryOption) *Registry {
	o := registryOptions{newSessionID: uuid.NewString}
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry{
		funcs:    make(map[string]Func),
		rawFuncs: make(map[string]Func),
		tools:    make(map[string]*Tool),
		outputs:  make(map[string]any),
		session:  o.newSessionID(),
		opts:     o,
	}
}

// Register adds functions by name. An existing name is silently replaced. The batch is
// rejected as a whole if any name is empty or any function is nil.
func (r *Registry) Register(funcs map[string]Func) error {
	for name, fn := range funcs {
		if err := checkRegistration(name, fn); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, fn := range funcs {
		r.put(name, fn)
		delete(r.tools, name)
	}
	return nil
}

// RegisterFunc adds or replaces a single function.
func (r *Registry) RegisterFunc(name string, fn Func) error {
	return r.Register(map[string]Func{name: fn})
}

// RegisterTool adds or replaces tools and keeps their definitions for Definitions.
func (r *Registry) RegisterTool(tools ...*Tool) error {
	for _, t := range tools {
		if t == nil {
			return fmt.Errorf("%w: nil tool", ErrInvalidRegistration)
		}
		if err := checkRegistration(t.name, t.fn); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tools {
		r.put(t.name, t.fn)
		r.tools[t.name] = t
	}
	return nil
}

// RegisterFrom bulk-registers everything l loads from source. Loader errors (including
// ErrSourceNotFound) are returned unchanged.
func (r *Registry) RegisterFrom(l Loader, source string) error {
	funcs, err := l.Load(source)
	if err != nil {
		return err
	}
	return r.Register(funcs)
}

func checkRegistration(name string, fn Func) error {
	if name == "" {
		return fmt.Errorf("%w: function name must not be empty", ErrInvalidRegistration)
	}
	if fn == nil {
		return fmt.Errorf("%w: function %q is nil", ErrInvalidRegistration, name)
	}
	return nil
}

// put stores fn under name. Caller holds r.mu.
func (r *Registry) put(name string, fn Func) {
	r.rawFuncs[name] = fn
	r.funcs[name] = r.wrap(name, fn)
}

// Lookup returns the function registered under name (after middlewares are applied).
func (r *Registry) Lookup(name string) (Func, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn, ok := r.funcs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}
	return fn, nil
}

// Names returns the registered function names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.funcs))
}

// Definitions returns provider tool definitions for every function registered with
// RegisterTool, sorted by name. Plain Funcs carry no schema and are not listed.
func (r *Registry) Definitions() []ToolDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := slices.Sorted(maps.Keys(r.tools))
	out := make([]ToolDefinition, 0, len(names))
	for _, name := range names {
		out = append(out, r.tools[name].Definition())
	}
	return out
}

// Output returns the value last stored under name.
func (r *Registry) Output(name string) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.outputs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrOutputNotFound, name)
	}
	return v, nil
}

// lookupOutput is Output without the error allocation, for reference resolution.
func (r *Registry) lookupOutput(name string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.outputs[name]
	return v, ok
}

// SetOutput stores value under name, replacing any previous value.
func (r *Registry) SetOutput(name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs[name] = value
}

// Outputs returns a snapshot of the output store.
func (r *Registry) Outputs() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.outputs)
}

// Reset clears the output store and starts a new session. Registered functions stay.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.outputs)
	r.session = r.opts.newSessionID()
}

// SessionID identifies the current session; it changes on every Reset.
func (r *Registry) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}
