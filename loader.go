package fncengine

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"plugin"
	"sync"
)

// Loader supplies functions for bulk registration (Registry.RegisterFrom). A source it
// cannot locate must be reported with an error wrapping ErrSourceNotFound.
type Loader interface {
	Load(source string) (map[string]Func, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(source string) (map[string]Func, error)

func (f LoaderFunc) Load(source string) (map[string]Func, error) { return f(source) }

// Catalog is an in-memory Loader of named function sets, e.g. one set per toolkit
// compiled into the binary.
type Catalog struct {
	mu   sync.RWMutex
	sets map[string]map[string]Func
}

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{sets: make(map[string]map[string]Func)}
}

// Add stores a function set under source, replacing any previous set.
func (c *Catalog) Add(source string, funcs map[string]Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets[source] = maps.Clone(funcs)
}

// Load returns a copy of the set stored under source.
func (c *Catalog) Load(source string) (map[string]Func, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	set, ok := c.sets[source]
	if !ok {
		return nil, fmt.Errorf("%w: catalog has no set %q", ErrSourceNotFound, source)
	}
	return maps.Clone(set), nil
}

// PluginSymbol is the symbol a plugin must export: either a variable of type
// map[string]fncengine.Func or a function of type func() map[string]fncengine.Func.
const PluginSymbol = "Functions"

// PluginLoader loads functions from Go plugins (.so files built with -buildmode=plugin).
// The plugin must be built against the same version of this module.
type PluginLoader struct{}

// Load opens the plugin at path and reads its PluginSymbol.
func (PluginLoader) Load(path string) (map[string]Func, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: file %s not found", ErrSourceNotFound, path)
		}
		return nil, err
	}
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plugin %s: %w", path, err)
	}
	sym, err := p.Lookup(PluginSymbol)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", path, err)
	}
	return pluginFuncs(path, sym)
}

func pluginFuncs(path string, sym plugin.Symbol) (map[string]Func, error) {
	switch v := sym.(type) {
	case *map[string]Func:
		return maps.Clone(*v), nil
	case func() map[string]Func:
		return v(), nil
	default:
		return nil, fmt.Errorf("plugin %s: symbol %s has type %T, want map[string]fncengine.Func or func() map[string]fncengine.Func",
			path, PluginSymbol, sym)
	}
}
