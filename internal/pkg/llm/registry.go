package llm

import (
	"fmt"
	"sort"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// Binding ties a catalog entry to the provider that serves it.
type Binding struct {
	Descriptor Descriptor
	Provider   Provider
}

// Registry maps model names to bindings. It is built once and read-only
// afterwards, so it is safe for concurrent use.
type Registry struct {
	bindings map[string]Binding
	fallback string
}

// NewRegistry binds every active catalog model whose provider is configured.
// defaultModel overrides the catalog default when set.
func NewRegistry(c *Catalog, providers []Provider, defaultModel string) (*Registry, error) {
	byKind := make(map[ProviderKind]Provider, len(providers))
	for _, p := range providers {
		if p != nil {
			byKind[p.Kind()] = p
		}
	}

	r := &Registry{bindings: make(map[string]Binding)}
	for _, d := range c.Models {
		if !d.Active {
			continue
		}
		p, ok := byKind[d.Provider]
		if !ok {
			fiberlog.Infof("[LLM] model %s skipped: provider %s not configured", d.Name, d.Provider)
			continue
		}
		r.bindings[d.Name] = Binding{Descriptor: d, Provider: p}
	}

	fallback := defaultModel
	if fallback == "" {
		fallback = c.Default
	}
	if _, ok := r.bindings[fallback]; !ok {
		// Pick the first usable model in catalog order.
		fallback = ""
		for _, d := range c.Models {
			if _, ok := r.bindings[d.Name]; ok {
				fallback = d.Name
				break
			}
		}
	}
	if fallback == "" {
		return nil, fmt.Errorf("no usable model: configure at least one provider API key")
	}
	r.fallback = fallback
	return r, nil
}

// Lookup returns the binding for an exact model name.
func (r *Registry) Lookup(name string) (Binding, bool) {
	b, ok := r.bindings[name]
	return b, ok
}

// Resolve returns the binding for name. Empty or unknown names fall back to
// the default model; the fallback is logged for unknown names. The boolean
// reports whether name matched exactly.
func (r *Registry) Resolve(name string) (Binding, bool) {
	if b, ok := r.Lookup(name); ok {
		return b, true
	}
	if name != "" {
		fiberlog.Warnf("[LLM] unknown model %q requested, using %s", name, r.fallback)
	}
	return r.Default(), false
}

// Default returns the fallback binding.
func (r *Registry) Default() Binding {
	return r.bindings[r.fallback]
}

// Names lists the bound model names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.bindings))
	for name := range r.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
