package sources

import (
	"fmt"
	"net/url"
	"sort"

	"volna/types"
)

// Registry is the process-wide, read-only map from site key to adapter.
// It is built once at startup and never mutated afterwards.
type Registry struct {
	adapters map[string]Adapter
	order    []string
}

// NewRegistry builds a registry over the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Site()] = a
	}
	for site := range r.adapters {
		r.order = append(r.order, site)
	}
	sort.Strings(r.order)
	return r
}

// Default returns the production adapter set.
func Default() *Registry {
	return NewRegistry(NewRT(), NewSmotrim(), NewTass(), NewNTV(), NewPervyj())
}

// Resolve returns the adapter for a site key.
func (r *Registry) Resolve(site string) (Adapter, error) {
	a, ok := r.adapters[site]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter for source %q", types.ErrNotFound, site)
	}
	return a, nil
}

// ResolveURL finds the adapter owning an item URL.
func (r *Registry) ResolveURL(raw string) (Adapter, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: malformed item URL %q", types.ErrNotFound, raw)
	}
	for _, site := range r.order {
		if a := r.adapters[site]; a.Match(u) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: no adapter owns %q", types.ErrNotFound, u.Host)
}

// Sites lists registered site keys in stable order.
func (r *Registry) Sites() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
