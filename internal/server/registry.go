package server

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/scigolib/dapd/aggregate"
	"github.com/scigolib/dapd/dap2"
	"github.com/scigolib/dapd/dap2/das"
	"github.com/scigolib/dapd/dap2/dds"
	"github.com/scigolib/dapd/dataset"
	"github.com/scigolib/dapd/internal/catalog"
	"github.com/scigolib/dapd/internal/config"
)

// Servable is what the HTTP surface needs from a registered route: the C9
// dataset façade and the C8 aggregation engine both implement it.
type Servable interface {
	Das() *das.Model
	Dds() *dds.Dataset
	dap2.Source
}

// Registry is an immutable, eagerly built map from catalog route to its
// opened backing store. It is safe for concurrent reads; once Build
// returns, no entry is ever added, removed or replaced — matching §5's
// "no shared caches are mutated" across concurrent requests. Lookup and
// Routes take the read lock; Close takes no lock.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Servable
	closers []io.Closer
}

// Build opens every dataset named explicitly in cfg.Datasets plus every
// file discovered by scanning cfg.Roots, and returns a Registry ready to
// serve. On any failure it closes everything already opened.
func Build(cfg *config.Config) (*Registry, error) {
	r := &Registry{entries: make(map[string]Servable)}

	for _, d := range cfg.Datasets {
		if err := r.open(d.Route, d.Source(), d.IsAggregate()); err != nil {
			r.Close()
			return nil, err
		}
	}

	for _, root := range cfg.Roots {
		discovered, err := catalog.Scan(root)
		if err != nil {
			r.Close()
			return nil, err
		}
		for _, e := range discovered {
			if _, exists := r.entries[e.Route]; exists {
				continue
			}
			if err := r.open(e.Route, e.Path, e.Kind == catalog.KindAggregate); err != nil {
				r.Close()
				return nil, err
			}
		}
	}

	return r, nil
}

func (r *Registry) open(route, path string, isAggregate bool) error {
	if isAggregate {
		a, err := aggregate.Open(path, route)
		if err != nil {
			return fmt.Errorf("registry: %s: %w", route, err)
		}
		r.entries[route] = a
		r.closers = append(r.closers, a)
		return nil
	}

	ds, err := dataset.Open(path, route)
	if err != nil {
		return fmt.Errorf("registry: %s: %w", route, err)
	}
	r.entries[route] = ds
	r.closers = append(r.closers, ds)
	return nil
}

// Lookup returns the Servable registered at route, if any.
func (r *Registry) Lookup(route string) (Servable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.entries[route]
	return s, ok
}

// Routes returns every registered route in catalog order (sorted).
func (r *Registry) Routes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	routes := make([]string, 0, len(r.entries))
	for route := range r.entries {
		routes = append(routes, route)
	}
	sort.Strings(routes)
	return routes
}

// Raw returns the route's whole-file download stream, if its backing
// store supports one. Aggregates have no single underlying file and
// report ok=false.
func (r *Registry) Raw(route string) (stream io.ReadCloser, size int64, ok bool, err error) {
	s, found := r.Lookup(route)
	if !found {
		return nil, 0, false, nil
	}
	rp, supports := s.(interface {
		Raw() (io.ReadCloser, int64, error)
	})
	if !supports {
		return nil, 0, false, nil
	}
	stream, size, err = rp.Raw()
	return stream, size, true, err
}

// Close releases every opened backing store, returning the first error.
func (r *Registry) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
