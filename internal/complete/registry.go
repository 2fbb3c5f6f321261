package complete

import (
	"sort"

	"github.com/google/uuid"
)

// Registry holds the registered sources and the configured priority
// order. Loop-confined; the engine is the only mutator.
type Registry struct {
	sources  []*Source
	priority map[string]int
}

// newRegistry returns an empty registry.
func newRegistry() *Registry {
	return &Registry{priority: make(map[string]int)}
}

// Register wraps the provider in a fresh Source and returns its id.
// Registering the same provider value twice yields two independent
// sources.
func (r *Registry) Register(p Provider) string {
	s := &Source{
		id:       uuid.NewString(),
		provider: p,
		status:   StatusWaiting,
	}
	r.sources = append(r.sources, s)
	return s.id
}

// Unregister removes the source with the given id. Unknown ids are
// no-ops, so unregistering twice is safe.
func (r *Registry) Unregister(id string) {
	for i, s := range r.sources {
		if s.id == id {
			r.sources = append(r.sources[:i], r.sources[i+1:]...)
			return
		}
	}
}

// Lookup returns the source with the given id, or nil.
func (r *Registry) Lookup(id string) *Source {
	for _, s := range r.sources {
		if s.id == id {
			return s
		}
	}
	return nil
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	return len(r.sources)
}

// SetPriority replaces the name-to-priority table used for ordering.
// Higher priorities sort first; names absent from the table rank below
// every named one.
func (r *Registry) SetPriority(priorities map[string]int) {
	r.priority = make(map[string]int, len(priorities))
	for name, p := range priorities {
		r.priority[name] = p
	}
}

// Sorted returns the sources in effective order: configured priority
// descending, then name groups in first-registration order. Sources
// sharing a name stay contiguous; the stable sort keeps registration
// order within each group.
func (r *Registry) Sorted() []*Source {
	first := make(map[string]int, len(r.sources))
	for i, s := range r.sources {
		if _, ok := first[s.Name()]; !ok {
			first[s.Name()] = i
		}
	}
	out := make([]*Source, len(r.sources))
	copy(out, r.sources)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := r.priority[out[i].Name()], r.priority[out[j].Name()]
		if pi != pj {
			return pi > pj
		}
		return first[out[i].Name()] < first[out[j].Name()]
	})
	return out
}

// Eligible returns the ordered sources whose provider is available and,
// when statuses are given, whose status matches one of them.
func (r *Registry) Eligible(statuses ...Status) []*Source {
	var out []*Source
	for _, s := range r.Sorted() {
		if !s.provider.IsAvailable() {
			continue
		}
		if len(statuses) > 0 && !statusIn(s.status, statuses) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// All returns every source in effective order regardless of
// availability.
func (r *Registry) All() []*Source {
	return r.Sorted()
}

func statusIn(st Status, set []Status) bool {
	for _, s := range set {
		if s == st {
			return true
		}
	}
	return false
}
