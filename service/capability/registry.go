package capability

import (
	"reflect"
	"sort"
	"sync"

	"github.com/viant/x"
)

// Registry maps step names to capability provider handles. Providers register
// under their service name; step definitions reference them as
// "service.method".
type Registry struct {
	types    *x.Registry
	services map[string]Service
	mux      sync.RWMutex
}

// Types returns the IO type registry.
func (r *Registry) Types() *x.Registry {
	return r.types
}

// Lookup returns a provider by name, or nil.
func (r *Registry) Lookup(name string) Service {
	r.mux.RLock()
	defer r.mux.RUnlock()
	return r.services[name]
}

// Register registers a provider and its method IO types.
func (r *Registry) Register(service Service) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.services[service.Name()] = service
	for _, signature := range service.Methods() {
		for _, t := range []reflect.Type{signature.Input, signature.Output} {
			if t == nil {
				continue
			}
			if t.Kind() == reflect.Ptr {
				t = t.Elem()
			}
			r.types.Register(x.NewType(t))
		}
	}
}

// Services returns the registered provider names.
func (r *Registry) Services() []string {
	r.mux.RLock()
	defer r.mux.RUnlock()
	out := make([]string, 0, len(r.services))
	for name := range r.services {
		out = append(out, name)
	}
	return out
}

// Descriptor describes one provider method with the registered names of its
// input and output types.
type Descriptor struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Input   string `json:"input,omitempty"`
	Output  string `json:"output,omitempty"`
}

// Describe lists every registered provider method with its IO types resolved
// through the type registry, sorted by service then method.
func (r *Registry) Describe() []*Descriptor {
	r.mux.RLock()
	defer r.mux.RUnlock()
	var out []*Descriptor
	for name, service := range r.services {
		for _, signature := range service.Methods() {
			out = append(out, &Descriptor{
				Service: name,
				Method:  signature.Name,
				Input:   r.typeName(signature.Input),
				Output:  r.typeName(signature.Output),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Service != out[j].Service {
			return out[i].Service < out[j].Service
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// typeName resolves a method IO type by name from the type registry, falling
// back to the raw reflect name when the type was never registered.
func (r *Registry) typeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if registered := r.types.Lookup(t.Name()); registered != nil {
		return registered.Name
	}
	return t.Name()
}

// NewRegistry creates an empty capability registry.
func NewRegistry(goTypes ...*x.Type) *Registry {
	ret := &Registry{
		types:    x.NewRegistry(),
		services: make(map[string]Service),
	}
	for _, t := range goTypes {
		if t != nil {
			ret.types.Register(t)
		}
	}
	return ret
}
