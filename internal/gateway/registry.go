package gateway

import (
	"fmt"
	"sort"

	domainErrors "github.com/fusionbox/dinero/internal/domain/errors"
)

// Registry is an immutable set of named gateways built once at startup.
type Registry struct {
	gateways    map[string]Gateway
	defaultName string
}

// NewRegistry indexes gws by name. defaultName must be one of them.
func NewRegistry(defaultName string, gws ...Gateway) (*Registry, error) {
	r := &Registry{
		gateways:    make(map[string]Gateway, len(gws)),
		defaultName: defaultName,
	}
	for _, g := range gws {
		if _, dup := r.gateways[g.Name()]; dup {
			return nil, fmt.Errorf("gateway %q registered twice: %w", g.Name(), domainErrors.ErrConfiguration)
		}
		r.gateways[g.Name()] = g
	}
	if _, ok := r.gateways[defaultName]; !ok {
		return nil, fmt.Errorf("default gateway %q: %w", defaultName, domainErrors.ErrGatewayNotFound)
	}
	return r, nil
}

// Get returns the named gateway. An empty name selects the default.
func (r *Registry) Get(name string) (Gateway, error) {
	if name == "" {
		name = r.defaultName
	}
	g, ok := r.gateways[name]
	if !ok {
		return nil, fmt.Errorf("gateway %q: %w", name, domainErrors.ErrGatewayNotFound)
	}
	return g, nil
}

func (r *Registry) Default() Gateway {
	return r.gateways[r.defaultName]
}

func (r *Registry) DefaultName() string {
	return r.defaultName
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
