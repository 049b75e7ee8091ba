package connector

import (
	"fmt"

	id "gridgate/pkg/domain"
)

// Registry holds the configured connectors by region.
type Registry struct {
	connectors map[id.Region]Connector
}

func NewRegistry(connectors ...Connector) *Registry {
	r := &Registry{connectors: make(map[id.Region]Connector, len(connectors))}
	for _, c := range connectors {
		r.connectors[c.Region()] = c
	}
	return r
}

// Get returns the connector for a region.
func (r *Registry) Get(region id.Region) (Connector, error) {
	c, ok := r.connectors[region]
	if !ok {
		return nil, fmt.Errorf("no connector registered for region %q", region)
	}
	return c, nil
}

// Regions lists the configured regions.
func (r *Registry) Regions() []id.Region {
	out := make([]id.Region, 0, len(r.connectors))
	for region := range r.connectors {
		out = append(out, region)
	}
	return out
}
