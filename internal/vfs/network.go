package vfs

import (
	"fmt"
	"sort"
	"sync"
)

const (
	DefaultRouteName    = "default"
	DefaultRouteGateway = "0.0.0.0/0 via 192.168.1.1"
)

// Route is one entry of the route table.
type Route struct {
	Destination string `json:"destination"`
	Gateway     string `json:"gateway"`
}

// NetworkDir is the mutable route table mounted at /network.
type NetworkDir struct {
	mu     sync.RWMutex
	routes map[string]string
}

// NewNetworkDir returns a table holding the default route.
func NewNetworkDir() *NetworkDir {
	return &NetworkDir{
		routes: map[string]string{
			DefaultRouteName: DefaultRouteGateway,
		},
	}
}

func (*NetworkDir) Name() string { return "network" }
func (*NetworkDir) Kind() Kind   { return KindDirectory }
func (*NetworkDir) node()        {}

// AddRoute inserts or replaces the route to dest.
func (n *NetworkDir) AddRoute(dest, gateway string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes[dest] = gateway
}

// Routes returns the table sorted by destination.
func (n *NetworkDir) Routes() []Route {
	n.mu.RLock()
	out := make([]Route, 0, len(n.routes))
	for dest, gw := range n.routes {
		out = append(out, Route{Destination: dest, Gateway: gw})
	}
	n.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Destination < out[j].Destination })
	return out
}

// List returns route names.
func (n *NetworkDir) List() []string {
	routes := n.Routes()
	names := make([]string, len(routes))
	for i, r := range routes {
		names[i] = r.Destination
	}
	return names
}

// Lookup renders the route called name as read-only text.
func (n *NetworkDir) Lookup(name string) (Node, bool) {
	n.mu.RLock()
	gw, ok := n.routes[name]
	n.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return NewText(name, fmt.Sprintf("Destination: %s\nGateway: %s", name, gw)), true
}

// Add is a no-op: use AddRoute.
func (*NetworkDir) Add(Node) {}
