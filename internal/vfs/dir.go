package vfs

import (
	"sort"
	"sync"
)

// Dir is a directory-like node: a stored Directory or one of the synthetic mounts.
type Dir interface {
	Node
	List() []string
	Lookup(name string) (Node, bool)
	Add(n Node)
}

var (
	_ Dir = (*Directory)(nil)
	_ Dir = (*DevDir)(nil)
	_ Dir = (*ProcDir)(nil)
	_ Dir = (*NetworkDir)(nil)
)

// Directory stores children by unique name.
type Directory struct {
	name     string
	mu       sync.RWMutex
	children map[string]Node
}

// NewDirectory returns an empty directory.
func NewDirectory(name string) *Directory {
	return &Directory{
		name:     name,
		children: make(map[string]Node),
	}
}

func (d *Directory) Name() string { return d.name }
func (d *Directory) Kind() Kind   { return KindDirectory }
func (*Directory) node()          {}

// Add inserts n under its name, replacing any child with the same name.
func (d *Directory) Add(n Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.children[n.Name()] = n
}

// Lookup returns the child called name.
func (d *Directory) Lookup(name string) (Node, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.children[name]
	return n, ok
}

// List returns child names in lexical order.
func (d *Directory) List() []string {
	d.mu.RLock()
	names := make([]string, 0, len(d.children))
	for name := range d.children {
		names = append(names, name)
	}
	d.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Children returns a snapshot of the child nodes.
func (d *Directory) Children() []Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Node, 0, len(d.children))
	for _, n := range d.children {
		out = append(out, n)
	}
	return out
}

// List returns the entry names of a directory-like node.
func List(n Node) ([]string, error) {
	d, ok := n.(Dir)
	if !ok {
		return nil, ErrNotADirectory
	}
	return d.List(), nil
}
