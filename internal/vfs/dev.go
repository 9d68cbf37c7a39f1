package vfs

import "sort"

// DevDir is the fixed device table mounted at /dev.
type DevDir struct {
	devices map[string]Node
}

// NewDevDir returns the table with null and random.
func NewDevDir() *DevDir {
	null, random := NullDevice{}, RandomDevice{}
	return &DevDir{
		devices: map[string]Node{
			null.Name():   null,
			random.Name(): random,
		},
	}
}

func (*DevDir) Name() string { return "dev" }
func (*DevDir) Kind() Kind   { return KindDirectory }
func (*DevDir) node()        {}

// List returns device names.
func (d *DevDir) List() []string {
	names := make([]string, 0, len(d.devices))
	for name := range d.devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the device called name.
func (d *DevDir) Lookup(name string) (Node, bool) {
	n, ok := d.devices[name]
	return n, ok
}

// Add is a no-op: the device table is fixed.
func (*DevDir) Add(Node) {}
