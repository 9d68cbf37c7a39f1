// Package vfs implements an in-memory hierarchical filesystem with synthetic
// mounts for processes, devices and routes.
//
// Paths are absolute and slash-delimited. There is no "." or ".." handling
// and no symlinks.
package vfs

import (
	"fmt"
	"strings"
	"sync"
)

// FS is a tree of nodes plus a table of synthetic mounts. Mounts are resolved
// before the stored tree, so a root-level entry sharing a mount's name is
// shadowed.
type FS struct {
	root *Directory

	mu     sync.RWMutex
	mounts map[string]Dir
}

// New returns an empty filesystem with no mounts.
func New() *FS {
	return &FS{
		root:   NewDirectory("/"),
		mounts: make(map[string]Dir),
	}
}

// Mount attaches d at /<name>.
func (fs *FS) Mount(name string, d Dir) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.mounts[strings.Trim(name, "/")] = d
}

// Get resolves path to a node.
func (fs *FS) Get(path string) (Node, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}
	if path == "/" {
		return fs.root, nil
	}

	if n, handled, err := fs.getMounted(path); handled {
		return n, err
	}

	var cur Node = fs.root
	for _, seg := range splitPath(path) {
		d, ok := cur.(Dir)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
		}
		child, ok := d.Lookup(seg)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
		}
		cur = child
	}
	return cur, nil
}

func (fs *FS) getMounted(path string) (Node, bool, error) {
	d, rest, ok := fs.mountFor(path)
	if !ok {
		return nil, false, nil
	}
	if rest == "" {
		return d, true, nil
	}

	// Lookup may take the scheduler or route table lock; fs.mu is not held.
	n, found := d.Lookup(rest)
	if !found {
		return nil, true, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	return n, true, nil
}

// mountFor returns the mount serving path and the remainder below it.
func (fs *FS) mountFor(path string) (Dir, string, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	for name, d := range fs.mounts {
		prefix := "/" + name
		if path == prefix || path == prefix+"/" {
			return d, "", true
		}
		if rest, ok := strings.CutPrefix(path, prefix+"/"); ok {
			return d, rest, true
		}
	}
	return nil, "", false
}

// CreateFile creates an empty file at path, replacing any existing entry.
func (fs *FS) CreateFile(path string) (*File, error) {
	parent, name, err := fs.parentOf(path)
	if err != nil {
		return nil, err
	}
	f := NewFile(name)
	parent.Add(f)
	return f, nil
}

// CreateDir creates an empty directory at path, replacing any existing entry.
func (fs *FS) CreateDir(path string) (*Directory, error) {
	parent, name, err := fs.parentOf(path)
	if err != nil {
		return nil, err
	}
	d := NewDirectory(name)
	parent.Add(d)
	return d, nil
}

// ReadFile reads the file-like node at path.
func (fs *FS) ReadFile(path string) ([]byte, error) {
	n, err := fs.Get(path)
	if err != nil {
		return nil, err
	}
	return Read(n)
}

// WriteFile appends data to the file at path, creating it when missing.
func (fs *FS) WriteFile(path string, data []byte) error {
	n, err := fs.Get(path)
	if err != nil {
		f, cerr := fs.CreateFile(path)
		if cerr != nil {
			return cerr
		}
		n = f
	}
	return Write(n, data)
}

// ListDir lists the directory-like node at path.
func (fs *FS) ListDir(path string) ([]string, error) {
	n, err := fs.Get(path)
	if err != nil {
		return nil, err
	}
	return List(n)
}

func (fs *FS) parentOf(path string) (Dir, string, error) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil, "", ErrInvalidPath
	}

	parentPath := "/" + strings.Join(segs[:len(segs)-1], "/")
	n, err := fs.Get(parentPath)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s", ErrParentNotFound, parentPath)
	}
	d, ok := n.(Dir)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrParentNotDirectory, parentPath)
	}
	return d, segs[len(segs)-1], nil
}

// Stats summarizes the stored tree. Mounted directories are not counted.
type Stats struct {
	Directories int `json:"directories"`
	Files       int `json:"files"`
	Bytes       int `json:"bytes"`
}

// Stats walks the stored tree from the root.
func (fs *FS) Stats() Stats {
	var st Stats
	walk(fs.root, &st)
	return st
}

func walk(d *Directory, st *Stats) {
	st.Directories++
	for _, n := range d.Children() {
		switch n := n.(type) {
		case *Directory:
			walk(n, st)
		case *File:
			st.Files++
			st.Bytes += n.Size()
		}
	}
}

func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	segs := parts[:0]
	for _, p := range parts {
		if p != "" {
			segs = append(segs, p)
		}
	}
	return segs
}
