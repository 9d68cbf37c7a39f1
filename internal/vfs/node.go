package vfs

import (
	"strconv"
	"sync"
	"time"
)

// Kind classifies a node as file-like or directory-like.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// Node is a named entry of the tree. The set of implementations is closed: File,
// Directory, NullDevice, RandomDevice, Text, DevDir, ProcDir and NetworkDir.
// Read, Write and List dispatch over that set.
type Node interface {
	Name() string
	Kind() Kind
	node()
}

// File is a regular file with append-only writes.
type File struct {
	name string
	mu   sync.Mutex
	data []byte
}

// NewFile returns an empty file.
func NewFile(name string) *File {
	return &File{name: name}
}

func (f *File) Name() string { return f.name }
func (f *File) Kind() Kind   { return KindFile }
func (*File) node()          {}

// Write appends p to the file.
func (f *File) Write(p []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = append(f.data, p...)
}

// Read returns a copy of the file content.
func (f *File) Read() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out
}

// Size returns the content length.
func (f *File) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data)
}

// Text is a read-only snapshot generated on demand by a synthetic directory.
type Text struct {
	name    string
	content string
}

// NewText returns a synthetic read-only node.
func NewText(name, content string) *Text {
	return &Text{name: name, content: content}
}

func (t *Text) Name() string { return t.name }
func (t *Text) Kind() Kind   { return KindFile }
func (*Text) node()          {}

// Read returns the snapshot.
func (t *Text) Read() []byte { return []byte(t.content) }

// NullDevice discards writes and reads empty.
type NullDevice struct{}

func (NullDevice) Name() string { return "null" }
func (NullDevice) Kind() Kind   { return KindFile }
func (NullDevice) node()        {}

// RandomDevice reads the current time in nanoseconds modulo 256, as text.
// It is predictable and must not be used where real randomness matters.
type RandomDevice struct {
	now func() time.Time
}

func (RandomDevice) Name() string { return "random" }
func (RandomDevice) Kind() Kind   { return KindFile }
func (RandomDevice) node()        {}

// Read returns a value in [0, 255] rendered as decimal text.
func (r RandomDevice) Read() []byte {
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	return []byte(strconv.FormatInt(now().UnixNano()%256, 10))
}

// Read returns the content of a file-like node.
func Read(n Node) ([]byte, error) {
	switch n := n.(type) {
	case *File:
		return n.Read(), nil
	case *Text:
		return n.Read(), nil
	case NullDevice, *NullDevice:
		return []byte{}, nil
	case RandomDevice:
		return n.Read(), nil
	case *RandomDevice:
		return n.Read(), nil
	case *Directory, *DevDir, *ProcDir, *NetworkDir:
		return nil, ErrNotAFile
	default:
		return nil, ErrNotAFile
	}
}

// Write delivers p to a file-like node. Files append, devices discard and
// synthetic snapshots refuse.
func Write(n Node, p []byte) error {
	switch n := n.(type) {
	case *File:
		n.Write(p)
		return nil
	case NullDevice, *NullDevice, RandomDevice, *RandomDevice:
		return nil
	case *Text:
		return ErrReadOnly
	case *Directory, *DevDir, *ProcDir, *NetworkDir:
		return ErrNotAFile
	default:
		return ErrNotAFile
	}
}
