// Package disk provides the block-addressed storage behind every virtual machine.
//
// Blocks are variable-length byte buffers addressed by a monotonically allocated id.
// MemStore keeps them in memory only; FileStore additionally rewrites a checksummed
// image file after every mutation.
package disk

import "github.com/pkg/errors"

// ErrChecksumMismatch reports an image whose stored checksum does not match its blocks.
// OpenFile never returns it: a mismatching image is logged and the store starts empty.
var ErrChecksumMismatch = errors.New("disk: checksum mismatch")

// Store is the block storage contract shared by the in-memory and file-backed disks.
type Store interface {
	// Allocate returns the current cursor value and advances it. It never fails.
	Allocate() uint64

	// Write replaces the content of block id.
	Write(id uint64, data []byte) error

	// Read returns a copy of block id, or false if it was never written or was freed.
	Read(id uint64) ([]byte, bool)

	// Free removes block id.
	Free(id uint64) error

	// ClearAll discards every block and resets the allocation cursor to 0.
	ClearAll() error

	// AllocatedCount returns the number of stored blocks.
	AllocatedCount() int

	// TotalBytes returns the sum of all stored block lengths.
	TotalBytes() int
}

var (
	_ Store = (*MemStore)(nil)
	_ Store = (*FileStore)(nil)
)
