package disk

import "sync"

// MemStore is a RAM disk. A single mutex guards the block map and the cursor.
type MemStore struct {
	mu     sync.Mutex
	blocks map[uint64][]byte
	next   uint64

	// flush runs with mu held after every mutation. FileStore uses it to persist.
	flush func(blocks map[uint64][]byte) error
}

// NewMemStore returns an empty RAM disk.
func NewMemStore() *MemStore {
	return newMemStore(make(map[uint64][]byte), 0)
}

func newMemStore(blocks map[uint64][]byte, next uint64) *MemStore {
	return &MemStore{
		blocks: blocks,
		next:   next,
	}
}

// Allocate returns the next block id.
func (s *MemStore) Allocate() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	return id
}

// Write stores a copy of data under id, replacing any previous content.
func (s *MemStore) Write(id uint64, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	s.blocks[id] = buf
	return s.flushLocked()
}

// Read returns a copy of block id.
func (s *MemStore) Read(id uint64) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.blocks[id]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true
}

// Free removes block id. Freeing an absent block still flushes.
func (s *MemStore) Free(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blocks, id)
	return s.flushLocked()
}

// ClearAll drops every block and resets the cursor.
func (s *MemStore) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blocks = make(map[uint64][]byte)
	s.next = 0
	return s.flushLocked()
}

// AllocatedCount returns the number of stored blocks.
func (s *MemStore) AllocatedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blocks)
}

// TotalBytes returns the total size of stored data.
func (s *MemStore) TotalBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, b := range s.blocks {
		total += len(b)
	}
	return total
}

// Cursor returns the id the next Allocate call will return.
func (s *MemStore) Cursor() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

func (s *MemStore) flushLocked() error {
	if s.flush == nil {
		return nil
	}
	return s.flush(s.blocks)
}
