package disk

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
)

// FileStore is a MemStore whose whole mapping is rewritten to an image file after every
// mutation. The cost of a write grows with the total stored bytes, not the block size.
type FileStore struct {
	*MemStore
	path   string
	logger *slog.Logger

	// closed is guarded by MemStore.mu.
	closed bool
}

// ErrClosed reports a mutation on a FileStore after Close. The in-memory change is kept
// but nothing is written to the image.
var ErrClosed = errors.New("disk: store closed")

// Option configures a FileStore.
type Option func(*FileStore)

// WithLogger sets the logger used for load warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *FileStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// OpenFile opens the image at path. A missing, unreadable or corrupted image yields an
// empty store with the cursor at 0; corruption is only logged.
func OpenFile(path string, opts ...Option) *FileStore {
	s := &FileStore{
		path:   path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	blocks := s.load()
	s.MemStore = newMemStore(blocks, nextCursor(blocks))
	s.MemStore.flush = s.save
	return s
}

// Path returns the image file path.
func (s *FileStore) Path() string {
	return s.path
}

// Digest returns the content digest of the image file as currently persisted.
// An image that was never written has an empty digest.
func (s *FileStore) Digest() (digest.Digest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.WithStack(err)
	}
	return digest.FromBytes(data), nil
}

// Close stops persisting. Later mutations return ErrClosed and never touch the image
// path, so a removed image directory stays removed.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *FileStore) load() map[uint64][]byte {
	empty := make(map[uint64][]byte)

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return empty
	}
	if err != nil {
		s.logger.Warn("disk image unreadable, starting empty", "path", s.path, "error", err)
		return empty
	}

	blocks, err := decodeImage(data)
	switch {
	case errors.Is(err, ErrChecksumMismatch):
		s.logger.Warn("disk image checksum mismatch, starting empty", "path", s.path, "error", err)
		return empty
	case err != nil:
		s.logger.Warn("disk image corrupted, starting empty", "path", s.path, "error", err)
		return empty
	}
	return blocks
}

func (s *FileStore) save(blocks map[uint64][]byte) error {
	if s.closed {
		return ErrClosed
	}
	data, err := encodeImage(blocks)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, data, 0o644)
}

// writeFileAtomic replaces path through a synced temp file in the same directory.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create image dir")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.WithStack(err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return errors.WithStack(err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.WithStack(err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.WithStack(err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Rename(tmpName, path))
}
