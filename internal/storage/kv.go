package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	ErrUnavailable   = errors.New("storage unavailable")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrSerialization = errors.New("serialization failed")
	ErrInvalidBackup = errors.New("invalid backup format")
)

// KV is the narrow byte-store contract the engine persists through: get,
// set and delete by string key. Implementations own durability; the engine
// never sees the medium.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// FileKV stores each key as a file under a data directory, one file per
// key. An optional quota bounds the total stored bytes.
type FileKV struct {
	mu         sync.Mutex
	dir        string
	quotaBytes int64
}

// NewFileKV creates the data directory if needed. quotaBytes <= 0 disables
// the quota.
func NewFileKV(dir string, quotaBytes int64) (*FileKV, error) {
	dir = filepath.Clean(strings.TrimSpace(dir))
	if dir == "" || dir == "." {
		return nil, fmt.Errorf("data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileKV{dir: dir, quotaBytes: quotaBytes}, nil
}

func (s *FileKV) path(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.ContainsAny(key, "/\\") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

func (s *FileKV) Get(key string) ([]byte, bool, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s *FileKV) Set(key string, value []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quotaBytes > 0 {
		used, err := s.usedLocked(p)
		if err != nil {
			return err
		}
		if used+int64(len(value)) > s.quotaBytes {
			return fmt.Errorf("%w: %d bytes over %d byte quota",
				ErrQuotaExceeded, used+int64(len(value))-s.quotaBytes, s.quotaBytes)
		}
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

func (s *FileKV) Delete(key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// usedLocked sums stored bytes, excluding the key being overwritten.
func (s *FileKV) usedLocked(exclude string) (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	var used int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(s.dir, e.Name())
		if p == exclude {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return 0, err
		}
		used += info.Size()
	}
	return used, nil
}

// MemoryKV is an in-memory store for tests and throwaway sessions.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string][]byte

	// FailWrites makes Set fail, for exercising unavailable-storage paths.
	FailWrites bool
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: map[string][]byte{}}
}

func (s *MemoryKV) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, true, nil
}

func (s *MemoryKV) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return fmt.Errorf("write refused")
	}
	b := make([]byte, len(value))
	copy(b, value)
	s.data[key] = b
	return nil
}

func (s *MemoryKV) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
