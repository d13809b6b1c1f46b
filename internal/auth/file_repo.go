package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type fileState struct {
	Users map[string]User `json:"users"` // keyed by normalized username
}

func newFileState() fileState {
	return fileState{Users: map[string]User{}}
}

// FileRepo is a persistent user repository backed by a single JSON file.
type FileRepo struct {
	mu   sync.RWMutex
	path string
	s    fileState
}

func NewFileRepo(dataDir string) (*FileRepo, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	r := &FileRepo{
		path: filepath.Join(dataDir, "users.json"),
		s:    newFileState(),
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRepo) load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.s = newFileState()
			return nil
		}
		return err
	}

	var loaded fileState
	if err := json.Unmarshal(b, &loaded); err != nil {
		return err
	}
	if loaded.Users == nil {
		loaded.Users = map[string]User{}
	}
	r.s = loaded
	return nil
}

func (r *FileRepo) saveLocked() error {
	b, err := json.MarshalIndent(r.s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, b, 0o600)
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func (r *FileRepo) Get(username string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.s.Users[normalizeUsername(username)]
	return u, ok
}

func (r *FileRepo) Put(u User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.s.Users[normalizeUsername(u.Username)] = u
	return r.saveLocked()
}
