package credstore

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/dmitrymomot/authkit/pkg/logger"
)

// FileStore is a durable Store backed by a JSON file, the process-restart
// analog of browser local storage. All writes go through an in-memory mirror
// first, so the store keeps working for the current session even when the
// file cannot be written (read-only filesystem, missing home directory).
// Credential values are encrypted at rest when an encryption key is provided.
type FileStore struct {
	path string
	key  []byte
	log  *slog.Logger

	mu    sync.RWMutex
	state fileState
}

type fileState struct {
	Credentials map[Kind]string `json:"credentials"`
	Profile     json.RawMessage `json:"profile,omitempty"`
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithEncryptionKey enables at-rest encryption of credential values with the
// given 32-byte key. Invalid keys disable persistence of credentials rather
// than storing them in plaintext.
func WithEncryptionKey(key []byte) FileOption {
	return func(s *FileStore) {
		s.key = key
	}
}

// WithFileLogger sets the logger used for storage failure diagnostics.
func WithFileLogger(log *slog.Logger) FileOption {
	return func(s *FileStore) {
		if log != nil {
			s.log = log
		}
	}
}

// NewFileStore creates a file-backed store at path. An unreadable or corrupt
// file is treated as empty; the store never fails to construct.
func NewFileStore(path string, opts ...FileOption) *FileStore {
	s := &FileStore{
		path: path,
		log:  logger.Discard(),
		state: fileState{
			Credentials: make(map[Kind]string),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.load()
	return s
}

// DefaultPath returns the conventional credentials file location under the
// user config directory, or an empty string when no config dir is available.
func DefaultPath(appName string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appName, "credentials.json")
}

func (s *FileStore) Save(kind Kind, value string) {
	stored := value
	if s.key != nil {
		enc, err := encryptString(s.key, value)
		if err != nil {
			s.log.Debug("credstore: encrypt failed, credential kept in memory only", logger.Error(err))
			s.mu.Lock()
			s.state.Credentials[kind] = ""
			s.mu.Unlock()
			return
		}
		stored = enc
	}

	s.mu.Lock()
	s.state.Credentials[kind] = stored
	s.persistLocked()
	s.mu.Unlock()
}

func (s *FileStore) Read(kind Kind) (string, bool) {
	s.mu.RLock()
	stored, ok := s.state.Credentials[kind]
	s.mu.RUnlock()
	if !ok || stored == "" {
		return "", false
	}

	if s.key != nil {
		plain, err := decryptString(s.key, stored)
		if err != nil {
			s.log.Debug("credstore: decrypt failed, treating credential as absent", logger.Error(err))
			return "", false
		}
		return plain, true
	}
	return stored, true
}

func (s *FileStore) SaveProfile(raw []byte) {
	s.mu.Lock()
	s.state.Profile = append(json.RawMessage(nil), raw...)
	s.persistLocked()
	s.mu.Unlock()
}

func (s *FileStore) Profile() ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Profile == nil {
		return nil, false
	}
	return append([]byte(nil), s.state.Profile...), true
}

func (s *FileStore) HasProfile() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Profile != nil
}

func (s *FileStore) Clear() {
	s.mu.Lock()
	clear(s.state.Credentials)
	s.state.Profile = nil
	s.persistLocked()
	s.mu.Unlock()
}

// load reads the backing file into the in-memory mirror. Missing or corrupt
// files leave the store empty.
func (s *FileStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Debug("credstore: read failed, starting empty", logger.Error(err))
		}
		return
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		s.log.Debug("credstore: corrupt state file, starting empty", logger.Error(err))
		return
	}
	if state.Credentials == nil {
		state.Credentials = make(map[Kind]string)
	}
	s.state = state
}

// persistLocked writes the mirror to disk via a temp file rename so readers
// of the file never observe a partial write. Caller must hold s.mu.
func (s *FileStore) persistLocked() {
	if s.path == "" {
		return
	}

	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		s.log.Debug("credstore: marshal failed, state not persisted", logger.Error(err))
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		s.log.Debug("credstore: mkdir failed, state not persisted", logger.Error(err))
		return
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		s.log.Debug("credstore: write failed, state not persisted", logger.Error(err))
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.log.Debug("credstore: rename failed, state not persisted", logger.Error(err))
		_ = os.Remove(tmp)
	}
}
