package appstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"stusave.app/internal/transfer"
)

var _ transfer.LocalState = (*FileStore)(nil)

// FileStore keeps a State as a JSON file. Writes replace the file atomically.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Path() string { return f.path }

// Load returns the stored state, or Initial if nothing has been saved yet.
func (f *FileStore) Load() (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadLocked()
}

func (f *FileStore) loadLocked() (State, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Initial(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read state file: %w", err)
	}
	s, err := Hydrate(data)
	if err != nil {
		return State{}, fmt.Errorf("%s: %w", f.path, err)
	}
	return s, nil
}

func (f *FileStore) Save(s State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveLocked(s)
}

func (f *FileStore) saveLocked(s State) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Snapshot returns the stored state as transfer payload.
func (f *FileStore) Snapshot() (json.RawMessage, error) {
	s, err := f.Load()
	if err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

// Replace hydrates payload and overwrites the stored state with it.
func (f *FileStore) Replace(payload json.RawMessage) error {
	s, err := Hydrate(payload)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveLocked(s)
}

// CheckShape accepts only payloads that Replace can store: it runs
// transfer.ValidateShape, then rejects anything Hydrate cannot decode.
func CheckShape(payload json.RawMessage) error {
	if err := transfer.ValidateShape(payload); err != nil {
		return err
	}
	if _, err := Hydrate(payload); err != nil {
		return transfer.NewError(transfer.KindInvalidDataShape, err)
	}
	return nil
}
