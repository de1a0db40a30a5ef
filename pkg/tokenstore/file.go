package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/lborres/agenda/core"
	"github.com/lborres/agenda/pkg/crypto"
)

const filePerm = 0o600

// FileStore implements core.TokenStorage as a small JSON document on disk.
//
// With a Sealer, every value is encrypted before it is written. Values that
// were written without sealing are still readable, so a passphrase can be
// introduced later.
type FileStore struct {
	path   string
	sealer *crypto.Sealer
	mu     sync.Mutex
}

type FileOption func(*FileStore)

// WithSealer encrypts stored values with s
func WithSealer(s *crypto.Sealer) FileOption {
	return func(f *FileStore) {
		f.sealer = s
	}
}

func NewFileStore(path string, opts ...FileOption) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("token file path is required")
	}
	f := &FileStore{path: path}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return "", err
	}

	value, ok := values[key]
	if !ok {
		return "", core.ErrTokenNotFound
	}
	if !crypto.IsSealed(value) {
		return value, nil
	}
	if f.sealer == nil {
		return "", fmt.Errorf("token %q is sealed: %w", key, crypto.ErrPassphraseRequired)
	}

	plain, err := f.sealer.Open(value)
	if err != nil {
		return "", fmt.Errorf("failed to open token %q: %w", key, err)
	}
	return string(plain), nil
}

func (f *FileStore) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}

	if f.sealer != nil {
		sealed, err := f.sealer.Seal([]byte(value))
		if err != nil {
			return fmt.Errorf("failed to seal token: %w", err)
		}
		value = sealed
	}
	values[key] = value

	return f.save(values)
}

func (f *FileStore) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)

	if len(values) == 0 {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove token file: %w", err)
		}
		return nil
	}
	return f.save(values)
}

func (f *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	values := make(map[string]string)
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse token file %s: %w", f.path, err)
	}
	return values, nil
}

// save writes through a temp file so a crash never leaves a torn document
func (f *FileStore) save(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tokens-*")
	if err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}
