package kvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"

	"gw-audit/internal/domain"
)

// File stores all keys in one JSON object on disk. Every write replaces the
// file atomically, so a crash leaves either the old or the new contents.
// A file that cannot be decoded is moved aside to <path>.corrupt and the
// store continues empty.
type File struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewFile creates a store backed by path. The file is created on first write.
func NewFile(path string, logger *slog.Logger) *File {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &File{path: path, logger: logger}
}

// Path returns the backing file.
func (f *File) Path() string { return f.path }

// Get implements domain.KVStore.
func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := data[key]
	return v, ok, nil
}

// Set implements domain.KVStore.
func (f *File) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.load()
	if err != nil {
		return err
	}
	data[key] = value
	return f.store(data)
}

// Delete implements domain.KVStore.
func (f *File) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.load()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := data[k]; ok {
			delete(data, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return f.store(data)
}

func (f *File) load() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	data := map[string]string{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		f.quarantine(err)
		return map[string]string{}, nil
	}
	return data, nil
}

func (f *File) quarantine(decodeErr error) {
	aside := f.path + ".corrupt"
	if err := os.Rename(f.path, aside); err != nil {
		f.logger.Warn("checkpoint file corrupt, starting empty", "path", f.path, "error", decodeErr, "rename_error", err)
		return
	}
	f.logger.Warn("checkpoint file corrupt, moved aside and starting empty", "path", f.path, "moved_to", aside, "error", decodeErr)
}

func (f *File) store(data map[string]string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o750); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(f.path), err)
	}
	if err := atomic.WriteFile(f.path, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}

var _ domain.KVStore = (*File)(nil)
