// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-sessionsign.
//
// go-sessionsign is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package file provides a file-based implementation of the storage.Backend
// interface on top of an afero filesystem, with an RWMutex for thread-safe
// operations.
package file

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jeremyhahn/go-sessionsign/pkg/storage"
	"github.com/spf13/afero"
)

const (
	// Default directory permissions (owner rwx only)
	defaultDirPerms = 0700

	// Default file permissions (owner rw only)
	defaultPerms = 0600
)

// FileStorage is a file-based implementation of storage.Backend.
// It stores key-value pairs as files in a directory hierarchy and is thread-safe.
type FileStorage struct {
	mu      sync.RWMutex
	fs      afero.Fs
	rootDir string
	closed  bool
}

// New creates a new FileStorage rooted at rootDir on fsys. A nil fsys uses
// the OS filesystem. The root directory is created with 0700 permissions if
// it doesn't exist.
func New(fsys afero.Fs, rootDir string) (storage.Backend, error) {
	if rootDir == "" {
		return nil, fmt.Errorf("file storage: root directory cannot be empty")
	}
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	if err := fsys.MkdirAll(rootDir, defaultDirPerms); err != nil {
		return nil, fmt.Errorf("file storage: failed to create root directory: %w", err)
	}

	return &FileStorage{
		fs:      fsys,
		rootDir: filepath.Clean(rootDir),
	}, nil
}

// Get retrieves the value for the given key.
// Returns storage.ErrNotFound if the key does not exist.
func (f *FileStorage) Get(key string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, storage.ErrClosed
	}
	filePath, err := f.keyToPath(key)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(f.fs, filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("file storage: failed to read key %q: %w", key, err)
	}

	return data, nil
}

// Put stores the value for the given key, overwriting any previous value.
// Files are owner read/write unless opts says otherwise.
func (f *FileStorage) Put(key string, value []byte, opts *storage.Options) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return storage.ErrClosed
	}
	filePath, err := f.keyToPath(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(filePath)
	if err := f.fs.MkdirAll(dir, defaultDirPerms); err != nil {
		return fmt.Errorf("file storage: failed to create directory for key %q: %w", key, err)
	}

	perms := fs.FileMode(defaultPerms)
	if opts != nil && opts.Permissions != 0 {
		perms = opts.Permissions
	}

	if err := afero.WriteFile(f.fs, filePath, value, perms); err != nil {
		return fmt.Errorf("file storage: failed to write key %q: %w", key, err)
	}

	return nil
}

// Delete removes the key and its value from storage.
// Returns storage.ErrNotFound if the key does not exist.
func (f *FileStorage) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return storage.ErrClosed
	}
	filePath, err := f.keyToPath(key)
	if err != nil {
		return err
	}

	if err := f.fs.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("file storage: failed to delete key %q: %w", key, err)
	}

	return nil
}

// List returns all keys with the given prefix in sorted order.
// If prefix is empty, all keys are returned.
func (f *FileStorage) List(prefix string) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, storage.ErrClosed
	}

	keys := make([]string, 0)
	err := afero.Walk(f.fs, f.rootDir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(f.rootDir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix == "" || strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("file storage: failed to list keys: %w", err)
	}

	sort.Strings(keys)
	return keys, nil
}

// Exists checks if a key exists in storage.
func (f *FileStorage) Exists(key string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return false, storage.ErrClosed
	}
	filePath, err := f.keyToPath(key)
	if err != nil {
		return false, err
	}

	ok, err := afero.Exists(f.fs, filePath)
	if err != nil {
		return false, fmt.Errorf("file storage: failed to check key %q: %w", key, err)
	}
	return ok, nil
}

// Close marks the storage closed. Files are left in place.
func (f *FileStorage) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// keyToPath converts a storage key to a file path below the root.
func (f *FileStorage) keyToPath(key string) (string, error) {
	if err := validateStorageKey(key); err != nil {
		return "", fmt.Errorf("%w: %v", storage.ErrInvalidKey, err)
	}
	return filepath.Join(f.rootDir, filepath.FromSlash(key)), nil
}

// validateStorageKey allows path separators for organization but blocks
// traversal out of the root.
func validateStorageKey(key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}

	if strings.Contains(key, "\x00") {
		return fmt.Errorf("key contains null byte")
	}

	if filepath.IsAbs(key) || strings.HasPrefix(key, "/") {
		return fmt.Errorf("key cannot be an absolute path")
	}

	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return fmt.Errorf("key contains path traversal attempt")
	}

	return nil
}

var _ storage.Backend = (*FileStorage)(nil)
