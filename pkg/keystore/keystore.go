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

// Package keystore manages the per-user key files written by the PKI
// backend. Each session token has its own key pair:
//
//	<root>/<username>/pri/<name>   private key, 0600
//	<root>/<username>/<name>       public key, 0600
//
// Directories are created 0700. Names are random and files are created
// exclusively, so concurrent writers in different processes never collide
// and no locking is required.
package keystore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jeremyhahn/go-sessionsign/pkg/logging"
	"github.com/jeremyhahn/go-sessionsign/pkg/types"
	"github.com/jeremyhahn/go-sessionsign/pkg/validation"
	"github.com/spf13/afero"
)

const (
	// DirPerm is applied to the root and every user directory.
	DirPerm os.FileMode = 0700

	// FilePerm is applied to every key file.
	FilePerm os.FileMode = 0600

	// PrivateDirName is the per-user subdirectory holding private keys.
	PrivateDirName = "pri"

	// maxNameAttempts bounds the exclusive-create retry loop.
	maxNameAttempts = 16
)

// Config holds the key store configuration.
type Config struct {
	// Fs is the filesystem to use. Defaults to the OS filesystem.
	Fs afero.Fs

	// RootDir is the directory holding one subdirectory per user.
	RootDir string

	// Passphrase, when set, encrypts private keys at rest.
	Passphrase types.Password

	// Logger defaults to logging.DefaultLogger().
	Logger *logging.Logger
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if c.RootDir == "" {
		return fmt.Errorf("%w: root directory is required", ErrInvalidConfig)
	}
	return nil
}

// KeyRecord describes one stored key pair.
type KeyRecord struct {
	Username    string
	Name        string
	PrivatePath string
	PublicPath  string
	ModTime     time.Time
}

// KeyFiles holds the open handles of a freshly created key pair.
type KeyFiles struct {
	KeyRecord

	Private afero.File
	Public  afero.File
}

// Close closes both handles.
func (kf *KeyFiles) Close() error {
	return errors.Join(kf.Private.Close(), kf.Public.Close())
}

// KeyStore is a filesystem-backed store of per-user key files.
type KeyStore struct {
	fs         afero.Fs
	root       string
	passphrase types.Password
	logger     *logging.Logger
}

// New creates the key store, creating the root directory if needed and
// restricting it to the owner.
func New(cfg *Config) (*KeyStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fsys := cfg.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	root := filepath.Clean(cfg.RootDir)
	if err := fsys.MkdirAll(root, DirPerm); err != nil {
		return nil, fmt.Errorf("%w: create root %s: %v", ErrFilesystem, root, err)
	}
	if err := fsys.Chmod(root, DirPerm); err != nil {
		return nil, fmt.Errorf("%w: chmod root %s: %v", ErrFilesystem, root, err)
	}

	return &KeyStore{
		fs:         fsys,
		root:       root,
		passphrase: cfg.Passphrase,
		logger:     logger,
	}, nil
}

// RootDir returns the key store root.
func (ks *KeyStore) RootDir() string {
	return ks.root
}

// Fs returns the underlying filesystem.
func (ks *KeyStore) Fs() afero.Fs {
	return ks.fs
}

// Passphrase returns the at-rest passphrase, or nil when keys are stored
// in the clear.
func (ks *KeyStore) Passphrase() []byte {
	if ks.passphrase == nil {
		return nil
	}
	return ks.passphrase.Bytes()
}

// UserDir returns <root>/<username>.
func (ks *KeyStore) UserDir(username string) string {
	return filepath.Join(ks.root, username)
}

// PrivateDir returns <root>/<username>/pri.
func (ks *KeyStore) PrivateDir(username string) string {
	return filepath.Join(ks.root, username, PrivateDirName)
}

// EnsureUserDir creates the user directory and its private subdirectory.
// Directories that already exist are not an error.
func (ks *KeyStore) EnsureUserDir(username string) error {
	if err := validation.ValidateUsername(username); err != nil {
		return err
	}
	for _, dir := range []string{ks.UserDir(username), ks.PrivateDir(username)} {
		if err := ks.fs.Mkdir(dir, DirPerm); err != nil && !os.IsExist(err) {
			return fmt.Errorf("%w: mkdir %s: %v", ErrFilesystem, dir, err)
		}
	}
	return nil
}

// CreateKeyFiles exclusively creates a new private key file and its public
// sibling under a fresh random name. The caller writes and closes both
// handles, or calls Discard on failure.
func (ks *KeyStore) CreateKeyFiles(username string) (*KeyFiles, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := uuid.New().String()
		priPath := filepath.Join(ks.PrivateDir(username), name)
		pubPath := filepath.Join(ks.UserDir(username), name)

		pri, err := ks.createExclusive(priPath)
		if err != nil {
			if errors.Is(err, fs.ErrExist) {
				ks.logger.Debugf("keystore: name collision on %s, retrying", priPath)
				continue
			}
			return nil, fmt.Errorf("%w: create %s: %v", ErrFilesystem, priPath, err)
		}

		pub, err := ks.createExclusive(pubPath)
		if err != nil {
			_ = pri.Close()
			_ = ks.fs.Remove(priPath)
			if errors.Is(err, fs.ErrExist) {
				ks.logger.Debugf("keystore: name collision on %s, retrying", pubPath)
				continue
			}
			return nil, fmt.Errorf("%w: create %s: %v", ErrFilesystem, pubPath, err)
		}

		return &KeyFiles{
			KeyRecord: KeyRecord{
				Username:    username,
				Name:        name,
				PrivatePath: priPath,
				PublicPath:  pubPath,
				ModTime:     time.Now(),
			},
			Private: pri,
			Public:  pub,
		}, nil
	}

	return nil, ErrNameExhausted
}

func (ks *KeyStore) createExclusive(path string) (afero.File, error) {
	return ks.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, FilePerm)
}

// Discard closes and removes a key pair created by CreateKeyFiles.
func (ks *KeyStore) Discard(kf *KeyFiles) {
	_ = kf.Close()
	for _, path := range []string{kf.PrivatePath, kf.PublicPath} {
		if err := ks.fs.Remove(path); err != nil && !os.IsNotExist(err) {
			ks.logger.Warnf("keystore: failed to remove %s: %v", path, err)
		}
	}
}

// WritePair stores a private and public key under a new name and returns
// its record. Nothing is left behind on failure.
func (ks *KeyStore) WritePair(username string, privateData, publicData []byte) (*KeyRecord, error) {
	kf, err := ks.CreateKeyFiles(username)
	if err != nil {
		return nil, err
	}

	if _, err := kf.Public.Write(publicData); err != nil {
		ks.Discard(kf)
		return nil, fmt.Errorf("%w: write %s: %v", ErrFilesystem, kf.PublicPath, err)
	}
	if _, err := kf.Private.Write(privateData); err != nil {
		ks.Discard(kf)
		return nil, fmt.Errorf("%w: write %s: %v", ErrFilesystem, kf.PrivatePath, err)
	}
	if err := kf.Close(); err != nil {
		ks.Discard(kf)
		return nil, fmt.Errorf("%w: close key files: %v", ErrFilesystem, err)
	}

	record := kf.KeyRecord
	return &record, nil
}

// ListPrivateKeys returns the names of the private key files stored for
// username in directory order. Subdirectories are skipped. A user without a
// key directory has no keys.
func (ks *KeyStore) ListPrivateKeys(username string) ([]string, error) {
	infos, err := ks.readPrivateDir(username)
	if err != nil || infos == nil {
		return nil, err
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		names = append(names, info.Name())
	}
	return names, nil
}

func (ks *KeyStore) readPrivateDir(username string) ([]os.FileInfo, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}

	dir, err := ks.fs.Open(ks.PrivateDir(username))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: open %s: %v", ErrFilesystem, ks.PrivateDir(username), err)
	}
	defer dir.Close()

	infos, err := dir.Readdir(-1)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrFilesystem, ks.PrivateDir(username), err)
	}
	return infos, nil
}

// ReadPrivateKey returns the contents of a stored private key file.
func (ks *KeyStore) ReadPrivateKey(username, name string) ([]byte, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}
	if name == "" || filepath.Base(name) != name {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, name)
	}

	path := filepath.Join(ks.PrivateDir(username), name)
	data, err := afero.ReadFile(ks.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, path)
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrFilesystem, path, err)
	}
	return data, nil
}

// Records returns a record for every stored private key of username.
func (ks *KeyStore) Records(username string) ([]KeyRecord, error) {
	infos, err := ks.readPrivateDir(username)
	if err != nil {
		return nil, err
	}

	records := make([]KeyRecord, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		records = append(records, KeyRecord{
			Username:    username,
			Name:        info.Name(),
			PrivatePath: filepath.Join(ks.PrivateDir(username), info.Name()),
			PublicPath:  filepath.Join(ks.UserDir(username), info.Name()),
			ModTime:     info.ModTime(),
		})
	}
	return records, nil
}

// Purge removes every key pair of username last modified before cutoff and
// returns how many pairs were removed. Keys are never purged implicitly.
func (ks *KeyStore) Purge(username string, cutoff time.Time) (int, error) {
	records, err := ks.Records(username)
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs []error
	for _, rec := range records {
		if !rec.ModTime.Before(cutoff) {
			continue
		}
		if err := ks.fs.Remove(rec.PrivatePath); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("%w: remove %s: %v", ErrFilesystem, rec.PrivatePath, err))
			continue
		}
		if err := ks.fs.Remove(rec.PublicPath); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("%w: remove %s: %v", ErrFilesystem, rec.PublicPath, err))
		}
		removed++
	}

	if removed > 0 {
		ks.logger.Info("keystore: purged keys",
			"user", validation.SanitizeForLog(username),
			"removed", removed,
			"cutoff", cutoff.Format(time.RFC3339))
	}
	return removed, errors.Join(errs...)
}
