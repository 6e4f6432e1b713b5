// Package storage gives the snapshot loader and the file key-value store
// access to a directory whose files may be sealed with a passphrase.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"filippo.io/age"
)

const (
	// markerFile indicates the directory is sealed
	markerFile = ".sealed"

	// verifyFile holds verifyMagic sealed with the directory passphrase
	verifyFile = ".seal-verify"

	verifyMagic = `{"magic":"intakedash-seal-verify","version":1}`

	// defaultWorkFactor is the scrypt cost used for new seals
	defaultWorkFactor = 18
)

var (
	// ErrLocked is returned when a sealed file is read before Unlock
	ErrLocked = errors.New("storage is sealed and locked")

	// ErrBadPassword is returned when the passphrase does not open the directory
	ErrBadPassword = errors.New("incorrect password")
)

// Storage reads and writes files under one directory, sealing and opening
// them transparently once unlocked.
type Storage struct {
	baseDir    string
	sealed     bool
	workFactor int
	identity   *age.ScryptIdentity
	recipient  *age.ScryptRecipient
	mu         sync.RWMutex
}

// Option configures a Storage
type Option func(*Storage)

// WithWorkFactor sets the scrypt cost (log2) for sealing. Lower values are
// only meant for tests.
func WithWorkFactor(logN int) Option {
	return func(s *Storage) {
		s.workFactor = logN
	}
}

// New creates a Storage rooted at baseDir
func New(baseDir string, opts ...Option) (*Storage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	s := &Storage{
		baseDir:    baseDir,
		workFactor: defaultWorkFactor,
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := os.Stat(filepath.Join(baseDir, markerFile)); err == nil {
		s.sealed = true
	}

	return s, nil
}

// BaseDir returns the root directory
func (s *Storage) BaseDir() string {
	return s.baseDir
}

// IsSealed reports whether the directory is sealed with a passphrase
func (s *Storage) IsSealed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sealed
}

// IsUnlocked reports whether sealed files can currently be read
func (s *Storage) IsUnlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.sealed || s.identity != nil
}

// Unlock verifies password against the directory and keeps the key in memory
func (s *Storage) Unlock(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sealed {
		return nil
	}

	identity, recipient, err := s.keys(password)
	if err != nil {
		return err
	}
	if err := s.verify(identity); err != nil {
		return err
	}

	s.identity = identity
	s.recipient = recipient
	return nil
}

// Lock drops the key from memory
func (s *Storage) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = nil
	s.recipient = nil
}

// ReadFile reads name relative to the root, opening it if sealed
func (s *Storage) ReadFile(name string) ([]byte, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !isSealed(data) {
		return data, nil
	}
	if s.identity == nil {
		return nil, fmt.Errorf("read %s: %w", name, ErrLocked)
	}
	return openData(data, s.identity)
}

// WriteFile atomically writes name relative to the root, sealing it when
// the directory is sealed
func (s *Storage) WriteFile(name string, data []byte) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.sealed && !isControlFile(path) {
		if s.recipient == nil {
			return fmt.Errorf("write %s: %w", name, ErrLocked)
		}
		data, err = sealData(data, s.recipient)
		if err != nil {
			return fmt.Errorf("seal %s: %w", name, err)
		}
	}

	return atomicWrite(path, data, 0644)
}

// Exists reports whether name exists under the root
func (s *Storage) Exists(name string) bool {
	path, err := s.resolve(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// List returns the data files under the root, relative and sorted
func (s *Storage) List() ([]string, error) {
	var names []string
	err := filepath.Walk(s.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || isControlFile(path) || strings.HasSuffix(path, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.baseDir, err)
	}
	sort.Strings(names)
	return names, nil
}

// resolve joins name to the root and rejects paths that escape it
func (s *Storage) resolve(name string) (string, error) {
	path := filepath.Join(s.baseDir, filepath.FromSlash(name))
	rel, err := filepath.Rel(s.baseDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes storage root", name)
	}
	return path, nil
}

// keys derives the scrypt identity and recipient for password
func (s *Storage) keys(password string) (*age.ScryptIdentity, *age.ScryptRecipient, error) {
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return nil, nil, fmt.Errorf("create identity: %w", err)
	}
	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return nil, nil, fmt.Errorf("create recipient: %w", err)
	}
	recipient.SetWorkFactor(s.workFactor)
	return identity, recipient, nil
}

// verify checks identity against the verification file
func (s *Storage) verify(identity *age.ScryptIdentity) error {
	sealedMagic, err := os.ReadFile(filepath.Join(s.baseDir, verifyFile))
	if err != nil {
		return fmt.Errorf("read verification file: %w", err)
	}
	magic, err := openData(sealedMagic, identity)
	if err != nil || string(magic) != verifyMagic {
		return ErrBadPassword
	}
	return nil
}

// atomicWrite writes through a temp file and rename
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// isControlFile reports whether path is the seal marker or verification file
func isControlFile(path string) bool {
	base := filepath.Base(path)
	return base == markerFile || base == verifyFile
}
