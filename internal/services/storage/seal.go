package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"filippo.io/age"
)

// minPasswordLen is the shortest passphrase Seal accepts
const minPasswordLen = 8

// Seal encrypts every data file in the directory with password and leaves
// the directory unlocked. On failure, files already sealed are restored.
func (s *Storage) Seal(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return fmt.Errorf("snapshot directory is already sealed")
	}
	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	identity, recipient, err := s.keys(password)
	if err != nil {
		return err
	}

	files, err := s.dataFiles()
	if err != nil {
		return err
	}

	verifyPath := filepath.Join(s.baseDir, verifyFile)
	magic, err := sealData([]byte(verifyMagic), recipient)
	if err != nil {
		return fmt.Errorf("seal verification file: %w", err)
	}
	if err := atomicWrite(verifyPath, magic, 0644); err != nil {
		return fmt.Errorf("write verification file: %w", err)
	}

	var done []string
	for _, path := range files {
		if err := transform(path, func(data []byte) ([]byte, bool, error) {
			if isSealed(data) {
				return nil, false, nil
			}
			out, err := sealData(data, recipient)
			return out, true, err
		}); err != nil {
			s.restore(done, identity)
			os.Remove(verifyPath)
			return fmt.Errorf("seal %s: %w", filepath.Base(path), err)
		}
		done = append(done, path)
	}

	if err := atomicWrite(filepath.Join(s.baseDir, markerFile), []byte("sealed"), 0644); err != nil {
		return fmt.Errorf("write marker file: %w", err)
	}

	s.sealed = true
	s.identity = identity
	s.recipient = recipient
	return nil
}

// Unseal decrypts every sealed file in place. password must match the seal.
func (s *Storage) Unseal(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sealed {
		return fmt.Errorf("snapshot directory is not sealed")
	}

	identity, _, err := s.keys(password)
	if err != nil {
		return err
	}
	if err := s.verify(identity); err != nil {
		return err
	}

	files, err := s.dataFiles()
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := transform(path, func(data []byte) ([]byte, bool, error) {
			if !isSealed(data) {
				return nil, false, nil
			}
			out, err := openData(data, identity)
			return out, true, err
		}); err != nil {
			return fmt.Errorf("unseal %s: %w", filepath.Base(path), err)
		}
	}

	os.Remove(filepath.Join(s.baseDir, markerFile))
	os.Remove(filepath.Join(s.baseDir, verifyFile))

	s.sealed = false
	s.identity = nil
	s.recipient = nil
	return nil
}

// dataFiles lists absolute paths of every non-control file
func (s *Storage) dataFiles() ([]string, error) {
	names, err := s.List()
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, filepath.Join(s.baseDir, filepath.FromSlash(name)))
	}
	return paths, nil
}

// transform rewrites one file in place when fn reports a change
func transform(path string, fn func([]byte) ([]byte, bool, error)) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, changed, err := fn(data)
	if err != nil || !changed {
		return err
	}
	return atomicWrite(path, out, 0644)
}

// restore opens files sealed during a failed Seal, best effort
func (s *Storage) restore(paths []string, identity *age.ScryptIdentity) {
	for _, path := range paths {
		transform(path, func(data []byte) ([]byte, bool, error) {
			if !isSealed(data) {
				return nil, false, nil
			}
			out, err := openData(data, identity)
			return out, err == nil, nil
		})
	}
}
