package kvstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
)

// FileStorage is the subset of storage.Storage the file backend needs
type FileStorage interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// File keeps each key in its own file under kv/. Writes are atomic and are
// sealed when the underlying directory is.
type File struct {
	files FileStorage
}

// NewFile creates a file-backed store
func NewFile(files FileStorage) *File {
	return &File{files: files}
}

func (f *File) Get(ctx context.Context, key string) (string, bool, error) {
	data, err := f.files.ReadFile(keyPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read key %s: %w", key, err)
	}
	return strings.TrimSpace(string(data)), true, nil
}

func (f *File) Set(ctx context.Context, key, value string) error {
	if err := f.files.WriteFile(keyPath(key), []byte(value)); err != nil {
		return fmt.Errorf("write key %s: %w", key, err)
	}
	return nil
}

func keyPath(key string) string {
	return "kv/" + unsafeKeyChars.ReplaceAllString(key, "_")
}
