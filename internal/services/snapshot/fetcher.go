package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"intakedash/internal/services/breaker"
)

// ErrNotFound is returned by a Fetcher when the named file does not exist
var ErrNotFound = errors.New("snapshot file not found")

// Fetcher retrieves one snapshot file by name
type Fetcher interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// FileReader is the subset of storage.Storage used by StorageFetcher
type FileReader interface {
	ReadFile(name string) ([]byte, error)
}

// StorageFetcher reads snapshot files from a local, possibly sealed, directory
type StorageFetcher struct {
	files FileReader
}

// NewStorageFetcher creates a fetcher over files
func NewStorageFetcher(files FileReader) *StorageFetcher {
	return &StorageFetcher{files: files}
}

func (f *StorageFetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := f.files.ReadFile(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// HTTPFetcher downloads snapshot files relative to a base URL
type HTTPFetcher struct {
	baseURL string
	client  *breaker.Client
}

// NewHTTPFetcher creates a fetcher for files published under baseURL
func NewHTTPFetcher(baseURL string, client *breaker.Client) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	url := f.baseURL + "/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", url, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return data, nil
}
