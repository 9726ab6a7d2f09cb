package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

func (l *Loader) fetchFile(_ context.Context, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	defer f.Close()
	return l.readAll(f, path)
}

func (l *Loader) fetchFS(_ context.Context, name string) ([]byte, error) {
	if l.files == nil {
		return nil, ErrNoFileSystem
	}
	f, err := l.files.Open(name)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	defer f.Close()
	return l.readAll(f, name)
}

func (l *Loader) fetchURL(ctx context.Context, url string) ([]byte, error) {
	if l.client == nil {
		return nil, ErrHTTPDisabled
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	req.Header = l.header.Clone()
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json, application/yaml;q=0.9")
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{URL: url, Status: resp.StatusCode}
	}
	return l.readAll(resp.Body, url)
}

// readAll reads at most maxBytes and fails instead of truncating.
func (l *Loader) readAll(r io.Reader, location string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", location, err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, location, l.maxBytes)
	}
	return data, nil
}
