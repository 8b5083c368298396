package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemProvider serves images from a locally mounted tree. Used in
// demo deployments and anywhere the bank's share is OS-mounted.
type FilesystemProvider struct {
	// probePath is stat'ed by health probes; typically the first allowed root.
	probePath string
}

func NewFilesystemProvider(probePath string) *FilesystemProvider {
	return &FilesystemProvider{probePath: probePath}
}

func (p *FilesystemProvider) Name() string { return "filesystem" }

func (p *FilesystemProvider) Fetch(ctx context.Context, path string) ([]byte, error) {
	return fetchWithRetry(ctx, func(ctx context.Context) ([]byte, error) {
		data, err := os.ReadFile(localPath(path))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, ErrNotFound
			}
			var pathErr *fs.PathError
			if errors.As(err, &pathErr) {
				// Mounted-share hiccups show up as EIO here.
				return nil, MarkTransient(err)
			}
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return data, nil
	})
}

func (p *FilesystemProvider) Probe(ctx context.Context) error {
	if p.probePath == "" {
		return nil
	}
	if _, err := os.Stat(localPath(p.probePath)); err != nil {
		return fmt.Errorf("storage root unreachable: %w", err)
	}
	return nil
}

// localPath converts resolved paths (which may use backslash separators) to
// the host's separator.
func localPath(path string) string {
	return filepath.FromSlash(strings.ReplaceAll(path, `\`, "/"))
}

