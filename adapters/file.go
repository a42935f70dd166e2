package adapters

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/brettbedarf/sandboxfs"
)

// FileProvider implements [sandboxfs.SeedProvider] for local paths and
// file:// locations
type FileProvider struct{}

func (p *FileProvider) NewSource(location string) (sandboxfs.SeedSource, error) {
	path := strings.TrimPrefix(strings.TrimSpace(location), "file://")
	if path == "" {
		return nil, fmt.Errorf("empty seed path")
	}
	return &FileSource{Path: path}, nil
}

type FileSource struct {
	Path string
}

func (s *FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	return os.Open(s.Path)
}
