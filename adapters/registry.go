// Package adapters loads seed trees from external locations through pluggable
// providers keyed by location scheme.
package adapters

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/brettbedarf/sandboxfs"
	"github.com/brettbedarf/sandboxfs/filesystem"
	"github.com/brettbedarf/sandboxfs/internal/util"
	"gopkg.in/yaml.v3"
)

// MaxSeedBytes bounds how much of a seed source is read
const MaxSeedBytes = 8 << 20

// Registry maps location schemes to seed providers
type Registry struct {
	mu        sync.RWMutex
	providers map[string]sandboxfs.SeedProvider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]sandboxfs.SeedProvider)}
}

// Register ties a provider to a scheme key ("file", "http", ...).
// The first registration for a scheme wins.
func (r *Registry) Register(scheme string, p sandboxfs.SeedProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[scheme]; exists {
		logger := util.GetLogger("Adapters.Register")
		logger.Warn().Str("scheme", scheme).Msg("Provider already registered; ignoring")
		return
	}
	r.providers[scheme] = p
}

func (r *Registry) GetProvider(scheme string) (sandboxfs.SeedProvider, error) {
	r.mu.RLock()
	p, ok := r.providers[scheme]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no provider for %q", scheme)
	}
	return p, nil
}

// Load fetches and validates the seed tree at location. Locations without
// a "scheme://" prefix are file paths.
func (r *Registry) Load(ctx context.Context, location string) (*filesystem.SnapshotNode, error) {
	logger := util.GetLogger("Adapters.Load")
	location = strings.TrimSpace(location)
	scheme := SchemeOf(location)

	p, err := r.GetProvider(scheme)
	if err != nil {
		return nil, err
	}
	src, err := p.NewSource(location)
	if err != nil {
		return nil, err
	}
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed %s: %w", location, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxSeedBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read seed %s: %w", location, err)
	}
	if len(data) > MaxSeedBytes {
		return nil, fmt.Errorf("seed %s exceeds %d bytes", location, MaxSeedBytes)
	}

	snap, err := DecodeSeed(data)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("location", location).Str("scheme", scheme).Msg("Seed loaded")
	return snap, nil
}

// DecodeSeed parses a YAML or JSON encoded [filesystem.SnapshotNode] and
// checks that it forms a valid tree
func DecodeSeed(data []byte) (*filesystem.SnapshotNode, error) {
	var snap filesystem.SnapshotNode
	// JSON documents are valid YAML
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal seed: %w", err)
	}
	if _, err := filesystem.NewFSFromSnapshot(&snap); err != nil {
		return nil, fmt.Errorf("invalid seed: %w", err)
	}
	return &snap, nil
}

// SchemeOf returns the lowercased scheme of location, or "file" when it has none
func SchemeOf(location string) string {
	scheme, _, found := strings.Cut(location, "://")
	if !found || scheme == "" {
		return FileAdapterType
	}
	return strings.ToLower(scheme)
}
