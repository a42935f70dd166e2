package mocks

import (
	"context"
	"io"

	"github.com/brettbedarf/sandboxfs"
	"github.com/stretchr/testify/mock"
)

// MockSeedProvider implements sandboxfs.SeedProvider for testing across packages
type MockSeedProvider struct {
	mock.Mock
}

func (m *MockSeedProvider) NewSource(location string) (sandboxfs.SeedSource, error) {
	args := m.Called(location)
	if src := args.Get(0); src != nil {
		return src.(sandboxfs.SeedSource), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockSeedSource implements sandboxfs.SeedSource
type MockSeedSource struct {
	mock.Mock
}

func (m *MockSeedSource) Open(ctx context.Context) (io.ReadCloser, error) {
	args := m.Called(ctx)
	if rc := args.Get(0); rc != nil {
		return rc.(io.ReadCloser), args.Error(1)
	}
	return nil, args.Error(1)
}
