package adapters

import "net/http"

type BuiltInAdapterType = string

const (
	FileAdapterType  BuiltInAdapterType = "file"
	HTTPAdapterType  BuiltInAdapterType = "http"
	HTTPSAdapterType BuiltInAdapterType = "https"
)

// RegisterBuiltins registers all built-in providers by default
// or only the specific ones if keys are provided
func RegisterBuiltins(r *Registry, adapters ...BuiltInAdapterType) {
	if len(adapters) == 0 {
		adapters = append(adapters, FileAdapterType, HTTPAdapterType, HTTPSAdapterType)
	}

	httpProvider := NewHTTPProvider(http.DefaultClient, nil)
	for _, key := range adapters {
		switch key {
		case FileAdapterType:
			r.Register(key, &FileProvider{})
		case HTTPAdapterType, HTTPSAdapterType:
			r.Register(key, httpProvider)
		}
	}
}

// DefaultRegistry returns a registry with every built-in provider
func DefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}
