package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/brettbedarf/sandboxfs"
)

// HTTPClient is the part of *http.Client the provider needs
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPProvider implements [sandboxfs.SeedProvider] for http and https URLs
type HTTPProvider struct {
	client  HTTPClient
	headers map[string]string
}

// NewHTTPProvider creates a provider sending headers with every request
func NewHTTPProvider(client HTTPClient, headers map[string]string) *HTTPProvider {
	return &HTTPProvider{client: client, headers: headers}
}

func (p *HTTPProvider) NewSource(location string) (sandboxfs.SeedSource, error) {
	u, err := validateURL(location)
	if err != nil {
		return nil, err
	}
	return &HTTPSource{URL: u, Headers: p.headers, client: p.client}, nil
}

func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty URL")
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("URL %q has no host", raw)
	}
	if u.User != nil {
		return "", fmt.Errorf("URL %q must not contain user info", raw)
	}
	return u.String(), nil
}

// HTTPSource fetches a seed document with a GET request
type HTTPSource struct {
	URL     string
	Headers map[string]string
	client  HTTPClient
}

func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range s.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: unexpected status %s", s.URL, resp.Status)
	}
	return resp.Body, nil
}
