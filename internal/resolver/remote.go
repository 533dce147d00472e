package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"
)

// defaultHTTPClient is the default HTTP client used by RemoteResolver
// This can be overridden for testing
var defaultHTTPClient *http.Client

// Default timeout for HTTP requests
const defaultHTTPTimeout = 30 * time.Second

// RemoteResolver implements SourceResolver for manifests served over HTTP/HTTPS
type RemoteResolver struct {
	source  string
	opts    *Options
	client  *http.Client
	baseURL *url.URL
}

// isValidURL checks if a string is a valid URL
func isValidURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// NewRemoteResolver creates a new RemoteResolver
func NewRemoteResolver(source string, opts *Options, client *http.Client) (*RemoteResolver, error) {
	if !isValidURL(source) {
		return nil, fmt.Errorf("%w: invalid URL: %s", ErrInvalidSource, source)
	}

	baseURL, err := url.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	// Use provided client or default client if not provided
	if client == nil {
		client = defaultHTTPClient
		if client == nil {
			timeout := defaultHTTPTimeout
			if opts != nil && opts.Timeout > 0 {
				timeout = opts.Timeout
			}
			client = &http.Client{
				Timeout: timeout,
				CheckRedirect: func(req *http.Request, via []*http.Request) error {
					if len(via) >= 10 {
						return fmt.Errorf("too many redirects")
					}
					return nil
				},
			}
		}
	}

	return &RemoteResolver{
		source:  source,
		opts:    opts,
		client:  client,
		baseURL: baseURL,
	}, nil
}

// CanResolve checks if this resolver can handle the given source. Manifest
// URLs often carry no extension, so only the scheme is checked.
func (r *RemoteResolver) CanResolve(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Resolve fetches and validates the manifest
func (r *RemoteResolver) Resolve(ctx context.Context) (*Result, *ResolverMetadata, error) {
	// Create request with context
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.source, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Add appropriate headers
	req.Header.Set("Accept", "application/dash+xml,application/xml,text/xml")
	req.Header.Set("User-Agent", "mpd-scope/1.0")

	// Perform the request
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	// Check response status
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("HTTP request failed with status: %s", resp.Status)
	}

	var body io.Reader = resp.Body
	if r.opts != nil && r.opts.MaxSize > 0 {
		// one byte past the limit tells an oversized body apart
		body = io.LimitReader(resp.Body, r.opts.MaxSize+1)
	}
	content, err := io.ReadAll(body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if err := checkSize(int64(len(content)), r.opts); err != nil {
		return nil, nil, err
	}
	if err := validateManifest(content); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", r.source, err)
	}

	name := path.Base(r.baseURL.Path)
	if name == "." || name == "/" {
		name = r.baseURL.Host
	}
	return &Result{Manifests: []Manifest{{Name: name, Content: string(content)}}}, &ResolverMetadata{
		Name:    name,
		Type:    SourceTypeRemote,
		Path:    r.source,
		Size:    int64(len(content)),
		ModTime: time.Now(),
		Extra: map[string]interface{}{
			"contentType": resp.Header.Get("Content-Type"),
			"statusCode":  resp.StatusCode,
		},
	}, nil
}
