// Package resolver fetches DASH manifests from local files, HTTP(S) URLs and
// directories of captured refreshes.
package resolver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alevsk/mpd-scope/internal/mpdtree"
)

// Error types for resolution
var (
	ErrInvalidSource = errors.New("invalid source")
	ErrNotManifest   = errors.New("not a DASH manifest")
	ErrTooLarge      = errors.New("manifest exceeds size limit")
)

// manifestExtensions are the file extensions picked up from disk
var manifestExtensions = map[string]bool{".mpd": true, ".xml": true}

// Options holds configuration for the resolvers
type Options struct {
	// FollowSymlinks determines if symlinks should be followed during directory traversal
	FollowSymlinks bool
	// MaxSize caps the size of a single manifest in bytes, 0 means no limit
	MaxSize int64
	// Timeout bounds a remote fetch when the HTTP client has none
	Timeout time.Duration
}

// DefaultOptions returns the default resolver options
func DefaultOptions() *Options {
	return &Options{
		FollowSymlinks: false,
		MaxSize:        10 << 20,
		Timeout:        defaultHTTPTimeout,
	}
}

// Manifest is one fetched manifest document
type Manifest struct {
	Name    string
	Content string
}

// Result holds the resolved manifests in resolution order
type Result struct {
	Manifests []Manifest
}

// SourceResolver defines the interface that all source resolvers must implement
type SourceResolver interface {
	// CanResolve checks if this resolver can handle the given source
	CanResolve(source string) bool

	// Resolve fetches the source and returns its manifests
	Resolve(ctx context.Context) (*Result, *ResolverMetadata, error)
}

// ResolverFactory creates the appropriate resolver for a given source
func ResolverFactory(source string, opts *Options) (SourceResolver, error) {
	if source == "" {
		return nil, fmt.Errorf("%w: empty source", ErrInvalidSource)
	}
	if opts == nil {
		opts = DefaultOptions()
	}

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return NewRemoteResolver(source, opts, nil)
	}

	// Check if it's a directory
	if folder := NewFolderResolver(source, opts); folder.CanResolve(source) {
		return folder, nil
	}

	if local := NewLocalResolver(source, opts); local.CanResolve(source) {
		return local, nil
	}

	return nil, fmt.Errorf("%w: no suitable resolver found for source: %s", ErrInvalidSource, source)
}

// validateManifest checks that content is a parseable document rooted at MPD
func validateManifest(content []byte) error {
	if len(bytes.TrimSpace(content)) == 0 {
		return fmt.Errorf("%w: empty content", ErrNotManifest)
	}
	root, err := mpdtree.Parse(string(content))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotManifest, err)
	}
	if root.Tag != "MPD" {
		return fmt.Errorf("%w: root element is %s", ErrNotManifest, root.Tag)
	}
	return nil
}

func checkSize(size int64, opts *Options) error {
	if opts != nil && opts.MaxSize > 0 && size > opts.MaxSize {
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrTooLarge, size, opts.MaxSize)
	}
	return nil
}

func hasManifestExtension(path string) bool {
	return manifestExtensions[strings.ToLower(filepath.Ext(path))]
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
