package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalResolver implements SourceResolver for a manifest file on disk
type LocalResolver struct {
	source string
	opts   *Options
}

// NewLocalResolver creates a new LocalResolver
func NewLocalResolver(source string, opts *Options) *LocalResolver {
	return &LocalResolver{
		source: source,
		opts:   opts,
	}
}

// CanResolve checks if this resolver can handle the given source
func (r *LocalResolver) CanResolve(source string) bool {
	// Check if file exists and has a manifest extension
	return isRegularFile(source) && hasManifestExtension(source)
}

// Resolve reads and validates the manifest file
func (r *LocalResolver) Resolve(ctx context.Context) (*Result, *ResolverMetadata, error) {
	// Check context cancellation
	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	default:
	}

	// Verify file exists and get info
	info, err := os.Stat(r.source)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat file: %w", err)
	}

	// Ensure it's a regular file
	if !info.Mode().IsRegular() {
		return nil, nil, fmt.Errorf("%w: not a regular file: %s", ErrInvalidSource, r.source)
	}
	if err := checkSize(info.Size(), r.opts); err != nil {
		return nil, nil, err
	}

	content, err := os.ReadFile(r.source)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}
	if err := validateManifest(content); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", r.source, err)
	}

	name := filepath.Base(r.source)
	return &Result{Manifests: []Manifest{{Name: name, Content: string(content)}}}, &ResolverMetadata{
		Name:    name,
		Type:    SourceTypeFile,
		Path:    r.source,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Extra:   map[string]interface{}{},
	}, nil
}
