package resolver

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// FolderResolver implements SourceResolver for directories of captured
// manifest refreshes. Manifests are returned in lexical name order, which is
// capture order for timestamped file names.
type FolderResolver struct {
	source string
	opts   *Options
}

// NewFolderResolver creates a new FolderResolver
func NewFolderResolver(source string, opts *Options) *FolderResolver {
	return &FolderResolver{
		source: source,
		opts:   opts,
	}
}

// CanResolve checks if this resolver can handle the given source
func (r *FolderResolver) CanResolve(source string) bool {
	info, err := os.Stat(source)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// captureFile is a manifest candidate found under the capture directory.
// name is relative to the capture root, symlinked entries keep the link name.
type captureFile struct {
	name string
	path string
	size int64
}

// Resolve walks the source directory and returns every valid manifest
func (r *FolderResolver) Resolve(ctx context.Context) (*Result, *ResolverMetadata, error) {
	info, err := os.Stat(r.source)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: not a directory: %s", ErrInvalidSource, r.source)
	}

	w := &captureWalker{
		ctx:     ctx,
		follow:  r.opts != nil && r.opts.FollowSymlinks,
		visited: map[string]bool{},
	}
	root := r.source
	if resolved, err := filepath.EvalSymlinks(r.source); err == nil {
		root = resolved
	}
	w.visited[root] = true
	if err := w.walk(root, ""); err != nil {
		return nil, nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	sort.Slice(w.files, func(i, j int) bool { return w.files[i].name < w.files[j].name })

	result := &Result{Manifests: make([]Manifest, 0, len(w.files))}
	skipped := []string{}
	var totalSize int64
	for _, f := range w.files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		content, err := r.load(f)
		if err != nil {
			skipped = append(skipped, f.name)
			continue
		}
		result.Manifests = append(result.Manifests, Manifest{Name: f.name, Content: string(content)})
		totalSize += f.size
	}

	if len(result.Manifests) == 0 {
		return nil, nil, fmt.Errorf("%w: no manifests found in directory %s", ErrInvalidSource, r.source)
	}

	metadata := &ResolverMetadata{
		Name:    filepath.Base(r.source),
		Type:    SourceTypeFolder,
		Path:    r.source,
		Size:    totalSize,
		ModTime: time.Now(),
		Extra: map[string]interface{}{
			"manifests": len(result.Manifests),
			"skipped":   skipped,
		},
	}

	return result, metadata, nil
}

// load reads a candidate and rejects it when it is too large or not an MPD
func (r *FolderResolver) load(f captureFile) ([]byte, error) {
	if err := checkSize(f.size, r.opts); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	if err := validateManifest(content); err != nil {
		return nil, err
	}
	return content, nil
}

// captureWalker collects manifest candidates, descending into symlinked
// directories when follow is set. visited holds resolved targets so link
// cycles are walked once.
type captureWalker struct {
	ctx     context.Context
	follow  bool
	visited map[string]bool
	files   []captureFile
}

func (w *captureWalker) walk(root, prefix string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := w.ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := filepath.Join(prefix, rel)

		if d.Type()&os.ModeSymlink != 0 {
			if !w.follow {
				return nil
			}
			return w.symlink(path, name)
		}
		if d.IsDir() || !hasManifestExtension(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		w.files = append(w.files, captureFile{name: name, path: path, size: info.Size()})
		return nil
	})
}

func (w *captureWalker) symlink(path, name string) error {
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return fmt.Errorf("failed to evaluate symlink %s: %w", path, err)
	}
	if w.visited[target] {
		return nil
	}
	w.visited[target] = true

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("failed to stat symlink target %s: %w", target, err)
	}
	if info.IsDir() {
		return w.walk(target, name)
	}
	if hasManifestExtension(path) {
		w.files = append(w.files, captureFile{name: name, path: target, size: info.Size()})
	}
	return nil
}
