// Package ingestor fetches manifests from files, URLs or capture directories
// and runs them through the analysis pipeline.
package ingestor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/alevsk/mpd-scope/internal/analysis"
	"github.com/alevsk/mpd-scope/internal/formatter"
	"github.com/alevsk/mpd-scope/internal/logger"
	"github.com/alevsk/mpd-scope/internal/resolver"
	"github.com/alevsk/mpd-scope/internal/segments"
	"github.com/alevsk/mpd-scope/internal/types"
)

// Options holds configuration for the ingestor
type Options struct {
	// MaxConcurrency defines the maximum number of concurrent analyses during a replay
	MaxConcurrency int
	// FollowSymlinks determines if symlinks should be followed during directory traversal
	FollowSymlinks bool
	// MaxManifestSize caps a single manifest in bytes, 0 means no limit
	MaxManifestSize int64
	// Analysis configures the analyzer
	Analysis analysis.Options
	// Segments configures the segment runtime checks
	Segments segments.Config
	// Formatter, when set, renders every result into OutputFormatted
	Formatter formatter.Formatter
}

// DefaultOptions returns the default ingestor options
func DefaultOptions() *Options {
	return &Options{
		MaxConcurrency:  4,
		FollowSymlinks:  false,
		MaxManifestSize: resolver.DefaultOptions().MaxSize,
		Analysis:        analysis.DefaultOptions(),
		Segments:        segments.DefaultConfig(),
	}
}

// Ingestor fetches and analyzes manifests
type Ingestor struct {
	opts     *Options
	analyzer *analysis.Analyzer
}

// New creates a new Ingestor with the given options
func New(opts *Options) *Ingestor {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}
	return &Ingestor{
		opts:     opts,
		analyzer: analysis.New(opts.Analysis),
	}
}

// Error types for ingestion operations
var (
	ErrInvalidSource = resolver.ErrInvalidSource
	ErrNotSingle     = errors.New("source resolves to more than one manifest")
)

func (i *Ingestor) resolverOptions() *resolver.Options {
	opts := resolver.DefaultOptions()
	opts.FollowSymlinks = i.opts.FollowSymlinks
	opts.MaxSize = i.opts.MaxManifestSize
	return opts
}

// fetch resolves a source into its manifests
func (i *Ingestor) fetch(ctx context.Context, source string) (*resolver.Result, *resolver.ResolverMetadata, error) {
	if source == "" {
		return nil, nil, ErrInvalidSource
	}

	// Get the appropriate resolver for this source
	r, err := resolver.ResolverFactory(source, i.resolverOptions())
	if err != nil {
		return nil, nil, err
	}

	result, metadata, err := r.Resolve(ctx)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug().
		Str("source", source).
		Str("type", metadata.Type.String()).
		Int("manifests", len(result.Manifests)).
		Int64("bytes", metadata.Size).
		Msg("source resolved")
	return result, metadata, nil
}

// fetchOne resolves a source that must hold exactly one manifest
func (i *Ingestor) fetchOne(ctx context.Context, source string) (resolver.Manifest, *resolver.ResolverMetadata, error) {
	result, metadata, err := i.fetch(ctx, source)
	if err != nil {
		return resolver.Manifest{}, nil, err
	}
	if len(result.Manifests) != 1 {
		return resolver.Manifest{}, nil, fmt.Errorf("%w: %s holds %d manifests", ErrNotSingle, source, len(result.Manifests))
	}
	return result.Manifests[0], metadata, nil
}

func (i *Ingestor) finish(res *types.Result, name, source string) error {
	res.Name = name
	res.Source = source
	logger.Debug().
		Str("source", source).
		Bool("success", res.Success).
		Int("findings", len(res.Findings())).
		Msg("analysis done")

	if i.opts.Formatter == nil {
		return nil
	}
	out, err := i.opts.Formatter.Format(*res)
	if err != nil {
		return fmt.Errorf("failed to format result: %w", err)
	}
	res.OutputFormatted = out
	return nil
}

// Ingest fetches and analyzes a manifest. When previous is not empty it is
// fetched too and the manifest is compared against it as the prior refresh.
// Fetch failures are returned as errors; a manifest that does not parse
// yields a failed result.
func (i *Ingestor) Ingest(ctx context.Context, source, previous string) (*types.Result, error) {
	manifest, meta, err := i.fetchOne(ctx, source)
	if err != nil {
		return nil, err
	}

	var prevContent string
	if previous != "" {
		prev, _, err := i.fetchOne(ctx, previous)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch previous manifest: %w", err)
		}
		prevContent = prev.Content
	}

	res := i.analyzer.Analyze(ctx, manifest.Content, prevContent)
	return res, i.finish(res, manifest.Name, meta.Path)
}

// Pair fetches a source manifest and its SSAI counterpart and runs the pair
// analysis.
func (i *Ingestor) Pair(ctx context.Context, source, ssai string) (*types.Result, error) {
	src, _, err := i.fetchOne(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source manifest: %w", err)
	}
	out, meta, err := i.fetchOne(ctx, ssai)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch SSAI manifest: %w", err)
	}

	res := i.analyzer.AnalyzePair(ctx, src.Content, out.Content)
	return res, i.finish(res, out.Name, meta.Path)
}

// Replay analyzes every manifest of a capture directory in order, each one
// against the one before it. Analyses run concurrently up to MaxConcurrency;
// results keep capture order.
func (i *Ingestor) Replay(ctx context.Context, source string) ([]*types.Result, error) {
	result, meta, err := i.fetch(ctx, source)
	if err != nil {
		return nil, err
	}

	manifests := result.Manifests
	results := make([]*types.Result, len(manifests))
	errs := make([]error, len(manifests))

	sem := make(chan struct{}, i.opts.MaxConcurrency)
	var wg sync.WaitGroup
	for idx := range manifests {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			var previous string
			if idx > 0 {
				previous = manifests[idx-1].Content
			}
			res := i.analyzer.Analyze(ctx, manifests[idx].Content, previous)
			errs[idx] = i.finish(res, manifests[idx].Name, meta.Path)
			results[idx] = res
		}(idx)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return results, nil
}

// Segments enumerates the manifest segments and checks them against the
// runtime policy using the observed download times.
func (i *Ingestor) Segments(ctx context.Context, source string, downloads map[string]float64) (*types.Result, segments.Report, error) {
	manifest, meta, err := i.fetchOne(ctx, source)
	if err != nil {
		return nil, segments.Report{}, err
	}

	res, report := i.analyzer.AnalyzeSegments(ctx, manifest.Content, downloads, i.opts.Segments)
	return res, report, i.finish(res, manifest.Name, meta.Path)
}
