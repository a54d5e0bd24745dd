// Package indexer runs the pipeline from a member manifest and an XML
// documentation file to stored, rendered pages.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/jcdickinson/docnet/internal/docs"
	"github.com/jcdickinson/docnet/internal/members"
	"github.com/jcdickinson/docnet/internal/resolve"
	"github.com/jcdickinson/docnet/internal/xmldoc"
	"golang.org/x/sync/errgroup"
)

// ErrAssemblyMismatch is returned when the documentation file names a
// different assembly than the member manifest.
var ErrAssemblyMismatch = errors.New("documentation is for a different assembly")

// Build is the in-memory result of correlating one assembly's members with
// its documentation.
type Build struct {
	Assembly      string
	Manifest      *members.Manifest
	Index         *members.Index
	Results       []resolve.Result[*xmldoc.Sections]
	Documentation *docs.Documentation
	// Undocumented lists members no documentation entry resolved to.
	Undocumented []members.Member
}

// Summary counts the results per resolution reason.
func (b *Build) Summary() map[resolve.Reason]int {
	return resolve.Summarize(b.Results)
}

// Unresolved returns the results that did not resolve, in input order.
func (b *Build) Unresolved() []resolve.Result[*xmldoc.Sections] {
	var out []resolve.Result[*xmldoc.Sections]
	for _, r := range b.Results {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// Load reads both inputs and resolves every documentation entry. Workers
// bounds both section parsing and resolution; zero means GOMAXPROCS.
func Load(ctx context.Context, manifestPath, docsPath string, workers int) (*Build, error) {
	manifest, err := members.LoadManifest(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("loading members: %w", err)
	}
	file, err := xmldoc.ReadFile(docsPath)
	if err != nil {
		return nil, fmt.Errorf("loading documentation: %w", err)
	}
	return FromParts(ctx, manifest, file, workers)
}

// FromParts is Load for inputs that are already in memory.
func FromParts(ctx context.Context, manifest *members.Manifest, file *xmldoc.File, workers int) (*Build, error) {
	if file.Assembly != "" && file.Assembly != manifest.Assembly {
		return nil, fmt.Errorf("%w: members describe %q, documentation describes %q",
			ErrAssemblyMismatch, manifest.Assembly, file.Assembly)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	entries, err := parseEntries(ctx, file, workers)
	if err != nil {
		return nil, err
	}

	idx := members.Build(manifest.Members)
	results, err := resolve.ResolveAll(idx, entries, resolve.WithWorkers(workers))
	if err != nil {
		return nil, fmt.Errorf("resolving doc-ids: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Build{
		Assembly:      manifest.Assembly,
		Manifest:      manifest,
		Index:         idx,
		Results:       results,
		Documentation: docs.Build(manifest.Assembly, idx, results),
		Undocumented:  resolve.Undocumented(idx, results),
	}, nil
}

// parseEntries extracts the sections of every member payload. A payload
// that is not well-formed XML is kept with nil sections and logged.
func parseEntries(ctx context.Context, file *xmldoc.File, workers int) ([]resolve.Entry[*xmldoc.Sections], error) {
	entries := make([]resolve.Entry[*xmldoc.Sections], len(file.Members))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, m := range file.Members {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := xmldoc.ParseSections(m.Payload)
			if err != nil {
				slog.Warn("skipping malformed documentation", "docid", m.Name, "error", err)
				s = nil
			}
			entries[i] = resolve.Entry[*xmldoc.Sections]{Name: m.Name, Payload: s}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}
