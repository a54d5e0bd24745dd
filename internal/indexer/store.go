package indexer

import (
	"fmt"
	"runtime"

	"github.com/jcdickinson/docnet/internal/cas"
	"github.com/jcdickinson/docnet/internal/db"
	"github.com/jcdickinson/docnet/internal/docid"
	"github.com/jcdickinson/docnet/internal/docs"
	"github.com/jcdickinson/docnet/internal/members"
	"github.com/jcdickinson/docnet/internal/render"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Render render.Options
	// StoreUnresolved keeps a row per doc-id that failed to resolve.
	StoreUnresolved bool
	// ManifestDir, when set, receives a cached copy of the manifest.
	ManifestDir string
}

// Stats describes a completed Store.
type Stats struct {
	Members    int `json:"members"`
	Documented int `json:"documented"`
	Unresolved int `json:"unresolved"`
}

// page is one stored row and the markdown rendered for it.
type page struct {
	entry   *docs.Entry
	row     db.Member
	content string
}

// Store replaces everything recorded for the build's assembly: each type,
// member and documented namespace gets a rendered page in the CAS and a
// row in the database. Pages are written before any row changes, and the
// rows are swapped in one transaction, so a failed Store leaves the
// previous index in place.
func Store(d *db.DB, pages *cas.Store, b *Build, opts Options, progress func(string)) (*Stats, error) {
	if progress == nil {
		progress = func(string) {}
	}

	asm, err := d.UpsertAssembly(b.Assembly)
	if err != nil {
		return nil, fmt.Errorf("upserting assembly: %w", err)
	}

	collected := collect(b.Documentation)
	progress(fmt.Sprintf("rendering %d pages for %s", len(collected), b.Assembly))
	if err := renderPages(render.New(b.Documentation, b.Index, opts.Render), b.Documentation, collected); err != nil {
		return nil, err
	}

	stats := &Stats{Members: len(collected)}
	rows := make([]db.Member, len(collected))
	for i, p := range collected {
		hash, err := pages.Write(p.content)
		if err != nil {
			return nil, fmt.Errorf("writing page for %s: %w", p.row.DocID, err)
		}
		p.row.AssemblyID = asm.ID
		p.row.ContentHash = hash
		rows[i] = p.row
		if p.row.Documented {
			stats.Documented++
		}
	}

	unresolved := b.Unresolved()
	stats.Unresolved = len(unresolved)
	var out []db.Unresolved
	if opts.StoreUnresolved {
		out = make([]db.Unresolved, len(unresolved))
		for i, r := range unresolved {
			out[i] = db.Unresolved{
				AssemblyID: asm.ID,
				DocID:      r.ID.Raw,
				Reason:     r.Reason.String(),
				Candidates: r.Candidates,
				Detail:     r.Detail,
			}
		}
	}

	if opts.ManifestDir != "" {
		if err := members.SaveCache(opts.ManifestDir, b.Manifest); err != nil {
			return nil, fmt.Errorf("caching manifest: %w", err)
		}
	}

	progress(fmt.Sprintf("storing %d members of %s", len(rows), b.Assembly))
	if err := d.ReplaceAssembly(asm.ID, rows, out); err != nil {
		return nil, fmt.Errorf("replacing assembly rows: %w", err)
	}
	return stats, nil
}

// collect lists every entry that gets its own page, once per doc-id, in
// tree order: documented namespaces, then each type followed by its members.
func collect(doc *docs.Documentation) []*page {
	seen := make(map[string]bool)
	var out []*page
	add := func(e *docs.Entry) {
		if e == nil || seen[e.DocID] {
			return
		}
		seen[e.DocID] = true
		m := e.Member
		out = append(out, &page{entry: e, row: db.Member{
			DocID:         e.DocID,
			Kind:          m.Kind.String(),
			DeclaringType: members.NormalizeTypeName(m.Key()),
			Name:          m.Name,
			Documented:    e.Sections != nil,
		}})
	}

	for _, ns := range doc.Namespaces {
		add(ns.Entry)
	}
	for _, t := range doc.Types {
		add(&t.Entry)
		for _, group := range [][]*docs.Entry{t.Constructors, t.Properties, t.Methods, t.Events, t.Fields} {
			for _, e := range group {
				add(e)
			}
		}
	}
	return out
}

// renderPages fills in page content concurrently. Types get their full
// page, everything else a member page.
func renderPages(r *render.Renderer, doc *docs.Documentation, pages []*page) error {
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, p := range pages {
		g.Go(func() error {
			if p.entry.Member.Kind != docid.Type {
				p.content = r.Member(p.entry)
				return nil
			}
			t := doc.Type(p.entry.Member.Key())
			if t == nil {
				return fmt.Errorf("type %s missing from documentation tree", p.entry.DocID)
			}
			p.content = r.TypePage(t)
			return nil
		})
	}
	return g.Wait()
}
