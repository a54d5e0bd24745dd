package resolve

import (
	"errors"
	"runtime"

	"github.com/jcdickinson/docnet/internal/docid"
	"github.com/jcdickinson/docnet/internal/members"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNilIndex   = errors.New("resolve: nil member index")
	ErrNilEntries = errors.New("resolve: nil documentation entries")
)

// Entry is one <member name="..."> element: its raw doc-id and the
// documentation payload, which is passed through untouched.
type Entry[P any] struct {
	Name    string
	Payload P
}

// Result pairs a parsed doc-id and its payload with the resolution outcome.
type Result[P any] struct {
	ID      docid.DocID
	Payload P
	Match
}

type options struct {
	workers int
}

type Option func(*options)

// WithWorkers caps the number of goroutines resolving entries. Zero or a
// negative value means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// ResolveAll parses and resolves every entry concurrently. The returned
// slice has exactly one result per entry, in input order.
func ResolveAll[P any](idx *members.Index, entries []Entry[P], opts ...Option) ([]Result[P], error) {
	if idx == nil {
		return nil, ErrNilIndex
	}
	if entries == nil {
		return nil, ErrNilEntries
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	workers := o.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Result[P], len(entries))
	if len(entries) == 0 {
		return results, nil
	}

	// Split into one contiguous span per worker; each goroutine owns its
	// span of results so no locking is needed.
	chunk := (len(entries) + workers - 1) / workers
	var g errgroup.Group
	for start := 0; start < len(entries); start += chunk {
		end := min(start+chunk, len(entries))
		g.Go(func() error {
			for i := start; i < end; i++ {
				id := docid.Parse(entries[i].Name)
				results[i] = Result[P]{
					ID:      id,
					Payload: entries[i].Payload,
					Match:   Resolve(id, idx),
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Summarize counts results per reason.
func Summarize[P any](results []Result[P]) map[Reason]int {
	counts := make(map[Reason]int)
	for _, r := range results {
		counts[r.Reason]++
	}
	return counts
}

// Undocumented returns the indexed members no resolved result refers to,
// in declaration order.
func Undocumented[P any](idx *members.Index, results []Result[P]) []members.Member {
	documented := make(map[string]bool, len(results))
	for _, r := range results {
		if r.OK() {
			documented[r.Member.DocID()] = true
		}
	}

	var out []members.Member
	for _, m := range idx.All() {
		if !documented[m.DocID()] {
			out = append(out, m)
		}
	}
	return out
}
