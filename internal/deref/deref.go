// Package deref augments one description's graph view by fetching externally
// referenced resources. Lookups are bounded by a per-lookup timeout and all
// failures are non-fatal: the object simply stays an opaque IRI. Fetched
// triples land in an overlay, never in the shared base store.
package deref

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kilupskalvis/bf2marc/internal/config"
	"github.com/kilupskalvis/bf2marc/internal/extract"
	"github.com/kilupskalvis/bf2marc/internal/graph"
	"github.com/kilupskalvis/bf2marc/internal/source"
	"github.com/kilupskalvis/bf2marc/internal/vocab"
	"github.com/knakk/rdf"
)

// DefaultTimeout bounds a single dereference lookup.
const DefaultTimeout = 5 * time.Second

// Resolver fetches external resources referenced from a description.
type Resolver struct {
	Client  *http.Client
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewResolver creates a resolver with the default per-lookup timeout.
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{
		Client:  &http.Client{},
		Timeout: DefaultTimeout,
		Logger:  logger,
	}
}

// Resolve returns the graph view for one description's conversion. With an
// empty config this is the base store itself; otherwise an overlay is built
// by walking the subgraph reachable from the Work and Instance nodes and
// dereferencing every configured (subject type, object IRI prefix) match.
// Each IRI is attempted at most once per description.
func (r *Resolver) Resolve(ctx context.Context, base graph.Store, desc extract.Description, cfg config.Dereference) (graph.Store, error) {
	if cfg.Empty() {
		return base, nil
	}

	view := graph.NewOverlay(base)
	attempted := make(map[string]struct{})
	visited := make(map[string]struct{})
	queue := []rdf.Subject{desc.Work, desc.Instance}

	typeIRI, err := rdf.NewIRI(vocab.RDFType)
	if err != nil {
		return nil, err
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		subj := queue[0]
		queue = queue[1:]
		if _, ok := visited[graph.Key(subj)]; ok {
			continue
		}
		visited[graph.Key(subj)] = struct{}{}

		types, err := subjectTypes(view, subj, typeIRI)
		if err != nil {
			return nil, err
		}

		triples, err := view.Match(subj, nil, nil)
		if err != nil {
			return nil, err
		}
		for _, t := range triples {
			obj, ok := graph.AsSubject(t.Obj)
			if !ok {
				continue // literal
			}
			if iri, isIRI := t.Obj.(rdf.IRI); isIRI {
				if target := iri.String(); shouldFetch(cfg, types, target, attempted) {
					attempted[target] = struct{}{}
					fetched := r.fetch(ctx, target)
					if len(fetched) > 0 {
						if err := view.Add(fetched...); err != nil {
							return nil, err
						}
					}
				}
			}
			queue = append(queue, obj)
		}
	}
	return view, nil
}

func subjectTypes(g graph.Store, subj rdf.Subject, typeIRI rdf.IRI) ([]string, error) {
	triples, err := g.Match(subj, typeIRI, nil)
	if err != nil {
		return nil, err
	}
	var types []string
	for _, t := range triples {
		if iri, ok := t.Obj.(rdf.IRI); ok {
			types = append(types, iri.String())
		}
	}
	return types, nil
}

func shouldFetch(cfg config.Dereference, subjectTypes []string, iri string, attempted map[string]struct{}) bool {
	if _, done := attempted[iri]; done {
		return false
	}
	for _, st := range subjectTypes {
		if cfg.Matches(st, iri) {
			return true
		}
	}
	return false
}

// fetch dereferences one IRI. Any failure is logged and swallowed; the
// conversion continues without the external triples.
func (r *Resolver) fetch(ctx context.Context, iri string) []rdf.Triple {
	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout())
	defer cancel()

	triples, err := r.get(lookupCtx, iri)
	if err != nil {
		r.Logger.Warn("dereference failed", "iri", iri, "error", err)
		return nil
	}
	r.Logger.Debug("dereferenced", "iri", iri, "triples", len(triples))
	return triples
}

func (r *Resolver) get(ctx context.Context, iri string) ([]rdf.Triple, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, iri, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", source.AcceptHeader)

	resp, err := r.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	format := source.DefaultFormat
	if f, ok := source.FormatForContentType(resp.Header.Get("Content-Type")); ok {
		format = f
	}
	return source.Decode(resp.Body, format)
}

func (r *Resolver) client() *http.Client {
	if r.Client != nil {
		return r.Client
	}
	return http.DefaultClient
}

func (r *Resolver) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return DefaultTimeout
}
