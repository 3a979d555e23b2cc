package graph

import "github.com/knakk/rdf"

// Overlay is a copy-on-write view over a base store. Adds land in a private
// memory layer, so dereference merges stay scoped to one description's
// conversion and never leak into the base store shared by the batch.
type Overlay struct {
	base  Store
	extra *Memory
}

// NewOverlay creates a view over base with an empty private layer.
func NewOverlay(base Store) *Overlay {
	return &Overlay{base: base, extra: NewMemory()}
}

// Add inserts triples into the private layer only.
func (o *Overlay) Add(triples ...rdf.Triple) error {
	return o.extra.Add(triples...)
}

// Match merges base and private matches, base first, dropping triples the
// base already holds.
func (o *Overlay) Match(s, p, obj rdf.Term) ([]rdf.Triple, error) {
	fromBase, err := o.base.Match(s, p, obj)
	if err != nil {
		return nil, err
	}
	fromExtra, err := o.extra.Match(s, p, obj)
	if err != nil {
		return nil, err
	}
	if len(fromExtra) == 0 {
		return fromBase, nil
	}

	seen := make(map[string]struct{}, len(fromBase))
	for _, t := range fromBase {
		seen[TripleKey(t)] = struct{}{}
	}
	out := fromBase
	for _, t := range fromExtra {
		if _, ok := seen[TripleKey(t)]; !ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// Len returns an upper bound: base plus private layer sizes. Exact
// de-duplicated counts are not needed by the pipeline.
func (o *Overlay) Len() (int, error) {
	nb, err := o.base.Len()
	if err != nil {
		return 0, err
	}
	ne, err := o.extra.Len()
	if err != nil {
		return 0, err
	}
	return nb + ne, nil
}

// Close releases the private layer only; the base store is owned by the run.
func (o *Overlay) Close() error {
	return o.extra.Close()
}
