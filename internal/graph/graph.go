// Package graph provides the triple stores the conversion pipeline runs
// against: an in-memory store, a temporary sqlite-backed store for large
// inputs, and an overlay view that keeps per-description dereference merges
// out of the shared base store.
package graph

import (
	"github.com/knakk/rdf"
)

// Store is the triple store contract. Triples are immutable once added and
// duplicates collapse (set semantics). Match treats nil terms as wildcards.
// Result order is the order triples were first added, which makes conversion
// output deterministic for a given input.
type Store interface {
	Add(triples ...rdf.Triple) error
	Match(s, p, o rdf.Term) ([]rdf.Triple, error)
	Len() (int, error)
	Close() error
}

// Key returns the canonical string form of a term, used for set membership
// and map keys. N-Triples serialization distinguishes IRIs, blank nodes and
// literals (including language and datatype).
func Key(t rdf.Term) string {
	return t.Serialize(rdf.NTriples)
}

// TripleKey returns the canonical string form of a whole triple.
func TripleKey(t rdf.Triple) string {
	return Key(t.Subj) + " " + Key(t.Pred) + " " + Key(t.Obj)
}

// AsSubject converts an object term into a subject, when it is an IRI or a
// blank node. Literals cannot be subjects.
func AsSubject(o rdf.Term) (rdf.Subject, bool) {
	switch t := o.(type) {
	case rdf.IRI:
		return t, true
	case rdf.Blank:
		return t, true
	}
	return nil, false
}

func matches(t rdf.Triple, s, p, o rdf.Term) bool {
	if s != nil && Key(t.Subj) != Key(s) {
		return false
	}
	if p != nil && Key(t.Pred) != Key(p) {
		return false
	}
	if o != nil && Key(t.Obj) != Key(o) {
		return false
	}
	return true
}
