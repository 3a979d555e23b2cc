// Package stripe flattens the RDF subgraph of one description into a
// tree-shaped "striped" document: alternating resource and property layers,
// the form the record transform rules are written against.
//
// The output is a tree, not a shared DAG: a named resource reached again via
// a different path is expanded again in full. Only a resource re-encountered
// while it is still being expanded (a cycle) becomes a reference marker.
package stripe

import (
	"fmt"
	"sort"

	"github.com/kilupskalvis/bf2marc/internal/extract"
	"github.com/kilupskalvis/bf2marc/internal/graph"
	"github.com/kilupskalvis/bf2marc/internal/vocab"
	"github.com/knakk/rdf"
)

// Document is the striped form of one description.
type Document struct {
	Work     *Resource
	Instance *Resource
}

// Resource is a node at the resource layer. Ref marks a cycle reference:
// the node's ID without re-expansion.
type Resource struct {
	ID    string
	Blank bool
	Ref   bool
	Types []string
	Props []Property
}

// Property is a node at the property layer: one predicate and its objects.
type Property struct {
	Pred    string
	Objects []Object
}

// Object is either a nested resource or a literal leaf.
type Object struct {
	Resource *Resource
	Literal  *Literal
}

// Literal is a leaf text node with optional language or datatype tag.
type Literal struct {
	Value    string
	Lang     string
	Datatype string
}

// Stripe builds the striped document for one description against the given
// (possibly dereference-augmented) graph view.
func Stripe(desc extract.Description, g graph.Store) (*Document, error) {
	s := &striper{g: g, onPath: make(map[string]struct{})}

	work, err := s.expand(desc.Work)
	if err != nil {
		return nil, fmt.Errorf("stripe work %s: %w", desc.Work.String(), err)
	}
	instance, err := s.expand(desc.Instance)
	if err != nil {
		return nil, fmt.Errorf("stripe instance %s: %w", desc.Instance.String(), err)
	}
	return &Document{Work: work, Instance: instance}, nil
}

type striper struct {
	g      graph.Store
	onPath map[string]struct{} // resources currently being expanded
}

func (s *striper) expand(subj rdf.Subject) (*Resource, error) {
	key := graph.Key(subj)
	_, blank := subj.(rdf.Blank)
	res := &Resource{ID: subj.String(), Blank: blank}

	if _, cyclic := s.onPath[key]; cyclic {
		res.Ref = true
		return res, nil
	}
	s.onPath[key] = struct{}{}
	defer delete(s.onPath, key)

	triples, err := s.g.Match(subj, nil, nil)
	if err != nil {
		return nil, err
	}

	byPred := make(map[string][]rdf.Object)
	for _, t := range triples {
		pred := t.Pred.String()
		if pred == vocab.RDFType {
			if iri, ok := t.Obj.(rdf.IRI); ok {
				res.Types = append(res.Types, iri.String())
				continue
			}
		}
		byPred[pred] = append(byPred[pred], t.Obj)
	}
	sort.Strings(res.Types)

	preds := make([]string, 0, len(byPred))
	for p := range byPred {
		preds = append(preds, p)
	}
	sort.Strings(preds)

	for _, pred := range preds {
		prop, err := s.property(pred, byPred[pred])
		if err != nil {
			return nil, err
		}
		res.Props = append(res.Props, prop)
	}
	return res, nil
}

func (s *striper) property(pred string, objects []rdf.Object) (Property, error) {
	var literals []*Literal
	var resources []rdf.Subject

	for _, o := range objects {
		if lit, ok := o.(rdf.Literal); ok {
			l := &Literal{Value: lit.String(), Lang: lit.Lang()}
			if l.Lang == "" {
				if dt := lit.DataType.String(); dt != "" && dt != vocab.XSD+"string" {
					l.Datatype = dt
				}
			}
			literals = append(literals, l)
			continue
		}
		subj, ok := graph.AsSubject(o)
		if !ok {
			return Property{}, fmt.Errorf("object of %s is neither literal nor resource", pred)
		}
		resources = append(resources, subj)
	}

	// Literals first, then resources, each sorted, for stable output.
	sort.Slice(literals, func(i, j int) bool {
		a, b := literals[i], literals[j]
		if a.Value != b.Value {
			return a.Value < b.Value
		}
		if a.Lang != b.Lang {
			return a.Lang < b.Lang
		}
		return a.Datatype < b.Datatype
	})
	sort.Slice(resources, func(i, j int) bool {
		return graph.Key(resources[i]) < graph.Key(resources[j])
	})

	prop := Property{Pred: pred}
	for _, l := range literals {
		prop.Objects = append(prop.Objects, Object{Literal: l})
	}
	for _, subj := range resources {
		child, err := s.expand(subj)
		if err != nil {
			return Property{}, err
		}
		prop.Objects = append(prop.Objects, Object{Resource: child})
	}
	return prop, nil
}
