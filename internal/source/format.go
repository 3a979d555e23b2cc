// Package source loads RDF input into a graph store. A source is a local
// file, an http(s) URL, or standard input; five serializations are supported.
package source

import (
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/kilupskalvis/bf2marc/internal/vocab"
	"github.com/knakk/rdf"
	"github.com/piprate/json-gold/ld"
)

// Format names an RDF input serialization.
type Format string

const (
	RDFXML   Format = "rdfxml"
	NTriples Format = "ntriples"
	Turtle   Format = "turtle"
	JSONLD   Format = "jsonld"
	NQuads   Format = "nquads"
)

// DefaultFormat is assumed when no format is declared and none can be
// derived from a response content type.
const DefaultFormat = RDFXML

// Formats lists the supported input formats in display order.
func Formats() []Format {
	return []Format{RDFXML, NTriples, Turtle, JSONLD, NQuads}
}

// ParseFormat resolves a format name or common alias. An unknown name is a
// configuration error.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "rdfxml", "xml", "rdf":
		return RDFXML, nil
	case "ntriples", "nt":
		return NTriples, nil
	case "turtle", "ttl":
		return Turtle, nil
	case "jsonld", "json":
		return JSONLD, nil
	case "nquads", "nq":
		return NQuads, nil
	}
	return "", fmt.Errorf("unknown input format %q", name)
}

// contentTypes maps media types to formats for content negotiation.
var contentTypes = map[string]Format{
	"application/rdf+xml":    RDFXML,
	"application/xml":        RDFXML,
	"text/xml":               RDFXML,
	"application/n-triples":  NTriples,
	"text/plain":             NTriples,
	"text/turtle":            Turtle,
	"application/x-turtle":   Turtle,
	"application/ld+json":    JSONLD,
	"application/json":       JSONLD,
	"application/n-quads":    NQuads,
}

// AcceptHeader is the Accept header offered on URL fetches and dereference
// lookups.
const AcceptHeader = "application/rdf+xml, text/turtle;q=0.9, application/n-triples;q=0.8, application/ld+json;q=0.7, application/n-quads;q=0.6"

// FormatForContentType maps a Content-Type header value to a format.
func FormatForContentType(ct string) (Format, bool) {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return "", false
	}
	f, ok := contentTypes[mt]
	return f, ok
}

// Decode parses one serialization into triples. Quad input drops the graph
// component; JSON-LD goes through the JSON-LD processor.
func Decode(r io.Reader, f Format) ([]rdf.Triple, error) {
	switch f {
	case RDFXML, NTriples, Turtle:
		dec := rdf.NewTripleDecoder(r, knakkFormat(f))
		triples, err := dec.DecodeAll()
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		return triples, nil
	case NQuads:
		dec := rdf.NewQuadDecoder(r, rdf.NQuads)
		quads, err := dec.DecodeAll()
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		triples := make([]rdf.Triple, 0, len(quads))
		for _, q := range quads {
			triples = append(triples, q.Triple)
		}
		return triples, nil
	case JSONLD:
		return decodeJSONLD(r)
	}
	return nil, fmt.Errorf("unknown input format %q", f)
}

func knakkFormat(f Format) rdf.Format {
	switch f {
	case NTriples:
		return rdf.NTriples
	case Turtle:
		return rdf.Turtle
	default:
		return rdf.RDFXML
	}
}

// decodeJSONLD expands a JSON-LD document to an RDF dataset and converts its
// default-graph quads into triples.
func decodeJSONLD(r io.Reader) ([]rdf.Triple, error) {
	doc, err := ld.DocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse jsonld: %w", err)
	}

	proc := ld.NewJsonLdProcessor()
	opts := ld.NewJsonLdOptions("")
	raw, err := proc.ToRDF(doc, opts)
	if err != nil {
		return nil, fmt.Errorf("jsonld to rdf: %w", err)
	}
	dataset, ok := raw.(*ld.RDFDataset)
	if !ok {
		return nil, fmt.Errorf("jsonld to rdf: unexpected result type %T", raw)
	}

	var triples []rdf.Triple
	for _, quads := range dataset.Graphs {
		for _, q := range quads {
			t, err := quadToTriple(q)
			if err != nil {
				return nil, err
			}
			triples = append(triples, t)
		}
	}
	return triples, nil
}

func quadToTriple(q *ld.Quad) (rdf.Triple, error) {
	subj, err := nodeToSubject(q.Subject)
	if err != nil {
		return rdf.Triple{}, err
	}
	pred, err := rdf.NewIRI(q.Predicate.GetValue())
	if err != nil {
		return rdf.Triple{}, fmt.Errorf("jsonld predicate: %w", err)
	}
	obj, err := nodeToObject(q.Object)
	if err != nil {
		return rdf.Triple{}, err
	}
	return rdf.Triple{Subj: subj, Pred: pred, Obj: obj}, nil
}

func nodeToSubject(n ld.Node) (rdf.Subject, error) {
	switch t := n.(type) {
	case *ld.IRI:
		return rdf.NewIRI(t.Value)
	case *ld.BlankNode:
		return rdf.NewBlank(strings.TrimPrefix(t.Attribute, "_:"))
	}
	return nil, fmt.Errorf("jsonld subject: unexpected node type %T", n)
}

func nodeToObject(n ld.Node) (rdf.Object, error) {
	switch t := n.(type) {
	case *ld.IRI:
		return rdf.NewIRI(t.Value)
	case *ld.BlankNode:
		return rdf.NewBlank(strings.TrimPrefix(t.Attribute, "_:"))
	case *ld.Literal:
		if t.Language != "" {
			return rdf.NewLangLiteral(t.Value, t.Language)
		}
		if t.Datatype != "" && t.Datatype != vocab.XSD+"string" {
			dt, err := rdf.NewIRI(t.Datatype)
			if err != nil {
				return nil, fmt.Errorf("jsonld datatype: %w", err)
			}
			return rdf.NewTypedLiteral(t.Value, dt), nil
		}
		return rdf.NewLiteral(t.Value)
	}
	return nil, fmt.Errorf("jsonld object: unexpected node type %T", n)
}
