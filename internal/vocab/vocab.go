// Package vocab holds the RDF and BIBFRAME vocabulary IRIs used across the
// converter, plus the prefix table used for compact qnames in striped XML,
// query files and mapping rules.
package vocab

import "strings"

// Namespace IRIs.
const (
	RDF     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFS    = "http://www.w3.org/2000/01/rdf-schema#"
	XSD     = "http://www.w3.org/2001/XMLSchema#"
	BF      = "http://id.loc.gov/ontologies/bibframe/"
	BFLC    = "http://id.loc.gov/ontologies/bflc/"
	MADSRDF = "http://www.loc.gov/mads/rdf/v1#"
	SKOS    = "http://www.w3.org/2004/02/skos/core#"
)

// Individual terms the core logic refers to directly.
const (
	RDFType     = RDF + "type"
	RDFValue    = RDF + "value"
	RDFSLabel   = RDFS + "label"
	BFWork      = BF + "Work"
	BFInstance  = BF + "Instance"
	InstanceOf  = BF + "instanceOf"
	HasInstance = BF + "hasInstance"
)

// prefixes maps prefix → namespace IRI. Order of expansion does not matter;
// namespaces do not overlap.
var prefixes = map[string]string{
	"rdf":     RDF,
	"rdfs":    RDFS,
	"xsd":     XSD,
	"bf":      BF,
	"bflc":    BFLC,
	"madsrdf": MADSRDF,
	"skos":    SKOS,
}

// Prefixes returns a copy of the prefix table, for XML namespace declarations.
func Prefixes() map[string]string {
	out := make(map[string]string, len(prefixes))
	for p, ns := range prefixes {
		out[p] = ns
	}
	return out
}

// Expand resolves a qname like "bf:Work" to its full IRI. Strings without a
// known prefix (including full IRIs and variables) are returned unchanged.
func Expand(qname string) string {
	i := strings.Index(qname, ":")
	if i <= 0 {
		return qname
	}
	if ns, ok := prefixes[qname[:i]]; ok {
		return ns + qname[i+1:]
	}
	return qname
}

// QName compacts a full IRI to prefix:local form where a prefix is known,
// otherwise returns the IRI unchanged.
func QName(iri string) string {
	for p, ns := range prefixes {
		if strings.HasPrefix(iri, ns) {
			return p + ":" + iri[len(ns):]
		}
	}
	return iri
}
