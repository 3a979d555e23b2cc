package stripe

import (
	"encoding/xml"
	"io"
	"sort"
	"strings"

	"github.com/kilupskalvis/bf2marc/internal/vocab"
)

// WriteXML emits the striped XML form of the document. Element names are
// qnames from the vocabulary prefix table; one property element is emitted
// per object, giving the alternating resource/property layering.
func (d *Document) WriteXML(w io.Writer) error {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	root := xml.StartElement{Name: xml.Name{Local: "description"}}
	prefixes := vocab.Prefixes()
	names := make([]string, 0, len(prefixes))
	for p := range prefixes {
		names = append(names, p)
	}
	sort.Strings(names)
	for _, p := range names {
		root.Attr = append(root.Attr, xml.Attr{
			Name:  xml.Name{Local: "xmlns:" + p},
			Value: prefixes[p],
		})
	}

	if err := enc.EncodeToken(root); err != nil {
		return err
	}
	if err := encodeResource(enc, d.Work); err != nil {
		return err
	}
	if err := encodeResource(enc, d.Instance); err != nil {
		return err
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return err
	}
	return enc.Flush()
}

// elementName picks the element for a resource: its first type's qname, or
// rdf:Description when it has no usable type.
func elementName(r *Resource) (string, []string) {
	for i, t := range r.Types {
		q := vocab.QName(t)
		if q != t && !strings.ContainsAny(q[strings.Index(q, ":")+1:], "/#") {
			rest := make([]string, 0, len(r.Types)-1)
			rest = append(rest, r.Types[:i]...)
			rest = append(rest, r.Types[i+1:]...)
			return q, rest
		}
	}
	return "rdf:Description", r.Types
}

func encodeResource(enc *xml.Encoder, r *Resource) error {
	name, extraTypes := elementName(r)
	start := xml.StartElement{Name: xml.Name{Local: name}}

	if r.Ref {
		// Reference marker: identity only, no re-expansion.
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "rdf:resource"}, Value: r.ID})
		if err := enc.EncodeToken(start); err != nil {
			return err
		}
		return enc.EncodeToken(start.End())
	}
	// Blank node labels are parser-assigned; the expansion is inline so the
	// label carries nothing and is omitted.
	if !r.Blank {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "rdf:about"}, Value: r.ID})
	}

	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, t := range extraTypes {
		te := xml.StartElement{
			Name: xml.Name{Local: "rdf:type"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "rdf:resource"}, Value: t}},
		}
		if err := enc.EncodeToken(te); err != nil {
			return err
		}
		if err := enc.EncodeToken(te.End()); err != nil {
			return err
		}
	}
	for _, prop := range r.Props {
		if err := encodeProperty(enc, prop); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

func encodeProperty(enc *xml.Encoder, p Property) error {
	name := vocab.QName(p.Pred)
	var iriAttr []xml.Attr
	if name == p.Pred {
		// No prefix known; an IRI is not a legal element name.
		name = "property"
		iriAttr = []xml.Attr{{Name: xml.Name{Local: "iri"}, Value: p.Pred}}
	}

	for _, o := range p.Objects {
		start := xml.StartElement{Name: xml.Name{Local: name}}
		start.Attr = append(start.Attr, iriAttr...)
		switch {
		case o.Literal != nil:
			if o.Literal.Lang != "" {
				start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "xml:lang"}, Value: o.Literal.Lang})
			}
			if o.Literal.Datatype != "" {
				start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "rdf:datatype"}, Value: o.Literal.Datatype})
			}
			if err := enc.EncodeToken(start); err != nil {
				return err
			}
			if err := enc.EncodeToken(xml.CharData(o.Literal.Value)); err != nil {
				return err
			}
			if err := enc.EncodeToken(start.End()); err != nil {
				return err
			}
		case o.Resource != nil:
			if err := enc.EncodeToken(start); err != nil {
				return err
			}
			if err := encodeResource(enc, o.Resource); err != nil {
				return err
			}
			if err := enc.EncodeToken(start.End()); err != nil {
				return err
			}
		}
	}
	return nil
}
