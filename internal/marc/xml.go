package marc

import (
	"encoding/xml"
	"fmt"
	"io"
)

// Namespace is the MARCXML slim namespace.
const Namespace = "http://www.loc.gov/MARC21/slim"

// XMLRecord is one MARCXML record document, the shape the record transform
// engine produces.
type XMLRecord struct {
	XMLName       xml.Name          `xml:"record"`
	Leader        string            `xml:"leader"`
	ControlFields []XMLControlField `xml:"controlfield"`
	DataFields    []XMLDataField    `xml:"datafield"`
}

// XMLControlField is a MARCXML controlfield element.
type XMLControlField struct {
	Tag   string `xml:"tag,attr"`
	Value string `xml:",chardata"`
}

// XMLDataField is a MARCXML datafield element.
type XMLDataField struct {
	Tag       string        `xml:"tag,attr"`
	Ind1      string        `xml:"ind1,attr"`
	Ind2      string        `xml:"ind2,attr"`
	Subfields []XMLSubfield `xml:"subfield"`
}

// XMLSubfield is a MARCXML subfield element.
type XMLSubfield struct {
	Code  string `xml:"code,attr"`
	Value string `xml:",chardata"`
}

// WriteCollectionXML serializes records as one MARCXML collection document.
func WriteCollectionXML(w io.Writer, records []*Record) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "<collection xmlns=%q>\n", Namespace); err != nil {
		return err
	}

	enc := xml.NewEncoder(w)
	enc.Indent("  ", "  ")
	for _, r := range records {
		if err := enc.Encode(r.ToXML()); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}
	if err := enc.Flush(); err != nil {
		return err
	}

	_, err := io.WriteString(w, "\n</collection>\n")
	return err
}

type xmlCollection struct {
	XMLName xml.Name    `xml:"collection"`
	Records []XMLRecord `xml:"record"`
}

// ReadCollectionXML parses a MARCXML collection document back into records.
func ReadCollectionXML(r io.Reader) ([]*Record, error) {
	var coll xmlCollection
	if err := xml.NewDecoder(r).Decode(&coll); err != nil {
		return nil, fmt.Errorf("parse collection: %w", err)
	}

	records := make([]*Record, 0, len(coll.Records))
	for i := range coll.Records {
		rec, err := FromXML(&coll.Records[i])
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
