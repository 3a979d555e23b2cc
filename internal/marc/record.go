// Package marc holds the intermediate MARC record model and its two
// serializations: the MARCXML collection form and the binary ISO 2709 form.
package marc

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// LeaderLen is the fixed length of a MARC leader.
const LeaderLen = 24

// DefaultLeader is used when the transform rules supply none.
const DefaultLeader = "     nam a22     uu 4500"

// Subfield is one coded value inside a data field.
type Subfield struct {
	Code  string
	Value string
}

// Field is either a control field (Tag + Value) or a data field
// (Tag + indicators + subfields). Control tags start with "00".
type Field struct {
	Tag   string
	Value string

	Ind1      string
	Ind2      string
	Subfields []Subfield
}

// IsControl reports whether the field is a control field.
func (f Field) IsControl() bool {
	return strings.HasPrefix(f.Tag, "00")
}

// Record is one intermediate MARC record: a leader plus an ordered field
// sequence. It is built fresh per description and never mutated after the
// assembler reads it.
type Record struct {
	Leader string
	Fields []Field
}

// FromXML builds a Record from a MARCXML document, validating structure and
// normalizing all text to NFC so byte-identical inputs yield byte-identical
// records.
func FromXML(x *XMLRecord) (*Record, error) {
	if x == nil {
		return nil, fmt.Errorf("nil record document")
	}

	if err := ValidateLeader(x.Leader); err != nil {
		return nil, err
	}
	r := &Record{Leader: padLeader(x.Leader)}

	for _, cf := range x.ControlFields {
		if err := validTag(cf.Tag); err != nil {
			return nil, err
		}
		if !strings.HasPrefix(cf.Tag, "00") {
			return nil, fmt.Errorf("control field with data tag %s", cf.Tag)
		}
		r.Fields = append(r.Fields, Field{Tag: cf.Tag, Value: norm.NFC.String(cf.Value)})
	}

	for _, df := range x.DataFields {
		if err := validTag(df.Tag); err != nil {
			return nil, err
		}
		if strings.HasPrefix(df.Tag, "00") {
			return nil, fmt.Errorf("data field with control tag %s", df.Tag)
		}
		if len(df.Subfields) == 0 {
			return nil, fmt.Errorf("data field %s has no subfields", df.Tag)
		}
		f := Field{
			Tag:  df.Tag,
			Ind1: indicator(df.Ind1),
			Ind2: indicator(df.Ind2),
		}
		if len(f.Ind1) != 1 || len(f.Ind2) != 1 {
			return nil, fmt.Errorf("data field %s has malformed indicators %q/%q", df.Tag, df.Ind1, df.Ind2)
		}
		for _, sf := range df.Subfields {
			if len(sf.Code) != 1 {
				return nil, fmt.Errorf("data field %s has malformed subfield code %q", df.Tag, sf.Code)
			}
			f.Subfields = append(f.Subfields, Subfield{Code: sf.Code, Value: norm.NFC.String(sf.Value)})
		}
		r.Fields = append(r.Fields, f)
	}

	if len(r.Fields) == 0 {
		return nil, fmt.Errorf("record has no fields")
	}
	return r, nil
}

// ToXML converts the record back into its MARCXML document form.
func (r *Record) ToXML() *XMLRecord {
	x := &XMLRecord{Leader: r.Leader}
	for _, f := range r.Fields {
		if f.IsControl() {
			x.ControlFields = append(x.ControlFields, XMLControlField{Tag: f.Tag, Value: f.Value})
			continue
		}
		df := XMLDataField{Tag: f.Tag, Ind1: f.Ind1, Ind2: f.Ind2}
		for _, sf := range f.Subfields {
			df.Subfields = append(df.Subfields, XMLSubfield{Code: sf.Code, Value: sf.Value})
		}
		x.DataFields = append(x.DataFields, df)
	}
	return x
}

// ValidateLeader checks that a leader holds only printable ASCII. Leader
// positions are single bytes; a multibyte character would corrupt the
// positional slicing of the binary writer.
func ValidateLeader(l string) error {
	for i := 0; i < len(l); i++ {
		if l[i] < 0x20 || l[i] > 0x7e {
			return fmt.Errorf("leader has a non-ASCII character at byte %d", i)
		}
	}
	if len(l) > LeaderLen {
		return fmt.Errorf("leader is %d bytes, want at most %d", len(l), LeaderLen)
	}
	return nil
}

func validTag(tag string) error {
	if len(tag) != 3 {
		return fmt.Errorf("malformed tag %q", tag)
	}
	for _, c := range tag {
		if c < '0' || c > '9' {
			return fmt.Errorf("malformed tag %q", tag)
		}
	}
	return nil
}

// indicator normalizes an indicator value: absent means blank.
func indicator(s string) string {
	if s == "" {
		return " "
	}
	return s
}

// padLeader pads or truncates a leader to its fixed length. An empty leader
// becomes the default.
func padLeader(l string) string {
	if l == "" {
		l = DefaultLeader
	}
	if len(l) < LeaderLen {
		l += strings.Repeat(" ", LeaderLen-len(l))
	}
	return l[:LeaderLen]
}
