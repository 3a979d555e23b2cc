// Package transform applies the declarative BIBFRAME→MARC mapping rules to a
// striped document. The rules are data: an embedded TOML file by default,
// replaceable per run. A description that matches no rules is a legitimate
// "no conversion" outcome, not an error.
package transform

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/kilupskalvis/bf2marc/internal/marc"
	"github.com/kilupskalvis/bf2marc/internal/stripe"
	"github.com/pelletier/go-toml/v2"
)

//go:embed bibframe2marc.toml
var defaultRules []byte

// Engine evaluates a parsed rule set against striped documents.
type Engine struct {
	leader   string
	require  []requireRule
	controls []controlRule
	fields   []fieldRule
}

type requireRule struct {
	root string
	path path
}

type controlRule struct {
	tag   string
	value string // constant; empty means use the path
	root  string
	path  path
}

type fieldRule struct {
	tag       string
	ind1      string
	ind2      string
	root      string
	group     path // zero-length = evaluate from root
	subfields []subfieldRule
}

type subfieldRule struct {
	code  string
	value string // constant; empty means use the path
	path  path
}

// Load reads a rules file, or the embedded default when path is empty.
func Load(path string) (*Engine, error) {
	data := defaultRules
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rules file: %w", err)
		}
	}
	return Parse(data)
}

// ruleFile mirrors the TOML rule schema.
type ruleFile struct {
	Record struct {
		Leader  string `toml:"leader"`
		Require []struct {
			Root string `toml:"root"`
			Path string `toml:"path"`
		} `toml:"require"`
	} `toml:"record"`
	Control []struct {
		Tag   string `toml:"tag"`
		Value string `toml:"value"`
		Root  string `toml:"root"`
		Path  string `toml:"path"`
	} `toml:"control"`
	Field []struct {
		Tag      string `toml:"tag"`
		Ind1     string `toml:"ind1"`
		Ind2     string `toml:"ind2"`
		Root     string `toml:"root"`
		Group    string `toml:"group"`
		Subfield []struct {
			Code  string `toml:"code"`
			Value string `toml:"value"`
			Path  string `toml:"path"`
		} `toml:"subfield"`
	} `toml:"field"`
}

// Parse parses and validates rule TOML. Malformed rules are a
// configuration-class error.
func Parse(data []byte) (*Engine, error) {
	var rf ruleFile
	if err := toml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	if err := marc.ValidateLeader(rf.Record.Leader); err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	e := &Engine{leader: rf.Record.Leader}

	for i, req := range rf.Record.Require {
		root, err := parseRoot(req.Root)
		if err != nil {
			return nil, fmt.Errorf("rules: require %d: %w", i, err)
		}
		p, err := parseValuePath(req.Path)
		if err != nil {
			return nil, fmt.Errorf("rules: require %d: %w", i, err)
		}
		e.require = append(e.require, requireRule{root: root, path: p})
	}

	for i, c := range rf.Control {
		if len(c.Tag) != 3 {
			return nil, fmt.Errorf("rules: control %d: malformed tag %q", i, c.Tag)
		}
		cr := controlRule{tag: c.Tag, value: c.Value}
		if c.Value == "" {
			root, err := parseRoot(c.Root)
			if err != nil {
				return nil, fmt.Errorf("rules: control %s: %w", c.Tag, err)
			}
			p, err := parseValuePath(c.Path)
			if err != nil {
				return nil, fmt.Errorf("rules: control %s: %w", c.Tag, err)
			}
			cr.root, cr.path = root, p
		}
		e.controls = append(e.controls, cr)
	}

	for i, f := range rf.Field {
		if len(f.Tag) != 3 {
			return nil, fmt.Errorf("rules: field %d: malformed tag %q", i, f.Tag)
		}
		root, err := parseRoot(f.Root)
		if err != nil {
			return nil, fmt.Errorf("rules: field %s: %w", f.Tag, err)
		}
		fr := fieldRule{tag: f.Tag, ind1: f.Ind1, ind2: f.Ind2, root: root}
		if f.Group != "" {
			fr.group, err = parseGroupPath(f.Group)
			if err != nil {
				return nil, fmt.Errorf("rules: field %s: group: %w", f.Tag, err)
			}
		}
		if len(f.Subfield) == 0 {
			return nil, fmt.Errorf("rules: field %s has no subfields", f.Tag)
		}
		for _, sf := range f.Subfield {
			if len(sf.Code) != 1 {
				return nil, fmt.Errorf("rules: field %s: malformed subfield code %q", f.Tag, sf.Code)
			}
			sr := subfieldRule{code: sf.Code, value: sf.Value}
			if sf.Value == "" {
				sr.path, err = parseValuePath(sf.Path)
				if err != nil {
					return nil, fmt.Errorf("rules: field %s $%s: %w", f.Tag, sf.Code, err)
				}
			}
			fr.subfields = append(fr.subfields, sr)
		}
		e.fields = append(e.fields, fr)
	}

	return e, nil
}

func parseRoot(s string) (string, error) {
	switch s {
	case "work", "instance":
		return s, nil
	}
	return "", fmt.Errorf("bad root %q (want work or instance)", s)
}

// Transform evaluates the rules against one striped document. A nil record
// with nil error means the description legitimately produces no record.
func (e *Engine) Transform(doc *stripe.Document) (*marc.XMLRecord, error) {
	if doc == nil || doc.Work == nil || doc.Instance == nil {
		return nil, fmt.Errorf("malformed striped document: missing work or instance")
	}

	for _, req := range e.require {
		if len(req.path.values(e.root(doc, req.root))) == 0 {
			return nil, nil
		}
	}

	rec := &marc.XMLRecord{Leader: e.leader}

	for _, c := range e.controls {
		if c.value != "" {
			rec.ControlFields = append(rec.ControlFields, marc.XMLControlField{Tag: c.tag, Value: c.value})
			continue
		}
		if vals := c.path.values(e.root(doc, c.root)); len(vals) > 0 {
			rec.ControlFields = append(rec.ControlFields, marc.XMLControlField{Tag: c.tag, Value: vals[0]})
		}
	}

	for _, f := range e.fields {
		roots := []*stripe.Resource{e.root(doc, f.root)}
		if len(f.group.steps) > 0 {
			roots = f.group.resources(roots[0])
		}
		for _, r := range roots {
			if df, ok := buildField(f, r); ok {
				rec.DataFields = append(rec.DataFields, df)
			}
		}
	}

	if len(rec.ControlFields) == 0 && len(rec.DataFields) == 0 {
		return nil, nil
	}
	return rec, nil
}

func (e *Engine) root(doc *stripe.Document, name string) *stripe.Resource {
	if name == "work" {
		return doc.Work
	}
	return doc.Instance
}

// buildField evaluates one field rule at one resource. The field is emitted
// only when at least one path-derived subfield has a value; constant
// subfields alone never produce a field.
func buildField(f fieldRule, r *stripe.Resource) (marc.XMLDataField, bool) {
	df := marc.XMLDataField{Tag: f.tag, Ind1: blankIndicator(f.ind1), Ind2: blankIndicator(f.ind2)}

	matched := false
	for _, sf := range f.subfields {
		if sf.value != "" {
			df.Subfields = append(df.Subfields, marc.XMLSubfield{Code: sf.code, Value: sf.value})
			continue
		}
		for _, v := range sf.path.values(r) {
			df.Subfields = append(df.Subfields, marc.XMLSubfield{Code: sf.code, Value: v})
			matched = true
		}
	}
	if !matched {
		return marc.XMLDataField{}, false
	}
	return df, true
}

func blankIndicator(s string) string {
	if s == "" {
		return " "
	}
	return s
}
