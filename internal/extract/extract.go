// Package extract finds the catalogable descriptions in a graph: every
// Work/Instance pair bound by a declarative pattern query. The query is data,
// shipped as an embedded TOML file and overridable per run.
package extract

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kilupskalvis/bf2marc/internal/graph"
	"github.com/kilupskalvis/bf2marc/internal/vocab"
	"github.com/knakk/rdf"
	"github.com/pelletier/go-toml/v2"
)

//go:embed description.toml
var defaultQuery []byte

// ErrQueryFailed marks a query that could not execute. This is a
// configuration-class failure: the whole run aborts.
var ErrQueryFailed = errors.New("description query failed")

// Description is one catalogable Work/Instance pair. Both nodes are always
// non-nil; a pair missing either side is never emitted.
type Description struct {
	Work     rdf.Subject
	Instance rdf.Subject
}

// String identifies the description in logs and warnings.
func (d Description) String() string {
	return fmt.Sprintf("work=%s instance=%s", d.Work.String(), d.Instance.String())
}

// key identifies the pair for de-duplication.
func (d Description) key() string {
	return graph.Key(d.Work) + "|" + graph.Key(d.Instance)
}

const (
	workVar     = "?work"
	instanceVar = "?instance"
)

// pattern is one (subject, predicate, object) row; each position is either a
// ?variable or an IRI (qname-expanded at load time).
type pattern [3]string

// Query is a union of pattern groups.
type Query struct {
	groups [][]pattern
}

type queryFile struct {
	Select []struct {
		Where [][]string `toml:"where"`
	} `toml:"select"`
}

// LoadQuery reads a query file, or the embedded default when path is empty.
func LoadQuery(path string) (*Query, error) {
	data := defaultQuery
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read query file: %w", err)
		}
	}
	return ParseQuery(data)
}

// ParseQuery parses and validates query TOML. Every group must have three
// elements per pattern and reference both ?work and ?instance.
func ParseQuery(data []byte) (*Query, error) {
	var qf queryFile
	if err := toml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	if len(qf.Select) == 0 {
		return nil, fmt.Errorf("parse query: no select groups")
	}

	q := &Query{}
	for gi, sel := range qf.Select {
		if len(sel.Where) == 0 {
			return nil, fmt.Errorf("parse query: select %d has no patterns", gi)
		}
		var group []pattern
		sawWork, sawInstance := false, false
		for pi, row := range sel.Where {
			if len(row) != 3 {
				return nil, fmt.Errorf("parse query: select %d pattern %d has %d elements, want 3", gi, pi, len(row))
			}
			var p pattern
			for i, s := range row {
				if s == "" {
					return nil, fmt.Errorf("parse query: select %d pattern %d has an empty element", gi, pi)
				}
				if strings.HasPrefix(s, "?") {
					p[i] = s
				} else {
					p[i] = vocab.Expand(s)
				}
				switch s {
				case workVar:
					sawWork = true
				case instanceVar:
					sawInstance = true
				}
			}
			group = append(group, p)
		}
		if !sawWork || !sawInstance {
			return nil, fmt.Errorf("parse query: select %d must bind both %s and %s", gi, workVar, instanceVar)
		}
		q.groups = append(q.groups, group)
	}
	return q, nil
}

// Extract runs the query and returns one Description per distinct
// (Work, Instance) binding, in first-seen order.
func Extract(g graph.Store, q *Query) ([]Description, error) {
	var out []Description
	seen := make(map[string]struct{})

	for _, group := range q.groups {
		err := solve(g, group, map[string]rdf.Term{}, func(b map[string]rdf.Term) error {
			work, ok := graph.AsSubject(b[workVar])
			if !ok {
				return fmt.Errorf("%s bound to a non-resource term", workVar)
			}
			instance, ok := graph.AsSubject(b[instanceVar])
			if !ok {
				return fmt.Errorf("%s bound to a non-resource term", instanceVar)
			}
			d := Description{Work: work, Instance: instance}
			if _, dup := seen[d.key()]; !dup {
				seen[d.key()] = struct{}{}
				out = append(out, d)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
		}
	}
	return out, nil
}

// solve joins the patterns by nested iteration with binding propagation.
func solve(g graph.Store, patterns []pattern, bound map[string]rdf.Term, emit func(map[string]rdf.Term) error) error {
	if len(patterns) == 0 {
		return emit(bound)
	}
	p := patterns[0]

	s, err := resolve(p[0], bound)
	if err != nil {
		return err
	}
	pr, err := resolve(p[1], bound)
	if err != nil {
		return err
	}
	o, err := resolve(p[2], bound)
	if err != nil {
		return err
	}

	matched, err := g.Match(s, pr, o)
	if err != nil {
		return err
	}
	for _, t := range matched {
		next := extend(bound, p, t)
		if err := solve(g, patterns[1:], next, emit); err != nil {
			return err
		}
	}
	return nil
}

// resolve turns a pattern element into a match term: a bound variable's
// value, nil for an unbound variable, or the constant IRI.
func resolve(el string, bound map[string]rdf.Term) (rdf.Term, error) {
	if strings.HasPrefix(el, "?") {
		if t, ok := bound[el]; ok {
			return t, nil
		}
		return nil, nil
	}
	iri, err := rdf.NewIRI(el)
	if err != nil {
		return nil, fmt.Errorf("bad IRI %q in query: %w", el, err)
	}
	return iri, nil
}

func extend(bound map[string]rdf.Term, p pattern, t rdf.Triple) map[string]rdf.Term {
	next := make(map[string]rdf.Term, len(bound)+3)
	for k, v := range bound {
		next[k] = v
	}
	if strings.HasPrefix(p[0], "?") {
		next[p[0]] = t.Subj
	}
	if strings.HasPrefix(p[1], "?") {
		next[p[1]] = t.Pred
	}
	if strings.HasPrefix(p[2], "?") {
		next[p[2]] = t.Obj
	}
	return next
}
