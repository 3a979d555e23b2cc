package transform

import (
	"fmt"
	"strings"

	"github.com/kilupskalvis/bf2marc/internal/stripe"
	"github.com/kilupskalvis/bf2marc/internal/vocab"
)

// path is a parsed striped-tree path. Steps alternate predicate IRI and
// resource-type IRI ("*" = any type). A value path has odd length and ends
// on a predicate whose literal objects are the result; the special path
// "@id" selects the current resource identifier. A group path has even
// length and ends on a type step, selecting resources.
type path struct {
	steps []string
	id    bool
}

func parseSteps(s string) ([]string, error) {
	if s == "" {
		return nil, fmt.Errorf("empty path")
	}
	raw := strings.Split(s, "/")
	steps := make([]string, 0, len(raw))
	for _, st := range raw {
		if st == "" {
			return nil, fmt.Errorf("empty step in path %q", s)
		}
		if st == "*" {
			steps = append(steps, st)
		} else {
			steps = append(steps, vocab.Expand(st))
		}
	}
	return steps, nil
}

func parseValuePath(s string) (path, error) {
	if s == "@id" {
		return path{id: true}, nil
	}
	steps, err := parseSteps(s)
	if err != nil {
		return path{}, err
	}
	if len(steps)%2 == 0 {
		return path{}, fmt.Errorf("value path %q must end on a predicate step", s)
	}
	for i, st := range steps {
		if st == "*" && i%2 == 0 {
			return path{}, fmt.Errorf("path %q has a wildcard predicate", s)
		}
	}
	return path{steps: steps}, nil
}

func parseGroupPath(s string) (path, error) {
	steps, err := parseSteps(s)
	if err != nil {
		return path{}, err
	}
	if len(steps)%2 != 0 {
		return path{}, fmt.Errorf("group path %q must end on a type step", s)
	}
	for i, st := range steps {
		if st == "*" && i%2 == 0 {
			return path{}, fmt.Errorf("path %q has a wildcard predicate", s)
		}
	}
	return path{steps: steps}, nil
}

// values evaluates a value path, collecting literal values in tree order.
func (p path) values(r *stripe.Resource) []string {
	if r == nil {
		return nil
	}
	if p.id {
		return []string{r.ID}
	}
	return literalsAt(r, p.steps)
}

func literalsAt(r *stripe.Resource, steps []string) []string {
	prop, ok := findProp(r, steps[0])
	if !ok {
		return nil
	}
	if len(steps) == 1 {
		var out []string
		for _, o := range prop.Objects {
			if o.Literal != nil {
				out = append(out, o.Literal.Value)
			}
		}
		return out
	}

	var out []string
	for _, o := range prop.Objects {
		if res := matchType(o, steps[1]); res != nil {
			out = append(out, literalsAt(res, steps[2:])...)
		}
	}
	return out
}

// resources evaluates a group path, collecting matching resource nodes.
func (p path) resources(r *stripe.Resource) []*stripe.Resource {
	if r == nil {
		return nil
	}
	return resourcesAt(r, p.steps)
}

func resourcesAt(r *stripe.Resource, steps []string) []*stripe.Resource {
	prop, ok := findProp(r, steps[0])
	if !ok {
		return nil
	}

	var out []*stripe.Resource
	for _, o := range prop.Objects {
		res := matchType(o, steps[1])
		if res == nil {
			continue
		}
		if len(steps) == 2 {
			out = append(out, res)
		} else {
			out = append(out, resourcesAt(res, steps[2:])...)
		}
	}
	return out
}

func findProp(r *stripe.Resource, pred string) (stripe.Property, bool) {
	for _, prop := range r.Props {
		if prop.Pred == pred {
			return prop, true
		}
	}
	return stripe.Property{}, false
}

// matchType returns the object's resource when it matches the type step.
// Reference markers carry no properties and never match.
func matchType(o stripe.Object, typeStep string) *stripe.Resource {
	if o.Resource == nil || o.Resource.Ref {
		return nil
	}
	if typeStep == "*" {
		return o.Resource
	}
	for _, t := range o.Resource.Types {
		if t == typeStep {
			return o.Resource
		}
	}
	return nil
}
