// Package config loads the dereference configuration file. The file is a
// JSON object with one recognized key, "dereference", mapping a class IRI to
// an ordered list of IRI prefixes.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Dereference maps class IRI → IRI prefixes. An object IRI is dereferenced
// when its subject carries one of these types and the IRI starts with one of
// the type's prefixes. Prefixes are plain string prefixes, not patterns.
// The zero value disables dereferencing entirely.
type Dereference map[string][]string

// Empty reports whether no dereferencing is configured.
func (d Dereference) Empty() bool { return len(d) == 0 }

// Matches reports whether iri starts with any prefix configured for classIRI.
func (d Dereference) Matches(classIRI, iri string) bool {
	for _, prefix := range d[classIRI] {
		if len(iri) >= len(prefix) && iri[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

type file struct {
	Dereference map[string][]string `json:"dereference"`
}

// LoadDereference reads a dereference config file. An empty path yields an
// empty (disabled) config; an unreadable or malformed file is a
// configuration-class error.
func LoadDereference(path string) (Dereference, error) {
	if path == "" {
		return Dereference{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := Dereference(f.Dereference)
	for class, prefixes := range cfg {
		if class == "" {
			return nil, fmt.Errorf("dereference config: empty class IRI")
		}
		for _, p := range prefixes {
			if p == "" {
				return nil, fmt.Errorf("dereference config: empty prefix for %s", class)
			}
		}
	}
	return cfg, nil
}
