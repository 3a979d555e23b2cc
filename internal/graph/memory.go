package graph

import (
	"sync"

	"github.com/knakk/rdf"
)

// Memory is the default in-memory triple store. Reads are safe for concurrent
// use; the pipeline only writes during the load phase.
type Memory struct {
	mu      sync.RWMutex
	triples []rdf.Triple
	seen    map[string]struct{}
	bySubj  map[string][]int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		seen:   make(map[string]struct{}),
		bySubj: make(map[string][]int),
	}
}

// Add inserts triples, dropping exact duplicates.
func (m *Memory) Add(triples ...rdf.Triple) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range triples {
		k := TripleKey(t)
		if _, ok := m.seen[k]; ok {
			continue
		}
		m.seen[k] = struct{}{}
		idx := len(m.triples)
		m.triples = append(m.triples, t)
		sk := Key(t.Subj)
		m.bySubj[sk] = append(m.bySubj[sk], idx)
	}
	return nil
}

// Match returns all triples matching the pattern; nil terms are wildcards.
func (m *Memory) Match(s, p, o rdf.Term) ([]rdf.Triple, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []rdf.Triple
	if s != nil {
		for _, idx := range m.bySubj[Key(s)] {
			if matches(m.triples[idx], nil, p, o) {
				out = append(out, m.triples[idx])
			}
		}
		return out, nil
	}
	for _, t := range m.triples {
		if matches(t, nil, p, o) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Len returns the number of distinct triples.
func (m *Memory) Len() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.triples), nil
}

// Close is a no-op for the memory store.
func (m *Memory) Close() error { return nil }
