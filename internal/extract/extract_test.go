package extract

import (
	"fmt"
	"testing"

	"github.com/kilupskalvis/bf2marc/internal/graph"
	"github.com/kilupskalvis/bf2marc/internal/vocab"
	"github.com/knakk/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func iri(t *testing.T, s string) rdf.IRI {
	t.Helper()
	v, err := rdf.NewIRI(s)
	require.NoError(t, err)
	return v
}

func addPair(t *testing.T, g graph.Store, n int) {
	t.Helper()
	work := iri(t, fmt.Sprintf("http://example.org/work/%d", n))
	instance := iri(t, fmt.Sprintf("http://example.org/instance/%d", n))
	require.NoError(t, g.Add(
		rdf.Triple{Subj: work, Pred: iri(t, vocab.RDFType), Obj: iri(t, vocab.BFWork)},
		rdf.Triple{Subj: instance, Pred: iri(t, vocab.RDFType), Obj: iri(t, vocab.BFInstance)},
		rdf.Triple{Subj: instance, Pred: iri(t, vocab.InstanceOf), Obj: work},
	))
}

func defaultTestQuery(t *testing.T) *Query {
	t.Helper()
	q, err := LoadQuery("")
	require.NoError(t, err)
	return q
}

func TestExtract_PairingInvariant(t *testing.T) {
	g := graph.NewMemory()
	addPair(t, g, 1)
	addPair(t, g, 2)
	addPair(t, g, 3)

	// Orphan work with no linked instance must not yield a description.
	orphan := iri(t, "http://example.org/work/orphan")
	require.NoError(t, g.Add(
		rdf.Triple{Subj: orphan, Pred: iri(t, vocab.RDFType), Obj: iri(t, vocab.BFWork)},
	))

	descs, err := Extract(g, defaultTestQuery(t))
	require.NoError(t, err)
	require.Len(t, descs, 3)
	for _, d := range descs {
		assert.NotNil(t, d.Work)
		assert.NotNil(t, d.Instance)
	}
}

func TestExtract_DeduplicatesPairs(t *testing.T) {
	g := graph.NewMemory()
	addPair(t, g, 1)

	// Assert the inverse relation too: same pair via a second path.
	work := iri(t, "http://example.org/work/1")
	instance := iri(t, "http://example.org/instance/1")
	require.NoError(t, g.Add(
		rdf.Triple{Subj: work, Pred: iri(t, vocab.HasInstance), Obj: instance},
	))

	descs, err := Extract(g, defaultTestQuery(t))
	require.NoError(t, err)
	assert.Len(t, descs, 1)
}

func TestExtract_EmptyGraph(t *testing.T) {
	descs, err := Extract(graph.NewMemory(), defaultTestQuery(t))
	require.NoError(t, err)
	assert.Empty(t, descs)
}

func TestExtract_StableOrder(t *testing.T) {
	g := graph.NewMemory()
	addPair(t, g, 2)
	addPair(t, g, 1)

	first, err := Extract(g, defaultTestQuery(t))
	require.NoError(t, err)
	second, err := Extract(g, defaultTestQuery(t))
	require.NoError(t, err)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].String(), second[i].String())
	}
}

func TestParseQuery_Validation(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"empty", ``},
		{"no patterns", `[[select]]
where = []`},
		{"wrong arity", `[[select]]
where = [["?work", "rdf:type"]]`},
		{"missing instance var", `[[select]]
where = [["?work", "rdf:type", "bf:Work"]]`},
		{"not toml", `{{{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuery([]byte(tt.toml))
			assert.Error(t, err)
		})
	}
}

func TestParseQuery_ExpandsQNames(t *testing.T) {
	q, err := ParseQuery([]byte(`[[select]]
where = [
  ["?work", "rdf:type", "bf:Work"],
  ["?instance", "bf:instanceOf", "?work"],
]`))
	require.NoError(t, err)
	require.Len(t, q.groups, 1)
	assert.Equal(t, vocab.RDFType, q.groups[0][0][1])
	assert.Equal(t, vocab.BFWork, q.groups[0][0][2])
}

func TestExtract_BlankNodeSubjects(t *testing.T) {
	g := graph.NewMemory()
	work, err := rdf.NewBlank("w1")
	require.NoError(t, err)
	instance := iri(t, "http://example.org/instance/b")
	require.NoError(t, g.Add(
		rdf.Triple{Subj: work, Pred: iri(t, vocab.RDFType), Obj: iri(t, vocab.BFWork)},
		rdf.Triple{Subj: instance, Pred: iri(t, vocab.InstanceOf), Obj: work},
	))

	descs, err := Extract(g, defaultTestQuery(t))
	require.NoError(t, err)
	require.Len(t, descs, 1)
}
