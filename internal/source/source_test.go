package source

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kilupskalvis/bf2marc/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"rdfxml", RDFXML, false},
		{"xml", RDFXML, false},
		{"ntriples", NTriples, false},
		{"nt", NTriples, false},
		{"Turtle", Turtle, false},
		{"ttl", Turtle, false},
		{"jsonld", JSONLD, false},
		{"nq", NQuads, false},
		{"marc", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.name)
		if tt.wantErr {
			assert.Error(t, err, tt.name)
			continue
		}
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestFormatForContentType(t *testing.T) {
	f, ok := FormatForContentType("application/rdf+xml; charset=utf-8")
	require.True(t, ok)
	assert.Equal(t, RDFXML, f)

	f, ok = FormatForContentType("text/turtle")
	require.True(t, ok)
	assert.Equal(t, Turtle, f)

	_, ok = FormatForContentType("text/html")
	assert.False(t, ok)
}

func TestDecode_NTriples(t *testing.T) {
	in := `<http://example.org/work/1> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://id.loc.gov/ontologies/bibframe/Work> .
<http://example.org/work/1> <http://www.w3.org/2000/01/rdf-schema#label> "A label"@en .
`
	triples, err := Decode(strings.NewReader(in), NTriples)
	require.NoError(t, err)
	assert.Len(t, triples, 2)
}

func TestDecode_NQuadsDropsGraph(t *testing.T) {
	in := `<http://example.org/s> <http://example.org/p> <http://example.org/o> <http://example.org/g> .
`
	triples, err := Decode(strings.NewReader(in), NQuads)
	require.NoError(t, err)
	require.Len(t, triples, 1)
	assert.Equal(t, "http://example.org/s", triples[0].Subj.String())
}

func TestDecode_Turtle(t *testing.T) {
	in := `@prefix bf: <http://id.loc.gov/ontologies/bibframe/> .
<http://example.org/instance/1> a bf:Instance ;
    bf:instanceOf <http://example.org/work/1> .
`
	triples, err := Decode(strings.NewReader(in), Turtle)
	require.NoError(t, err)
	assert.Len(t, triples, 2)
}

func TestDecode_JSONLD(t *testing.T) {
	in := `{
  "@id": "http://example.org/work/1",
  "@type": "http://id.loc.gov/ontologies/bibframe/Work",
  "http://www.w3.org/2000/01/rdf-schema#label": {"@value": "Ein Titel", "@language": "de"}
}`
	triples, err := Decode(strings.NewReader(in), JSONLD)
	require.NoError(t, err)
	assert.Len(t, triples, 2)
}

func TestDecode_BadInput(t *testing.T) {
	_, err := Decode(strings.NewReader("not rdf at all {{{"), Turtle)
	assert.Error(t, err)
}

func TestLoader_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.nt")
	content := `<http://example.org/s> <http://example.org/p> "v" .
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	store := graph.NewMemory()
	l := NewLoader(discardLogger())
	require.NoError(t, l.Load(context.Background(), store, []string{path}, NTriples))

	n, err := store.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLoader_MissingFileIsFatal(t *testing.T) {
	store := graph.NewMemory()
	l := NewLoader(discardLogger())
	err := l.Load(context.Background(), store, []string{"/does/not/exist.nt"}, NTriples)
	assert.Error(t, err)
}

func TestLoader_URLContentNegotiation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/n-triples")
		w.Write([]byte("<http://example.org/s> <http://example.org/p> <http://example.org/o> .\n"))
	}))
	defer srv.Close()

	store := graph.NewMemory()
	l := NewLoader(discardLogger())
	// Declared format differs; the response content type wins.
	require.NoError(t, l.Load(context.Background(), store, []string{srv.URL}, Turtle))

	n, err := store.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLoader_URLRetriesWithDeclaredFormat(t *testing.T) {
	// Content type claims RDF/XML but the body is Turtle; the declared
	// format gets a second parse attempt.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rdf+xml")
		w.Write([]byte(`<http://example.org/s> <http://example.org/p> "v" .` + "\n"))
	}))
	defer srv.Close()

	store := graph.NewMemory()
	l := NewLoader(discardLogger())
	require.NoError(t, l.Load(context.Background(), store, []string{srv.URL}, NTriples))

	n, err := store.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLoader_Stdin(t *testing.T) {
	store := graph.NewMemory()
	l := NewLoader(discardLogger())
	l.Stdin = strings.NewReader(`<http://example.org/s> <http://example.org/p> "v" .` + "\n")

	require.NoError(t, l.Load(context.Background(), store, nil, NTriples))

	n, err := store.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLoader_StdinEmptyIsNoInput(t *testing.T) {
	l := NewLoader(discardLogger())
	l.Stdin = strings.NewReader("")

	err := l.Load(context.Background(), graph.NewMemory(), nil, NTriples)
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestLoader_StdinWaitIsBounded(t *testing.T) {
	// A pipe nothing ever writes to: the read blocks until the wait runs out.
	pr, pw := io.Pipe()
	defer pw.Close()

	l := NewLoader(discardLogger())
	l.Stdin = pr
	l.StdinWait = 50 * time.Millisecond

	start := time.Now()
	err := l.Load(context.Background(), graph.NewMemory(), nil, NTriples)
	assert.ErrorIs(t, err, ErrNoInput)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestLoader_URLErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	store := graph.NewMemory()
	l := NewLoader(discardLogger())
	err := l.Load(context.Background(), store, []string{srv.URL}, NTriples)
	assert.Error(t, err)
}
