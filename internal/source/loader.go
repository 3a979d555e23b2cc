package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/kilupskalvis/bf2marc/internal/graph"
	"github.com/knakk/rdf"
)

// ErrNoInput is returned when no sources are given and nothing arrives on
// standard input within the bounded wait.
var ErrNoInput = errors.New("no input available")

// Loader reads sources into a graph store. All loader failures are
// configuration-class: a source that cannot be read or parsed aborts the run.
type Loader struct {
	Client    *http.Client  // used for URL sources; defaults to http.DefaultClient
	StdinWait time.Duration // bounded wait for stdin input
	Stdin     io.Reader     // defaults to os.Stdin
	Logger    *slog.Logger
}

// NewLoader creates a loader with default transport and a 3 second stdin wait.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{
		Client:    &http.Client{Timeout: 30 * time.Second},
		StdinWait: 3 * time.Second,
		Logger:    logger,
	}
}

// Load parses every source into the store. With no sources, standard input
// is read in the declared format. URL sources are content negotiated; if the
// response parses under neither the response-derived format nor the declared
// one, the source is rejected.
func (l *Loader) Load(ctx context.Context, store graph.Store, sources []string, declared Format) error {
	if len(sources) == 0 {
		r, err := l.stdin()
		if err != nil {
			return err
		}
		triples, err := Decode(r, declared)
		if err != nil {
			return fmt.Errorf("stdin: %w", err)
		}
		l.Logger.Debug("loaded source", "source", "stdin", "triples", len(triples))
		return store.Add(triples...)
	}

	for _, src := range sources {
		if err := l.loadOne(ctx, store, src, declared); err != nil {
			return fmt.Errorf("source %s: %w", src, err)
		}
	}
	return nil
}

func (l *Loader) loadOne(ctx context.Context, store graph.Store, src string, declared Format) error {
	if isURL(src) {
		ts, err := l.loadURL(ctx, src, declared)
		if err != nil {
			return err
		}
		l.Logger.Debug("loaded source", "source", src, "triples", len(ts))
		return store.Add(ts...)
	}

	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	ts, err := Decode(f, declared)
	if err != nil {
		return err
	}
	l.Logger.Debug("loaded source", "source", src, "triples", len(ts))
	return store.Add(ts...)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// loadURL fetches a URL and parses the body. The format implied by the
// response Content-Type is tried first; on a parse failure the declared
// format gets one more attempt.
func (l *Loader) loadURL(ctx context.Context, url string, declared Format) ([]rdf.Triple, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", AcceptHeader)

	resp, err := l.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	negotiated := declared
	if f, ok := FormatForContentType(resp.Header.Get("Content-Type")); ok {
		negotiated = f
	}

	triples, err := Decode(bytes.NewReader(body), negotiated)
	if err == nil {
		return triples, nil
	}
	if negotiated == declared {
		return nil, err
	}

	l.Logger.Debug("retrying with declared format", "url", url, "negotiated", negotiated, "declared", declared)
	triples, retryErr := Decode(bytes.NewReader(body), declared)
	if retryErr != nil {
		return nil, fmt.Errorf("%w (declared-format retry: %v)", err, retryErr)
	}
	return triples, nil
}

func (l *Loader) client() *http.Client {
	if l.Client != nil {
		return l.Client
	}
	return http.DefaultClient
}

// stdin waits up to StdinWait for the first byte of standard input. Nothing
// arriving in time is the fatal no-input condition, not an infinite block.
func (l *Loader) stdin() (io.Reader, error) {
	in := l.Stdin
	if in == nil {
		in = os.Stdin
	}

	type first struct {
		b   []byte
		err error
	}
	ch := make(chan first, 1)
	go func() {
		buf := make([]byte, 1)
		n, err := in.Read(buf)
		ch <- first{b: buf[:n], err: err}
	}()

	select {
	case f := <-ch:
		if f.err != nil && len(f.b) == 0 {
			if f.err == io.EOF {
				return nil, ErrNoInput
			}
			return nil, fmt.Errorf("read stdin: %w", f.err)
		}
		return io.MultiReader(bytes.NewReader(f.b), in), nil
	case <-time.After(l.StdinWait):
		return nil, ErrNoInput
	}
}
