// Package convert drives the conversion pipeline: extract descriptions, then
// for each one resolve external references, stripe, transform, and build the
// MARC record. Every failure inside the per-description stages is caught at
// the description boundary; only extraction failures and cancellation abort
// the run.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/kilupskalvis/bf2marc/internal/config"
	"github.com/kilupskalvis/bf2marc/internal/deref"
	"github.com/kilupskalvis/bf2marc/internal/extract"
	"github.com/kilupskalvis/bf2marc/internal/graph"
	"github.com/kilupskalvis/bf2marc/internal/marc"
	"github.com/kilupskalvis/bf2marc/internal/stripe"
	"github.com/kilupskalvis/bf2marc/internal/transform"
)

// Options configures one conversion run.
type Options struct {
	Query       *extract.Query
	Dereference config.Dereference
	Resolver    *deref.Resolver
	Engine      *transform.Engine
	Logger      *slog.Logger

	// KeepStriped renders each description's striped XML into its Result,
	// for the striped debugging output.
	KeepStriped bool
}

// Result is the outcome for one description: a record, a legitimate
// no-conversion, or a skip with the error that caused it.
type Result struct {
	Description  extract.Description
	Record       *marc.Record
	Striped      []byte
	NoConversion bool
	Err          error
}

// Outcome aggregates a whole run. Records holds the successfully built
// records in extraction order.
type Outcome struct {
	Records []*marc.Record
	Results []Result
}

// Converted returns the number of descriptions that produced a record.
func (o *Outcome) Converted() int { return len(o.Records) }

// Skipped returns the number of descriptions skipped due to an error.
func (o *Outcome) Skipped() int {
	n := 0
	for _, r := range o.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// ExitCode implements the run's success policy: zero descriptions is a
// normal empty run, and any built record is a success. Only a run where
// every description failed (with no legitimate empty outcomes succeeding
// either) is reported as a failure.
func (o *Outcome) ExitCode() int {
	if len(o.Results) > 0 && o.Converted() == 0 && o.Skipped() > 0 {
		return 2
	}
	return 0
}

// Run converts every description found in the store. The store must be fully
// populated before the call and is never mutated.
func Run(ctx context.Context, store graph.Store, opts Options) (*Outcome, error) {
	descriptions, err := extract.Extract(store, opts.Query)
	if err != nil {
		return nil, err
	}
	if len(descriptions) == 0 {
		opts.Logger.Debug("no descriptions found")
	}

	out := &Outcome{}
	for _, desc := range descriptions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, striped, noConv, err := convertOne(ctx, store, desc, opts)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			opts.Logger.Warn("skipped description", "work", desc.Work.String(), "instance", desc.Instance.String(), "error", err)
			out.Results = append(out.Results, Result{Description: desc, Err: err})
		case noConv:
			opts.Logger.Debug("no conversion for description", "work", desc.Work.String(), "instance", desc.Instance.String())
			out.Results = append(out.Results, Result{Description: desc, Striped: striped, NoConversion: true})
		default:
			opts.Logger.Debug("converted description", "work", desc.Work.String(), "instance", desc.Instance.String(), "fields", len(rec.Fields))
			out.Records = append(out.Records, rec)
			out.Results = append(out.Results, Result{Description: desc, Record: rec, Striped: striped})
		}
	}
	return out, nil
}

// convertOne runs the per-description stages against a private graph view.
func convertOne(ctx context.Context, base graph.Store, desc extract.Description, opts Options) (*marc.Record, []byte, bool, error) {
	view, err := opts.Resolver.Resolve(ctx, base, desc, opts.Dereference)
	if err != nil {
		return nil, nil, false, fmt.Errorf("dereference: %w", err)
	}
	if view != base {
		defer view.Close()
	}

	doc, err := stripe.Stripe(desc, view)
	if err != nil {
		return nil, nil, false, fmt.Errorf("stripe: %w", err)
	}

	var striped []byte
	if opts.KeepStriped {
		var buf bytes.Buffer
		if err := doc.WriteXML(&buf); err != nil {
			return nil, nil, false, fmt.Errorf("render striped: %w", err)
		}
		striped = buf.Bytes()
	}

	xmlRec, err := opts.Engine.Transform(doc)
	if err != nil {
		return nil, nil, false, fmt.Errorf("transform: %w", err)
	}
	if xmlRec == nil {
		return nil, striped, true, nil
	}

	rec, err := marc.FromXML(xmlRec)
	if err != nil {
		return nil, nil, false, fmt.Errorf("build record: %w", err)
	}
	return rec, striped, false, nil
}
