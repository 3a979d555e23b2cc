// Package cli implements the command-line interface for bf2marc.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/kilupskalvis/bf2marc/internal/config"
	"github.com/kilupskalvis/bf2marc/internal/convert"
	"github.com/kilupskalvis/bf2marc/internal/deref"
	"github.com/kilupskalvis/bf2marc/internal/extract"
	"github.com/kilupskalvis/bf2marc/internal/graph"
	"github.com/kilupskalvis/bf2marc/internal/marc"
	"github.com/kilupskalvis/bf2marc/internal/source"
	"github.com/kilupskalvis/bf2marc/internal/transform"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bf2marc [source...]",
	Short: "Convert BIBFRAME description graphs to MARC records",
	Long: `bf2marc converts BIBFRAME RDF graphs into MARC bibliographic records.

Sources are local files or URLs in any supported RDF serialization; with no
sources, standard input is read. Each Work/Instance description found in the
graph is converted through a declarative mapping into one MARC record, and
the records are written as a MARCXML collection or in binary form.`,
	Args: cobra.ArbitraryArgs,
	Run:  runConvert,
}

var (
	fromFlag         string
	toFlag           string
	emitFlag         string
	outputFlag       string
	configFlag       string
	rulesFlag        string
	queryFlag        string
	storeFlag        string
	derefTimeoutFlag time.Duration
	stdinWaitFlag    time.Duration
	verboseFlag      bool
)

func init() {
	rootCmd.Flags().StringVarP(&fromFlag, "from", "f", "rdfxml", "Input format (rdfxml, ntriples, turtle, jsonld, nquads)")
	rootCmd.Flags().StringVarP(&toFlag, "to", "t", "xml", "Output format (xml, marc)")
	rootCmd.Flags().StringVar(&emitFlag, "emit", "records", "What to emit (records, striped)")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file (default stdout)")
	rootCmd.Flags().StringVarP(&configFlag, "config", "c", "", "Dereference configuration file (JSON)")
	rootCmd.Flags().StringVar(&rulesFlag, "rules", "", "Mapping rules file (TOML, default embedded)")
	rootCmd.Flags().StringVar(&queryFlag, "query", "", "Description query file (TOML, default embedded)")
	rootCmd.Flags().StringVar(&storeFlag, "store", "memory", "Triple store backend (memory, disk)")
	rootCmd.Flags().DurationVar(&derefTimeoutFlag, "deref-timeout", deref.DefaultTimeout, "Per-lookup dereference timeout")
	rootCmd.Flags().DurationVar(&stdinWaitFlag, "stdin-wait", 3*time.Second, "How long to wait for standard input")
	rootCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func runConvert(cmd *cobra.Command, args []string) {
	code, err := doConvert(context.Background(), args)
	if err != nil {
		exitError("%v", err)
	}
	if code != 0 {
		os.Exit(code)
	}
}

// doConvert runs one conversion. All fatal conditions come back as errors so
// deferred cleanup (the disk store's temporary file in particular) runs
// before the process exits.
func doConvert(ctx context.Context, args []string) (int, error) {
	logger := newLogger()

	inFormat, err := source.ParseFormat(fromFlag)
	if err != nil {
		return 0, err
	}
	if toFlag != "xml" && toFlag != "marc" {
		return 0, fmt.Errorf("unknown output format %q (want xml or marc)", toFlag)
	}
	if emitFlag != "records" && emitFlag != "striped" {
		return 0, fmt.Errorf("unknown emit mode %q (want records or striped)", emitFlag)
	}

	derefCfg, err := config.LoadDereference(configFlag)
	if err != nil {
		return 0, err
	}
	engine, err := transform.Load(rulesFlag)
	if err != nil {
		return 0, err
	}
	query, err := extract.LoadQuery(queryFlag)
	if err != nil {
		return 0, err
	}

	store, err := newStore(storeFlag)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	loader := source.NewLoader(logger)
	loader.StdinWait = stdinWaitFlag
	if err := loader.Load(ctx, store, args, inFormat); err != nil {
		return 0, err
	}

	resolver := deref.NewResolver(logger)
	resolver.Timeout = derefTimeoutFlag

	outcome, err := convert.Run(ctx, store, convert.Options{
		Query:       query,
		Dereference: derefCfg,
		Resolver:    resolver,
		Engine:      engine,
		Logger:      logger,
		KeepStriped: emitFlag == "striped",
	})
	if err != nil {
		return 0, err
	}

	if err := writeOutput(outcome); err != nil {
		return 0, err
	}

	if verboseFlag {
		reportOutcome(outcome)
	}
	if code := outcome.ExitCode(); code != 0 {
		fmt.Fprintf(os.Stderr, "error: no records converted (%d descriptions failed)\n", outcome.Skipped())
		return code, nil
	}
	return 0, nil
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verboseFlag {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newStore(backend string) (graph.Store, error) {
	switch backend {
	case "memory":
		return graph.NewMemory(), nil
	case "disk":
		return graph.NewSQLite()
	}
	return nil, fmt.Errorf("unknown store backend %q (want memory or disk)", backend)
}

// writeOutput serializes the run's output. The output file is created only
// after conversion has finished, so an aborted run leaves nothing behind.
func writeOutput(o *convert.Outcome) error {
	var w io.Writer = os.Stdout
	if outputFlag != "" {
		f, err := os.Create(outputFlag)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	if emitFlag == "striped" {
		for _, r := range o.Results {
			if len(r.Striped) == 0 {
				continue
			}
			if _, err := w.Write(r.Striped); err != nil {
				return err
			}
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		return nil
	}

	if toFlag == "marc" {
		return marc.WriteBinary(w, o.Records)
	}
	return marc.WriteCollectionXML(w, o.Records)
}

func reportOutcome(o *convert.Outcome) {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Fprintf(os.Stderr, "converted %d of %d descriptions\n", o.Converted(), len(o.Results))
	if n := o.Skipped(); n > 0 {
		yellow.Fprintf(os.Stderr, " %d skipped with errors\n", n)
	}
	empty := len(o.Results) - o.Converted() - o.Skipped()
	if empty > 0 {
		fmt.Fprintf(os.Stderr, " %d produced no record\n", empty)
	}
}

// exitError prints an error and exits.
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
