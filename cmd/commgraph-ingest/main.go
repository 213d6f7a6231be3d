// Command commgraph-ingest loads a CDR CSV file into a listing set without
// going through the HTTP server.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dd0wney/cluso-commgraph/pkg/app"
	"github.com/dd0wney/cluso-commgraph/pkg/config"
	"github.com/dd0wney/cluso-commgraph/pkg/graphstore"
	"github.com/dd0wney/cluso-commgraph/pkg/ingest"
	"github.com/dd0wney/cluso-commgraph/pkg/listings"
	"github.com/dd0wney/cluso-commgraph/pkg/logging"
	"github.com/dd0wney/cluso-commgraph/pkg/schema"
)

type options struct {
	configPath   string
	file         string
	listingSetID string
	owner        string
	name         string
	description  string
	plain        bool
	logFile      string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("commgraph-ingest", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "Path to a YAML config file")
	fs.StringVar(&o.file, "file", "", "CDR CSV file to ingest (required)")
	fs.StringVar(&o.listingSetID, "listing-set", "", "Existing listing set ID to ingest into")
	fs.StringVar(&o.owner, "create-for", "", "Create a new listing set owned by this user")
	fs.StringVar(&o.name, "name", "", "Name of the new listing set")
	fs.StringVar(&o.description, "description", "", "Description of the new listing set")
	fs.BoolVar(&o.plain, "plain", false, "Write log lines instead of the progress view")
	fs.StringVar(&o.logFile, "log", "", "Write JSON logs to this file in progress-view mode")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: commgraph-ingest -file calls.csv (-listing-set ID | -create-for USER -name NAME) [options]\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return o, err
	}

	switch {
	case o.file == "":
		return o, errors.New("-file is required")
	case o.listingSetID == "" && o.owner == "":
		return o, errors.New("one of -listing-set or -create-for is required")
	case o.listingSetID != "" && o.owner != "":
		return o, errors.New("-listing-set and -create-for are mutually exclusive")
	case o.owner != "" && o.name == "":
		return o, errors.New("-name is required with -create-for")
	}
	return o, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	result, err := run(opts, cfg)
	fmt.Println(summary(result, err))
	if err != nil {
		os.Exit(1)
	}
}

func run(opts options, cfg config.Config) (ingest.Result, error) {
	var logOut io.Writer = io.Discard
	if opts.plain {
		logOut = os.Stderr
	} else if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return ingest.Result{}, err
		}
		defer f.Close()
		logOut = f
	}
	logger, err := app.NewLogger(cfg, logOut)
	if err != nil {
		return ingest.Result{}, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, total, err := openSource(opts.file)
	if err != nil {
		return ingest.Result{}, err
	}

	store, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return ingest.Result{}, err
	}
	defer store.Close(context.Background())

	listingSetID, err := resolveListingSet(ctx, store, logger, opts)
	if err != nil {
		return ingest.Result{}, err
	}
	logger.Info("ingesting file",
		logging.String("file", opts.file),
		logging.ListingSetID(listingSetID),
		logging.Count(total))

	pipeline := ingest.NewPipeline(store, logger, nil)

	if opts.plain {
		return pipeline.Run(ctx, listingSetID, src, plainProgress(logger, total))
	}
	return runWithProgressView(ctx, pipeline, listingSetID, src, opts.file, total)
}

// openSource reads path into memory and returns a source over it along with
// its row count, malformed rows included.
func openSource(path string) (ingest.Source, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}

	counter, err := ingest.NewCSVSource(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", path, err)
	}
	total, err := ingest.CountRows(counter)
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", path, err)
	}

	src, err := ingest.NewCSVSource(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", path, err)
	}
	return src, total, nil
}

func resolveListingSet(ctx context.Context, store graphstore.Store, logger logging.Logger, opts options) (string, error) {
	if opts.listingSetID != "" {
		return opts.listingSetID, nil
	}

	req := schema.ListingSetCreate{Name: opts.name}
	if opts.description != "" {
		req.Description = &opts.description
	}
	ls, err := listings.NewRegistry(store, logger).Create(ctx, req, opts.owner)
	if err != nil {
		return "", fmt.Errorf("create listing set: %w", err)
	}
	return ls.ID, nil
}

const plainProgressEvery = 1000

func plainProgress(logger logging.Logger, total int) ingest.ProgressFunc {
	return func(row int, outcome ingest.Outcome, tally ingest.Result, err error) {
		if outcome == ingest.OutcomeFailed {
			logger.Warn("row failed", logging.Row(row), logging.Error(err))
		}
		if n := tally.Rows(); n%plainProgressEvery == 0 || n == total {
			logger.Info("progress",
				logging.Int("processed", n),
				logging.Int("total", total),
				logging.Int("ingested", tally.Ingested))
		}
	}
}

func runWithProgressView(ctx context.Context, pipeline *ingest.Pipeline, listingSetID string, src ingest.Source, file string, total int) (ingest.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newModel(file, listingSetID, total, cancel))
	go func() {
		result, err := pipeline.Run(ctx, listingSetID, src, func(row int, outcome ingest.Outcome, tally ingest.Result, err error) {
			p.Send(rowMsg{row: row, outcome: outcome, tally: tally, err: err})
		})
		p.Send(doneMsg{result: result, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return ingest.Result{}, err
	}
	m := final.(model)
	return m.tally, m.err
}

func summary(r ingest.Result, err error) string {
	line := fmt.Sprintf("%d rows: %d ingested, %d skipped, %d failed", r.Rows(), r.Ingested, r.Skipped, r.Failed)
	if err != nil {
		return errorStyle.Render("Ingestion stopped: "+err.Error()) + "\n" + line
	}
	return successStyle.Render("Ingestion complete") + "\n" + line
}
