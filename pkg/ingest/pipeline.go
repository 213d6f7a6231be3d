package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dd0wney/cluso-commgraph/pkg/graphstore"
	"github.com/dd0wney/cluso-commgraph/pkg/logging"
	"github.com/dd0wney/cluso-commgraph/pkg/metrics"
)

// Outcome is the fate of a single row.
type Outcome string

const (
	OutcomeIngested Outcome = "ingested"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// Result tallies a run.
type Result struct {
	Ingested int `json:"ingested"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Rows is the number of rows seen.
func (r Result) Rows() int {
	return r.Ingested + r.Skipped + r.Failed
}

func (r *Result) add(o Outcome) {
	switch o {
	case OutcomeIngested:
		r.Ingested++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	}
}

// ProgressFunc is called after each row with the running tally. err is the
// row's failure, if any.
type ProgressFunc func(row int, outcome Outcome, tally Result, err error)

// Pipeline writes rows into a listing set.
type Pipeline struct {
	store   graphstore.Store
	logger  logging.Logger
	metrics *metrics.Registry
}

// NewPipeline creates a pipeline. logger and reg may be nil.
func NewPipeline(store graphstore.Store, logger logging.Logger, reg *metrics.Registry) *Pipeline {
	return &Pipeline{
		store:   store,
		logger:  logging.OrNop(logger).With(logging.Component("ingest")),
		metrics: reg,
	}
}

// Run processes src strictly in order. Each row is parsed and written on its
// own; a bad row is counted and the run moves on. The returned error is
// reserved for conditions that stop the run as a whole: the store cannot be
// reached, the source cannot be read, or ctx is cancelled. A record the
// source cannot decode counts as a failed row. The tally up to
// that point is returned alongside it.
func (p *Pipeline) Run(ctx context.Context, listingSetID string, src Source, progress ProgressFunc) (Result, error) {
	var result Result
	log := p.logger.With(logging.ListingSetID(listingSetID))
	timer := logging.StartTimer(log, "ingestion complete")

	err := graphstore.WithSession(ctx, p.store, func(sess graphstore.Session) error {
		for n := 1; ; n++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			row, err := src.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}

			var outcome Outcome
			var rowErr error
			switch {
			case errors.Is(err, ErrMalformedRow):
				log.Warn("row failed", logging.Row(n), logging.Error(err))
				outcome, rowErr = OutcomeFailed, err
			case err != nil:
				return fmt.Errorf("row %d: %w", n, err)
			default:
				outcome, rowErr = p.processRow(ctx, sess, log, listingSetID, n, row)
			}

			result.add(outcome)
			if p.metrics != nil {
				p.metrics.RecordIngestRow(string(outcome))
			}
			if progress != nil {
				progress(n, outcome, result, rowErr)
			}
		}
	})

	fields := []logging.Field{
		logging.Int("ingested", result.Ingested),
		logging.Int("skipped", result.Skipped),
		logging.Int("failed", result.Failed),
	}
	if err != nil {
		timer.EndError(err, fields...)
		return result, err
	}
	timer.End(fields...)
	return result, nil
}

func (p *Pipeline) processRow(ctx context.Context, sess graphstore.Session, log logging.Logger, listingSetID string, n int, row Row) (Outcome, error) {
	if !row.HasTimestamp() {
		log.Info("row skipped", logging.Row(n), logging.Any("keys", row.Keys()))
		return OutcomeSkipped, nil
	}

	rec, err := ParseRow(n, row)
	if err == nil {
		err = sess.IngestRecord(ctx, listingSetID, rec)
	}
	if err != nil {
		log.Warn("row failed", logging.Row(n), logging.Error(err))
		return OutcomeFailed, err
	}

	log.Debug("row ingested", logging.Row(n))
	return OutcomeIngested, nil
}
