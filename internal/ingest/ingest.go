// Package ingest drives an import run: parse every input file, classify its
// records and merge the results into one deduplicated store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tally-dev/tally/internal/classify"
	"github.com/tally-dev/tally/internal/importer"
	"github.com/tally-dev/tally/internal/ledger"
	"github.com/tally-dev/tally/internal/model"
)

// Stage names where a row was rejected.
type Stage string

const (
	StageParse    Stage = "parse"
	StageClassify Stage = "classify"
)

// RowError is an input row that was left out of the store.
type RowError struct {
	Stage  Stage
	Source string
	Row    int
	Err    error
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// FileReport counts what happened to one input file.
type FileReport struct {
	Name         string
	Records      int
	Transactions int
	Rejected     int
	// Err is set when the file was skipped because its header could not be
	// read.
	Err error
}

// Report is the outcome of a run.
type Report struct {
	Store *ledger.Transactions
	// Rejected rows grouped by file, in file order.
	Rejected []RowError
	Files    []FileReport
}

// Pipeline parses and classifies files concurrently.
type Pipeline struct {
	Parser     importer.Parser
	Classifier *classify.Classifier
	// Workers bounds the number of files processed at once; values below 1
	// mean one.
	Workers int
	// Strict makes Run fail on the first record no rule can classify and on
	// the first file whose header cannot be read. Otherwise such a file is
	// reported in Rejected with row 0 and the run continues.
	Strict bool
	Logger zerolog.Logger
}

// New returns a pipeline with a silent logger.
func New(parser importer.Parser, classifier *classify.Classifier, workers int) *Pipeline {
	return &Pipeline{
		Parser:     parser,
		Classifier: classifier,
		Workers:    workers,
		Logger:     zerolog.Nop(),
	}
}

type fileResult struct {
	txns     []model.Transaction
	rejected []RowError
	report   FileReport
}

// Run imports files and returns the merged store. Results are merged in file
// order, so the store does not depend on Workers or scheduling.
func (p *Pipeline) Run(ctx context.Context, files []importer.FileInfo) (*Report, error) {
	results := make([]fileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.Workers, 1))
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := p.processFile(gctx, f)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Files: make([]FileReport, 0, len(files))}
	var all []model.Transaction
	for _, res := range results {
		all = append(all, res.txns...)
		report.Rejected = append(report.Rejected, res.rejected...)
		report.Files = append(report.Files, res.report)
	}
	report.Store = ledger.New(all)

	p.Logger.Info().
		Int("files", len(files)).
		Int("transactions", report.Store.Len()).
		Int("duplicates", report.Store.Removed()).
		Int("rejected", len(report.Rejected)).
		Msg("import finished")
	return report, nil
}

func (p *Pipeline) processFile(ctx context.Context, f importer.FileInfo) (fileResult, error) {
	log := p.Logger.With().Str("file", f.Name).Logger()

	fh, err := os.Open(f.Path)
	if err != nil {
		return fileResult{}, fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer fh.Close()

	batch, err := p.Parser.Parse(fh)
	if err != nil {
		err = fmt.Errorf("parsing %s: %w", f.Name, err)
		if p.Strict {
			return fileResult{}, err
		}
		log.Warn().Err(err).Msg("skipped file")
		return fileResult{
			rejected: []RowError{{Stage: StageParse, Source: f.Name, Err: err}},
			report:   FileReport{Name: f.Name, Rejected: 1, Err: err},
		}, nil
	}
	batch.SetSource(f.Name)

	res := fileResult{report: FileReport{Name: f.Name, Records: len(batch.Records)}}
	for _, perr := range batch.Rejected {
		log.Warn().Int("row", perr.Row).Err(perr.Err).Str("field", perr.Field).Msg("rejected row")
		res.rejected = append(res.rejected, RowError{Stage: StageParse, Source: f.Name, Row: perr.Row, Err: perr})
	}

	res.txns = make([]model.Transaction, 0, len(batch.Records))
	for _, rec := range batch.Records {
		if err := ctx.Err(); err != nil {
			return fileResult{}, err
		}
		tx, err := p.Classifier.Classify(rec)
		if err != nil {
			var cerr *classify.ClassificationError
			if p.Strict || !errors.As(err, &cerr) {
				return fileResult{}, fmt.Errorf("classifying %s: %w", f.Name, err)
			}
			log.Warn().Int("row", rec.Row).Str("counterparty", rec.CounterParty).Msg("unclassified row")
			res.rejected = append(res.rejected, RowError{Stage: StageClassify, Source: f.Name, Row: rec.Row, Err: err})
			continue
		}
		res.txns = append(res.txns, tx)
	}
	res.report.Transactions = len(res.txns)
	res.report.Rejected = len(res.rejected)

	log.Debug().
		Int("records", res.report.Records).
		Int("transactions", res.report.Transactions).
		Int("rejected", res.report.Rejected).
		Msg("file processed")
	return res, nil
}
