package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/tally-dev/tally/internal/export"
	"github.com/tally-dev/tally/internal/importer"
	"github.com/tally-dev/tally/internal/ingest"
	"github.com/tally-dev/tally/internal/logger"
	"github.com/tally-dev/tally/internal/runlog"
)

// processedDir receives archived input files, next to the files themselves.
const processedDir = "processed"

type importOptions struct {
	dryRun  bool
	csvPath string
	archive bool
}

func newImportCommand(root *rootOptions) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import [path]",
		Short: "Import bank CSV exports into the database",
		Long: "Parse and classify a CSV file, or every CSV file in a directory, and save the\n" +
			"deduplicated transactions. Without a path the configured input directory is used.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, p, err := loadProject(cmd, root)
			if err != nil {
				return err
			}
			var input string
			if len(args) > 0 {
				input = args[0]
			}
			return runImport(ctx, cmd.OutOrStdout(), p, input, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "parse and classify without writing to the database")
	cmd.Flags().StringVar(&opts.csvPath, "csv", "", "also write the transactions to this CSV file")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "move imported files to a processed/ directory")

	return cmd
}

func runImport(ctx context.Context, out io.Writer, p *project, input string, opts importOptions) error {
	log := logger.FromContext(ctx)

	report, files, err := p.ingest(ctx, input)
	if err != nil {
		return err
	}

	if opts.csvPath != "" {
		if err := writeCSVFile(opts.csvPath, report); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "Imported %d transactions from %d files (%d duplicates, %d rejected)\n",
		report.Store.Len(), len(files), report.Store.Removed(), len(report.Rejected))

	if opts.dryRun {
		for _, r := range report.Rejected {
			fmt.Fprintf(out, "  rejected %s\n", r.Err)
		}
		return nil
	}

	dbPath := p.resolve(p.cfg.Database)
	store, err := export.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	run, err := store.SaveRun(ctx, report.Store, names)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	log.Info().Str("run", run.ID.String()).Str("database", dbPath).Msg("run saved")

	if err := runlog.Append(p.root, rejectedEntries(run.ID.String(), run.StartedAt, report)); err != nil {
		log.Warn().Err(err).Msg("failed to write run log")
	}

	if opts.archive {
		if err := archive(files); err != nil {
			return err
		}
	}

	total, err := store.TransactionCount(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Run %s saved to %s (%d transactions stored)\n", run.ID, dbPath, total)
	return nil
}

func writeCSVFile(path string, report *ingest.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := export.WriteCSV(f, report.Store); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func rejectedEntries(runID string, at time.Time, report *ingest.Report) []runlog.Entry {
	entries := make([]runlog.Entry, 0, len(report.Rejected))
	for _, r := range report.Rejected {
		entries = append(entries, runlog.Entry{
			Timestamp: at,
			RunID:     runID,
			Source:    r.Source,
			Row:       r.Row,
			Stage:     string(r.Stage),
			Reason:    r.Err.Error(),
		})
	}
	return entries
}

func archive(files []importer.FileInfo) error {
	for _, f := range files {
		dir := filepath.Join(filepath.Dir(f.Path), processedDir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		if err := os.Rename(f.Path, filepath.Join(dir, f.Name)); err != nil {
			return fmt.Errorf("archiving %s: %w", f.Name, err)
		}
	}
	return nil
}
