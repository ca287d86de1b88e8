package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tally-dev/tally/internal/classify"
	"github.com/tally-dev/tally/internal/config"
	"github.com/tally-dev/tally/internal/importer"
	"github.com/tally-dev/tally/internal/ingest"
	"github.com/tally-dev/tally/internal/logger"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

// project is a loaded tally.yaml plus the directory it lives in. Relative
// paths in the config resolve against that directory.
type project struct {
	root string
	cfg  *config.Config
}

// loadProject reads the config and returns a context carrying the logger.
func loadProject(cmd *cobra.Command, opts *rootOptions) (context.Context, *project, error) {
	path, err := filepath.Abs(opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Log.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	log, err := logger.New(level, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}

	ctx := logger.WithContext(cmd.Context(), log)
	return ctx, &project{root: filepath.Dir(path), cfg: cfg}, nil
}

func (p *project) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.root, path)
}

func (p *project) classifier() *classify.Classifier {
	return classify.New(classify.Options{
		BankName:           p.cfg.Bank.Name,
		OwnAccountName:     p.cfg.Classifier.OwnAccountName,
		FallbackTerminalID: p.cfg.Classifier.FallbackTerminalID,
	})
}

// ingest runs the import pipeline over input, or over the configured input
// when input is empty.
func (p *project) ingest(ctx context.Context, input string) (*ingest.Report, []importer.FileInfo, error) {
	if input == "" {
		input = p.resolve(p.cfg.Input)
	}
	files, err := importer.Scan(input)
	if err != nil {
		return nil, nil, err
	}

	registry := importer.DefaultRegistry()
	parser := registry.Get(p.cfg.Bank.Format)
	if parser == nil {
		return nil, nil, fmt.Errorf("unknown bank format %q (known: %s)", p.cfg.Bank.Format, strings.Join(registry.Formats(), ", "))
	}

	pipeline := ingest.New(parser, p.classifier(), p.cfg.Import.Workers)
	pipeline.Strict = p.cfg.Import.Strict
	pipeline.Logger = logger.FromContext(ctx)

	report, err := pipeline.Run(ctx, files)
	if err != nil {
		return nil, nil, fmt.Errorf("importing: %w", err)
	}
	return report, files, nil
}
