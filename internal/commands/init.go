package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tally-dev/tally/internal/config"
	"github.com/tally-dev/tally/internal/model"
	"github.com/tally-dev/tally/internal/owner"
)

func newInitCommand() *cobra.Command {
	var name string
	var iban string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new tally project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.OutOrStdout(), absDir, name, iban)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "owner name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&iban, "iban", "", "IBAN of your own current account")

	return cmd
}

func runInit(out io.Writer, dir, name, iban string) error {
	cfg := config.Default()
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	profile := &owner.Owner{Name: name, Nodes: []model.Node{}}
	if iban != "" {
		parsed, err := model.ParseIBAN(iban)
		if err != nil {
			return err
		}
		profile.Nodes = append(profile.Nodes, model.ProperAccount(model.Account{
			IBAN: parsed,
			Name: cfg.Classifier.OwnAccountName,
		}))
	}

	// Create directory structure.
	for _, d := range []string{cfg.Input, "logs"} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := owner.Save(filepath.Join(dir, cfg.Profile), profile); err != nil {
		return err
	}

	gitignore := cfg.Database + "\nlogs/\n" + cfg.Input + "/*.csv\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, cfg.Input, ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	fmt.Fprintf(out, "Initialized tally project at %s\n", dir)
	return nil
}
