package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tally-dev/tally/internal/id"
	"github.com/tally-dev/tally/internal/ledger"
	"github.com/tally-dev/tally/internal/logger"
	"github.com/tally-dev/tally/internal/model"
	"github.com/tally-dev/tally/internal/owner"
	"github.com/tally-dev/tally/internal/summary"
)

func newNodesCommand(root *rootOptions) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "nodes [path]",
		Short: "Show how often each node takes part in a transaction",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, p, err := loadProject(cmd, root)
			if err != nil {
				return err
			}
			var input string
			if len(args) > 0 {
				input = args[0]
			}
			return runNodes(ctx, cmd.OutOrStdout(), p, input, top)
		},
	}

	cmd.Flags().IntVar(&top, "top", 0, "show only the N most frequent nodes (0 for all)")

	return cmd
}

func runNodes(ctx context.Context, out io.Writer, p *project, input string, top int) error {
	report, _, err := p.ingest(ctx, input)
	if err != nil {
		return err
	}

	profile, err := owner.Load(p.resolve(p.cfg.Profile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.FromContext(ctx).Warn().Str("profile", p.cfg.Profile).Msg("no profile, owned nodes are not marked")
		profile = &owner.Owner{}
	case err != nil:
		return err
	}

	ranked := summary.Ranked(summary.NodeFrequencies(report.Store))
	if top > 0 && top < len(ranked) {
		ranked = ranked[:top]
	}
	nodes := nodeIndex(report.Store)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COUNT\tOWNED\tNODE")
	for _, f := range ranked {
		owned, label := "", nodes[f.Node].String()
		if profile.Owns(f.Node) {
			owned, label = "*", profile.Label(f.Node)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", f.Count, owned, label)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(profile.Nodes) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "IN\tOUT\tNET\tTXNS\t OWNED NODE")
	for _, t := range summary.Totals(report.Store, profile) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t %s\n",
			t.In.StringFixed(2), t.Out.StringFixed(2), t.Net().StringFixed(2), t.Count, t.Node)
	}
	return tw.Flush()
}

func nodeIndex(store *ledger.Transactions) map[id.ID[model.Node]]model.Node {
	nodes := make(map[id.ID[model.Node]]model.Node)
	for tx := range store.All() {
		nodes[tx.Source.ID()] = tx.Source
		nodes[tx.Sink.ID()] = tx.Sink
	}
	return nodes
}
