package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/refbump/pkg/history"
)

// historyCommand creates the command listing recorded runs.
func (c *CLI) historyCommand() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded update and migrate runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			store, err := newHistory(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			reports, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(reports)
			}
			if len(reports) == 0 {
				printInfo("No runs recorded")
				return nil
			}
			for _, r := range reports {
				printReport(r)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultLimit, "number of runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print runs as JSON")
	return cmd
}

func printReport(r *history.Report) {
	updated, failed, actions := r.Counts()
	when := r.StartedAt.Local().Format("2006-01-02 15:04")
	fmt.Fprintln(stdout, StyleTitle.Render(when), StyleValue.Render(string(r.Mode)), StyleDim.Render(r.Repository))
	printDetail("%d projects, %d updated, %d failed, %d actions", len(r.Projects), updated, failed, actions)
	if r.PullID != "" {
		printDetail("pull request #%s on %s", r.PullID, r.Branch)
	}
}
