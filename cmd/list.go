package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vesselhq/vessel/internal/engine"
	"github.com/vesselhq/vessel/internal/lifecycle"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List managed containers",
	Long:    `List every container carrying the managed label, across all sessions.`,
	RunE:    runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	eng, err := engine.NewDocker()
	if err != nil {
		return err
	}

	summaries, err := eng.ListContainers(cmd.Context(), "", map[string]string{
		lifecycle.LabelManaged: "true",
	}, 0)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "CONTAINER ID\tIMAGE\tSTATUS\tSESSION")
	for _, s := range summaries {
		session := s.Labels[lifecycle.LabelSessionID]
		if session == "" {
			// Reusable containers carry no session; they outlive it.
			session = "(reusable)"
		}
		fmt.Fprintf(w, "%.12s\t%s\t%s\t%s\n", s.ID, s.Image, s.Status, session)
	}
	return w.Flush()
}
