package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vesselhq/vessel/internal/engine"
	"github.com/vesselhq/vessel/internal/reaper"
)

var pruneSession string

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove managed containers",
	Long: `Remove managed containers. By default every managed container is removed,
including reusable ones left behind by previous sessions. With --session only
the containers of that session are removed.`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)
	pruneCmd.Flags().StringVar(&pruneSession, "session", "", "only remove containers of this session ID")
}

func runPrune(cmd *cobra.Command, args []string) error {
	eng, err := engine.NewDocker()
	if err != nil {
		return err
	}
	r := reaper.New(eng)

	var removed int
	if pruneSession != "" {
		removed, err = r.PruneSession(cmd.Context(), pruneSession)
	} else {
		removed, err = r.PruneAll(cmd.Context())
	}
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d container(s)\n", removed)
	return nil
}
