// Command gameshelf runs the game-library client service.
//
//	gameshelf                 serve (default)
//	gameshelf migrate         apply the embedded backend's migrations
//	gameshelf seed-games -f   load a JSON game catalog into the embedded backend
//
// Configuration comes from the environment; see internal/config.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gameshelf",
		Short:         "Track your game library",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(
		&cobra.Command{Use: "serve", Short: "Run the HTTP server", RunE: runServe},
		newMigrateCmd(),
		newSeedGamesCmd(),
	)
	return root
}
