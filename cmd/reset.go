package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/millwright/millwright/internal/vecstore"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset <collection>",
	Short: "Drop a collection and all its vectors (destructive)",
	Long: `Drop a collection. This destroys all stored vectors in it and is the
only way to change a collection's dimensionality. Requires --yes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetYes {
			return fmt.Errorf("refusing to drop %q without --yes", args[0])
		}
		ctx := cmd.Context()

		a, err := newApp()
		if err != nil {
			return err
		}
		pool, err := a.openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		gw, err := vecstore.NewGateway(pool, a.logger.With("component", "vecstore"), a.cfg.StoreRetries)
		if err != nil {
			return err
		}
		if err := gw.Reset(ctx, args[0]); err != nil {
			return err
		}
		cmd.Printf("dropped collection %s\n", args[0])
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "confirm the destructive drop")
	rootCmd.AddCommand(resetCmd)
}
