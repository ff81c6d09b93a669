package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the planning graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the planning flow, optionally highlighting the path a session has taken.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close(cmd.Context())

		sessionID, _ := cmd.Flags().GetString("session")
		fmt.Fprint(cmd.OutOrStdout(), app.Mermaid(cmd.Context(), sessionID))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("session", "", "Highlight the nodes visited by this session")
}
