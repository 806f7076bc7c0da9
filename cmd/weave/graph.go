package main

import (
	"fmt"

	"github.com/aretw0/weave/internal/presentation/graph"
	"github.com/aretw0/weave/internal/workflowfile"
	"github.com/aretw0/weave/pkg/connectivity"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <workflow>",
	Short: "Export the workflow graph visualization",
	Long:  `Reads a workflow file and outputs a Mermaid diagram (graph LR). Nodes on a cycle are highlighted.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := workflowfile.Read(args[0])
		if err != nil {
			return err
		}

		overlay := &graph.Overlay{}
		overlay.Selected, _ = cmd.Flags().GetString("select")
		for _, cycle := range connectivity.Cycles(g) {
			overlay.Invalid = append(overlay.Invalid, cycle...)
		}
		if overlay.Selected == "" && len(overlay.Invalid) == 0 {
			overlay = nil
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("select", "", "Node ID to highlight")
}
