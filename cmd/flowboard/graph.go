package main

import (
	"fmt"
	"os"

	"github.com/aretw0/flowboard/internal/presentation/graph"
	"github.com/aretw0/flowboard/pkg/persistence"
	"github.com/aretw0/flowboard/pkg/validation"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <file>",
	Short: "Export the flow graph visualization",
	Long:  `Reads a flow file and outputs a Mermaid diagram (graph LR). Invalid nodes are highlighted.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		codec := persistence.NewCodec()
		doc, err := readFlowFile(codec, args[0])
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error reading flow: %v\n", err)
			os.Exit(1)
		}
		snap, err := codec.Deserialize(doc)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error decoding flow: %v\n", err)
			os.Exit(1)
		}

		overlay := &graph.Overlay{}
		for _, r := range validation.NewEngine(nil).ValidateNodes(snap.Nodes) {
			overlay.InvalidNodes = append(overlay.InvalidNodes, r.NodeID)
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(snap, overlay))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
