package main

import (
	"fmt"
	"os"

	"github.com/aretw0/flowboard/internal/presentation/tui"
	"github.com/aretw0/flowboard/pkg/persistence"
	"github.com/aretw0/flowboard/pkg/validation"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a flow file",
	Long: `Decodes a flow file (a bare document or an AgentFlow envelope) and checks
every node: field limits, button values and field formats. Exits with status 1
when the flow would be rejected on save.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ok, err := runValidate(cmd, args[0])
		if err != nil {
			tui.Status(cmd.ErrOrStderr(), false, fmt.Sprintf("Validation failed: %v", err))
			os.Exit(1)
		}
		if !ok {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, path string) (bool, error) {
	codec := persistence.NewCodec()
	doc, err := readFlowFile(codec, path)
	if err != nil {
		return false, err
	}
	snap, err := codec.Deserialize(doc)
	if err != nil {
		return false, err
	}

	results := validation.NewEngine(nil).ValidateNodes(snap.Nodes)
	out := cmd.OutOrStdout()
	fmt.Fprint(out, tui.Render(out, tui.ValidationReport(results, snap.Nodes)))
	if len(results) > 0 {
		tui.Status(out, false, fmt.Sprintf("%d problem(s) found ❌", len(results)))
		return false, nil
	}
	tui.Status(out, true, "Flow is valid! ✅")
	return true, nil
}
