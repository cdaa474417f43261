package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/flowboard"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of flowboard",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "flowboard version %s\n", strings.TrimSpace(flowboard.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
