package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/flowboard/internal/presentation/tui"
	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/persistence"
	"github.com/aretw0/flowboard/pkg/session"
	"github.com/aretw0/flowboard/pkg/validation"
	"github.com/spf13/cobra"
)

var flowsCmd = &cobra.Command{
	Use:   "flows",
	Short: "Manage stored flows",
	Long:  `List, inspect, import and remove the flows held by the configured storage.`,
}

var flowsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List agents with a stored flow",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessions(cmd, func(sessions *session.Manager) error {
			agents, err := sessions.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("error listing flows: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(agents) == 0 {
				fmt.Fprintln(out, "No stored flows found.")
				return nil
			}
			fmt.Fprintln(out, "Stored flows:")
			for _, a := range agents {
				fmt.Fprintln(out, "- "+a)
			}
			return nil
		})
	},
}

var flowsShowCmd = &cobra.Command{
	Use:   "show <agent-id>",
	Short: "Print an agent's flow as an AgentFlow envelope",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessions(cmd, func(sessions *session.Manager) error {
			doc, err := sessions.Load(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("error loading flow '%s': %w", args[0], err)
			}
			data, err := json.MarshalIndent(domain.AgentFlow{AgentID: args[0], FlowData: doc}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		})
	},
}

var flowsImportCmd = &cobra.Command{
	Use:   "import <agent-id> <file>",
	Short: "Validate a flow file and store it for an agent",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		agentID, path := args[0], args[1]
		codec := persistence.NewCodec()
		doc, err := readFlowFile(codec, path)
		if err != nil {
			return err
		}
		snap, err := codec.Deserialize(doc)
		if err != nil {
			return err
		}
		if results := validation.NewEngine(nil).ValidateNodes(snap.Nodes); len(results) > 0 {
			out := cmd.OutOrStdout()
			fmt.Fprint(out, tui.Render(out, tui.ValidationReport(results, snap.Nodes)))
			return validation.AsError(results)
		}
		normalized, err := codec.Serialize(snap)
		if err != nil {
			return err
		}

		return withSessions(cmd, func(sessions *session.Manager) error {
			if err := sessions.Save(cmd.Context(), agentID, normalized); err != nil {
				return fmt.Errorf("error saving flow '%s': %w", agentID, err)
			}
			tui.Status(cmd.OutOrStdout(), true, fmt.Sprintf("Imported %d nodes and %d edges for '%s'", len(normalized.Nodes), len(normalized.Edges), agentID))
			return nil
		})
	},
}

var flowsRmCmd = &cobra.Command{
	Use:   "rm <agent-id>...",
	Short: "Remove one or more flows",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessions(cmd, func(sessions *session.Manager) error {
			var errs []error
			for _, agentID := range args {
				if err := sessions.Delete(cmd.Context(), agentID); err != nil {
					errs = append(errs, fmt.Errorf("error removing '%s': %w", agentID, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed flow '%s'\n", agentID)
			}
			return errors.Join(errs...)
		})
	},
}

func init() {
	rootCmd.AddCommand(flowsCmd)
	flowsCmd.AddCommand(flowsLsCmd)
	flowsCmd.AddCommand(flowsShowCmd)
	flowsCmd.AddCommand(flowsImportCmd)
	flowsCmd.AddCommand(flowsRmCmd)
}

func withSessions(cmd *cobra.Command, fn func(*session.Manager) error) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sessions, backend, err := openSessions(cmd.Context(), cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing storage: %v\n", err)
		}
	}()
	return fn(sessions)
}
