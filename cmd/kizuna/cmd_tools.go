package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Print the agent tool definitions, or call one with --call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			name, _ := cmd.Flags().GetString("call")
			if name == "" {
				data, err := json.MarshalIndent(a.Tools().Definitions(), "", "  ")
				if err != nil {
					return fmt.Errorf("tools: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			raw, _ := cmd.Flags().GetString("args")
			result, err := a.Tools().Call(cmd.Context(), sessionFromFlags(cmd), name, json.RawMessage(raw))
			if err != nil {
				return err
			}
			fmt.Fprintln(out, result)
			return nil
		},
	}
	cmd.Flags().String("call", "", "tool to execute")
	cmd.Flags().String("args", "{}", "JSON arguments for --call")
	cmd.Flags().String("couple", "", "couple id for --call")
	cmd.Flags().String("user", "", "user id for --call")
	cmd.Flags().Bool("private", false, "private thread for --call")
	cmd.Flags().String("user-name", "", "display name of the user")
	cmd.Flags().String("partner-name", "", "display name of the user's partner")
	return cmd
}
