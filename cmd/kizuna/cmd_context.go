package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Kizuna/internal/kizuna/memory"
)

func newContextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context <message>",
		Short: "Print the memory context block for a message",
		Long: "Run the retrieval pipeline for a message and print the prompt block.\n" +
			"Nothing is printed when the message does not warrant retrieval or no\n" +
			"relevant memory is stored. --explain prints the decision instead.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := messageArg(args)
			out := cmd.OutOrStdout()

			if explain, _ := cmd.Flags().GetBool("explain"); explain {
				retrieve, reason := memory.ExplainRetrieval(message)
				fmt.Fprintf(out, "retrieve: %t (%s)\n", retrieve, reason)
				fmt.Fprintf(out, "limit: %d\n", memory.CalculateMemoryLimit(message))
				return nil
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			block, err := a.MemoryContext(cmd.Context(), sessionFromFlags(cmd), message)
			if err != nil {
				return fmt.Errorf("context: %w", err)
			}
			if block != "" {
				fmt.Fprintln(out, block)
			}
			return nil
		},
	}
	sessionFlags(cmd)
	cmd.Flags().Bool("explain", false, "print the retrieval decision and limit without searching")
	return cmd
}
