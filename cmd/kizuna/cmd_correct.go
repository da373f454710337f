package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Kizuna/internal/kizuna/memory"
)

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <message>",
		Short: "Classify a message as a correction",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signal := memory.DetectCorrection(messageArg(args))
			fmt.Fprintf(cmd.OutOrStdout(), "correction: %t\nstrength: %s\n", signal.IsCorrection, signal.Strength)
			return nil
		},
	}
}

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <message>",
		Short: "Find the stored memory a correction refers to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			couple, _ := cmd.Flags().GetString("couple")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			in, err := a.InspectCorrection(cmd.Context(), couple, messageArg(args))
			if err != nil {
				return fmt.Errorf("resolve: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "correction: %t\nstrength: %s\n", in.Signal.IsCorrection, in.Signal.Strength)
			if in.Target == nil {
				fmt.Fprintln(out, "target: none")
				return nil
			}
			fmt.Fprintf(out, "target: %s [%s/%s] %s\n", in.Target.ID, in.Target.Category, in.Target.Visibility, in.Target.Content)
			return nil
		},
	}
	cmd.Flags().String("couple", "", "couple id (required)")
	_ = cmd.MarkFlagRequired("couple")
	return cmd
}

func newCorrectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "correct <memory-id>",
		Short: "Rewrite or delete a stored memory",
		Long:  "Apply a decided correction: --content rewrites the memory, --delete removes it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			del, _ := cmd.Flags().GetBool("delete")
			content, _ := cmd.Flags().GetString("content")
			hasContent := cmd.Flags().Changed("content")

			var newContent *string
			switch {
			case del && hasContent:
				return errors.New("correct: --delete and --content are mutually exclusive")
			case del:
			case hasContent:
				newContent = &content
			default:
				return errors.New("correct: one of --delete or --content is required")
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.ApplyCorrection(cmd.Context(), args[0], newContent)
			if err != nil {
				return fmt.Errorf("correct: %w", err)
			}
			if !res.Success {
				fmt.Fprintf(cmd.OutOrStdout(), "memory %s not found\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "memory %s %s\n", args[0], res.Action)
			return nil
		},
	}
	cmd.Flags().Bool("delete", false, "delete the memory")
	cmd.Flags().String("content", "", "replacement content")
	return cmd
}
