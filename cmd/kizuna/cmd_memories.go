package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Kizuna/internal/kizuna/app"
	"github.com/bdobrica/Kizuna/internal/kizuna/memory"
)

func newMemoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memories",
		Short: "Add, list and import stored memories",
	}
	cmd.AddCommand(newMemoriesAddCmd(), newMemoriesListCmd(), newMemoriesImportCmd())
	return cmd
}

func newMemoriesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <content>",
		Short: "Store a memory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			couple, _ := cmd.Flags().GetString("couple")
			author, _ := cmd.Flags().GetString("author")
			visibility, _ := cmd.Flags().GetString("visibility")
			category, _ := cmd.Flags().GetString("category")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			m, err := a.Remember(cmd.Context(), memory.Draft{
				CoupleID:   couple,
				AuthorID:   author,
				Visibility: memory.Visibility(visibility),
				Category:   memory.Category(category),
				Content:    messageArg(args),
			})
			if err != nil {
				return fmt.Errorf("memories add: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Remembered (id=%s, category=%s, visibility=%s): %s\n", m.ID, m.Category, m.Visibility, m.Content)
			return nil
		},
	}
	cmd.Flags().String("couple", "", "couple id (required)")
	cmd.Flags().String("author", "", "id of the user the memory came from")
	cmd.Flags().String("visibility", string(memory.VisibilityShared), "shared or private")
	cmd.Flags().String("category", string(memory.CategoryFact), "fact, relationship or context")
	_ = cmd.MarkFlagRequired("couple")
	return cmd
}

func newMemoriesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a couple's memories, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			couple, _ := cmd.Flags().GetString("couple")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.Memories(cmd.Context(), couple)
			if err != nil {
				return fmt.Errorf("memories list: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No memories found.")
				return nil
			}
			for _, m := range list {
				author := m.AuthorID
				if author == "" {
					author = "-"
				}
				fmt.Fprintf(out, "%s  %-12s %-7s %-8s %s\n", m.ID, m.Category, m.Visibility, author, m.Content)
			}
			return nil
		},
	}
	cmd.Flags().String("couple", "", "couple id (required)")
	_ = cmd.MarkFlagRequired("couple")
	return cmd
}

func newMemoriesImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import memories from a YAML seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			couple, _ := cmd.Flags().GetString("couple")

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("memories import: %w", err)
			}
			defer f.Close()

			drafts, err := app.ReadSeed(f, couple)
			if err != nil {
				return fmt.Errorf("memories import: %w", err)
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Import(cmd.Context(), drafts)
			if err != nil {
				return fmt.Errorf("memories import: imported %d before failing: %w", n, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d memories.\n", n)
			return nil
		},
	}
	cmd.Flags().String("couple", "", "couple id for entries that omit couple_id")
	return cmd
}
