package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Kizuna/common/version"
	"github.com/bdobrica/Kizuna/internal/kizuna/app"
	"github.com/bdobrica/Kizuna/internal/kizuna/config"
	"github.com/bdobrica/Kizuna/internal/kizuna/memory"
	"github.com/bdobrica/Kizuna/internal/kizuna/observability"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "kizuna",
		Short:         "Kizuna memory engine for couples",
		Long:          "kizuna retrieves, formats and corrects the long-term memories a couples\nassistant keeps about the two people it talks to.",
		Version:       version.Info(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.PersistentFlags().String("config", "", "path to a YAML config file")

	cmd.AddCommand(
		newContextCmd(),
		newDetectCmd(),
		newResolveCmd(),
		newCorrectCmd(),
		newMemoriesCmd(),
		newToolsCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return cmd
}

// openApp loads the configuration named by --config, installs the logger and
// assembles the engine.
func openApp(cmd *cobra.Command) (*app.App, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger := observability.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return app.New(ctx, cfg, logger)
}

// sessionFlags registers the flags that identify who is talking.
func sessionFlags(cmd *cobra.Command) {
	cmd.Flags().String("couple", "", "couple id (required)")
	cmd.Flags().String("user", "", "id of the user sending the message")
	cmd.Flags().Bool("private", false, "the message comes from the user's private thread")
	cmd.Flags().String("user-name", "", "display name of the user")
	cmd.Flags().String("partner-name", "", "display name of the user's partner")
	_ = cmd.MarkFlagRequired("couple")
}

func sessionFromFlags(cmd *cobra.Command) memory.SessionContext {
	couple, _ := cmd.Flags().GetString("couple")
	user, _ := cmd.Flags().GetString("user")
	private, _ := cmd.Flags().GetBool("private")
	userName, _ := cmd.Flags().GetString("user-name")
	partnerName, _ := cmd.Flags().GetString("partner-name")

	s := memory.SessionContext{
		CoupleID:    couple,
		UserID:      user,
		Visibility:  memory.VisibilityShared,
		UserName:    userName,
		PartnerName: partnerName,
	}
	if private {
		s.Visibility = memory.VisibilityPrivate
	}
	return s
}

func messageArg(args []string) string {
	return strings.Join(args, " ")
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
			return nil
		},
	}
}
