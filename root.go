package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"rightsnet/app/config"

	"github.com/spf13/cobra"
)

const cliVersion = "1.0.0"

// cli holds what the persistent flags resolve to.
type cli struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "rightsnet",
		Short: "Backend for a human-rights social network",
		Long: `rightsnet serves the feed, chat, communities, country statistics and the
service directory over a JSON API with a websocket realtime channel.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", os.Getenv("RIGHTSNET_CONFIG"), "Path to a YAML config file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		c.serveCmd(),
		c.initCmd(),
		c.cleanCmd(),
		c.backupCmd(),
		c.restoreCmd(),
		c.seedCmd(),
		c.verifyListingCmd(),
		c.chatCmd(),
		versionCmd(),
	)
	return root
}

// setup loads the config and installs the default logger.
func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(c.configPath)
	if err != nil {
		return err
	}
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return err
	}
	if c.verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	} else {
		handler = slog.NewTextHandler(cmd.ErrOrStderr(), opts)
	}
	c.logger = slog.New(handler)
	slog.SetDefault(c.logger)
	c.cfg = cfg
	return nil
}

// confirm asks a yes/no question on the command's input. Anything but y
// or Y is a no.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		return false
	}
	answer := strings.TrimSpace(scanner.Text())
	return answer == "y" || answer == "Y"
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of rightsnet",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rightsnet version %s\n", cliVersion)
		},
	}
}
