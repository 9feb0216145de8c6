// Package cmd implements the CLI commands for castarr.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/castarr/internal/version"
)

// cfgFile holds the config file path from the --config flag.
var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "castarr",
	Short:   "Virtual broadcast channel server",
	Version: version.Short(),
	Long: `castarr turns a library of media into always-on broadcast channels.

Each channel has an ordered lineup anchored at a start time; whoever tunes
in gets whatever is airing right now, stitched into one continuous MPEG-TS
stream. Channels are exposed over HTTP for media players, with HDHomeRun
emulation and an XMLTV guide for DVR software like Plex, Jellyfin and Emby.`,
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default searches ., ./configs, /etc/castarr, $HOME/.castarr)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format override (text, json)")
}
