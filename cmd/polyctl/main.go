// Command polyctl is a command line client for polystore backends.
//
// Backends are named profiles in a YAML configuration file, and every
// path argument takes the form PROFILE:PATH:
//
//	polyctl ls media:photos/
//	polyctl put report.pdf archive:2024/report.pdf
//	polyctl cat archive:2024/report.pdf > report.pdf
//
// The configuration file lives at ~/.config/polyctl/config.yaml unless
// overridden by --config or the POLYCTL_CONFIG environment variable:
//
//	profiles:
//	  media:
//	    scheme: fs
//	    options:
//	      root: /srv/media
//	  archive:
//	    scheme: s3
//	    options:
//	      bucket: archive
//	      endpoint: http://localhost:9000
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	_ "github.com/polystore/polystore/services/all"
)

var version = "dev"

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "polyctl:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:     "polyctl",
		Short:   "command line client for polystore backends",
		Version: version,

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath(), "profile configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log every storage operation")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		a.logger = newLogger(a.verbose)
		return a.loadProfiles()
	}
	root.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		a.shutdown()
	}

	root.AddCommand(
		newLsCmd(a),
		newCatCmd(a),
		newStatCmd(a),
		newPutCmd(a),
		newCpCmd(a),
		newMvCmd(a),
		newRmCmd(a),
		newMkdirCmd(a),
		newCheckCmd(a),
	)
	return root
}

func defaultConfigPath() string {
	if p := os.Getenv("POLYCTL_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "polyctl.yaml"
	}
	return filepath.Join(home, ".config", "polyctl", "config.yaml")
}

// newLogger writes human-readable events to stderr, keeping stdout for
// command output. The default level only surfaces failures.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
