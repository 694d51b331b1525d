// Copyright (c) 2025 The odoo-mcp Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface of odoo-mcp. The serve
// command runs the MCP server over stdio; the other commands help set up
// and check the connection to Odoo from a terminal.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"odoomcp/cli/internal/auth"
	"odoomcp/cli/internal/config"
	"odoomcp/cli/internal/logging"
)

var (
	showVersion bool
	verbose     bool
	configFile  string
	dotEnvFile  string
	flags       config.Flags
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "odoo-mcp",
	Short: "MCP server exposing Odoo models as agent tools",
	Long: `odoo-mcp lets an MCP client (an AI agent) search, read and change Odoo records
through a small set of generic tools. Every call runs as the configured Odoo user,
so Odoo's own access rules decide what the agent can see and do.

Run 'odoo-mcp serve' from your MCP client configuration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			os.Setenv("ODOO_MCP_VERBOSE", "1")
			if flags.LogLevel == "" {
				flags.LogLevel = "debug"
			}
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("odoo-mcp %s\n", Version)
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the CLI application. SIGINT and SIGTERM cancel the command
// context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, logging.Mask(err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (default $XDG_CONFIG_HOME/odoo-mcp/config.yaml)")
	pf.StringVar(&dotEnvFile, "env-file", ".env", "Environment file loaded without overriding the environment")
	pf.StringVar(&flags.URL, "url", "", "Odoo server URL (overrides ODOO_URL)")
	pf.StringVar(&flags.Database, "db", "", "Odoo database (overrides ODOO_DB)")
	pf.StringVar(&flags.Lang, "lang", "", "Language of Odoo responses (overrides PREFERRED_LANG)")
	pf.StringVar(&flags.LogLevel, "log-level", "", "trace, debug, info, warn, error or off")
	pf.StringVar(&flags.LogFile, "log-file", "", "Log to this file instead of stderr; 'auto' uses the state directory")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose debug output")
}

// loadConfig resolves the configuration for the current invocation. The
// keychain is consulted for credentials when it is available.
func loadConfig() (config.Config, error) {
	opts := config.Options{
		File:   configFile,
		DotEnv: dotEnvFile,
		Flags:  flags,
	}
	if store, err := auth.DefaultStore(); err == nil {
		opts.Secrets = auth.NewService(store, nil)
	}
	return config.Load(opts)
}
