// Copyright (c) 2025 The odoo-mcp Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"odoomcp/cli/internal/errors"
	"odoomcp/cli/internal/logging"
	"odoomcp/cli/internal/mcpserver"
	"odoomcp/cli/internal/odoo"
	"odoomcp/cli/internal/tools"
)

var jsonLogs bool

// serveCmd runs the MCP server. stdout belongs to the protocol, so nothing
// but MCP frames may be written there; diagnostics go to the logger.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server over stdio",
	Long: `The serve command starts an MCP server on stdin/stdout for use by an MCP client.

It logs in to Odoo once at startup. If Odoo cannot be reached or rejects the
credentials, the server still starts and logs a warning; tools will log in on
first use, and the odoo_reconnect tool retries explicitly. Missing or invalid
configuration is fatal.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		log, closer, err := logging.Open(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, JSON: jsonLogs})
		if err != nil {
			return errors.Wrap(errors.Configuration, "cannot set up logging", err)
		}
		defer closer.Close()

		opts := cfg.ClientOptions()
		opts.UserAgent = "odoo-mcp/" + Version
		opts.Logger = log
		client, err := odoo.New(opts)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		start := time.Now()
		if s, err := client.Connect(ctx); err != nil {
			if errors.Is(err, errors.Configuration) {
				return err
			}
			log.Warn("initial login failed, tools will retry on first use",
				log.Args("url", logging.Mask(cfg.URL), "database", cfg.Database,
					"kind", string(errors.KindOf(err)), "error", logging.Mask(err.Error())))
		} else {
			log.Info("connected to Odoo", log.Args(
				"url", logging.Mask(cfg.URL),
				"database", s.Database,
				"user", s.UserName,
				"uid", s.UserID,
				"auth_mode", string(s.Mode),
				"duration", time.Since(start).String(),
			))
		}

		dispatcher := tools.New(client, tools.Options{MaxSearchLimit: cfg.MaxSearchLimit, Logger: log})
		err = mcpserver.New(dispatcher, Version, log).Run(ctx)

		st := client.Stats()
		log.Debug("client statistics", log.Args("calls", st.Calls, "logins", st.Logins))
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&jsonLogs, "json-logs", false, "Write logs as JSON lines")
}
