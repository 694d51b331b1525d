// Copyright (c) 2025 The odoo-mcp Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"odoomcp/cli/internal/config"
)

var saveConfig bool

// configCmd shows the effective configuration with secrets masked, and where
// each value came from.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `The config command prints the configuration serve would use, with the password
and API key masked, and the source of every value (flag, env, file, keychain or
default). Problems are listed below the table.

With --save, the non-secret settings are written to the config file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, loadErr := loadConfig()
		m := cfg.Masked()

		row := func(name, value string) []string {
			if value == "" {
				value = pterm.Gray("(not set)")
			}
			return []string{name, value, string(cfg.Source(name))}
		}
		data := pterm.TableData{
			{"Setting", "Value", "Source"},
			row("url", m.URL),
			row("database", m.Database),
			row("username", m.Username),
			row("password", m.Password),
			row("api_key", m.APIKey),
			row("lang", m.Lang),
			row("log_level", m.LogLevel),
			row("log_file", m.LogFile),
			row("timeout", m.Timeout.String()),
			row("max_search_limit", fmt.Sprint(m.MaxSearchLimit)),
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return err
		}

		file := cfg.File
		if file == "" {
			file, _ = config.Path()
			file += pterm.Gray(" (absent)")
		}
		pterm.Println()
		pterm.Printfln("Config file: %s", file)
		pterm.Printfln("Endpoints:   %s, %s, %s, %s, %s", cfg.Endpoints.Authenticate, cfg.Endpoints.Capabilities,
			cfg.Endpoints.Search, cfg.Endpoints.Execute, cfg.Endpoints.Schema)

		if loadErr != nil {
			return presentFailure("Configuration", cfg.URL, loadErr)
		}
		if err := cfg.Validate(); err != nil {
			pterm.Println()
			return presentFailure("Configuration", cfg.URL, err)
		}

		if saveConfig {
			path := configFile
			if path == "" {
				var err error
				if path, err = config.Path(); err != nil {
					return err
				}
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			pterm.Success.Printfln("Saved to %s", path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().BoolVar(&saveConfig, "save", false, "Write the non-secret settings to the config file")
}
