// Copyright (c) 2025 The odoo-mcp Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"odoomcp/cli/internal/auth"
	"odoomcp/cli/internal/errors"
	"odoomcp/cli/internal/odoo"
	"odoomcp/cli/internal/terminal"
)

var useAPIKey bool

// loginCmd asks for credentials, checks them against Odoo and stores the
// secret in the OS keychain so that serve can start without one in the
// environment.
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Verify Odoo credentials and store them in the OS keychain",
	Long: `The login command prompts for the Odoo server, database and credentials, logs in
to verify them, and stores the password or API key in the OS keychain. Values
already configured through flags, the environment or the config file are offered
as defaults.

Use --api-key to authenticate with an Odoo API key instead of a password.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return presentFailure("Configuration", "", err)
		}

		p := terminal.NewPrompter()
		st := auth.State{}
		if st.URL, err = p.Ask("Odoo URL", cfg.URL); err != nil {
			return err
		}
		if st.Database, err = p.Ask("Database", cfg.Database); err != nil {
			return err
		}
		if err := odoo.ValidateTarget(st.URL, st.Database); err != nil {
			return presentFailure("Configuration", st.URL, err)
		}

		var creds auth.Credentials
		if useAPIKey {
			if creds.APIKey, err = p.Secret("API key"); err != nil {
				return err
			}
		} else {
			if creds.Username, err = p.Ask("Username", cfg.Username); err != nil {
				return err
			}
			if creds.Password, err = p.Secret("Password"); err != nil {
				return err
			}
		}

		store, err := auth.DefaultStore()
		if err != nil {
			pterm.Error.Println("Secure storage is not available on this system.")
			return err
		}
		svc := auth.NewService(store, verifier(cfg.ClientOptions()))

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()
		stop := startSpinner("Verifying credentials")
		user, err := svc.Login(ctx, st, creds)
		stop()
		if err != nil {
			return presentFailure("Login", st.URL, err)
		}

		pterm.Success.Printfln("Logged in as %s. Credentials saved to the OS keychain.", user)
		pterm.Println("   The MCP server can now be started with: odoo-mcp serve")
		return nil
	},
}

// verifier logs in with a throwaway client built from base and the typed
// target and credentials.
func verifier(base odoo.Options) auth.Verifier {
	return func(ctx context.Context, st auth.State, creds auth.Credentials) (string, error) {
		opts := base
		opts.URL = st.URL
		opts.Database = st.Database
		opts.Credentials = creds
		opts.UserAgent = "odoo-mcp/" + Version
		c, err := odoo.New(opts)
		if err != nil {
			return "", err
		}
		s, err := c.Connect(ctx)
		if err != nil {
			return "", err
		}
		if s.UserName == "" {
			return "", errors.New(errors.Authentication, "server did not report the user name")
		}
		return s.UserName, nil
	}
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().BoolVar(&useAPIKey, "api-key", false, "Authenticate with an API key instead of a password")
}
