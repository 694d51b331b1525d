// Copyright (c) 2025 The odoo-mcp Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"odoomcp/cli/internal/auth"
)

// logoutCmd removes the secret stored by login. Credentials passed through
// the environment are not affected.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials from the OS keychain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := auth.DefaultStore()
		if err != nil {
			pterm.Error.Println("Secure storage is not available on this system.")
			return err
		}
		st, err := auth.NewService(store, nil).Logout()
		if err != nil {
			return err
		}
		if st.URL == "" {
			pterm.Info.Println("No stored credentials found.")
			return nil
		}
		who := st.Username
		if st.Mode == auth.ModeAPIKey {
			who = "API key"
		}
		pterm.Success.Printfln("Removed stored credentials (%s) for %s, database %s.", who, st.URL, st.Database)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
