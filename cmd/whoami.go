package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"odoomcp/cli/internal/odoo"
	"odoomcp/cli/internal/tools"
)

// whoamiCmd logs in with the effective configuration and shows who the
// agent would be acting as.
var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Aliases: []string{"me"},
	Short:   "Show the Odoo user the server acts as",
	Long: `The whoami command logs in to Odoo with the effective configuration and prints
the authenticated user, the database and a summary of the menus and models the
user can access. Use it to check the setup before configuring an MCP client.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return presentFailure("Configuration", "", err)
		}
		if err := cfg.Validate(); err != nil {
			return presentFailure("Configuration", cfg.URL, err)
		}

		client, err := odoo.New(cfg.ClientOptions())
		if err != nil {
			return presentFailure("Configuration", cfg.URL, err)
		}

		ctx := cmd.Context()
		stop := startSpinner("Connecting to " + cfg.URL)
		s, err := client.Connect(ctx)
		if err != nil {
			stop()
			return presentFailure("Login", cfg.URL, err)
		}
		endpoint := client.Endpoints().Capabilities
		raw, err := client.Call(ctx, endpoint, nil)
		stop()
		if err != nil {
			return presentFailure("Capabilities", cfg.URL, err)
		}
		caps, err := tools.ShapeCapabilities(endpoint, raw)
		if err != nil {
			return presentFailure("Capabilities", cfg.URL, err)
		}

		pterm.Printfln("👤 Current user: %s (%s)", s.UserName, s.Login)
		pterm.Println()
		_ = pterm.DefaultTable.WithData(pterm.TableData{
			{"Server", cfg.URL},
			{"Database", s.Database},
			{"User id", fmt.Sprint(s.UserID)},
			{"Auth mode", string(s.Mode)},
			{"Menus", fmt.Sprint(len(caps.Menus))},
			{"Models", fmt.Sprint(len(caps.Models))},
		}).Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
