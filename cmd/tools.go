package cmd

import (
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"odoomcp/cli/internal/tools"
)

var toolsDescribe bool

// toolsCmd prints the catalogue offered to MCP clients. It needs no
// connection to Odoo.
var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools offered to MCP clients",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d := tools.New(nil, tools.Options{})

		data := pterm.TableData{{"Tool", "Changes data", "Required arguments"}}
		for _, t := range d.Tools() {
			mutates := "no"
			if t.Mutates {
				mutates = pterm.Yellow("yes, asks for confirmation")
			}
			data = append(data, []string{t.Name, mutates, strings.Join(t.Required, ", ")})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return err
		}

		if toolsDescribe {
			for _, t := range d.Tools() {
				pterm.DefaultSection.Println(t.Name)
				pterm.Println(t.Description())
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.Flags().BoolVar(&toolsDescribe, "describe", false, "Also print the full description of every tool")
}
