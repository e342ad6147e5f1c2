package main

import (
	"fmt"
	"os"

	"github.com/cadenlabs/brandgov/internal/cli"
	"github.com/cadenlabs/brandgov/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "brandgov",
		Short: "Brandgov CLI - Governed brand content generation",
		Long: `Brandgov CLI generates brand-governed content and manages its approval lifecycle.

Environment variables:
  BRANDGOV_API_KEY   API key for authentication (required)
  BRANDGOV_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AuthCmd())
	rootCmd.AddCommand(client.BrandCmd())
	rootCmd.AddCommand(client.GenerateCmd())
	rootCmd.AddCommand(client.ContentGetCmd())
	rootCmd.AddCommand(client.ContentListCmd())
	rootCmd.AddCommand(client.InboxCmd())
	rootCmd.AddCommand(client.ApproveCmd())
	rootCmd.AddCommand(client.RejectCmd())
	rootCmd.AddCommand(client.AuditCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
