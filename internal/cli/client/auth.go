package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// AuthCmd groups the login, logout, and status subcommands.
func AuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication credentials",
		Long:  "Login, logout, and check authentication status for the brandgov CLI",
	}

	cmd.AddCommand(AuthLoginCmd())
	cmd.AddCommand(AuthLogoutCmd())
	cmd.AddCommand(AuthStatusCmd())

	return cmd
}

// AuthLoginCmd creates the auth login command.
func AuthLoginCmd() *cobra.Command {
	var apiKey string
	var apiURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login with an API key",
		Long:  "Store the API key and server URL in the global config (~/.config/brandgov/config.json)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogin(apiKey, apiURL)
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (bg_...)")
	cmd.Flags().StringVar(&apiURL, "url", "http://localhost:8080", "API URL")

	return cmd
}

// AuthLogoutCmd creates the auth logout command.
func AuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Logout and clear credentials",
		Long:  "Remove stored credentials from the global config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogout()
		},
	}
}

// AuthStatusCmd creates the auth status command.
func AuthStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Long:  "Display which credential source is active and a masked view of the key",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAuthStatus(outputJSON)
		},
	}

	cmd.Flags().Bool("output", false, "Output as JSON")

	return cmd
}

func runAuthLogin(apiKey, apiURL string) error {
	if apiKey == "" {
		key, err := promptAPIKey()
		if err != nil {
			return err
		}
		apiKey = key
	}

	if !IsValidAPIKey(apiKey) {
		return fmt.Errorf("invalid API key format (expected: bg_ + 64 hex characters)")
	}

	err := SaveGlobalConfig(&GlobalConfig{
		APIKey: apiKey,
		APIURL: apiURL,
	})
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Println("Successfully logged in")
	return nil
}

func promptAPIKey() (string, error) {
	fmt.Print("Enter API key: ")
	input, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	return strings.TrimSpace(input), nil
}

func runAuthLogout() error {
	if err := DeleteGlobalConfig(); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}

	fmt.Println("Successfully logged out")
	return nil
}

// authStatus is the JSON shape of `auth status --output`.
type authStatus struct {
	Authenticated bool   `json:"authenticated"`
	Source        string `json:"source"`
	APIKey        string `json:"api_key,omitempty"`
	APIURL        string `json:"api_url,omitempty"`
}

func runAuthStatus(outputJSON bool) error {
	source, apiKey, apiURL := GetCredentialSource("", "")

	if outputJSON {
		status := authStatus{
			Authenticated: source != SourceNone,
			Source:        string(source),
		}
		if source != SourceNone {
			status.APIKey = maskAPIKey(apiKey)
			status.APIURL = apiURL
		}

		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if source == SourceNone {
		fmt.Println("Not authenticated")
		fmt.Println("Run 'brandgov auth login' to authenticate")
		return nil
	}

	fmt.Printf("Authenticated: yes\n")
	fmt.Printf("Source: %s\n", source)
	fmt.Printf("API Key: %s\n", maskAPIKey(apiKey))
	fmt.Printf("API URL: %s\n", apiURL)

	return nil
}

// maskAPIKey keeps the prefix and the last four characters so a user
// can tell keys apart without the full secret landing in a terminal
// scrollback.
func maskAPIKey(key string) string {
	if len(key) < 8 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}
