package client

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type brandPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type embeddingStatusPayload struct {
	EmbeddedChunks int  `json:"embedded_chunks"`
	PendingChunks  int  `json:"pending_chunks"`
	Ready          bool `json:"ready"`
}

type manualPayload struct {
	ID        string                  `json:"id"`
	BrandID   string                  `json:"brand_id"`
	Document  json.RawMessage         `json:"document"`
	CreatedAt string                  `json:"created_at"`
	Embedding *embeddingStatusPayload `json:"embedding,omitempty"`
}

// BrandCmd creates the brand parent command
func BrandCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brand",
		Short: "Manage brands and their manuals",
		Long:  "Create brands, generate or ingest brand manuals, and inspect the active manual",
	}

	cmd.AddCommand(BrandCreateCmd())
	cmd.AddCommand(BrandListCmd())
	cmd.AddCommand(BrandManualCmd())

	return cmd
}

// BrandCreateCmd creates the brand create command
func BrandCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new brand",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runBrandCreate(cmd, args[0], outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runBrandCreate(cmd *cobra.Command, name, outputFormat string) error {
	apiClient, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := apiClient.Post("/brands", map[string]string{"name": name})
	if err != nil {
		return err
	}

	var brand brandPayload
	if err := json.Unmarshal(resp.Data, &brand); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputFormat == "json" {
		jsonBytes, _ := json.MarshalIndent(brand, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Brand created: %s (%s)\n", brand.Name, brand.ID)
	}

	return nil
}

// BrandListCmd creates the brand list command
func BrandListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all brands",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runBrandList(cmd, outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runBrandList(cmd *cobra.Command, outputFormat string) error {
	apiClient, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := apiClient.Get("/brands")
	if err != nil {
		return err
	}

	var brands []brandPayload
	if err := json.Unmarshal(resp.Data, &brands); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputFormat == "json" {
		jsonBytes, _ := json.MarshalIndent(brands, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(brands) == 0 {
			fmt.Println("No brands found")
			return nil
		}
		fmt.Println("Brands:")
		for _, b := range brands {
			fmt.Printf("  %s: %s (created: %s)\n", b.ID, b.Name, b.CreatedAt)
		}
	}

	return nil
}

// BrandManualCmd creates the brand manual subcommand
func BrandManualCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manual",
		Short: "Manage a brand's manual",
	}

	cmd.AddCommand(ManualGenerateCmd())
	cmd.AddCommand(ManualIngestCmd())
	cmd.AddCommand(ManualShowCmd())

	return cmd
}

// ManualGenerateCmd creates the manual generate command
func ManualGenerateCmd() *cobra.Command {
	var (
		brandName        string
		product          string
		tone             string
		audience         string
		extraConstraints string
		visualRulesFile  string
	)

	cmd := &cobra.Command{
		Use:   "generate <brand-id>",
		Short: "Generate a brand manual",
		Long:  "Run the manual architect for a brand. Visual rules can be supplied as a JSON file and are treated as the source of truth.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runManualGenerate(cmd, args[0], brandName, product, tone, audience, extraConstraints, visualRulesFile, outputFormat)
		},
	}

	cmd.Flags().StringVar(&brandName, "brand-name", "", "Brand name used in the manual (defaults to product)")
	cmd.Flags().StringVar(&product, "product", "", "Product description (required)")
	cmd.Flags().StringVar(&tone, "tone", "", "Desired tone of voice (required)")
	cmd.Flags().StringVar(&audience, "audience", "", "Target audience (required)")
	cmd.Flags().StringVar(&extraConstraints, "constraints", "", "Extra constraints for the manual")
	cmd.Flags().StringVar(&visualRulesFile, "visual-rules", "", "Path to a JSON file with visual rules")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("product")
	cmd.MarkFlagRequired("tone")
	cmd.MarkFlagRequired("audience")

	return cmd
}

func runManualGenerate(cmd *cobra.Command, brandID, brandName, product, tone, audience, extraConstraints, visualRulesFile, outputFormat string) error {
	apiClient, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	body := map[string]interface{}{
		"brand_name":        brandName,
		"product":           product,
		"tone":              tone,
		"audience":          audience,
		"extra_constraints": extraConstraints,
	}

	if visualRulesFile != "" {
		data, err := os.ReadFile(visualRulesFile)
		if err != nil {
			return fmt.Errorf("failed to read visual rules file: %w", err)
		}
		var visualRules json.RawMessage
		if err := json.Unmarshal(data, &visualRules); err != nil {
			return fmt.Errorf("visual rules file is not valid JSON: %w", err)
		}
		body["visual_rules"] = visualRules
	}

	fmt.Println("Generating manual (this can take a minute)...")
	resp, err := apiClient.Post("/brands/"+brandID+"/manual", body)
	if err != nil {
		return err
	}

	return printManual(resp.Data, outputFormat)
}

// ManualIngestCmd creates the manual ingest command
func ManualIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <brand-id> <file>",
		Short: "Ingest a pre-built manual document",
		Long:  "Upload a manual document from a JSON file instead of generating one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runManualIngest(cmd, args[0], args[1], outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runManualIngest(cmd *cobra.Command, brandID, filePath, outputFormat string) error {
	apiClient, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read manual file: %w", err)
	}

	var doc json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("manual file is not valid JSON: %w", err)
	}

	resp, err := apiClient.Put("/brands/"+brandID+"/manual", doc)
	if err != nil {
		return err
	}

	return printManual(resp.Data, outputFormat)
}

// ManualShowCmd creates the manual show command
func ManualShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <brand-id>",
		Short: "Show the brand's latest manual",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runManualShow(cmd, args[0], outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runManualShow(cmd *cobra.Command, brandID, outputFormat string) error {
	apiClient, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := apiClient.Get("/brands/" + brandID + "/manual")
	if err != nil {
		return err
	}

	return printManual(resp.Data, outputFormat)
}

func printManual(data json.RawMessage, outputFormat string) error {
	var manual manualPayload
	if err := json.Unmarshal(data, &manual); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputFormat == "json" {
		jsonBytes, _ := json.MarshalIndent(manual, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Manual: %s (brand: %s, created: %s)\n", manual.ID, manual.BrandID, manual.CreatedAt)
		if emb := manual.Embedding; emb != nil {
			if emb.Ready {
				fmt.Printf("Status: ready (%d chunks embedded)\n", emb.EmbeddedChunks)
			} else {
				fmt.Printf("Status: embedding in progress (%d embedded, %d pending)\n", emb.EmbeddedChunks, emb.PendingChunks)
			}
		}
		docBytes, _ := json.MarshalIndent(manual.Document, "", "  ")
		fmt.Println(string(docBytes))
	}

	return nil
}
