package client

import (
	"encoding/json"
	"fmt"
	"path"

	"github.com/spf13/cobra"
)

type violationPayload struct {
	Rule     string `json:"rule"`
	Evidence string `json:"evidence"`
	Fix      string `json:"fix"`
}

type auditRecordPayload struct {
	ID             string             `json:"id"`
	PieceID        string             `json:"piece_id"`
	AuditorID      string             `json:"auditor_id"`
	ImageKey       string             `json:"image_key"`
	ImageURL       string             `json:"image_url"`
	Verdict        string             `json:"verdict"`
	Explanation    string             `json:"explanation"`
	ValidatedRules []string           `json:"validated_rules"`
	Violations     []violationPayload `json:"violations"`
	CreatedAt      string             `json:"created_at"`
}

// AuditCmd creates the audit parent command
func AuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit images against a brand manual",
		Long:  "Run a multimodal audit of an image against a content piece's brand manual, or list past audits",
	}

	cmd.AddCommand(AuditImageCmd())
	cmd.AddCommand(AuditListCmd())
	cmd.AddCommand(AuditPullCmd())

	return cmd
}

// AuditImageCmd creates the audit image command
func AuditImageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image <piece-id> <file>",
		Short: "Audit an image against a content piece's manual",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runAuditImage(cmd, args[0], args[1], outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runAuditImage(cmd *cobra.Command, pieceID, filePath, outputFormat string) error {
	apiClient, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	fmt.Println("Auditing image (this can take a minute)...")
	resp, err := apiClient.PostFile("/content/"+pieceID+"/audit-image", "image", filePath)
	if err != nil {
		return err
	}

	var record auditRecordPayload
	if err := json.Unmarshal(resp.Data, &record); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputFormat == "json" {
		jsonBytes, _ := json.MarshalIndent(record, "", "  ")
		fmt.Println(string(jsonBytes))
		return nil
	}

	printAuditRecord(&record)
	return nil
}

// AuditListCmd creates the audit list command
func AuditListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <piece-id>",
		Short: "List audits for a content piece",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runAuditList(cmd, args[0], outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runAuditList(cmd *cobra.Command, pieceID, outputFormat string) error {
	apiClient, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := apiClient.Get("/content/" + pieceID + "/audits")
	if err != nil {
		return err
	}

	var records []auditRecordPayload
	if err := json.Unmarshal(resp.Data, &records); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputFormat == "json" {
		jsonBytes, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(jsonBytes))
		return nil
	}

	if len(records) == 0 {
		fmt.Printf("No audits found for piece %s\n", pieceID)
		return nil
	}

	for i := range records {
		if i > 0 {
			fmt.Println()
		}
		printAuditRecord(&records[i])
	}

	return nil
}

// AuditPullCmd creates the audit pull command
func AuditPullCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "pull <piece-id>",
		Short: "Download the latest audited image for a content piece",
		Long:  "Download the image from the most recent audit of a content piece via its signed URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuditPull(cmd, args[0], outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "dest", "d", "", "Output file path (default: the stored image filename)")

	return cmd
}

func runAuditPull(cmd *cobra.Command, pieceID, outputPath string) error {
	apiClient, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := apiClient.Get("/content/" + pieceID + "/audits")
	if err != nil {
		return err
	}

	var records []auditRecordPayload
	if err := json.Unmarshal(resp.Data, &records); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no audits found for piece %s", pieceID)
	}

	// Records come back newest first.
	latest := records[0]
	if latest.ImageURL == "" {
		return fmt.Errorf("audit %s has no download URL (object storage not configured on the server)", latest.ID)
	}

	if outputPath == "" {
		outputPath = path.Base(latest.ImageKey)
		if outputPath == "." || outputPath == "/" || outputPath == "" {
			outputPath = latest.ID
		}
	}

	err = apiClient.DownloadFileWithProgress(latest.ImageURL, outputPath, func(current, total int64) {
		if total > 0 {
			fmt.Printf("\rDownloading... %d%%", current*100/total)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to download image: %w", err)
	}
	fmt.Println()

	fmt.Printf("Downloaded audit image to %s (audit: %s, verdict: %s)\n", outputPath, latest.ID, latest.Verdict)
	return nil
}

func printAuditRecord(record *auditRecordPayload) {
	fmt.Printf("Audit:   %s (created: %s)\n", record.ID, record.CreatedAt)
	fmt.Printf("Verdict: %s\n", record.Verdict)
	if record.Explanation != "" {
		fmt.Printf("Notes:   %s\n", record.Explanation)
	}
	if len(record.ValidatedRules) > 0 {
		fmt.Println("Validated rules:")
		for _, rule := range record.ValidatedRules {
			fmt.Printf("  ✓ %s\n", rule)
		}
	}
	if len(record.Violations) > 0 {
		fmt.Println("Violations:")
		for _, v := range record.Violations {
			fmt.Printf("  ✗ %s\n", v.Rule)
			if v.Evidence != "" {
				fmt.Printf("    evidence: %s\n", v.Evidence)
			}
			if v.Fix != "" {
				fmt.Printf("    fix: %s\n", v.Fix)
			}
		}
	}
	if record.ImageURL != "" {
		fmt.Printf("Image:   %s\n", record.ImageURL)
	}
}
