package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

type contextChunkPayload struct {
	ChunkID    string  `json:"chunk_id"`
	Section    string  `json:"section"`
	Ordinal    int     `json:"ordinal"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

type contentPiecePayload struct {
	ID        string                `json:"id"`
	BrandID   string                `json:"brand_id"`
	ManualID  string                `json:"manual_id"`
	CreatorID string                `json:"creator_id"`
	Type      string                `json:"type"`
	Brief     string                `json:"brief"`
	Output    string                `json:"output"`
	Context   []contextChunkPayload `json:"context"`
	Status    string                `json:"status"`
	CreatedAt string                `json:"created_at"`
	UpdatedAt string                `json:"updated_at"`
}

type contentPagePayload struct {
	Items      []contentPiecePayload `json:"items"`
	NextCursor string                `json:"next_cursor"`
	HasMore    bool                  `json:"has_more"`
}

// GenerateCmd creates the generate command
func GenerateCmd() *cobra.Command {
	var (
		brandID     string
		contentType string
	)

	cmd := &cobra.Command{
		Use:   "generate <brief>",
		Short: "Generate a content piece",
		Long:  "Generate a content piece grounded in the brand's manual. The result is created in PENDING state awaiting approval.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runGenerate(cmd, brandID, contentType, args[0], outputFormat)
		},
	}

	cmd.Flags().StringVarP(&brandID, "brand", "b", "", "Brand ID (required)")
	cmd.Flags().StringVarP(&contentType, "type", "t", "description", "Content type (description, script, image_prompt)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("brand")

	return cmd
}

func runGenerate(cmd *cobra.Command, brandID, contentType, brief, outputFormat string) error {
	apiClient, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	fmt.Println("Generating content (this can take a minute)...")
	resp, err := apiClient.Post("/generate", map[string]string{
		"brand_id": brandID,
		"type":     contentType,
		"brief":    brief,
	})
	if err != nil {
		return err
	}

	return printContentPiece(resp.Data, outputFormat)
}

// ContentGetCmd creates the content get command
func ContentGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a content piece",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runContentGet(cmd, args[0], outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runContentGet(cmd *cobra.Command, id, outputFormat string) error {
	apiClient, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := apiClient.Get("/content/" + id)
	if err != nil {
		return err
	}

	return printContentPiece(resp.Data, outputFormat)
}

// ContentListCmd creates the content list command
func ContentListCmd() *cobra.Command {
	var (
		status string
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List content pieces",
		Long:  "List content pieces. Creators see their own pieces; approvers see all.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runContentList(cmd, status, cursor, limit, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status (PENDING, APPROVED, REJECTED)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runContentList(cmd *cobra.Command, status, cursor string, limit int, outputFormat string) error {
	apiClient, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	path := "/content"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	resp, err := apiClient.Get(path)
	if err != nil {
		return err
	}

	return printContentPage(resp.Data, outputFormat)
}

// InboxCmd creates the inbox command
func InboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Show your worklist",
		Long:  "Approvers see pending pieces awaiting a decision; creators see their own recent pieces.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runInbox(cmd, outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runInbox(cmd *cobra.Command, outputFormat string) error {
	apiClient, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := apiClient.Get("/inbox")
	if err != nil {
		return err
	}

	return printContentPage(resp.Data, outputFormat)
}

// ApproveCmd creates the approve command
func ApproveCmd() *cobra.Command {
	var feedback string

	cmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a pending content piece",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runDecision(cmd, args[0], "approve", feedback, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&feedback, "feedback", "f", "", "Optional feedback for the creator")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

// RejectCmd creates the reject command
func RejectCmd() *cobra.Command {
	var feedback string

	cmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a pending content piece",
		Long:  "Reject a pending content piece. Feedback is required so the creator knows what to fix.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runDecision(cmd, args[0], "reject", feedback, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&feedback, "feedback", "f", "", "Feedback for the creator (required)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("feedback")

	return cmd
}

func runDecision(cmd *cobra.Command, id, decision, feedback, outputFormat string) error {
	apiClient, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	var body interface{}
	if feedback != "" {
		body = map[string]string{"feedback": feedback}
	}

	resp, err := apiClient.Post("/content/"+id+"/"+decision, body)
	if err != nil {
		return err
	}

	return printContentPiece(resp.Data, outputFormat)
}

func printContentPiece(data json.RawMessage, outputFormat string) error {
	var piece contentPiecePayload
	if err := json.Unmarshal(data, &piece); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputFormat == "json" {
		jsonBytes, _ := json.MarshalIndent(piece, "", "  ")
		fmt.Println(string(jsonBytes))
		return nil
	}

	fmt.Printf("ID:      %s\n", piece.ID)
	fmt.Printf("Brand:   %s\n", piece.BrandID)
	fmt.Printf("Type:    %s\n", piece.Type)
	fmt.Printf("Status:  %s\n", piece.Status)
	fmt.Printf("Brief:   %s\n", piece.Brief)
	fmt.Printf("Output:\n%s\n", piece.Output)
	if len(piece.Context) > 0 {
		fmt.Println("Grounded on:")
		for _, c := range piece.Context {
			fmt.Printf("  [%s] similarity %.3f\n", c.Section, c.Similarity)
		}
	}

	return nil
}

func printContentPage(data json.RawMessage, outputFormat string) error {
	var page contentPagePayload
	if err := json.Unmarshal(data, &page); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputFormat == "json" {
		jsonBytes, _ := json.MarshalIndent(page, "", "  ")
		fmt.Println(string(jsonBytes))
		return nil
	}

	if len(page.Items) == 0 {
		fmt.Println("No content pieces found")
		return nil
	}

	for _, piece := range page.Items {
		brief := piece.Brief
		if len(brief) > 60 {
			brief = brief[:57] + "..."
		}
		fmt.Printf("  %s  %-12s %-9s %s\n", piece.ID, piece.Type, piece.Status, brief)
	}
	if page.HasMore && page.NextCursor != "" {
		fmt.Printf("\nMore results available. Use --cursor %s\n", page.NextCursor)
	}

	return nil
}
