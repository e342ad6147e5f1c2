package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cadenlabs/brandgov/internal/config"
	"github.com/cadenlabs/brandgov/internal/database"
	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/cadenlabs/brandgov/internal/repository"
	"github.com/cadenlabs/brandgov/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func PrincipalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "principal",
		Short: "Manage principals",
		Long:  "Create and list principals (identities with a role binding)",
	}

	cmd.AddCommand(PrincipalCreateCmd())
	cmd.AddCommand(PrincipalListCmd())

	return cmd
}

func PrincipalCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <email>",
		Short: "Create a new principal",
		Long:  "Create a new principal with the specified email and role",
		Args:  cobra.ExactArgs(1),
		RunE:  runPrincipalCreate,
	}

	cmd.Flags().StringP("role", "r", "creator", "Role (creator, approver_a, approver_b)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runPrincipalCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	email := args[0]
	role, _ := cmd.Flags().GetString("role")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	principalRepo := repository.NewPrincipalRepository(pool)
	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(principalRepo, nil, uuidGen)

	principal, err := authSvc.CreatePrincipal(ctx, email, domain.Role(role))
	if err != nil {
		return fmt.Errorf("failed to create principal: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":         principal.ID,
			"email":      principal.Email,
			"role":       principal.Role,
			"created_at": principal.CreatedAt,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Principal created: %s (%s, role: %s)\n", principal.Email, principal.ID, principal.Role)
	}

	return nil
}

func PrincipalListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all principals",
		Long:  "List all principals in the system",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runPrincipalList(outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runPrincipalList(outputFormat string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	principalRepo := repository.NewPrincipalRepository(pool)

	principals, err := principalRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list principals: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(principals))
		for i, p := range principals {
			data[i] = map[string]interface{}{
				"id":         p.ID,
				"email":      p.Email,
				"role":       p.Role,
				"created_at": p.CreatedAt,
			}
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(principals) == 0 {
			fmt.Println("No principals found")
			return nil
		}
		fmt.Println("Principals:")
		for _, p := range principals {
			fmt.Printf("  %s: %s (%s, created: %s)\n", p.ID, p.Email, p.Role, p.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	}

	return nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return database.Connect(ctx, cfg.DatabaseURL)
}
