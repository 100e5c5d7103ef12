package cli

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/membership/backend/internal/models"
	"github.com/membership/backend/pkg/utils"
	"github.com/spf13/cobra"
)

const minPasswordLength = 8

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}
	cmd.AddCommand(newAdminCreateCmd(a), newAdminPasswordCmd(a))
	return cmd
}

func newAdminCreateCmd(a *app) *cobra.Command {
	var email, name, password, role, branch string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account",
		Long: `Create an admin account. Branch admins (the default role) need
--branch; super admins manage every branch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.ToLower(strings.TrimSpace(email))
			name = strings.TrimSpace(name)
			if email == "" || name == "" {
				return fmt.Errorf("--email and --name are required")
			}
			if len(password) < minPasswordLength {
				return fmt.Errorf("password must be at least %d characters", minPasswordLength)
			}

			admin := models.Admin{Email: email, Name: name, Role: models.AdminRole(role)}
			switch admin.Role {
			case models.AdminRoleSuper:
			case models.AdminRoleBranch:
				branchID, err := uuid.Parse(strings.TrimSpace(branch))
				if err != nil {
					return fmt.Errorf("--branch must be a branch id for branch admins")
				}
				var count int64
				if err := a.db.Model(&models.Branch{}).Where("id = ?", branchID).Count(&count).Error; err != nil {
					return fmt.Errorf("looking up branch: %w", err)
				}
				if count == 0 {
					return fmt.Errorf("branch %s not found", branchID)
				}
				admin.BranchID = &branchID
			default:
				return fmt.Errorf("unknown role %q (want %s or %s)", role, models.AdminRoleBranch, models.AdminRoleSuper)
			}

			hash, err := utils.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hashing password: %w", err)
			}
			admin.PasswordHash = hash

			if err := a.db.Create(&admin).Error; err != nil {
				return fmt.Errorf("creating admin: %w", err)
			}

			if a.jsonOutput {
				printJSON(cmd.OutOrStdout(), admin)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s admin %s (%s)\n", admin.Role, admin.Email, admin.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Login email")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&password, "password", "", "Initial password")
	cmd.Flags().StringVar(&role, "role", string(models.AdminRoleBranch), "branch or super")
	cmd.Flags().StringVar(&branch, "branch", "", "Branch id (branch admins only)")
	return cmd
}

func newAdminPasswordCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Reset an admin's password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.ToLower(strings.TrimSpace(email))
			if len(password) < minPasswordLength {
				return fmt.Errorf("password must be at least %d characters", minPasswordLength)
			}

			hash, err := utils.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hashing password: %w", err)
			}

			result := a.db.Model(&models.Admin{}).Where("email = ?", email).Update("password_hash", hash)
			if result.Error != nil {
				return fmt.Errorf("updating password: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("no admin with email %q", email)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %s\n", email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email")
	cmd.Flags().StringVar(&password, "password", "", "New password")
	return cmd
}
