package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/membership/backend/internal/models"
	"github.com/spf13/cobra"
)

func newBranchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branch",
		Short: "Create and list branches",
	}
	cmd.AddCommand(newBranchCreateCmd(a), newBranchListCmd(a))
	return cmd
}

func newBranchCreateCmd(a *app) *cobra.Command {
	var name, contact string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name = strings.TrimSpace(name)
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			branch := models.Branch{Name: name}
			if c := strings.TrimSpace(contact); c != "" {
				branch.Contact = &c
			}
			if err := a.db.Create(&branch).Error; err != nil {
				return fmt.Errorf("creating branch: %w", err)
			}

			if a.jsonOutput {
				printJSON(cmd.OutOrStdout(), branch)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created branch %s (%s)\n", branch.Name, branch.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Branch name (unique)")
	cmd.Flags().StringVar(&contact, "contact", "", "Email address notified of new signups")
	return cmd
}

func newBranchListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List branches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var branches []models.Branch
			if err := a.db.Order("name ASC").Find(&branches).Error; err != nil {
				return fmt.Errorf("listing branches: %w", err)
			}

			if a.jsonOutput {
				printJSON(cmd.OutOrStdout(), branches)
				return nil
			}
			if len(branches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No branches found.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCONTACT")
			for _, b := range branches {
				contact := "-"
				if b.Contact != nil {
					contact = *b.Contact
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", b.ID, b.Name, contact)
			}
			return w.Flush()
		},
	}
}
