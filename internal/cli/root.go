// Package cli implements memberctl, the operator tool for the records the
// HTTP API treats as read-only: branches and admin accounts.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/membership/backend/internal/config"
	"github.com/membership/backend/internal/database"
	"github.com/membership/backend/pkg/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

type app struct {
	jsonOutput bool
	db         *gorm.DB
}

func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "memberctl",
		Short: "Manage branches and admin accounts",
		Long: `memberctl talks to the membership database directly. It uses the
same DB_* environment variables as the server.

  memberctl branch create --name Melbourne --contact organiser@example.org
  memberctl branch list
  memberctl admin create --email a@example.org --name Alex --password s3cret --branch <uuid>
  memberctl admin password --email admin@membership.local --password n3w`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.SetOutput(cmd.ErrOrStderr())
			db, err := database.Connect(config.Load().DB)
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			a.db = db
			return nil
		},
	}

	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "Output as JSON")

	root.AddCommand(newBranchCmd(a), newAdminCmd(a))
	return root
}

// Execute runs the root command.
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func printJSON(w io.Writer, v interface{}) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
