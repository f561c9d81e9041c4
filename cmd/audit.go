package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	auditPostgres "github.com/frahmantamala/expense-claims/internal/audit/postgres"
	coreAudit "github.com/frahmantamala/expense-claims/internal/core/audit"
	"github.com/spf13/cobra"
)

var (
	auditTargetType string
	auditTargetID   int64
)

// auditCmd prints the trail of one target without going through the API,
// for support cases where the caller's scope does not matter.
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Print the audit trail of a claim, user or company",
	RunE: func(cmd *cobra.Command, args []string) error {
		if auditTargetID <= 0 {
			return errors.New("--id must be a positive id")
		}
		target := coreAudit.TargetType(auditTargetType)
		switch target {
		case coreAudit.TargetExpense, coreAudit.TargetUser, coreAudit.TargetCompany:
		default:
			return fmt.Errorf("unknown target type %q", auditTargetType)
		}

		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		db, err := initDB(cfg.Database)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		entries, err := auditPostgres.NewStore(db).ListForTarget(cmd.Context(), target, auditTargetID)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	},
}

func init() {
	auditCmd.Flags().StringVarP(&auditTargetType, "type", "t", string(coreAudit.TargetExpense), "target type: expense, user or company")
	auditCmd.Flags().Int64Var(&auditTargetID, "id", 0, "target id")
}
