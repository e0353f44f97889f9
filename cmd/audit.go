package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/facetrace/attendance/internal/audit"
	"github.com/facetrace/attendance/internal/constants"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Scan for duplicate enrollments",
	Long: `Scan all enrolled identities for cross-identity near-duplicate
embeddings. Two identities with nearly identical face vectors usually
mean the same person was enrolled twice under different names.`,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().Float64("threshold", constants.DefaultAuditThreshold,
		"Cosine distance below which two identities count as duplicates")
	auditCmd.Flags().Int("k", constants.AuditSearchK, "Nearest neighbors to inspect per embedding")
}

func runAudit(cmd *cobra.Command, args []string) error {
	threshold := mustGetFloat64(cmd, "threshold")
	searchK := mustGetInt(cmd, "k")

	c, err := buildComponents()
	if err != nil {
		return err
	}

	findings, err := audit.NewAuditor(c.repo, c.log).Scan(threshold, searchK, os.Stderr)
	if err != nil {
		return err
	}

	fmt.Println()
	if len(findings) == 0 {
		fmt.Println("No duplicate enrollments found.")
		return nil
	}
	fmt.Printf("%d possible duplicate enrollment(s):\n", len(findings))
	for _, f := range findings {
		fmt.Println("  " + audit.Describe(f))
	}
	return nil
}
