package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Inspect and maintain the attendance ledger",
}

var attendanceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List attendance records, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit := mustGetInt(cmd, "limit")

		c, err := buildComponents()
		if err != nil {
			return err
		}

		records, err := c.ledger.List()
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("Ledger is empty.")
			return nil
		}
		if limit > 0 && len(records) > limit {
			records = records[:limit]
		}
		for _, rec := range records {
			fmt.Printf("%s  %s  %-8s  %s (%s)  [%s]\n",
				rec.Timestamp.Format("2006-01-02 15:04"),
				rec.IdentityID, rec.Status, rec.Name, rec.Source, rec.ID)
		}
		return nil
	},
}

var attendanceDedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Remove same-minute duplicates, orphans and invalid records",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := buildComponents()
		if err != nil {
			return err
		}

		report, err := c.ledger.Deduplicate()
		if err != nil {
			return err
		}
		fmt.Printf("Kept %d records (%d duplicates, %d orphans, %d invalid removed)\n",
			report.Kept, report.Duplicates, report.Orphans, report.Invalid)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	attendanceCmd.AddCommand(attendanceListCmd)
	attendanceCmd.AddCommand(attendanceDedupeCmd)

	attendanceListCmd.Flags().Int("limit", 50, "Maximum number of records to print (0 = all)")
}
