package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowline-analytics/flowline/internal/models"
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "ROI ledger chain commands",
}

var chainVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the integrity of the ROI hash chain",
	Long:  "Replay the full ROI ledger and report the first entry, if any, that breaks the hash chain.",
	RunE:  runChainVerify,
}

var chainSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show cumulative ROI across the ledger",
	RunE:  runChainSummary,
}

func init() {
	chainCmd.AddCommand(chainVerifyCmd)
	chainCmd.AddCommand(chainSummaryCmd)
	rootCmd.AddCommand(chainCmd)
}

func runChainVerify(cmd *cobra.Command, args []string) error {
	var resp struct {
		ChainStatus string                      `json:"chain_status"`
		Message     string                      `json:"message"`
		Report      models.ChainIntegrityReport `json:"report"`
	}
	if err := getJSON("/api/v1/roi/chain-integrity", &resp); err != nil {
		return err
	}

	fmt.Printf("Chain status: %s\n", resp.ChainStatus)
	fmt.Printf("Entries checked: %d\n", resp.Report.EntriesChecked)
	if !resp.Report.Valid {
		if resp.Report.FirstInvalidSeq != nil {
			fmt.Printf("First invalid sequence: %d\n", *resp.Report.FirstInvalidSeq)
		}
		fmt.Printf("Reason: %s\n", resp.Report.Reason)
		return fmt.Errorf("chain verification failed")
	}
	return nil
}

func runChainSummary(cmd *cobra.Command, args []string) error {
	var summary models.ROISummary
	if err := getJSON("/api/v1/roi/summary", &summary); err != nil {
		return err
	}

	c := summary.Cumulative
	fmt.Printf("Entries:      %d\n", c.TotalEntries)
	fmt.Printf("Savings:      $%.2f\n", c.TotalSavings)
	fmt.Printf("Cost:         $%.2f\n", c.TotalCost)
	fmt.Printf("Net benefit:  $%.2f\n", c.TotalNetBenefit)
	if c.OverallROIPct != nil {
		fmt.Printf("Overall ROI:  %.2f%%\n", *c.OverallROIPct)
	} else {
		fmt.Println("Overall ROI:  n/a (no cost recorded)")
	}

	if len(summary.ByActionType) > 0 {
		fmt.Println("\nBy action type:")
		for _, a := range summary.ByActionType {
			fmt.Printf("  %-22s %3d entries  net $%.2f\n", a.ActionType, a.Entries, a.NetBenefit)
		}
	}
	return nil
}
