package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowline-analytics/flowline/internal/models"
)

var insightCmd = &cobra.Command{
	Use:   "insight [date]",
	Short: "Show the daily insight for a date (default: today)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInsight,
}

func init() {
	rootCmd.AddCommand(insightCmd)
}

func runInsight(cmd *cobra.Command, args []string) error {
	date := time.Now().UTC().Format("2006-01-02")
	if len(args) > 0 {
		date = args[0]
	}

	var insight models.DailyInsight
	if err := getJSON("/api/v1/insights/daily/"+date, &insight); err != nil {
		return err
	}

	fmt.Printf("Date:   %s\n", insight.Date)
	fmt.Printf("Status: %s\n", insight.Status)
	if insight.Status != models.StatusGenerated {
		return nil
	}

	fmt.Printf("Total loss: $%.2f (data completeness %.0f%%)\n",
		insight.TotalLoss, insight.DataCompleteness*100)

	if insight.TopLossPoint != nil {
		fmt.Printf("Worst: %s at %s ($%.2f)\n",
			insight.TopLossPoint.Category, insight.TopLossPoint.LocationID, insight.TopLossPoint.Amount)
	}

	if insight.Recommendation != nil {
		r := insight.Recommendation
		fmt.Printf("\nRecommended: %s\n", r.ActionType)
		fmt.Printf("  %s\n", r.Description)
		fmt.Printf("  Estimated savings: $%.2f - $%.2f\n", r.EstimatedSavings.Min, r.EstimatedSavings.Max)
		fmt.Printf("  Implementation cost: $%.2f\n", r.ImplementationCost)
		fmt.Printf("  Confidence: %.0f%%\n", r.Confidence*100)
	} else {
		fmt.Println("\nNo recommendation cleared the confidence bar today.")
	}
	return nil
}
