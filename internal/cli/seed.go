package cli

import (
	"github.com/spf13/cobra"

	"github.com/flowline-analytics/flowline/internal/seeder"
)

var (
	seedScenarioFile string
	seedRandomSeed   int64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate and ingest synthetic operational events",
	Long: `Generate a scenario's worth of synthetic queueing events and send
them to a running flowline instance.

Without --scenario a built-in week-long profile covering a typical
deployment is used.

Examples:
  # Seed the default scenario against a local instance
  flowctl seed

  # Seed a custom scenario, reproducibly
  flowctl seed --scenario ./busy-weekend.yaml --seed 42`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedScenarioFile, "scenario", "", "scenario YAML file (default: built-in profile)")
	seedCmd.Flags().Int64Var(&seedRandomSeed, "seed", 0, "random seed (0 = time-based)")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	scenario := seeder.DefaultScenario()
	if seedScenarioFile != "" {
		var err error
		scenario, err = seeder.LoadScenario(seedScenarioFile)
		if err != nil {
			return err
		}
	}

	runner := seeder.NewRunner(apiURL)
	_, err := runner.Run(cmd.Context(), scenario, seedRandomSeed)
	return err
}
