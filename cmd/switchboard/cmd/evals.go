package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jlov7/Switchboard/internal/evals"
	"github.com/jlov7/Switchboard/pkg/switchboard"
)

var (
	evalsAPIURL  string
	evalsSuite   string
	evalsOutput  string
	evalsDataset string
)

var evalsCmd = &cobra.Command{
	Use:   "evals",
	Short: "Run a task suite against a live API",
	Long: `Route every task in a YAML suite through a running Switchboard
instance and write the outcome summary as JSON.

Tasks carry a name and a /route request body; a task may also carry an
expect expression (CEL over status, outcome, and payload) that turns the
suite into a pass/fail policy regression check. The command exits non-zero
when any expectation fails.`,
	RunE: runEvalsCmd,
}

func init() {
	evalsCmd.Flags().StringVar(&evalsAPIURL, "api-url", "http://localhost:8000", "Switchboard API base URL")
	evalsCmd.Flags().StringVar(&evalsSuite, "suite", "evals/tasks/graph2eval_example.yaml", "path to the task suite YAML")
	evalsCmd.Flags().StringVar(&evalsOutput, "output", "evals/results.json", "where to write the results JSON")
	evalsCmd.Flags().StringVar(&evalsDataset, "dataset", "", "optional dataset file (YAML or JSONL) to append to the suite")
	rootCmd.AddCommand(evalsCmd)
}

func runEvalsCmd(cmd *cobra.Command, args []string) error {
	tasks, err := evals.LoadSuite(evalsSuite)
	if err != nil {
		return err
	}
	if evalsDataset != "" {
		extra, err := evals.LoadDataset(evalsDataset)
		if err != nil {
			return err
		}
		tasks = append(tasks, extra...)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	client := switchboard.NewClient(
		switchboard.WithBaseURL(evalsAPIURL),
		switchboard.WithTimeout(15*time.Second),
		switchboard.WithLogger(logger),
	)
	runner, err := evals.NewRunner(client, evals.WithLogger(logger))
	if err != nil {
		return err
	}

	summary, err := runner.Run(cmd.Context(), tasks)
	if err != nil {
		return err
	}
	if err := evals.WriteSummary(evalsOutput, summary); err != nil {
		return err
	}

	fmt.Printf("Completed suite. Results written to %s\n", evalsOutput)
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d expectations failed", summary.Failed, summary.Passed+summary.Failed)
	}
	return nil
}
