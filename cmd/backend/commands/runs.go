package commands

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/biodoia/marketmind/pkg/models"
	"github.com/spf13/cobra"
)

// RunsCmd rappresenta il comando runs
var RunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect workflow run history",
	Long: `Inspect the workflow runs persisted by the server.

Every autonomous workflow is logged with its plan, step outcomes and final
result, so past analyses can be reviewed or exported.`,
	Example: `  # Show the latest runs
  marketmind runs list

  # Show the runs of a user as JSON
  marketmind runs list --user 42 --json

  # Show a single run with its steps
  marketmind runs show 0f6c1e2a-...

  # Export runs to CSV
  marketmind runs export --format csv -o runs.csv`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent workflow runs",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a workflow run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export workflow runs to file",
	Long:  `Export workflow runs to CSV or JSON format for analysis.`,
	RunE:  runRunsExport,
}

var (
	runsUser   string
	runsLimit  int
	runsFormat string
	runsOutput string
)

func init() {
	for _, c := range []*cobra.Command{runsListCmd, runsExportCmd} {
		c.Flags().StringVar(&runsUser, "user", "", "Filter by user id")
		c.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs")
	}
	runsListCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	runsShowCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	runsExportCmd.Flags().StringVar(&runsFormat, "format", "csv", "Export format (csv, json)")
	runsExportCmd.Flags().StringVarP(&runsOutput, "output", "o", "", "Output file path (required)")
	runsExportCmd.MarkFlagRequired("output")

	RunsCmd.AddCommand(runsListCmd)
	RunsCmd.AddCommand(runsShowCmd)
	RunsCmd.AddCommand(runsExportCmd)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	db, err := initDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.RecentWorkflowRuns(context.Background(), runsUser, runsLimit)
	if err != nil {
		return fmt.Errorf("failed to fetch runs: %w", err)
	}

	if jsonOutput {
		return printJSON(runs)
	}

	return printRunsTable(runs)
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	db, err := initDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := db.GetWorkflowRun(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to fetch run %s: %w", args[0], err)
	}

	if jsonOutput {
		return printJSON(run)
	}

	fmt.Printf("Run:       %s\n", run.ID)
	fmt.Printf("Workflow:  %s\n", run.Name)
	fmt.Printf("Status:    %s\n", run.Status)
	fmt.Printf("Fallback:  %v\n", run.Fallback)
	fmt.Printf("User:      %s\n", orDash(run.UserID))
	fmt.Printf("Created:   %s\n", run.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Duration:  %s\n", time.Duration(run.DurationMs)*time.Millisecond)
	fmt.Printf("Request:   %s\n", run.Request)
	fmt.Println()

	steps, err := run.GetSteps()
	if err != nil {
		return fmt.Errorf("failed to decode steps: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tAGENT\tSTATUS\tDEPENDS ON\tTASK")
	fmt.Fprintln(w, "-\t-----\t------\t----------\t----")
	for i, s := range steps {
		fmt.Fprintf(w, "%d\t%s\t%s\t%v\t%s\n", i, s.AgentID, s.Status, s.DependsOn, s.Task)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Final result")
	fmt.Println("------------")
	fmt.Println(run.FinalResult)
	return nil
}

func runRunsExport(cmd *cobra.Command, args []string) error {
	db, err := initDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.RecentWorkflowRuns(context.Background(), runsUser, runsLimit)
	if err != nil {
		return fmt.Errorf("failed to fetch runs: %w", err)
	}

	switch runsFormat {
	case "csv":
		return exportRunsCSV(runs, runsOutput)
	case "json":
		return exportRunsJSON(runs, runsOutput)
	default:
		return fmt.Errorf("unsupported format: %s (use csv or json)", runsFormat)
	}
}

func printRunsTable(runs []models.WorkflowRun) error {
	if len(runs) == 0 {
		fmt.Println("No workflow runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tWORKFLOW\tSTATUS\tSTEPS OK/FAILED\tDURATION\tUSER")
	fmt.Fprintln(w, "--\t-------\t--------\t------\t---------------\t--------\t----")

	var completed, failed int
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			r.ID,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.Name,
			r.Status,
			r.StepsCompleted,
			r.StepsFailed,
			time.Duration(r.DurationMs)*time.Millisecond,
			orDash(r.UserID),
		)
		completed += r.StepsCompleted
		failed += r.StepsFailed
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "TOTAL\t%d runs\t\t\t%d/%d\t\t\n", len(runs), completed, failed)

	return w.Flush()
}

func exportRunsCSV(runs []models.WorkflowRun, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"ID", "Created", "User", "Workflow", "Status", "Fallback",
		"Steps Completed", "Steps Failed", "Duration (ms)", "Request",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	// Write data
	for _, r := range runs {
		row := []string{
			r.ID,
			r.CreatedAt.Format(time.RFC3339),
			r.UserID,
			r.Name,
			r.Status,
			strconv.FormatBool(r.Fallback),
			strconv.Itoa(r.StepsCompleted),
			strconv.Itoa(r.StepsFailed),
			strconv.FormatInt(r.DurationMs, 10),
			r.Request,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	fmt.Printf("✓ Exported %d runs to %s\n", len(runs), filename)
	return nil
}

func exportRunsJSON(runs []models.WorkflowRun, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(runs); err != nil {
		return err
	}

	fmt.Printf("✓ Exported %d runs to %s\n", len(runs), filename)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
