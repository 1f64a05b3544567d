package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/biodoia/marketmind/internal/agents"
	"github.com/spf13/cobra"
)

// WorkflowCmd esegue un workflow autonomo da riga di comando
var WorkflowCmd = &cobra.Command{
	Use:   "workflow <request>",
	Short: "Run an autonomous multi-agent workflow",
	Long: `Plan and execute a multi-agent workflow for a single request.

The coordinator plans up to four steps across the specialists, each step
receives the results of the steps it depends on, and a final synthesis
merges everything into one report. The run is stored in the history like
the ones served over HTTP.`,
	Example: `  # Analyze a market
  marketmind workflow "Analyze the specialty coffee market in Milan"

  # Use the documents of a project as context
  marketmind workflow "Competitor overview" --user 42 --project 7

  # Print the full workflow as JSON
  marketmind workflow "Pricing strategy for a SaaS" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWorkflow,
}

var workflowTimeout time.Duration

func init() {
	addRequestFlags(WorkflowCmd)
	WorkflowCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	WorkflowCmd.Flags().DurationVar(&workflowTimeout, "timeout", 10*time.Minute, "Overall timeout")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	setupLogger(false, true)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	svc, err := newServices(cfg, true)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), workflowTimeout)
	defer cancel()

	wf, err := svc.orchestrator.RunWorkflow(ctx, agents.Request{
		UserID:      requestUser,
		Message:     strings.Join(args, " "),
		WorkspaceID: requestWS,
		ProjectID:   requestProj,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(wf)
	}

	registry := svc.orchestrator.Registry()

	fmt.Printf("Workflow: %s (%s)\n", wf.Name, wf.ID)
	if wf.Fallback {
		fmt.Println("⚠️  The coordinator plan was not usable, the default plan was executed")
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tAGENT\tSTATUS\tTASK")
	fmt.Fprintln(w, "-\t-----\t------\t----")
	for i, s := range wf.Steps {
		icon := ""
		if agent, ok := registry.Get(s.AgentID); ok {
			icon = agent.Icon + " "
		}
		fmt.Fprintf(w, "%d\t%s%s\t%s\t%s\n", i, icon, s.AgentID, s.Status, s.Task)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(wf.FinalResult)
	return nil
}
