package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/biodoia/marketmind/internal/agents"
	"github.com/spf13/cobra"
)

// AgentsCmd rappresenta il comando agents
var AgentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List and talk to the agents",
	Long: `Inspect the agent catalog and send a message to a single agent.

The catalog contains four specialists (research, analyst, writer, strategist)
and the coordinator that plans workflows.`,
	Example: `  # List agents
  marketmind agents list

  # Ask the strategist directly
  marketmind agents chat strategist "How should we enter the coffee market?"

  # Use a user's knowledge base as context
  marketmind agents chat analyst "Summarize my documents" --user 42`,
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available agents",
	RunE:  runAgentsList,
}

var agentsChatCmd = &cobra.Command{
	Use:   "chat <agent> <message>",
	Short: "Send a message to a single agent",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runAgentsChat,
}

var (
	agentsArabic bool
	requestUser  string
	requestWS    string
	requestProj  string
)

func init() {
	agentsListCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	agentsListCmd.Flags().BoolVar(&agentsArabic, "ar", false, "Show Arabic names and descriptions")

	addRequestFlags(agentsChatCmd)

	AgentsCmd.AddCommand(agentsListCmd)
	AgentsCmd.AddCommand(agentsChatCmd)
}

// addRequestFlags aggiunge i flag di scope della knowledge base
func addRequestFlags(c *cobra.Command) {
	c.Flags().StringVar(&requestUser, "user", "", "User id whose documents are used as context")
	c.Flags().StringVar(&requestWS, "workspace", "", "Restrict context to a workspace")
	c.Flags().StringVar(&requestProj, "project", "", "Restrict context to a project (wins over workspace)")
}

func runAgentsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	registry := agents.NewDefaultRegistry(cfg.Gateway.Model)

	if jsonOutput {
		return printJSON(registry.List())
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMODEL\tDESCRIPTION")
	fmt.Fprintln(w, "--\t----\t-----\t-----------")

	for _, a := range registry.List() {
		name, description := a.Name, a.Description
		if agentsArabic {
			name, description = a.NameAr, a.DescriptionAr
		}
		fmt.Fprintf(w, "%s %s\t%s\t%s\t%s\n", a.Icon, a.ID, name, a.Model, description)
	}

	return w.Flush()
}

func runAgentsChat(cmd *cobra.Command, args []string) error {
	setupLogger(false, true)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	svc, err := newServices(cfg, false)
	if err != nil {
		return err
	}
	defer svc.Close()

	result, err := svc.orchestrator.Chat(context.Background(), args[0], agents.Request{
		UserID:      requestUser,
		Message:     strings.Join(args[1:], " "),
		WorkspaceID: requestWS,
		ProjectID:   requestProj,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s\n\n%s\n", result.AgentName, result.Response)
	return nil
}
