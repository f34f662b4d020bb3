package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/viant/loanflow/workflow"
)

// ApplyCmd starts a new loan application session.
func ApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply [request text]",
		Short: "Start a new loan application",
		Long: `Start a new application session from a free-form request. Recognised
details (purpose, amount, city, PAN/Aadhaar) are picked up so they are not
asked again.

Usage:
  loanflow apply "I need 5,00,000 for home renovation in Mumbai"
  loanflow apply --document salary.txt "loan for a car, PAN ABCDE1234F"`,
		RunE: runApply,
	}
	cmd.Flags().String("document", "", "salary document location used instead of synthetic profile generation")
	return cmd
}

func runApply(cmd *cobra.Command, args []string) error {
	engine, err := newEngine(cmd)
	if err != nil {
		return err
	}
	request := strings.Join(args, " ")

	var attachments []map[string]interface{}
	if document, _ := cmd.Flags().GetString("document"); document != "" {
		attachments = append(attachments, map[string]interface{}{workflow.FieldSalaryDocument: document})
	}

	view, err := engine.Orchestrator().Start(cmd.Context(), request, attachments...)
	if err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}
	printView(view)
	return nil
}
