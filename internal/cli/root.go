// Package cli implements the loanflow command line surface. Every command
// builds the engine from the optional --config flag, so pointing the store at
// a file-system location makes the commands operate on the same sessions
// across invocations.
package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/viant/loanflow"
	"github.com/viant/loanflow/model/session"
	"github.com/viant/loanflow/workflow"
)

func newEngine(cmd *cobra.Command) (*loanflow.Service, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	location, _ := cmd.Flags().GetString("config")
	if location == "" {
		return loanflow.New(), nil
	}
	config, err := loanflow.LoadConfig(ctx, location)
	if err != nil {
		return nil, err
	}
	return loanflow.NewFromConfig(ctx, config)
}

func statusColor(status session.Status) *color.Color {
	switch status {
	case session.StatusCompleted:
		return color.New(color.FgGreen)
	case session.StatusAwaitingUser:
		return color.New(color.FgYellow)
	case session.StatusAwaitingOperator:
		return color.New(color.FgRed)
	case session.StatusFailed:
		return color.New(color.FgHiRed)
	}
	return color.New(color.FgCyan)
}

func printView(view *session.View) {
	fmt.Printf("session: %v\n", view.ID)
	fmt.Printf("status:  %v\n", statusColor(view.Status).Sprint(view.Status))
	if view.StepCursor != "" {
		fmt.Printf("step:    %v\n", view.StepCursor)
	}
	if view.PendingPrompt != "" {
		fmt.Printf("\n%v\n", color.New(color.FgYellow).Sprint(view.PendingPrompt))
		fmt.Printf("answer with: loanflow advance %v \"<answer>\"\n", view.ID)
	}
	if view.EscalationID != "" {
		fmt.Printf("\n%v\n", color.New(color.FgRed).Sprintf("waiting on operator, escalation %v", view.EscalationID))
	}
	if decision, ok := view.Fields[workflow.FieldDecision]; ok {
		fmt.Printf("\ndecision: %v\n", decisionColor(fmt.Sprint(decision)).Sprint(decision))
	}
	if agreement, ok := view.Fields[workflow.FieldAgreement].(string); ok && view.Status == session.StatusCompleted {
		fmt.Printf("\n%v\n", agreement)
	}
}

func decisionColor(decision string) *color.Color {
	switch decision {
	case "APPROVED":
		return color.New(color.FgGreen)
	case "REJECTED":
		return color.New(color.FgRed)
	}
	return color.New(color.FgYellow)
}
