package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// AdvanceCmd supplies a user answer to a suspended session.
func AdvanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advance <session-id> <answer>",
		Short: "Answer the question a session is waiting on",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine(cmd)
			if err != nil {
				return err
			}
			view, err := engine.Orchestrator().Advance(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return fmt.Errorf("failed to advance session: %w", err)
			}
			printView(view)
			return nil
		},
	}
}

// ResumeCmd continues an active session, e.g. after a restart.
func ResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <session-id>",
		Short: "Resume an active session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine(cmd)
			if err != nil {
				return err
			}
			view, err := engine.Orchestrator().Resume(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to resume session: %w", err)
			}
			printView(view)
			return nil
		},
	}
}

// StatusCmd shows the current state of a session.
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <session-id>",
		Short: "Show session status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine(cmd)
			if err != nil {
				return err
			}
			view, err := engine.Orchestrator().Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printView(view)
			return nil
		},
	}
}

// ListCmd lists sessions that have not reached a terminal status.
func ListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine(cmd)
			if err != nil {
				return err
			}
			active, err := engine.Orchestrator().ListActive(cmd.Context())
			if err != nil {
				return err
			}
			if len(active) == 0 {
				fmt.Println("No active sessions.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tSTEP\tUPDATED")
			for _, item := range active {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					item.ID, item.Status, item.StepCursor, item.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
}

// HistoryCmd prints the audit trail of a session.
func HistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <session-id>",
		Short: "Show the step history of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine(cmd)
			if err != nil {
				return err
			}
			history, err := engine.Orchestrator().History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TS\tSTEP\tSOURCE\tDETAIL")
			for _, record := range history {
				detail := record.Error
				if detail == "" {
					detail = summarize(record.Output)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					record.Timestamp.Format("15:04:05"), record.Step, record.Source, detail)
			}
			return w.Flush()
		},
	}
}

// CapabilitiesCmd lists the registered capability providers.
func CapabilitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "List capability providers and their method signatures",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine(cmd)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ACTION\tINPUT\tOUTPUT")
			for _, descriptor := range engine.Runtime().Capabilities() {
				fmt.Fprintf(w, "%s.%s\t%s\t%s\n",
					descriptor.Service, descriptor.Method, descriptor.Input, descriptor.Output)
			}
			return w.Flush()
		},
	}
}

func summarize(values map[string]interface{}) string {
	if len(values) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(values))
	for k, v := range values {
		text := fmt.Sprint(v)
		if len(text) > 40 {
			text = text[:37] + "..."
		}
		parts = append(parts, fmt.Sprintf("%v=%v", k, text))
	}
	return strings.Join(parts, " ")
}
