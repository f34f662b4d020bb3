package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// EscalationCmd groups the operator-facing commands.
func EscalationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "escalation",
		Short: "Operate on escalated sessions",
		Long:  "List, inspect and resolve sessions waiting on a human operator.",
	}
	cmd.AddCommand(escalationListCmd(), escalationShowCmd(), escalationResolveCmd())
	return cmd
}

func escalationListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending escalations",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine(cmd)
			if err != nil {
				return err
			}
			pending, err := engine.Escalations().ListPending(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list escalations: %w", err)
			}
			if len(pending) == 0 {
				fmt.Println("No pending escalations.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSESSION\tSTEP\tREASON\tCREATED")
			for _, record := range pending {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					record.ID, record.SessionID, record.Step, record.Reason,
					record.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
}

func escalationShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <escalation-id>",
		Short: "Show escalation detail with the session snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine(cmd)
			if err != nil {
				return err
			}
			record, err := engine.Escalations().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(record, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
}

func escalationResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <escalation-id>",
		Short: "Resolve an escalation with operator-supplied fields",
		Long: `Resolve a pending escalation. Fields are supplied as key=value pairs and
merge into the session before it continues, e.g.:

  loanflow escalation resolve 4f1d... --set amount=200000 --set city=Mumbai

Alternatively decline the application, which fails the session:

  loanflow escalation resolve 4f1d... --decline "identity could not be verified"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine(cmd)
			if err != nil {
				return err
			}
			pairs, _ := cmd.Flags().GetStringArray("set")
			decline, _ := cmd.Flags().GetString("decline")
			if decline != "" {
				if len(pairs) > 0 {
					return fmt.Errorf("--decline cannot be combined with --set")
				}
				sess, err := engine.Escalations().Decline(cmd.Context(), args[0], decline)
				if err != nil {
					return fmt.Errorf("failed to decline escalation: %w", err)
				}
				printView(sess.View())
				return nil
			}
			response := make(map[string]interface{}, len(pairs))
			for _, pair := range pairs {
				key, value, err := splitPair(pair)
				if err != nil {
					return err
				}
				response[key] = value
			}
			sess, err := engine.Escalations().Resolve(cmd.Context(), args[0], response)
			if err != nil {
				return fmt.Errorf("failed to resolve escalation: %w", err)
			}
			printView(sess.View())
			return nil
		},
	}
	cmd.Flags().StringArray("set", nil, "field to merge into the session, key=value")
	cmd.Flags().String("decline", "", "decline the application with a reason, failing the session")
	return cmd
}

// splitPair parses key=value, keeping numeric values numeric.
func splitPair(pair string) (string, interface{}, error) {
	idx := strings.Index(pair, "=")
	if idx <= 0 {
		return "", nil, fmt.Errorf("invalid --set %q, expected key=value", pair)
	}
	key, raw := pair[:idx], pair[idx+1:]
	if number, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64); err == nil {
		return key, number, nil
	}
	return key, raw, nil
}
