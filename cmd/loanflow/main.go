package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/viant/loanflow/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "loanflow",
		Short: "loanflow - resumable loan application engine",
		Long: `loanflow drives multi-step loan applications: it collects answers,
queries applicant and policy data, assesses risk, decides the application and
renders the agreement. Sessions survive restarts and stuck ones are handed to
a human operator.`,
	}
	rootCmd.PersistentFlags().String("config", "", "engine configuration YAML location")

	rootCmd.AddCommand(cli.ApplyCmd())
	rootCmd.AddCommand(cli.AdvanceCmd())
	rootCmd.AddCommand(cli.ResumeCmd())
	rootCmd.AddCommand(cli.StatusCmd())
	rootCmd.AddCommand(cli.ListCmd())
	rootCmd.AddCommand(cli.HistoryCmd())
	rootCmd.AddCommand(cli.EscalationCmd())
	rootCmd.AddCommand(cli.CapabilitiesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
