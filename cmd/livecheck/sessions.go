package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/livecheck/internal/store"
)

var listLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect recorded liveness sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		sessions, err := st.Sessions().List(listLimit)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATE\tOUTCOME\tSCORE\tSTARTED")
		fmt.Fprintln(w, "--\t-----\t-------\t-----\t-------")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.3f\t%s\n", s.ID, s.State, outcomeLabel(s), s.BestScore,
				s.StartedAt.Local().Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a session and its event history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		s, err := st.Sessions().GetByID(args[0])
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("session %s not found", args[0])
			}
			return err
		}

		fmt.Printf("Session:  %s\n", s.ID)
		fmt.Printf("State:    %s\n", s.State)
		fmt.Printf("Outcome:  %s\n", outcomeLabel(s))
		fmt.Printf("Score:    %.3f\n", s.BestScore)
		fmt.Printf("Started:  %s\n", s.StartedAt.Local().Format("2006-01-02 15:04:05"))
		if s.CompletedAt != nil {
			fmt.Printf("Finished: %s\n", s.CompletedAt.Local().Format("2006-01-02 15:04:05"))
		}

		events, err := st.Events().ListBySession(s.ID)
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		fmt.Println()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "TIME\tTYPE\tSTATE\tCHALLENGE\tMESSAGE")
		for _, e := range events {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.CreatedAt.Local().Format("15:04:05.000"),
				e.Type, e.State, e.Challenge, e.Message)
		}
		return w.Flush()
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a session with its events and capture",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Sessions().Delete(args[0]); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("session %s not found", args[0])
			}
			return err
		}
		fmt.Printf("Deleted session %s\n", args[0])
		return nil
	},
}

func outcomeLabel(s *store.Session) string {
	if !s.Completed() {
		return "-"
	}
	return s.Outcome
}

func init() {
	sessionsListCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum sessions to list (0 for all)")
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}
