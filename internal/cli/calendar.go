package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ashita-ai/kiroku/internal/calendar"
	"github.com/ashita-ai/kiroku/internal/service/journal"
)

var calendarFlags struct {
	out string
	all bool
}

var calendarCmd = &cobra.Command{
	Use:   "calendar [id]",
	Short: "Export review reminders as an iCalendar file",
	Long: "Writes all-day review events importable into any calendar application. " +
		"With an id, exports that decision's reminder; with --all, every pending decision.",
	Args: cobra.MaximumNArgs(1),
	RunE: runCalendar,
}

func init() {
	calendarCmd.Flags().StringVar(&calendarFlags.out, "out", "", "output file (default stdout)")
	calendarCmd.Flags().BoolVar(&calendarFlags.all, "all", false, "export every pending decision")
}

func runCalendar(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var ics string
	switch {
	case len(args) == 1:
		d, err := resolveDecision(cmd, a, args[0])
		if err != nil {
			return err
		}
		ics = calendar.ReviewEvent(d)
	case calendarFlags.all:
		pending := false
		decisions, err := a.Journal().ListFiltered(cmd.Context(),
			journal.Filters{Reviewed: &pending}, journal.SortReviewDate, journal.Asc)
		if err != nil {
			return err
		}
		ics = calendar.ReviewEvents(decisions)
	default:
		return fmt.Errorf("provide a decision id or --all")
	}

	if calendarFlags.out == "" {
		fmt.Print(ics)
		return nil
	}
	if err := os.WriteFile(calendarFlags.out, []byte(ics), 0o600); err != nil {
		return fmt.Errorf("write calendar: %w", err)
	}
	fmt.Printf("Wrote %s\n", calendarFlags.out)
	return nil
}
