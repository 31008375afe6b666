package cli

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashita-ai/kiroku/internal/stats"
)

var statsFlags struct {
	monthly bool
	asJSON  bool
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show journal statistics and calibration",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsFlags.monthly, "monthly", false, "show the month-by-month series")
	statsCmd.Flags().BoolVar(&statsFlags.asJSON, "json", false, "print raw JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	decisions, err := a.Journal().ListAll(cmd.Context())
	if err != nil {
		return err
	}
	s := stats.Calculate(decisions, time.Now())

	if statsFlags.asJSON {
		return printJSON(s)
	}

	fmt.Printf("Decisions: %d total, %d reviewed, %d pending, %d this month\n",
		s.TotalDecisions, s.ReviewedDecisions, s.PendingReviews, s.DecisionsThisMonth)
	if s.ReviewedDecisions > 0 {
		fmt.Printf("Calibration: avg confidence %d%%, avg rating %.1f, gap %+d\n",
			s.AvgConfidence, s.AvgRating, s.CalibrationGap)
	}

	if len(s.CategoryBreakdown) > 0 {
		fmt.Println("\nBy category:")
		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		for _, name := range sortedKeys(s.CategoryBreakdown) {
			b := s.CategoryBreakdown[name]
			fmt.Fprintf(w, "  %s\t%d decisions\tavg rating %.1f\n", name, b.Count, b.AvgRating)
		}
		w.Flush()
	}

	if statsFlags.monthly {
		series := stats.TimeSeries(decisions)
		fmt.Println("\nBy month:")
		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		for _, p := range series {
			rating := "-"
			if p.Rating != nil {
				rating = fmt.Sprintf("%.1f", *p.Rating)
			}
			fmt.Fprintf(w, "  %s\t%d decisions\tconfidence %d%%\trating %s\n",
				p.Month, p.Count, p.Confidence, rating)
		}
		w.Flush()
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
