package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ashita-ai/kiroku"
	"github.com/ashita-ai/kiroku/internal/model"
	"github.com/ashita-ai/kiroku/internal/service/journal"
	"github.com/ashita-ai/kiroku/internal/storage"
)

var addFlags struct {
	title        string
	date         string
	category     string
	decisionType string
	options      []string
	chosen       string
	reasoning    string
	expected     string
	confidence   int
	stakes       string
	horizon      int
	tags         []string
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a new decision",
	RunE:  runAdd,
}

func init() {
	f := addCmd.Flags()
	f.StringVar(&addFlags.title, "title", "", "short decision title (required)")
	f.StringVar(&addFlags.date, "date", "", "decision date YYYY-MM-DD (required)")
	f.StringVar(&addFlags.category, "category", "other", "category name")
	f.StringVar(&addFlags.decisionType, "type", string(model.TypeBinary), "binary, multi, or open")
	f.StringSliceVar(&addFlags.options, "option", nil, "considered option (repeatable)")
	f.StringVar(&addFlags.chosen, "chosen", "", "chosen option (required)")
	f.StringVar(&addFlags.reasoning, "reasoning", "", "why this choice")
	f.StringVar(&addFlags.expected, "expected", "", "predicted outcome")
	f.IntVar(&addFlags.confidence, "confidence", 50, "confidence 0-100")
	f.StringVar(&addFlags.stakes, "stakes", string(model.StakesMedium), "low, medium, or high")
	f.IntVar(&addFlags.horizon, "horizon", 30, "days until review")
	f.StringSliceVar(&addFlags.tags, "tag", nil, "tag (repeatable)")
	_ = addCmd.MarkFlagRequired("title")
	_ = addCmd.MarkFlagRequired("date")
	_ = addCmd.MarkFlagRequired("chosen")
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	d, err := a.Journal().Create(cmd.Context(), journal.CreateInput{
		Title:           addFlags.title,
		Date:            addFlags.date,
		Category:        addFlags.category,
		DecisionType:    model.DecisionType(addFlags.decisionType),
		Options:         addFlags.options,
		ChosenOption:    addFlags.chosen,
		Reasoning:       addFlags.reasoning,
		ExpectedOutcome: addFlags.expected,
		Confidence:      addFlags.confidence,
		Stakes:          model.Stakes(addFlags.stakes),
		HorizonDays:     addFlags.horizon,
		Tags:            addFlags.tags,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Recorded %s (review due %s)\n", d.ID, d.ReviewDate)
	return nil
}

var listFlags struct {
	category string
	stakes   string
	reviewed bool
	pending  bool
	search   string
	sortBy   string
	desc     bool
	due      bool
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List decisions with optional filters",
	RunE:  runList,
}

func init() {
	f := listCmd.Flags()
	f.StringVar(&listFlags.category, "category", "", "filter by category")
	f.StringVar(&listFlags.stakes, "stakes", "", "filter by stakes")
	f.BoolVar(&listFlags.reviewed, "reviewed", false, "only reviewed decisions")
	f.BoolVar(&listFlags.pending, "pending", false, "only unreviewed decisions")
	f.StringVar(&listFlags.search, "search", "", "substring match on title, reasoning, tags")
	f.StringVar(&listFlags.sortBy, "sort", "date", "date, confidence, reviewDate, or stakes")
	f.BoolVar(&listFlags.desc, "desc", false, "sort descending")
	f.BoolVar(&listFlags.due, "due", false, "only decisions due for review")
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	filters := journal.Filters{
		Category:    listFlags.category,
		Stakes:      model.Stakes(listFlags.stakes),
		NeedsReview: listFlags.due,
		Search:      listFlags.search,
	}
	if listFlags.reviewed {
		t := true
		filters.Reviewed = &t
	} else if listFlags.pending {
		f := false
		filters.Reviewed = &f
	}

	order := journal.Asc
	if listFlags.desc {
		order = journal.Desc
	}
	decisions, err := a.Journal().ListFiltered(cmd.Context(), filters, journal.SortField(listFlags.sortBy), order)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tTITLE\tCATEGORY\tSTAKES\tCONF\tREVIEW")
	for _, d := range decisions {
		status := "due " + d.ReviewDate
		if d.Reviewed() {
			if r, ok := d.Rating(); ok {
				status = fmt.Sprintf("rated %d/5", r)
			} else {
				status = "reviewed"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d%%\t%s\n",
			shortID(d.ID), d.Date, d.Title, d.Category, d.Stakes, d.Confidence, status)
	}
	return w.Flush()
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one decision in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	d, err := resolveDecision(cmd, a, args[0])
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

var reviewFlags struct {
	outcome    string
	rating     int
	lessons    string
	sameChoice bool
	matched    string
	factors    []string
	quality    string
}

var reviewCmd = &cobra.Command{
	Use:   "review <id>",
	Short: "Record the outcome of a decision",
	Args:  cobra.ExactArgs(1),
	RunE:  runReview,
}

func init() {
	f := reviewCmd.Flags()
	f.StringVar(&reviewFlags.outcome, "outcome", "", "what actually happened (required)")
	f.IntVar(&reviewFlags.rating, "rating", 0, "outcome rating 1-5 (required)")
	f.StringVar(&reviewFlags.lessons, "lessons", "", "lessons learned")
	f.BoolVar(&reviewFlags.sameChoice, "same-choice", false, "would make the same choice again")
	f.StringVar(&reviewFlags.matched, "matched", "", "exceeded, met, partial, or missed")
	f.StringSliceVar(&reviewFlags.factors, "factor", nil, "contributing factor (repeatable)")
	f.StringVar(&reviewFlags.quality, "quality", "", "excellent, good, fair, or poor")
	_ = reviewCmd.MarkFlagRequired("outcome")
	_ = reviewCmd.MarkFlagRequired("rating")
}

func runReview(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	d, err := resolveDecision(cmd, a, args[0])
	if err != nil {
		return err
	}
	d, err = a.Journal().RecordReview(cmd.Context(), d.ID, journal.ReviewInput{
		ActualOutcome:             reviewFlags.outcome,
		Rating:                    reviewFlags.rating,
		LessonsLearned:            reviewFlags.lessons,
		SameChoiceAgain:           reviewFlags.sameChoice,
		OutcomeMatchedExpectation: model.MatchLevel(reviewFlags.matched),
		ContributingFactors:       reviewFlags.factors,
		DecisionQuality:           model.Quality(reviewFlags.quality),
	})
	if err != nil {
		return err
	}
	gap := d.Confidence - (reviewFlags.rating-1)*25
	fmt.Printf("Reviewed %q: rated %d/5, confidence was %d%% (gap %+d)\n",
		d.Title, reviewFlags.rating, d.Confidence, gap)
	return nil
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a decision",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	d, err := resolveDecision(cmd, a, args[0])
	if err != nil {
		return err
	}
	if err := a.Journal().Delete(cmd.Context(), d.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted %q\n", d.Title)
	return nil
}

// resolveDecision accepts a full id or an unambiguous prefix.
func resolveDecision(cmd *cobra.Command, a *kiroku.App, ref string) (model.Decision, error) {
	d, err := a.Journal().Get(cmd.Context(), ref)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return model.Decision{}, err
	}

	all, err := a.Journal().ListAll(cmd.Context())
	if err != nil {
		return model.Decision{}, err
	}
	var matches []model.Decision
	for _, d := range all {
		if strings.HasPrefix(d.ID, ref) {
			matches = append(matches, d)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return model.Decision{}, fmt.Errorf("no decision matches %q", ref)
	default:
		return model.Decision{}, fmt.Errorf("ambiguous id %q matches %d decisions", ref, len(matches))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
