package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/polyrag/internal/core/domain"
)

var (
	historyOffset int
	historyLimit  int
	historyJSON   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded searches",
	Long:  `Every completed search is recorded with its context and metrics.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent searches",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a recorded search",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	historyListCmd.Flags().IntVar(&historyOffset, "offset", 0, "number of records to skip")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of records")
	historyListCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
	historyShowCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}
	if svc.History == nil {
		return errors.New("history service not configured")
	}

	records, err := svc.History.List(cmd.Context(), historyOffset, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	if historyJSON {
		return writeJSON(cmd.OutOrStdout(), records)
	}

	w := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(w, "No searches recorded.")
		return nil
	}
	st := stylesFor(w)
	for i := range records {
		r := &records[i]
		fmt.Fprintf(w, "%s  %s  %-12s %s\n",
			st.Label.Render(fmt.Sprintf("#%d", r.ID)),
			st.Muted.Render(r.CreatedAt.Local().Format("2006-01-02 15:04")),
			r.Kind, r.Query)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("%w: invalid history id %q", domain.ErrInvalidInput, args[0])
	}

	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}
	if svc.History == nil {
		return errors.New("history service not configured")
	}

	rec, err := svc.History.Get(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get history record: %w", err)
	}
	if historyJSON {
		return writeJSON(cmd.OutOrStdout(), rec)
	}
	outputRecord(cmd.OutOrStdout(), rec)
	return nil
}

func outputRecord(w io.Writer, rec *domain.HistoryRecord) {
	st := stylesFor(w)
	fmt.Fprintf(w, "%s %d\n", st.Label.Render("Record:"), rec.ID)
	fmt.Fprintf(w, "%s %s\n", st.Label.Render("Query:"), rec.Query)
	fmt.Fprintf(w, "%s %s\n", st.Label.Render("When:"), rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))

	outputSearch(w, &domain.SearchResponse{
		Query:         rec.Query,
		RequestedKind: rec.RequestedKind,
		Kind:          rec.Kind,
		Response:      rec.Response,
		Context:       rec.Context,
		Metrics:       rec.Metrics,
		Selection:     rec.Selection,
	})
}
