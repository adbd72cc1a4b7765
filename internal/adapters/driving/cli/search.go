package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/polyrag/internal/core/domain"
)

const snippetLength = 160

var (
	searchPolicy    string
	searchLimit     int
	searchSet       []string
	searchThreshold float64
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Answer a question from retrieved context",
	Long: `Retrieves context with a retrieval policy and generates an answer.

Policies:
  auto          - the selector picks a policy (default)
  text          - passage similarity search
  facts         - structured fact lookup
  graph         - knowledge graph path search
  hybrid        - all three sources fused by weight
  smart_hybrid  - fusion over the sources the selector favours

Configuration can be overridden per request with --set key=value. Unknown
keys are passed to generation as personalization.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchPolicy, "policy", "p", "auto", "retrieval policy")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of context items (0 = top_k_results)")
	searchCmd.Flags().StringArrayVar(&searchSet, "set", nil, "configuration override as key=value (repeatable)")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", 0, "auto-selection confidence threshold (0 = configured)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output the response as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	kind, ok := domain.ParsePolicyKind(searchPolicy)
	if !ok {
		return &domain.UnknownPolicyError{Kind: domain.PolicyKind(searchPolicy)}
	}
	overrides, err := parseOverrides(searchSet)
	if err != nil {
		return err
	}

	resp, err := svc.Search.Search(cmd.Context(), domain.SearchRequest{
		Query:              args[0],
		Policy:             kind,
		Limit:              searchLimit,
		Overrides:          overrides,
		SelectionThreshold: searchThreshold,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return writeJSON(cmd.OutOrStdout(), resp)
	}
	outputSearch(cmd.OutOrStdout(), resp)
	return nil
}

// parseOverrides turns key=value pairs into an override map.
func parseOverrides(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: override %q must be key=value", domain.ErrInvalidInput, pair)
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func outputSearch(w io.Writer, resp *domain.SearchResponse) {
	st := stylesFor(w)

	policy := resp.Kind.Name()
	if resp.RequestedKind != resp.Kind {
		policy += " (" + string(resp.RequestedKind) + ")"
	}
	fmt.Fprintf(w, "%s %s\n", st.Label.Render("Policy:"), policy)
	if resp.Selection != nil {
		fmt.Fprintln(w, st.Muted.Render(resp.Selection.Explanation))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, st.Answer.Render(resp.Response))
	fmt.Fprintln(w)

	var items []domain.RetrievalItem
	if resp.Context != nil {
		items = resp.Context.Items
	}
	if len(items) == 0 {
		fmt.Fprintln(w, st.Warning.Render("No context retrieved."))
	} else {
		fmt.Fprintln(w, st.Title.Render("Sources:"))
		for i, item := range items {
			fmt.Fprintf(w, "  [%d] %s (%.2f, %s)\n", i+1, item.Key, item.Score, item.Source)
			fmt.Fprintf(w, "      %s\n", st.Muted.Render(snippet(item.Content)))
		}
	}
	fmt.Fprintln(w)

	m := resp.Metrics
	tokens := fmt.Sprintf("%d", m.TokensUsed)
	if m.TokensEstimated {
		tokens += " (estimated)"
	}
	fmt.Fprintln(w, st.Muted.Render(fmt.Sprintf(
		"search %s | generation %s | total %s | tokens %s",
		formatDuration(m.SearchTime), formatDuration(m.GenerationTime), formatDuration(m.TotalTime), tokens)))
	if resp.RecordID != nil {
		fmt.Fprintln(w, st.Muted.Render(fmt.Sprintf("history #%d", *resp.RecordID)))
	}
}

func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= snippetLength {
		return s
	}
	return string(r[:snippetLength]) + "..."
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
