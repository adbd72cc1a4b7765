package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var policiesJSON bool

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "List retrieval policies",
	Args:  cobra.NoArgs,
	RunE:  runPolicies,
}

func init() {
	policiesCmd.Flags().BoolVar(&policiesJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(policiesCmd)
}

func runPolicies(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	policies := svc.Search.AvailablePolicies()
	if policiesJSON {
		return writeJSON(cmd.OutOrStdout(), policies)
	}

	w := cmd.OutOrStdout()
	st := stylesFor(w)
	for _, p := range policies {
		fmt.Fprintf(w, "  %-14s %s\n", st.Label.Render(string(p.ID)), p.Name)
		fmt.Fprintf(w, "  %-14s %s\n", "", st.Muted.Render(p.Description))
	}
	return nil
}
