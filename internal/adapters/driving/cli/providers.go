package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/polyrag/internal/core/domain"
)

var providersReconnect bool

var providersCmd = &cobra.Command{
	Use:     "providers",
	Aliases: []string{"doctor"},
	Short:   "Check the configured language model providers",
	Long: `Probes every configured provider in preference order. Generation uses the
first healthy one, marked active.

--reconnect makes the gateway drop its active provider and probe again.`,
	Args: cobra.NoArgs,
	RunE: runProviders,
}

func init() {
	providersCmd.Flags().BoolVar(&providersReconnect, "reconnect", false, "re-probe and reselect the active provider")
	rootCmd.AddCommand(providersCmd)
}

func runProviders(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}
	if svc.Providers == nil {
		return errors.New("provider checks not configured")
	}

	reports := svc.Providers(cmd.Context())
	w := cmd.OutOrStdout()
	if len(reports) == 0 {
		fmt.Fprintln(w, "No providers configured. Set llm.preference and the provider sections.")
		return nil
	}

	active, err := activeProvider(cmd, svc, reports)
	if err != nil {
		return err
	}

	st := stylesFor(w)
	for _, r := range reports {
		status := st.Success.Render("ok")
		switch {
		case r.Err != nil:
			status = st.Error.Render("unavailable")
		case r.Provider == active:
			status += st.Muted.Render(" (active)")
		}
		fmt.Fprintf(w, "  %-10s %-24s %s\n", r.Provider, r.Model, status)
		fmt.Fprintf(w, "  %-10s %s\n", "", st.Muted.Render(r.Provider.Description()+" "+r.BaseURL))
		if r.Err != nil {
			fmt.Fprintf(w, "  %-10s %s\n", "", st.Error.Render(r.Err.Error()))
		}
	}
	if active == "" {
		return errors.New("no healthy provider")
	}
	return nil
}

// activeProvider asks the gateway which provider generation uses. Without a
// gateway the first healthy report stands in.
func activeProvider(cmd *cobra.Command, svc *Services, reports []ProviderReport) (domain.AIProvider, error) {
	if svc.Gateway == nil {
		if providersReconnect {
			return "", errors.New("reconnect: no generation gateway configured")
		}
		for _, r := range reports {
			if r.Err == nil {
				return r.Provider, nil
			}
		}
		return "", nil
	}

	check := svc.Gateway.Init
	if providersReconnect {
		check = svc.Gateway.Reconnect
	}
	if err := check(cmd.Context()); err != nil && !errors.Is(err, domain.ErrGenerationUnavailable) {
		return "", fmt.Errorf("check providers: %w", err)
	}
	active := domain.AIProvider(svc.Gateway.Active())
	if providersReconnect && active != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Reconnected, generating with %s\n", active)
	}
	return active, nil
}
