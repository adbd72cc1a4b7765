package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/polyrag/internal/config"
	"github.com/custodia-labs/polyrag/internal/core/domain"
)

var configJSON bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and change settings",
	Long: `Settings live in a TOML file (default ~/.polyrag/config.toml).
Environment variables prefixed with POLYRAG_ override the file, e.g.
POLYRAG_SEARCH__TOP_K_RESULTS=8.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show stored settings and retrieval defaults",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Store a setting",
	Long: `Store a setting in the config file. Keys use dot notation:

  polyrag config set search.top_k_results 8
  polyrag config set llm.preference ollama,openai
  polyrag config set llm.openai.api_key sk-...

The value is rejected when the resulting settings are invalid.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset [key]",
	Short: "Remove a stored setting",
	Long: `Remove a setting from the config file so the default applies again.
A section name removes every key in it:

  polyrag config unset llm.openai`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigUnset,
}

func init() {
	configShowCmd.Flags().BoolVar(&configJSON, "json", false, "output as JSON")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	stored := map[string]any{}
	path := ""
	if svc.Store != nil {
		path = svc.Store.Path()
		for k, v := range svc.Store.All() {
			stored[k] = maskSecret(k, v)
		}
	}
	var defaults domain.RAGConfig
	if svc.Config != nil {
		defaults = svc.Config.Defaults()
	}

	if configJSON {
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"path":     path,
			"stored":   stored,
			"defaults": defaults,
		})
	}

	w := cmd.OutOrStdout()
	st := stylesFor(w)
	fmt.Fprintln(w, st.Title.Render("Config file"))
	if path == "" {
		path = "(none)"
	}
	fmt.Fprintf(w, "  %s\n\n", path)

	fmt.Fprintln(w, st.Title.Render("[Stored]"))
	if len(stored) == 0 {
		fmt.Fprintln(w, st.Muted.Render("  (nothing stored, using defaults)"))
	}
	printSorted(w, stored)
	fmt.Fprintln(w)

	if svc.Config == nil {
		return nil
	}
	fmt.Fprintln(w, st.Title.Render("[Retrieval defaults]"))
	flat, err := toMap(defaults)
	if err != nil {
		return err
	}
	delete(flat, "personalization")
	printSorted(w, flat)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, raw := strings.TrimSpace(args[0]), args[1]
	if !config.IsKey(key) {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrConfig, key)
	}

	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}
	if svc.Store == nil {
		return errors.New("config store not configured")
	}

	value := parseValue(raw)
	values := svc.Store.All()
	values[key] = value
	if err := config.Check(values); err != nil {
		return fmt.Errorf("%w: %s=%s: %w", domain.ErrConfig, key, raw, err)
	}

	if err := svc.Store.Set(key, value); err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}
	cmd.Printf("Set %s = %v\n", key, maskSecret(key, value))
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	key := strings.TrimSpace(args[0])
	if key == "" {
		return fmt.Errorf("%w: empty key", domain.ErrInvalidInput)
	}

	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}
	if svc.Store == nil {
		return errors.New("config store not configured")
	}

	before := len(svc.Store.All())
	if err := svc.Store.Unset(key); err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}
	if len(svc.Store.All()) == before {
		cmd.Printf("%s was not set\n", key)
		return nil
	}
	cmd.Printf("Unset %s\n", key)
	return nil
}

// parseValue converts a command line value to the closest TOML type.
func parseValue(raw string) any {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if strings.Contains(raw, ",") {
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return raw
}

func maskSecret(key string, v any) any {
	s, ok := v.(string)
	if !ok || !strings.HasSuffix(key, "api_key") {
		return v
	}
	if s == "" {
		return "(not set)"
	}
	return maskAPIKey(s)
}

func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func printSorted(w io.Writer, m map[string]any) {
	for _, k := range slices.Sorted(maps.Keys(m)) {
		fmt.Fprintf(w, "  %s = %v\n", k, m[k])
	}
}
