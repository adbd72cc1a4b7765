package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
)

// EnvPrefix is the prefix of environment overrides.
// POLYRAG_SEARCH__TOP_K_RESULTS=8 sets search.top_k_results.
const EnvPrefix = "POLYRAG_"

// Load builds settings from defaults, then the config store (if any), then the
// environment. Later layers win.
func Load(store driven.ConfigStore) (*Settings, error) {
	k, err := defaults()
	if err != nil {
		return nil, err
	}

	if store != nil {
		for key, value := range store.All() {
			if err := k.Set(key, value); err != nil {
				return nil, fmt.Errorf("apply %s from %s: %w", key, store.Path(), err)
			}
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	return decode(k)
}

// Check reports whether values, layered over the defaults, form valid settings.
// Keys use dot notation as in the config file.
func Check(values map[string]any) error {
	k, err := defaults()
	if err != nil {
		return err
	}
	for key, value := range values {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("apply %s: %w", key, err)
		}
	}
	_, err = decode(k)
	return err
}

// IsKey reports whether key names a setting, e.g. "search.top_k_results".
func IsKey(key string) bool {
	k, err := defaults()
	if err != nil {
		return false
	}
	return k.Exists(key) && !isSection(k, key)
}

func defaults() (*koanf.Koanf, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	return k, nil
}

func isSection(k *koanf.Koanf, key string) bool {
	_, ok := k.Get(key).(map[string]any)
	return ok
}

// envKey maps POLYRAG_LLM__OLLAMA__BASE_URL to llm.ollama.base_url.
func envKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "__", "."), value
}

func decode(k *koanf.Koanf) (*Settings, error) {
	var settings Settings
	if err := k.UnmarshalWithConf("", &settings, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &settings,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}

	settings.Search.Personalization = map[string]any{}

	if err := Validate(&settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Validate checks field constraints and cross-field rules.
func Validate(s *Settings) error {
	if err := validator.New().Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid setting %s: failed %q constraint", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("validate settings: %w", err)
	}
	if s.Search.FusionWeightText+s.Search.FusionWeightFacts+s.Search.FusionWeightGraph <= 0 {
		return errors.New("invalid setting search fusion weights: must sum to a positive value")
	}
	return nil
}
