package services

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/custodia-labs/polyrag/internal/core/domain"
	"github.com/custodia-labs/polyrag/internal/core/ports/driving"
	"github.com/custodia-labs/polyrag/internal/logger"
)

// Ensure ConfigService implements the interface.
var _ driving.ConfigResolver = (*ConfigService)(nil)

// ConfigService resolves per-request retrieval configuration from the
// process defaults and request overrides.
type ConfigService struct {
	defaults domain.RAGConfig

	// fields maps lower-cased field names to their canonical key.
	fields   map[string]string
	validate *validator.Validate
}

// NewConfigService creates a resolver over the given defaults.
func NewConfigService(defaults domain.RAGConfig) (*ConfigService, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(domain.RAGConfig{}, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("inspect config fields: %w", err)
	}

	fields := make(map[string]string, len(k.Keys()))
	for _, key := range k.Keys() {
		fields[strings.ToLower(key)] = key
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &ConfigService{
		defaults: defaults.Clone(),
		fields:   fields,
		validate: v,
	}, nil
}

// Defaults returns a copy of the process defaults.
func (s *ConfigService) Defaults() domain.RAGConfig {
	return s.defaults.Clone()
}

// Resolve applies overrides to the process defaults.
func (s *ConfigService) Resolve(overrides map[string]any) (domain.RAGConfig, error) {
	return s.resolveFrom(s.defaults, overrides)
}

// Override applies overrides on top of cfg. New overrides win on conflict.
func (s *ConfigService) Override(cfg domain.RAGConfig, overrides map[string]any) (domain.RAGConfig, error) {
	return s.resolveFrom(cfg, overrides)
}

// IsKnown reports whether key names a configuration field.
func (s *ConfigService) IsKnown(key string) bool {
	_, ok := s.fields[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

func (s *ConfigService) resolveFrom(base domain.RAGConfig, overrides map[string]any) (domain.RAGConfig, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(base, "koanf"), nil); err != nil {
		return domain.RAGConfig{}, fmt.Errorf("load base config: %w", err)
	}

	personalization := maps.Clone(base.Personalization)
	if personalization == nil {
		personalization = map[string]any{}
	}

	for key, value := range overrides {
		canonical, ok := s.fields[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			logger.Debug("config: %q is not a known field, storing as personalization", key)
			personalization[key] = value
			continue
		}
		if err := checkField(canonical, value); err != nil {
			return domain.RAGConfig{}, &domain.ConfigError{Key: canonical, Value: value, Reason: err.Error()}
		}
		if err := k.Set(canonical, value); err != nil {
			return domain.RAGConfig{}, &domain.ConfigError{Key: canonical, Value: value, Reason: err.Error()}
		}
	}

	var cfg domain.RAGConfig
	if err := unmarshalConfig(k.All(), &cfg); err != nil {
		return domain.RAGConfig{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Personalization = personalization

	if err := s.check(cfg); err != nil {
		return domain.RAGConfig{}, err
	}
	return cfg, nil
}

// check applies field constraints and the fusion weight rule.
func (s *ConfigService) check(cfg domain.RAGConfig) error {
	if err := s.validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			reason := fmt.Sprintf("failed %q constraint", fe.Tag())
			if fe.Param() != "" {
				reason = fmt.Sprintf("failed %q constraint (%s)", fe.Tag(), fe.Param())
			}
			return &domain.ConfigError{Key: fe.Field(), Value: fe.Value(), Reason: reason}
		}
		return fmt.Errorf("validate config: %w", err)
	}
	if cfg.FusionWeightText+cfg.FusionWeightFacts+cfg.FusionWeightGraph <= 0 {
		return &domain.ConfigError{Key: "fusion_w_text", Reason: "fusion weights must sum to a positive value"}
	}
	return nil
}

// checkField decodes a single value into a scratch configuration so a
// coercion failure names the offending key.
func checkField(key string, value any) error {
	if value == nil {
		return errors.New("value is required")
	}
	var scratch domain.RAGConfig
	return unmarshalConfig(map[string]any{key: value}, &scratch)
}

func unmarshalConfig(input map[string]any, out *domain.RAGConfig) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "koanf",
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
