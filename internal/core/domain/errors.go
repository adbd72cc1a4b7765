package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent orchestration failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfig indicates a configuration override could not be applied.
	ErrConfig = errors.New("invalid configuration")

	// ErrUnknownPolicy indicates a policy kind the factory cannot build.
	// "auto" is resolved by the selector and is never buildable.
	ErrUnknownPolicy = errors.New("unknown policy")

	// ErrRetrievalTimeout indicates retrieval produced nothing before its deadline.
	// For composite policies this is only returned when every sub-policy failed.
	ErrRetrievalTimeout = errors.New("retrieval timeout")

	// ErrGenerationUnavailable indicates no language model provider is reachable.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrPersistence indicates the history store rejected a write.
	// The orchestrator recovers from it; it never reaches the caller of Search.
	ErrPersistence = errors.New("persistence failed")

	// ErrHistoryUnavailable indicates no history store is configured.
	ErrHistoryUnavailable = errors.New("history unavailable")
)

// ConfigError describes a single rejected configuration key.
type ConfigError struct {
	Key    string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config %s=%v: %s", e.Key, e.Value, e.Reason)
}

// Unwrap allows errors.Is(err, ErrConfig).
func (e *ConfigError) Unwrap() error {
	return ErrConfig
}

// UnknownPolicyError names the kind that could not be instantiated.
type UnknownPolicyError struct {
	Kind PolicyKind
}

func (e *UnknownPolicyError) Error() string {
	return fmt.Sprintf("unknown policy %q", string(e.Kind))
}

// Unwrap allows errors.Is(err, ErrUnknownPolicy).
func (e *UnknownPolicyError) Unwrap() error {
	return ErrUnknownPolicy
}
