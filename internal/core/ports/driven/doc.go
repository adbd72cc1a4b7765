// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - RetrievalBackend: One per source (text, facts, graph)
//   - HistoryStore: Append-only search history
//   - ConfigStore: Application configuration file
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMProvider: Without any reachable provider, generation fails with
//     domain.ErrGenerationUnavailable.
//   - LearnedScorer: Without it, policy selection is heuristic-only.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
