// Package services implements the driving port interfaces.
// Services contain the orchestration logic and call out to driven
// ports (retrieval backends, language model providers, history stores).
package services
