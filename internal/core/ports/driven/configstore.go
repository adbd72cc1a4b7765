package driven

// ConfigStore persists the user's settings file. Keys use dot notation
// ("search.top_k_results"); values keep the types the file format decodes to.
type ConfigStore interface {
	// Get returns the stored value for key and whether it exists.
	Get(key string) (any, bool)

	// All returns a copy of every stored key.
	All() map[string]any

	// Set stores a value and persists the file.
	Set(key string, value any) error

	// Unset removes key, and every key nested under it, and persists the file.
	// Removing a missing key is not an error.
	Unset(key string) error

	// Load re-reads the file, discarding unsaved state.
	Load() error

	// Path returns the file location.
	Path() string
}
