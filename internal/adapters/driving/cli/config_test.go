package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/polyrag/internal/core/domain"
)

func TestConfigShowCmd(t *testing.T) {
	env, cleanup := setupTestServices()
	defer cleanup()
	env.store.data["search.top_k_results"] = int64(8)
	env.store.data["llm.openai.api_key"] = "sk-123456789abcdef"

	out, err := execute(t, "config", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "/tmp/polyrag/config.toml")
	assert.Contains(t, out, "search.top_k_results = 8")
	assert.Contains(t, out, "llm.openai.api_key = sk-1...cdef")
	assert.NotContains(t, out, "123456789")
	assert.Contains(t, out, "[Retrieval defaults]")
	assert.Contains(t, out, "graph_max_depth = 3")
}

func TestConfigShowCmd_Empty(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "config")

	require.NoError(t, err)
	assert.Contains(t, out, "nothing stored")
}

func TestConfigSetCmd(t *testing.T) {
	env, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "config", "set", "search.top_k_results", "8")

	require.NoError(t, err)
	assert.Contains(t, out, "Set search.top_k_results = 8")
	assert.Equal(t, int64(8), env.store.data["search.top_k_results"])
}

func TestConfigSetCmd_List(t *testing.T) {
	env, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "config", "set", "llm.preference", "ollama, openai")

	require.NoError(t, err)
	assert.Equal(t, []string{"ollama", "openai"}, env.store.data["llm.preference"])
}

func TestConfigSetCmd_MasksAPIKey(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "config", "set", "llm.anthropic.api_key", "sk-ant-0123456789")

	require.NoError(t, err)
	assert.NotContains(t, out, "0123456789")
}

func TestConfigSetCmd_UnknownKey(t *testing.T) {
	env, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "config", "set", "search.top_k", "8")

	assert.ErrorIs(t, err, domain.ErrConfig)
	assert.Empty(t, env.store.data)
}

func TestConfigSetCmd_InvalidValue(t *testing.T) {
	env, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "config", "set", "selector.threshold", "1.5")

	assert.ErrorIs(t, err, domain.ErrConfig)
	assert.Empty(t, env.store.data)
}

func TestConfigUnsetCmd(t *testing.T) {
	env, cleanup := setupTestServices()
	defer cleanup()
	env.store.data["llm.openai.api_key"] = "sk-123456789abcdef"
	env.store.data["llm.openai.model"] = "gpt-4o-mini"
	env.store.data["search.top_k_results"] = int64(8)

	out, err := execute(t, "config", "unset", "llm.openai")

	require.NoError(t, err)
	assert.Contains(t, out, "Unset llm.openai")
	assert.Equal(t, map[string]any{"search.top_k_results": int64(8)}, env.store.data)
}

func TestConfigUnsetCmd_NotSet(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "config", "unset", "search.top_k_results")

	require.NoError(t, err)
	assert.Contains(t, out, "was not set")
}

func TestConfigUnsetCmd_EmptyKey(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "config", "unset", " ")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, false, parseValue("False"))
	assert.Equal(t, int64(1), parseValue("1"))
	assert.Equal(t, 0.25, parseValue("0.25"))
	assert.Equal(t, []string{"a", "b"}, parseValue("a,b"))
	assert.Equal(t, "2s", parseValue("2s"))
}
