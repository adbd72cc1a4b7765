package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/polyrag/internal/core/domain"
)

func TestProvidersCmd(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "providers")

	require.NoError(t, err)
	assert.Contains(t, out, "tgi")
	assert.Contains(t, out, "unavailable")
	assert.Contains(t, out, "connection refused")
	assert.Contains(t, out, "ok (active)")
}

func TestProvidersCmd_DoctorAlias(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "doctor")

	assert.NoError(t, err)
}

func TestProvidersCmd_NoneHealthy(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	services.Providers = func(context.Context) []ProviderReport {
		return []ProviderReport{{Provider: domain.AIProviderOllama, Err: errors.New("refused")}}
	}

	_, err := execute(t, "providers")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no healthy provider")
}

func TestProvidersCmd_NoneConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	services.Providers = func(context.Context) []ProviderReport { return nil }

	out, err := execute(t, "providers")

	require.NoError(t, err)
	assert.Contains(t, out, "No providers configured")
}

func TestProvidersCmd_GatewayNamesActive(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	gw := &mockGateway{active: "ollama"}
	services.Gateway = gw

	out, err := execute(t, "providers")

	require.NoError(t, err)
	assert.Contains(t, out, "ok (active)")
	assert.Equal(t, 1, gw.inits)
	assert.Zero(t, gw.reconnects)
}

func TestProvidersCmd_Reconnect(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	services.Providers = func(context.Context) []ProviderReport {
		return []ProviderReport{
			{Provider: domain.AIProviderTGI, Model: "mistral"},
			{Provider: domain.AIProviderOllama, Model: "llama3.2"},
		}
	}
	gw := &mockGateway{active: "ollama", afterRetry: "tgi"}
	services.Gateway = gw

	out, err := execute(t, "providers", "--reconnect")

	require.NoError(t, err)
	assert.Equal(t, 1, gw.reconnects)
	assert.Zero(t, gw.inits)
	assert.Contains(t, out, "Reconnected, generating with tgi")
	assert.Regexp(t, `tgi\s+mistral\s+ok \(active\)`, out)
	assert.NotRegexp(t, `ollama\s+llama3\.2\s+ok \(active\)`, out)
}

func TestProvidersCmd_GatewayWithoutActive(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	services.Gateway = &mockGateway{}

	out, err := execute(t, "providers")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no healthy provider")
	assert.NotContains(t, out, "(active)")
}

func TestProvidersCmd_ReconnectNeedsGateway(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "providers", "--reconnect")

	assert.ErrorContains(t, err, "no generation gateway")
}
