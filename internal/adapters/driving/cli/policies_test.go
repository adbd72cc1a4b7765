package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/polyrag/internal/core/domain"
)

func TestPoliciesCmd(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "policies")

	require.NoError(t, err)
	for _, k := range domain.AllPolicyKinds() {
		assert.Contains(t, out, string(k))
		assert.Contains(t, out, k.Name())
	}
}

func TestPoliciesCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "policies", "--json")

	require.NoError(t, err)
	var got []domain.PolicyDescriptor
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, domain.PolicyDescriptors(), got)
}
