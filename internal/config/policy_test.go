package config

import (
	"os"
	"path/filepath"
	"testing"

	gstdomain "github.com/smallbiznis/gstengine/internal/gst/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gst.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultPolicyIsValid(t *testing.T) {
	policy := DefaultGSTPolicy()
	require.NoError(t, ValidatePolicy(policy))

	assert.True(t, policy.IsUnionTerritory("ch"))
	assert.True(t, policy.IsUnionTerritory(" DL "))
	assert.False(t, policy.IsUnionTerritory("KA"))
	assert.False(t, policy.IsUnionTerritory(""))
	assert.Equal(t, "0.6", policy.CompositionRatioDecimal().String())
}

func TestPolicyHolderMergesFileWithDefaults(t *testing.T) {
	path := writePolicy(t, `
gst:
  compositionRatio: 0.5
  strategy: COMPONENT_RECORDS
  zones:
    north: [dl, hr]
`)

	holder, err := NewPolicyHolderFromFile(path, zap.NewNop())
	require.NoError(t, err)

	policy := holder.Get()
	assert.Equal(t, 0.5, policy.CompositionRatio)
	assert.Equal(t, gstdomain.StrategyComponentRecords, policy.Strategy)
	assert.Equal(t, int32(4), policy.RoundingScale)
	assert.Equal(t, DefaultGSTPolicy().UnionTerritories, policy.UnionTerritories)
	assert.Equal(t, map[string][]string{"NORTH": {"DL", "HR"}}, policy.Zones)
}

func TestPolicyHolderRejectsInvalidFile(t *testing.T) {
	cases := map[string]string{
		"ratio":    "gst:\n  compositionRatio: 1.5\n",
		"strategy": "gst:\n  strategy: average\n",
		"ut code":  "gst:\n  unionTerritories: [CHD]\n",
		"scale":    "gst:\n  roundingScale: 12\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewPolicyHolderFromFile(writePolicy(t, body), nil)
			assert.Error(t, err)
		})
	}
}

func TestStaticPolicy(t *testing.T) {
	policy := DefaultGSTPolicy()
	policy.CompositionRatio = 0.25

	var provider PolicyProvider = StaticPolicy(policy)
	assert.Equal(t, 0.25, provider.Get().CompositionRatio)
}
