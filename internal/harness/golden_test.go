package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_Testdata(t *testing.T) {
	for _, name := range []string{"inner_join", "two_joins", "grouped"} {
		t.Run(name, func(t *testing.T) {
			// Regenerate with: go test ./internal/harness -run TestRunWithGolden -update
			require.NoError(t, RunWithGolden(t, loadTestdata(t, name)))
		})
	}
}

func TestSnapshot_Deterministic(t *testing.T) {
	result, err := Run(loadTestdata(t, "two_joins"))
	require.NoError(t, err)

	first, err := Snapshot("two_joins", result)
	require.NoError(t, err)
	for range 5 {
		again, err := Snapshot("two_joins", result)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.NotContains(t, string(first), "\n")
}

func TestSnapshot_UncompilableStep(t *testing.T) {
	result, err := Run(loadTestdata(t, "inner_join"))
	require.NoError(t, err)
	result.Steps[1].Tree.Name = "select"

	_, err = Snapshot("broken", result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps[1]")
}
