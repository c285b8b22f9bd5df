package openai

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/poiesic/docquery/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairJSON(t *testing.T) {
	t.Run("fixes missing opening quote on key", func(t *testing.T) {
		broken := `{tags": [{"tag":"finance","confidence":9}]}`
		repaired := repairJSON(broken)

		var parsed map[string]any
		require.NoError(t, json.Unmarshal([]byte(repaired), &parsed))
		assert.Contains(t, parsed, "tags")
	})

	t.Run("fixes missing quote after comma", func(t *testing.T) {
		broken := `{"tag":"finance", confidence": 9}`
		repaired := repairJSON(broken)

		var parsed map[string]any
		require.NoError(t, json.Unmarshal([]byte(repaired), &parsed))
		assert.Contains(t, parsed, "confidence")
	})

	t.Run("leaves valid JSON unchanged", func(t *testing.T) {
		valid := `{"tags": [{"tag":"science","confidence":7}]}`
		assert.Equal(t, valid, repairJSON(valid))
	})
}

func TestBuildClassifierPrompt(t *testing.T) {
	prompt := buildClassifierPrompt()

	// Schema and taxonomy are embedded
	assert.Contains(t, prompt, `"required": ["tag", "confidence"]`)
	for _, tag := range ai.TagTypes {
		assert.Contains(t, prompt, tag)
	}

	// The %% escape in the template must render as a literal percent sign
	assert.Contains(t, prompt, "12% year over year")
	assert.False(t, strings.Contains(prompt, "%!"), "prompt has a formatting error: %s", prompt)
}
