package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleArgs struct {
	Query   string `json:"query" description:"what to look up"`
	Limit   int    `json:"limit,omitempty"`
	private string //nolint:unused // exercises the unexported-field skip
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(sampleArgs{})

	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	query, ok := props["query"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", query["type"])
	assert.Equal(t, "what to look up", query["description"])

	// omitempty fields are optional, unexported fields are skipped.
	required, ok := schema["required"].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"query"}, required)
	assert.NotContains(t, props, "private")
}

func TestValidateParameters(t *testing.T) {
	schema := CreateSchema(sampleArgs{})

	assert.NoError(t, ValidateParameters(map[string]any{"query": "recursion"}, schema))
	// JSON numbers arrive as float64; integral values pass integer checks.
	assert.NoError(t, ValidateParameters(map[string]any{"query": "x", "limit": float64(3)}, schema))

	err := ValidateParameters(map[string]any{}, schema)
	require.Error(t, err)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "query", vErr.Field)

	err = ValidateParameters(map[string]any{"query": 42}, schema)
	assert.Error(t, err)
}
