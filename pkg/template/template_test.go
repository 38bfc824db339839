package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_FieldAccess(t *testing.T) {
	data := map[string]any{
		"field":  "tags.equipment",
		"actual": "cutting board",
	}

	result, err := Render("{{ .field }} was {{ .actual }}", data)
	require.NoError(t, err)
	assert.Equal(t, "tags.equipment was cutting board", result)
}

func TestRender_Functions(t *testing.T) {
	data := map[string]any{
		"expected": []any{"PREP", "HEAT"},
		"names":    []string{"fryer", "oven"},
	}

	result, err := Render(`{{ json .expected }} / {{ join .names ", " }} / {{ upper "sec" }}`, data)
	require.NoError(t, err)
	assert.Equal(t, `["PREP","HEAT"] / fryer, oven / SEC`, result)
}

func TestRender_MissingKeyRendersEmpty(t *testing.T) {
	result, err := Render("value: {{ .missing }}", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "value: <no value>", result)
}

func TestRender_InvalidTemplate(t *testing.T) {
	_, err := Render("{{ .field ", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse template")
}

func TestNeedsTemplating(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{input: "plain message", expected: false},
		{input: "{{ .field }} failed", expected: true},
		{input: "only {{ opening", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NeedsTemplating(tt.input))
		})
	}
}
