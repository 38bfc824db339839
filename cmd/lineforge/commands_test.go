package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/lineforge/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const buildYAML = `
id: build-fries
itemId: item-fries
status: draft
workUnits:
  - id: portion
    tags:
      action: PORTION
      target: {name: Fries}
  - id: fry
    tags:
      action: HEAT
      target: {name: Fries}
      equipment: Deep fryer
      duration: {value: 3, unit: min, activity: passive}
    dependsOn: [portion]
  - id: plate
    tags:
      action: PLATE
      target: {name: Fries}
    dependsOn: [fry]
`

const rulesYAML = `
rules:
  - id: heat-needs-equipment
    name: Heat steps name equipment
    type: structured
    appliesTo: [HEAT]
    condition: {field: tags.equipment, operator: notEmpty}
  - id: plate-station
    name: Plating happens at a station
    type: structured
    appliesTo: [PLATE]
    condition: {field: tags.station, operator: notEmpty}
    failureMessage: Plating steps need a station
  - id: sensible-equipment
    name: Equipment suits the target
    type: semantic
    appliesTo: [HEAT]
    prompt: Is the equipment appropriate for the target?
    domain: equipment
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	command := newCommand()
	command.Writer = &out
	command.ErrWriter = io.Discard

	err := command.Run(context.Background(), append([]string{"lineforge"}, args...))

	return out.String(), err
}

func TestValidate_StructuredOnly(t *testing.T) {
	build := writeFile(t, "build.yaml", buildYAML)
	rules := writeFile(t, "rules.yaml", rulesYAML)

	out, err := run(t, "validate", "--build", build, "--rules", rules, "--structured-only")
	require.ErrorIs(t, err, errPromotionBlocked)

	var status models.BuildValidationStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))

	assert.Equal(t, "build-fries", status.BuildID)
	assert.True(t, status.IsDraft)
	assert.True(t, status.HasStructuredFailures)
	assert.False(t, status.HasSemanticFailures)
	assert.Equal(t, 1, status.FailureCount)
}

func TestValidate_BlockedWithoutReasoningService(t *testing.T) {
	t.Setenv("REASONING_API_KEY", "")

	build := writeFile(t, "build.yaml", buildYAML)
	rules := writeFile(t, "rules.json", `[{"id": "s", "name": "S", "type": "semantic", "appliesTo": "all", "prompt": "ok?"}]`)

	out, err := run(t, "validate", "--build", build, "--rules", rules)
	require.ErrorIs(t, err, errPromotionBlocked)
	assert.Contains(t, err.Error(), "3 semantic rule evaluation(s) skipped")

	var status models.BuildValidationStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Zero(t, status.FailureCount)
}

func TestValidate_InvalidRules(t *testing.T) {
	build := writeFile(t, "build.yaml", buildYAML)
	rules := writeFile(t, "rules.yaml", "- id: r\n  name: R\n  type: structured\n  appliesTo: all\n  condition: {field: tags.x, operator: matches}\n")

	_, err := run(t, "validate", "--build", build, "--rules", rules, "--structured-only")
	require.ErrorIs(t, err, models.ErrRuleInvalid)
}

func TestCheckEdge(t *testing.T) {
	build := writeFile(t, "build.yaml", buildYAML)

	tests := []struct {
		name        string
		unit        string
		deps        string
		expectedOut string
		expectedErr bool
	}{
		{name: "accepted", unit: "plate", deps: "fry, portion", expectedOut: "ok\n"},
		{name: "cycle", unit: "portion", deps: "plate", expectedOut: "making \"portion\" depend on \"plate\" would create a circular dependency\n", expectedErr: true},
		{name: "self", unit: "fry", deps: "fry", expectedOut: "work unit \"fry\" cannot depend on itself\n", expectedErr: true},
		{name: "empty", unit: "fry", deps: "", expectedOut: "ok\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, "check-edge", "--build", build, "--unit", tt.unit, "--deps", tt.deps)

			assert.Equal(t, tt.expectedOut, out)

			if tt.expectedErr {
				assert.ErrorIs(t, err, errEdgeRejected)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMatchEquipment(t *testing.T) {
	tests := []struct {
		args     []string
		expected string
	}{
		{args: []string{"Deep", "fryer"}, expected: "fryer\n"},
		{args: []string{"heat lamp"}, expected: "hot_hold_wells\n"},
		{args: []string{"campfire"}, expected: "no match\n"},
		{args: nil, expected: "no match\n"},
	}

	for _, tt := range tests {
		out, err := run(t, append([]string{"match-equipment"}, tt.args...)...)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, out)
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b ,"))
	assert.Nil(t, splitList(""))
}
