// pkg/registry/registry_test.go
package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registryFixture = `{
	"version": "1.0.0",
	"lastUpdated": "2025-06-01",
	"activities": [
		{
			"id": "score-assessment",
			"displayName": "Score Assessment",
			"category": "assessment",
			"taskType": "score-assessment",
			"implementationStatus": "implemented",
			"errorCodes": ["INVALID_INPUT", "SCORE_FAILED"],
			"timeout": "30s",
			"retries": 3
		},
		{
			"id": "register-lead",
			"displayName": "Register Lead",
			"category": "crm",
			"taskType": "register-lead",
			"implementationStatus": "implemented",
			"errorCodes": ["CRM_PUSH_FAILED"],
			"timeout": "15s",
			"retries": 3
		}
	]
}`

func writeRegistry(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "activity-registry.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadRegistry(t *testing.T) {
	reg, err := LoadRegistry(writeRegistry(t, registryFixture))
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", reg.Version)
	require.Len(t, reg.Activities, 2)
	assert.Equal(t, "score-assessment", reg.Activities[0].TaskType)
	assert.NoError(t, reg.Validate())
}

func TestLoadRegistry_MissingFile(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadRegistry_InvalidJSON(t *testing.T) {
	_, err := LoadRegistry(writeRegistry(t, "{broken"))
	assert.Error(t, err)
}

func TestFindByTaskType(t *testing.T) {
	reg, err := LoadRegistry(writeRegistry(t, registryFixture))
	require.NoError(t, err)

	a, ok := reg.FindByTaskType("register-lead")
	require.True(t, ok)
	assert.Equal(t, "crm", a.Category)

	_, ok = reg.FindByTaskType("unknown-task")
	assert.False(t, ok)
}

func TestValidate_DuplicateTaskType(t *testing.T) {
	reg := &ActivityRegistry{Activities: []Activity{
		{ID: "a", TaskType: "score-assessment"},
		{ID: "b", TaskType: "score-assessment"},
	}}
	err := reg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registered by both")
}
