package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groups/snapshot"
)

const classJSON = `{
  "students": [
    {"id": 1, "name": "Ana", "gender": "female", "isLeader": true, "needsHelp": false, "preferences": [2]},
    {"id": 2, "name": "Ben", "gender": "male", "isLeader": false, "needsHelp": true, "preferences": []},
    {"id": 3, "name": "Cai", "gender": "male", "isLeader": false, "needsHelp": false, "preferences": [4]},
    {"id": 4, "name": "Dee", "gender": "female", "isLeader": true, "needsHelp": false, "preferences": []}
  ],
  "constraints": [
    {"id": "c1", "type": "cannot_be_together", "description": "Ben and Cai apart", "students": [2, 3], "enabled": true}
  ],
  "name": "class 1a"
}`

type result struct {
	code   int
	stdout string
	stderr string
}

func execute(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, strings.NewReader(stdin), &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func writeClass(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "class.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestGenerateTable(t *testing.T) {
	path := writeClass(t, classJSON)

	res := execute(t, "", "generate", "-f", path, "--size", "2", "--seed", "42")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "class 1a: 2 groups of up to 2")
	assert.Contains(t, res.stdout, "seed 42")
	assert.Contains(t, res.stdout, "Group 1")
	assert.Contains(t, res.stdout, "Group 2")
	assert.Contains(t, res.stdout, "Ana (F) ★")
	assert.Contains(t, res.stdout, "Ben (M) +")
	assert.Contains(t, res.stdout, "active constraints:     1")
}

func TestGenerateJSONIsDeterministic(t *testing.T) {
	path := writeClass(t, classJSON)

	first := execute(t, "", "generate", "-f", path, "--size", "2", "--seed", "7", "-o", "json")
	require.Equal(t, 0, first.code, first.stderr)
	second := execute(t, "", "generate", "-f", path, "--size", "2", "--seed", "7", "-o", "json")
	assert.Equal(t, first.stdout, second.stdout)

	var res snapshot.Result
	require.NoError(t, json.Unmarshal([]byte(first.stdout), &res))
	assert.Equal(t, 2, res.GroupSize)
	assert.Len(t, res.Groups, 2)
	require.NotNil(t, res.Seed)
	assert.Equal(t, int64(7), *res.Seed)
}

func TestGenerateYAMLFromStdin(t *testing.T) {
	res := execute(t, classJSON, "generate", "-f", "-", "--size", "2", "-o", "yaml")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "groupSize: 2")
	assert.Contains(t, res.stdout, "groups:")
}

func TestGenerateNoSolution(t *testing.T) {
	path := writeClass(t, `{"students": [
		{"id": 1, "name": "A", "gender": "male", "preferences": []},
		{"id": 2, "name": "B", "gender": "male", "preferences": []}
	], "constraints": [
		{"id": "x", "type": "cannot_be_together", "students": [1, 2], "enabled": true}
	]}`)

	res := execute(t, "", "generate", "-f", path, "--size", "2", "--attempts", "5")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "Error: no solution found after 5 attempts")
	assert.Empty(t, res.stdout)
}

func TestGenerateWarnsOnUnknownConstraintType(t *testing.T) {
	path := writeClass(t, strings.Replace(classJSON, `"cannot_be_together"`, `"sit_by_window"`, 1))

	res := execute(t, "", "generate", "-f", path, "--size", "2", "--seed", "1")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stderr, "sit_by_window")
}

func TestErrors(t *testing.T) {
	path := writeClass(t, classJSON)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing file flag", []string{"generate"}, "configuration file is required"},
		{"missing file", []string{"generate", "-f", filepath.Join(t.TempDir(), "nope.json")}, "no such file"},
		{"bad format", []string{"generate", "-f", path, "-o", "xml"}, `unknown output format "xml"`},
		{"bad gender", []string{"generate", "-f", writeClass(t, `{"students": [{"id": 1, "gender": "x"}]}`)}, "unknown gender"},
		{"missing groups", []string{"validate", "-f", path}, "groups file is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, "", tt.args...)
			assert.Equal(t, 1, res.code)
			assert.Contains(t, res.stderr, tt.want)
		})
	}
}

func TestValidateAndStats(t *testing.T) {
	path := writeClass(t, classJSON)
	groupsPath := filepath.Join(t.TempDir(), "groups.json")

	res := execute(t, "", "generate", "-f", path, "--size", "2", "--seed", "3", "--save", groupsPath, "-o", "json")
	require.Equal(t, 0, res.code, res.stderr)

	res = execute(t, "", "validate", "-f", path, "-g", groupsPath)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "valid")

	res = execute(t, "", "stats", "-f", path, "-g", groupsPath, "-o", "json")
	require.Equal(t, 0, res.code, res.stderr)
	var st snapshot.Stats
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &st))
	assert.Equal(t, 2, st.GroupsWithLeader)
	assert.Equal(t, 1, st.ActiveConstraints)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"groupSize": 2, "groups": [
		{"id": 1, "students": [1, 4]},
		{"id": 2, "students": [2, 3]}
	]}`), 0o644))

	res = execute(t, "", "validate", "-f", path, "-g", bad)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stdout, "invalid")
	assert.Contains(t, res.stdout, "c1: Ben and Cai apart")
	assert.Contains(t, res.stderr, "not a valid partition")

	res = execute(t, "", "validate", "-f", path, "-g", bad, "-o", "json")
	assert.Equal(t, 1, res.code)
	assert.JSONEq(t, `{"valid": false, "groupSize": 2, "violations": ["c1"]}`, res.stdout)

	res = execute(t, "", "stats", "-f", path, "-g", bad)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "groups with a leader:   1")
}

func TestSample(t *testing.T) {
	res := execute(t, "", "sample")
	require.Equal(t, 0, res.code, res.stderr)
	cfg, err := snapshot.Read(strings.NewReader(res.stdout))
	require.NoError(t, err)
	assert.Len(t, cfg.Students, 24)

	path := filepath.Join(t.TempDir(), "sample.json")
	res = execute(t, "", "sample", path)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stderr, "wrote 24 students and 20 constraints")
	cfg, err = snapshot.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Constraints, 20)
}

func TestVersion(t *testing.T) {
	res := execute(t, "", "version")
	require.Equal(t, 0, res.code)
	assert.Equal(t, "groups dev (none)\n", res.stdout)
}
