package registry

import (
	"encoding/json"
	"testing"

	"github.com/golovatskygroup/mcp-devspace/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func argv(t *testing.T, name, raw string) []string {
	t.Helper()
	op, ok := DevSpace().Get(name)
	require.True(t, ok, name)
	in, err := op.Schema.Validate(json.RawMessage(raw))
	require.NoError(t, err)
	return op.Translate(in)
}

func TestCatalogSize(t *testing.T) {
	r := DevSpace()
	assert.Equal(t, 21, r.Count())
	assert.Len(t, r.Tools(), 21)
	assert.Equal(t, "devspace_init", r.Names()[0])
}

func TestPartitionCoversCatalog(t *testing.T) {
	r := DevSpace()
	project, global := r.Partition()
	assert.Equal(t, r.Count(), len(project)+len(global))

	seen := map[string]int{}
	for _, n := range append(append([]string{}, project...), global...) {
		seen[n]++
	}
	for _, n := range r.Names() {
		assert.Equal(t, 1, seen[n], n)
	}

	assert.ElementsMatch(t, []string{
		"devspace_dev", "devspace_deploy", "devspace_build", "devspace_logs",
		"devspace_cleanup", "devspace_purge", "devspace_list", "devspace_enter",
		"devspace_sync", "devspace_open", "devspace_print", "devspace_run",
	}, project)
	assert.Contains(t, global, "devspace_version")
	assert.Contains(t, global, "devspace_init")
}

func TestEveryOperationAcceptsWorkingDirectory(t *testing.T) {
	for _, op := range DevSpaceOperations() {
		var found bool
		for _, f := range op.Schema.Fields() {
			if f.Name == FieldWorkingDirectory {
				found = true
			}
		}
		assert.True(t, found, op.Name)
	}
}

func TestSetTranslation(t *testing.T) {
	assert.Equal(t, []string{"var", "FOO=bar"}, argv(t, "devspace_set", `{"type":"var","key":"FOO","value":"bar"}`))
}

func TestBuildTranslation(t *testing.T) {
	assert.Equal(t, []string{"--image", "web", "--force-build"},
		argv(t, "devspace_build", `{"images":["web"],"forceBuild":true}`))
	assert.Equal(t, []string{"--skip-push"}, argv(t, "devspace_build", `{"images":[],"skipPush":true}`))
	assert.Empty(t, argv(t, "devspace_build", `{}`))
}

func TestDevTranslation(t *testing.T) {
	got := argv(t, "devspace_dev", `{"profile":"prod","namespace":"ns","sync":false,"portforwarding":true}`)
	assert.Equal(t, []string{"--profile", "prod", "--namespace", "ns", "--sync=false", "--portforwarding"}, got)

	got = argv(t, "devspace_dev", `{"terminal":true}`)
	assert.Equal(t, []string{"--terminal"}, got)
}

func TestLogsTranslation(t *testing.T) {
	got := argv(t, "devspace_logs", `{"container":"api","follow":true,"lines":100}`)
	assert.Equal(t, []string{"--container", "api", "--follow", "--lines", "100"}, got)
}

func TestDeployEnterPrintTranslation(t *testing.T) {
	assert.Equal(t, []string{"--profile", "prod", "--namespace", "ns", "--force-build", "--force-deploy"},
		argv(t, "devspace_deploy", `{"profile":"prod","namespace":"ns","forceBuild":true,"forceDeploy":true}`))
	assert.Empty(t, argv(t, "devspace_deploy", `{"forceBuild":false}`))
	assert.Equal(t, []string{"--container", "api"}, argv(t, "devspace_enter", `{"container":"api"}`))
	assert.Empty(t, argv(t, "devspace_enter", `{}`))
	assert.Equal(t, []string{"--profile", "staging"}, argv(t, "devspace_print", `{"profile":"staging"}`))
	assert.Empty(t, argv(t, "devspace_print", `{}`))
}

func TestPositionalTranslations(t *testing.T) {
	assert.Equal(t, []string{"ports"}, argv(t, "devspace_list", `{"resource":"ports"}`))
	assert.Equal(t, []string{"namespace", "dev"}, argv(t, "devspace_use", `{"type":"namespace","name":"dev"}`))
	assert.Equal(t, []string{"profile"}, argv(t, "devspace_use", `{"type":"profile"}`))
	assert.Equal(t, []string{"pods"}, argv(t, "devspace_reset", `{"type":"pods"}`))
	assert.Equal(t, []string{"plugin", "https://example.com/p"}, argv(t, "devspace_add", `{"type":"plugin","source":"https://example.com/p"}`))
	assert.Equal(t, []string{"context", "old"}, argv(t, "devspace_remove", `{"type":"context","name":"old"}`))
	assert.Equal(t, []string{"migrate", "--", "--dry-run", "x"}, argv(t, "devspace_run", `{"command":"migrate","args":["--dry-run","x"]}`))
	assert.Equal(t, []string{"--port", "8090"}, argv(t, "devspace_ui", `{"port":8090}`))
	assert.Equal(t, []string{"--name", "app"}, argv(t, "devspace_init", `{"projectName":"app"}`))
}

func TestArgvPrependsSubcommand(t *testing.T) {
	op, ok := DevSpace().Get("devspace_version")
	require.True(t, ok)
	assert.Equal(t, []string{"version"}, op.Argv(schema.NewInput(nil)))
}

func TestTranslationIsDeterministic(t *testing.T) {
	op, _ := DevSpace().Get("devspace_deploy")
	in := schema.NewInput(map[string]any{"profile": "p", "forceBuild": true, "forceDeploy": false})
	assert.Equal(t, op.Translate(in), op.Translate(in))
}

func TestRequiredFieldsEnforced(t *testing.T) {
	for _, name := range []string{"devspace_list", "devspace_set", "devspace_run", "devspace_use", "devspace_reset", "devspace_add", "devspace_remove"} {
		op, _ := DevSpace().Get(name)
		_, err := op.Schema.Validate(json.RawMessage(`{}`))
		var v *schema.Violation
		assert.ErrorAs(t, err, &v, name)
	}
}

func TestNewRejectsDuplicates(t *testing.T) {
	ops := DevSpaceOperations()
	_, err := New(ops[0], ops[0])
	assert.ErrorContains(t, err, "duplicate operation")

	_, err = New(&Operation{Name: "x", Subcommand: "x"})
	assert.ErrorContains(t, err, "no schema")
}

func TestToolSchemaIsPublished(t *testing.T) {
	op, _ := DevSpace().Get("devspace_list")
	tool := op.Tool()
	var doc map[string]any
	require.NoError(t, json.Unmarshal(tool.InputSchema, &doc))
	assert.Equal(t, []any{"resource"}, doc["required"])
}

func TestSuggest(t *testing.T) {
	r := DevSpace()
	assert.Contains(t, r.Suggest("devspace_buld", 3), "devspace_build")
	assert.Contains(t, r.Suggest("deploy", 3), "devspace_deploy")
	assert.Empty(t, r.Suggest("", 3))
	assert.LessOrEqual(t, len(r.Suggest("devspace", 2)), 2)
}
