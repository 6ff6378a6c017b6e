package format

import (
	"errors"
	"strings"
	"testing"

	"github.com/golovatskygroup/mcp-devspace/internal/process"
	"github.com/golovatskygroup/mcp-devspace/internal/validation"
	"github.com/stretchr/testify/assert"
)

func TestOutputSuccess(t *testing.T) {
	assert.Equal(t, "deployed", Output(process.Result{Stdout: "deployed"}))
}

func TestOutputSuccessWithWarnings(t *testing.T) {
	got := Output(process.Result{Stdout: "deployed", Stderr: "warn: old kubectl"})
	assert.Equal(t, "deployed\n\n⚠️ Warnings/Info:\nwarn: old kubectl", got)
	assert.NotContains(t, got, "❌")
}

func TestOutputFailure(t *testing.T) {
	got := Output(process.Result{Stdout: "partial", Stderr: "boom", ExitCode: 2})
	assert.Equal(t, "❌ Error (Exit Code: 2):\nboom\n\n📄 Output:\npartial", got)

	got = Output(process.Result{Stderr: "boom", ExitCode: 1})
	assert.Equal(t, "❌ Error (Exit Code: 1):\nboom", got)
}

func TestCommandResult(t *testing.T) {
	got := CommandResult("build", process.Result{Stdout: "ok"})
	assert.Equal(t, "DevSpace build Result:\n\nok", got)
}

func TestSuggestionsOrderAndAccumulation(t *testing.T) {
	got := Suggestions("permission denied: connection refused after timeout")
	assert.Len(t, got, 12)
	assert.True(t, strings.HasPrefix(got[0], "☸️"))
	assert.True(t, strings.HasPrefix(got[4], "⏱️"))
	assert.True(t, strings.HasPrefix(got[8], "🌐 Check network connectivity"))
}

func TestSuggestionsMissingDescriptor(t *testing.T) {
	got := Suggestions("open devspace.yaml: no such file or directory")
	assert.Contains(t, got, "🚀 Initialize a DevSpace project first: use devspace_init")

	assert.Empty(t, Suggestions("open other.yaml: no such file or directory"))
}

func TestSuggestionsCaseInsensitive(t *testing.T) {
	assert.NotEmpty(t, Suggestions("spawn devspace ENOENT"))
	assert.NotEmpty(t, Suggestions("Network unreachable"))
}

func TestErrorContextIsSorted(t *testing.T) {
	got := Error("devspace_build", errors.New("boom"), map[string]any{
		"zeta":  1,
		"alpha": "a",
		"args":  map[string]any{"images": []string{"web"}},
	})
	assert.True(t, strings.HasPrefix(got, "❌ Error in devspace_build: boom\n\n📋 Context:\n"))
	alpha := strings.Index(got, "alpha: a")
	args := strings.Index(got, "args: {")
	zeta := strings.Index(got, "zeta: 1")
	assert.True(t, alpha < args && args < zeta, got)
	assert.Contains(t, got, "\"images\": [")
	assert.NotContains(t, got, "Troubleshooting")
}

func TestErrorWithTimeout(t *testing.T) {
	got := Error("devspace_dev", &process.TimeoutError{Timeout: 300000000000}, nil)
	assert.Contains(t, got, "command timed out after 300000ms")
	assert.Contains(t, got, "💡 Troubleshooting Suggestions:")
	assert.Contains(t, got, "⏱️ Command may need more time to complete")
	assert.NotContains(t, got, "Context")
}

func TestOutcome(t *testing.T) {
	out := validation.Outcome{
		Valid:   false,
		Message: "Working directory does not exist: /nope",
		Details: map[string]any{"workingDirectory": "/nope"},
	}
	got := Outcome("devspace_deploy", out, map[string]any{"args": map[string]any{}})
	assert.Contains(t, got, "❌ Error in devspace_deploy: Working directory does not exist: /nope")
	assert.Contains(t, got, "details: {")
	assert.Contains(t, got, "\"workingDirectory\": \"/nope\"")
}
