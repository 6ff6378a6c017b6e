// Package format renders process results and failures as display text.
package format

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/golovatskygroup/mcp-devspace/internal/process"
	"github.com/golovatskygroup/mcp-devspace/internal/validation"
)

// Output renders a finished process. Exit code 0 is success even when the
// program wrote to stderr; that text becomes a warnings section.
func Output(res process.Result) string {
	var b strings.Builder
	if res.ExitCode == 0 {
		b.WriteString(res.Stdout)
		if res.Stderr != "" {
			b.WriteString("\n\n⚠️ Warnings/Info:\n")
			b.WriteString(res.Stderr)
		}
		return b.String()
	}

	fmt.Fprintf(&b, "❌ Error (Exit Code: %d):\n", res.ExitCode)
	b.WriteString(res.Stderr)
	if res.Stdout != "" {
		b.WriteString("\n\n📄 Output:\n")
		b.WriteString(res.Stdout)
	}
	return b.String()
}

// CommandResult is the text returned for a completed devspace subcommand.
func CommandResult(subcommand string, res process.Result) string {
	return fmt.Sprintf("DevSpace %s Result:\n\n%s", subcommand, Output(res))
}

type rule struct {
	match       func(msg string) bool
	suggestions []string
}

func containsAny(subs ...string) func(string) bool {
	return func(msg string) bool {
		for _, s := range subs {
			if strings.Contains(msg, s) {
				return true
			}
		}
		return false
	}
}

// rules are checked in order; every match contributes its checklist.
var rules = []rule{
	{
		match: containsAny("command not found", "executable file not found", "enoent"),
		suggestions: []string{
			"🔧 Install DevSpace CLI: https://devspace.sh/docs/getting-started/installation",
			"🔍 Verify DevSpace is in your PATH: `devspace version`",
			"⚙️ Check if DevSpace binary has execute permissions",
		},
	},
	{
		match: func(msg string) bool {
			return strings.Contains(msg, "no such file or directory") && strings.Contains(msg, "devspace.yaml")
		},
		suggestions: []string{
			"🚀 Initialize a DevSpace project first: use devspace_init",
			"📂 Ensure you are in the correct project directory",
			"🔎 Check if devspace.yaml was moved or deleted",
		},
	},
	{
		match: containsAny("denied", "permission"),
		suggestions: []string{
			"☸️ Check Kubernetes cluster access: `kubectl cluster-info`",
			"🔐 Verify your kubeconfig is configured correctly",
			"👤 Ensure you have permissions in the target namespace",
			"🔑 Check file/directory permissions",
		},
	},
	{
		match: containsAny("timeout", "timed out"),
		suggestions: []string{
			"⏱️ Command may need more time to complete",
			"🌐 Check network connectivity to Kubernetes cluster",
			"🔄 Try running the command again",
			"📊 Check cluster resource availability",
		},
	},
	{
		match: containsAny("connection refused", "network"),
		suggestions: []string{
			"🌐 Check network connectivity",
			"🔧 Verify Kubernetes cluster is running",
			"🚪 Check if required ports are open",
			"📱 Verify proxy/firewall settings",
		},
	},
}

// Suggestions returns the remediation checklist for an error message.
// Matching is case-insensitive.
func Suggestions(msg string) []string {
	lower := strings.ToLower(msg)
	var out []string
	for _, r := range rules {
		if r.match(lower) {
			out = append(out, r.suggestions...)
		}
	}
	return out
}

// Error renders a failure for tool with sorted context and suggestions.
func Error(tool string, err error, context map[string]any) string {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Message(tool, msg, context)
}

// Message is Error for a plain message.
func Message(tool, msg string, context map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "❌ Error in %s: %s", tool, msg)

	if len(context) > 0 {
		b.WriteString("\n\n📋 Context:\n")
		keys := make([]string, 0, len(context))
		for k := range context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %s\n", k, contextValue(context[k]))
		}
	}

	if s := Suggestions(msg); len(s) > 0 {
		b.WriteString("\n\n💡 Troubleshooting Suggestions:\n")
		for _, line := range s {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	return b.String()
}

func contextValue(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string, bool, int, int64, float64:
		return fmt.Sprint(v)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// Outcome renders a failed validation. Its details are merged into context
// under "details".
func Outcome(tool string, out validation.Outcome, context map[string]any) string {
	merged := make(map[string]any, len(context)+1)
	for k, v := range context {
		merged[k] = v
	}
	if len(out.Details) > 0 {
		merged["details"] = out.Details
	}
	msg := out.Message
	if msg == "" {
		msg = "Validation failed"
	}
	return Message(tool, msg, merged)
}
