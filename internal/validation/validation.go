// Package validation is the pre-flight gate run before every devspace call:
// the CLI must be installed, the working directory usable, and, for
// project operations, a devspace descriptor present.
package validation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golovatskygroup/mcp-devspace/internal/process"
	"github.com/golovatskygroup/mcp-devspace/internal/registry"
	"gopkg.in/yaml.v3"
)

// ToolTimeout bounds the `devspace version` probe.
const ToolTimeout = 10 * time.Second

// Stage names, used as metric labels.
const (
	StageTool      = "tool"
	StageDirectory = "directory"
	StageProject   = "project"
)

// Outcome is the result of one stage or of the whole chain.
type Outcome struct {
	Valid   bool           `json:"valid"`
	Stage   string         `json:"stage,omitempty"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func fail(stage, msg string, details map[string]any) Outcome {
	return Outcome{Valid: false, Stage: stage, Message: msg, Details: details}
}

// Runner is the subset of process.Invoker the chain needs.
type Runner interface {
	Run(ctx context.Context, program string, args []string, opts ...process.Option) (process.Result, error)
}

// Chain runs the stages in order and stops at the first failure.
type Chain struct {
	binary string
	runner Runner

	// checkProject is replaceable so tests can observe whether stage 3 ran.
	checkProject func(dir string) Outcome
}

// NewChain returns a chain that probes binary through runner.
func NewChain(binary string, runner Runner) *Chain {
	c := &Chain{binary: binary, runner: runner}
	c.checkProject = CheckProject
	return c
}

// Run validates op in workingDir. The returned error is non-nil only when
// ctx was cancelled during the tool probe.
func (c *Chain) Run(ctx context.Context, op *registry.Operation, workingDir string) (Outcome, error) {
	tool, err := c.CheckTool(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if !tool.Valid {
		return tool, nil
	}

	if workingDir != "" {
		if dir := CheckDirectory(workingDir); !dir.Valid {
			return dir, nil
		}
	}

	if op.RequiresProject {
		if proj := c.checkProject(workingDir); !proj.Valid {
			return proj, nil
		}
	}

	return Outcome{
		Valid:   true,
		Message: "All validations passed",
		Details: map[string]any{
			"command":          op.Name,
			"requiresProject":  op.RequiresProject,
			"workingDirectory": effectiveDir(workingDir),
		},
	}, nil
}

// CheckTool runs `<binary> version` under ToolTimeout.
func (c *Chain) CheckTool(ctx context.Context) (Outcome, error) {
	res, err := c.runner.Run(ctx, c.binary, []string{"version"}, process.WithTimeout(ToolTimeout))
	if err != nil {
		if errors.Is(err, process.ErrCancelled) {
			return Outcome{}, err
		}
		cause := err.Error()
		if process.IsTimeout(err) {
			cause = fmt.Sprintf("DevSpace CLI check timed out after %d seconds", int(ToolTimeout/time.Second))
		}
		return fail(StageTool, "DevSpace CLI validation error: "+cause, map[string]any{
			"error":       err.Error(),
			"suggestions": toolHints(),
		}), nil
	}

	if res.ExitCode != 0 {
		return fail(StageTool, "DevSpace CLI check failed", map[string]any{
			"exitCode":    res.ExitCode,
			"stderr":      res.Stderr,
			"suggestions": toolHints(),
		}), nil
	}

	return Outcome{
		Valid:   true,
		Stage:   StageTool,
		Message: "DevSpace CLI is available",
		Details: map[string]any{"version": mergeOutput(res)},
	}, nil
}

func toolHints() []string {
	return []string{
		"Install DevSpace CLI: https://devspace.sh/docs/getting-started/installation",
		"Ensure devspace is in your PATH",
		"Check DevSpace CLI permissions",
		"Try running \"devspace version\" manually",
	}
}

func mergeOutput(res process.Result) string {
	switch {
	case res.Stdout == "":
		return res.Stderr
	case res.Stderr == "":
		return res.Stdout
	}
	return res.Stdout + "\n" + res.Stderr
}

// CheckDirectory verifies dir exists, is a directory, and is readable and
// traversable by this process.
func CheckDirectory(dir string) Outcome {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fail(StageDirectory, "Working directory validation error", map[string]any{
			"workingDirectory": dir,
			"error":            err.Error(),
		})
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fail(StageDirectory, "Working directory does not exist: "+abs, map[string]any{
				"workingDirectory": abs,
				"suggestions": []string{
					"Check if the directory path is correct",
					"Create the directory if it should exist",
					"Use an absolute path",
				},
			})
		}
		return fail(StageDirectory, "Working directory validation error", map[string]any{
			"workingDirectory": abs,
			"error":            err.Error(),
		})
	}

	if !info.IsDir() {
		return fail(StageDirectory, "Path is not a directory: "+abs, map[string]any{
			"workingDirectory": abs,
			"suggestions": []string{
				"Provide a directory path, not a file path",
				"Check the path is correct",
			},
		})
	}

	if err := accessible(abs); err != nil {
		return fail(StageDirectory, "Cannot access working directory: "+abs, map[string]any{
			"workingDirectory": abs,
			"error":            err.Error(),
			"suggestions": []string{
				"Check directory permissions",
				"Ensure you have read and execute permissions",
			},
		})
	}

	return Outcome{
		Valid:   true,
		Stage:   StageDirectory,
		Message: "Working directory is valid",
		Details: map[string]any{"workingDirectory": abs},
	}
}

// CheckProject looks for a devspace descriptor in dir, or the current
// directory when dir is empty.
func CheckProject(dir string) Outcome {
	base := effectiveDir(dir)

	var path string
	var info os.FileInfo
	for _, name := range registry.ProjectDescriptors {
		candidate := filepath.Join(base, name)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			path, info = candidate, fi
			break
		}
	}

	if path == "" {
		return fail(StageProject, "No DevSpace configuration found in "+base, map[string]any{
			"searchedFiles": searched(base),
			"suggestions": []string{
				"Run \"devspace init\" to initialize a DevSpace project",
				"Navigate to a directory containing devspace.yaml",
				"Specify the correct working directory",
			},
		})
	}

	if info.Size() == 0 {
		return fail(StageProject, "DevSpace configuration file is empty: "+path, map[string]any{
			"configPath": path,
			"suggestions": []string{
				"Run \"devspace init\" to regenerate the configuration",
				"Check if the file was corrupted",
			},
		})
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fail(StageProject, "Cannot read DevSpace configuration: "+path, map[string]any{
			"configPath": path,
			"error":      err.Error(),
			"suggestions": []string{
				"Check file permissions",
				"Ensure the file is not locked by another process",
			},
		})
	}

	details := map[string]any{
		"configPath":   path,
		"configSize":   info.Size(),
		"lastModified": info.ModTime().UTC().Format(time.RFC3339),
	}
	if v := descriptorVersion(data); v != "" {
		details["configVersion"] = v
	}
	return Outcome{
		Valid:   true,
		Stage:   StageProject,
		Message: "DevSpace project configuration found",
		Details: details,
	}
}

// descriptorVersion reads the top-level `version:` key. Parse errors are
// ignored; devspace itself reports them with better context.
func descriptorVersion(data []byte) string {
	var doc struct {
		Version any `yaml:"version"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil || doc.Version == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(doc.Version))
}

func searched(base string) []string {
	out := make([]string, 0, len(registry.ProjectDescriptors))
	for _, name := range registry.ProjectDescriptors {
		out = append(out, filepath.Join(base, name))
	}
	return out
}

func effectiveDir(dir string) string {
	if dir == "" {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
		return "."
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}
