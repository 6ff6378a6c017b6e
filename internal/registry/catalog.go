package registry

import (
	"github.com/golovatskygroup/mcp-devspace/internal/args"
	"github.com/golovatskygroup/mcp-devspace/internal/schema"
)

// FieldWorkingDirectory is accepted by every operation.
const FieldWorkingDirectory = "workingDirectory"

// Project descriptor file names, in lookup order.
var ProjectDescriptors = []string{"devspace.yaml", "devspace.yml"}

func workingDirectory(desc string) schema.Field {
	return schema.Field{Name: FieldWorkingDirectory, Kind: schema.String, Description: desc}
}

func str(name, desc string) schema.Field {
	return schema.Field{Name: name, Kind: schema.String, Description: desc}
}

func requiredStr(name, desc string) schema.Field {
	return schema.Field{Name: name, Kind: schema.String, Description: desc, Required: true}
}

func oneOf(name, desc string, values ...string) schema.Field {
	return schema.Field{Name: name, Kind: schema.String, Description: desc, Required: true, Enum: values}
}

// flag fields default to false so that an absent value omits the flag.
func flag(name, desc string) schema.Field {
	return schema.Field{Name: name, Kind: schema.Boolean, Description: desc, Default: false}
}

func toggle(name, desc string) schema.Field {
	return schema.Field{Name: name, Kind: schema.Boolean, Description: desc}
}

func number(name, desc string) schema.Field {
	return schema.Field{Name: name, Kind: schema.Number, Description: desc}
}

func list(name, desc string) schema.Field {
	return schema.Field{Name: name, Kind: schema.StringArray, Description: desc}
}

const wdDesc = "Working directory to execute command in"

func op(name, sub, desc string, project bool, translate func(schema.Input) []string, fields ...schema.Field) *Operation {
	fields = append(fields, workingDirectory(wdDesc))
	return &Operation{
		Name:            name,
		Subcommand:      sub,
		Description:     desc,
		Schema:          schema.New(name, fields...),
		RequiresProject: project,
		translate:       translate,
	}
}

func noArgs(schema.Input) []string { return []string{} }

// DevSpace returns the full devspace operation catalog.
func DevSpace() *Registry {
	r, err := New(DevSpaceOperations()...)
	if err != nil {
		panic(err)
	}
	return r
}

// DevSpaceOperations lists every devspace operation in catalog order.
func DevSpaceOperations() []*Operation {
	return []*Operation{
		{
			Name:        "devspace_init",
			Subcommand:  "init",
			Description: "Initialize a new DevSpace project in the current directory or specified directory",
			Schema: schema.New("devspace_init",
				str("projectName", "Name of the project to initialize"),
				str("dockerfile", "Path to existing Dockerfile"),
				workingDirectory("Directory to initialize DevSpace in (defaults to current directory)"),
			),
			translate: func(in schema.Input) []string {
				return args.Build(
					args.Option("--name", in.String("projectName")),
					args.Option("--dockerfile", in.String("dockerfile")),
				)
			},
		},
		op("devspace_dev", "dev",
			"Start DevSpace development mode - deploys the project and starts file sync, port forwarding, and log streaming",
			true,
			func(in schema.Input) []string {
				return args.Build(
					args.Option("--profile", in.String("profile")),
					args.Option("--namespace", in.String("namespace")),
					args.Flag("--terminal", in.Bool("terminal")),
					args.Bool("--sync", in.Bool("sync")),
					args.Bool("--portforwarding", in.Bool("portforwarding")),
				)
			},
			str("profile", "DevSpace profile to use (optional)"),
			str("namespace", "Kubernetes namespace to use (optional)"),
			flag("terminal", "Open terminal instead of showing logs"),
			toggle("sync", "Enable file synchronization (default: true)"),
			toggle("portforwarding", "Enable port forwarding (default: true)"),
		),
		op("devspace_deploy", "deploy", "Deploy the DevSpace project to Kubernetes", true,
			func(in schema.Input) []string {
				return args.Build(
					args.Option("--profile", in.String("profile")),
					args.Option("--namespace", in.String("namespace")),
					args.Flag("--force-build", in.Bool("forceBuild")),
					args.Flag("--force-deploy", in.Bool("forceDeploy")),
				)
			},
			str("profile", "DevSpace profile to use (optional)"),
			str("namespace", "Kubernetes namespace to use (optional)"),
			flag("forceBuild", "Force rebuilding of images"),
			flag("forceDeploy", "Force redeployment"),
		),
		op("devspace_build", "build", "Build Docker images defined in the DevSpace configuration", true,
			func(in schema.Input) []string {
				return args.Build(
					args.Array("--image", in.Strings("images")),
					args.Flag("--force-build", in.Bool("forceBuild")),
					args.Flag("--skip-push", in.Bool("skipPush")),
				)
			},
			list("images", "Specific images to build (optional)"),
			flag("forceBuild", "Force rebuilding of images"),
			flag("skipPush", "Skip pushing images to registry"),
		),
		op("devspace_logs", "logs", "Stream logs from containers deployed by DevSpace", true,
			func(in schema.Input) []string {
				return args.Build(
					args.Option("--container", in.String("container")),
					args.Flag("--follow", in.Bool("follow")),
					args.Number("--lines", in.Number("lines")),
				)
			},
			str("container", "Specific container to get logs from (optional)"),
			flag("follow", "Follow log output continuously"),
			number("lines", "Number of lines to show"),
		),
		op("devspace_cleanup", "cleanup", "Clean up DevSpace deployments and resources", true, noArgs),
		op("devspace_purge", "purge", "Remove all DevSpace deployments from the cluster", true, noArgs),
		op("devspace_list", "list", "List DevSpace resources (deployments, ports, profiles, etc.)", true,
			func(in schema.Input) []string {
				return args.Build(args.Positional(in.Str("resource")))
			},
			oneOf("resource", "Type of resource to list",
				"deployments", "ports", "profiles", "vars", "contexts", "namespaces", "commands"),
		),
		op("devspace_enter", "enter", "Open an interactive terminal session to a container", true,
			func(in schema.Input) []string {
				return args.Build(args.Option("--container", in.String("container")))
			},
			str("container", "Container name or selector (optional)"),
		),
		op("devspace_sync", "sync", "Start file synchronization between local files and containers", true, noArgs),
		op("devspace_use", "use", "Switch DevSpace context, namespace, or profile", false,
			func(in schema.Input) []string {
				return args.Build(args.Positional(in.Str("type"), in.Str("name")))
			},
			oneOf("type", "Type of resource to use", "context", "namespace", "profile"),
			str("name", "Name of the resource to use (optional - will prompt if not provided)"),
		),
		op("devspace_reset", "reset", "Reset DevSpace variables, dependencies, or pods", false,
			func(in schema.Input) []string {
				return args.Build(args.Positional(in.Str("type")))
			},
			oneOf("type", "Type of resource to reset", "vars", "dependencies", "pods"),
		),
		op("devspace_set", "set", "Set DevSpace variables", false,
			func(in schema.Input) []string {
				return args.Build(args.Positional(in.Str("type"), in.Str("key")+"="+in.Str("value")))
			},
			oneOf("type", "Type of resource to set", "var"),
			requiredStr("key", "Variable key to set"),
			requiredStr("value", "Variable value to set"),
		),
		op("devspace_analyze", "analyze", "Analyze the current DevSpace configuration and cluster", false, noArgs),
		op("devspace_version", "version", "Show DevSpace version information", false, noArgs),
		op("devspace_ui", "ui", "Start the DevSpace localhost UI", false,
			func(in schema.Input) []string {
				return args.Build(args.Number("--port", in.Number("port")))
			},
			number("port", "Port to run the UI on"),
		),
		op("devspace_open", "open", "Open the current project in the browser", true, noArgs),
		op("devspace_print", "print", "Print the DevSpace configuration", true,
			func(in schema.Input) []string {
				return args.Build(args.Option("--profile", in.String("profile")))
			},
			str("profile", "DevSpace profile to use"),
		),
		op("devspace_run", "run", "Run a custom command defined in devspace.yaml", true,
			func(in schema.Input) []string {
				return args.Build(
					args.Positional(in.Str("command")),
					args.Array("--", in.Strings("args")),
				)
			},
			requiredStr("command", "Command name to run (from devspace.yaml)"),
			list("args", "Additional arguments to pass to the command"),
		),
		op("devspace_add", "add", "Add DevSpace plugins or other resources", false,
			func(in schema.Input) []string {
				return args.Build(args.Positional(in.Str("type"), in.Str("source")))
			},
			oneOf("type", "Type of resource to add", "plugin"),
			requiredStr("source", "Source URL or name of the resource to add"),
		),
		op("devspace_remove", "remove", "Remove DevSpace plugins or contexts", false,
			func(in schema.Input) []string {
				return args.Build(args.Positional(in.Str("type"), in.Str("name")))
			},
			oneOf("type", "Type of resource to remove", "plugin", "context"),
			requiredStr("name", "Name of the resource to remove"),
		),
	}
}
