package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/golovatskygroup/mcp-devspace/internal/schema"
	"github.com/golovatskygroup/mcp-devspace/pkg/mcp"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Operation maps one tool to one devspace subcommand.
type Operation struct {
	Name            string
	Subcommand      string
	Description     string
	Schema          *schema.Schema
	RequiresProject bool

	translate func(schema.Input) []string
}

// Translate returns the argument list that follows the subcommand.
func (o *Operation) Translate(in schema.Input) []string {
	if o.translate == nil {
		return []string{}
	}
	return o.translate(in)
}

// Argv is the full argument vector passed to the devspace binary.
func (o *Operation) Argv(in schema.Input) []string {
	return append([]string{o.Subcommand}, o.Translate(in)...)
}

// Tool renders the discovery entry for tools/list.
func (o *Operation) Tool() mcp.Tool {
	return mcp.Tool{
		Name:        o.Name,
		Description: o.Description,
		InputSchema: o.Schema.JSON(),
	}
}

// Category groups operations for the server instructions
type Category struct {
	Name        string
	Description string
	Tools       []string
}

const (
	CategoryProject = "project"
	CategoryGlobal  = "global"
)

// Registry is the immutable operation catalog
type Registry struct {
	ops   map[string]*Operation
	order []string
}

// New builds a registry, rejecting duplicate or incomplete operations.
func New(ops ...*Operation) (*Registry, error) {
	r := &Registry{ops: make(map[string]*Operation, len(ops))}
	for _, op := range ops {
		if op == nil || strings.TrimSpace(op.Name) == "" {
			return nil, fmt.Errorf("operation name cannot be empty")
		}
		if op.Schema == nil {
			return nil, fmt.Errorf("operation %s has no schema", op.Name)
		}
		if strings.TrimSpace(op.Subcommand) == "" {
			return nil, fmt.Errorf("operation %s has no subcommand", op.Name)
		}
		if _, dup := r.ops[op.Name]; dup {
			return nil, fmt.Errorf("duplicate operation: %s", op.Name)
		}
		r.ops[op.Name] = op
		r.order = append(r.order, op.Name)
	}
	return r, nil
}

// Get returns an operation by name
func (r *Registry) Get(name string) (*Operation, bool) {
	op, ok := r.ops[name]
	return op, ok
}

// Names returns operation names in catalog order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Count returns the number of operations
func (r *Registry) Count() int {
	return len(r.order)
}

// Tools returns discovery entries in catalog order.
func (r *Registry) Tools() []mcp.Tool {
	out := make([]mcp.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.ops[name].Tool())
	}
	return out
}

// Categories splits the catalog into operations that need a devspace
// project and those that run anywhere. Every operation is in exactly one.
func (r *Registry) Categories() []Category {
	project := Category{Name: CategoryProject, Description: "Require devspace.yaml in the working directory"}
	global := Category{Name: CategoryGlobal, Description: "Run in any directory"}
	for _, name := range r.order {
		if r.ops[name].RequiresProject {
			project.Tools = append(project.Tools, name)
		} else {
			global.Tools = append(global.Tools, name)
		}
	}
	return []Category{project, global}
}

// Partition returns the project and global operation names.
func (r *Registry) Partition() (project, global []string) {
	cats := r.Categories()
	return cats[0].Tools, cats[1].Tools
}

// Suggest returns up to limit known names close to an unknown one.
func (r *Registry) Suggest(name string, limit int) []string {
	if limit <= 0 {
		limit = 3
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil
	}

	var out []string
	seen := map[string]struct{}{}

	ranks := fuzzy.RankFindFold(name, r.order)
	sort.Sort(ranks)
	for _, rank := range ranks {
		if len(out) == limit {
			return out
		}
		out = append(out, rank.Target)
		seen[rank.Target] = struct{}{}
	}

	type scored struct {
		name string
		dist int
	}
	var close []scored
	for _, candidate := range r.order {
		if _, ok := seen[candidate]; ok {
			continue
		}
		d := fuzzy.LevenshteinDistance(name, candidate)
		if alt := fuzzy.LevenshteinDistance(name, strings.TrimPrefix(candidate, "devspace_")); alt < d {
			d = alt
		}
		if d <= 3 {
			close = append(close, scored{candidate, d})
		}
	}
	sort.SliceStable(close, func(i, j int) bool { return close[i].dist < close[j].dist })
	for _, c := range close {
		if len(out) == limit {
			break
		}
		out = append(out, c.name)
	}
	return out
}
