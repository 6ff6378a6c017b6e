// Package args folds an ordered list of directives into a devspace argv.
package args

import (
	"strconv"
)

type kind int

const (
	kindPositional kind = iota
	kindFlag
	kindOption
	kindBool
	kindArray
)

// Directive is one step of an argument list. Directives are values; the
// token list is produced by Build and never reordered afterwards.
type Directive struct {
	kind   kind
	name   string
	value  *string
	cond   *bool
	values []string
}

// Positional emits each non-empty value verbatim.
func Positional(values ...string) Directive {
	return Directive{kind: kindPositional, values: values}
}

// Flag emits name unless cond is explicitly false. A nil cond emits the flag.
func Flag(name string, cond *bool) Directive {
	return Directive{kind: kindFlag, name: name, cond: cond}
}

// Option emits [name, value] when value is present.
func Option(name string, value *string) Directive {
	return Directive{kind: kindOption, name: name, value: value}
}

// Number emits [name, value] when value is present, in base-10 decimal.
func Number(name string, value *float64) Directive {
	if value == nil {
		return Directive{kind: kindOption, name: name}
	}
	s := strconv.FormatFloat(*value, 'f', -1, 64)
	return Directive{kind: kindOption, name: name, value: &s}
}

// Bool emits name for true, "name=false" for false, and nothing when unset.
func Bool(name string, value *bool) Directive {
	return Directive{kind: kindBool, name: name, cond: value}
}

// Array emits [name, values...] only for a non-empty list.
func Array(name string, values []string) Directive {
	return Directive{kind: kindArray, name: name, values: values}
}

// Build folds directives into the final token list.
func Build(directives ...Directive) []string {
	out := make([]string, 0, len(directives)*2)
	for _, d := range directives {
		out = d.appendTo(out)
	}
	return out
}

func (d Directive) appendTo(out []string) []string {
	switch d.kind {
	case kindPositional:
		for _, v := range d.values {
			if v != "" {
				out = append(out, v)
			}
		}
	case kindFlag:
		if d.cond == nil || *d.cond {
			out = append(out, d.name)
		}
	case kindOption:
		if d.value != nil {
			out = append(out, d.name, *d.value)
		}
	case kindBool:
		if d.cond != nil {
			if *d.cond {
				out = append(out, d.name)
			} else {
				out = append(out, d.name+"=false")
			}
		}
	case kindArray:
		if len(d.values) > 0 {
			out = append(out, d.name)
			out = append(out, d.values...)
		}
	}
	return out
}
