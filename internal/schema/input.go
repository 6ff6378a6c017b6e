package schema

// Input is a validated argument set. Accessors return nil for absent fields
// so translators can tell "unset" from a zero value.
type Input struct {
	values map[string]any
}

// NewInput builds an Input directly. Values must already have the types a
// Schema would produce (string, bool, float64, []string).
func NewInput(values map[string]any) Input {
	cp := make(map[string]any, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return Input{values: cp}
}

func (in Input) Has(name string) bool {
	_, ok := in.values[name]
	return ok
}

func (in Input) String(name string) *string {
	if v, ok := in.values[name].(string); ok {
		return &v
	}
	return nil
}

// Str returns the string value or "".
func (in Input) Str(name string) string {
	if p := in.String(name); p != nil {
		return *p
	}
	return ""
}

func (in Input) Bool(name string) *bool {
	if v, ok := in.values[name].(bool); ok {
		return &v
	}
	return nil
}

func (in Input) Number(name string) *float64 {
	if v, ok := in.values[name].(float64); ok {
		return &v
	}
	return nil
}

func (in Input) Strings(name string) []string {
	v, ok := in.values[name].([]string)
	if !ok {
		return nil
	}
	return append([]string(nil), v...)
}

// Map returns a copy of the values, for logging and error context.
func (in Input) Map() map[string]any {
	out := make(map[string]any, len(in.values))
	for k, v := range in.values {
		out[k] = v
	}
	return out
}
