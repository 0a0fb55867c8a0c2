package block

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/wildfunctions/calcblocks/pkg/calc"
	"github.com/wildfunctions/calcblocks/pkg/store"
	"github.com/wildfunctions/calcblocks/pkg/value"
)

// VarResult is one variable reported by an interpreter.
type VarResult struct {
	Value any    `json:"value"`
	Type  string `json:"type"`
}

// Result is the payload an interpreter returns for one block.
type Result struct {
	LaTeX     string               `json:"latex"`
	Variables map[string]VarResult `json:"variables"`
	Errors    []string             `json:"errors,omitempty"`

	// Legacy is set when the payload was not JSON and LaTeX holds it
	// verbatim.
	Legacy bool `json:"-"`
}

// ParseResult decodes an interpreter payload. Anything that is not a JSON
// object of the expected shape is taken as bare LaTeX with no variables.
func ParseResult(raw string) Result {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var res Result
	if err := dec.Decode(&res); err != nil || dec.More() || !strings.HasPrefix(strings.TrimSpace(raw), "{") {
		return Result{LaTeX: strings.TrimSpace(raw), Variables: map[string]VarResult{}, Legacy: true}
	}
	if res.Variables == nil {
		res.Variables = map[string]VarResult{}
	}
	for name, v := range res.Variables {
		v.Value = store.NormalizeAs(v.Value, v.Type)
		res.Variables[name] = v
	}
	return res
}

// Encode serializes r as an interpreter payload.
func (r Result) Encode() (string, error) {
	if r.Variables == nil {
		r.Variables = map[string]VarResult{}
	}
	data, err := json.Marshal(r)
	if err != nil {
		return "", errors.Wrap(err, "encode result")
	}
	return string(data), nil
}

// Err returns the payload's reported errors as one error, or nil.
func (r Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return errors.New(strings.Join(r.Errors, "\n"))
}

// FromOutput builds the payload for a compiled block. Functions bound to
// a name are not reported.
func FromOutput(out *calc.Output) Result {
	res := Result{LaTeX: out.LaTeX, Variables: make(map[string]VarResult, len(out.Assigned))}
	for _, a := range out.Assigned {
		if _, ok := a.Value.(*value.Builtin); ok {
			continue
		}
		v, typ := value.ToNative(a.Value)
		res.Variables[a.Name] = VarResult{Value: v, Type: typ}
	}
	return res
}

// Vars converts the payload's variables for a store commit, sorted by name.
func (r Result) Vars() []store.Variable {
	names := make([]string, 0, len(r.Variables))
	for name := range r.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]store.Variable, len(names))
	for i, name := range names {
		v := r.Variables[name]
		out[i] = store.Variable{Name: name, Value: v.Value, Type: v.Type}
	}
	return out
}
