package calc

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/wildfunctions/calcblocks/pkg/expr"
	"github.com/wildfunctions/calcblocks/pkg/parse"
	"github.com/wildfunctions/calcblocks/pkg/value"
)

// DisplayOptions selects which stages a computed line shows.
type DisplayOptions struct {
	ShowSymbolic     bool `json:"showSymbolic"`
	ShowSubstitution bool `json:"showSubstitution"`
	ShowResult       bool `json:"showResult"`
}

// DefaultDisplay shows every stage.
func DefaultDisplay() DisplayOptions {
	return DisplayOptions{
		ShowSymbolic:     true,
		ShowSubstitution: true,
		ShowResult:       true,
	}
}

// Assignment is one variable bound by a block. A name assigned twice is
// reported once with its final value.
type Assignment struct {
	Name  string
	Value value.Value
	Line  int
}

// Output is the result of compiling one block.
type Output struct {
	LaTeX    string
	Lines    []Line
	Assigned []Assignment
	Skipped  int
}

// Exec runs the assignments in src against ns without rendering anything.
func Exec(src string, ns value.Namespace) error {
	stmts, err := parse.Parse(src)
	if err != nil {
		return err
	}
	for _, st := range stmts {
		a, ok := st.(*expr.Assign)
		if !ok {
			continue
		}
		v, err := a.Expr.Eval(ns)
		if err != nil {
			return atLine(err, a.Line)
		}
		ns[a.Target] = v
	}
	return nil
}

// Compile evaluates the assignments in src in order against ns and renders
// one aligned LaTeX line per assignment. Evaluation stops at the first
// error and nothing is returned for the block.
func Compile(src string, ns value.Namespace, display DisplayOptions) (*Output, error) {
	stmts, err := parse.Parse(src)
	if err != nil {
		return nil, err
	}

	out := &Output{}
	index := map[string]int{}
	for _, st := range stmts {
		a, ok := st.(*expr.Assign)
		if !ok {
			out.Skipped++
			continue
		}
		v, err := a.Expr.Eval(ns)
		if err != nil {
			return nil, atLine(err, a.Line)
		}

		// substituted before the target is rebound, so x = x + 1 shows the old x
		out.Lines = append(out.Lines, buildLine(a, v, ns, display))
		ns[a.Target] = v

		asg := Assignment{Name: a.Target, Value: v, Line: a.Line}
		if i, seen := index[a.Target]; seen {
			out.Assigned[i] = asg
			continue
		}
		index[a.Target] = len(out.Assigned)
		out.Assigned = append(out.Assigned, asg)
	}
	out.LaTeX = Assemble(out.Lines)
	return out, nil
}

// atLine attaches the statement's line number to an evaluation error.
func atLine(err error, line int) error {
	var ve *value.Error
	if errors.As(err, &ve) {
		return &value.Error{Kind: ve.Kind, Msg: fmt.Sprintf("%s (line %d)", ve.Msg, line)}
	}
	return errors.Wrapf(err, "line %d", line)
}
