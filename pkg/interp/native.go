package interp

import (
	"context"

	"github.com/pkg/errors"

	"github.com/wildfunctions/calcblocks/pkg/block"
	"github.com/wildfunctions/calcblocks/pkg/calc"
)

func init() {
	Register("native", func(Config) (block.Interpreter, error) { return &Native{}, nil })
}

// Native evaluates blocks in process. Each call gets a fresh namespace.
type Native struct{}

// Execute runs the preamble, then compiles the code against the resulting
// namespace. Only variables the code assigns are reported. Evaluation
// errors are returned as errors, not as payload errors.
func (n *Native) Execute(ctx context.Context, req block.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ns := calc.NewNamespace()
	if err := calc.Exec(req.Preamble, ns); err != nil {
		return "", errors.Wrap(err, "injected variables")
	}
	out, err := calc.Compile(req.Code, ns, req.Display)
	if err != nil {
		return "", err
	}
	return block.FromOutput(out).Encode()
}
