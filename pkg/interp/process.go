package interp

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/wildfunctions/calcblocks/pkg/block"
)

func init() {
	Register("process", func(cfg Config) (block.Interpreter, error) { return NewProcess(cfg) })
}

// Process runs each block through an external program. The request goes
// to the program's stdin as JSON and its stdout is the result payload.
type Process struct {
	cfg Config
}

// NewProcess returns a Process interpreter for cfg.Command.
func NewProcess(cfg Config) (*Process, error) {
	if len(cfg.Command) == 0 || cfg.Command[0] == "" {
		return nil, errors.New("process interpreter needs a command")
	}
	path, err := exec.LookPath(cfg.Command[0])
	if err != nil {
		return nil, errors.Wrapf(err, "interpreter %s not found", cfg.Command[0])
	}
	cfg.Command = append([]string{path}, cfg.Command[1:]...)
	return &Process{cfg: cfg}, nil
}

// Execute runs the program once for req. A non-zero exit is an error
// carrying the program's stderr.
func (p *Process) Execute(ctx context.Context, req block.Request) (string, error) {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	input, err := json.Marshal(req)
	if err != nil {
		return "", errors.Wrap(err, "encode request")
	}

	cmd := exec.CommandContext(ctx, p.cfg.Command[0], p.cfg.Command[1:]...)
	cmd.Dir = p.cfg.Dir
	cmd.WaitDelay = time.Second
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", errors.Wrap(ctx.Err(), "interpreter stopped")
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", errors.Wrap(err, "interpreter failed")
		}
		return "", errors.Wrapf(errors.New(msg), "interpreter failed (%v)", err)
	}
	return stdout.String(), nil
}
