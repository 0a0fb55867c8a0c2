package block

import (
	"context"

	"github.com/pkg/errors"

	"github.com/wildfunctions/calcblocks/pkg/calc"
	"github.com/wildfunctions/calcblocks/pkg/logger"
	"github.com/wildfunctions/calcblocks/pkg/store"
)

// Request is what a block hands to an interpreter: the injected scope
// variables as source, then the block's own code.
type Request struct {
	Preamble string              `json:"preamble"`
	Code     string              `json:"code"`
	Display  calc.DisplayOptions `json:"display"`
}

// Interpreter executes a block and returns its result payload.
type Interpreter interface {
	Execute(ctx context.Context, req Request) (string, error)
}

// Block is one calculation block of a note.
type Block struct {
	Title  string
	Source string
}

// Outcome describes one block run.
type Outcome struct {
	Title     string
	Options   Options
	LaTeX     string
	Variables map[string]VarResult
	Purged    int
	Legacy    bool
	Err       error
	Message   string // short form of Err for display
}

// Runner runs blocks against a store through an interpreter.
type Runner struct {
	store   *store.Store
	interp  Interpreter
	display calc.DisplayOptions
	log     *logger.Logger
}

// NewRunner returns a runner. A nil log discards output.
func NewRunner(st *store.Store, in Interpreter, display calc.DisplayOptions, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Discard()
	}
	return &Runner{store: st, interp: in, display: display, log: log}
}

// Run executes one block of note. The block reads the variables of its
// scope, runs, and on success replaces the variables it owned with the ones
// it assigned. If anything fails, or the payload is not JSON, the store is
// left untouched. A block
// without a scope neither reads nor writes variables; a block without an id
// writes untracked variables.
func (r *Runner) Run(ctx context.Context, note string, b Block) *Outcome {
	opts, _, code := Split(b.Source)
	oc := &Outcome{Title: b.Title, Options: opts}
	defer r.log.Step("block " + b.Title)()

	fail := func(err error) *Outcome {
		oc.Err = errors.Wrapf(err, "block %s", b.Title)
		oc.Message = SimplifyError(errors.Cause(err).Error())
		r.log.Block(b.Title, oc.Err, 0, 0)
		return oc
	}

	var preamble string
	if opts.VSet != "" {
		var err error
		preamble, err = EncodeAssignments(r.store.Get(note, opts.VSet), opts.ID)
		if err != nil {
			return fail(err)
		}
	}
	r.log.Debug("block %s: %d byte preamble", b.Title, len(preamble))

	payload, err := r.interp.Execute(ctx, Request{Preamble: preamble, Code: code, Display: r.display})
	if err != nil {
		return fail(err)
	}
	res := ParseResult(payload)
	if err := res.Err(); err != nil {
		return fail(err)
	}
	oc.LaTeX = res.LaTeX
	oc.Variables = res.Variables
	oc.Legacy = res.Legacy
	if res.Legacy {
		// no variables to commit, so the block keeps what it owned
		r.log.Warn("block %s: payload is not JSON, using it as LaTeX", b.Title)
	} else if opts.VSet != "" {
		var owner *string
		if opts.ID != "" {
			owner = &opts.ID
		}
		oc.Purged = r.store.Commit(note, opts.VSet, owner, b.Title, res.Vars())
	}
	r.log.Block(b.Title, nil, len(res.Variables), oc.Purged)
	return oc
}

// RunAll runs blocks in order, each one seeing what the earlier ones
// committed. A failed block does not stop the batch; a cancelled context
// does, before the next block starts.
func (r *Runner) RunAll(ctx context.Context, note string, blocks []Block) ([]*Outcome, error) {
	out := make([]*Outcome, 0, len(blocks))
	for _, b := range blocks {
		if err := ctx.Err(); err != nil {
			return out, errors.Wrap(err, "run cancelled")
		}
		out = append(out, r.Run(ctx, note, b))
	}
	return out, nil
}
