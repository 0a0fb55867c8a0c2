package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/wildfunctions/calcblocks/pkg/block"
	"github.com/wildfunctions/calcblocks/pkg/interp"
	"github.com/wildfunctions/calcblocks/pkg/logger"
	"github.com/wildfunctions/calcblocks/pkg/store"
)

// Engine runs the calc blocks of notes against a shared variable store.
type Engine struct {
	cfg    Config
	store  *store.Store
	runner *block.Runner
	log    *logger.Logger
}

// New creates an engine from the given config. A nil log discards output.
func New(cfg Config, log *logger.Logger) (*Engine, error) {
	in, err := interp.Get(cfg.Interpreter, interp.Config{Command: cfg.Command, Timeout: cfg.Timeout})
	if err != nil {
		return nil, errors.Wrapf(err, "interpreter (available: %v)", interp.Names())
	}
	return NewWith(cfg, in, log), nil
}

// NewWith creates an engine around an already constructed interpreter.
func NewWith(cfg Config, in block.Interpreter, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Discard()
	}
	st := store.New()
	return &Engine{
		cfg:    cfg,
		store:  st,
		runner: block.NewRunner(st, in, cfg.Display, log.WithPrefix("block")),
		log:    log,
	}
}

// Store exposes the engine's variable store.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Load replaces the store's contents with the snapshot at cfg.StorePath.
func (e *Engine) Load() error {
	if e.cfg.StorePath == "" {
		return nil
	}
	return errors.Wrap(e.store.LoadFile(e.cfg.StorePath), "load variables")
}

// Save writes the store to cfg.StorePath.
func (e *Engine) Save() error {
	if e.cfg.StorePath == "" {
		return nil
	}
	return errors.Wrap(e.store.SaveFile(e.cfg.StorePath), "save variables")
}

// Run loads the store, runs every block of one note in order and saves the
// store again.
func (e *Engine) Run(ctx context.Context, notePath, text string) Report {
	if err := e.Load(); err != nil {
		return Report{Note: notePath, Timestamp: time.Now().UTC(), Error: err.Error()}
	}
	r := e.runNote(ctx, notePath, text)
	if err := e.Save(); err != nil && r.Error == "" {
		r.Error = err.Error()
	}
	return r
}

// RunFiles runs the notes at paths, several at once. Notes do not share
// scopes, so their order does not matter. The store is loaded before and
// saved after the whole batch.
func (e *Engine) RunFiles(ctx context.Context, paths []string) ([]Report, error) {
	if err := e.Load(); err != nil {
		return nil, err
	}

	reports := make([]Report, len(paths))
	workers := e.cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	type job struct {
		idx  int
		path string
	}

	jobs := make(chan job, len(paths))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				reports[j.idx] = e.runFile(ctx, j.path)
			}
		}()
	}

	for i, p := range paths {
		jobs <- job{idx: i, path: p}
	}
	close(jobs)
	wg.Wait()

	return reports, e.Save()
}

func (e *Engine) runFile(ctx context.Context, path string) Report {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{Note: path, Timestamp: time.Now().UTC(), Error: err.Error()}
	}
	text := string(data)
	if e.cfg.AssignIDs {
		var n int
		if text, n = AssignIDs(text); n > 0 {
			if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
				return Report{Note: path, Timestamp: time.Now().UTC(), Error: err.Error()}
			}
			e.log.Info("%s: assigned %d block id(s)", path, n)
		}
	}
	r := e.runNote(ctx, path, text)
	if e.cfg.OutDir != "" {
		if err := e.Export(r); err != nil {
			e.log.Error("%s: %v", path, err)
		}
	}
	return r
}

func (e *Engine) runNote(ctx context.Context, notePath, text string) Report {
	start := time.Now()
	blocks := SplitBlocks(notePath, text)
	e.log.Info("note %s: %d block(s)", notePath, len(blocks))

	outs, err := e.runner.RunAll(ctx, notePath, blocks)
	r := Report{Note: notePath, Timestamp: start.UTC(), Blocks: make([]BlockReport, len(outs))}
	for i, oc := range outs {
		r.Blocks[i] = newBlockReport(oc)
		if oc.Err != nil {
			r.Failed++
		}
	}
	if err != nil {
		r.Error = err.Error()
	}
	r.DurationMs = time.Since(start).Milliseconds()
	return r
}

// Export writes the note's LaTeX document to cfg.OutDir, compiling it to
// PDF as well when cfg.PDF is set and pdflatex is available.
func (e *Engine) Export(r Report) error {
	base := strings.TrimSuffix(filepath.Base(r.Note), filepath.Ext(r.Note))
	tmpDir, err := os.MkdirTemp("", "calcblocks")
	if err != nil {
		return errors.Wrap(err, "export")
	}
	defer os.RemoveAll(tmpDir)

	tmpTex := filepath.Join(tmpDir, base+".tex")
	f, err := os.Create(tmpTex)
	if err != nil {
		return errors.Wrap(err, "export")
	}
	WriteLaTeX(f, r)
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "export")
	}

	if e.cfg.PDF {
		if pdflatex, err := exec.LookPath("pdflatex"); err == nil {
			cmd := exec.Command(pdflatex, "-interaction=nonstopmode", base+".tex")
			cmd.Dir = tmpDir
			if out, err := cmd.CombinedOutput(); err != nil {
				e.log.Warn("pdflatex failed on %s: %v\n%s", base, err, out)
			}
		} else {
			e.log.Warn("pdflatex not found, writing %s.tex only", base)
		}
	}

	absOut, err := filepath.Abs(e.cfg.OutDir)
	if err != nil {
		return errors.Wrap(err, "export")
	}
	if err := os.MkdirAll(absOut, 0o755); err != nil {
		return errors.Wrap(err, "export")
	}
	for _, ext := range []string{".tex", ".pdf"} {
		src := filepath.Join(tmpDir, base+ext)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		dst := filepath.Join(absOut, base+ext)
		if err := copyFile(src, dst); err != nil {
			return errors.Wrapf(err, "write %s", dst)
		}
		e.log.Info("wrote %s", dst)
	}
	return nil
}

// copyFile copies src to dst, creating or overwriting dst.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// ClearNote drops every variable of a note and saves the store.
func (e *Engine) ClearNote(notePath string) error {
	if err := e.Load(); err != nil {
		return err
	}
	e.store.ClearNote(notePath)
	return e.Save()
}

// ClearScope drops one scope of a note and saves the store.
func (e *Engine) ClearScope(notePath, scope string) error {
	if err := e.Load(); err != nil {
		return err
	}
	e.store.ClearScope(notePath, scope)
	return e.Save()
}

// String describes the engine's setup for log lines.
func (e *Engine) String() string {
	return fmt.Sprintf("interpreter %s, store %q, workers %d", e.cfg.Interpreter, e.cfg.StorePath, e.cfg.Workers)
}
