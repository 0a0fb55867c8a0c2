package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/wildfunctions/calcblocks/pkg/engine"
	"github.com/wildfunctions/calcblocks/pkg/interp"
	"github.com/wildfunctions/calcblocks/pkg/logger"
)

func main() {
	cfg := engine.DefaultConfig()
	command := ""
	repl := false
	stdio := false
	clearNotes := false
	scope := ""
	list := false

	flag.StringVar(&cfg.Interpreter, "interp", cfg.Interpreter, "interpreter ("+strings.Join(interp.Names(), ", ")+")")
	flag.StringVar(&command, "cmd", command, "command line for the process interpreter")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "time limit per block")
	flag.StringVar(&cfg.StorePath, "store", cfg.StorePath, "variable store file (empty = in memory)")
	flag.StringVar(&cfg.Format, "format", cfg.Format, "output format (text, json, latex)")
	flag.StringVar(&cfg.LogLevel, "loglevel", cfg.LogLevel, "log level (debug, info, warn, error)")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "notes run in parallel")
	flag.StringVar(&cfg.OutDir, "outdir", cfg.OutDir, "write a LaTeX document per note to this directory")
	flag.BoolVar(&cfg.PDF, "pdf", cfg.PDF, "also compile exported documents with pdflatex")
	flag.BoolVar(&cfg.AssignIDs, "assign-ids", cfg.AssignIDs, "give blocks with an options line but no id a fresh id, rewriting the note")
	flag.BoolVar(&cfg.Display.ShowSymbolic, "symbolic", cfg.Display.ShowSymbolic, "show the symbolic form")
	flag.BoolVar(&cfg.Display.ShowSubstitution, "substitution", cfg.Display.ShowSubstitution, "show the substituted form")
	flag.BoolVar(&cfg.Display.ShowResult, "result", cfg.Display.ShowResult, "show the result")
	flag.BoolVar(&clearNotes, "clear", clearNotes, "drop the stored variables of the given notes instead of running them")
	flag.StringVar(&scope, "scope", scope, "with -clear, drop only this vset")
	flag.BoolVar(&list, "list", list, "list the stored variables and exit")
	flag.BoolVar(&repl, "repl", repl, "interactive mode")
	flag.BoolVar(&stdio, "stdio", stdio, "answer one interpreter request on stdin (for -interp process)")
	flag.Parse()

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	log := logger.New(os.Stderr, level, "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch {
	case stdio:
		if err := interp.Serve(ctx, os.Stdin, os.Stdout, &interp.Native{}); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	case repl:
		os.Exit(runREPL(cfg.Display))
	}

	cfg.Command = strings.Fields(command)
	notes := flag.Args()
	if list {
		e, err := engine.New(cfg, log)
		if err == nil {
			err = e.Load()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		engine.WriteStore(os.Stdout, e.Store())
		return
	}
	if len(notes) == 0 {
		fmt.Fprintln(os.Stderr, "usage: calcblocks [flags] note.md...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	e, err := engine.New(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	log.Debug("%s", e)

	if clearNotes {
		for _, note := range notes {
			if scope != "" {
				err = e.ClearScope(note, scope)
			} else {
				err = e.ClearNote(note)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			log.Info("cleared %s %s", note, scope)
		}
		return
	}

	reports, err := e.RunFiles(ctx, notes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	failed := 0
	for _, r := range reports {
		failed += r.Failed
		if r.Error != "" {
			failed++
		}
	}

	switch cfg.Format {
	case "json":
		if err := engine.WriteJSON(os.Stdout, reports...); err != nil {
			fmt.Fprintf(os.Stderr, "error writing JSON: %v\n", err)
			os.Exit(1)
		}
	case "latex":
		for _, r := range reports {
			engine.WriteLaTeX(os.Stdout, r)
		}
	default:
		for _, r := range reports {
			engine.WriteText(os.Stdout, r)
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}
