package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"github.com/wildfunctions/calcblocks/pkg/calc"
	"github.com/wildfunctions/calcblocks/pkg/parse"
	"github.com/wildfunctions/calcblocks/pkg/value"
)

const (
	historyFile = ".calcblocks_history"
	promptMain  = "calc> "
	promptCont  = "....> "
)

// runREPL reads statements interactively, keeping one namespace for the
// whole session, and prints the LaTeX of every input.
func runREPL(display calc.DisplayOptions) int {
	fmt.Println("calcblocks REPL. :vars lists variables, :reset clears them, :quit exits.")

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	ns := calc.NewNamespace()
	for {
		src, ok := readStatement(ln)
		if !ok {
			fmt.Println()
			return 0
		}
		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))

		if strings.HasPrefix(trimmed, ":") {
			switch strings.ToLower(trimmed) {
			case ":quit", ":q":
				return 0
			case ":vars":
				printVars(ns)
			case ":reset":
				ns = calc.NewNamespace()
			default:
				fmt.Println("unknown command. Type :quit to exit.")
			}
			continue
		}

		out, err := evalInput(src, ns, display)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if out != "" {
			fmt.Println(out)
		}
	}
}

// readStatement reads lines until they parse or fail for a reason other
// than unclosed brackets or strings.
func readStatement(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if _, err := parse.Parse(src); err != nil && parse.IsIncomplete(err) {
			continue
		}
		return src, true
	}
}

// evalInput compiles src into ns. Input without assignments is taken as a
// single expression and its value is printed.
func evalInput(src string, ns value.Namespace, display calc.DisplayOptions) (string, error) {
	out, err := calc.Compile(src, ns, display)
	if err != nil {
		return "", err
	}
	if len(out.Lines) > 0 {
		return out.LaTeX, nil
	}
	node, err := parse.ParseExpr(src)
	if err != nil {
		// not an expression either, so it was a skipped statement
		return "", nil
	}
	v, err := node.Eval(ns)
	if err != nil {
		return "", err
	}
	return calc.FormatResult(v), nil
}

func printVars(ns value.Namespace) {
	var names []string
	for name := range ns {
		if !calc.IsBuiltin(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%s = %s\n", name, value.Repr(ns[name]))
	}
}
