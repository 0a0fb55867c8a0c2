package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/wildfunctions/calcblocks/pkg/block"
	"github.com/wildfunctions/calcblocks/pkg/store"
)

// BlockReport summarizes one block run.
type BlockReport struct {
	Title     string                     `json:"title"`
	ID        string                     `json:"id,omitempty"`
	VSet      string                     `json:"vset,omitempty"`
	Hidden    bool                       `json:"hidden,omitempty"`
	LaTeX     string                     `json:"latex"`
	Variables map[string]block.VarResult `json:"variables,omitempty"`
	Purged    int                        `json:"purged,omitempty"`
	Legacy    bool                       `json:"legacy,omitempty"`
	Error     string                     `json:"error,omitempty"`
}

// Report summarizes the run of one note.
type Report struct {
	Note       string        `json:"note"`
	Blocks     []BlockReport `json:"blocks"`
	Failed     int           `json:"failed"`
	DurationMs int64         `json:"duration_ms"`
	Timestamp  time.Time     `json:"timestamp"`
	Error      string        `json:"error,omitempty"`
}

func newBlockReport(oc *block.Outcome) BlockReport {
	return BlockReport{
		Title:     oc.Title,
		ID:        oc.Options.ID,
		VSet:      oc.Options.VSet,
		Hidden:    oc.Options.Hidden,
		LaTeX:     oc.LaTeX,
		Variables: oc.Variables,
		Purged:    oc.Purged,
		Legacy:    oc.Legacy,
		Error:     oc.Message,
	}
}

// WriteBlock writes one block result in human-readable format.
func WriteBlock(w io.Writer, b BlockReport) {
	scope := "no scope"
	if b.VSet != "" {
		scope = "vset=" + b.VSet
	}
	if b.Error != "" {
		fmt.Fprintf(w, "[%s] %s | error: %s\n", b.Title, scope, b.Error)
		return
	}
	fmt.Fprintf(w, "[%s] %s | %d variable(s)", b.Title, scope, len(b.Variables))
	if b.Purged > 0 {
		fmt.Fprintf(w, ", %d replaced", b.Purged)
	}
	fmt.Fprintln(w)
	if b.LaTeX != "" {
		for _, line := range strings.Split(b.LaTeX, "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
}

// WriteText writes the note report in human-readable format.
func WriteText(w io.Writer, r Report) {
	fmt.Fprintf(w, "========== %s ==========\n", r.Note)
	for _, b := range r.Blocks {
		WriteBlock(w, b)
	}
	fmt.Fprintf(w, "Blocks:    %d\n", len(r.Blocks))
	fmt.Fprintf(w, "Failed:    %d\n", r.Failed)
	fmt.Fprintf(w, "Time:      %dms\n", r.DurationMs)
	if r.Error != "" {
		fmt.Fprintf(w, "Error:     %s\n", r.Error)
	}
}

// WriteJSON writes the reports as JSON.
func WriteJSON(w io.Writer, reports ...Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(reports) == 1 {
		return enc.Encode(reports[0])
	}
	return enc.Encode(reports)
}

// latexEscape escapes the characters that are special in LaTeX text mode.
func latexEscape(s string) string {
	return strings.NewReplacer(
		`\`, `\textbackslash{}`,
		"_", `\_`,
		"%", `\%`,
		"&", `\&`,
		"#", `\#`,
		"$", `\$`,
		"{", `\{`,
		"}", `\}`,
		"^", `\^{}`,
		"~", `\~{}`,
	).Replace(s)
}

// WriteLaTeX writes a compilable LaTeX document with one display per block.
// Failed blocks show their error message instead. Blocks with an id carry
// their options line as a comment.
func WriteLaTeX(w io.Writer, r Report) {
	fmt.Fprintln(w, `\documentclass{article}`)
	fmt.Fprintln(w, `\usepackage{amsmath}`)
	fmt.Fprintln(w, `\usepackage{geometry}`)
	fmt.Fprintln(w, `\geometry{margin=1in}`)
	fmt.Fprintf(w, "\\title{%s}\n", latexEscape(r.Note))
	fmt.Fprintln(w, `\date{\today}`)
	fmt.Fprintln(w, `\begin{document}`)
	fmt.Fprintln(w, `\maketitle`)

	for _, b := range r.Blocks {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "\\subsection*{%s}\n", latexEscape(b.Title))
		if b.ID != "" {
			fmt.Fprintf(w, "%% %s\n", block.Options{ID: b.ID, VSet: b.VSet, Hidden: b.Hidden}.Format())
		}
		if b.Error != "" {
			fmt.Fprintf(w, "\\noindent\\textbf{Error:} \\texttt{%s}\n", latexEscape(b.Error))
			continue
		}
		if b.LaTeX != "" {
			fmt.Fprintln(w, `\[`)
			fmt.Fprintf(w, "%s\n", b.LaTeX)
			fmt.Fprintln(w, `\]`)
		}
		if len(b.Variables) > 0 {
			fmt.Fprintf(w, "\\noindent Variables: \\texttt{%s}\n", latexEscape(strings.Join(variableNames(b), ", ")))
		}
	}

	fmt.Fprintln(w, `\end{document}`)
}

func variableNames(b BlockReport) []string {
	names := make([]string, 0, len(b.Variables))
	for name := range b.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WriteStore lists every stored variable by note and scope.
func WriteStore(w io.Writer, st *store.Store) {
	for _, note := range st.Notes() {
		fmt.Fprintf(w, "%s\n", note)
		for _, scope := range st.Scopes(note) {
			vars := st.Get(note, scope)
			fmt.Fprintf(w, "  vset=%s (%d)\n", scope, len(vars))
			names := make([]string, 0, len(vars))
			for name := range vars {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				v := vars[name]
				owner := "untracked"
				if v.SourceBlockID != nil {
					owner = "id=" + *v.SourceBlockID
				}
				fmt.Fprintf(w, "    %s = %v (%s, %s)\n", name, v.Value, v.Type, owner)
			}
		}
	}
}
