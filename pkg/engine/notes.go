package engine

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/wildfunctions/calcblocks/pkg/block"
)

// Lang is the info string that marks a fenced code block as a calculation.
const Lang = "calc"

// fence is one calc code block of a note; lines[start:end] hold its source.
type fence struct {
	start, end int
}

// scanFences finds the calc blocks among lines. Other fenced blocks are
// skipped whole, and an unclosed fence runs to the end of the note.
func scanFences(lines []string) []fence {
	var out []fence
	for i := 0; i < len(lines); i++ {
		marker, lang, ok := openFence(lines[i])
		if !ok {
			continue
		}
		j := i + 1
		for j < len(lines) && !closesFence(lines[j], marker) {
			j++
		}
		if lang == Lang {
			out = append(out, fence{start: i + 1, end: j})
		}
		i = j
	}
	return out
}

// openFence reports whether line opens a fenced block, returning the fence
// marker and the first word of its info string.
func openFence(line string) (marker, lang string, ok bool) {
	s := strings.TrimLeft(line, " ")
	if len(line)-len(s) > 3 || len(s) < 3 || (s[0] != '`' && s[0] != '~') {
		return "", "", false
	}
	n := 0
	for n < len(s) && s[n] == s[0] {
		n++
	}
	if n < 3 {
		return "", "", false
	}
	info := strings.Fields(s[n:])
	if len(info) > 0 {
		lang = info[0]
	}
	if s[0] == '`' && strings.Contains(s[n:], "`") {
		return "", "", false
	}
	return s[:n], lang, true
}

func closesFence(line, marker string) bool {
	s := strings.TrimSpace(line)
	return len(s) >= len(marker) && strings.Trim(s, marker[:1]) == ""
}

// SplitBlocks returns the calc blocks of a note in document order, titled
// "<note name> #<n>".
func SplitBlocks(note, text string) []block.Block {
	lines := strings.Split(text, "\n")
	base := strings.TrimSuffix(filepath.Base(note), filepath.Ext(note))
	fences := scanFences(lines)
	out := make([]block.Block, len(fences))
	for i, f := range fences {
		out[i] = block.Block{
			Title:  fmt.Sprintf("%s #%d", base, i+1),
			Source: strings.Join(lines[f.start:f.end], "\n"),
		}
	}
	return out
}

// AssignIDs gives every block that has an options line but no id a fresh
// one, and returns the rewritten note with the number of ids added. The
// rest of each options line is kept as written.
func AssignIDs(text string) (string, int) {
	lines := strings.Split(text, "\n")
	n := 0
	for _, f := range scanFences(lines) {
		if f.start >= f.end {
			continue
		}
		opts, ok := block.ParseOptions(lines[f.start])
		if !ok || opts.ID != "" {
			continue
		}
		lines[f.start] = block.SetID(lines[f.start], block.NewID())
		n++
	}
	return strings.Join(lines, "\n"), n
}
