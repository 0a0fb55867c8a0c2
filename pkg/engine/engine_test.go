package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wildfunctions/calcblocks/pkg/block"
)

const circuitNote = "# Circuit\n" +
	"\n" +
	"```calc\n" +
	"# calc: id=aa vset=main\n" +
	"V = 12\n" +
	"R = 4\n" +
	"```\n" +
	"\n" +
	"Some prose with ```inline``` code.\n" +
	"\n" +
	"```python\n" +
	"```calc\n" +
	"not = a block\n" +
	"```\n" +
	"\n" +
	"~~~ calc\n" +
	"# calc: id=bb vset=main\n" +
	"I = V / R\n" +
	"P = V * I\n" +
	"~~~\n"

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.StorePath = filepath.Join(t.TempDir(), "vars.json")
	cfg.Workers = 2
	return cfg
}

func newEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestSplitBlocks(t *testing.T) {
	blocks := SplitBlocks("notes/circuit.md", circuitNote)
	want := []block.Block{
		{Title: "circuit #1", Source: "# calc: id=aa vset=main\nV = 12\nR = 4"},
		{Title: "circuit #2", Source: "# calc: id=bb vset=main\nI = V / R\nP = V * I"},
	}
	if len(blocks) != len(want) {
		t.Fatalf("got %d blocks: %+v", len(blocks), blocks)
	}
	for i := range want {
		if blocks[i] != want[i] {
			t.Errorf("block %d = %+v, want %+v", i, blocks[i], want[i])
		}
	}
}

func TestSplitBlocks_EdgeCases(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty note", "", nil},
		{"unclosed fence runs to end", "```calc\nx = 1\ny = 2", []string{"x = 1\ny = 2"}},
		{"longer closing fence", "````calc\nx = 1\n`````\n", []string{"x = 1"}},
		{"shorter fence does not close", "````calc\nx = 1\n```\ny = 2\n````", []string{"x = 1\n```\ny = 2"}},
		{"info string words", "```calc extra\nx = 1\n```", []string{"x = 1"}},
		{"empty block", "```calc\n```", []string{""}},
		{"other language", "```py\nx = 1\n```", nil},
		{"deeply indented is not a fence", "    ```calc\nx = 1\n```", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := SplitBlocks("n.md", tt.text)
			var got []string
			for _, b := range blocks {
				got = append(got, b.Source)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Errorf("sources = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAssignIDs(t *testing.T) {
	text := "```calc\n# calc: vset=main\nx = 1\n```\n```calc\n# calc: id=keep\ny = 2\n```\n```calc\nz = 3\n```\n"
	out, n := AssignIDs(text)
	if n != 1 {
		t.Fatalf("assigned %d ids, want 1", n)
	}
	blocks := SplitBlocks("n.md", out)
	opts, found, _ := block.Split(blocks[0].Source)
	if !found || len(opts.ID) != 8 || opts.VSet != "main" {
		t.Errorf("first block options = %+v", opts)
	}
	if blocks[1].Source != "# calc: id=keep\ny = 2" || blocks[2].Source != "z = 3" {
		t.Errorf("other blocks changed: %+v", blocks[1:])
	}
	if again, n := AssignIDs(out); n != 0 || again != out {
		t.Errorf("second pass assigned %d ids", n)
	}
}

func TestAssignIDs_KeepsLineAsWritten(t *testing.T) {
	text := "```calc\n#calc:   vset=main  future=1 hidden\nx = 1\n```\n"
	out, n := AssignIDs(text)
	if n != 1 {
		t.Fatalf("assigned %d ids, want 1", n)
	}
	line := strings.Split(out, "\n")[1]
	if !strings.HasPrefix(line, "#calc: id=") || !strings.HasSuffix(line, "   vset=main  future=1 hidden") {
		t.Errorf("options line = %q", line)
	}
	opts, _ := block.ParseOptions(line)
	if len(opts.ID) != 8 || opts.VSet != "main" || !opts.Hidden {
		t.Errorf("options = %+v", opts)
	}
}

func TestEngine_Run(t *testing.T) {
	cfg := testConfig(t)
	e := newEngine(t, cfg)

	r := e.Run(context.Background(), "circuit.md", circuitNote)
	if r.Error != "" || r.Failed != 0 || len(r.Blocks) != 2 {
		t.Fatalf("report = %+v", r)
	}
	second := r.Blocks[1]
	if !strings.Contains(second.LaTeX, `P &= V \cdot I = 12 \cdot 3.0 = 36`) {
		t.Errorf("LaTeX = %q", second.LaTeX)
	}
	if second.Variables["I"].Value != 3.0 {
		t.Errorf("I = %+v", second.Variables["I"])
	}

	// A fresh engine sees the saved variables.
	again := newEngine(t, cfg)
	if err := again.Load(); err != nil {
		t.Fatal(err)
	}
	vars := again.Store().Get("circuit.md", "main")
	if len(vars) != 4 || !vars["P"].OwnedBy("bb") {
		t.Errorf("restored variables = %+v", vars)
	}
}

func TestEngine_RunReportsFailures(t *testing.T) {
	e := newEngine(t, testConfig(t))
	note := "```calc\nx = 1 / 0\n```\n```calc\ny = 2\n```\n"
	r := e.Run(context.Background(), "n.md", note)
	if r.Failed != 1 || len(r.Blocks) != 2 {
		t.Fatalf("report = %+v", r)
	}
	if !strings.HasPrefix(r.Blocks[0].Error, "ZeroDivisionError") {
		t.Errorf("error = %q", r.Blocks[0].Error)
	}
	if r.Blocks[1].Error != "" {
		t.Errorf("second block failed: %q", r.Blocks[1].Error)
	}
}

func TestEngine_RunFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.AssignIDs = true
	cfg.OutDir = filepath.Join(dir, "out")

	a := filepath.Join(dir, "a.md")
	b := filepath.Join(dir, "b.md")
	writeFile(t, a, "```calc\n# calc: vset=s\nx = 2\n```\n")
	writeFile(t, b, circuitNote)

	e := newEngine(t, cfg)
	reports, err := e.RunFiles(context.Background(), []string{a, b, filepath.Join(dir, "missing.md")})
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 3 || reports[0].Note != a || reports[1].Note != b {
		t.Fatalf("reports = %+v", reports)
	}
	if reports[0].Failed != 0 || reports[1].Failed != 0 || reports[2].Error == "" {
		t.Errorf("unexpected failures: %+v", reports)
	}

	data, err := os.ReadFile(a)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "# calc: id=") {
		t.Errorf("id not written back: %q", data)
	}
	owner := e.Store().Get(a, "s")["x"].SourceBlockID
	if owner == nil || len(*owner) != 8 {
		t.Errorf("x owner = %v", owner)
	}

	for _, name := range []string{"a.tex", "b.tex"} {
		if _, err := os.Stat(filepath.Join(cfg.OutDir, name)); err != nil {
			t.Errorf("export %s: %v", name, err)
		}
	}
}

func TestEngine_ClearNote(t *testing.T) {
	cfg := testConfig(t)
	e := newEngine(t, cfg)
	e.Run(context.Background(), "circuit.md", circuitNote)
	if err := e.ClearNote("circuit.md"); err != nil {
		t.Fatal(err)
	}
	again := newEngine(t, cfg)
	if err := again.Load(); err != nil {
		t.Fatal(err)
	}
	if vars := again.Store().Get("circuit.md", "main"); len(vars) != 0 {
		t.Errorf("variables left: %+v", vars)
	}
}

func TestEngine_ClearScope(t *testing.T) {
	cfg := testConfig(t)
	e := newEngine(t, cfg)
	note := circuitNote + "```calc\n# calc: id=cc vset=aux\nk = 2\n```\n"
	if r := e.Run(context.Background(), "circuit.md", note); r.Failed != 0 {
		t.Fatalf("report = %+v", r)
	}
	if err := e.ClearScope("circuit.md", "aux"); err != nil {
		t.Fatal(err)
	}
	again := newEngine(t, cfg)
	if err := again.Load(); err != nil {
		t.Fatal(err)
	}
	if got := again.Store().Scopes("circuit.md"); len(got) != 1 || got[0] != "main" {
		t.Errorf("scopes = %v, want [main]", got)
	}

	var buf bytes.Buffer
	WriteStore(&buf, again.Store())
	for _, want := range []string{"circuit.md\n", "  vset=main (4)\n", "    I = 3 (float, id=bb)\n", "    V = 12 (int, id=aa)\n"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("store listing missing %q:\n%s", want, buf.String())
		}
	}
	if strings.Contains(buf.String(), "aux") {
		t.Errorf("cleared scope still listed:\n%s", buf.String())
	}
}

func TestNew_UnknownInterpreter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Interpreter = "abacus"
	if _, err := New(cfg, nil); err == nil || !strings.Contains(err.Error(), "native") {
		t.Errorf("err = %v, want list of available interpreters", err)
	}
}

func TestWriteReports(t *testing.T) {
	r := Report{
		Note: "my_note.md",
		Blocks: []BlockReport{
			{Title: "my_note #1", VSet: "main", LaTeX: "\\begin{aligned}\nx &= 5\n\\end{aligned}",
				ID: "aa", Variables: map[string]block.VarResult{"x": {Value: int64(5), Type: "int"}}},
			{Title: "my_note #2", Error: "NameError: name 'q' is not defined"},
		},
		Failed: 1,
	}

	var text bytes.Buffer
	WriteText(&text, r)
	for _, want := range []string{"[my_note #1] vset=main | 1 variable(s)", "    x &= 5", "[my_note #2] no scope | error: NameError", "Failed:    1"} {
		if !strings.Contains(text.String(), want) {
			t.Errorf("text report missing %q:\n%s", want, text.String())
		}
	}

	var js bytes.Buffer
	if err := WriteJSON(&js, r); err != nil {
		t.Fatal(err)
	}
	var decoded Report
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Note != r.Note || len(decoded.Blocks) != 2 || decoded.Blocks[1].Error != r.Blocks[1].Error {
		t.Errorf("decoded = %+v", decoded)
	}

	var tex bytes.Buffer
	WriteLaTeX(&tex, r)
	doc := tex.String()
	for _, want := range []string{`\title{my\_note.md}`, `\subsection*{my\_note \#1}`, "% # calc: id=aa vset=main\n", "\\[\n\\begin{aligned}\nx &= 5\n\\end{aligned}\n\\]", `\texttt{NameError: name 'q' is not defined}`, `\end{document}`} {
		if !strings.Contains(doc, want) {
			t.Errorf("LaTeX missing %q:\n%s", want, doc)
		}
	}
}

func writeFile(t *testing.T, path, text string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
}
