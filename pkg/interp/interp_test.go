package interp

import (
	"bytes"
	"context"
	"os/exec"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/wildfunctions/calcblocks/pkg/block"
	"github.com/wildfunctions/calcblocks/pkg/calc"
	"github.com/wildfunctions/calcblocks/pkg/value"
)

func TestNames(t *testing.T) {
	got := Names()
	for _, want := range []string{"native", "process"} {
		found := false
		for _, n := range got {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Errorf("Names() = %v, missing %q", got, want)
		}
	}
}

func TestGet(t *testing.T) {
	in, err := Get("native", Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := in.(*Native); !ok {
		t.Errorf("Get(native) = %T", in)
	}
	if _, err := Get("nope", Config{}); err == nil {
		t.Error("expected error for unknown interpreter")
	}
	if _, err := Get("process", Config{}); err == nil {
		t.Error("expected error for process without a command")
	}
}

func TestNative_Execute(t *testing.T) {
	n := &Native{}
	payload, err := n.Execute(context.Background(), block.Request{
		Preamble: "r = 2\n",
		Code:     "d = r * 2\nx = d / 8",
		Display:  calc.DefaultDisplay(),
	})
	if err != nil {
		t.Fatal(err)
	}
	res := block.ParseResult(payload)
	if res.Legacy {
		t.Fatalf("payload %q is not JSON", payload)
	}
	want := map[string]block.VarResult{
		"d": {Value: int64(4), Type: "int"},
		"x": {Value: 0.5, Type: "float"},
	}
	if !reflect.DeepEqual(res.Variables, want) {
		t.Errorf("Variables = %+v, want %+v", res.Variables, want)
	}
	if !strings.Contains(res.LaTeX, `d &= r \cdot 2 = 2 \cdot 2 = 4`) {
		t.Errorf("LaTeX = %q", res.LaTeX)
	}
}

func TestNative_Errors(t *testing.T) {
	n := &Native{}
	ctx := context.Background()

	_, err := n.Execute(ctx, block.Request{Code: "y = q + 1"})
	var verr *value.Error
	if !errors.As(err, &verr) || verr.Kind != "NameError" {
		t.Errorf("err = %v, want NameError", err)
	}

	_, err = n.Execute(ctx, block.Request{Preamble: "a = (", Code: "y = 1"})
	if err == nil || !strings.Contains(err.Error(), "injected variables") {
		t.Errorf("err = %v, want preamble failure", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := n.Execute(cancelled, block.Request{Code: "y = 1"}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestProcess_Execute(t *testing.T) {
	requireSh(t)
	p, err := NewProcess(Config{Command: []string{"sh", "-c", `cat >/dev/null; printf '{"latex":"x &= 1","variables":{"x":{"value":1,"type":"int"}}}'`}})
	if err != nil {
		t.Fatal(err)
	}
	payload, err := p.Execute(context.Background(), block.Request{Code: "x = 1"})
	if err != nil {
		t.Fatal(err)
	}
	res := block.ParseResult(payload)
	if res.LaTeX != "x &= 1" || res.Variables["x"].Value != int64(1) {
		t.Errorf("result = %+v", res)
	}
}

func TestProcess_ReceivesRequest(t *testing.T) {
	requireSh(t)
	p, err := NewProcess(Config{Command: []string{"sh", "-c", "cat"}})
	if err != nil {
		t.Fatal(err)
	}
	payload, err := p.Execute(context.Background(), block.Request{Preamble: "a = 1\n", Code: "b = a"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(payload, `"preamble":"a = 1\n"`) || !strings.Contains(payload, `"code":"b = a"`) {
		t.Errorf("stdin was %q", payload)
	}
}

func TestProcess_Failure(t *testing.T) {
	requireSh(t)
	p, err := NewProcess(Config{Command: []string{"sh", "-c", "echo 'ValueError: bad input' >&2; exit 1"}})
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.Execute(context.Background(), block.Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := block.SimplifyError(errors.Cause(err).Error()); got != "ValueError: bad input" {
		t.Errorf("simplified = %q", got)
	}
}

func TestProcess_Timeout(t *testing.T) {
	requireSh(t)
	p, err := NewProcess(Config{Command: []string{"sh", "-c", "sleep 5"}, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.Execute(context.Background(), block.Request{})
	if err == nil || !strings.Contains(err.Error(), "interpreter stopped") {
		t.Errorf("err = %v, want timeout", err)
	}
}

func TestNewProcess_MissingProgram(t *testing.T) {
	if _, err := NewProcess(Config{Command: []string{"no-such-calc-interpreter"}}); err == nil {
		t.Error("expected lookup error")
	}
}

func TestServe(t *testing.T) {
	in := strings.NewReader(`{"preamble":"","code":"x = 2 ** 10","display":{"showResult":true}}`)
	var out bytes.Buffer
	if err := Serve(context.Background(), in, &out, &Native{}); err != nil {
		t.Fatal(err)
	}
	res := block.ParseResult(out.String())
	if res.LaTeX != "\\begin{aligned}\nx &= 1024\n\\end{aligned}" {
		t.Errorf("LaTeX = %q", res.LaTeX)
	}
	if res.Variables["x"].Value != int64(1024) {
		t.Errorf("x = %+v", res.Variables["x"])
	}

	if err := Serve(context.Background(), strings.NewReader("not json"), &out, &Native{}); err == nil {
		t.Error("expected decode error")
	}
}
