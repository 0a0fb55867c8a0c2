package parse

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/wildfunctions/calcblocks/pkg/expr"
	"github.com/wildfunctions/calcblocks/pkg/value"
)

// maxExprDepth rejects pathological right-hand sides.
const maxExprDepth = 200

// Statements that open or belong to constructs the compiler never runs.
var skippedKeywords = map[string]bool{
	"import": true, "from": true, "def": true, "class": true, "return": true,
	"for": true, "while": true, "if": true, "elif": true, "else": true,
	"try": true, "except": true, "finally": true, "with": true, "pass": true,
	"break": true, "continue": true, "raise": true, "assert": true, "del": true,
	"global": true, "nonlocal": true, "async": true, "await": true, "lambda": true,
	"yield": true, "match": true, "case": true,
}

// Keywords valid in Python expressions that this language does not support.
var unsupportedKeywords = map[string]bool{
	"and": true, "or": true, "in": true, "is": true, "lambda": true,
	"for": true, "await": true, "yield": true,
}

// Keywords that may directly follow a leading name in an expression
// statement, as in "x if c else y" or "x in xs".
var infixKeywords = map[string]bool{
	"if": true, "else": true, "not": true, "and": true, "or": true,
	"in": true, "is": true, "for": true,
}

// Operators a statement can start with.
var statementStarters = map[string]bool{
	"(": true, "[": true, "{": true, "-": true, "+": true, "~": true,
	"*": true, "@": true, ".": true,
}

var augmentedOps = map[string]expr.BinaryOp{
	"+=":  expr.OpAdd,
	"-=":  expr.OpSub,
	"*=":  expr.OpMul,
	"/=":  expr.OpDiv,
	"//=": expr.OpFloorDiv,
	"%=":  expr.OpMod,
	"**=": expr.OpPow,
}

var compareOps = map[string]expr.CompareOp{
	"==": expr.OpEq,
	"!=": expr.OpNe,
	"<":  expr.OpLt,
	">":  expr.OpGt,
	"<=": expr.OpLe,
	">=": expr.OpGe,
}

type incompleteError struct {
	err error
}

func (e *incompleteError) Error() string { return e.err.Error() }
func (e *incompleteError) Cause() error  { return e.err }
func (e *incompleteError) Unwrap() error { return e.err }

func indentErrorf(line int, format string, args ...any) error {
	return &value.Error{Kind: "IndentationError", Msg: fmt.Sprintf(format, args...) + fmt.Sprintf(" (line %d)", line)}
}

// IsIncomplete reports whether err means the source ended inside an open
// bracket or triple-quoted string, so more input could complete it.
func IsIncomplete(err error) bool {
	var inc *incompleteError
	return errors.As(err, &inc)
}

// Parse splits src into statements. Simple assignments (name = expr) and
// augmented assignments (name += expr, desugared to name = name + expr)
// become *expr.Assign; every other statement becomes *expr.Other without its
// contents being examined. A malformed assignment, a line that cannot start
// a statement or inconsistent indentation fails the whole parse.
func Parse(src string) ([]expr.Statement, error) {
	lines, err := scanLines(src)
	if err != nil {
		return nil, err
	}
	var stmts []expr.Statement
	in := indentation{levels: []int{0}}
	for _, ll := range lines {
		if err := in.next(ll); err != nil {
			return nil, err
		}
		st, err := parseLine(ll)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
	}
	if in.opener != 0 {
		return nil, &incompleteError{indentErrorf(in.opener, "expected an indented block")}
	}
	return stmts, nil
}

// indentation tracks block levels: a deeper indent must follow a line
// ending in ':', and a dedent must land on an enclosing level.
type indentation struct {
	levels []int
	opener int // line of a ':' header still waiting for its body
}

func (in *indentation) next(ll logicalLine) error {
	top := in.levels[len(in.levels)-1]
	switch {
	case in.opener != 0:
		if ll.Indent <= top {
			return indentErrorf(ll.Line, "expected an indented block after line %d", in.opener)
		}
		in.levels = append(in.levels, ll.Indent)
	case ll.Indent > top:
		return indentErrorf(ll.Line, "unexpected indent")
	case ll.Indent < top:
		for len(in.levels) > 1 && in.levels[len(in.levels)-1] > ll.Indent {
			in.levels = in.levels[:len(in.levels)-1]
		}
		if in.levels[len(in.levels)-1] != ll.Indent {
			return indentErrorf(ll.Line, "unindent does not match any outer indentation level")
		}
	}
	in.opener = 0
	if last := ll.Tokens[len(ll.Tokens)-1]; last.Type == OP && last.Text == ":" {
		in.opener = ll.Line
	}
	return nil
}

// ParseExpr parses a single expression.
func ParseExpr(src string) (expr.ExprNode, error) {
	lines, err := scanLines(src)
	if err != nil {
		return nil, err
	}
	if len(lines) != 1 {
		return nil, syntaxErrorf(1, "expected one expression")
	}
	p := &parser{toks: lines[0].Tokens, line: lines[0].Line}
	return p.complete()
}

func parseLine(ll logicalLine) (expr.Statement, error) {
	other := &expr.Other{Text: ll.Text, Line: ll.Line}
	toks := ll.Tokens
	if err := checkStart(toks); err != nil {
		return nil, err
	}
	if ll.Indent > 0 || toks[0].Type != NAME || skippedKeywords[toks[0].Text] || len(toks) < 2 || toks[1].Type != OP {
		return other, nil
	}

	target := toks[0].Text
	aug, isAug := augmentedOps[toks[1].Text]
	if isKeywordValue(target) && (isAug || toks[1].Text == "=") {
		return nil, syntaxErrorf(ll.Line, "cannot assign to %s", target)
	}
	p := &parser{toks: toks[2:], line: ll.Line}
	if isAug {
		rhs, err := p.complete()
		if err != nil {
			return nil, err
		}
		node := &expr.BinaryNode{Op: aug, Left: &expr.Identifier{Name: target}, Right: rhs}
		return &expr.Assign{Target: target, Expr: node, Line: ll.Line}, nil
	}
	if toks[1].Text != "=" {
		return other, nil
	}

	rhs, err := p.expression()
	if err != nil {
		return nil, err
	}
	if p.peekOp("=") {
		// chained target: a = b = 1
		return other, nil
	}
	if err := p.finish(rhs); err != nil {
		return nil, err
	}
	return &expr.Assign{Target: target, Expr: rhs, Line: ll.Line}, nil
}

// checkStart rejects lines that no Python statement can begin with: a
// stray operator such as "= 5", or a name directly followed by another
// name or literal.
func checkStart(toks []Token) error {
	first := toks[0]
	if first.Type == OP && !statementStarters[first.Text] {
		return syntaxErrorf(first.Line, "invalid syntax near '%s'", first.Text)
	}
	if first.Type != NAME || len(toks) < 2 || isKeyword(first.Text) || first.Text == "type" {
		return nil
	}
	second := toks[1]
	if second.Type == OP || second.Type == NAME && infixKeywords[second.Text] {
		return nil
	}
	return syntaxErrorf(second.Line, "invalid syntax near '%s'", second.Text)
}

func isKeyword(name string) bool {
	return skippedKeywords[name] || unsupportedKeywords[name] || infixKeywords[name] || isKeywordValue(name)
}

func isKeywordValue(name string) bool {
	return name == "True" || name == "False" || name == "None"
}

type parser struct {
	toks []Token
	pos  int
	line int
}

func (p *parser) peek() Token {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return Token{Type: EOF, Line: p.line}
}

func (p *parser) next() Token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) peekOp(op string) bool {
	t := p.peek()
	return t.Type == OP && t.Text == op
}

func (p *parser) expectOp(op string) error {
	if !p.peekOp(op) {
		return p.unexpected()
	}
	p.pos++
	return nil
}

func (p *parser) unexpected() error {
	t := p.peek()
	if t.Type == EOF {
		return syntaxErrorf(p.line, "invalid syntax: unexpected end of statement")
	}
	if t.Type == NAME && unsupportedKeywords[t.Text] {
		return syntaxErrorf(t.Line, "unsupported expression syntax '%s'", t.Text)
	}
	return syntaxErrorf(t.Line, "invalid syntax near '%s'", t.Text)
}

func (p *parser) complete() (expr.ExprNode, error) {
	node, err := p.expression()
	if err != nil {
		return nil, err
	}
	return node, p.finish(node)
}

func (p *parser) finish(node expr.ExprNode) error {
	if p.peek().Type != EOF {
		return p.unexpected()
	}
	if expr.Depth(node) > maxExprDepth {
		return syntaxErrorf(p.line, "expression too deeply nested")
	}
	return nil
}

func (p *parser) peekKeyword(kw string) bool {
	t := p.peek()
	return t.Type == NAME && t.Text == kw
}

// expression := inversion ["if" inversion "else" expression]
func (p *parser) expression() (expr.ExprNode, error) {
	body, err := p.inversion()
	if err != nil {
		return nil, err
	}
	if !p.peekKeyword("if") {
		return body, nil
	}
	p.pos++
	cond, err := p.inversion()
	if err != nil {
		return nil, err
	}
	if !p.peekKeyword("else") {
		if p.peek().Type == EOF {
			return nil, syntaxErrorf(p.line, "expected 'else' after 'if' expression")
		}
		return nil, p.unexpected()
	}
	p.pos++
	orElse, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &expr.ConditionalNode{Cond: cond, Body: body, Else: orElse}, nil
}

// inversion := "not" inversion | comparison
func (p *parser) inversion() (expr.ExprNode, error) {
	if !p.peekKeyword("not") {
		return p.comparison()
	}
	p.pos++
	child, err := p.inversion()
	if err != nil {
		return nil, err
	}
	return &expr.UnaryNode{Op: expr.OpNot, Child: child}, nil
}

// comparison := sum (compareop sum)*
func (p *parser) comparison() (expr.ExprNode, error) {
	left, err := p.sum()
	if err != nil {
		return nil, err
	}
	var chain []expr.Comparison
	for {
		t := p.peek()
		op, ok := compareOps[t.Text]
		if t.Type != OP || !ok {
			break
		}
		p.pos++
		right, err := p.sum()
		if err != nil {
			return nil, err
		}
		chain = append(chain, expr.Comparison{Op: op, Right: right})
	}
	if len(chain) == 0 {
		return left, nil
	}
	return &expr.CompareNode{Left: left, Chain: chain}, nil
}

// sum := term (("+" | "-") term)*
func (p *parser) sum() (expr.ExprNode, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.peekOp("+") || p.peekOp("-") {
		op := expr.OpAdd
		if p.next().Text == "-" {
			op = expr.OpSub
		}
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &expr.BinaryNode{Op: op, Left: left, Right: right}
	}
	return left, nil
}

var termOps = map[string]expr.BinaryOp{
	"*":  expr.OpMul,
	"/":  expr.OpDiv,
	"//": expr.OpFloorDiv,
	"%":  expr.OpMod,
}

// term := factor (("*" | "/" | "//" | "%") factor)*
func (p *parser) term() (expr.ExprNode, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		op, ok := termOps[t.Text]
		if t.Type != OP || !ok {
			return left, nil
		}
		p.pos++
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		left = &expr.BinaryNode{Op: op, Left: left, Right: right}
	}
}

// factor := ("+" | "-") factor | power
func (p *parser) factor() (expr.ExprNode, error) {
	if p.peekOp("-") || p.peekOp("+") {
		op := expr.OpNeg
		if p.next().Text == "+" {
			op = expr.OpPos
		}
		child, err := p.factor()
		if err != nil {
			return nil, err
		}
		return &expr.UnaryNode{Op: op, Child: child}, nil
	}
	return p.power()
}

// power := primary ["**" factor]
func (p *parser) power() (expr.ExprNode, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if !p.peekOp("**") {
		return base, nil
	}
	p.pos++
	exp, err := p.factor()
	if err != nil {
		return nil, err
	}
	return &expr.BinaryNode{Op: expr.OpPow, Left: base, Right: exp}, nil
}

// primary := atom ("[" expression "]")*
func (p *parser) primary() (expr.ExprNode, error) {
	node, err := p.atom()
	if err != nil {
		return nil, err
	}
	for p.peekOp("[") {
		p.pos++
		idx, err := p.expression()
		if err != nil {
			return nil, err
		}
		if p.peekOp(":") {
			return nil, syntaxErrorf(p.peek().Line, "slices are not supported")
		}
		if err := p.expectOp("]"); err != nil {
			return nil, err
		}
		node = &expr.SubscriptNode{Value: node, Index: idx}
	}
	return node, nil
}

func (p *parser) atom() (expr.ExprNode, error) {
	t := p.peek()
	switch t.Type {
	case NAME:
		return p.name()
	case INT:
		p.pos++
		i, ok := new(big.Int).SetString(t.Text, 0)
		if !ok {
			return nil, syntaxErrorf(t.Line, "invalid integer literal '%s'", t.Text)
		}
		return &expr.Literal{Raw: t.Text, Val: value.Int{V: i}}, nil
	case FLOAT, IMAG:
		p.pos++
		text := strings.ReplaceAll(strings.TrimRight(t.Text, "jJ"), "_", "")
		f, err := strconv.ParseFloat(text, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return nil, syntaxErrorf(t.Line, "invalid number literal '%s'", t.Text)
		}
		if t.Type == IMAG {
			return &expr.Literal{Raw: t.Text, Val: value.Complex(complex(0, f))}, nil
		}
		return &expr.Literal{Raw: t.Text, Val: value.Float(f)}, nil
	case STRING:
		raw := []string{}
		var b strings.Builder
		for p.peek().Type == STRING {
			s := p.next()
			raw = append(raw, s.Text)
			b.WriteString(s.Value)
		}
		return &expr.Literal{Raw: strings.Join(raw, " "), Val: value.Str(b.String())}, nil
	case OP:
		switch t.Text {
		case "(":
			p.pos++
			return p.parenthesized()
		case "[":
			p.pos++
			elems, err := p.list("]")
			if err != nil {
				return nil, err
			}
			return &expr.ListNode{Elems: elems}, nil
		case "{":
			p.pos++
			return p.dict()
		}
	}
	return nil, p.unexpected()
}

// name parses an identifier, a constant keyword, a dotted reference such
// as math.sqrt (resolved by its last segment) or a call.
func (p *parser) name() (expr.ExprNode, error) {
	t := p.next()
	switch t.Text {
	case "True":
		return &expr.Literal{Raw: t.Text, Val: value.Bool(true)}, nil
	case "False":
		return &expr.Literal{Raw: t.Text, Val: value.Bool(false)}, nil
	case "None":
		return &expr.Literal{Raw: t.Text, Val: value.None{}}, nil
	}
	if isKeyword(t.Text) {
		p.pos--
		return nil, p.unexpected()
	}

	name := t.Text
	for p.peekOp(".") {
		p.pos++
		seg := p.next()
		if seg.Type != NAME {
			p.pos--
			return nil, p.unexpected()
		}
		name = seg.Text
	}
	if !p.peekOp("(") {
		return &expr.Identifier{Name: name}, nil
	}
	p.pos++
	args, err := p.list(")")
	if err != nil {
		return nil, err
	}
	return &expr.CallNode{Func: name, Args: args}, nil
}

func (p *parser) parenthesized() (expr.ExprNode, error) {
	if p.peekOp(")") {
		p.pos++
		return &expr.ListNode{}, nil
	}
	first, err := p.expression()
	if err != nil {
		return nil, err
	}
	if p.peekOp(")") {
		p.pos++
		return first, nil
	}
	if err := p.expectOp(","); err != nil {
		return nil, err
	}
	rest, err := p.list(")")
	if err != nil {
		return nil, err
	}
	return &expr.ListNode{Elems: append([]expr.ExprNode{first}, rest...)}, nil
}

// list parses comma-separated expressions up to and including closer,
// allowing a trailing comma.
func (p *parser) list(closer string) ([]expr.ExprNode, error) {
	var out []expr.ExprNode
	for !p.peekOp(closer) {
		if t := p.peek(); t.Type == NAME && p.pos+1 < len(p.toks) && p.toks[p.pos+1].Text == "=" {
			return nil, syntaxErrorf(t.Line, "keyword arguments are not supported")
		}
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if p.peekOp(",") {
			p.pos++
			continue
		}
		break
	}
	return out, p.expectOp(closer)
}

func (p *parser) dict() (expr.ExprNode, error) {
	node := &expr.DictNode{}
	for !p.peekOp("}") {
		k := p.peek()
		if k.Type != STRING {
			return nil, syntaxErrorf(k.Line, "dict keys must be string literals")
		}
		p.pos++
		if err := p.expectOp(":"); err != nil {
			return nil, err
		}
		v, err := p.expression()
		if err != nil {
			return nil, err
		}
		node.Keys = append(node.Keys, k.Value)
		node.Values = append(node.Values, v)
		if p.peekOp(",") {
			p.pos++
			continue
		}
		break
	}
	return node, p.expectOp("}")
}
