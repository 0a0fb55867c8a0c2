package parse

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wildfunctions/calcblocks/pkg/value"
)

// TokenType identifies the kind of token.
type TokenType int

const (
	EOF TokenType = iota
	NAME
	INT
	FLOAT
	IMAG
	STRING
	OP
)

var tokenNames = map[TokenType]string{
	EOF:    "EOF",
	NAME:   "NAME",
	INT:    "INT",
	FLOAT:  "FLOAT",
	IMAG:   "IMAG",
	STRING: "STRING",
	OP:     "OP",
}

func (t TokenType) String() string {
	return tokenNames[t]
}

// Token is one lexeme. For STRING tokens Value holds the decoded text.
type Token struct {
	Type  TokenType
	Text  string
	Value string
	Line  int
}

// logicalLine is one statement's worth of tokens: a physical line, a
// bracketed run of lines, or one ';'-separated piece.
type logicalLine struct {
	Line   int
	Indent int
	Text   string
	Tokens []Token
	start  int
	end    int
}

// Operators, longest first so the scanner can take the first match.
var operators = []string{
	"**=", "//=",
	"**", "//", "==", "!=", "<=", ">=", "+=", "-=", "*=", "/=", "%=", "->",
	"+", "-", "*", "/", "%", "<", ">", "=", "(", ")", "[", "]", "{", "}",
	",", ":", ".", "@", "&", "|", "^", "~",
}

var closers = map[string]string{")": "(", "]": "[", "}": "{"}

type lexer struct {
	src    string
	pos    int
	line   int
	depth  []string
	lines  []logicalLine
	cur    logicalLine
	indent int
}

func syntaxErrorf(line int, format string, args ...any) error {
	return &value.Error{Kind: "SyntaxError", Msg: fmt.Sprintf(format, args...) + fmt.Sprintf(" (line %d)", line)}
}

// scanLines splits src into logical lines of tokens.
func scanLines(src string) ([]logicalLine, error) {
	l := &lexer{src: src, line: 1}
	atLineStart := true
	for l.pos < len(l.src) {
		if atLineStart && len(l.depth) == 0 {
			l.indent = l.measureIndent()
			atLineStart = false
			continue
		}
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\f':
			l.pos++
		case c == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		case c == '\\' && l.continuation():
		case c == '\n':
			l.line++
			l.pos++
			if len(l.depth) == 0 {
				l.flush()
				atLineStart = true
			}
		case c == ';' && len(l.depth) == 0:
			l.flush()
			l.pos++
		case c == '"' || c == '\'':
			if err := l.scanString(l.pos, ""); err != nil {
				return nil, err
			}
		case isDigit(c) || (c == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1])):
			if err := l.scanNumber(); err != nil {
				return nil, err
			}
		default:
			r, size := utf8.DecodeRuneInString(l.src[l.pos:])
			if r == '_' || unicode.IsLetter(r) {
				if err := l.scanName(); err != nil {
					return nil, err
				}
				continue
			}
			if err := l.scanOperator(r, size); err != nil {
				return nil, err
			}
		}
	}
	if len(l.depth) > 0 {
		open := l.depth[len(l.depth)-1]
		return nil, &incompleteError{syntaxErrorf(l.line, "'%s' was never closed", open)}
	}
	l.flush()
	return l.lines, nil
}

func (l *lexer) measureIndent() int {
	col := 0
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ':
			col++
		case '\t':
			col += 8 - col%8
		default:
			return col
		}
		l.pos++
	}
	return col
}

func (l *lexer) continuation() bool {
	rest := l.src[l.pos+1:]
	switch {
	case strings.HasPrefix(rest, "\n"):
		l.pos += 2
	case strings.HasPrefix(rest, "\r\n"):
		l.pos += 3
	default:
		return false
	}
	l.line++
	return true
}

func (l *lexer) flush() {
	if len(l.cur.Tokens) > 0 {
		l.cur.Text = strings.TrimSpace(l.src[l.cur.start:l.cur.end])
		l.lines = append(l.lines, l.cur)
	}
	l.cur = logicalLine{}
}

func (l *lexer) emit(t TokenType, start int, val string) {
	tok := Token{Type: t, Text: l.src[start:l.pos], Value: val, Line: l.line}
	if len(l.cur.Tokens) == 0 {
		l.cur.Line = l.line
		l.cur.Indent = l.indent
		l.cur.start = start
	}
	l.cur.end = l.pos
	l.cur.Tokens = append(l.cur.Tokens, tok)
}

func (l *lexer) scanName() error {
	start := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		l.pos += size
	}
	name := l.src[start:l.pos]
	if l.pos < len(l.src) && (l.src[l.pos] == '"' || l.src[l.pos] == '\'') {
		switch strings.ToLower(name) {
		case "r", "u":
			return l.scanString(start, strings.ToLower(name))
		}
	}
	l.emit(NAME, start, "")
	return nil
}

func (l *lexer) scanNumber() error {
	start := l.pos
	typ := INT
	if strings.HasPrefix(l.src[l.pos:], "0x") || strings.HasPrefix(l.src[l.pos:], "0X") ||
		strings.HasPrefix(l.src[l.pos:], "0o") || strings.HasPrefix(l.src[l.pos:], "0O") ||
		strings.HasPrefix(l.src[l.pos:], "0b") || strings.HasPrefix(l.src[l.pos:], "0B") {
		l.pos += 2
		for l.pos < len(l.src) && (isHexDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
			l.pos++
		}
		l.emit(INT, start, "")
		return nil
	}

	l.digits()
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		typ = FLOAT
		l.pos++
		l.digits()
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		save := l.pos
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.pos++
		}
		if l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			typ = FLOAT
			l.digits()
		} else {
			l.pos = save
		}
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'j' || l.src[l.pos] == 'J') {
		typ = IMAG
		l.pos++
	}
	if l.pos < len(l.src) {
		r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
		if r == '_' || unicode.IsLetter(r) {
			return syntaxErrorf(l.line, "invalid decimal literal")
		}
	}
	l.emit(typ, start, "")
	return nil
}

func (l *lexer) digits() {
	for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
		l.pos++
	}
}

func (l *lexer) scanString(start int, prefix string) error {
	startLine := l.line
	quote := l.src[l.pos]
	delim := string(quote)
	if strings.HasPrefix(l.src[l.pos:], strings.Repeat(delim, 3)) {
		delim = strings.Repeat(delim, 3)
	}
	l.pos += len(delim)

	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			err := syntaxErrorf(startLine, "unterminated string literal")
			if len(delim) == 3 {
				return &incompleteError{err}
			}
			return err
		}
		if strings.HasPrefix(l.src[l.pos:], delim) {
			l.pos += len(delim)
			break
		}
		c := l.src[l.pos]
		switch {
		case c == '\n' && len(delim) == 1:
			return syntaxErrorf(startLine, "unterminated string literal")
		case c == '\n':
			l.line++
			b.WriteByte(c)
			l.pos++
		case c == '\\' && l.pos+1 < len(l.src):
			if prefix == "r" {
				b.WriteString(l.src[l.pos : l.pos+2])
				l.pos += 2
				continue
			}
			l.pos++
			l.unescape(&b)
		default:
			b.WriteByte(c)
			l.pos++
		}
	}
	l.emit(STRING, start, b.String())
	return nil
}

// unescape decodes the escape sequence after a backslash. Unknown escapes
// keep their backslash.
func (l *lexer) unescape(b *strings.Builder) {
	c := l.src[l.pos]
	simple := map[byte]byte{'n': '\n', 't': '\t', 'r': '\r', '0': 0, '\\': '\\', '\'': '\'', '"': '"', 'a': '\a', 'b': '\b', 'f': '\f', 'v': '\v'}
	if r, ok := simple[c]; ok {
		b.WriteByte(r)
		l.pos++
		return
	}
	if c == '\n' {
		l.line++
		l.pos++
		return
	}
	width := map[byte]int{'x': 2, 'u': 4, 'U': 8}[c]
	if width > 0 && l.pos+1+width <= len(l.src) {
		var r rune
		ok := true
		for _, h := range l.src[l.pos+1 : l.pos+1+width] {
			d, valid := hexVal(byte(h))
			if !valid {
				ok = false
				break
			}
			r = r*16 + rune(d)
		}
		if ok {
			b.WriteRune(r)
			l.pos += 1 + width
			return
		}
	}
	b.WriteByte('\\')
}

func (l *lexer) scanOperator(r rune, size int) error {
	for _, op := range operators {
		if strings.HasPrefix(l.src[l.pos:], op) {
			start := l.pos
			switch op {
			case "(", "[", "{":
				l.depth = append(l.depth, op)
			case ")", "]", "}":
				if len(l.depth) == 0 || l.depth[len(l.depth)-1] != closers[op] {
					return syntaxErrorf(l.line, "unmatched '%s'", op)
				}
				l.depth = l.depth[:len(l.depth)-1]
			}
			l.pos += len(op)
			l.emit(OP, start, "")
			return nil
		}
	}
	l.pos += size
	return syntaxErrorf(l.line, "invalid character '%c'", r)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	_, ok := hexVal(c)
	return ok
}

func hexVal(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	default:
		return 0, false
	}
}
