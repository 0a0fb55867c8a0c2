package block

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// Marker starts a block's options line.
const Marker = "# calc:"

// Options is the parsed options line of a block.
type Options struct {
	ID      string // block identity, used for variable ownership
	VSet    string // variable scope shared with other blocks
	Hidden  bool
	Accent  string // "vset" or "default"
	Bg      string // "transparent", "subtle" or "solid"
	Compact bool
}

var (
	accents = map[string]bool{"vset": true, "default": true}
	bgs     = map[string]bool{"transparent": true, "subtle": true, "solid": true}
)

// ParseOptions parses an options line. ok is false when line does not
// start with the marker. Tokens are order-independent; unknown tokens and
// out-of-range values are ignored.
func ParseOptions(line string) (opts Options, ok bool) {
	rest, ok := cutMarker(line)
	if !ok {
		return Options{}, false
	}
	for _, tok := range strings.Fields(rest) {
		key, val, _ := strings.Cut(tok, "=")
		switch key {
		case "id":
			opts.ID = val
		case "vset":
			opts.VSet = val
		case "hidden":
			opts.Hidden = true
		case "compact":
			opts.Compact = true
		case "accent":
			if accents[val] {
				opts.Accent = val
			}
		case "bg":
			if bgs[val] {
				opts.Bg = val
			}
		}
	}
	return opts, true
}

// cutMarker strips "#", optional spaces and "calc:" from the start of line.
func cutMarker(line string) (string, bool) {
	s := strings.TrimSpace(line)
	if !strings.HasPrefix(s, "#") {
		return "", false
	}
	s = strings.TrimLeft(s[1:], " \t")
	if !strings.HasPrefix(s, "calc:") {
		return "", false
	}
	return s[len("calc:"):], true
}

// Format serializes o as an options line: id first, then vset, hidden,
// accent, bg and compact when set.
func (o Options) Format() string {
	parts := []string{Marker, "id=" + o.ID}
	if o.VSet != "" {
		parts = append(parts, "vset="+o.VSet)
	}
	if o.Hidden {
		parts = append(parts, "hidden")
	}
	if o.Accent != "" {
		parts = append(parts, "accent="+o.Accent)
	}
	if o.Bg != "" {
		parts = append(parts, "bg="+o.Bg)
	}
	if o.Compact {
		parts = append(parts, "compact")
	}
	return strings.Join(parts, " ")
}

// Split separates a block's options line from its code. Without an options
// line the whole source is code.
func Split(src string) (opts Options, found bool, code string) {
	first, rest, _ := strings.Cut(src, "\n")
	opts, found = ParseOptions(first)
	if !found {
		return Options{}, false, src
	}
	return opts, true, rest
}

// SetID returns line with its id set, keeping every other token and the
// spacing as written. An existing id token is replaced in place, otherwise
// id=<id> goes right after the marker. Lines without the marker are
// returned unchanged.
func SetID(line, id string) string {
	if _, ok := cutMarker(line); !ok {
		return line
	}
	at := strings.Index(line, "calc:") + len("calc:")
	head, tail := line[:at], line[at:]
	for i := 0; i < len(tail); {
		if isBlank(tail[i]) {
			i++
			continue
		}
		j := i
		for j < len(tail) && !isBlank(tail[j]) {
			j++
		}
		if key, _, _ := strings.Cut(tail[i:j], "="); key == "id" {
			return head + tail[:i] + "id=" + id + tail[j:]
		}
		i = j
	}
	if tail != "" && !isBlank(tail[0]) {
		tail = " " + tail
	}
	return head + " id=" + id + tail
}

func isBlank(c byte) bool { return c == ' ' || c == '\t' }

// NewID returns a fresh short block identifier.
func NewID() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}
