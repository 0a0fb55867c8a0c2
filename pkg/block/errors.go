package block

import (
	"regexp"
	"strings"
)

// GenericError is shown when nothing better can be extracted.
const GenericError = "calculation error"

var errorLine = regexp.MustCompile(`^([A-Za-z_][\w.]*(?:Error|Exception|Warning)): (.*)$`)

// SimplifyError shortens interpreter error output to one line: the first
// "<Kind>: <message>" line, else the last unindented line that is not a
// "File ..." trace entry, else GenericError.
func SimplifyError(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if errorLine.MatchString(l) {
			return l
		}
	}
	for i := len(lines) - 1; i >= 0; i-- {
		l := strings.TrimRight(lines[i], " \t")
		if l == "" || l[0] == ' ' || l[0] == '\t' || strings.HasPrefix(l, "File ") {
			continue
		}
		return l
	}
	return GenericError
}
