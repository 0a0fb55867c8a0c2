package block

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"github.com/wildfunctions/calcblocks/pkg/store"
	"github.com/wildfunctions/calcblocks/pkg/value"
)

// EncodeAssignments serializes vars as source assignments, one per line in
// name order, so the block's code can read them. Variables owned by
// exclude (the running block) are left out, since the block is about to
// redefine them. Names that are not identifiers are skipped.
func EncodeAssignments(vars store.VariableSet, exclude string) (string, error) {
	names := make([]string, 0, len(vars))
	for name, info := range vars {
		if exclude != "" && info.OwnedBy(exclude) {
			continue
		}
		if !isIdentifier(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		info := vars[name]
		lit, err := EncodeValue(info.Value, info.Type)
		if err != nil {
			return "", errors.Wrapf(err, "encode variable %s", name)
		}
		fmt.Fprintf(&b, "%s = %s\n", name, lit)
	}
	return b.String(), nil
}

// EncodeValue renders one stored value as a source literal. typ selects
// the constructor for values kept as strings: complex("(3+4j)") and
// float("inf").
func EncodeValue(v any, typ string) (string, error) {
	switch n := v.(type) {
	case nil:
		return "None", nil
	case bool:
		return value.Bool(n).String(), nil
	case string:
		switch typ {
		case "complex":
			return "complex(" + quote(n) + ")", nil
		case "float":
			return "float(" + quote(n) + ")", nil
		}
		return quote(n), nil
	case int:
		return strconv.Itoa(n), nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	case *big.Int:
		return n.String(), nil
	case float64:
		if math.IsInf(n, 0) || math.IsNaN(n) {
			return "float(" + quote(value.FormatFloat(n)) + ")", nil
		}
		return value.FormatFloat(n), nil
	case json.Number:
		return EncodeValue(store.Normalize(n), typ)
	case []any:
		parts := make([]string, len(n))
		for i, e := range n {
			s, err := EncodeValue(e, "")
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case map[string]any:
		keys := make([]string, 0, len(n))
		for k := range n {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			s, err := EncodeValue(n[k], "")
			if err != nil {
				return "", err
			}
			parts[i] = quote(k) + ": " + s
		}
		return "{" + strings.Join(parts, ", ") + "}", nil
	default:
		return encodeStructured(v)
	}
}

// encodeStructured handles any other Go value by taking it through its
// JSON form.
func encodeStructured(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrapf(err, "unsupported value of type %T", v)
	}
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return "", errors.Wrap(err, "decode structured value")
	}
	return EncodeValue(store.Normalize(generic), "")
}

func quote(s string) string {
	return value.Repr(value.Str(s))
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r != '_' && !unicode.IsLetter(r) && (i == 0 || !unicode.IsDigit(r)) {
			return false
		}
	}
	switch s {
	case "True", "False", "None":
		return false
	}
	return true
}
