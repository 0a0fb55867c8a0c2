package calc

import (
	"math"
	"math/big"
	"strings"

	"github.com/wildfunctions/calcblocks/pkg/expr"
	"github.com/wildfunctions/calcblocks/pkg/value"
)

// integralTolerance is how close a float must be to a whole number to be
// displayed as one.
const integralTolerance = 1e-10

// FormatResult renders a computed value for the result stage of a line.
func FormatResult(v value.Value) string {
	switch n := v.(type) {
	case value.Float:
		return formatFloat(float64(n))
	case value.Complex:
		return formatComplex(complex128(n))
	case value.Bool, value.None:
		return expr.Text(n.String())
	case value.Str:
		return expr.Text(string(n))
	case value.List:
		parts := make([]string, len(n))
		for i, e := range n {
			parts[i] = FormatResult(e)
		}
		return `\left[` + strings.Join(parts, ", ") + `\right]`
	case *value.Dict:
		parts := make([]string, len(n.Keys))
		for i, k := range n.Keys {
			parts[i] = expr.Text(k) + ": " + FormatResult(n.Items[k])
		}
		return `\left\{` + strings.Join(parts, ", ") + `\right\}`
	case *value.Builtin:
		return expr.Text(n.String())
	default:
		return v.String()
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return `\infty`
	case math.IsInf(f, -1):
		return `-\infty`
	case math.IsNaN(f):
		return expr.Text("NaN")
	}
	r := math.Round(f)
	if math.Abs(f-r) < integralTolerance {
		i, _ := big.NewFloat(r).Int(nil)
		return i.String()
	}
	return value.FormatG(f, 6)
}

// formatComplex prints "3 + 4j", "3 - 4j", "2j", "j" or "-j"; a zero real
// part is omitted.
func formatComplex(c complex128) string {
	re, im := real(c), imag(c)
	mag := math.Abs(im)
	imag := value.FormatG(mag, 6) + "j"
	if mag == 1 {
		imag = "j"
	}
	if re == 0 {
		if im < 0 {
			return "-" + imag
		}
		return imag
	}
	sign := " + "
	if im < 0 {
		sign = " - "
	}
	return value.FormatG(re, 6) + sign + imag
}
