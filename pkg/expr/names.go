package expr

import "strings"

// greekLetters maps identifier spellings to LaTeX symbols. pi and e are
// numeric constants in calculations and deliberately absent.
var greekLetters = map[string]string{
	"alpha": `\alpha`, "beta": `\beta`, "gamma": `\gamma`, "Gamma": `\Gamma`,
	"delta": `\delta`, "Delta": `\Delta`,
	"epsilon": `\epsilon`, "varepsilon": `\varepsilon`,
	"zeta": `\zeta`, "eta": `\eta`,
	"theta": `\theta`, "Theta": `\Theta`, "vartheta": `\vartheta`,
	"iota": `\iota`, "kappa": `\kappa`,
	"lambda": `\lambda`, "Lambda": `\Lambda`,
	"mu": `\mu`, "nu": `\nu`, "xi": `\xi`, "Xi": `\Xi`,
	"Pi": `\Pi`, "varpi": `\varpi`,
	"rho": `\rho`, "varrho": `\varrho`,
	"sigma": `\sigma`, "Sigma": `\Sigma`, "varsigma": `\varsigma`,
	"tau": `\tau`,
	"upsilon": `\upsilon`, "Upsilon": `\Upsilon`,
	"phi": `\phi`, "Phi": `\Phi`, "varphi": `\varphi`,
	"chi": `\chi`,
	"psi": `\psi`, "Psi": `\Psi`,
	"omega": `\omega`, "Omega": `\Omega`,
	"ohm": `\Omega`,
	"inf": `\infty`,
}

func greek(s string) string {
	if g, ok := greekLetters[s]; ok {
		return g
	}
	return s
}

// NameLaTeX renders an identifier: Greek spellings become symbols and
// everything after the first underscore becomes a subscript, so V_in gives
// V_{in} and Gamma_L gives \Gamma_{L}.
func NameLaTeX(name string) string {
	base, sub, found := strings.Cut(name, "_")
	if !found {
		return greek(name)
	}
	if sub == "" {
		// lambda_ and friends: a trailing underscore only dodges a keyword
		return greek(base)
	}
	return greek(base) + "_{" + greek(sub) + "}"
}
