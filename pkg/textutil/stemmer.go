package textutil

import "strings"

// Light Portuguese suffix stripper. This is deliberately not a full RSLP
// stemmer: it only needs to collapse the inflections that show up in titles,
// keywords and anchor phrases (plurals, diminutives, common derivations) so
// that "adubos organicos" and "adubo organico" share tokens.

type suffixRule struct {
	suffix  string
	replace string
	minStem int
}

// Ordered longest-first; the first applicable rule wins.
var suffixRules = []suffixRule{
	{"amentos", "", 3},
	{"imentos", "", 3},
	{"amento", "", 3},
	{"imento", "", 3},
	{"adoras", "", 3},
	{"adores", "", 3},
	{"adora", "", 3},
	{"ador", "", 3},
	{"mente", "", 4},
	{"idades", "", 3},
	{"idade", "", 3},
	{"coes", "cao", 3},
	{"soes", "sao", 3},
	{"ncias", "ncia", 2},
	{"agens", "agem", 2},
	{"istas", "ista", 2},
	{"ismos", "ismo", 2},
	{"osos", "oso", 3},
	{"osas", "oso", 3},
	{"osa", "oso", 3},
	{"ivos", "ivo", 3},
	{"ivas", "ivo", 3},
	{"iva", "ivo", 3},
	{"ais", "al", 2},
	{"eis", "el", 2},
	{"ois", "ol", 2},
	{"ns", "m", 2},
	{"s", "", 3},
}

// Stem strips the first matching suffix from a folded word, then drops a
// trailing "e" so pairs like flor/flores and tomate/tomates share a stem.
// Words shorter than four runes pass through unchanged.
func Stem(w string) string {
	if len(w) < 4 {
		return w
	}
	for _, rule := range suffixRules {
		if strings.HasSuffix(w, rule.suffix) {
			stem := w[:len(w)-len(rule.suffix)]
			if len(stem) >= rule.minStem {
				w = stem + rule.replace
				break
			}
		}
	}
	if len(w) >= 5 && strings.HasSuffix(w, "e") {
		w = w[:len(w)-1]
	}
	return w
}
