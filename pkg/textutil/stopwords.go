package textutil

import (
	"regexp"
	"strings"
)

// Heuristic tables for Brazilian Portuguese content. All lookups happen on
// folded text; keep every entry lowercase and diacritic-free.

var stopWords = map[string]bool{
	"a": true, "o": true, "as": true, "os": true, "um": true, "uma": true,
	"uns": true, "umas": true, "de": true, "da": true, "do": true, "das": true,
	"dos": true, "em": true, "no": true, "na": true, "nos": true, "nas": true,
	"por": true, "para": true, "pra": true, "com": true, "sem": true,
	"sob": true, "sobre": true, "entre": true, "ate": true, "apos": true,
	"e": true, "ou": true, "mas": true, "nem": true, "que": true, "se": true,
	"ja": true, "ainda": true, "tambem": true, "muito": true, "mais": true,
	"menos": true, "bem": true, "mal": true, "como": true, "quando": true,
	"onde": true, "porque": true, "pois": true, "assim": true, "entao": true,
	"ele": true, "ela": true, "eles": true, "elas": true, "eu": true,
	"voce": true, "voces": true, "seu": true, "sua": true,
	"seus": true, "suas": true, "meu": true, "minha": true, "este": true,
	"esta": true, "estes": true, "estas": true, "esse": true, "essa": true,
	"esses": true, "essas": true, "isso": true, "isto": true, "aquele": true,
	"aquela": true, "aquilo": true, "ao": true, "aos": true, "pelo": true,
	"pela": true, "pelos": true, "pelas": true, "num": true, "numa": true,
	"ser": true, "estar": true, "ter": true, "haver": true, "foi": true,
	"era": true, "sao": true, "tem": true, "ha": true,
	"vai": true, "pode": true, "deve": true, "cada": true, "todo": true,
	"toda": true, "todos": true, "todas": true, "outro": true, "outra": true,
	"qual": true, "quais": true, "qualquer": true, "nao": true, "sim": true,
}

var genericAnchors = map[string]bool{
	"clique aqui":      true,
	"clique":           true,
	"aqui":             true,
	"saiba mais":       true,
	"leia mais":        true,
	"leia tambem":      true,
	"veja mais":        true,
	"veja aqui":        true,
	"veja tambem":      true,
	"confira":          true,
	"confira aqui":     true,
	"acesse":           true,
	"acesse aqui":      true,
	"este artigo":      true,
	"neste artigo":     true,
	"este link":        true,
	"neste link":       true,
	"nesse link":       true,
	"link":             true,
	"mais informacoes": true,
	"mais detalhes":    true,
	"saiba tudo":       true,
	"continue lendo":   true,
	"clicando aqui":    true,
}

var vagueAnchors = map[string]bool{
	"artigo": true, "post": true, "pagina": true, "texto": true,
	"conteudo": true, "materia": true, "guia": true, "dica": true,
	"dicas": true, "assunto": true, "tema": true, "coisa": true,
	"isso": true, "isto": true, "ele": true, "ela": true,
}

var commercialTerms = []string{
	"comprar", "compre", "compra", "preco", "precos", "r$", "desconto",
	"promocao", "frete", "cupom", "oferta", "ofertas", "barato", "custa",
	"custam", "a venda", "loja", "parcela", "parcelas", "cashback",
}

// weakPrefixes disqualify a phrase that opens on a connector or verb scrap.
var weakPrefixes = map[string]bool{
	"e": true, "ou": true, "mas": true, "que": true, "se": true, "de": true,
	"da": true, "do": true, "em": true, "no": true, "na": true, "com": true,
	"para": true, "por": true, "ao": true, "a": true, "o": true, "um": true,
	"uma": true, "os": true, "as": true, "pois": true, "como": true,
	"quando": true, "tambem": true, "porem": true, "entao": true,
	"alem": true, "ja": true, "nao": true,
}

// stopConnectors disqualify a phrase that trails off on a function word.
var stopConnectors = map[string]bool{
	"e": true, "ou": true, "de": true, "da": true, "do": true, "das": true,
	"dos": true, "em": true, "no": true, "na": true, "com": true, "para": true,
	"por": true, "que": true, "se": true, "a": true, "o": true, "um": true,
	"uma": true, "ao": true, "mais": true, "como": true, "sem": true,
	"sobre": true, "entre": true, "seu": true, "sua": true,
}

var unitPattern = regexp.MustCompile(`\b\d+([.,]\d+)?\s?(kg|g|mg|ml|l|cm|mm|km|m2|m|un|und|litros?|metros?|gramas?|quilos?|%)\b`)

var hiddenAnchorPattern = regexp.MustCompile(`^[\s\p{P}\p{S}]*$`)

// IsStopWord reports whether the folded word is a stop word.
func IsStopWord(w string) bool {
	return stopWords[w]
}

// IsGenericAnchor reports whether the anchor text is a known generic
// call-to-action ("clique aqui", "saiba mais", ...).
func IsGenericAnchor(anchor string) bool {
	return genericAnchors[NormalizePhrase(anchor)]
}

// IsVagueAnchor reports whether the anchor is a single unspecific noun or
// pronoun that tells the reader nothing about the target.
func IsVagueAnchor(anchor string) bool {
	norm := NormalizePhrase(anchor)
	if vagueAnchors[norm] {
		return true
	}
	words := strings.Fields(norm)
	return len(words) == 1 && (stopWords[words[0]] || vagueAnchors[words[0]])
}

// IsHiddenAnchor reports whether the anchor is empty, punctuation-only, or
// the editor placeholder "[Sem texto]".
func IsHiddenAnchor(anchor string) bool {
	norm := NormalizePhrase(anchor)
	if norm == "" || norm == "[sem texto]" || norm == "sem texto" {
		return true
	}
	return hiddenAnchorPattern.MatchString(Fold(anchor))
}

// HasCommercialTerm reports whether the folded text contains a price, vendor
// or promotion term, or a unit measurement. Sentences with these never yield
// anchor candidates.
func HasCommercialTerm(s string) bool {
	folded := Fold(s)
	if strings.Contains(folded, "r$") {
		return true
	}
	padded := " " + folded + " "
	for _, term := range commercialTerms {
		if strings.Contains(padded, " "+term+" ") {
			return true
		}
	}
	return unitPattern.MatchString(folded)
}

// HasWeakPrefix reports whether the phrase opens on a connector or other
// function word. Both tables apply at the start; a phrase like "sobre poda"
// reads as a fragment even though "sobre" only trails in mid-sentence cuts.
func HasWeakPrefix(phrase string) bool {
	words := strings.Fields(Fold(phrase))
	if len(words) == 0 {
		return true
	}
	return weakPrefixes[words[0]] || stopConnectors[words[0]]
}

// HasStopConnectorSuffix reports whether the phrase trails off on a function word.
func HasStopConnectorSuffix(phrase string) bool {
	words := strings.Fields(Fold(phrase))
	if len(words) == 0 {
		return true
	}
	return stopConnectors[words[len(words)-1]]
}

// MeaningfulTokens counts non-stop-word tokens in the phrase.
func MeaningfulTokens(phrase string) int {
	n := 0
	for _, w := range Words(phrase) {
		if len(w) >= 2 && !IsStopWord(w) {
			n++
		}
	}
	return n
}
