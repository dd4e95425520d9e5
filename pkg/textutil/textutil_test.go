package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Adubação Orgânica", "adubacao organica"},
		{"PODA DE ÁRVORES", "poda de arvores"},
		{"já plantei", "ja plantei"},
		{"sem acentos", "sem acentos"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Fold(tt.in))
	}
}

func TestTokenizeDropsStopWordsAndStems(t *testing.T) {
	tokens := Tokenize("Os adubos orgânicos para as hortas urbanas")
	assert.Equal(t, []string{"adubo", "organico", "horta", "urbana"}, tokens)
}

func TestStem(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"adubos", "adubo"},
		{"condicoes", "condicao"},
		{"jardins", "jardim"},
		{"naturais", "natural"},
		{"flores", "flor"},
		{"rapidamente", "rapida"},
		{"sol", "sol"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Stem(tt.in), "stem of %q", tt.in)
	}
}

func TestSentencesOffsetsAndBuckets(t *testing.T) {
	text := "Primeira frase abre o texto. Segunda frase continua aqui. Terceira frase segue adiante. Quarta frase encerra o documento."
	sents := Sentences(text)
	require.Len(t, sents, 4)

	for _, s := range sents {
		assert.Equal(t, s.Text, text[s.Start:s.End])
	}
	assert.Equal(t, BucketStart, sents[0].Bucket)
	assert.Equal(t, BucketEnd, sents[3].Bucket)
}

func TestBucketFor(t *testing.T) {
	assert.Equal(t, BucketStart, BucketFor(0, 300))
	assert.Equal(t, BucketMiddle, BucketFor(150, 300))
	assert.Equal(t, BucketEnd, BucketFor(250, 300))
	assert.Equal(t, BucketStart, BucketFor(0, 0))
}

func TestAnchorClassification(t *testing.T) {
	assert.True(t, IsGenericAnchor("Clique aqui"))
	assert.True(t, IsGenericAnchor("SAIBA MAIS"))
	assert.True(t, IsGenericAnchor("leia também"))
	assert.False(t, IsGenericAnchor("guia de poda de macieiras"))

	assert.True(t, IsVagueAnchor("artigo"))
	assert.True(t, IsVagueAnchor("página"))
	assert.False(t, IsVagueAnchor("calendário de plantio"))

	assert.True(t, IsHiddenAnchor("[Sem texto]"))
	assert.True(t, IsHiddenAnchor("   "))
	assert.True(t, IsHiddenAnchor("..."))
	assert.False(t, IsHiddenAnchor("poda de inverno"))
}

func TestHasCommercialTerm(t *testing.T) {
	assert.True(t, HasCommercialTerm("Aproveite o desconto de hoje"))
	assert.True(t, HasCommercialTerm("custa apenas R$49 no site"))
	assert.True(t, HasCommercialTerm("embalagem de 5 kg para entrega"))
	assert.False(t, HasCommercialTerm("como podar macieiras no inverno"))
}

func TestPhraseEdges(t *testing.T) {
	assert.True(t, HasWeakPrefix("e como plantar"))
	assert.False(t, HasWeakPrefix("como plantar tomates"))
	// Connectors disqualify at the start too, not only when trailing.
	assert.True(t, HasWeakPrefix("sobre poda de macieiras"))
	assert.True(t, HasWeakPrefix("das hortaliças mais comuns"))
	assert.True(t, HasWeakPrefix("sem ferramentas afiadas"))
	assert.True(t, HasStopConnectorSuffix("plantio de tomates e"))
	assert.False(t, HasStopConnectorSuffix("plantio de tomates"))
	assert.Equal(t, 2, MeaningfulTokens("o plantio de tomates"))
}

func TestStripHTML(t *testing.T) {
	markup := `<h1>Poda de Inverno</h1><p>A poda correta melhora a produção.</p><script>var x=1;</script><ul><li>Macieiras</li><li>Pereiras</li></ul>`
	text := StripHTML(markup)
	assert.Contains(t, text, "Poda de Inverno")
	assert.Contains(t, text, "melhora a produção")
	assert.Contains(t, text, "Macieiras")
	assert.NotContains(t, text, "var x=1")
}

func TestTitleCompare(t *testing.T) {
	assert.Negative(t, TitleCompare("Árvores frutíferas", "Zinco no solo"))
	assert.Positive(t, TitleCompare("Zinco no solo", "árvores"))
}

func TestNormalizePhraseAndOverlap(t *testing.T) {
	assert.Equal(t, "adubacao organica", NormalizePhrase("  Adubação   Orgânica "))
	set := map[string]bool{"adubo": true, "organico": true}
	assert.Equal(t, 2, Overlap([]string{"adubo", "organico", "adubo"}, set))
}
