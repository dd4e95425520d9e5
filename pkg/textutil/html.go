package textutil

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StripHTML extracts readable plain text from stored page markup. Script and
// style contents are dropped and whitespace is collapsed. Non-HTML input
// passes through with whitespace collapsed.
func StripHTML(markup string) string {
	if !strings.ContainsRune(markup, '<') {
		return strings.Join(strings.Fields(markup), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return strings.Join(strings.Fields(markup), " ")
	}
	doc.Find("script, style, noscript").Remove()
	// Block-level boundaries become sentence boundaries for the splitter.
	var sb strings.Builder
	doc.Find("p, h1, h2, h3, h4, h5, h6, li, figcaption").Each(func(_ int, sel *goquery.Selection) {
		// Skip containers whose text is already covered by a nested block.
		if sel.Find("p, li").Length() > 0 {
			return
		}
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	})
	if sb.Len() > 0 {
		return strings.TrimSpace(sb.String())
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
