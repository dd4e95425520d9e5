package repositories

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/siloforge/siloforge-engine/pkg/models"
	"github.com/siloforge/siloforge-engine/pkg/textutil"
)

const contextSnippetLimit = 200

// affiliateMarkers flag outbound links that monetize rather than inform.
var affiliateMarkers = []string{
	"amzn.to", "amazon.com", "shopee.", "mercadolivre.", "magazineluiza.",
	"/aff/", "?aff", "affiliate", "utm_medium=aff", "indica=",
}

// ExtractOccurrences parses a page's stored markup and returns one occurrence
// per hyperlink, in document order. resolve maps an href to the target page
// id when the link stays inside the silo; nil means external.
func ExtractOccurrences(page *models.Page, resolve func(href string) *uuid.UUID, now time.Time) ([]*models.LinkOccurrence, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse page body: %w", err)
	}

	total := len(doc.Text())
	offset := 0
	claimed := make(map[*html.Node]bool)

	var out []*models.LinkOccurrence
	var walkErr error

	doc.Find("p, h1, h2, h3, h4, h5, h6, li, figcaption").Each(func(blockIdx int, block *goquery.Selection) {
		blockText := strings.TrimSpace(block.Text())
		blockStart := offset
		offset += len(blockText)

		block.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
			if walkErr != nil || len(link.Nodes) == 0 || claimed[link.Nodes[0]] {
				return
			}
			claimed[link.Nodes[0]] = true

			href, _ := link.Attr("href")
			href = strings.TrimSpace(href)
			if href == "" || strings.HasPrefix(href, "#") {
				return
			}

			rel, _ := link.Attr("rel")
			targetAttr, _ := link.Attr("target")

			targetID := resolve(href)
			class := classifyLink(href, rel, targetID != nil)

			occ, err := models.NewLinkOccurrence(
				uuid.New(), page.SiloID, page.ID, targetID,
				link.Text(), snippet(blockText), string(class),
				textutil.BucketFor(blockStart, total),
				fmt.Sprintf("g%d", blockIdx), now,
			)
			if err != nil {
				walkErr = fmt.Errorf("build occurrence for %q: %w", href, err)
				return
			}
			occ.NoFollow = strings.Contains(rel, "nofollow")
			occ.TargetBlank = targetAttr == "_blank"
			out = append(out, occ)
		})
	})

	if walkErr != nil {
		return nil, walkErr
	}
	return out, nil
}

func classifyLink(href, rel string, internal bool) models.LinkClass {
	if internal {
		return models.LinkInternal
	}
	if strings.Contains(rel, "sponsored") {
		return models.LinkAffiliate
	}
	lower := strings.ToLower(href)
	for _, marker := range affiliateMarkers {
		if strings.Contains(lower, marker) {
			return models.LinkAffiliate
		}
	}
	return models.LinkExternal
}

func snippet(text string) string {
	if len(text) <= contextSnippetLimit {
		return text
	}
	cut := text[:contextSnippetLimit]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut
}
