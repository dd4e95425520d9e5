package textutil

import (
	"strings"
	"unicode/utf8"
)

// PositionBucket labels where a sentence (or anchor) sits in the document.
type PositionBucket string

const (
	BucketStart  PositionBucket = "START"
	BucketMiddle PositionBucket = "MIDDLE"
	BucketEnd    PositionBucket = "END"
)

// Sentence is a text span with its byte offsets into the source document.
type Sentence struct {
	Text   string
	Start  int
	End    int
	Bucket PositionBucket
}

// Sentences splits plain text into sentences, preserving offsets. Terminators
// are ., !, ? and newlines; abbreviations are not handled, which is fine for
// the phrase-window use (a spurious split only shortens a window).
func Sentences(text string) []Sentence {
	var out []Sentence
	total := len(text)
	start := 0
	for i := 0; i < total; {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			raw := text[start : i+size]
			if s := strings.TrimSpace(raw); s != "" {
				trimStart := start + strings.Index(raw, s)
				out = append(out, Sentence{
					Text:   s,
					Start:  trimStart,
					End:    trimStart + len(s),
					Bucket: BucketFor(trimStart, total),
				})
			}
			start = i + size
		}
		i += size
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		trimStart := start + strings.Index(text[start:], s)
		out = append(out, Sentence{
			Text:   s,
			Start:  trimStart,
			End:    trimStart + len(s),
			Bucket: BucketFor(trimStart, total),
		})
	}
	return out
}

// BucketFor maps a byte offset to its document-position bucket: the first
// third is START, the last third END, the rest MIDDLE.
func BucketFor(offset, total int) PositionBucket {
	if total <= 0 {
		return BucketStart
	}
	ratio := float64(offset) / float64(total)
	switch {
	case ratio < 0.33:
		return BucketStart
	case ratio >= 0.67:
		return BucketEnd
	default:
		return BucketMiddle
	}
}
