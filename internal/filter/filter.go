// Package filter drops paragraphs that are empty, decorative-only, single
// non-heading words, or orphaned single-letter markers from the sequence
// sent for translation. Skipped paragraphs stay in the document at their
// original position and are simply absent from the returned sequence;
// orphaned single-letter markers are also removed from doc.Paragraphs.
package filter

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/local/doctranslate/internal/docx"
)

// FilteredParagraph is a paragraph that survived the filter and is
// eligible for translation. RawText preserves all whitespace, including
// leading and trailing spaces, exactly as the source paragraph holds it.
type FilteredParagraph struct {
	Index   int
	Para    *docx.Paragraph
	RawText string
}

// Apply walks doc's paragraphs in order, physically removing orphan
// decorative initials from doc.Paragraphs and returning the filtered
// sequence of everything else that remains eligible for translation.
func Apply(doc *docx.Document) []FilteredParagraph {
	removeOrphanInitials(doc)

	var out []FilteredParagraph
	for _, p := range doc.Paragraphs {
		text := p.Text()
		if shouldSkip(p, text) {
			continue
		}
		out = append(out, FilteredParagraph{Index: p.Index, Para: p, RawText: text})
	}
	return out
}

// removeOrphanInitials implements the orphan-letter rule: a paragraph
// whose text is exactly one uppercase letter, immediately followed by a
// paragraph that begins with an uppercase letter, is a decorative drop
// cap and is physically removed from the document rather than merely
// skipped.
func removeOrphanInitials(doc *docx.Document) {
	kept := make([]*docx.Paragraph, 0, len(doc.Paragraphs))
	for i, p := range doc.Paragraphs {
		text := p.Text()
		if isSingleUppercaseLetter(text) && i+1 < len(doc.Paragraphs) {
			next := strings.TrimLeft(doc.Paragraphs[i+1].Text(), "")
			if beginsWithUppercase(next) {
				continue
			}
		}
		kept = append(kept, p)
	}
	doc.Paragraphs = kept
}

// isSingleUppercaseLetter normalizes to NFC first: a decorative initial
// like "Á" can arrive from the run as a base letter plus a combining
// accent, which would otherwise count as two runes.
func isSingleUppercaseLetter(s string) bool {
	trimmed := strings.TrimSpace(norm.NFC.String(s))
	if len([]rune(trimmed)) != 1 {
		return false
	}
	r := []rune(trimmed)[0]
	return unicode.IsUpper(r) && unicode.IsLetter(r)
}

func beginsWithUppercase(s string) bool {
	trimmed := strings.TrimSpace(norm.NFC.String(s))
	if trimmed == "" {
		return false
	}
	r := []rune(trimmed)[0]
	return unicode.IsUpper(r) && unicode.IsLetter(r)
}

// shouldSkip applies the empty/non-meaningful and single-word rules.
func shouldSkip(p *docx.Paragraph, text string) bool {
	if !isMeaningful(text) {
		return true
	}
	words := strings.Fields(text)
	if len(words) <= 1 {
		if isAllUppercase(text) {
			return false
		}
		if strings.HasPrefix(strings.ToLower(p.Props.StyleName), "heading") {
			return false
		}
		return true
	}
	return false
}

// isMeaningful mirrors a simple rule from the source this engine descends
// from: strip everything that is not a letter, digit, or underscore and
// see if anything survives. Pure punctuation/symbol paragraphs and
// whitespace-only paragraphs are not meaningful.
func isMeaningful(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return true
		}
	}
	return false
}

func isAllUppercase(text string) bool {
	hasLetter := false
	for _, r := range text {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}
