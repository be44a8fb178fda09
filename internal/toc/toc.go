// Package toc detects a table-of-contents block near the start of a
// document, promotes the body paragraphs it points to into Heading 2
// style so Word can regenerate the TOC natively, and removes the TOC
// entry lines themselves so they are never sent to the LLM as ordinary
// prose (page numbers do not translate).
package toc

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/local/doctranslate/internal/docx"
)

const (
	maxPagesDefault   = 10
	paragraphsPerPage = 50
	headingStyleID    = "Heading2"
)

var tocKeywords = []string{
	"table of contents", "contents", "table des matières",
	"tabla de contenidos", "índice", "contenido", "índice de contenidos",
	"sommaire", "inhaltsverzeichnis",
}

var (
	tabDigitsRe           = regexp.MustCompile(`\t+\d+`)
	anyTabDigitsRe        = regexp.MustCompile(`\t.*\d+`)
	trailingPageGapRe     = regexp.MustCompile(`\s{3,}\d+\s*$`)
	trailingNumberGapRe   = regexp.MustCompile(`[A-Za-z].{5,}\s{3,}\d+\s*$`)
	leaderDotsNumberRe    = regexp.MustCompile(`[A-Za-z].{5,}\.{2,}\d+`)
	fieldCodeRe           = regexp.MustCompile(`(?i)TOC\s+\\[a-z]`)
	fieldCodeWithArgRe    = regexp.MustCompile(`(?i)TOC\s+\\[a-z]+(\s+"[^"]*")?`)
	backslashCodeRe       = regexp.MustCompile(`(?i)\\[a-z]+(\s+"[^"]*")?`)
	trailingPageNumberRe  = regexp.MustCompile(`\s*\d+\s*$`)
	collapseSpaceRe       = regexp.MustCompile(`\s+`)
	leaderDotsOnlyRe      = regexp.MustCompile(`\.{3,}`)
)

// Entry is one detected table-of-contents line.
type Entry struct {
	ParaIndex int
	Text      string
}

// Match pairs a title extracted from the TOC with the body paragraph it
// was found to refer to.
type Match struct {
	ParaIndex int
	Title     string
}

// Result summarizes what Process did, for the request log.
type Result struct {
	Found               bool
	EntriesDetected     int
	TitlesExtracted     int
	ParagraphsConverted int
	ParagraphsSkipped   int
	ParagraphsRemoved   int
}

// Process runs the full stage against doc: detect a TOC in the first
// pages, extract clean titles from its entries, promote the matching
// body paragraphs to Heading 2, and remove the TOC entries. A document
// with no detected TOC is left untouched.
func Process(doc *docx.Document) Result {
	var res Result

	entries, endIndex := Detect(doc, maxPagesDefault)
	if len(entries) == 0 {
		return res
	}
	res.Found = true
	res.EntriesDetected = len(entries)

	titles := ExtractTitles(entries)
	res.TitlesExtracted = len(titles)
	if len(titles) == 0 {
		return res
	}

	startIndex := endIndex
	if startIndex <= 0 {
		startIndex = entries[len(entries)-1].ParaIndex + 1
	}

	matches := FindMatches(doc, titles, startIndex)
	converted, skipped := ConvertHeadings(doc, matches)
	res.ParagraphsConverted = converted
	res.ParagraphsSkipped = skipped

	res.ParagraphsRemoved = RemoveEntries(doc, entries)
	return res
}

// Detect scans the first maxPages*50 paragraphs for a TOC heading
// followed by a run of TOC-entry-shaped lines, ending at the next
// all-caps section heading or Heading-styled paragraph.
func Detect(doc *docx.Document, maxPages int) ([]Entry, int) {
	if maxPages <= 0 {
		maxPages = maxPagesDefault
	}
	limit := maxPages * paragraphsPerPage
	if limit > len(doc.Paragraphs) {
		limit = len(doc.Paragraphs)
	}

	var entries []Entry
	started := false
	ended := false
	endIndex := -1

	for i := 0; i < limit; i++ {
		p := doc.Paragraphs[i]
		text := strings.TrimSpace(p.Text())

		if !started {
			if containsTOCKeyword(text) {
				started = true
			}
			continue
		}

		if !ended && text != "" {
			if looksLikeSectionHeading(text) || strings.HasPrefix(strings.ToLower(p.Props.StyleName), "heading") {
				ended = true
				endIndex = i
				break
			}
		}

		if isTOCEntry(text) {
			entries = append(entries, Entry{ParaIndex: p.Index, Text: text})
		}
	}

	return entries, endIndex
}

func containsTOCKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range tocKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// looksLikeSectionHeading is the heuristic that ends a TOC block: a
// short all-caps line that isn't itself shaped like a TOC entry.
func looksLikeSectionHeading(text string) bool {
	if len(text) <= 3 || len(text) >= 100 {
		return false
	}
	if !isUpperText(text) {
		return false
	}
	if anyTabDigitsRe.MatchString(text) {
		return false
	}
	if trailingPageGapRe.MatchString(text) {
		return false
	}
	return true
}

func isUpperText(text string) bool {
	hasCased := false
	for _, r := range text {
		if unicode.IsLetter(r) {
			hasCased = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return hasCased
}

// isTOCEntry recognizes the line shapes a TOC renders: a title followed
// by tab-aligned, space-padded, dot-leader, or field-code page numbers.
// The original's hyperlink-run signal is not reproduced: the loader
// does not retain w:hyperlink wrapper elements (see DESIGN.md).
func isTOCEntry(text string) bool {
	if len(strings.TrimSpace(text)) < 3 {
		return false
	}
	if strings.Contains(text, "\t") && tabDigitsRe.MatchString(text) {
		return true
	}
	if trailingNumberGapRe.MatchString(text) {
		return true
	}
	if leaderDotsNumberRe.MatchString(text) {
		return true
	}
	if fieldCodeRe.MatchString(text) {
		return true
	}
	return false
}

// ExtractTitles cleans page numbers, field codes, leader dots, and
// duplicated halves ("Title Title" -> "Title") out of each entry's text.
func ExtractTitles(entries []Entry) []string {
	var titles []string
	for _, e := range entries {
		text := fieldCodeWithArgRe.ReplaceAllString(e.Text, "")
		text = backslashCodeRe.ReplaceAllString(text, "")
		text = trailingPageNumberRe.ReplaceAllString(text, "")
		text = strings.ReplaceAll(text, "\t", " ")
		text = collapseSpaceRe.ReplaceAllString(text, " ")
		text = strings.TrimSpace(text)

		words := strings.Fields(text)
		if len(words) >= 2 {
			mid := len(words) / 2
			first := strings.Join(words[:mid], " ")
			second := strings.Join(words[mid:], " ")
			if first == second {
				text = first
			}
		}

		text = leaderDotsOnlyRe.ReplaceAllString(text, "")
		text = strings.TrimSpace(text)

		if len(text) > 2 {
			titles = append(titles, text)
		}
	}
	return titles
}

// FindMatches fuzzy-matches each title against paragraphs at or after
// startIndex, preferring an exact (case-insensitive) match, then a
// paragraph that starts with the title, then one that merely contains
// it. startIndex excludes the TOC block and anything before it so a
// title is never matched against its own TOC line.
func FindMatches(doc *docx.Document, titles []string, startIndex int) []Match {
	var matches []Match
	for _, title := range titles {
		titleClean := collapseSpaceRe.ReplaceAllString(strings.TrimSpace(title), " ")
		titleLower := strings.ToLower(titleClean)

		var best *Match
		bestScore := 0

		for i := startIndex; i >= 0 && i < len(doc.Paragraphs); i++ {
			p := doc.Paragraphs[i]
			paraText := strings.TrimSpace(p.Text())
			if paraText == "" {
				continue
			}
			paraLower := strings.ToLower(collapseSpaceRe.ReplaceAllString(paraText, " "))

			if paraLower == titleLower {
				best = &Match{ParaIndex: p.Index, Title: title}
				bestScore = 100
				break
			}

			if len(titleClean) >= 10 && strings.Contains(paraLower, titleLower) {
				score := 70
				if strings.HasPrefix(paraLower, titleLower) {
					score = 90
				}
				if score > bestScore {
					best = &Match{ParaIndex: p.Index, Title: title}
					bestScore = score
				}
			}

			prefixLen := len(titleLower)
			if prefixLen > 50 {
				prefixLen = 50
			}
			if prefixLen > 0 && strings.HasPrefix(paraLower, titleLower[:prefixLen]) {
				if score := 80; score > bestScore {
					best = &Match{ParaIndex: p.Index, Title: title}
					bestScore = score
				}
			}
		}

		if best != nil && bestScore >= 70 {
			matches = append(matches, *best)
		}
	}
	return matches
}

// ConvertHeadings records a Heading 2 style override for each matched
// paragraph. A paragraph with no existing styleId is left alone and
// counted as skipped rather than translated and then reconciled: the
// serializer's onParaStyleVal hook only rewrites an existing <w:pStyle>
// element, it never inserts one (see docx/xml.go).
func ConvertHeadings(doc *docx.Document, matches []Match) (converted, skipped int) {
	byIndex := make(map[int]*docx.Paragraph, len(doc.Paragraphs))
	for _, p := range doc.Paragraphs {
		byIndex[p.Index] = p
	}

	for _, m := range matches {
		p, ok := byIndex[m.ParaIndex]
		if !ok {
			continue
		}
		if p.Props.StyleID == "" {
			skipped++
			continue
		}
		if doc.StyleOverrides == nil {
			doc.StyleOverrides = make(map[int]string)
		}
		doc.StyleOverrides[m.ParaIndex] = headingStyleID
		p.Props.StyleID = headingStyleID
		p.Props.StyleName = headingStyleID
		converted++
	}
	return converted, skipped
}

// RemoveEntries physically drops the detected TOC-entry paragraphs from
// doc.Paragraphs; the serializer already omits any paragraph whose
// Index is missing from that slice (see docx/serializer.go).
func RemoveEntries(doc *docx.Document, entries []Entry) int {
	if len(entries) == 0 {
		return 0
	}
	drop := make(map[int]bool, len(entries))
	for _, e := range entries {
		drop[e.ParaIndex] = true
	}

	kept := make([]*docx.Paragraph, 0, len(doc.Paragraphs))
	removed := 0
	for _, p := range doc.Paragraphs {
		if drop[p.Index] {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	doc.Paragraphs = kept
	return removed
}
