// Package planner segments a filtered paragraph stream into batches sized
// by a rolling token budget, deciding for each batch whether the standard
// (whole-paragraph) or robust (per-run) translation path applies.
package planner

import (
	"strings"
	"unicode"

	"github.com/local/doctranslate/internal/docx"
	"github.com/local/doctranslate/internal/filter"
)

// Region classifies the complexity of an upcoming window of paragraphs.
type Region int

const (
	Simple Region = iota
	Moderate
	Complex
)

// Batch is a contiguous run of filtered paragraphs assigned a token target
// and a translation path.
type Batch struct {
	Members         []filter.FilteredParagraph
	UseRobust       bool
	EstimatedTokens int
}

// Config holds the tunables §4.3 and §6 name. Zero-value fields are used
// as given; Defaults() returns a fully populated Config to start from.
type Config struct {
	WindowSize           int
	TokenTargetSimple    int
	TokenTargetModerate  int
	TokenTargetComplex   int
	LegacyClassification bool
}

func Defaults() Config {
	return Config{
		WindowSize:          100,
		TokenTargetSimple:   5000,
		TokenTargetModerate: 3000,
		TokenTargetComplex:  2000,
	}
}

// EstimateTokens approximates token count from byte length, deliberately
// rough and conservative.
func EstimateTokens(text string) int {
	n := len(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// complexity mirrors §4.3's scoring rule.
type complexity struct {
	score               int
	isComplex           bool
	hasInlineFormatting bool
	runCount            int
}

func scoreParagraph(p *docx.Paragraph, text string) complexity {
	c := complexity{runCount: len(p.Runs)}

	if len(p.Runs) > 2 {
		c.score += 3
	}

	newlines := strings.Count(text, "\n")
	leading := countLeadingWhitespace(text)
	if newlines > 2 || leading > 2 {
		c.score += 2
	}

	formattedRuns := 0
	for _, r := range p.Runs {
		if r.Formatting.Bold.Bool() || r.Formatting.Italic.Bool() || r.Formatting.Underline.Bool() {
			formattedRuns++
		}
	}
	if formattedRuns > 1 {
		c.score += 2
	}
	c.hasInlineFormatting = formattedRuns > 0

	c.isComplex = c.score >= 3
	return c
}

func countLeadingWhitespace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			break
		}
		n++
	}
	return n
}

func classifyRegion(window []complexity) Region {
	if len(window) == 0 {
		return Simple
	}
	complexCount, formattedCount := 0, 0
	for _, c := range window {
		if c.isComplex {
			complexCount++
		}
		if c.hasInlineFormatting {
			formattedCount++
		}
	}
	complexRatio := float64(complexCount) / float64(len(window))
	formatRatio := float64(formattedCount) / float64(len(window))

	switch {
	case complexRatio < 0.2 && formatRatio < 0.3:
		return Simple
	case complexRatio <= 0.4 && formatRatio <= 0.5:
		return Moderate
	default:
		return Complex
	}
}

func (r Region) tokenTarget(cfg Config) int {
	switch r {
	case Simple:
		return cfg.TokenTargetSimple
	case Moderate:
		return cfg.TokenTargetModerate
	default:
		return cfg.TokenTargetComplex
	}
}

func (r Region) defaultRobust() bool {
	return r != Simple
}

// Plan assembles filtered into batches per §4.3. cfg's zero fields are not
// replaced here; call Defaults() and override before passing in.
func Plan(cfg Config, filtered []filter.FilteredParagraph) []Batch {
	if len(filtered) == 0 {
		return nil
	}

	scores := make([]complexity, len(filtered))
	for i, fp := range filtered {
		scores[i] = scoreParagraph(fp.Para, fp.RawText)
	}

	if cfg.LegacyClassification {
		return planLegacy(filtered)
	}

	var batches []Batch
	i := 0
	for i < len(filtered) {
		windowEnd := i + cfg.WindowSize
		if windowEnd > len(scores) {
			windowEnd = len(scores)
		}
		region := classifyRegion(scores[i:windowEnd])
		target := region.tokenTarget(cfg)

		batch := Batch{UseRobust: region.defaultRobust()}
		tokens := 0
		for i < len(filtered) {
			pTokens := EstimateTokens(filtered[i].RawText)
			if len(batch.Members) > 0 && tokens+pTokens > target {
				break
			}
			batch.Members = append(batch.Members, filtered[i])
			tokens += pTokens
			i++
		}
		batch.EstimatedTokens = tokens
		applyPerBatchAdaptivity(&batch, scores)
		batches = append(batches, batch)
	}

	return batches
}

// applyPerBatchAdaptivity upgrades a batch to the robust path if its
// members' run counts warrant it, independent of the section's
// classification; allScores is not consulted.
func applyPerBatchAdaptivity(b *Batch, allScores []complexity) {
	if len(b.Members) == 0 {
		return
	}
	totalRuns := 0
	denseCount := 0
	for _, m := range b.Members {
		totalRuns += len(m.Para.Runs)
		if len(m.Para.Runs) > 2 {
			denseCount++
		}
	}
	avgRuns := float64(totalRuns) / float64(len(b.Members))
	denseFraction := float64(denseCount) / float64(len(b.Members))
	if avgRuns > 2.5 || denseFraction > 0.3 {
		b.UseRobust = true
	}
}

const (
	legacyPoetrySize   = 1
	legacyDialogueSize = 5
	legacyListSize     = 3
	legacyProseSize    = 20
	legacyDefaultSize  = 10
)

// planLegacy reproduces the reference implementation's content-type
// classifier: a fixed batch size per detected content type, selectable via
// the legacy_classification flag for parity testing against historical
// batch boundaries. Token estimation still applies for EstimatedTokens,
// but size decisions come from classification, not the token target.
func planLegacy(filtered []filter.FilteredParagraph) []Batch {
	var batches []Batch
	i := 0
	for i < len(filtered) {
		size := legacyBatchSize(filtered[i].RawText)
		end := i + size
		if end > len(filtered) {
			end = len(filtered)
		}
		batch := Batch{Members: filtered[i:end]}
		for _, m := range batch.Members {
			batch.EstimatedTokens += EstimateTokens(m.RawText)
		}
		applyPerBatchAdaptivityLegacy(&batch)
		batches = append(batches, batch)
		i = end
	}
	return batches
}

func applyPerBatchAdaptivityLegacy(b *Batch) {
	if len(b.Members) == 0 {
		return
	}
	totalRuns, dense := 0, 0
	for _, m := range b.Members {
		totalRuns += len(m.Para.Runs)
		if len(m.Para.Runs) > 2 {
			dense++
		}
	}
	avg := float64(totalRuns) / float64(len(b.Members))
	fraction := float64(dense) / float64(len(b.Members))
	if avg > 2.5 || fraction > 0.3 {
		b.UseRobust = true
	}
}

// legacyBatchSize classifies a paragraph's content type by cheap textual
// heuristics and returns the fixed batch size associated with that type.
func legacyBatchSize(text string) int {
	trimmed := strings.TrimSpace(text)
	switch {
	case isPoetry(text):
		return legacyPoetrySize
	case isDialogue(trimmed):
		return legacyDialogueSize
	case isList(trimmed):
		return legacyListSize
	case len(trimmed) > 400:
		return legacyProseSize
	default:
		return legacyDefaultSize
	}
}

func isPoetry(text string) bool {
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return false
	}
	short := 0
	for _, l := range lines {
		if l := strings.TrimSpace(l); l != "" && len(l) < 60 {
			short++
		}
	}
	return short >= len(lines)-1 && short > 1
}

func isDialogue(trimmed string) bool {
	if trimmed == "" {
		return false
	}
	r := []rune(trimmed)[0]
	return r == '"' || r == '“' || r == '-' || r == '—'
}

func isList(trimmed string) bool {
	if trimmed == "" {
		return false
	}
	for _, prefix := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	r := []rune(trimmed)
	if len(r) > 1 && unicode.IsDigit(r[0]) {
		for _, sep := range []rune{'.', ')'} {
			idx := strings.IndexRune(trimmed, sep)
			if idx > 0 && idx < 4 {
				return true
			}
		}
	}
	return false
}
