// Package applier writes translated text back into a Document's paragraph
// and run tree, choosing between whole-paragraph replacement and per-run
// reconstruction depending on how each batch was translated.
package applier

import (
	"regexp"

	"github.com/rs/zerolog/log"

	"github.com/local/doctranslate/internal/docx"
	"github.com/local/doctranslate/internal/executor"
)

const (
	untranslatedOpen  = "<untranslated>"
	untranslatedClose = "</untranslated>"
)

var thinkTagRe = regexp.MustCompile(`(?is)<think>.*?</think>`)

func sanitize(s string) string {
	return thinkTagRe.ReplaceAllString(s, "")
}

// Apply walks results in batch-index order and mutates doc in place.
// Results must correspond 1:1 with the batches that produced them.
func Apply(results []*executor.BatchResult) {
	for _, r := range results {
		if r.Failed {
			applyFailed(r)
			continue
		}
		if r.UseRobust {
			applyRobust(r)
		} else {
			applyStandard(r)
		}
	}
}

// applyStandard clears every run of each member's paragraph and writes the
// full translation into the first run, per §4.6.
func applyStandard(r *executor.BatchResult) {
	for i, m := range r.Members {
		text := ""
		if i < len(r.Translations) {
			text = sanitize(r.Translations[i])
		}
		writeStandard(m.Para, text)
	}
}

func writeStandard(p *docx.Paragraph, text string) {
	if len(p.Runs) == 0 {
		p.Runs = []*docx.Run{{Text: text}}
		return
	}
	p.Runs[0].Text = text
	for i := 1; i < len(p.Runs); i++ {
		p.Runs[i].Text = ""
	}
}

// applyRobust rewrites each member's runs from its run-index->text table.
// If the table does not cover every run in the paragraph, the paragraph
// falls back to standard-path replacement and the mismatch is the caller's
// (executor's) concern to have logged.
func applyRobust(r *executor.BatchResult) {
	for i, m := range r.Members {
		var table map[int]string
		if i < len(r.RunTranslations) {
			table = r.RunTranslations[i]
		}
		if !coversAllRuns(table, m.Para) {
			text := ""
			if i < len(r.Translations) {
				text = sanitize(r.Translations[i])
			}
			writeStandard(m.Para, text)
			continue
		}
		for runIdx, run := range m.Para.Runs {
			if text, ok := table[runIdx]; ok {
				run.Text = sanitize(text)
			}
		}
	}
}

func coversAllRuns(table map[int]string, p *docx.Paragraph) bool {
	if table == nil {
		return false
	}
	for i := range p.Runs {
		if _, ok := table[i]; !ok {
			return false
		}
	}
	return true
}

// applyFailed wraps each member with the untranslated sentinel, leaving
// its source-language text in place.
func applyFailed(r *executor.BatchResult) {
	for _, m := range r.Members {
		p := m.Para
		if len(p.Runs) == 0 {
			continue
		}
		if len(p.Runs) == 1 {
			log.Debug().Int("paragraph", p.Index).Msg("failed paragraph has a single run; both untranslated sentinels wrap it")
		}
		p.Runs[0].Text = untranslatedOpen + p.Runs[0].Text
		last := len(p.Runs) - 1
		p.Runs[last].Text = p.Runs[last].Text + untranslatedClose
	}
}
