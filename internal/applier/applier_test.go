package applier

import (
	"testing"

	"github.com/local/doctranslate/internal/docx"
	"github.com/local/doctranslate/internal/executor"
	"github.com/local/doctranslate/internal/filter"
)

func fp(index int, runs ...*docx.Run) filter.FilteredParagraph {
	p := &docx.Paragraph{Index: index, Runs: runs}
	return filter.FilteredParagraph{Index: index, Para: p, RawText: p.Text()}
}

func TestApplyStandardDoesNotTrimTranslation(t *testing.T) {
	m := fp(0, &docx.Run{Text: "  original  "})
	results := []*executor.BatchResult{{
		Members:      []filter.FilteredParagraph{m},
		Translations: []string{"  leading and trailing spaces  "},
	}}

	Apply(results)

	if got, want := m.Para.Runs[0].Text, "  leading and trailing spaces  "; got != want {
		t.Errorf("run text = %q, want %q", got, want)
	}
}

func TestApplyStandardClearsTrailingRuns(t *testing.T) {
	m := fp(0, &docx.Run{Text: "bold"}, &docx.Run{Text: " plain"})
	results := []*executor.BatchResult{{
		Members:      []filter.FilteredParagraph{m},
		Translations: []string{"toute la traduction"},
	}}

	Apply(results)

	if m.Para.Runs[0].Text != "toute la traduction" {
		t.Errorf("run 0 = %q", m.Para.Runs[0].Text)
	}
	if m.Para.Runs[1].Text != "" {
		t.Errorf("run 1 should be cleared, got %q", m.Para.Runs[1].Text)
	}
}

func TestApplyRobustReconstructsRunByRun(t *testing.T) {
	m := fp(0, &docx.Run{Text: "bold"}, &docx.Run{Text: " plain"})
	results := []*executor.BatchResult{{
		UseRobust:       true,
		Members:         []filter.FilteredParagraph{m},
		RunTranslations: []map[int]string{{0: "gras", 1: " normal"}},
	}}

	Apply(results)

	if m.Para.Runs[0].Text != "gras" {
		t.Errorf("run 0 = %q, want %q", m.Para.Runs[0].Text, "gras")
	}
	if m.Para.Runs[1].Text != " normal" {
		t.Errorf("run 1 = %q, want %q", m.Para.Runs[1].Text, " normal")
	}
}

func TestApplyRobustFallsBackToStandardWhenRunTableIncomplete(t *testing.T) {
	m := fp(0, &docx.Run{Text: "bold"}, &docx.Run{Text: " plain"})
	results := []*executor.BatchResult{{
		UseRobust:       true,
		Members:         []filter.FilteredParagraph{m},
		Translations:    []string{"fallback whole-paragraph text"},
		RunTranslations: []map[int]string{{0: "only first run"}},
	}}

	Apply(results)

	if m.Para.Runs[0].Text != "fallback whole-paragraph text" {
		t.Errorf("run 0 = %q, want the standard-path fallback text", m.Para.Runs[0].Text)
	}
	if m.Para.Runs[1].Text != "" {
		t.Errorf("run 1 should be cleared by the standard-path fallback, got %q", m.Para.Runs[1].Text)
	}
}

func TestApplyRobustSingleRunCoversAllRuns(t *testing.T) {
	m := fp(0, &docx.Run{Text: "only run"})
	results := []*executor.BatchResult{{
		UseRobust:       true,
		Members:         []filter.FilteredParagraph{m},
		RunTranslations: []map[int]string{{0: "translated"}},
	}}

	Apply(results)

	if m.Para.Runs[0].Text != "translated" {
		t.Errorf("run 0 = %q, want %q", m.Para.Runs[0].Text, "translated")
	}
}

func TestApplyFailedWrapsUntranslatedSentinel(t *testing.T) {
	m := fp(0, &docx.Run{Text: "hello"}, &docx.Run{Text: " world"})
	results := []*executor.BatchResult{{
		Failed:  true,
		Members: []filter.FilteredParagraph{m},
	}}

	Apply(results)

	if m.Para.Runs[0].Text != "<untranslated>hello" {
		t.Errorf("run 0 = %q", m.Para.Runs[0].Text)
	}
	if m.Para.Runs[1].Text != " world</untranslated>" {
		t.Errorf("run 1 = %q", m.Para.Runs[1].Text)
	}
}

func TestApplyFailedSingleRunWrapsBothSentinelsOnSameRun(t *testing.T) {
	m := fp(0, &docx.Run{Text: "only run"})
	results := []*executor.BatchResult{{
		Failed:  true,
		Members: []filter.FilteredParagraph{m},
	}}

	Apply(results)

	if want := "<untranslated>only run</untranslated>"; m.Para.Runs[0].Text != want {
		t.Errorf("run 0 = %q, want %q", m.Para.Runs[0].Text, want)
	}
}

func TestApplyFailedParagraphWithNoRunsIsLeftAlone(t *testing.T) {
	m := fp(0)
	results := []*executor.BatchResult{{
		Failed:  true,
		Members: []filter.FilteredParagraph{m},
	}}

	Apply(results)

	if len(m.Para.Runs) != 0 {
		t.Errorf("paragraph with no runs should stay empty, got %+v", m.Para.Runs)
	}
}

func TestApplyStandardStripsThinkTags(t *testing.T) {
	m := fp(0, &docx.Run{Text: "original"})
	results := []*executor.BatchResult{{
		Members:      []filter.FilteredParagraph{m},
		Translations: []string{"<think>reasoning</think>final answer"},
	}}

	Apply(results)

	if m.Para.Runs[0].Text != "final answer" {
		t.Errorf("run 0 = %q", m.Para.Runs[0].Text)
	}
}
