package filter

import (
	"testing"

	"github.com/local/doctranslate/internal/docx"
)

func para(text string, styleName string) *docx.Paragraph {
	return &docx.Paragraph{
		Props: docx.ParagraphProperties{StyleName: styleName},
		Runs:  []*docx.Run{{Text: text}},
	}
}

func TestApplySkipsEmptyAndPunctuationOnlyParagraphs(t *testing.T) {
	doc := &docx.Document{Paragraphs: []*docx.Paragraph{
		para("", ""),
		para("   ", ""),
		para("---", ""),
		para("***", ""),
		para("Real sentence here.", ""),
	}}
	out := Apply(doc)
	if len(out) != 1 {
		t.Fatalf("want 1 surviving paragraph, got %d: %+v", len(out), out)
	}
	if out[0].RawText != "Real sentence here." {
		t.Errorf("unexpected survivor: %q", out[0].RawText)
	}
}

func TestApplySkipsSingleWordUnlessHeadingOrAllCaps(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		style string
		keep  bool
	}{
		{"plain single word", "Chapter", "", false},
		{"heading single word", "Chapter", "Heading1", true},
		{"heading style case insensitive", "Chapter", "heading 2", true},
		{"all caps single word kept", "CHAPTER", "", true},
		{"multi word kept regardless", "Chapter One", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &docx.Document{Paragraphs: []*docx.Paragraph{para(tt.text, tt.style)}}
			out := Apply(doc)
			got := len(out) == 1
			if got != tt.keep {
				t.Errorf("text=%q style=%q: got keep=%v, want %v", tt.text, tt.style, got, tt.keep)
			}
		})
	}
}

func TestApplyRemovesOrphanDropCapInitial(t *testing.T) {
	doc := &docx.Document{Paragraphs: []*docx.Paragraph{
		para("T", ""),
		para("Another sentence that already starts with its own capital.", ""),
	}}
	out := Apply(doc)
	if len(doc.Paragraphs) != 1 {
		t.Fatalf("orphan initial should be physically removed, %d paragraphs remain", len(doc.Paragraphs))
	}
	if len(out) != 1 || out[0].RawText != "Another sentence that already starts with its own capital." {
		t.Errorf("unexpected filtered output: %+v", out)
	}
}

func TestApplyKeepsSingleLetterWhenNextParagraphIsLowercase(t *testing.T) {
	doc := &docx.Document{Paragraphs: []*docx.Paragraph{
		para("A", ""),
		para("lready lowercase, not a drop cap continuation.", ""),
	}}
	out := Apply(doc)
	if len(doc.Paragraphs) != 2 {
		t.Fatalf("single letter followed by lowercase text must not be removed, got %d paragraphs", len(doc.Paragraphs))
	}
	_ = out
}

func TestApplyPreservesOrderOfSurvivors(t *testing.T) {
	doc := &docx.Document{Paragraphs: []*docx.Paragraph{
		para("First sentence.", ""),
		para("", ""),
		para("Second sentence.", ""),
		para("***", ""),
		para("Third sentence.", ""),
	}}
	out := Apply(doc)
	if len(out) != 3 {
		t.Fatalf("want 3 survivors, got %d", len(out))
	}
	want := []string{"First sentence.", "Second sentence.", "Third sentence."}
	for i, w := range want {
		if out[i].RawText != w {
			t.Errorf("survivor %d = %q, want %q", i, out[i].RawText, w)
		}
	}
}
