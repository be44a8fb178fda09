package translator

import (
	"fmt"
	"strings"
)

// Mode selects which protocol a batch is translated under. Standard mode
// addresses whole paragraphs; robust mode addresses individual runs and is
// reserved for paragraphs the planner scored complex enough that
// formatting boundaries inside a sentence matter.
type Mode int

const (
	StandardMode Mode = iota
	RobustMode
)

const basePreamble = "You are translating a manuscript into %s. " +
	"Translate only the text inside each marked segment. Preserve paragraph " +
	"breaks, do not add commentary, do not translate the markers themselves, " +
	"and return every segment you were given, in the same order."

// BuildStandardPrompt frames segments with the delimiter protocol and
// prepends translation instructions for targetLanguage.
func BuildStandardPrompt(targetLanguage string, segments []SegmentText) string {
	var b strings.Builder
	fmt.Fprintf(&b, basePreamble, targetLanguage)
	b.WriteString("\n\n")
	b.WriteString(EncodeDelimiter(segments))
	return b.String()
}

// RobustParagraph carries one paragraph into the multi-paragraph robust
// prompt: its batch-local id, its full original text (given to the model as
// context alongside the runs it's actually asked to translate), and the
// runs to translate individually.
type RobustParagraph struct {
	ID   int
	Text string
	Runs []RunSegment
}

// BuildRobustBatchPrompt frames every paragraph in the batch inside one
// prompt, each wrapped in a PARAGRAPH_START/END pair with its runs nested as
// individual RUN markers, so a whole robust batch costs one LLM call instead
// of one call per paragraph.
func BuildRobustBatchPrompt(targetLanguage string, paragraphs []RobustParagraph) string {
	var b strings.Builder
	fmt.Fprintf(&b, basePreamble, targetLanguage)
	b.WriteString(" Each paragraph below is wrapped in a PARAGRAPH_START/END " +
		"pair; within it, each segment is one formatting run from that " +
		"paragraph. Translate every run in every paragraph, keeping the " +
		"PARAGRAPH and RUN markers intact around your translation:\n\n")
	for _, p := range paragraphs {
		fmt.Fprintf(&b, paragraphStart+"\n", p.ID)
		b.WriteString("Paragraph context: ")
		b.WriteString(p.Text)
		b.WriteString("\n\n")
		b.WriteString(EncodeMarker(p.Runs))
		fmt.Fprintf(&b, paragraphEnd+"\n\n", p.ID)
	}
	return b.String()
}
