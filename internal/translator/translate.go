package translator

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/local/doctranslate/internal/llm"
)

// fallbackStartRe matches a START tag without requiring a matching END tag,
// used when a model truncates or drops the closing marker on its last
// segment.
var fallbackStartRe = regexp.MustCompile(`<<<TRANSLATION_START_(\d+)>>>\n?`)

// Usage is the token accounting for a single LLM call, carried through
// unchanged from the client response.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// StandardResult is the outcome of translating one batch under the
// delimiter protocol.
type StandardResult struct {
	Translations map[int]string
	Missing      []int
	Usage        Usage
}

// TranslateStandard sends segments to client under the delimiter protocol
// and reconciles the response. If the primary parse does not recover every
// id, a looser fallback parse (START tags only) fills in what it can
// before any still-missing ids are reported so the caller can decide
// whether to retry, fail the batch, or leave the source text in place.
func TranslateStandard(ctx context.Context, client llm.Client, model, credentials, targetLanguage string, segments []SegmentText) (*StandardResult, error) {
	prompt := BuildStandardPrompt(targetLanguage, segments)
	resp, err := client.Do(ctx, llm.Request{Prompt: prompt, Model: model, Credentials: credentials})
	if err != nil {
		return nil, err
	}

	translations := ParseDelimiter(resp.Text)
	if len(translations) < len(segments) {
		for id, text := range fallbackParseDelimiter(resp.Text) {
			if _, ok := translations[id]; !ok {
				translations[id] = text
			}
		}
	}

	var missing []int
	for _, s := range segments {
		if _, ok := translations[s.ID]; !ok {
			missing = append(missing, s.ID)
		}
	}
	sort.Ints(missing)

	return &StandardResult{
		Translations: translations,
		Missing:      missing,
		Usage: Usage{
			InputTokens:  resp.InputTokens,
			OutputTokens: resp.OutputTokens,
			TotalTokens:  resp.TotalTokens,
		},
	}, nil
}

// fallbackParseDelimiter recovers segments whose closing tag was dropped or
// malformed by slicing from each START tag to the next START tag (or end
// of string), trimming any trailing END-tag fragment that survived and the
// single framing newline before it, as the primary parser does.
func fallbackParseDelimiter(response string) map[int]string {
	response = StripThinkTags(response)
	matches := fallbackStartRe.FindAllStringSubmatchIndex(response, -1)
	out := make(map[int]string, len(matches))
	for i, m := range matches {
		id, err := strconv.Atoi(response[m[2]:m[3]])
		if err != nil {
			continue
		}
		contentStart := m[1]
		contentEnd := len(response)
		if i+1 < len(matches) {
			contentEnd = matches[i+1][0]
		}
		text := response[contentStart:contentEnd]
		if idx := strings.Index(text, fmt.Sprintf("<<<TRANSLATION_END_%d>>>", id)); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSuffix(text, "\n")
		out[id] = text
	}
	return out
}

// RobustBatchResult is the outcome of translating every paragraph in a
// robust batch under the marker protocol, in a single LLM call. Results are
// keyed first by the batch-local paragraph id, then by run index within
// that paragraph.
type RobustBatchResult struct {
	Translations      map[int]map[int]string
	MissingParagraphs []int
	MissingRuns       map[int][]int
	Usage             Usage
}

// TranslateRobustBatch sends every paragraph's runs in the batch to client
// in one prompt under the marker protocol, so translation can cross
// formatting boundaries within a sentence while the applier still knows
// which output span belongs to which original run, and the batch still
// costs exactly one LLM call.
func TranslateRobustBatch(ctx context.Context, client llm.Client, model, credentials, targetLanguage string, paragraphs []RobustParagraph) (*RobustBatchResult, error) {
	prompt := BuildRobustBatchPrompt(targetLanguage, paragraphs)
	resp, err := client.Do(ctx, llm.Request{Prompt: prompt, Model: model, Credentials: credentials})
	if err != nil {
		return nil, err
	}

	translations := ParseMarkerBatch(resp.Text)

	var missingParagraphs []int
	missingRuns := make(map[int][]int)
	for _, p := range paragraphs {
		runTable, ok := translations[p.ID]
		if !ok {
			missingParagraphs = append(missingParagraphs, p.ID)
			continue
		}
		for _, r := range p.Runs {
			if _, ok := runTable[r.RunIndex]; !ok {
				missingRuns[p.ID] = append(missingRuns[p.ID], r.RunIndex)
			}
		}
	}
	sort.Ints(missingParagraphs)

	return &RobustBatchResult{
		Translations:      translations,
		MissingParagraphs: missingParagraphs,
		MissingRuns:       missingRuns,
		Usage: Usage{
			InputTokens:  resp.InputTokens,
			OutputTokens: resp.OutputTokens,
			TotalTokens:  resp.TotalTokens,
		},
	}, nil
}
