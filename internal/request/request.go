// Package request ties the pipeline stages together: Loader, Filter,
// Planner, Executor, Applier, Serializer, in that order, for a single
// translate request.
package request

import (
	"context"
	"fmt"

	"github.com/local/doctranslate/internal/applier"
	"github.com/local/doctranslate/internal/breaker"
	"github.com/local/doctranslate/internal/docx"
	"github.com/local/doctranslate/internal/errorclass"
	"github.com/local/doctranslate/internal/executor"
	"github.com/local/doctranslate/internal/filetype"
	"github.com/local/doctranslate/internal/filter"
	"github.com/local/doctranslate/internal/planner"
	"github.com/local/doctranslate/internal/pricing"
	"github.com/local/doctranslate/internal/progress"
	"github.com/local/doctranslate/internal/toc"
)

// Input is the translate-request payload (§6), already base64-decoded.
type Input struct {
	DOCXBytes      []byte
	FileName       string
	TargetLanguage string
	Model          string
	Credentials    string
	ProgressID     string
}

// UsageTotals accumulates token counters across every batch in the
// request.
type UsageTotals struct {
	InputTokens   int
	OutputTokens  int
	TotalTokens   int
	EstimatedCost float64
}

// Output is the translate response (§6).
type Output struct {
	DOCXBytes      []byte
	Logs           []string
	ParagraphCount int
	Usage          UsageTotals
}

// Pipeline wires together the concrete dependencies a request needs:
// planner/executor configuration, the LLM providers, the circuit breaker,
// and the progress store it reports into.
type Pipeline struct {
	PlannerConfig   planner.Config
	ExecutorConfig  executor.Config
	Primary         *executor.Provider
	Secondary       *executor.Provider
	Breaker         *breaker.Breaker
	ProgressStore   *progress.Store
	FileTypeChecker *filetype.Detector
}

// Run executes one full translate request end to end.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Output, error) {
	var logs []string
	log := func(format string, args ...any) {
		logs = append(logs, fmt.Sprintf(format, args...))
	}

	if p.FileTypeChecker != nil {
		ok, mime, err := p.FileTypeChecker.DetectDOCX(in.DOCXBytes, in.FileName)
		if !ok {
			return nil, &errorclass.ValidationError{Message: fmt.Sprintf("upload did not sniff as DOCX (got %s): %v", mime, err)}
		}
	}

	doc, err := docx.Load(in.DOCXBytes)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	if tocRes := toc.Process(doc); tocRes.Found {
		log("table of contents detected: %d entries, %d titles extracted, %d paragraphs promoted to heading style (%d skipped, no existing style to rewrite), %d TOC lines removed",
			tocRes.EntriesDetected, tocRes.TitlesExtracted, tocRes.ParagraphsConverted, tocRes.ParagraphsSkipped, tocRes.ParagraphsRemoved)
	}

	filtered := filter.Apply(doc)
	log("filtered to %d translatable paragraphs", len(filtered))

	execCfg := p.ExecutorConfig
	execCfg.TargetLanguage = in.TargetLanguage

	if len(filtered) == 0 {
		out, err := docx.Serialize(doc)
		if err != nil {
			return nil, fmt.Errorf("serialize: %w", err)
		}
		return &Output{DOCXBytes: out, Logs: logs, ParagraphCount: 0}, nil
	}

	batches := planner.Plan(p.PlannerConfig, filtered)
	log("planned %d batches", len(batches))

	if p.ProgressStore != nil && in.ProgressID != "" {
		p.ProgressStore.Start(in.ProgressID, len(batches))
		defer p.ProgressStore.Seal(in.ProgressID)
	}

	primary := p.Primary
	if primary != nil {
		primary = &executor.Provider{Client: primary.Client, Model: in.Model, Credentials: in.Credentials}
		if in.Model == "" {
			primary.Model = p.Primary.Model
		}
		if in.Credentials == "" {
			primary.Credentials = p.Primary.Credentials
		}
	}

	results, err := executor.Run(ctx, execCfg, batches, primary, p.Secondary, p.Breaker, p.ProgressStore, in.ProgressID)
	if err != nil {
		if p.ProgressStore != nil && in.ProgressID != "" {
			p.ProgressStore.Fail(in.ProgressID)
		}
		return nil, fmt.Errorf("executor: %w", err)
	}

	failedBatches := 0
	usage := UsageTotals{}
	for _, r := range results {
		if r.Failed {
			failedBatches++
		}
		usage.InputTokens += r.InputTokens
		usage.OutputTokens += r.OutputTokens
		usage.TotalTokens += r.TotalTokens
		usage.EstimatedCost += pricing.Estimate(r.Model, r.InputTokens, r.OutputTokens)
		logs = append(logs, r.Logs...)
	}
	if failedBatches > 0 {
		log("%d of %d batches failed and were left untranslated", failedBatches, len(results))
	}

	applier.Apply(results)

	outBytes, err := docx.Serialize(doc)
	if err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}

	return &Output{
		DOCXBytes:      outBytes,
		Logs:           logs,
		ParagraphCount: len(filtered),
		Usage:          usage,
	}, nil
}
