// Package executor drives a request's batches through a bounded
// concurrent worker pool, retrying and failing over per §4.4, and
// publishing progress as each batch settles.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/local/doctranslate/internal/breaker"
	"github.com/local/doctranslate/internal/docx"
	"github.com/local/doctranslate/internal/errorclass"
	"github.com/local/doctranslate/internal/filter"
	"github.com/local/doctranslate/internal/llm"
	"github.com/local/doctranslate/internal/metrics"
	"github.com/local/doctranslate/internal/planner"
	"github.com/local/doctranslate/internal/progress"
	"github.com/local/doctranslate/internal/translator"
)

// BatchResult is what a worker hands back to the applier: either a
// successful translation (standard or robust) or a failed batch whose
// members the applier wraps with the untranslated sentinel.
type BatchResult struct {
	Members         []filter.FilteredParagraph
	UseRobust       bool
	Failed          bool
	Translations    []string         // standard path, one per member
	RunTranslations []map[int]string // robust path, one table per member
	Provider        string           // name of the client that served this batch, empty if failed
	Model           string           // model that served this batch, for cost estimation
	InputTokens     int
	OutputTokens    int
	TotalTokens     int
	Logs            []string
}

// Provider pairs a named LLM client with the model it should be called
// with, and the credential to forward.
type Provider struct {
	Client      llm.Client
	Model       string
	Credentials string
}

// Config holds the executor's tunables (§6).
type Config struct {
	MaxConcurrentBatches int
	PerAttemptTimeout    time.Duration
	MaxRetries           int
	RetryBackoff         time.Duration
	TargetLanguage       string
}

func Defaults() Config {
	return Config{
		MaxConcurrentBatches: 4,
		PerAttemptTimeout:    600 * time.Second,
		MaxRetries:           3,
		RetryBackoff:         2 * time.Second,
	}
}

// Run translates every batch and returns results in batch-index order.
// progressID, if non-empty, is incremented in store as each batch settles.
// primary is required; secondary is consulted once primary's retry budget
// for a batch is exhausted on a transient error (§4.4).
func Run(ctx context.Context, cfg Config, batches []planner.Batch, primary, secondary *Provider, br *breaker.Breaker, store *progress.Store, progressID string) ([]*BatchResult, error) {
	results := make([]*BatchResult, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxConcurrentBatches)

	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			r := runBatch(gctx, cfg, batch, primary, secondary, br)
			results[i] = r
			if store != nil && progressID != "" {
				store.Increment(progressID)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if store != nil && progressID != "" {
			store.Fail(progressID)
		}
		return nil, err
	}

	return results, nil
}

func runBatch(ctx context.Context, cfg Config, batch planner.Batch, primary, secondary *Provider, br *breaker.Breaker) *BatchResult {
	result := &BatchResult{Members: batch.Members, UseRobust: batch.UseRobust}
	start := time.Now()

	for _, p := range []*Provider{primary, secondary} {
		if p == nil {
			continue
		}
		if br != nil && br.IsOpen(p.Client.Name(), p.Model) {
			result.Logs = append(result.Logs, "circuit open for "+p.Client.Name()+":"+p.Model+", skipping")
			continue
		}

		ok, fatal := attemptWithRetries(ctx, cfg, batch, p, br, result)
		if ok {
			result.Failed = false
			metrics.IncBatchProcessed("success")
			metrics.ObserveBatchDuration(batch.UseRobust, time.Since(start))
			return result
		}
		if fatal {
			break
		}
	}

	result.Failed = true
	echoOriginal(result, batch)
	metrics.IncBatchProcessed("failed")
	metrics.ObserveBatchDuration(batch.UseRobust, time.Since(start))
	return result
}

// attemptWithRetries runs up to cfg.MaxRetries attempts against p. It
// returns (true, _) on success, or (false, fatal) when the provider's
// budget is exhausted — fatal indicates the error classified as
// non-retryable, in which case the caller should not fail over either.
func attemptWithRetries(ctx context.Context, cfg Config, batch planner.Batch, p *Provider, br *breaker.Breaker, result *BatchResult) (bool, bool) {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		attemptStart := time.Now()
		inputBefore, outputBefore := result.InputTokens, result.OutputTokens
		attemptCtx, cancel := context.WithTimeout(ctx, cfg.PerAttemptTimeout)
		err := translateBatch(attemptCtx, cfg, batch, p, result)
		cancel()

		if err == nil {
			metrics.ObserveProvider(p.Client.Name(), p.Model, "success", time.Since(attemptStart))
			metrics.AddTokens(p.Client.Name(), p.Model, result.InputTokens-inputBefore, result.OutputTokens-outputBefore)
			result.Provider = p.Client.Name()
			result.Model = p.Model
			if br != nil {
				br.Close(p.Client.Name(), p.Model)
			}
			return true, false
		}

		metrics.ObserveProvider(p.Client.Name(), p.Model, "error", time.Since(attemptStart))
		if llm.IsContentRefused(err) {
			metrics.IncRefusal(p.Client.Name(), p.Model)
		}
		lastErr = err
		if errorclass.IsFatal(err) {
			result.Logs = append(result.Logs, "fatal error from "+p.Client.Name()+": "+err.Error())
			return false, true
		}

		if !errorclass.IsTransient(err) {
			// Unclassified error: stop retrying this provider without
			// opening the breaker; the caller may still fail over.
			break
		}

		metrics.IncRetry(p.Client.Name(), p.Model)

		if br != nil {
			br.Open(p.Client.Name(), p.Model)
		}

		if attempt+1 < maxRetries {
			select {
			case <-time.After(cfg.RetryBackoff):
			case <-ctx.Done():
				return false, false
			}
		}
	}

	if lastErr != nil {
		result.Logs = append(result.Logs, "exhausted retries against "+p.Client.Name()+": "+lastErr.Error())
	}
	return false, false
}

func translateBatch(ctx context.Context, cfg Config, batch planner.Batch, p *Provider, result *BatchResult) error {
	if batch.UseRobust {
		return translateRobustBatch(ctx, cfg, batch, p, result)
	}
	return translateStandardBatch(ctx, cfg, batch, p, result)
}

func translateStandardBatch(ctx context.Context, cfg Config, batch planner.Batch, p *Provider, result *BatchResult) error {
	segments := make([]translator.SegmentText, len(batch.Members))
	for i, m := range batch.Members {
		segments[i] = translator.SegmentText{ID: i, Text: m.RawText}
	}

	res, err := translator.TranslateStandard(ctx, p.Client, p.Model, p.Credentials, cfg.TargetLanguage, segments)
	if err != nil {
		return err
	}

	translations := make([]string, len(batch.Members))
	for i := range batch.Members {
		if t, ok := res.Translations[i]; ok {
			translations[i] = t
		} else {
			translations[i] = "[Translation missing]"
		}
	}

	result.Translations = translations
	result.InputTokens += res.Usage.InputTokens
	result.OutputTokens += res.Usage.OutputTokens
	result.TotalTokens += res.Usage.TotalTokens
	if len(res.Missing) > 0 {
		result.Logs = append(result.Logs, "standard path missing segments, padded")
	}
	return nil
}

func translateRobustBatch(ctx context.Context, cfg Config, batch planner.Batch, p *Provider, result *BatchResult) error {
	paragraphs := make([]translator.RobustParagraph, len(batch.Members))
	for i, m := range batch.Members {
		runs := make([]translator.RunSegment, len(m.Para.Runs))
		for r, run := range m.Para.Runs {
			runs[r] = translator.RunSegment{RunIndex: r, Flags: encodeFlags(run), Text: run.Text}
		}
		paragraphs[i] = translator.RobustParagraph{ID: i, Text: m.RawText, Runs: runs}
	}

	res, err := translator.TranslateRobustBatch(ctx, p.Client, p.Model, p.Credentials, cfg.TargetLanguage, paragraphs)
	if err != nil {
		return err
	}

	translations := make([]string, len(batch.Members))
	runTables := make([]map[int]string, len(batch.Members))
	for i, m := range batch.Members {
		table := res.Translations[i]
		runTables[i] = table
		if table == nil {
			translations[i] = "[Translation missing]"
			continue
		}
		translations[i] = joinRunText(table, len(m.Para.Runs))
	}

	result.Translations = translations
	result.RunTranslations = runTables
	result.InputTokens += res.Usage.InputTokens
	result.OutputTokens += res.Usage.OutputTokens
	result.TotalTokens += res.Usage.TotalTokens
	if len(res.MissingParagraphs) > 0 || len(res.MissingRuns) > 0 {
		result.Logs = append(result.Logs, "robust path missing run markers, falling back for affected paragraphs")
	}
	return nil
}

func joinRunText(table map[int]string, runCount int) string {
	var out []byte
	for i := 0; i < runCount; i++ {
		out = append(out, table[i]...)
	}
	return string(out)
}

// encodeFlags builds the compact formatting flag string §4.5.2 describes:
// a comma-separated list of active attributes, or PLAIN if none are set.
func encodeFlags(r *docx.Run) string {
	f := r.Formatting
	var flags []string
	if f.Bold.Bool() {
		flags = append(flags, "B")
	}
	if f.Italic.Bool() {
		flags = append(flags, "I")
	}
	if f.Underline.Bool() {
		flags = append(flags, "U")
	}
	if f.Strike.Bool() {
		flags = append(flags, "S")
	}
	if f.Subscript.Bool() {
		flags = append(flags, "SUB")
	}
	if f.Superscript.Bool() {
		flags = append(flags, "SUP")
	}
	if f.FontName != "" {
		flags = append(flags, fmt.Sprintf("F:%s", f.FontName))
	}
	if f.FontSizeHalfPt != 0 {
		flags = append(flags, fmt.Sprintf("SZ:%d", f.FontSizeHalfPt/2))
	}
	if f.ColorHex != "" {
		flags = append(flags, fmt.Sprintf("C:%s", f.ColorHex))
	}
	if len(flags) == 0 {
		return "PLAIN"
	}
	return strings.Join(flags, ",")
}

func echoOriginal(result *BatchResult, batch planner.Batch) {
	result.Translations = make([]string, len(batch.Members))
	for i, m := range batch.Members {
		result.Translations[i] = m.RawText
	}
}
