package executor

import (
	"context"
	"testing"
	"time"

	"github.com/local/doctranslate/internal/breaker"
	"github.com/local/doctranslate/internal/docx"
	"github.com/local/doctranslate/internal/filter"
	"github.com/local/doctranslate/internal/llm"
	"github.com/local/doctranslate/internal/planner"
	"github.com/local/doctranslate/internal/progress"
)

func member(text string) filter.FilteredParagraph {
	return filter.FilteredParagraph{
		Para:    &docx.Paragraph{Runs: []*docx.Run{{Text: text}}},
		RawText: text,
	}
}

func testConfig() Config {
	cfg := Defaults()
	cfg.PerAttemptTimeout = time.Second
	cfg.RetryBackoff = time.Millisecond
	cfg.TargetLanguage = "French"
	return cfg
}

func TestRunStandardBatchSucceeds(t *testing.T) {
	primary := &Provider{Client: llm.NewMockClient("FR"), Model: "mock"}
	batches := []planner.Batch{{Members: []filter.FilteredParagraph{member("hello")}}}

	results, err := Run(context.Background(), testConfig(), batches, primary, nil, nil, nil, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("want 1 result, got %d", len(results))
	}
	if results[0].Failed {
		t.Fatalf("batch should not be marked failed: %+v", results[0].Logs)
	}
	if results[0].Translations[0] != "FR: hello" {
		t.Errorf("unexpected translation: %q", results[0].Translations[0])
	}
}

func TestRunRetriesThenSucceeds(t *testing.T) {
	primary := &Provider{Client: &llm.MockClient{Prefix: "FR", FailNTimes: 2}, Model: "mock"}
	batches := []planner.Batch{{Members: []filter.FilteredParagraph{member("hi")}}}

	cfg := testConfig()
	cfg.MaxRetries = 3
	results, err := Run(context.Background(), cfg, batches, primary, nil, nil, nil, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Failed {
		t.Fatalf("batch should succeed after retries: %+v", results[0].Logs)
	}
}

func TestRunFailsOverToSecondaryProvider(t *testing.T) {
	primary := &Provider{Client: &llm.MockClient{Prefix: "PRIMARY", FailNTimes: 100}, Model: "mock"}
	secondary := &Provider{Client: llm.NewMockClient("SECONDARY"), Model: "mock"}
	batches := []planner.Batch{{Members: []filter.FilteredParagraph{member("hi")}}}

	cfg := testConfig()
	cfg.MaxRetries = 1
	results, err := Run(context.Background(), cfg, batches, primary, secondary, nil, nil, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Failed {
		t.Fatalf("should succeed via secondary: %+v", results[0].Logs)
	}
	if results[0].Translations[0] != "SECONDARY: hi" {
		t.Errorf("expected secondary provider's translation, got %q", results[0].Translations[0])
	}
}

func TestRunMarksBatchFailedWhenAllProvidersExhausted(t *testing.T) {
	primary := &Provider{Client: &llm.MockClient{Prefix: "P", FailNTimes: 100}, Model: "mock"}
	batches := []planner.Batch{{Members: []filter.FilteredParagraph{member("hi")}}}

	cfg := testConfig()
	cfg.MaxRetries = 1
	results, err := Run(context.Background(), cfg, batches, primary, nil, nil, nil, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !results[0].Failed {
		t.Fatal("expected batch to be marked failed")
	}
	if results[0].Translations[0] != "hi" {
		t.Errorf("failed batch should echo original text, got %q", results[0].Translations[0])
	}
}

func TestRunIncrementsProgress(t *testing.T) {
	primary := &Provider{Client: llm.NewMockClient("FR"), Model: "mock"}
	batches := []planner.Batch{
		{Members: []filter.FilteredParagraph{member("a")}},
		{Members: []filter.FilteredParagraph{member("b")}},
	}

	store := progress.New(time.Minute)
	store.Start("job-1", len(batches))

	_, err := Run(context.Background(), testConfig(), batches, primary, nil, nil, store, "job-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	rec, _ := store.Get("job-1")
	if rec.CompletedBatches != 2 {
		t.Errorf("want 2 completed batches, got %d", rec.CompletedBatches)
	}
}

func TestRunRobustBatchMakesOneCallRegardlessOfMemberCount(t *testing.T) {
	client := llm.NewMockClient("DE")
	primary := &Provider{Client: client, Model: "mock"}
	batches := []planner.Batch{{
		UseRobust: true,
		Members:   []filter.FilteredParagraph{member("first"), member("second"), member("third")},
	}}

	results, err := Run(context.Background(), testConfig(), batches, primary, nil, nil, nil, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Failed {
		t.Fatalf("robust batch should succeed: %+v", results[0].Logs)
	}
	if client.Calls() != 1 {
		t.Fatalf("want exactly one LLM call for a 3-paragraph robust batch, got %d", client.Calls())
	}
	want := []string{"DE: first", "DE: second", "DE: third"}
	for i, w := range want {
		if results[0].Translations[i] != w {
			t.Errorf("translation %d = %q, want %q", i, results[0].Translations[i], w)
		}
	}
}

func TestRunOpensBreakerOnRepeatedFailure(t *testing.T) {
	primary := &Provider{Client: &llm.MockClient{Prefix: "P", FailNTimes: 100}, Model: "mock"}
	batches := []planner.Batch{{Members: []filter.FilteredParagraph{member("hi")}}}

	br := breaker.New(time.Hour, time.Hour)
	cfg := testConfig()
	cfg.MaxRetries = 1
	_, err := Run(context.Background(), cfg, batches, primary, nil, br, nil, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !br.IsOpen("mock", "mock") {
		t.Error("breaker should be open after repeated transient failures")
	}
}
