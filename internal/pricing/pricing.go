// Package pricing estimates the dollar cost of a translate request from
// its token usage, so the translate response's stats can report
// estimated_cost alongside the raw token counts (§6).
package pricing

// Rate is the cost per token, in USD, for a given model.
type Rate struct {
	InputPerToken  float64
	OutputPerToken float64
}

// rates holds per-million-token list prices for the models the engine's
// two providers default to (internal/config.FromEnv). A model not listed
// here falls back to defaultRate rather than failing the request.
var rates = map[string]Rate{
	"gpt-4.1":           perMillion(2.00, 8.00),
	"gpt-4.1-mini":      perMillion(0.40, 1.60),
	"gpt-4o":            perMillion(2.50, 10.00),
	"gpt-4o-mini":       perMillion(0.15, 0.60),
	"claude-3-5-sonnet": perMillion(3.00, 15.00),
	"claude-3-opus":     perMillion(15.00, 75.00),
	"claude-3-haiku":    perMillion(0.25, 1.25),
}

var defaultRate = perMillion(1.00, 3.00)

func perMillion(input, output float64) Rate {
	return Rate{InputPerToken: input / 1_000_000, OutputPerToken: output / 1_000_000}
}

// Estimate returns the estimated USD cost of inputTokens/outputTokens
// against model's list price.
func Estimate(model string, inputTokens, outputTokens int) float64 {
	r, ok := rates[model]
	if !ok {
		r = defaultRate
	}
	return float64(inputTokens)*r.InputPerToken + float64(outputTokens)*r.OutputPerToken
}
