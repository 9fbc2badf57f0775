// Package insights produces a short natural-language spending summary from an
// analysis report using Gemini. It is strictly advisory: failures never touch
// store state, and nothing here participates in sync.
package insights

import (
	"context"
	"fmt"
	"strings"

	"github.com/garanaibrahim7/expense-manager/internal/domain"
	"google.golang.org/genai"
)

// DefaultModel balances speed and cost for short summaries.
const DefaultModel = "gemini-2.5-flash"

// GeminiGenerator produces spending summaries through the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a generator using the given API key.
func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("NewGeminiGenerator: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiGenerator: creating client: %w", err)
	}
	return &GeminiGenerator{client: client, model: DefaultModel}, nil
}

// SpendingInsights generates a short plain-text summary of the report.
func (g *GeminiGenerator) SpendingInsights(ctx context.Context, report *domain.Report) (string, error) {
	prompt := buildPrompt(report)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("SpendingInsights: generating: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("SpendingInsights: empty response from model")
	}

	var raw strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			raw.WriteString(part.Text)
		}
	}
	return cleanResponse(raw.String()), nil
}

// buildPrompt flattens the report into a compact plain-text brief. No user
// notes or free text are included, only aggregates.
func buildPrompt(report *domain.Report) string {
	var b strings.Builder
	b.WriteString("You are a personal finance assistant. Given the spending summary below, ")
	b.WriteString("write 3 short, concrete observations about this person's money habits. ")
	b.WriteString("Plain text only, no markdown.\n\n")

	fmt.Fprintf(&b, "Total income: %s\nTotal expense: %s\nNet: %s\n\n",
		report.TotalIncome, report.TotalExpense, report.Balance)

	b.WriteString("Per account:\n")
	for _, acc := range report.ByAccount {
		fmt.Fprintf(&b, "- %s: income %s, expense %s, net %s\n",
			acc.AccountName, acc.Income, acc.Expense, acc.Balance)
	}

	if len(report.ByDate) > 0 {
		b.WriteString("\nPer day:\n")
		for _, day := range report.ByDate {
			fmt.Fprintf(&b, "- %s: income %s, expense %s\n", day.Date, day.Income, day.Expense)
		}
	}
	return b.String()
}

// cleanResponse strips the markdown fences Gemini likes to add despite the
// plain-text instruction.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```text")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
