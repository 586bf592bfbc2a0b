// Package ai wraps the Gemini API for receipt scanning and monthly
// spending insights.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"google.golang.org/genai"

	"welth/internal/core"
	"welth/internal/services"
)

// Gemini is a thin client over the generative model. All prompts demand
// raw JSON and responses are cleaned of markdown fences before parsing.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// ReceiptData is the structured result of scanning a receipt image.
type ReceiptData struct {
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Merchant    string `json:"merchant"`
	Category    string `json:"category"`
}

const receiptPrompt = `Analyze this receipt image and extract the following information.
Return a RAW JSON object. Do NOT use markdown formatting.
The object must have:
- "amount": total amount as a decimal string, e.g. "42.50"
- "date": purchase date in YYYY-MM-DD format
- "description": brief summary of the purchased items
- "merchant": store or merchant name
- "category": one of %s
If the image is not a receipt, return an empty JSON object {}.`

// ScanReceipt extracts transaction fields from a receipt image.
func (g *Gemini) ScanReceipt(ctx context.Context, imageData []byte, mimeType string) (*ReceiptData, error) {
	prompt := fmt.Sprintf(receiptPrompt, strings.Join(core.ExpenseCategories, ", "))

	parts := []*genai.Part{
		genai.NewPartFromBytes(imageData, mimeType),
		genai.NewPartFromText(prompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	raw, err := extractText(resp)
	if err != nil {
		return nil, err
	}

	var data ReceiptData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("parse receipt response: %w (raw: %s)", err, raw)
	}
	if data.Amount == "" {
		return nil, fmt.Errorf("image does not look like a receipt")
	}
	if data.Date == "" {
		data.Date = time.Now().UTC().Format("2006-01-02")
	}

	slog.InfoContext(ctx, "Receipt scanned",
		"merchant", data.Merchant,
		"amount", data.Amount,
		"category", data.Category)

	return &data, nil
}

const insightsPrompt = `You are a personal finance advisor. A user had the following activity in %s:
- total income: %s
- total expenses: %s
- expenses by category: %s
Return a RAW JSON ARRAY of exactly 3 short insight strings about their spending.
Do NOT use markdown formatting.`

// FinancialInsights asks the model for three short observations about a
// month of activity. Implements services.InsightsGenerator.
func (g *Gemini) FinancialInsights(ctx context.Context, stats services.MonthlyStats, month string) ([]string, error) {
	prompt := renderInsightsPrompt(stats, month)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	raw, err := extractText(resp)
	if err != nil {
		return nil, err
	}

	var insights []string
	if err := json.Unmarshal([]byte(raw), &insights); err != nil {
		return nil, fmt.Errorf("parse insights response: %w (raw: %s)", err, raw)
	}
	return insights, nil
}

var _ services.InsightsGenerator = (*Gemini)(nil)

func renderInsightsPrompt(stats services.MonthlyStats, month string) string {
	return fmt.Sprintf(insightsPrompt,
		month,
		core.Money{Cents: stats.TotalIncome}.Decimal(),
		core.Money{Cents: stats.TotalExpenses}.Decimal(),
		formatCategories(stats.ByCategory))
}

// extractText concatenates the text parts of the first candidate and
// strips the markdown fences the model likes to add.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from model")
	}
	raw := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			raw += part.Text
		}
	}
	return cleanMarkdownFences(raw), nil
}

func cleanMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func formatCategories(byCategory map[string]int64) string {
	if len(byCategory) == 0 {
		return "none"
	}
	names := make([]string, 0, len(byCategory))
	for name := range byCategory {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", name, core.Money{Cents: byCategory[name]}.Decimal())
	}
	return b.String()
}
