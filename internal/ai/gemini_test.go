package ai

import (
	"strings"
	"testing"

	"welth/internal/services"
)

func TestCleanMarkdownFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain json", `{"amount":"1.00"}`, `{"amount":"1.00"}`},
		{"json fence", "```json\n{\"amount\":\"1.00\"}\n```", `{"amount":"1.00"}`},
		{"bare fence", "```\n[\"a\"]\n```", `["a"]`},
		{"surrounding whitespace", "  [1, 2]  ", `[1, 2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanMarkdownFences(tt.in); got != tt.want {
				t.Errorf("cleanMarkdownFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatCategories(t *testing.T) {
	got := formatCategories(map[string]int64{
		"groceries": 40050,
		"housing":   150000,
	})
	if got != "groceries 400.50, housing 1500.00" {
		t.Errorf("formatCategories() = %q", got)
	}

	if got := formatCategories(nil); got != "none" {
		t.Errorf("formatCategories(nil) = %q, want none", got)
	}
}

func TestInsightsPromptContent(t *testing.T) {
	stats := services.MonthlyStats{
		TotalIncome:   500000,
		TotalExpenses: 320000,
		ByCategory:    map[string]int64{"groceries": 40000},
	}
	rendered := renderInsightsPrompt(stats, "January")
	for _, want := range []string{"January", "5000.00", "3200.00", "groceries 400.00"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("insights prompt missing %q", want)
		}
	}
}
