package notify

import (
	"context"
	"strings"
	"testing"
)

func TestRenderBudgetAlert(t *testing.T) {
	body, err := RenderBudgetAlert(BudgetAlertData{
		UserName:      "Ada",
		AccountName:   "Main Checking",
		PercentUsed:   "85.0",
		BudgetAmount:  "2000.00",
		TotalExpenses: "1700.00",
	})
	if err != nil {
		t.Fatalf("RenderBudgetAlert() error = %v", err)
	}
	for _, want := range []string{"Ada", "Main Checking", "85.0", "2000.00", "1700.00"} {
		if !strings.Contains(body, want) {
			t.Errorf("rendered body missing %q", want)
		}
	}
}

func TestRenderBudgetAlertEscapesHTML(t *testing.T) {
	body, err := RenderBudgetAlert(BudgetAlertData{
		UserName:    "<script>alert(1)</script>",
		AccountName: "Main",
	})
	if err != nil {
		t.Fatalf("RenderBudgetAlert() error = %v", err)
	}
	if strings.Contains(body, "<script>") {
		t.Error("user name not escaped")
	}
}

func TestRenderMonthlyReport(t *testing.T) {
	body, err := RenderMonthlyReport(MonthlyReportData{
		UserName:      "Ada",
		Month:         "January",
		TotalIncome:   "5000.00",
		TotalExpenses: "3200.00",
		Net:           "1800.00",
		ByCategory: []CategoryAmount{
			{Name: "housing", Amount: "1500.00"},
			{Name: "groceries", Amount: "400.00"},
		},
		Insights: []string{"Spend less on rent."},
	})
	if err != nil {
		t.Fatalf("RenderMonthlyReport() error = %v", err)
	}
	for _, want := range []string{"January", "5000.00", "housing", "Spend less on rent."} {
		if !strings.Contains(body, want) {
			t.Errorf("rendered body missing %q", want)
		}
	}
}

func TestMemoryNotifier(t *testing.T) {
	n := NewMemoryNotifier()
	if err := n.Send(context.Background(), "a@example.com", "hello", "<p>hi</p>"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	sent := n.Sent()
	if len(sent) != 1 {
		t.Fatalf("Sent() len = %d, want 1", len(sent))
	}
	if sent[0].To != "a@example.com" || sent[0].Subject != "hello" {
		t.Errorf("unexpected message: %+v", sent[0])
	}
}

func TestBuildMIMEMessage(t *testing.T) {
	raw := buildMIMEMessage("me@example.com", "you@example.com", "Report", "<p>hi</p>")
	for _, want := range []string{
		"From: me@example.com\r\n",
		"To: you@example.com\r\n",
		"Subject: Report\r\n",
		"Content-Type: text/html",
		"<p>hi</p>",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("MIME message missing %q", want)
		}
	}
}
