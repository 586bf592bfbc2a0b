package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// BudgetAlertData fills the budget-alert email.
type BudgetAlertData struct {
	UserName      string
	AccountName   string
	PercentUsed   string
	BudgetAmount  string
	TotalExpenses string
}

// CategoryAmount is one by-category line in the monthly report.
type CategoryAmount struct {
	Name   string
	Amount string
}

// MonthlyReportData fills the monthly-report email.
type MonthlyReportData struct {
	UserName      string
	Month         string
	TotalIncome   string
	TotalExpenses string
	Net           string
	ByCategory    []CategoryAmount
	Insights      []string
}

func RenderBudgetAlert(data BudgetAlertData) (string, error) {
	return render("budget_alert.html", data)
}

func RenderMonthlyReport(data MonthlyReportData) (string, error) {
	return render("monthly_report.html", data)
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
