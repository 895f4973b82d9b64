package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"finansije/internal/core"
)

const transactionsHeading = "Transakcije:"

//go:embed templates/*.html
var templatesFS embed.FS

var htmlTemplate = template.Must(template.ParseFS(templatesFS, "templates/report.html"))

// Document is a rendered monthly report, independent of output format.
type Document struct {
	Month   core.Month
	Title   string
	Income  string
	Expense string
	Lines   []string
}

// RenderMonthlyReport builds the report for a month. Transactions keep the
// caller's order (date descending from the store).
func RenderMonthlyReport(m core.Month, income, expense *core.Bucket, transactions []core.Transaction, loc *time.Location) Document {
	lines := make([]string, 0, len(transactions))
	for _, t := range transactions {
		lines = append(lines, FormatTransactionLine(t, loc))
	}
	return Document{
		Month:   m,
		Title:   "Mesečni izveštaj - " + m.String(),
		Income:  IncomeLabel + ": " + FormatCurrencyBucket(income),
		Expense: ExpenseLabel + ": " + FormatCurrencyBucket(expense),
		Lines:   lines,
	}
}

// FromSummary is RenderMonthlyReport over a precomputed MonthlySummary.
func FromSummary(s core.MonthlySummary, loc *time.Location) Document {
	return RenderMonthlyReport(s.Month, s.Income, s.Expense, s.Transactions, loc)
}

// Text renders the document as plain text lines.
func (d Document) Text() string {
	var sb strings.Builder
	sb.WriteString(d.Title)
	sb.WriteString("\n\n")
	sb.WriteString(d.Income)
	sb.WriteByte('\n')
	sb.WriteString(d.Expense)
	sb.WriteString("\n\n")
	sb.WriteString(transactionsHeading)
	sb.WriteByte('\n')
	for _, l := range d.Lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Rows returns the document as one row per line, as written to spreadsheets.
func (d Document) Rows() [][]string {
	rows := [][]string{{d.Title}, {d.Income}, {d.Expense}, {transactionsHeading}}
	for _, l := range d.Lines {
		rows = append(rows, []string{l})
	}
	return rows
}

// WriteHTML renders the document as an HTML page.
func (d Document) WriteHTML(w io.Writer) error {
	if err := htmlTemplate.ExecuteTemplate(w, "report.html", d); err != nil {
		return fmt.Errorf("execute report template: %w", err)
	}
	return nil
}

// Filename is the download name used for exported reports.
func (d Document) Filename(ext string) string {
	return fmt.Sprintf("summary-%d-%d.%s", int(d.Month.Month), d.Month.Year, ext)
}
