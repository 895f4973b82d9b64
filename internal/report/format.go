// Package report turns monthly aggregates and transaction lists into
// human-readable documents: plain text, HTML and PDF.
package report

import (
	"strings"
	"time"

	"finansije/internal/core"
)

const (
	IncomeLabel  = "Pozajmio"
	ExpenseLabel = "Pozajmica"
	ItemLabel    = "Stvar(i)"

	dateLayout = "2006-01-02"
)

// CurrencyLabel is the display label for a bucket entry.
func CurrencyLabel(c core.Currency) string {
	if c.IsItem() {
		return ItemLabel
	}
	return c.Code()
}

// TypeLabel is the display label for a transaction type.
func TypeLabel(t core.TransactionType) string {
	switch t {
	case core.Income:
		return IncomeLabel
	case core.Expense:
		return ExpenseLabel
	default:
		return strings.ToUpper(string(t))
	}
}

// FormatCurrencyBucket renders "<amount> <label>" entries joined by ", " in
// bucket order (currency code ascending). An empty bucket renders as "".
func FormatCurrencyBucket(b *core.Bucket) string {
	entries := b.Entries()
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, e.Amount.String()+" "+CurrencyLabel(e.Currency))
	}
	return strings.Join(parts, ", ")
}

// FormatTransactionLine renders
// "<TypeLabel>: <amount><suffix> - <description> (YYYY-MM-DD)".
// The suffix is empty for items and " <CODE>" otherwise.
func FormatTransactionLine(t core.Transaction, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	var sb strings.Builder
	sb.WriteString(TypeLabel(t.Type))
	sb.WriteString(": ")
	sb.WriteString(t.Amount.String())
	if !t.Currency.IsItem() {
		sb.WriteByte(' ')
		sb.WriteString(t.Currency.Code())
	}
	sb.WriteString(" - ")
	sb.WriteString(t.Description)
	sb.WriteString(" (")
	sb.WriteString(t.Date.In(loc).Format(dateLayout))
	sb.WriteByte(')')
	return sb.String()
}
