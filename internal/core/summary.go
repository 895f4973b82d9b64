package core

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyAmount is a single bucket entry.
type CurrencyAmount struct {
	Currency Currency
	Amount   decimal.Decimal
}

// Bucket accumulates amounts per currency for one transaction type.
// Iteration order is currency code ascending.
type Bucket struct {
	sums map[Currency]decimal.Decimal
}

func NewBucket() *Bucket {
	return &Bucket{sums: make(map[Currency]decimal.Decimal)}
}

// Add adds amount to the currency's running sum, starting from zero.
func (b *Bucket) Add(c Currency, amount decimal.Decimal) {
	if b.sums == nil {
		b.sums = make(map[Currency]decimal.Decimal)
	}
	b.sums[c] = b.sums[c].Add(amount)
}

// Get returns the sum for c and whether c was observed.
func (b *Bucket) Get(c Currency) (decimal.Decimal, bool) {
	if b == nil {
		return decimal.Zero, false
	}
	v, ok := b.sums[c]
	return v, ok
}

func (b *Bucket) Len() int {
	if b == nil {
		return 0
	}
	return len(b.sums)
}

// Currencies returns the observed currencies in code order.
func (b *Bucket) Currencies() []Currency {
	if b == nil {
		return nil
	}
	out := make([]Currency, 0, len(b.sums))
	for c := range b.sums {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Entries returns the bucket contents in code order.
func (b *Bucket) Entries() []CurrencyAmount {
	cs := b.Currencies()
	out := make([]CurrencyAmount, 0, len(cs))
	for _, c := range cs {
		out = append(out, CurrencyAmount{Currency: c, Amount: b.sums[c]})
	}
	return out
}

// Total sums every entry. Only meaningful for tests checking conservation;
// callers must not present it as money since currencies are mixed.
func (b *Bucket) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range b.Entries() {
		total = total.Add(e.Amount)
	}
	return total
}

// MarshalJSON encodes the bucket as an object keyed by currency code in
// bucket order with amounts as numbers.
func (b *Bucket) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range b.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(e.Currency))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(e.Amount.String())
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Summary holds per-currency totals split by transaction type.
type Summary struct {
	Income  *Bucket
	Expense *Bucket
}

// SummarizeByCurrency adds every amount into its (type, currency) bucket.
// Types other than income and expense belong to no partition and are skipped.
func SummarizeByCurrency(ts []Transaction) Summary {
	s := Summary{Income: NewBucket(), Expense: NewBucket()}
	for _, t := range ts {
		switch t.Type {
		case Income:
			s.Income.Add(t.Currency, t.Amount)
		case Expense:
			s.Expense.Add(t.Currency, t.Amount)
		}
	}
	return s
}

// MonthlySummary is the derived per-month view.
type MonthlySummary struct {
	Month        Month
	Income       *Bucket
	Expense      *Bucket
	Transactions []Transaction // date descending
}

// NewMonthlySummary keeps the transactions in m's half-open range, sorts them
// by date descending and aggregates them.
func NewMonthlySummary(m Month, ts []Transaction, loc *time.Location) MonthlySummary {
	in := make([]Transaction, 0, len(ts))
	for _, t := range ts {
		if m.Contains(t.Date, loc) {
			in = append(in, t)
		}
	}
	sort.SliceStable(in, func(i, j int) bool { return in[i].Date.After(in[j].Date) })
	sum := SummarizeByCurrency(in)
	return MonthlySummary{
		Month:        m,
		Income:       sum.Income,
		Expense:      sum.Expense,
		Transactions: in,
	}
}
