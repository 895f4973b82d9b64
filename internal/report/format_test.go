package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"finansije/internal/core"
)

func bucket(entries map[core.Currency]string) *core.Bucket {
	b := core.NewBucket()
	for c, v := range entries {
		b.Add(c, decimal.RequireFromString(v))
	}
	return b
}

func TestFormatCurrencyBucket(t *testing.T) {
	tests := []struct {
		name   string
		bucket *core.Bucket
		want   string
	}{
		{"empty", core.NewBucket(), ""},
		{"nil", nil, ""},
		{"single", bucket(map[core.Currency]string{core.RSD: "1500"}), "1500 RSD"},
		{"item label", bucket(map[core.Currency]string{core.EUR: "50", core.Thing: "3"}), "50 EUR, 3 Stvar(i)"},
		{"code order", bucket(map[core.Currency]string{core.Thing: "1", core.RSD: "2.5", core.EUR: "-4"}), "-4 EUR, 2.5 RSD, 1 Stvar(i)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCurrencyBucket(tt.bucket))
		})
	}
}

func TestFormatTransactionLine(t *testing.T) {
	date := time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		tx   core.Transaction
		want string
	}{
		{
			name: "income in euros",
			tx:   core.Transaction{Type: core.Income, Amount: decimal.NewFromInt(100), Currency: core.EUR, Description: "plata", Date: date},
			want: "Pozajmio: 100 EUR - plata (2024-03-05)",
		},
		{
			name: "expense in items has no suffix",
			tx:   core.Transaction{Type: core.Expense, Amount: decimal.NewFromInt(20), Currency: core.Thing, Description: "knjige", Date: date},
			want: "Pozajmica: 20 - knjige (2024-03-05)",
		},
		{
			name: "empty description",
			tx:   core.Transaction{Type: core.Expense, Amount: decimal.RequireFromString("12.5"), Currency: core.RSD, Date: date},
			want: "Pozajmica: 12.5 RSD -  (2024-03-05)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTransactionLine(tt.tx, time.UTC))
		})
	}
}

func TestFormatTransactionLineUsesLocation(t *testing.T) {
	tx := core.Transaction{Type: core.Income, Amount: decimal.NewFromInt(1), Currency: core.EUR, Date: time.Date(2024, 3, 31, 23, 30, 0, 0, time.UTC)}
	belgrade := time.FixedZone("CEST", 2*3600)
	assert.Equal(t, "Pozajmio: 1 EUR -  (2024-04-01)", FormatTransactionLine(tx, belgrade))
}
