package core

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func tx(typ TransactionType, amount string, c Currency, date time.Time) Transaction {
	return Transaction{Type: typ, Amount: decimal.RequireFromString(amount), Currency: c, Date: date}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestSummarizeByCurrencyEmpty(t *testing.T) {
	s := SummarizeByCurrency(nil)
	if s.Income.Len() != 0 || s.Expense.Len() != 0 {
		t.Fatalf("expected empty buckets, got %d/%d", s.Income.Len(), s.Expense.Len())
	}
}

func TestSummarizeByCurrencyBuckets(t *testing.T) {
	ts := []Transaction{
		tx(Income, "100", EUR, day(2024, 3, 5)),
		tx(Income, "0.1", EUR, day(2024, 3, 6)),
		tx(Income, "0.2", EUR, day(2024, 3, 7)),
		tx(Expense, "20", Thing, day(2024, 3, 10)),
		tx(Expense, "-5", RSD, day(2024, 3, 11)),
	}
	s := SummarizeByCurrency(ts)

	if v, _ := s.Income.Get(EUR); v.String() != "100.3" {
		t.Fatalf("income EUR = %s", v)
	}
	if _, ok := s.Income.Get(RSD); ok {
		t.Fatal("unobserved currency must be absent")
	}
	if v, _ := s.Expense.Get(Thing); v.String() != "20" {
		t.Fatalf("expense thing = %s", v)
	}
	if v, _ := s.Expense.Get(RSD); v.String() != "-5" {
		t.Fatalf("expense rsd = %s", v)
	}
}

func TestSummarizeByCurrencyConservesTotals(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	currencies := []Currency{EUR, RSD, Thing}
	var ts []Transaction
	wantIncome, wantExpense := decimal.Zero, decimal.Zero
	for i := 0; i < 200; i++ {
		amt := decimal.New(int64(r.Intn(20000)-5000), -2)
		typ := Income
		if r.Intn(2) == 0 {
			typ = Expense
			wantExpense = wantExpense.Add(amt)
		} else {
			wantIncome = wantIncome.Add(amt)
		}
		ts = append(ts, Transaction{Type: typ, Amount: amt, Currency: currencies[r.Intn(3)]})
	}

	s := SummarizeByCurrency(ts)
	if !s.Income.Total().Equal(wantIncome) {
		t.Fatalf("income total %s, want %s", s.Income.Total(), wantIncome)
	}
	if !s.Expense.Total().Equal(wantExpense) {
		t.Fatalf("expense total %s, want %s", s.Expense.Total(), wantExpense)
	}

	// Order of input must not matter.
	r.Shuffle(len(ts), func(i, j int) { ts[i], ts[j] = ts[j], ts[i] })
	again := SummarizeByCurrency(ts)
	for _, c := range currencies {
		a, _ := s.Income.Get(c)
		b, _ := again.Income.Get(c)
		if !a.Equal(b) {
			t.Fatalf("income %s differs after shuffle: %s vs %s", c, a, b)
		}
	}
}

func TestSummarizeByCurrencyIgnoresUnknownType(t *testing.T) {
	s := SummarizeByCurrency([]Transaction{{Type: "transfer", Amount: decimal.NewFromInt(3), Currency: EUR}})
	if s.Income.Len() != 0 || s.Expense.Len() != 0 {
		t.Fatal("unknown type must not land in a bucket")
	}
}

func TestSummarizeByCurrencyOpaqueCurrency(t *testing.T) {
	s := SummarizeByCurrency([]Transaction{{Type: Income, Amount: decimal.NewFromInt(3), Currency: "usd"}})
	if v, ok := s.Income.Get("usd"); !ok || v.String() != "3" {
		t.Fatalf("opaque currency not kept: %v %s", ok, v)
	}
}

func TestBucketOrderAndJSON(t *testing.T) {
	b := NewBucket()
	b.Add(Thing, decimal.NewFromInt(3))
	b.Add(RSD, decimal.NewFromInt(1200))
	b.Add(EUR, decimal.NewFromInt(50))

	got := b.Currencies()
	want := []Currency{EUR, RSD, Thing}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Currencies() = %v, want %v", got, want)
		}
	}

	raw, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"eur":50,"rsd":1200,"thing":3}` {
		t.Fatalf("json = %s", raw)
	}

	raw, _ = json.Marshal(NewBucket())
	if string(raw) != `{}` {
		t.Fatalf("empty json = %s", raw)
	}
}

func TestNewMonthlySummaryScenario(t *testing.T) {
	ts := []Transaction{
		tx(Income, "100", EUR, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)),
		tx(Expense, "20", Thing, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)),
		tx(Income, "5", EUR, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)),
	}
	m, _ := NewMonth(3, 2024)
	ms := NewMonthlySummary(m, ts, time.UTC)

	if len(ms.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(ms.Transactions))
	}
	if !ms.Transactions[0].Date.After(ms.Transactions[1].Date) {
		t.Fatal("transactions must be date descending")
	}
	if v, _ := ms.Income.Get(EUR); v.String() != "100" || ms.Income.Len() != 1 {
		t.Fatalf("income = %s (len %d)", v, ms.Income.Len())
	}
	if v, _ := ms.Expense.Get(Thing); v.String() != "20" || ms.Expense.Len() != 1 {
		t.Fatalf("expense = %s (len %d)", v, ms.Expense.Len())
	}
}
