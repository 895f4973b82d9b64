package google

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finansije/internal/core"
	"finansije/internal/report"
)

func testDoc(t *testing.T) report.Document {
	t.Helper()
	m, err := core.NewMonth(3, 2024)
	if err != nil {
		t.Fatal(err)
	}
	ts := []core.Transaction{{
		Type:        core.Income,
		Amount:      decimal.NewFromInt(50),
		Currency:    core.EUR,
		Description: "plata",
		Date:        time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
	}}
	return report.FromSummary(core.NewMonthlySummary(m, ts, time.UTC), time.UTC)
}

func TestSheetName(t *testing.T) {
	if got := SheetName(testDoc(t)); got != "2024-03" {
		t.Errorf("SheetName() = %q, want 2024-03", got)
	}
}

func TestValues(t *testing.T) {
	v := Values(testDoc(t))
	want := []string{
		"Mesečni izveštaj - 3/2024",
		"Pozajmio: 50 EUR",
		"Pozajmica: ",
		"Transakcije:",
		"Pozajmio: 50 EUR - plata (2024-03-02)",
	}
	if len(v) != len(want) {
		t.Fatalf("Values() has %d rows, want %d", len(v), len(want))
	}
	for i, w := range want {
		if len(v[i]) != 1 || v[i][0] != w {
			t.Errorf("row %d = %v, want %q", i, v[i], w)
		}
	}
}

func TestQuote(t *testing.T) {
	if got := quote("2024-03"); got != "'2024-03'" {
		t.Errorf("quote() = %q", got)
	}
	if got := quote("it's"); got != "'it''s'" {
		t.Errorf("quote() = %q", got)
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Credentials{ServiceAccountJSON: "{}"})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("New() error = %v", err)
	}
}

func TestCredentialsJSON(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	raw, err := credentialsJSON(Credentials{ServiceAccountJSON: `{"a":1}`, ServiceAccountFile: "/nope"})
	if err != nil || string(raw) != `{"a":1}` {
		t.Fatalf("inline credentials: %s, %v", raw, err)
	}

	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"b":2}`), 0o600); err != nil {
		t.Fatal(err)
	}
	raw, err = credentialsJSON(Credentials{ServiceAccountFile: path})
	if err != nil || string(raw) != `{"b":2}` {
		t.Fatalf("file credentials: %s, %v", raw, err)
	}

	if _, err := credentialsJSON(Credentials{}); err == nil {
		t.Fatal("expected error without credentials")
	}
}

func TestExportMonth_Uninitialized(t *testing.T) {
	c := &Client{spreadsheetID: "x"}
	if err := c.ExportMonth(context.Background(), testDoc(t)); err == nil {
		t.Fatal("expected error for nil service")
	}
}
