// Package google exports monthly reports to a Google Sheets spreadsheet, one
// sheet per month.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finansije/internal/report"
	ports "finansije/internal/sheets"
)

var _ ports.ReportExporter = (*Client)(nil)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// Credentials selects the spreadsheet and the service account used to write
// to it. Inline JSON wins over the file.
type Credentials struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
}

func New(ctx context.Context, creds Credentials) (*Client, error) {
	id := strings.TrimSpace(creds.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	raw, err := credentialsJSON(creds)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(raw),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", id)
	return &Client{svc: svc, spreadsheetID: id}, nil
}

func credentialsJSON(creds Credentials) ([]byte, error) {
	inline := strings.TrimSpace(creds.ServiceAccountJSON)
	file := strings.TrimSpace(creds.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return raw, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// ExportMonth replaces the contents of the month's sheet with the report,
// creating the sheet on first export.
func (c *Client) ExportMonth(ctx context.Context, doc report.Document) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	name := SheetName(doc)
	if err := c.ensureSheet(ctx, name); err != nil {
		return err
	}

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, quote(name)+"!A:Z", &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet %s: %w", name, err)
	}

	vr := &gsheet.ValueRange{Values: Values(doc)}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, quote(name)+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write sheet %s: %w", name, err)
	}

	slog.InfoContext(ctx, "Exported monthly report", "sheet", name, "rows", len(vr.Values))
	return nil
}

func (c *Client) ensureSheet(ctx context.Context, name string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == name {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: name}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", name, err)
	}
	return nil
}

// SheetName is the per-month sheet title, YYYY-MM.
func SheetName(doc report.Document) string {
	return doc.Month.Key()
}

// Values lays the report out one line per row in column A.
func Values(doc report.Document) [][]any {
	rows := doc.Rows()
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		row := make([]any, len(r))
		for i, v := range r {
			row[i] = v
		}
		out = append(out, row)
	}
	return out
}

func quote(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}
