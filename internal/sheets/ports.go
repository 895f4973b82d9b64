package sheets

import (
	"context"

	"finansije/internal/report"
)

// ReportExporter publishes a rendered monthly report to an external sheet.
type ReportExporter interface {
	ExportMonth(ctx context.Context, doc report.Document) error
}
