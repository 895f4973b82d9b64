/*Offline access to the transaction store: monthly reports and bulk import.*/
package main

import (
	_ "time/tzdata"

	"github.com/alecthomas/kong"
)

// globals are shared by every command.
type globals struct {
	Backend string `help:"Override DATA_BACKEND (memory, sqlite, elasticsearch)."`
}

var app struct {
	Globals globals `embed:""`

	Summary summaryCmd `cmd:"" help:"Render the monthly report for one month."`
	Import  importCmd  `cmd:"" help:"Bulk load transactions from a JSON seed file into the configured store."`
}

func main() {
	ctx := kong.Parse(&app,
		kong.Name("finansije-report"),
		kong.Description("Monthly reports and imports for finansije."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&app.Globals)
	ctx.FatalIfErrorf(err)
}
