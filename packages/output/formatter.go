package output

import (
	"fmt"
	"io"

	"github.com/abdul-hamid-achik/hitcall/packages/catalog"
	"github.com/abdul-hamid-achik/hitcall/packages/history"
	hithttp "github.com/abdul-hamid-achik/hitcall/packages/http"
	"github.com/abdul-hamid-achik/hitcall/packages/metrics"
)

// Formatter renders everything the CLI prints
type Formatter interface {
	FormatExchange(ex *hithttp.Exchange)
	FormatError(err error)
	FormatStats(stats []metrics.Stats)
	FormatHistory(records []history.Record)
	FormatEndpoints(source string, cat catalog.Catalog)
	Flush() error
}

// New returns the formatter for the named format
func New(format string, w io.Writer, verbose, noColor bool) (Formatter, error) {
	switch format {
	case "", "console":
		return NewConsoleFormatter(WithWriter(w), WithVerbose(verbose), WithNoColor(noColor)), nil
	case "json":
		return NewJSONFormatter(JSONWithWriter(w)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (expected console or json)", format)
	}
}
