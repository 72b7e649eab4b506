package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/Obirvalger/vml/internal/image"
)

// TableFormatter formats catalog data as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatRecords formats registry records as a table.
func (f *TableFormatter) FormatRecords(records []image.Record) (string, error) {
	if len(records) == 0 {
		return "No images found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tUPDATE AFTER\tCHANGE\tDESCRIPTION")
	}

	for _, rec := range records {
		updateAfter := "-"
		if rec.UpdateAfterDays != nil {
			updateAfter = fmt.Sprintf("%dd", *rec.UpdateAfterDays)
		}

		change := "-"
		if tokens := rec.ChangeTokens(); len(tokens) > 0 {
			change = strings.Join(tokens, ",")
		}

		description := rec.Description
		if description == "" {
			description = "-"
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rec.Name, updateAfter, change, description)
	}

	_ = w.Flush()
	return buf.String(), nil
}

// FormatActions formats a reconciliation report as a table.
func (f *TableFormatter) FormatActions(actions []image.Action) (string, error) {
	if len(actions) == 0 {
		return "Nothing to report\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tACTION")
	}

	for _, action := range actions {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", action.Name, action.Kind)
	}

	_ = w.Flush()
	return buf.String(), nil
}
