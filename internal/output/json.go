package output

import (
	"encoding/json"
	"fmt"

	"github.com/Obirvalger/vml/internal/image"
)

// JSONFormatter formats catalog data as JSON.
type JSONFormatter struct{}

// recordView is the serialized form of one registry record.
type recordView struct {
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	URL             string   `json:"url"`
	Change          []string `json:"change,omitempty"`
	UpdateAfterDays *int     `json:"update-after-days,omitempty"`
}

// FormatRecords formats registry records as a JSON array.
func (f *JSONFormatter) FormatRecords(records []image.Record) (string, error) {
	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, recordView{
			Name:            rec.Name,
			Description:     rec.Description,
			URL:             rec.URL,
			Change:          rec.ChangeTokens(),
			UpdateAfterDays: rec.UpdateAfterDays,
		})
	}

	data, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal records to JSON: %w", err)
	}

	return string(data) + "\n", nil
}

// FormatActions formats a reconciliation report as a JSON array.
func (f *JSONFormatter) FormatActions(actions []image.Action) (string, error) {
	views := make([]actionView, 0, len(actions))
	for _, action := range actions {
		views = append(views, actionView{Name: action.Name, Action: action.Kind.String()})
	}

	data, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal actions to JSON: %w", err)
	}

	return string(data) + "\n", nil
}
