package output

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Obirvalger/vml/internal/image"
)

// YAMLFormatter formats catalog data as YAML.
type YAMLFormatter struct{}

// FormatRecords formats registry records as YAML in the registry file layout,
// without the file header.
func (f *YAMLFormatter) FormatRecords(records []image.Record) (string, error) {
	reg := make(image.Registry, len(records))
	for _, rec := range records {
		reg[rec.Name] = rec
	}

	data, err := reg.Serialize(nil)
	if err != nil {
		return "", fmt.Errorf("failed to marshal records to YAML: %w", err)
	}

	return string(data), nil
}

// FormatActions formats a reconciliation report as YAML.
func (f *YAMLFormatter) FormatActions(actions []image.Action) (string, error) {
	views := make([]actionView, 0, len(actions))
	for _, action := range actions {
		views = append(views, actionView{Name: action.Name, Action: action.Kind.String()})
	}

	data, err := yaml.Marshal(views)
	if err != nil {
		return "", fmt.Errorf("failed to marshal actions to YAML: %w", err)
	}

	return string(data), nil
}

// actionView is the serialized form of one report entry.
type actionView struct {
	Name   string `yaml:"name" json:"name"`
	Action string `yaml:"action" json:"action"`
}
