package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/catalog-archive-analyzer/internal/core/classifier"
)

// ClassifierRules is the content of CLASSIFIER_RULES_FILE.
type ClassifierRules struct {
	Classifier classifier.Rules
	SKUHeaders []string
	MaxRows    int
}

type rulesFile struct {
	SpreadsheetExtensions         []string `yaml:"spreadsheet_extensions"`
	ImageExtensions               []string `yaml:"image_extensions"`
	ImageRootNames                []string `yaml:"image_root_names"`
	MainImageBaseName             string   `yaml:"main_image_base_name"`
	MainImageExtensions           []string `yaml:"main_image_extensions"`
	PreferredSpreadsheetSubstring *string  `yaml:"preferred_spreadsheet_substring"`
	Spreadsheet                   struct {
		SKUHeaders []string `yaml:"sku_headers"`
		MaxRows    int      `yaml:"max_rows"`
	} `yaml:"spreadsheet"`
}

func DefaultClassifierRules() ClassifierRules {
	return ClassifierRules{Classifier: classifier.DefaultRules()}
}

// LoadClassifierRules overlays the YAML file at path on the default rules.
// An empty path returns the defaults.
func LoadClassifierRules(path string) (ClassifierRules, error) {
	out := DefaultClassifierRules()
	path = strings.TrimSpace(path)
	if path == "" {
		return out, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return out, fmt.Errorf("read classifier rules: %w", err)
	}
	return ParseClassifierRules(raw)
}

func ParseClassifierRules(raw []byte) (ClassifierRules, error) {
	out := DefaultClassifierRules()

	var file rulesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return out, fmt.Errorf("parse classifier rules: %w", err)
	}

	rules := &out.Classifier
	if len(file.SpreadsheetExtensions) > 0 {
		rules.SpreadsheetExtensions = file.SpreadsheetExtensions
	}
	if len(file.ImageExtensions) > 0 {
		rules.ImageExtensions = file.ImageExtensions
	}
	if len(file.ImageRootNames) > 0 {
		rules.ImageRootNames = file.ImageRootNames
	}
	if strings.TrimSpace(file.MainImageBaseName) != "" {
		rules.MainImageBaseName = file.MainImageBaseName
	}
	if len(file.MainImageExtensions) > 0 {
		rules.MainImageExtensions = file.MainImageExtensions
	}
	// An explicit empty string disables the preferred-name tie-break.
	if file.PreferredSpreadsheetSubstring != nil {
		rules.PreferredSpreadsheetSubstring = *file.PreferredSpreadsheetSubstring
	}
	out.SKUHeaders = file.Spreadsheet.SKUHeaders
	if file.Spreadsheet.MaxRows < 0 {
		return out, fmt.Errorf("parse classifier rules: spreadsheet.max_rows must not be negative")
	}
	out.MaxRows = file.Spreadsheet.MaxRows
	return out, nil
}
