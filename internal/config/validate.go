package config

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var settingsSchema string

// ValidateSettings checks the raw viper settings map against the embedded
// JSON schema before decoding. Numeric fields accept string values there
// because environment overrides arrive as strings; range checks on the
// decoded values happen in Load.
func ValidateSettings(settings map[string]any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(settingsSchema),
		gojsonschema.NewGoLoader(settings),
	)
	if err != nil {
		return fmt.Errorf("validate config schema: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		msgs = append(msgs, resultErr.String())
	}
	sort.Strings(msgs)
	return fmt.Errorf("config schema validation failed: %s", strings.Join(msgs, "; "))
}
