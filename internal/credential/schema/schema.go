// Package schema validates credential documents against the embedded
// JSON Schema before signing and during verification.
package schema

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed vc_schema.json
var credentialSchema []byte

// Validate checks a credential document against the schema and returns one
// message per violation, sorted for stable output. A nil slice means the
// document is structurally valid.
func Validate(document []byte) ([]string, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(credentialSchema),
		gojsonschema.NewBytesLoader(document),
	)
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	sort.Strings(violations)
	return violations, nil
}
