package graphinput

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

const yamlDecodeErrorTemplateConstant = "failed to decode graph document as YAML: %w"

// ParseYAML decodes a YAML graph document using the same Document shape as
// Parse. Package manager exports are always JSON; this entry point exists
// for hand-written test and debugging fixtures, where YAML is friendlier to
// edit by hand than JSON.
func ParseYAML(data []byte) (Document, error) {
	var document Document
	if decodeError := yaml.Unmarshal(data, &document); decodeError != nil {
		return Document{}, fmt.Errorf(yamlDecodeErrorTemplateConstant, decodeError)
	}
	return document, nil
}
