package auditfile

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

const (
	stringOrSliceElementTypeErrorTemplateConstant = "expected a string array element, got %T"
	stringOrSliceValueTypeErrorTemplateConstant    = "expected a string or string array, got %T"
)

// UnmarshalTOML implements toml.Unmarshaler, accepting either a bare string
// or an array of strings for the same field.
func (value *StringOrSlice) UnmarshalTOML(raw any) error {
	switch typed := raw.(type) {
	case string:
		*value = StringOrSlice{typed}
		return nil
	case []any:
		elements := make(StringOrSlice, 0, len(typed))
		for _, element := range typed {
			asString, isString := element.(string)
			if !isString {
				return fmt.Errorf(stringOrSliceElementTypeErrorTemplateConstant, element)
			}
			elements = append(elements, asString)
		}
		*value = elements
		return nil
	default:
		return fmt.Errorf(stringOrSliceValueTypeErrorTemplateConstant, raw)
	}
}

// MarshalTOML implements toml.Marshaler: a single-element set encodes as a
// bare string, matching the compact style real audits.toml files use;
// anything else encodes as an array.
func (value StringOrSlice) MarshalTOML() ([]byte, error) {
	if len(value) == 1 {
		return toml.Marshal(value[0])
	}
	return toml.Marshal([]string(value))
}
