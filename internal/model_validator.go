package internal

import (
	"encoding/json"
	"sort"

	"github.com/markchipman/cofoundry"
)

// ModelValidator checks entity data models against their definition schema.
type ModelValidator struct {
	definitions *DefinitionRegistry
}

func NewModelValidator(definitions *DefinitionRegistry) *ModelValidator {
	return &ModelValidator{definitions: definitions}
}

// Validate returns a validation *cofoundry.Error describing every problem
// found in model, or nil. An empty model is validated as an empty object.
func (v *ModelValidator) Validate(definitionCode string, model json.RawMessage) error {
	schema, resolved := v.definitions.schemaFor(definitionCode)

	var data any = map[string]any{}
	if len(model) > 0 {
		if err := json.Unmarshal(model, &data); err != nil {
			return cofoundry.NewValidationError("model", "must be valid JSON: "+err.Error())
		}
	}
	if resolved == nil {
		return nil
	}

	var errs cofoundry.ValidationErrors
	if obj, ok := data.(map[string]any); ok && schema != nil {
		required := append([]string(nil), schema.Required...)
		sort.Strings(required)
		for _, name := range required {
			if _, present := obj[name]; !present {
				errs.Add("model."+name, "is required")
			}
		}
	}
	if errs.HasErrors() {
		return errs.ToError()
	}

	if err := resolved.Validate(data); err != nil {
		return cofoundry.NewValidationError("model", err.Error()).WithCause(err)
	}
	return nil
}

// Normalize re-encodes model into compact canonical JSON. An empty model
// becomes an empty object.
func (v *ModelValidator) Normalize(model json.RawMessage) (json.RawMessage, error) {
	if len(model) == 0 {
		return json.RawMessage(`{}`), nil
	}
	var data any
	if err := json.Unmarshal(model, &data); err != nil {
		return nil, cofoundry.NewValidationError("model", "must be valid JSON: "+err.Error())
	}
	out, err := json.Marshal(data)
	if err != nil {
		return nil, cofoundry.NewInternalError("encode data model", err)
	}
	return out, nil
}
