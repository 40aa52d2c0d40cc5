package internal

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/markchipman/cofoundry"
	"github.com/markchipman/cofoundry/cqs"
)

func (h *Handlers) getAllDefinitionMicroSummaries(ctx context.Context, q cofoundry.GetAllCustomEntityDefinitionMicroSummariesQuery, ec *cqs.ExecutionContext) ([]cofoundry.CustomEntityDefinitionMicroSummary, error) {
	defs := h.definitions.List()
	out := make([]cofoundry.CustomEntityDefinitionMicroSummary, 0, len(defs))
	for _, def := range defs {
		out = append(out, def.MicroSummary())
	}
	return out, nil
}

func (h *Handlers) getDefinitionMicroSummaryByCode(ctx context.Context, q cofoundry.GetCustomEntityDefinitionMicroSummaryByCodeQuery, ec *cqs.ExecutionContext) (cofoundry.CustomEntityDefinitionMicroSummary, error) {
	def, err := h.definition(q.CustomEntityDefinitionCode)
	if err != nil {
		return cofoundry.CustomEntityDefinitionMicroSummary{}, err
	}
	return def.MicroSummary(), nil
}

func (h *Handlers) getDataModelSchemaDetails(ctx context.Context, q cofoundry.GetCustomEntityDataModelSchemaDetailsByDefinitionCodeQuery, ec *cqs.ExecutionContext) (cofoundry.CustomEntityDataModelSchema, error) {
	def, err := h.definition(q.CustomEntityDefinitionCode)
	if err != nil {
		return cofoundry.CustomEntityDataModelSchema{}, err
	}

	out := cofoundry.CustomEntityDataModelSchema{
		CustomEntityDefinitionCode: def.Code,
		Name:                       def.Name,
		Properties:                 []string{},
		Schema:                     def.DataModelSchema,
	}
	if len(out.Schema) == 0 {
		out.Schema = json.RawMessage(`{}`)
	}
	schema, _ := h.definitions.schemaFor(def.Code)
	if schema != nil {
		for name := range schema.Properties {
			out.Properties = append(out.Properties, name)
		}
		sort.Strings(out.Properties)
		out.Required = append(out.Required, schema.Required...)
		sort.Strings(out.Required)
	}
	return out, nil
}
