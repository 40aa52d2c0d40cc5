package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/markchipman/cofoundry"
)

type registeredDefinition struct {
	definition cofoundry.CustomEntityDefinition
	schema     *jsonschema.Schema
	resolved   *jsonschema.Resolved
}

// DefinitionRegistry is a read-only cofoundry.DefinitionRegistry that also
// holds the resolved data model schema of each definition.
type DefinitionRegistry struct {
	byCode map[string]registeredDefinition
	sorted []cofoundry.CustomEntityDefinition
}

// NewDefinitionRegistry validates defs and resolves their schemas. Duplicate
// codes are rejected.
func NewDefinitionRegistry(defs ...cofoundry.CustomEntityDefinition) (*DefinitionRegistry, error) {
	r := &DefinitionRegistry{byCode: make(map[string]registeredDefinition, len(defs))}
	for _, def := range defs {
		def.Code = cofoundry.NormalizeDefinitionCode(def.Code)
		if def.Ordering == "" {
			def.Ordering = cofoundry.OrderingNone
		}
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.byCode[def.Code]; exists {
			return nil, fmt.Errorf("duplicate custom entity definition code %s", def.Code)
		}
		entry := registeredDefinition{definition: def}
		if len(def.DataModelSchema) > 0 {
			schema, resolved, err := resolveDataModelSchema(def.DataModelSchema)
			if err != nil {
				return nil, fmt.Errorf("definition %s: %w", def.Code, err)
			}
			entry.schema = schema
			entry.resolved = resolved
		}
		r.byCode[def.Code] = entry
		r.sorted = append(r.sorted, def)
	}
	sort.Slice(r.sorted, func(i, j int) bool {
		if r.sorted[i].Name != r.sorted[j].Name {
			return r.sorted[i].Name < r.sorted[j].Name
		}
		return r.sorted[i].Code < r.sorted[j].Code
	})
	return r, nil
}

func resolveDataModelSchema(raw json.RawMessage) (*jsonschema.Schema, *jsonschema.Resolved, error) {
	var schema jsonschema.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal data model schema: %w", err)
	}
	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve data model schema: %w", err)
	}
	return &schema, resolved, nil
}

// LoadDefinitionRegistry reads every *.json file in dir as one definition.
func LoadDefinitionRegistry(dir string) (*DefinitionRegistry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	defs := make([]cofoundry.CustomEntityDefinition, 0, len(files))
	for _, name := range files {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read definition file %s: %w", path, err)
		}
		var def cofoundry.CustomEntityDefinition
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse definition file %s: %w", path, err)
		}
		defs = append(defs, def)
	}

	if len(defs) == 0 {
		return nil, fmt.Errorf("no definition files found in directory: %s", dir)
	}
	return NewDefinitionRegistry(defs...)
}

func (r *DefinitionRegistry) GetByCode(code string) (cofoundry.CustomEntityDefinition, bool) {
	entry, ok := r.byCode[cofoundry.NormalizeDefinitionCode(code)]
	return entry.definition, ok
}

func (r *DefinitionRegistry) List() []cofoundry.CustomEntityDefinition {
	return append([]cofoundry.CustomEntityDefinition(nil), r.sorted...)
}

// Codes returns every registered code, sorted.
func (r *DefinitionRegistry) Codes() []string {
	codes := make([]string, 0, len(r.byCode))
	for code := range r.byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func (r *DefinitionRegistry) schemaFor(code string) (*jsonschema.Schema, *jsonschema.Resolved) {
	entry := r.byCode[cofoundry.NormalizeDefinitionCode(code)]
	return entry.schema, entry.resolved
}
