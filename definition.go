package cofoundry

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var definitionCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// CustomEntityDefinition describes one kind of custom entity: its code, naming,
// url and publishing behaviour, and the JSON schema of its data model.
type CustomEntityDefinition struct {
	Code                   string               `json:"code"`
	Name                   string               `json:"name"`
	NamePlural             string               `json:"namePlural"`
	Description            string               `json:"description,omitempty"`
	ForceUrlSlugUniqueness bool                 `json:"forceUrlSlugUniqueness"`
	HasLocale              bool                 `json:"hasLocale"`
	AutoGenerateUrlSlug    bool                 `json:"autoGenerateUrlSlug"`
	AutoPublish            bool                 `json:"autoPublish"`
	Ordering               CustomEntityOrdering `json:"ordering,omitempty"`
	DataModelSchema        json.RawMessage      `json:"dataModelSchema,omitempty"`
}

// Validate checks the definition's static shape. The data model schema itself
// is resolved by the definition registry.
func (d CustomEntityDefinition) Validate() error {
	if !definitionCodePattern.MatchString(d.Code) {
		return fmt.Errorf("definition code %q must be 6 upper-case letters or digits", d.Code)
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("definition %s: name is required", d.Code)
	}
	switch d.Ordering {
	case "", OrderingNone, OrderingPartial, OrderingFull:
	default:
		return fmt.Errorf("definition %s: unknown ordering %q", d.Code, d.Ordering)
	}
	return nil
}

// IsOrderable reports whether entities can be manually ordered.
func (d CustomEntityDefinition) IsOrderable() bool {
	return d.Ordering == OrderingPartial || d.Ordering == OrderingFull
}

// MicroSummary returns the micro summary view of d.
func (d CustomEntityDefinition) MicroSummary() CustomEntityDefinitionMicroSummary {
	namePlural := d.NamePlural
	if namePlural == "" {
		namePlural = d.Name + "s"
	}
	return CustomEntityDefinitionMicroSummary{
		CustomEntityDefinitionCode: d.Code,
		Name:                       d.Name,
		NamePlural:                 namePlural,
		Description:                d.Description,
		ForceUrlSlugUniqueness:     d.ForceUrlSlugUniqueness,
	}
}

// DefinitionRegistry provides the custom entity definitions known to the
// process. Implementations are read-only after construction.
type DefinitionRegistry interface {
	// GetByCode returns the definition registered under code.
	GetByCode(code string) (CustomEntityDefinition, bool)
	// List returns every definition sorted by name.
	List() []CustomEntityDefinition
}

// NormalizeDefinitionCode upper-cases and trims a definition code.
func NormalizeDefinitionCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
