package internal

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/markchipman/cofoundry"
	"github.com/markchipman/cofoundry/cqs"
)

// Handlers implements every custom entity query and command on top of a Store.
type Handlers struct {
	store       Store
	definitions *DefinitionRegistry
	validator   *ModelValidator
	rules       []cofoundry.CustomEntityRoutingRule
	query       cofoundry.QueryConfig
	entity      cofoundry.EntityConfig
}

// NewHandlers builds the handler set. cfg may be nil to use defaults.
func NewHandlers(store Store, definitions *DefinitionRegistry, cfg *cofoundry.Config) *Handlers {
	if cfg == nil {
		cfg = cofoundry.DefaultConfig()
	}
	return &Handlers{
		store:       store,
		definitions: definitions,
		validator:   NewModelValidator(definitions),
		rules:       cofoundry.DefaultRoutingRules(),
		query:       cfg.Query,
		entity:      cfg.Entity,
	}
}

// Register binds every handler to reg.
func (h *Handlers) Register(reg *cqs.Registry) error {
	registrations := []func() error{
		func() error { return cqs.RegisterQuery(reg, h.getAllDefinitionMicroSummaries) },
		func() error { return cqs.RegisterQuery(reg, h.getDefinitionMicroSummaryByCode) },
		func() error { return cqs.RegisterQuery(reg, h.getDataModelSchemaDetails) },
		func() error { return cqs.RegisterQuery(reg, h.getRouteByPath) },
		func() error { return cqs.RegisterQuery(reg, h.getRoutesByDefinitionCode) },
		func() error { return cqs.RegisterQuery(reg, h.getRoutingRuleByRouteFormat) },
		func() error { return cqs.RegisterQuery(reg, h.getAllRoutingRules) },
		func() error { return cqs.RegisterQuery(reg, h.isPathUnique) },
		func() error { return cqs.RegisterQuery(reg, h.getRenderDetailsById) },
		func() error { return cqs.RegisterQuery(reg, h.getRenderSummariesByDefinitionCode) },
		func() error { return cqs.RegisterQuery(reg, h.getRenderSummaryById) },
		func() error { return cqs.RegisterQuery(reg, h.getRenderSummariesByIdRange) },
		func() error { return cqs.RegisterQuery(reg, h.getPageBlockRenderDetailsById) },
		func() error { return cqs.RegisterQuery(reg, h.searchRenderSummaries) },
		func() error { return cqs.RegisterQuery(reg, h.getDetailsById) },
		func() error { return cqs.RegisterQuery(reg, h.getSummariesByIdRange) },
		func() error { return cqs.RegisterQuery(reg, h.getVersionSummaries) },
		func() error { return cqs.RegisterQuery(reg, h.searchSummaries) },

		func() error { return cqs.RegisterCommand(reg, h.addCustomEntity) },
		func() error { return cqs.RegisterCommand(reg, h.deleteCustomEntity) },
		func() error { return cqs.RegisterCommand(reg, h.updateCustomEntityUrl) },
		func() error { return cqs.RegisterCommand(reg, h.ensureDefinitionExists) },
		func() error { return cqs.RegisterCommand(reg, h.publishCustomEntity) },
		func() error { return cqs.RegisterCommand(reg, h.unPublishCustomEntity) },
		func() error { return cqs.RegisterCommand(reg, h.addDraftVersion) },
		func() error { return cqs.RegisterCommand(reg, h.updateDraftVersion) },
		func() error { return cqs.RegisterCommand(reg, h.deleteDraftVersion) },
		func() error { return cqs.RegisterCommand(reg, h.reOrderCustomEntities) },
		func() error { return cqs.RegisterCommand(reg, h.updateOrderingPosition) },
		func() error { return cqs.RegisterCommand(reg, h.addPageBlock) },
		func() error { return cqs.RegisterCommand(reg, h.updatePageBlock) },
		func() error { return cqs.RegisterCommand(reg, h.movePageBlock) },
		func() error { return cqs.RegisterCommand(reg, h.deletePageBlock) },
	}
	for _, register := range registrations {
		if err := register(); err != nil {
			return fmt.Errorf("register custom entity handlers: %w", err)
		}
	}
	return nil
}

// ============================================================================
// Shared helpers
// ============================================================================

func (h *Handlers) definition(code string) (cofoundry.CustomEntityDefinition, error) {
	def, ok := h.definitions.GetByCode(code)
	if !ok {
		return cofoundry.CustomEntityDefinition{}, cofoundry.NewNotFoundError(
			cofoundry.ErrCodeDefinitionNotFound, "custom entity definition %q not found", code)
	}
	return def, nil
}

func authorize(ec *cqs.ExecutionContext, definitionCode, action string) error {
	p := cqs.Permission{EntityDefinitionCode: definitionCode, Code: action}
	if !ec.Can(p) {
		return cofoundry.NewPermissionDeniedError(p.String())
	}
	return nil
}

// authorizeRender requires read permission for anything but published content.
func authorizeRender(ec *cqs.ExecutionContext, definitionCode string, status cofoundry.PublishStatusQuery) error {
	if status == cofoundry.PublishStatusQueryPublished {
		return nil
	}
	return authorize(ec, definitionCode, cqs.PermissionRead)
}

func entityNotFound(id int) error {
	return cofoundry.NewNotFoundError(cofoundry.ErrCodeEntityNotFound, "custom entity %d not found", id)
}

// loadEntity reads an entity and its versions, failing with NotFound.
func loadEntity(ctx context.Context, r Reader, id int) (EntityRecord, []VersionRecord, error) {
	entity, ok, err := r.GetEntity(ctx, id)
	if err != nil {
		return EntityRecord{}, nil, fmt.Errorf("load custom entity %d: %w", id, err)
	}
	if !ok {
		return EntityRecord{}, nil, entityNotFound(id)
	}
	versions, err := r.ListVersions(ctx, id)
	if err != nil {
		return EntityRecord{}, nil, fmt.Errorf("load versions of custom entity %d: %w", id, err)
	}
	return entity, versions, nil
}

var urlSlugPattern = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)

// Slugify lower-cases s and joins its alphanumeric runs with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingDash = false
			continue
		}
		pendingDash = true
	}
	return b.String()
}

func (h *Handlers) normalizeUrlSlug(def cofoundry.CustomEntityDefinition, slug, title string, errs *cofoundry.ValidationErrors) string {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" && def.AutoGenerateUrlSlug {
		slug = Slugify(title)
	}
	switch {
	case slug == "":
		errs.Add("urlSlug", "is required")
	case !urlSlugPattern.MatchString(slug):
		errs.Add("urlSlug", "may contain only lower-case letters, numbers, hyphens and underscores")
	case h.entity.MaxUrlSlugLength > 0 && len(slug) > h.entity.MaxUrlSlugLength:
		errs.Add("urlSlug", fmt.Sprintf("must be at most %d characters", h.entity.MaxUrlSlugLength))
	}
	return slug
}

func (h *Handlers) validateTitle(title string, errs *cofoundry.ValidationErrors) string {
	title = strings.TrimSpace(title)
	if title == "" {
		errs.Add("title", "is required")
	} else if h.entity.MaxTitleLength > 0 && len([]rune(title)) > h.entity.MaxTitleLength {
		errs.Add("title", fmt.Sprintf("must be at most %d characters", h.entity.MaxTitleLength))
	}
	return title
}

func validateLocale(def cofoundry.CustomEntityDefinition, localeID int, errs *cofoundry.ValidationErrors) {
	if localeID < 0 {
		errs.Add("localeId", "must not be negative")
	} else if localeID != 0 && !def.HasLocale {
		errs.Add("localeId", fmt.Sprintf("%s does not support locales", def.NamePlural))
	}
}

// pathIsUnique reports whether no entity other than excludeID uses slug in the
// definition and locale.
func pathIsUnique(ctx context.Context, r Reader, definitionCode string, localeID int, slug string, excludeID int) (bool, error) {
	entities, err := r.ListEntities(ctx, EntityFilter{DefinitionCode: definitionCode, LocaleID: &localeID})
	if err != nil {
		return false, fmt.Errorf("check url slug uniqueness: %w", err)
	}
	for _, e := range entities {
		if e.ID != excludeID && strings.EqualFold(e.UrlSlug, slug) {
			return false, nil
		}
	}
	return true, nil
}

func (h *Handlers) ensureUniquePath(ctx context.Context, r Reader, def cofoundry.CustomEntityDefinition, localeID int, slug string, excludeID int) error {
	if !def.ForceUrlSlugUniqueness {
		return nil
	}
	unique, err := pathIsUnique(ctx, r, def.Code, localeID, slug, excludeID)
	if err != nil {
		return err
	}
	if !unique {
		return cofoundry.NewBusinessRuleViolation(cofoundry.ErrCodeUrlSlugNotUnique,
			fmt.Sprintf("the url slug %q is already in use", slug)).WithField("urlSlug", "must be unique")
	}
	return nil
}
