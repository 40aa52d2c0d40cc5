package internal

import (
	"context"
	"fmt"
	"strings"

	"github.com/markchipman/cofoundry"
	"github.com/markchipman/cofoundry/cqs"
)

func (h *Handlers) getRouteByPath(ctx context.Context, q cofoundry.GetCustomEntityRouteByPathQuery, ec *cqs.ExecutionContext) (cofoundry.CustomEntityRoute, error) {
	def, err := h.definition(q.CustomEntityDefinitionCode)
	if err != nil {
		return cofoundry.CustomEntityRoute{}, err
	}

	var entity EntityRecord
	found := false
	if q.CustomEntityID > 0 {
		e, ok, err := h.store.GetEntity(ctx, q.CustomEntityID)
		if err != nil {
			return cofoundry.CustomEntityRoute{}, fmt.Errorf("load custom entity route: %w", err)
		}
		entity, found = e, ok && e.DefinitionCode == def.Code
	} else if slug := strings.TrimSpace(q.UrlSlug); slug != "" {
		localeID := q.LocaleID
		entities, err := h.store.ListEntities(ctx, EntityFilter{DefinitionCode: def.Code, LocaleID: &localeID})
		if err != nil {
			return cofoundry.CustomEntityRoute{}, fmt.Errorf("load custom entity route: %w", err)
		}
		for _, e := range entities {
			if strings.EqualFold(e.UrlSlug, slug) {
				entity, found = e, true
				break
			}
		}
	}
	if !found {
		return cofoundry.CustomEntityRoute{}, cofoundry.NewNotFoundError(cofoundry.ErrCodeEntityNotFound,
			"no %s route matches id %d slug %q", def.Name, q.CustomEntityID, q.UrlSlug)
	}

	versions, err := h.store.ListVersions(ctx, entity.ID)
	if err != nil {
		return cofoundry.CustomEntityRoute{}, fmt.Errorf("load custom entity route versions: %w", err)
	}
	sortVersions(versions)
	return toRoute(entity, versions), nil
}

func (h *Handlers) getRoutesByDefinitionCode(ctx context.Context, q cofoundry.GetCustomEntityRoutesByDefinitionCodeQuery, ec *cqs.ExecutionContext) ([]cofoundry.CustomEntityRoute, error) {
	def, err := h.definition(q.CustomEntityDefinitionCode)
	if err != nil {
		return nil, err
	}
	entities, versions, err := h.listWithVersions(ctx, EntityFilter{DefinitionCode: def.Code})
	if err != nil {
		return nil, err
	}
	routes := make([]cofoundry.CustomEntityRoute, 0, len(entities))
	for _, e := range entities {
		routes = append(routes, toRoute(e, versions[e.ID]))
	}
	sortRoutes(routes)
	return routes, nil
}

func (h *Handlers) getRoutingRuleByRouteFormat(ctx context.Context, q cofoundry.GetCustomEntityRoutingRuleByRouteFormatQuery, ec *cqs.ExecutionContext) (cofoundry.CustomEntityRoutingRule, error) {
	for _, rule := range h.rules {
		if rule.RouteFormat() == strings.TrimSpace(q.RouteFormat) {
			return rule, nil
		}
	}
	return nil, cofoundry.NewNotFoundError(cofoundry.ErrCodeRoutingRuleNotFound,
		"no routing rule has route format %q", q.RouteFormat)
}

func (h *Handlers) getAllRoutingRules(ctx context.Context, q cofoundry.GetAllCustomEntityRoutingRulesQuery, ec *cqs.ExecutionContext) ([]cofoundry.CustomEntityRoutingRule, error) {
	return append([]cofoundry.CustomEntityRoutingRule(nil), h.rules...), nil
}

func (h *Handlers) isPathUnique(ctx context.Context, q cofoundry.IsCustomEntityPathUniqueQuery, ec *cqs.ExecutionContext) (bool, error) {
	def, err := h.definition(q.CustomEntityDefinitionCode)
	if err != nil {
		return false, err
	}
	return pathIsUnique(ctx, h.store, def.Code, q.LocaleID, strings.ToLower(strings.TrimSpace(q.UrlSlug)), q.CustomEntityID)
}

// listWithVersions loads matching entities with their versions grouped by
// entity id.
func (h *Handlers) listWithVersions(ctx context.Context, filter EntityFilter) ([]EntityRecord, map[int]versionSet, error) {
	entities, err := h.store.ListEntities(ctx, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("list custom entities: %w", err)
	}
	if len(entities) == 0 {
		return entities, map[int]versionSet{}, nil
	}
	ids := make([]int, len(entities))
	for i, e := range entities {
		ids[i] = e.ID
	}
	versions, err := h.store.ListVersions(ctx, ids...)
	if err != nil {
		return nil, nil, fmt.Errorf("list custom entity versions: %w", err)
	}
	return entities, groupVersions(versions), nil
}
