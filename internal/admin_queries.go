package internal

import (
	"context"
	"fmt"
	"strings"

	"github.com/markchipman/cofoundry"
	"github.com/markchipman/cofoundry/cqs"
)

func (h *Handlers) getDetailsById(ctx context.Context, q cofoundry.GetCustomEntityDetailsByIdQuery, ec *cqs.ExecutionContext) (cofoundry.CustomEntityDetails, error) {
	entity, versions, err := loadEntity(ctx, h.store, q.CustomEntityID)
	if err != nil {
		return cofoundry.CustomEntityDetails{}, err
	}
	if err := authorize(ec, entity.DefinitionCode, cqs.PermissionRead); err != nil {
		return cofoundry.CustomEntityDetails{}, err
	}
	sortVersions(versions)
	vs := versionSet(versions)
	summary := toSummary(entity, vs)

	details := cofoundry.CustomEntityDetails{
		CustomEntityID:             entity.ID,
		CustomEntityDefinitionCode: entity.DefinitionCode,
		LocaleID:                   entity.LocaleID,
		UrlSlug:                    entity.UrlSlug,
		PublishStatus:              entity.PublishStatus,
		PublishDate:                entity.PublishDate,
		Ordering:                   entity.Ordering,
		HasDraftVersion:            summary.HasDraftVersion,
		HasPublishedVersion:        summary.HasPublishedVersion,
		AuditData:                  summary.AuditData,
	}
	if latest, ok := vs.latest(); ok {
		blocks, err := h.store.ListPageBlocks(ctx, latest.ID)
		if err != nil {
			return cofoundry.CustomEntityDetails{}, fmt.Errorf("load page blocks of version %d: %w", latest.ID, err)
		}
		details.LatestVersion = cofoundry.CustomEntityVersionDetails{
			CustomEntityVersionID: latest.ID,
			Title:                 latest.Title,
			WorkFlowStatus:        latest.WorkFlowStatus,
			Model:                 latest.Model,
			Regions:               toRegions(blocks),
			AuditData:             cofoundry.AuditData{CreateDate: latest.CreateDate, CreatorID: latest.CreatorID},
		}
	}
	return details, nil
}

func (h *Handlers) getSummariesByIdRange(ctx context.Context, q cofoundry.GetCustomEntitySummariesByIdRangeQuery, ec *cqs.ExecutionContext) (map[int]cofoundry.CustomEntitySummary, error) {
	out := make(map[int]cofoundry.CustomEntitySummary, len(q.CustomEntityIDs))
	if len(q.CustomEntityIDs) == 0 {
		return out, nil
	}
	entities, versions, err := h.listWithVersions(ctx, EntityFilter{IDs: q.CustomEntityIDs})
	if err != nil {
		return nil, err
	}
	for _, e := range entities {
		if err := authorize(ec, e.DefinitionCode, cqs.PermissionRead); err != nil {
			return nil, err
		}
		out[e.ID] = toSummary(e, versions[e.ID])
	}
	return out, nil
}

func (h *Handlers) getVersionSummaries(ctx context.Context, q cofoundry.GetCustomEntityVersionSummariesByCustomEntityIdQuery, ec *cqs.ExecutionContext) ([]cofoundry.CustomEntityVersionSummary, error) {
	entity, versions, err := loadEntity(ctx, h.store, q.CustomEntityID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ec, entity.DefinitionCode, cqs.PermissionRead); err != nil {
		return nil, err
	}
	sortVersions(versions)
	return toVersionSummaries(versions), nil
}

func (h *Handlers) searchSummaries(ctx context.Context, q cofoundry.SearchCustomEntitySummariesQuery, ec *cqs.ExecutionContext) (cofoundry.PagedQueryResult[cofoundry.CustomEntitySummary], error) {
	var empty cofoundry.PagedQueryResult[cofoundry.CustomEntitySummary]
	def, err := h.definition(q.CustomEntityDefinitionCode)
	if err != nil {
		return empty, err
	}
	if err := authorize(ec, def.Code, cqs.PermissionRead); err != nil {
		return empty, err
	}
	entities, versions, err := h.listWithVersions(ctx, EntityFilter{DefinitionCode: def.Code, LocaleID: q.LocaleID})
	if err != nil {
		return empty, err
	}

	text := strings.ToLower(strings.TrimSpace(q.Text))
	all := make([]cofoundry.CustomEntitySummary, 0, len(entities))
	for _, e := range entities {
		s := toSummary(e, versions[e.ID])
		if text != "" && !strings.Contains(strings.ToLower(s.Title), text) && !strings.Contains(s.UrlSlug, text) {
			continue
		}
		all = append(all, s)
	}
	sortSummaries(all)
	paging := q.PagingParameters.Normalize(h.query.DefaultPageSize, h.query.MaxPageSize)
	return cofoundry.NewPagedQueryResult(all, paging), nil
}
