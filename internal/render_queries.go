package internal

import (
	"context"
	"fmt"

	"github.com/markchipman/cofoundry"
	"github.com/markchipman/cofoundry/cqs"
)

// renderEntity resolves the version of entity id visible under status.
func (h *Handlers) renderEntity(ctx context.Context, id int, status cofoundry.PublishStatusQuery, ec *cqs.ExecutionContext) (EntityRecord, VersionRecord, error) {
	entity, versions, err := loadEntity(ctx, h.store, id)
	if err != nil {
		return EntityRecord{}, VersionRecord{}, err
	}
	if err := authorizeRender(ec, entity.DefinitionCode, status); err != nil {
		return EntityRecord{}, VersionRecord{}, err
	}
	sortVersions(versions)
	version, ok := resolveVersion(entity, versions, status, ec.ExecutionDate)
	if !ok {
		return EntityRecord{}, VersionRecord{}, cofoundry.NewNotFoundError(cofoundry.ErrCodeVersionNotFound,
			"custom entity %d has no %s version", id, status)
	}
	return entity, version, nil
}

func (h *Handlers) getRenderSummaryById(ctx context.Context, q cofoundry.GetCustomEntityRenderSummaryByIdQuery, ec *cqs.ExecutionContext) (cofoundry.CustomEntityRenderSummary, error) {
	entity, version, err := h.renderEntity(ctx, q.CustomEntityID, q.PublishStatus.OrDefault(), ec)
	if err != nil {
		return cofoundry.CustomEntityRenderSummary{}, err
	}
	return toRenderSummary(entity, version), nil
}

func (h *Handlers) getRenderDetailsById(ctx context.Context, q cofoundry.GetCustomEntityRenderDetailsByIdQuery, ec *cqs.ExecutionContext) (cofoundry.CustomEntityRenderDetails, error) {
	entity, version, err := h.renderEntity(ctx, q.CustomEntityID, q.PublishStatus.OrDefault(), ec)
	if err != nil {
		return cofoundry.CustomEntityRenderDetails{}, err
	}
	blocks, err := h.store.ListPageBlocks(ctx, version.ID)
	if err != nil {
		return cofoundry.CustomEntityRenderDetails{}, fmt.Errorf("load page blocks of version %d: %w", version.ID, err)
	}
	return cofoundry.CustomEntityRenderDetails{
		CustomEntityRenderSummary: toRenderSummary(entity, version),
		Regions:                   toRegions(blocks),
	}, nil
}

// visibleRenderSummaries resolves every entity matching filter, dropping
// those with no version visible under status.
func (h *Handlers) visibleRenderSummaries(ctx context.Context, filter EntityFilter, status cofoundry.PublishStatusQuery, ec *cqs.ExecutionContext) ([]cofoundry.CustomEntityRenderSummary, error) {
	entities, versions, err := h.listWithVersions(ctx, filter)
	if err != nil {
		return nil, err
	}
	authorized := make(map[string]bool)
	out := make([]cofoundry.CustomEntityRenderSummary, 0, len(entities))
	for _, e := range entities {
		if _, checked := authorized[e.DefinitionCode]; !checked {
			if err := authorizeRender(ec, e.DefinitionCode, status); err != nil {
				return nil, err
			}
			authorized[e.DefinitionCode] = true
		}
		if v, ok := resolveVersion(e, versions[e.ID], status, ec.ExecutionDate); ok {
			out = append(out, toRenderSummary(e, v))
		}
	}
	return out, nil
}

func (h *Handlers) getRenderSummariesByDefinitionCode(ctx context.Context, q cofoundry.GetCustomEntityRenderSummariesByDefinitionCodeQuery, ec *cqs.ExecutionContext) ([]cofoundry.CustomEntityRenderSummary, error) {
	def, err := h.definition(q.CustomEntityDefinitionCode)
	if err != nil {
		return nil, err
	}
	status := q.PublishStatus.OrDefault()
	if err := authorizeRender(ec, def.Code, status); err != nil {
		return nil, err
	}
	out, err := h.visibleRenderSummaries(ctx, EntityFilter{DefinitionCode: def.Code, LocaleID: q.LocaleID}, status, ec)
	if err != nil {
		return nil, err
	}
	sortRenderSummaries(out, cofoundry.SortNatural, "")
	return out, nil
}

func (h *Handlers) getRenderSummariesByIdRange(ctx context.Context, q cofoundry.GetCustomEntityRenderSummariesByIdRangeQuery, ec *cqs.ExecutionContext) (map[int]cofoundry.CustomEntityRenderSummary, error) {
	out := make(map[int]cofoundry.CustomEntityRenderSummary, len(q.CustomEntityIDs))
	if len(q.CustomEntityIDs) == 0 {
		return out, nil
	}
	summaries, err := h.visibleRenderSummaries(ctx, EntityFilter{IDs: q.CustomEntityIDs}, q.PublishStatus.OrDefault(), ec)
	if err != nil {
		return nil, err
	}
	for _, s := range summaries {
		out[s.CustomEntityID] = s
	}
	return out, nil
}

func (h *Handlers) getPageBlockRenderDetailsById(ctx context.Context, q cofoundry.GetCustomEntityVersionPageBlockRenderDetailsByIdQuery, ec *cqs.ExecutionContext) (cofoundry.CustomEntityVersionPageBlockRenderDetails, error) {
	notFound := cofoundry.NewNotFoundError(cofoundry.ErrCodePageBlockNotFound,
		"custom entity page block %d not found", q.CustomEntityVersionPageBlockID)

	block, ok, err := h.store.GetPageBlock(ctx, q.CustomEntityVersionPageBlockID)
	if err != nil {
		return cofoundry.CustomEntityVersionPageBlockRenderDetails{}, fmt.Errorf("load page block: %w", err)
	}
	if !ok {
		return cofoundry.CustomEntityVersionPageBlockRenderDetails{}, notFound
	}
	version, ok, err := h.store.GetVersion(ctx, block.VersionID)
	if err != nil {
		return cofoundry.CustomEntityVersionPageBlockRenderDetails{}, fmt.Errorf("load page block version: %w", err)
	}
	if !ok {
		return cofoundry.CustomEntityVersionPageBlockRenderDetails{}, notFound
	}
	entity, ok, err := h.store.GetEntity(ctx, version.EntityID)
	if err != nil {
		return cofoundry.CustomEntityVersionPageBlockRenderDetails{}, fmt.Errorf("load page block entity: %w", err)
	}
	if !ok {
		return cofoundry.CustomEntityVersionPageBlockRenderDetails{}, notFound
	}

	status := q.PublishStatus.OrDefault()
	if err := authorizeRender(ec, entity.DefinitionCode, status); err != nil {
		return cofoundry.CustomEntityVersionPageBlockRenderDetails{}, err
	}
	if status == cofoundry.PublishStatusQueryPublished &&
		(version.WorkFlowStatus != cofoundry.WorkFlowStatusPublished || !isLive(entity, ec.ExecutionDate)) {
		return cofoundry.CustomEntityVersionPageBlockRenderDetails{}, notFound
	}
	return toBlockRenderDetails(block), nil
}

func (h *Handlers) searchRenderSummaries(ctx context.Context, q cofoundry.SearchCustomEntityRenderSummariesQuery, ec *cqs.ExecutionContext) (cofoundry.PagedQueryResult[cofoundry.CustomEntityRenderSummary], error) {
	var empty cofoundry.PagedQueryResult[cofoundry.CustomEntityRenderSummary]
	def, err := h.definition(q.CustomEntityDefinitionCode)
	if err != nil {
		return empty, err
	}
	status := q.PublishStatus.OrDefault()
	if err := authorizeRender(ec, def.Code, status); err != nil {
		return empty, err
	}
	all, err := h.visibleRenderSummaries(ctx, EntityFilter{DefinitionCode: def.Code, LocaleID: q.LocaleID}, status, ec)
	if err != nil {
		return empty, err
	}
	sortBy := q.SortBy
	if sortBy == cofoundry.SortNatural && !def.IsOrderable() {
		sortBy = cofoundry.SortCreateDate
	}
	sortRenderSummaries(all, sortBy, q.SortDirection)
	paging := q.PagingParameters.Normalize(h.query.DefaultPageSize, h.query.MaxPageSize)
	return cofoundry.NewPagedQueryResult(all, paging), nil
}
