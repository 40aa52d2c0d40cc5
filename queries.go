package cofoundry

import "github.com/markchipman/cofoundry/cqs"

// ============================================================================
// Definitions
// ============================================================================

// GetAllCustomEntityDefinitionMicroSummariesQuery lists every registered
// definition, sorted by name.
type GetAllCustomEntityDefinitionMicroSummariesQuery struct {
	cqs.Returns[[]CustomEntityDefinitionMicroSummary]
}

func (GetAllCustomEntityDefinitionMicroSummariesQuery) QueryName() string {
	return "GetAllCustomEntityDefinitionMicroSummaries"
}

type GetCustomEntityDefinitionMicroSummaryByCodeQuery struct {
	cqs.Returns[CustomEntityDefinitionMicroSummary]
	CustomEntityDefinitionCode string `json:"customEntityDefinitionCode"`
}

func (GetCustomEntityDefinitionMicroSummaryByCodeQuery) QueryName() string {
	return "GetCustomEntityDefinitionMicroSummaryByCode"
}

type GetCustomEntityDataModelSchemaDetailsByDefinitionCodeQuery struct {
	cqs.Returns[CustomEntityDataModelSchema]
	CustomEntityDefinitionCode string `json:"customEntityDefinitionCode"`
}

func (GetCustomEntityDataModelSchemaDetailsByDefinitionCodeQuery) QueryName() string {
	return "GetCustomEntityDataModelSchemaDetailsByDefinitionCode"
}

// ============================================================================
// Routes
// ============================================================================

// GetCustomEntityRouteByPathQuery looks up a route by entity id, or by url
// slug when the id is zero.
type GetCustomEntityRouteByPathQuery struct {
	cqs.Returns[CustomEntityRoute]
	CustomEntityDefinitionCode string `json:"customEntityDefinitionCode"`
	CustomEntityID             int    `json:"customEntityId,omitempty"`
	UrlSlug                    string `json:"urlSlug,omitempty"`
	LocaleID                   int    `json:"localeId,omitempty"`
}

func (GetCustomEntityRouteByPathQuery) QueryName() string { return "GetCustomEntityRouteByPath" }

type GetCustomEntityRoutesByDefinitionCodeQuery struct {
	cqs.Returns[[]CustomEntityRoute]
	CustomEntityDefinitionCode string `json:"customEntityDefinitionCode"`
}

func (GetCustomEntityRoutesByDefinitionCodeQuery) QueryName() string {
	return "GetCustomEntityRoutesByDefinitionCode"
}

type GetCustomEntityRoutingRuleByRouteFormatQuery struct {
	cqs.Returns[CustomEntityRoutingRule]
	RouteFormat string `json:"routeFormat"`
}

func (GetCustomEntityRoutingRuleByRouteFormatQuery) QueryName() string {
	return "GetCustomEntityRoutingRuleByRouteFormat"
}

type GetAllCustomEntityRoutingRulesQuery struct {
	cqs.Returns[[]CustomEntityRoutingRule]
}

func (GetAllCustomEntityRoutingRulesQuery) QueryName() string {
	return "GetAllCustomEntityRoutingRules"
}

// IsCustomEntityPathUniqueQuery checks that no other entity of the definition
// uses the slug in the locale. CustomEntityID excludes the entity being edited.
type IsCustomEntityPathUniqueQuery struct {
	cqs.Returns[bool]
	CustomEntityDefinitionCode string `json:"customEntityDefinitionCode"`
	CustomEntityID             int    `json:"customEntityId,omitempty"`
	UrlSlug                    string `json:"urlSlug"`
	LocaleID                   int    `json:"localeId,omitempty"`
}

func (IsCustomEntityPathUniqueQuery) QueryName() string { return "IsCustomEntityPathUnique" }

// ============================================================================
// Render views
// ============================================================================

type GetCustomEntityRenderDetailsByIdQuery struct {
	cqs.Returns[CustomEntityRenderDetails]
	CustomEntityID int                `json:"customEntityId"`
	PublishStatus  PublishStatusQuery `json:"publishStatus,omitempty"`
}

func (GetCustomEntityRenderDetailsByIdQuery) QueryName() string {
	return "GetCustomEntityRenderDetailsById"
}

// GetCustomEntityRenderSummariesByDefinitionCodeQuery lists render summaries of
// a definition. A nil LocaleID matches every locale.
type GetCustomEntityRenderSummariesByDefinitionCodeQuery struct {
	cqs.Returns[[]CustomEntityRenderSummary]
	CustomEntityDefinitionCode string             `json:"customEntityDefinitionCode"`
	PublishStatus              PublishStatusQuery `json:"publishStatus,omitempty"`
	LocaleID                   *int               `json:"localeId,omitempty"`
}

func (GetCustomEntityRenderSummariesByDefinitionCodeQuery) QueryName() string {
	return "GetCustomEntityRenderSummariesByDefinitionCode"
}

type GetCustomEntityRenderSummaryByIdQuery struct {
	cqs.Returns[CustomEntityRenderSummary]
	CustomEntityID int                `json:"customEntityId"`
	PublishStatus  PublishStatusQuery `json:"publishStatus,omitempty"`
}

func (GetCustomEntityRenderSummaryByIdQuery) QueryName() string {
	return "GetCustomEntityRenderSummaryById"
}

// GetCustomEntityRenderSummariesByIdRangeQuery returns render summaries keyed
// by id. Ids without a visible version are omitted.
type GetCustomEntityRenderSummariesByIdRangeQuery struct {
	cqs.Returns[map[int]CustomEntityRenderSummary]
	CustomEntityIDs []int              `json:"customEntityIds"`
	PublishStatus   PublishStatusQuery `json:"publishStatus,omitempty"`
}

func (GetCustomEntityRenderSummariesByIdRangeQuery) QueryName() string {
	return "GetCustomEntityRenderSummariesByIdRange"
}

type GetCustomEntityVersionPageBlockRenderDetailsByIdQuery struct {
	cqs.Returns[CustomEntityVersionPageBlockRenderDetails]
	CustomEntityVersionPageBlockID int                `json:"customEntityVersionPageBlockId"`
	PublishStatus                  PublishStatusQuery `json:"publishStatus,omitempty"`
}

func (GetCustomEntityVersionPageBlockRenderDetailsByIdQuery) QueryName() string {
	return "GetCustomEntityVersionPageBlockRenderDetailsById"
}

// SearchCustomEntityRenderSummariesQuery pages through render summaries of a
// definition.
type SearchCustomEntityRenderSummariesQuery struct {
	cqs.Returns[PagedQueryResult[CustomEntityRenderSummary]]
	PagingParameters
	CustomEntityDefinitionCode string                    `json:"customEntityDefinitionCode"`
	PublishStatus              PublishStatusQuery        `json:"publishStatus,omitempty"`
	SortBy                     CustomEntityQuerySortType `json:"sortBy,omitempty"`
	SortDirection              SortDirection             `json:"sortDirection,omitempty"`
	LocaleID                   *int                      `json:"localeId,omitempty"`
}

func (SearchCustomEntityRenderSummariesQuery) QueryName() string {
	return "SearchCustomEntityRenderSummaries"
}

// ============================================================================
// Admin views
// ============================================================================

type GetCustomEntityDetailsByIdQuery struct {
	cqs.Returns[CustomEntityDetails]
	CustomEntityID int `json:"customEntityId"`
}

func (GetCustomEntityDetailsByIdQuery) QueryName() string { return "GetCustomEntityDetailsById" }

// GetCustomEntitySummariesByIdRangeQuery returns summaries keyed by id. Missing
// ids are omitted.
type GetCustomEntitySummariesByIdRangeQuery struct {
	cqs.Returns[map[int]CustomEntitySummary]
	CustomEntityIDs []int `json:"customEntityIds"`
}

func (GetCustomEntitySummariesByIdRangeQuery) QueryName() string {
	return "GetCustomEntitySummariesByIdRange"
}

type GetCustomEntityVersionSummariesByCustomEntityIdQuery struct {
	cqs.Returns[[]CustomEntityVersionSummary]
	CustomEntityID int `json:"customEntityId"`
}

func (GetCustomEntityVersionSummariesByCustomEntityIdQuery) QueryName() string {
	return "GetCustomEntityVersionSummariesByCustomEntityId"
}

// SearchCustomEntitySummariesQuery pages through admin summaries matching Text
// in the title or url slug.
type SearchCustomEntitySummariesQuery struct {
	cqs.Returns[PagedQueryResult[CustomEntitySummary]]
	PagingParameters
	CustomEntityDefinitionCode string `json:"customEntityDefinitionCode"`
	Text                       string `json:"text,omitempty"`
	LocaleID                   *int   `json:"localeId,omitempty"`
}

func (SearchCustomEntitySummariesQuery) QueryName() string { return "SearchCustomEntitySummaries" }

// AllQueries returns a zero value of every query type, for startup validation.
func AllQueries() []cqs.NamedQuery {
	return []cqs.NamedQuery{
		GetAllCustomEntityDefinitionMicroSummariesQuery{},
		GetCustomEntityDefinitionMicroSummaryByCodeQuery{},
		GetCustomEntityDataModelSchemaDetailsByDefinitionCodeQuery{},
		GetCustomEntityRouteByPathQuery{},
		GetCustomEntityRoutesByDefinitionCodeQuery{},
		GetCustomEntityRoutingRuleByRouteFormatQuery{},
		GetAllCustomEntityRoutingRulesQuery{},
		IsCustomEntityPathUniqueQuery{},
		GetCustomEntityRenderDetailsByIdQuery{},
		GetCustomEntityRenderSummariesByDefinitionCodeQuery{},
		GetCustomEntityRenderSummaryByIdQuery{},
		GetCustomEntityRenderSummariesByIdRangeQuery{},
		GetCustomEntityVersionPageBlockRenderDetailsByIdQuery{},
		SearchCustomEntityRenderSummariesQuery{},
		GetCustomEntityDetailsByIdQuery{},
		GetCustomEntitySummariesByIdRangeQuery{},
		GetCustomEntityVersionSummariesByCustomEntityIdQuery{},
		SearchCustomEntitySummariesQuery{},
	}
}
