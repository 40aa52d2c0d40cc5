package cofoundry

import (
	"context"

	"github.com/markchipman/cofoundry/cqs"
)

// CustomEntityRepository is the entry point for custom entity data access.
// Every method accepts an ExecutionOption: pass cqs.Ambient() to act as the
// current caller, or cqs.Explicit(ec) to run the call under ec, for example a
// system context for trusted internal work.
type CustomEntityRepository interface {
	// Definitions
	GetAllCustomEntityDefinitionMicroSummaries(ctx context.Context, opt cqs.ExecutionOption) ([]CustomEntityDefinitionMicroSummary, error)
	GetCustomEntityDefinitionMicroSummaryByCode(ctx context.Context, definitionCode string, opt cqs.ExecutionOption) (CustomEntityDefinitionMicroSummary, error)
	GetCustomEntityDataModelSchemaDetailsByCode(ctx context.Context, definitionCode string, opt cqs.ExecutionOption) (CustomEntityDataModelSchema, error)

	// Routes
	GetCustomEntityRouteByPath(ctx context.Context, query GetCustomEntityRouteByPathQuery, opt cqs.ExecutionOption) (CustomEntityRoute, error)
	GetCustomEntityRoutesByDefinitionCode(ctx context.Context, definitionCode string, opt cqs.ExecutionOption) ([]CustomEntityRoute, error)
	GetCustomEntityRoutingRuleByRouteFormat(ctx context.Context, routeFormat string, opt cqs.ExecutionOption) (CustomEntityRoutingRule, error)
	GetAllCustomEntityRoutingRules(ctx context.Context, opt cqs.ExecutionOption) ([]CustomEntityRoutingRule, error)
	IsCustomEntityPathUnique(ctx context.Context, query IsCustomEntityPathUniqueQuery, opt cqs.ExecutionOption) (bool, error)

	// Render views
	GetCustomEntityRenderDetailsById(ctx context.Context, query GetCustomEntityRenderDetailsByIdQuery, opt cqs.ExecutionOption) (CustomEntityRenderDetails, error)
	GetCustomEntityRenderSummariesByDefinitionCode(ctx context.Context, query GetCustomEntityRenderSummariesByDefinitionCodeQuery, opt cqs.ExecutionOption) ([]CustomEntityRenderSummary, error)
	GetCustomEntityRenderSummaryById(ctx context.Context, query GetCustomEntityRenderSummaryByIdQuery, opt cqs.ExecutionOption) (CustomEntityRenderSummary, error)
	GetCustomEntityRenderSummariesByIdRange(ctx context.Context, query GetCustomEntityRenderSummariesByIdRangeQuery, opt cqs.ExecutionOption) (map[int]CustomEntityRenderSummary, error)
	GetCustomEntityVersionPageBlockRenderDetailsById(ctx context.Context, query GetCustomEntityVersionPageBlockRenderDetailsByIdQuery, opt cqs.ExecutionOption) (CustomEntityVersionPageBlockRenderDetails, error)
	SearchCustomEntityRenderSummaries(ctx context.Context, query SearchCustomEntityRenderSummariesQuery, opt cqs.ExecutionOption) (PagedQueryResult[CustomEntityRenderSummary], error)

	// Admin views
	GetCustomEntityDetailsById(ctx context.Context, customEntityID int, opt cqs.ExecutionOption) (CustomEntityDetails, error)
	GetCustomEntitySummariesByIdRange(ctx context.Context, ids []int, opt cqs.ExecutionOption) (map[int]CustomEntitySummary, error)
	GetCustomEntityVersionSummariesByCustomEntityId(ctx context.Context, customEntityID int, opt cqs.ExecutionOption) ([]CustomEntityVersionSummary, error)
	SearchCustomEntitySummaries(ctx context.Context, query SearchCustomEntitySummariesQuery, opt cqs.ExecutionOption) (PagedQueryResult[CustomEntitySummary], error)

	// Commands
	AddCustomEntity(ctx context.Context, command AddCustomEntityCommand, opt cqs.ExecutionOption) (int, error)
	AddCustomEntityDraftVersion(ctx context.Context, command AddCustomEntityDraftVersionCommand, opt cqs.ExecutionOption) (int, error)
	AddCustomEntityVersionPageBlock(ctx context.Context, command AddCustomEntityVersionPageBlockCommand, opt cqs.ExecutionOption) (int, error)
	DeleteCustomEntity(ctx context.Context, customEntityID int, opt cqs.ExecutionOption) error
	DeleteCustomEntityDraftVersion(ctx context.Context, customEntityID int, opt cqs.ExecutionOption) error
	DeleteCustomEntityVersionPageBlock(ctx context.Context, pageBlockID int, opt cqs.ExecutionOption) error
	EnsureCustomEntityDefinitionExists(ctx context.Context, definitionCode string, opt cqs.ExecutionOption) error
	MoveCustomEntityVersionPageBlock(ctx context.Context, command MoveCustomEntityVersionPageBlockCommand, opt cqs.ExecutionOption) error
	PublishCustomEntity(ctx context.Context, command PublishCustomEntityCommand, opt cqs.ExecutionOption) error
	ReOrderCustomEntities(ctx context.Context, command ReOrderCustomEntitiesCommand, opt cqs.ExecutionOption) error
	UnPublishCustomEntity(ctx context.Context, customEntityID int, opt cqs.ExecutionOption) error
	UpdateCustomEntityDraftVersion(ctx context.Context, command UpdateCustomEntityDraftVersionCommand, opt cqs.ExecutionOption) error
	UpdateCustomEntityOrderingPosition(ctx context.Context, command UpdateCustomEntityOrderingPositionCommand, opt cqs.ExecutionOption) error
	UpdateCustomEntityUrl(ctx context.Context, command UpdateCustomEntityUrlCommand, opt cqs.ExecutionOption) error
	UpdateCustomEntityVersionPageBlock(ctx context.Context, command UpdateCustomEntityVersionPageBlockCommand, opt cqs.ExecutionOption) error
}

type customEntityRepository struct {
	queries  cqs.QueryExecutor
	commands cqs.CommandExecutor
}

// NewCustomEntityRepository builds the repository over the given executors.
func NewCustomEntityRepository(queries cqs.QueryExecutor, commands cqs.CommandExecutor) CustomEntityRepository {
	return &customEntityRepository{queries: queries, commands: commands}
}

// RequiredQueries lists the queries the repository dispatches.
func RequiredQueries() []cqs.NamedQuery { return AllQueries() }

// RequiredCommands lists the commands the repository dispatches.
func RequiredCommands() []cqs.NamedCommand { return AllCommands() }

func (r *customEntityRepository) GetAllCustomEntityDefinitionMicroSummaries(ctx context.Context, opt cqs.ExecutionOption) ([]CustomEntityDefinitionMicroSummary, error) {
	return cqs.ExecuteQuery(ctx, r.queries, GetAllCustomEntityDefinitionMicroSummariesQuery{}, opt)
}

func (r *customEntityRepository) GetCustomEntityDefinitionMicroSummaryByCode(ctx context.Context, definitionCode string, opt cqs.ExecutionOption) (CustomEntityDefinitionMicroSummary, error) {
	query := GetCustomEntityDefinitionMicroSummaryByCodeQuery{CustomEntityDefinitionCode: definitionCode}
	return cqs.ExecuteQuery(ctx, r.queries, query, opt)
}

func (r *customEntityRepository) GetCustomEntityDataModelSchemaDetailsByCode(ctx context.Context, definitionCode string, opt cqs.ExecutionOption) (CustomEntityDataModelSchema, error) {
	query := GetCustomEntityDataModelSchemaDetailsByDefinitionCodeQuery{CustomEntityDefinitionCode: definitionCode}
	return cqs.ExecuteQuery(ctx, r.queries, query, opt)
}

func (r *customEntityRepository) GetCustomEntityRouteByPath(ctx context.Context, query GetCustomEntityRouteByPathQuery, opt cqs.ExecutionOption) (CustomEntityRoute, error) {
	return cqs.ExecuteQuery(ctx, r.queries, query, opt)
}

// GetCustomEntityRoutesByDefinitionCode returns the routes of every entity of
// a definition, ordered by manual ordering then url slug.
func (r *customEntityRepository) GetCustomEntityRoutesByDefinitionCode(ctx context.Context, definitionCode string, opt cqs.ExecutionOption) ([]CustomEntityRoute, error) {
	query := GetCustomEntityRoutesByDefinitionCodeQuery{CustomEntityDefinitionCode: definitionCode}
	return cqs.ExecuteQuery(ctx, r.queries, query, opt)
}

func (r *customEntityRepository) GetCustomEntityRoutingRuleByRouteFormat(ctx context.Context, routeFormat string, opt cqs.ExecutionOption) (CustomEntityRoutingRule, error) {
	query := GetCustomEntityRoutingRuleByRouteFormatQuery{RouteFormat: routeFormat}
	return cqs.ExecuteQuery(ctx, r.queries, query, opt)
}

func (r *customEntityRepository) GetAllCustomEntityRoutingRules(ctx context.Context, opt cqs.ExecutionOption) ([]CustomEntityRoutingRule, error) {
	return cqs.ExecuteQuery(ctx, r.queries, GetAllCustomEntityRoutingRulesQuery{}, opt)
}

func (r *customEntityRepository) IsCustomEntityPathUnique(ctx context.Context, query IsCustomEntityPathUniqueQuery, opt cqs.ExecutionOption) (bool, error) {
	return cqs.ExecuteQuery(ctx, r.queries, query, opt)
}

func (r *customEntityRepository) GetCustomEntityRenderDetailsById(ctx context.Context, query GetCustomEntityRenderDetailsByIdQuery, opt cqs.ExecutionOption) (CustomEntityRenderDetails, error) {
	return cqs.ExecuteQuery(ctx, r.queries, query, opt)
}

func (r *customEntityRepository) GetCustomEntityRenderSummariesByDefinitionCode(ctx context.Context, query GetCustomEntityRenderSummariesByDefinitionCodeQuery, opt cqs.ExecutionOption) ([]CustomEntityRenderSummary, error) {
	return cqs.ExecuteQuery(ctx, r.queries, query, opt)
}

func (r *customEntityRepository) GetCustomEntityRenderSummaryById(ctx context.Context, query GetCustomEntityRenderSummaryByIdQuery, opt cqs.ExecutionOption) (CustomEntityRenderSummary, error) {
	return cqs.ExecuteQuery(ctx, r.queries, query, opt)
}

func (r *customEntityRepository) GetCustomEntityRenderSummariesByIdRange(ctx context.Context, query GetCustomEntityRenderSummariesByIdRangeQuery, opt cqs.ExecutionOption) (map[int]CustomEntityRenderSummary, error) {
	return cqs.ExecuteQuery(ctx, r.queries, query, opt)
}

func (r *customEntityRepository) GetCustomEntityVersionPageBlockRenderDetailsById(ctx context.Context, query GetCustomEntityVersionPageBlockRenderDetailsByIdQuery, opt cqs.ExecutionOption) (CustomEntityVersionPageBlockRenderDetails, error) {
	return cqs.ExecuteQuery(ctx, r.queries, query, opt)
}

func (r *customEntityRepository) SearchCustomEntityRenderSummaries(ctx context.Context, query SearchCustomEntityRenderSummariesQuery, opt cqs.ExecutionOption) (PagedQueryResult[CustomEntityRenderSummary], error) {
	return cqs.ExecuteQuery(ctx, r.queries, query, opt)
}

func (r *customEntityRepository) GetCustomEntityDetailsById(ctx context.Context, customEntityID int, opt cqs.ExecutionOption) (CustomEntityDetails, error) {
	return cqs.ExecuteQuery(ctx, r.queries, GetCustomEntityDetailsByIdQuery{CustomEntityID: customEntityID}, opt)
}

func (r *customEntityRepository) GetCustomEntitySummariesByIdRange(ctx context.Context, ids []int, opt cqs.ExecutionOption) (map[int]CustomEntitySummary, error) {
	return cqs.ExecuteQuery(ctx, r.queries, GetCustomEntitySummariesByIdRangeQuery{CustomEntityIDs: ids}, opt)
}

func (r *customEntityRepository) GetCustomEntityVersionSummariesByCustomEntityId(ctx context.Context, customEntityID int, opt cqs.ExecutionOption) ([]CustomEntityVersionSummary, error) {
	query := GetCustomEntityVersionSummariesByCustomEntityIdQuery{CustomEntityID: customEntityID}
	return cqs.ExecuteQuery(ctx, r.queries, query, opt)
}

func (r *customEntityRepository) SearchCustomEntitySummaries(ctx context.Context, query SearchCustomEntitySummariesQuery, opt cqs.ExecutionOption) (PagedQueryResult[CustomEntitySummary], error) {
	return cqs.ExecuteQuery(ctx, r.queries, query, opt)
}

func (r *customEntityRepository) AddCustomEntity(ctx context.Context, command AddCustomEntityCommand, opt cqs.ExecutionOption) (int, error) {
	return cqs.ExecuteCommand(ctx, r.commands, command, opt)
}

// AddCustomEntityDraftVersion creates a draft from the latest published
// version. It fails when nothing is published or a draft already exists.
func (r *customEntityRepository) AddCustomEntityDraftVersion(ctx context.Context, command AddCustomEntityDraftVersionCommand, opt cqs.ExecutionOption) (int, error) {
	return cqs.ExecuteCommand(ctx, r.commands, command, opt)
}

func (r *customEntityRepository) AddCustomEntityVersionPageBlock(ctx context.Context, command AddCustomEntityVersionPageBlockCommand, opt cqs.ExecutionOption) (int, error) {
	return cqs.ExecuteCommand(ctx, r.commands, command, opt)
}

func (r *customEntityRepository) DeleteCustomEntity(ctx context.Context, customEntityID int, opt cqs.ExecutionOption) error {
	return r.run(ctx, DeleteCustomEntityCommand{CustomEntityID: customEntityID}, opt)
}

func (r *customEntityRepository) DeleteCustomEntityDraftVersion(ctx context.Context, customEntityID int, opt cqs.ExecutionOption) error {
	return r.run(ctx, DeleteCustomEntityDraftVersionCommand{CustomEntityID: customEntityID}, opt)
}

func (r *customEntityRepository) DeleteCustomEntityVersionPageBlock(ctx context.Context, pageBlockID int, opt cqs.ExecutionOption) error {
	return r.run(ctx, DeleteCustomEntityVersionPageBlockCommand{CustomEntityVersionPageBlockID: pageBlockID}, opt)
}

func (r *customEntityRepository) EnsureCustomEntityDefinitionExists(ctx context.Context, definitionCode string, opt cqs.ExecutionOption) error {
	return r.run(ctx, EnsureCustomEntityDefinitionExistsCommand{CustomEntityDefinitionCode: definitionCode}, opt)
}

func (r *customEntityRepository) MoveCustomEntityVersionPageBlock(ctx context.Context, command MoveCustomEntityVersionPageBlockCommand, opt cqs.ExecutionOption) error {
	return r.run(ctx, command, opt)
}

func (r *customEntityRepository) PublishCustomEntity(ctx context.Context, command PublishCustomEntityCommand, opt cqs.ExecutionOption) error {
	return r.run(ctx, command, opt)
}

func (r *customEntityRepository) ReOrderCustomEntities(ctx context.Context, command ReOrderCustomEntitiesCommand, opt cqs.ExecutionOption) error {
	return r.run(ctx, command, opt)
}

func (r *customEntityRepository) UnPublishCustomEntity(ctx context.Context, customEntityID int, opt cqs.ExecutionOption) error {
	return r.run(ctx, UnPublishCustomEntityCommand{CustomEntityID: customEntityID}, opt)
}

func (r *customEntityRepository) UpdateCustomEntityDraftVersion(ctx context.Context, command UpdateCustomEntityDraftVersionCommand, opt cqs.ExecutionOption) error {
	return r.run(ctx, command, opt)
}

func (r *customEntityRepository) UpdateCustomEntityOrderingPosition(ctx context.Context, command UpdateCustomEntityOrderingPositionCommand, opt cqs.ExecutionOption) error {
	return r.run(ctx, command, opt)
}

func (r *customEntityRepository) UpdateCustomEntityUrl(ctx context.Context, command UpdateCustomEntityUrlCommand, opt cqs.ExecutionOption) error {
	return r.run(ctx, command, opt)
}

func (r *customEntityRepository) UpdateCustomEntityVersionPageBlock(ctx context.Context, command UpdateCustomEntityVersionPageBlockCommand, opt cqs.ExecutionOption) error {
	return r.run(ctx, command, opt)
}

func (r *customEntityRepository) run(ctx context.Context, command cqs.Command[cqs.Void], opt cqs.ExecutionOption) error {
	_, err := cqs.ExecuteCommand(ctx, r.commands, command, opt)
	return err
}
