package cofoundry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/markchipman/cofoundry"
	"github.com/markchipman/cofoundry/cqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingExecutor captures every dispatched request and answers with a
// canned result.
type recordingExecutor struct {
	requests []any
	options  []cqs.ExecutionOption
	result   any
	err      error
}

func (e *recordingExecutor) ExecuteQuery(ctx context.Context, q cqs.NamedQuery, opt cqs.ExecutionOption) (any, error) {
	e.requests = append(e.requests, q)
	e.options = append(e.options, opt)
	return e.result, e.err
}

func (e *recordingExecutor) ExecuteCommand(ctx context.Context, c cqs.NamedCommand, opt cqs.ExecutionOption) (any, error) {
	e.requests = append(e.requests, c)
	e.options = append(e.options, opt)
	return e.result, e.err
}

func TestRepositoryBuildsRequestsFromPrimitives(t *testing.T) {
	ctx := context.Background()
	ex := &recordingExecutor{}
	repo := cofoundry.NewCustomEntityRepository(ex, ex)
	system := cqs.Explicit(cqs.SystemExecutionContext(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))

	_, _ = repo.GetCustomEntityDefinitionMicroSummaryByCode(ctx, "BLGPST", cqs.Ambient())
	_, _ = repo.GetCustomEntitySummariesByIdRange(ctx, []int{3, 4}, system)
	_, _ = repo.GetCustomEntityRoutingRuleByRouteFormat(ctx, "{UrlSlug}", cqs.Ambient())
	require.NoError(t, repo.DeleteCustomEntity(ctx, 7, system))
	require.NoError(t, repo.EnsureCustomEntityDefinitionExists(ctx, "FAQITM", system))
	require.NoError(t, repo.UnPublishCustomEntity(ctx, 9, cqs.Ambient()))

	assert.Equal(t, []any{
		cofoundry.GetCustomEntityDefinitionMicroSummaryByCodeQuery{CustomEntityDefinitionCode: "BLGPST"},
		cofoundry.GetCustomEntitySummariesByIdRangeQuery{CustomEntityIDs: []int{3, 4}},
		cofoundry.GetCustomEntityRoutingRuleByRouteFormatQuery{RouteFormat: "{UrlSlug}"},
		cofoundry.DeleteCustomEntityCommand{CustomEntityID: 7},
		cofoundry.EnsureCustomEntityDefinitionExistsCommand{CustomEntityDefinitionCode: "FAQITM"},
		cofoundry.UnPublishCustomEntityCommand{CustomEntityID: 9},
	}, ex.requests)

	assert.Equal(t, []bool{false, true, false, true, true, false}, explicitFlags(ex.options))
}

func explicitFlags(opts []cqs.ExecutionOption) []bool {
	out := make([]bool, len(opts))
	for i, o := range opts {
		out[i] = o.IsExplicit()
	}
	return out
}

func TestRepositoryReturnsResultsByValue(t *testing.T) {
	ctx := context.Background()

	ex := &recordingExecutor{result: cofoundry.CustomEntityDetails{CustomEntityID: 5, UrlSlug: "five"}}
	repo := cofoundry.NewCustomEntityRepository(ex, ex)
	details, err := repo.GetCustomEntityDetailsById(ctx, 5, cqs.Ambient())
	require.NoError(t, err)
	assert.Equal(t, "five", details.UrlSlug)
	assert.Equal(t, cofoundry.GetCustomEntityDetailsByIdQuery{CustomEntityID: 5}, ex.requests[0])

	ex = &recordingExecutor{result: 42}
	repo = cofoundry.NewCustomEntityRepository(ex, ex)
	id, err := repo.AddCustomEntity(ctx, cofoundry.AddCustomEntityCommand{CustomEntityDefinitionCode: "BLGPST", Title: "x"}, cqs.Ambient())
	require.NoError(t, err)
	assert.Equal(t, 42, id)
}

func TestRepositoryPropagatesHandlerErrorsUnchanged(t *testing.T) {
	boom := cofoundry.NewBusinessRuleViolation(cofoundry.ErrCodeOnlyVersion, "cannot delete the only version")
	ex := &recordingExecutor{err: boom}
	repo := cofoundry.NewCustomEntityRepository(ex, ex)

	err := repo.DeleteCustomEntityDraftVersion(context.Background(), 1, cqs.Ambient())
	assert.Same(t, boom, err)

	_, err = repo.GetCustomEntityRenderSummaryById(context.Background(), cofoundry.GetCustomEntityRenderSummaryByIdQuery{CustomEntityID: 1}, cqs.Ambient())
	assert.True(t, errors.Is(err, boom))
}

func TestRepositoryRejectsMismatchedResultType(t *testing.T) {
	ex := &recordingExecutor{result: "not a summary"}
	repo := cofoundry.NewCustomEntityRepository(ex, ex)

	_, err := repo.GetCustomEntityRenderSummaryById(context.Background(), cofoundry.GetCustomEntityRenderSummaryByIdQuery{CustomEntityID: 1}, cqs.Ambient())
	var rte *cqs.ResultTypeError
	assert.ErrorAs(t, err, &rte)
}

func TestRequiredRequestsHaveUniqueNames(t *testing.T) {
	seen := map[string]bool{}
	for _, q := range cofoundry.RequiredQueries() {
		assert.False(t, seen[q.QueryName()], q.QueryName())
		seen[q.QueryName()] = true
	}
	assert.Len(t, seen, 18)

	seen = map[string]bool{}
	for _, c := range cofoundry.RequiredCommands() {
		assert.False(t, seen[c.CommandName()], c.CommandName())
		seen[c.CommandName()] = true
	}
	assert.Len(t, seen, 15)
}
