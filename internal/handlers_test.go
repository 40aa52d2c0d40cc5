package internal

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/markchipman/cofoundry"
	"github.com/markchipman/cofoundry/cqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const blogPostSchema = `{
	"type": "object",
	"properties": {
		"body": {"type": "string"},
		"rating": {"type": "integer"}
	},
	"required": ["body"]
}`

func testDefinitions() []cofoundry.CustomEntityDefinition {
	return []cofoundry.CustomEntityDefinition{
		{
			Code:                   "BLGPST",
			Name:                   "Blog Post",
			NamePlural:             "Blog Posts",
			ForceUrlSlugUniqueness: true,
			AutoGenerateUrlSlug:    true,
			DataModelSchema:        json.RawMessage(blogPostSchema),
		},
		{
			Code:       "FAQITM",
			Name:       "FAQ",
			NamePlural: "FAQs",
			HasLocale:  true,
			Ordering:   cofoundry.OrderingFull,
		},
		{
			Code:       "PRTNER",
			Name:       "Partner",
			NamePlural: "Partners",
			Ordering:   cofoundry.OrderingPartial,
		},
	}
}

type fixture struct {
	repo   cofoundry.CustomEntityRepository
	store  *MemoryStore
	system cqs.ExecutionOption
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	defs, err := NewDefinitionRegistry(testDefinitions()...)
	require.NoError(t, err)

	store := NewMemoryStore()
	reg := cqs.NewRegistry()
	require.NoError(t, NewHandlers(store, defs, nil).Register(reg))
	require.NoError(t, reg.Validate(cofoundry.RequiredQueries(), cofoundry.RequiredCommands()))

	provider := cqs.RequestContextProvider{Now: func() time.Time { return testNow }}
	return &fixture{
		repo:   cofoundry.NewCustomEntityRepository(cqs.NewQueryExecutor(reg, provider), cqs.NewCommandExecutor(reg, provider)),
		store:  store,
		system: cqs.Explicit(cqs.SystemExecutionContext(testNow)),
	}
}

func userWith(t *testing.T, perms ...string) *cqs.ExecutionContext {
	t.Helper()
	set := make([]cqs.Permission, 0, len(perms))
	for _, s := range perms {
		p, err := cqs.ParsePermission(s)
		require.NoError(t, err)
		set = append(set, p)
	}
	return cqs.NewExecutionContext(&cqs.User{ID: 7, Username: "editor"}, cqs.NewPermissionSet(set...), testNow)
}

func (f *fixture) addBlogPost(t *testing.T, title string, publish bool) int {
	t.Helper()
	id, err := f.repo.AddCustomEntity(context.Background(), cofoundry.AddCustomEntityCommand{
		CustomEntityDefinitionCode: "BLGPST",
		Title:                      title,
		Model:                      json.RawMessage(`{"body":"hello"}`),
		Publish:                    publish,
	}, f.system)
	require.NoError(t, err)
	return id
}

func (f *fixture) add(t *testing.T, code, slug string) int {
	t.Helper()
	id, err := f.repo.AddCustomEntity(context.Background(), cofoundry.AddCustomEntityCommand{
		CustomEntityDefinitionCode: code,
		Title:                      slug,
		UrlSlug:                    slug,
	}, f.system)
	require.NoError(t, err)
	return id
}

func fieldNames(err error) []string {
	var names []string
	for _, fe := range cofoundry.FieldErrors(err) {
		names = append(names, fe.Field)
	}
	return names
}

func TestHandlersCoverEveryRequest(t *testing.T) {
	defs, err := NewDefinitionRegistry(testDefinitions()...)
	require.NoError(t, err)
	reg := cqs.NewRegistry()
	require.NoError(t, NewHandlers(NewMemoryStore(), defs, nil).Register(reg))

	assert.NoError(t, reg.Validate(cofoundry.AllQueries(), cofoundry.AllCommands()))
	assert.Len(t, reg.Names(cqs.KindQuery), len(cofoundry.AllQueries()))
	assert.Len(t, reg.Names(cqs.KindCommand), len(cofoundry.AllCommands()))

	err = NewHandlers(NewMemoryStore(), defs, nil).Register(reg)
	var dup *cqs.DuplicateHandlerError
	assert.ErrorAs(t, err, &dup)
}

func TestDefinitionQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	all, err := f.repo.GetAllCustomEntityDefinitionMicroSummaries(ctx, cqs.Ambient())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Blog Post", all[0].Name)
	assert.Equal(t, "FAQ", all[1].Name)
	assert.Equal(t, "Partner", all[2].Name)

	one, err := f.repo.GetCustomEntityDefinitionMicroSummaryByCode(ctx, "blgpst", cqs.Ambient())
	require.NoError(t, err)
	assert.Equal(t, "BLGPST", one.CustomEntityDefinitionCode)
	assert.True(t, one.ForceUrlSlugUniqueness)

	_, err = f.repo.GetCustomEntityDefinitionMicroSummaryByCode(ctx, "NOPE00", cqs.Ambient())
	assert.True(t, cofoundry.IsNotFoundError(err))

	schema, err := f.repo.GetCustomEntityDataModelSchemaDetailsByCode(ctx, "BLGPST", cqs.Ambient())
	require.NoError(t, err)
	assert.Equal(t, []string{"body", "rating"}, schema.Properties)
	assert.Equal(t, []string{"body"}, schema.Required)

	empty, err := f.repo.GetCustomEntityDataModelSchemaDetailsByCode(ctx, "FAQITM", cqs.Ambient())
	require.NoError(t, err)
	assert.Empty(t, empty.Properties)
	assert.JSONEq(t, `{}`, string(empty.Schema))
}

func TestAddCustomEntityCreatesDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.addBlogPost(t, "Hello World!", false)

	details, err := f.repo.GetCustomEntityDetailsById(ctx, id, f.system)
	require.NoError(t, err)
	assert.Equal(t, "hello-world", details.UrlSlug)
	assert.Equal(t, cofoundry.PublishStatusUnpublished, details.PublishStatus)
	assert.True(t, details.HasDraftVersion)
	assert.False(t, details.HasPublishedVersion)
	assert.Equal(t, cofoundry.WorkFlowStatusDraft, details.LatestVersion.WorkFlowStatus)
	assert.JSONEq(t, `{"body":"hello"}`, string(details.LatestVersion.Model))
	assert.Equal(t, testNow, details.AuditData.CreateDate)

	exists, err := f.store.DefinitionExists(ctx, "BLGPST")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAddCustomEntityValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		cmd    cofoundry.AddCustomEntityCommand
		fields []string
	}{
		{
			name:   "missing title",
			cmd:    cofoundry.AddCustomEntityCommand{CustomEntityDefinitionCode: "PRTNER", UrlSlug: "acme"},
			fields: []string{"title"},
		},
		{
			name:   "missing slug without auto generation",
			cmd:    cofoundry.AddCustomEntityCommand{CustomEntityDefinitionCode: "PRTNER", Title: "Acme"},
			fields: []string{"urlSlug"},
		},
		{
			name:   "bad slug",
			cmd:    cofoundry.AddCustomEntityCommand{CustomEntityDefinitionCode: "PRTNER", Title: "Acme", UrlSlug: "acme inc!"},
			fields: []string{"urlSlug"},
		},
		{
			name:   "locale on definition without locales",
			cmd:    cofoundry.AddCustomEntityCommand{CustomEntityDefinitionCode: "PRTNER", Title: "Acme", UrlSlug: "acme", LocaleID: 2},
			fields: []string{"localeId"},
		},
		{
			name: "missing required model property",
			cmd: cofoundry.AddCustomEntityCommand{
				CustomEntityDefinitionCode: "BLGPST",
				Title:                      "Post",
				Model:                      json.RawMessage(`{"rating":5}`),
			},
			fields: []string{"model.body"},
		},
		{
			name: "model of the wrong type",
			cmd: cofoundry.AddCustomEntityCommand{
				CustomEntityDefinitionCode: "BLGPST",
				Title:                      "Post",
				Model:                      json.RawMessage(`{"body":5}`),
			},
			fields: []string{"model"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.repo.AddCustomEntity(ctx, tt.cmd, f.system)
			require.Error(t, err)
			assert.True(t, cofoundry.IsValidationError(err), "got %v", err)
			assert.Equal(t, tt.fields, fieldNames(err))
		})
	}

	_, err := f.repo.AddCustomEntity(ctx, cofoundry.AddCustomEntityCommand{CustomEntityDefinitionCode: "NOPE00", Title: "x"}, f.system)
	assert.True(t, cofoundry.IsNotFoundError(err))

	entities, err := f.store.ListEntities(ctx, EntityFilter{})
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestAddCustomEntityRequiresUniqueSlug(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.addBlogPost(t, "Same Title", false)
	_, err := f.repo.AddCustomEntity(ctx, cofoundry.AddCustomEntityCommand{
		CustomEntityDefinitionCode: "BLGPST",
		Title:                      "Same title",
		Model:                      json.RawMessage(`{"body":"again"}`),
	}, f.system)
	require.Error(t, err)
	assert.True(t, cofoundry.IsBusinessRuleViolation(err))
	assert.Equal(t, []string{"urlSlug"}, fieldNames(err))

	unique, err := f.repo.IsCustomEntityPathUnique(ctx, cofoundry.IsCustomEntityPathUniqueQuery{
		CustomEntityDefinitionCode: "BLGPST",
		UrlSlug:                    "same-title",
	}, cqs.Ambient())
	require.NoError(t, err)
	assert.False(t, unique)

	unique, err = f.repo.IsCustomEntityPathUnique(ctx, cofoundry.IsCustomEntityPathUniqueQuery{
		CustomEntityDefinitionCode: "BLGPST",
		CustomEntityID:             first,
		UrlSlug:                    "same-title",
	}, cqs.Ambient())
	require.NoError(t, err)
	assert.True(t, unique)

	// Partners do not force uniqueness.
	f.add(t, "PRTNER", "acme")
	f.add(t, "PRTNER", "acme")
}

func TestPermissionsAndElevation(t *testing.T) {
	f := newFixture(t)
	cmd := cofoundry.AddCustomEntityCommand{CustomEntityDefinitionCode: "PRTNER", Title: "Acme", UrlSlug: "acme"}

	anonymous := context.Background()
	_, err := f.repo.AddCustomEntity(anonymous, cmd, cqs.Ambient())
	assert.True(t, cofoundry.IsPermissionDeniedError(err))

	reader := userWith(t, "PRTNER:read")
	_, err = f.repo.AddCustomEntity(anonymous, cmd, cqs.Explicit(reader))
	assert.True(t, cofoundry.IsPermissionDeniedError(err))

	// The ambient identity is ignored when an explicit context is supplied.
	ambientEditor := cqs.WithExecutionContext(anonymous, userWith(t, "PRTNER:create"))
	id, err := f.repo.AddCustomEntity(ambientEditor, cmd, cqs.Ambient())
	require.NoError(t, err)
	_, err = f.repo.GetCustomEntityDetailsById(ambientEditor, id, cqs.Explicit(reader))
	require.NoError(t, err)
	_, err = f.repo.GetCustomEntityDetailsById(ambientEditor, id, cqs.Ambient())
	assert.True(t, cofoundry.IsPermissionDeniedError(err))

	_, err = f.repo.AddCustomEntity(anonymous, cofoundry.AddCustomEntityCommand{
		CustomEntityDefinitionCode: "PRTNER", Title: "Beta", UrlSlug: "beta", Publish: true,
	}, cqs.Explicit(userWith(t, "PRTNER:create")))
	assert.True(t, cofoundry.IsPermissionDeniedError(err), "publishing needs the publish permission")

	details, err := f.repo.GetCustomEntityDetailsById(anonymous, id, f.system)
	require.NoError(t, err)
	assert.Equal(t, 7, details.AuditData.CreatorID)
}

func TestPublishLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.addBlogPost(t, "Lifecycle", false)

	_, err := f.repo.AddCustomEntityDraftVersion(ctx, cofoundry.AddCustomEntityDraftVersionCommand{CustomEntityID: id}, f.system)
	assert.True(t, cofoundry.IsBusinessRuleViolation(err), "a draft already exists")

	require.NoError(t, f.repo.PublishCustomEntity(ctx, cofoundry.PublishCustomEntityCommand{CustomEntityID: id}, f.system))
	err = f.repo.PublishCustomEntity(ctx, cofoundry.PublishCustomEntityCommand{CustomEntityID: id}, f.system)
	assert.True(t, cofoundry.IsBusinessRuleViolation(err), "already published")

	draftID, err := f.repo.AddCustomEntityDraftVersion(ctx, cofoundry.AddCustomEntityDraftVersionCommand{CustomEntityID: id}, f.system)
	require.NoError(t, err)
	_, err = f.repo.AddCustomEntityDraftVersion(ctx, cofoundry.AddCustomEntityDraftVersionCommand{CustomEntityID: id}, f.system)
	var ruleErr *cofoundry.Error
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, cofoundry.ErrCodeDraftAlreadyExists, ruleErr.Code)

	versions, err := f.repo.GetCustomEntityVersionSummariesByCustomEntityId(ctx, id, f.system)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, draftID, versions[0].CustomEntityVersionID)
	assert.Equal(t, cofoundry.WorkFlowStatusDraft, versions[0].WorkFlowStatus)
	assert.True(t, versions[1].IsLatestPublished)

	require.NoError(t, f.repo.UnPublishCustomEntity(ctx, id, f.system))
	require.NoError(t, f.repo.UnPublishCustomEntity(ctx, id, f.system))
	require.NoError(t, f.repo.DeleteCustomEntityDraftVersion(ctx, id, f.system))

	// Republishing an unpublished entity without a draft reuses the published version.
	require.NoError(t, f.repo.PublishCustomEntity(ctx, cofoundry.PublishCustomEntityCommand{CustomEntityID: id}, f.system))
	summary, err := f.repo.GetCustomEntityRenderSummaryById(ctx, cofoundry.GetCustomEntityRenderSummaryByIdQuery{CustomEntityID: id}, cqs.Ambient())
	require.NoError(t, err)
	assert.Equal(t, "Lifecycle", summary.Title)
	assert.Equal(t, cofoundry.PublishStatusPublished, summary.PublishStatus)
}

func TestDeleteDraftVersionRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draftOnly := f.addBlogPost(t, "Only draft", false)
	err := f.repo.DeleteCustomEntityDraftVersion(ctx, draftOnly, f.system)
	var ruleErr *cofoundry.Error
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, cofoundry.ErrCodeOnlyVersion, ruleErr.Code)

	published := f.addBlogPost(t, "Published", true)
	require.NoError(t, f.repo.DeleteCustomEntityDraftVersion(ctx, published, f.system), "no draft is a no-op")

	_, err = f.repo.AddCustomEntityDraftVersion(ctx, cofoundry.AddCustomEntityDraftVersionCommand{CustomEntityID: published}, f.system)
	require.NoError(t, err)
	require.NoError(t, f.repo.DeleteCustomEntityDraftVersion(ctx, published, f.system))

	versions, err := f.repo.GetCustomEntityVersionSummariesByCustomEntityId(ctx, published, f.system)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, cofoundry.WorkFlowStatusPublished, versions[0].WorkFlowStatus)

	err = f.repo.DeleteCustomEntityDraftVersion(ctx, 999, f.system)
	assert.True(t, cofoundry.IsNotFoundError(err))
}

func TestDeleteThenFetchIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.addBlogPost(t, "Short lived", true)

	require.NoError(t, f.repo.DeleteCustomEntity(ctx, id, f.system))
	require.NoError(t, f.repo.DeleteCustomEntity(ctx, id, f.system), "deleting twice is a no-op")

	_, err := f.repo.GetCustomEntityDetailsById(ctx, id, f.system)
	assert.True(t, cofoundry.IsNotFoundError(err))
	_, err = f.repo.GetCustomEntityRenderDetailsById(ctx, cofoundry.GetCustomEntityRenderDetailsByIdQuery{CustomEntityID: id}, f.system)
	assert.True(t, cofoundry.IsNotFoundError(err))

	versions, err := f.store.ListVersions(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestRenderVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draft := f.addBlogPost(t, "Unreleased", false)
	live := f.addBlogPost(t, "Released", true)

	future := testNow.Add(24 * time.Hour)
	scheduled, err := f.repo.AddCustomEntity(ctx, cofoundry.AddCustomEntityCommand{
		CustomEntityDefinitionCode: "BLGPST",
		Title:                      "Scheduled",
		Model:                      json.RawMessage(`{"body":"soon"}`),
		Publish:                    true,
		PublishDate:                &future,
	}, f.system)
	require.NoError(t, err)

	_, err = f.repo.GetCustomEntityRenderSummaryById(ctx, cofoundry.GetCustomEntityRenderSummaryByIdQuery{CustomEntityID: draft}, cqs.Ambient())
	assert.True(t, cofoundry.IsNotFoundError(err))
	_, err = f.repo.GetCustomEntityRenderSummaryById(ctx, cofoundry.GetCustomEntityRenderSummaryByIdQuery{CustomEntityID: scheduled}, cqs.Ambient())
	assert.True(t, cofoundry.IsNotFoundError(err))

	_, err = f.repo.GetCustomEntityRenderSummaryById(ctx, cofoundry.GetCustomEntityRenderSummaryByIdQuery{
		CustomEntityID: draft, PublishStatus: cofoundry.PublishStatusQueryDraft,
	}, cqs.Ambient())
	assert.True(t, cofoundry.IsPermissionDeniedError(err))

	preview, err := f.repo.GetCustomEntityRenderSummaryById(ctx, cofoundry.GetCustomEntityRenderSummaryByIdQuery{
		CustomEntityID: draft, PublishStatus: cofoundry.PublishStatusQueryDraft,
	}, cqs.Explicit(userWith(t, "BLGPST:read")))
	require.NoError(t, err)
	assert.Equal(t, cofoundry.WorkFlowStatusDraft, preview.WorkFlowStatus)

	byRange, err := f.repo.GetCustomEntityRenderSummariesByIdRange(ctx, cofoundry.GetCustomEntityRenderSummariesByIdRangeQuery{
		CustomEntityIDs: []int{draft, live, scheduled, 999},
	}, cqs.Ambient())
	require.NoError(t, err)
	assert.Len(t, byRange, 1)
	assert.Contains(t, byRange, live)

	latest, err := f.repo.GetCustomEntityRenderSummariesByDefinitionCode(ctx, cofoundry.GetCustomEntityRenderSummariesByDefinitionCodeQuery{
		CustomEntityDefinitionCode: "BLGPST", PublishStatus: cofoundry.PublishStatusQueryLatest,
	}, f.system)
	require.NoError(t, err)
	assert.Len(t, latest, 3)
}

func TestUpdateDraftVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.addBlogPost(t, "Original", true)

	err := f.repo.UpdateCustomEntityDraftVersion(ctx, cofoundry.UpdateCustomEntityDraftVersionCommand{
		CustomEntityDefinitionCode: "BLGPST",
		CustomEntityID:             id,
		Title:                      "Edited",
		Model:                      json.RawMessage(`{"rating":3}`),
	}, f.system)
	assert.Equal(t, []string{"model.body"}, fieldNames(err))

	err = f.repo.UpdateCustomEntityDraftVersion(ctx, cofoundry.UpdateCustomEntityDraftVersionCommand{
		CustomEntityDefinitionCode: "FAQITM",
		CustomEntityID:             id,
		Title:                      "Edited",
	}, f.system)
	assert.Equal(t, []string{"customEntityDefinitionCode"}, fieldNames(err))

	require.NoError(t, f.repo.UpdateCustomEntityDraftVersion(ctx, cofoundry.UpdateCustomEntityDraftVersionCommand{
		CustomEntityDefinitionCode: "BLGPST",
		CustomEntityID:             id,
		Title:                      "Edited",
		Model:                      json.RawMessage(`{"body":"new body"}`),
	}, f.system))

	published, err := f.repo.GetCustomEntityRenderSummaryById(ctx, cofoundry.GetCustomEntityRenderSummaryByIdQuery{CustomEntityID: id}, cqs.Ambient())
	require.NoError(t, err)
	assert.Equal(t, "Original", published.Title)

	require.NoError(t, f.repo.UpdateCustomEntityDraftVersion(ctx, cofoundry.UpdateCustomEntityDraftVersionCommand{
		CustomEntityID: id,
		Title:          "Edited again",
		Model:          json.RawMessage(`{"body":"final"}`),
		Publish:        true,
	}, f.system))

	published, err = f.repo.GetCustomEntityRenderSummaryById(ctx, cofoundry.GetCustomEntityRenderSummaryByIdQuery{CustomEntityID: id}, cqs.Ambient())
	require.NoError(t, err)
	assert.Equal(t, "Edited again", published.Title)
	assert.JSONEq(t, `{"body":"final"}`, string(published.Model))

	versions, err := f.repo.GetCustomEntityVersionSummariesByCustomEntityId(ctx, id, f.system)
	require.NoError(t, err)
	assert.Len(t, versions, 2)
}

func TestUpdateDraftVersionAuthorizesBeforeValidating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.addBlogPost(t, "Guarded", true)

	err := f.repo.UpdateCustomEntityDraftVersion(ctx, cofoundry.UpdateCustomEntityDraftVersionCommand{
		CustomEntityID: id,
		Title:          "",
	}, cqs.Explicit(userWith(t, "BLGPST:read")))
	assert.True(t, cofoundry.IsPermissionDeniedError(err), "%v", err)

	err = f.repo.UpdateCustomEntityDraftVersion(ctx, cofoundry.UpdateCustomEntityDraftVersionCommand{
		CustomEntityID: id,
		Title:          "",
	}, cqs.Explicit(userWith(t, "BLGPST:update")))
	assert.Equal(t, []string{"title"}, fieldNames(err))
}

func TestAddDraftVersionWithoutPublishedSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// an entity whose versions were removed below the command layer
	var id int
	require.NoError(t, f.store.WithTx(ctx, func(w Writer) error {
		var err error
		id, err = w.InsertEntity(ctx, EntityRecord{
			DefinitionCode: "BLGPST",
			UrlSlug:        "orphan",
			PublishStatus:  cofoundry.PublishStatusUnpublished,
			CreateDate:     testNow,
		})
		return err
	}))

	_, err := f.repo.AddCustomEntityDraftVersion(ctx, cofoundry.AddCustomEntityDraftVersionCommand{CustomEntityID: id}, f.system)
	var ruleErr *cofoundry.Error
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, cofoundry.ErrCodeNoPublishedVersion, ruleErr.Code)
}

func TestUpdateCustomEntityUrl(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addBlogPost(t, "First", true)
	f.addBlogPost(t, "Second", true)

	err := f.repo.UpdateCustomEntityUrl(ctx, cofoundry.UpdateCustomEntityUrlCommand{CustomEntityID: a, UrlSlug: "second"}, f.system)
	assert.True(t, cofoundry.IsBusinessRuleViolation(err))

	require.NoError(t, f.repo.UpdateCustomEntityUrl(ctx, cofoundry.UpdateCustomEntityUrlCommand{CustomEntityID: a, UrlSlug: "Renamed"}, f.system))
	route, err := f.repo.GetCustomEntityRouteByPath(ctx, cofoundry.GetCustomEntityRouteByPathQuery{
		CustomEntityDefinitionCode: "BLGPST", UrlSlug: "renamed",
	}, cqs.Ambient())
	require.NoError(t, err)
	assert.Equal(t, a, route.CustomEntityID)

	err = f.repo.UpdateCustomEntityUrl(ctx, cofoundry.UpdateCustomEntityUrlCommand{CustomEntityID: 999, UrlSlug: "x"}, f.system)
	assert.True(t, cofoundry.IsNotFoundError(err))
}

func TestRoutes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.addBlogPost(t, "Routed Post", true)

	byID, err := f.repo.GetCustomEntityRouteByPath(ctx, cofoundry.GetCustomEntityRouteByPathQuery{
		CustomEntityDefinitionCode: "BLGPST", CustomEntityID: id,
	}, cqs.Ambient())
	require.NoError(t, err)
	assert.Equal(t, "routed-post", byID.UrlSlug)
	assert.Equal(t, "Routed Post", byID.Title)
	assert.False(t, byID.HasDraftVersion())

	_, err = f.repo.GetCustomEntityRouteByPath(ctx, cofoundry.GetCustomEntityRouteByPathQuery{
		CustomEntityDefinitionCode: "FAQITM", CustomEntityID: id,
	}, cqs.Ambient())
	assert.True(t, cofoundry.IsNotFoundError(err), "id belongs to another definition")

	rules, err := f.repo.GetAllCustomEntityRoutingRules(ctx, cqs.Ambient())
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "{Id}/{UrlSlug}", rules[0].RouteFormat())

	rule, err := f.repo.GetCustomEntityRoutingRuleByRouteFormat(ctx, "{UrlSlug}", cqs.Ambient())
	require.NoError(t, err)
	query, ok := rule.ExtractRoutingQuery("/Routed-Post", "BLGPST")
	require.True(t, ok)
	route, err := f.repo.GetCustomEntityRouteByPath(ctx, query, cqs.Ambient())
	require.NoError(t, err)
	assert.Equal(t, id, route.CustomEntityID)
	assert.True(t, rule.MatchesRule("/routed-post", route))

	_, err = f.repo.GetCustomEntityRoutingRuleByRouteFormat(ctx, "{Year}/{UrlSlug}", cqs.Ambient())
	assert.True(t, cofoundry.IsNotFoundError(err))
}

func TestReOrderCustomEntities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.add(t, "FAQITM", "a")
	b := f.add(t, "FAQITM", "b")
	c := f.add(t, "FAQITM", "c")

	routeIDs := func(code string) []int {
		routes, err := f.repo.GetCustomEntityRoutesByDefinitionCode(ctx, code, cqs.Ambient())
		require.NoError(t, err)
		ids := make([]int, len(routes))
		for i, r := range routes {
			ids[i] = r.CustomEntityID
		}
		return ids
	}
	assert.Equal(t, []int{a, b, c}, routeIDs("FAQITM"))

	err := f.repo.ReOrderCustomEntities(ctx, cofoundry.ReOrderCustomEntitiesCommand{
		CustomEntityDefinitionCode: "FAQITM", OrderedCustomEntityIDs: []int{c, a},
	}, f.system)
	assert.True(t, cofoundry.IsValidationError(err), "full ordering needs every entity")

	require.NoError(t, f.repo.ReOrderCustomEntities(ctx, cofoundry.ReOrderCustomEntitiesCommand{
		CustomEntityDefinitionCode: "FAQITM", OrderedCustomEntityIDs: []int{c, a, b},
	}, f.system))
	assert.Equal(t, []int{c, a, b}, routeIDs("FAQITM"))

	one := 1
	require.NoError(t, f.repo.UpdateCustomEntityOrderingPosition(ctx, cofoundry.UpdateCustomEntityOrderingPositionCommand{
		CustomEntityID: b, OrderingPosition: &one,
	}, f.system))
	assert.Equal(t, []int{b, c, a}, routeIDs("FAQITM"))

	err = f.repo.UpdateCustomEntityOrderingPosition(ctx, cofoundry.UpdateCustomEntityOrderingPositionCommand{CustomEntityID: b}, f.system)
	assert.Equal(t, []string{"orderingPosition"}, fieldNames(err))

	p1 := f.add(t, "PRTNER", "p1")
	p2 := f.add(t, "PRTNER", "p2")
	p3 := f.add(t, "PRTNER", "p3")
	require.NoError(t, f.repo.ReOrderCustomEntities(ctx, cofoundry.ReOrderCustomEntitiesCommand{
		CustomEntityDefinitionCode: "PRTNER", OrderedCustomEntityIDs: []int{p3, p1},
	}, f.system))
	assert.Equal(t, []int{p3, p1, p2}, routeIDs("PRTNER"))

	require.NoError(t, f.repo.UpdateCustomEntityOrderingPosition(ctx, cofoundry.UpdateCustomEntityOrderingPositionCommand{CustomEntityID: p3}, f.system))
	summaries, err := f.repo.GetCustomEntitySummariesByIdRange(ctx, []int{p1, p2, p3}, f.system)
	require.NoError(t, err)
	require.NotNil(t, summaries[p1].Ordering)
	assert.Equal(t, 1, *summaries[p1].Ordering)
	assert.Nil(t, summaries[p3].Ordering)

	blog := f.addBlogPost(t, "Unordered", false)
	err = f.repo.ReOrderCustomEntities(ctx, cofoundry.ReOrderCustomEntitiesCommand{
		CustomEntityDefinitionCode: "BLGPST", OrderedCustomEntityIDs: []int{blog},
	}, f.system)
	var ruleErr *cofoundry.Error
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, cofoundry.ErrCodeOrderingNotSupported, ruleErr.Code)
}

func TestPageBlocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.addBlogPost(t, "With blocks", false)

	details, err := f.repo.GetCustomEntityDetailsById(ctx, id, f.system)
	require.NoError(t, err)
	versionID := details.LatestVersion.CustomEntityVersionID

	addBlock := func(mode cofoundry.PageBlockInsertMode, adjacent int) int {
		blockID, err := f.repo.AddCustomEntityVersionPageBlock(ctx, cofoundry.AddCustomEntityVersionPageBlockCommand{
			CustomEntityVersionID:  versionID,
			RegionName:             "body",
			BlockTypeCode:          "RichText",
			Model:                  json.RawMessage(`{"text":"x"}`),
			InsertMode:             mode,
			AdjacentVersionBlockID: adjacent,
		}, f.system)
		require.NoError(t, err)
		return blockID
	}
	blockOrder := func() []int {
		details, err := f.repo.GetCustomEntityDetailsById(ctx, id, f.system)
		require.NoError(t, err)
		require.Len(t, details.LatestVersion.Regions, 1)
		var ids []int
		for i, b := range details.LatestVersion.Regions[0].Blocks {
			assert.Equal(t, i+1, b.Ordering)
			ids = append(ids, b.CustomEntityVersionPageBlockID)
		}
		return ids
	}

	a := addBlock("", 0)
	b := addBlock(cofoundry.InsertModeLast, 0)
	c := addBlock(cofoundry.InsertModeFirst, 0)
	d := addBlock(cofoundry.InsertModeAfterItem, a)
	e := addBlock(cofoundry.InsertModeBeforeItem, c)
	assert.Equal(t, []int{e, c, a, d, b}, blockOrder())

	_, err = f.repo.AddCustomEntityVersionPageBlock(ctx, cofoundry.AddCustomEntityVersionPageBlockCommand{
		CustomEntityVersionID: versionID, InsertMode: cofoundry.InsertModeAfterItem,
	}, f.system)
	assert.ElementsMatch(t, []string{"regionName", "blockTypeCode", "adjacentVersionBlockId"}, fieldNames(err))

	require.NoError(t, f.repo.MoveCustomEntityVersionPageBlock(ctx, cofoundry.MoveCustomEntityVersionPageBlockCommand{
		CustomEntityVersionPageBlockID: e, Direction: cofoundry.MoveUp,
	}, f.system))
	assert.Equal(t, []int{e, c, a, d, b}, blockOrder(), "moving the first block up is a no-op")

	require.NoError(t, f.repo.MoveCustomEntityVersionPageBlock(ctx, cofoundry.MoveCustomEntityVersionPageBlockCommand{
		CustomEntityVersionPageBlockID: e, Direction: cofoundry.MoveDown,
	}, f.system))
	assert.Equal(t, []int{c, e, a, d, b}, blockOrder())

	require.NoError(t, f.repo.DeleteCustomEntityVersionPageBlock(ctx, a, f.system))
	require.NoError(t, f.repo.DeleteCustomEntityVersionPageBlock(ctx, a, f.system))
	assert.Equal(t, []int{c, e, d, b}, blockOrder())

	require.NoError(t, f.repo.UpdateCustomEntityVersionPageBlock(ctx, cofoundry.UpdateCustomEntityVersionPageBlockCommand{
		CustomEntityVersionPageBlockID: c, BlockTypeCode: "Image", Model: json.RawMessage(`{"src":"a.png"}`),
	}, f.system))

	require.NoError(t, f.repo.PublishCustomEntity(ctx, cofoundry.PublishCustomEntityCommand{CustomEntityID: id}, f.system))
	_, err = f.repo.AddCustomEntityVersionPageBlock(ctx, cofoundry.AddCustomEntityVersionPageBlockCommand{
		CustomEntityVersionID: versionID, RegionName: "body", BlockTypeCode: "RichText",
	}, f.system)
	var ruleErr *cofoundry.Error
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, cofoundry.ErrCodeVersionNotDraft, ruleErr.Code)

	rendered, err := f.repo.GetCustomEntityRenderDetailsById(ctx, cofoundry.GetCustomEntityRenderDetailsByIdQuery{CustomEntityID: id}, cqs.Ambient())
	require.NoError(t, err)
	require.Len(t, rendered.Regions, 1)
	require.Len(t, rendered.Regions[0].Blocks, 4)
	assert.Equal(t, "Image", rendered.Regions[0].Blocks[0].BlockTypeCode)

	block, err := f.repo.GetCustomEntityVersionPageBlockRenderDetailsById(ctx, cofoundry.GetCustomEntityVersionPageBlockRenderDetailsByIdQuery{
		CustomEntityVersionPageBlockID: c,
	}, cqs.Ambient())
	require.NoError(t, err)
	assert.JSONEq(t, `{"src":"a.png"}`, string(block.Model))

	draftID, err := f.repo.AddCustomEntityDraftVersion(ctx, cofoundry.AddCustomEntityDraftVersionCommand{CustomEntityID: id}, f.system)
	require.NoError(t, err)
	copied := blockOrder()
	assert.Len(t, copied, 4)
	assert.NotContains(t, copied, c, "draft blocks are copies")

	copiedBlock, err := f.repo.GetCustomEntityVersionPageBlockRenderDetailsById(ctx, cofoundry.GetCustomEntityVersionPageBlockRenderDetailsByIdQuery{
		CustomEntityVersionPageBlockID: copied[0],
	}, cqs.Ambient())
	assert.True(t, cofoundry.IsNotFoundError(err), "draft blocks are not public")
	assert.Zero(t, copiedBlock.CustomEntityVersionPageBlockID)
	assert.NotEqual(t, versionID, draftID)
}

func TestSearchRenderSummaries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addBlogPost(t, "Charlie", true)
	f.addBlogPost(t, "alpha", true)
	f.addBlogPost(t, "Bravo", true)
	f.addBlogPost(t, "Delta draft", false)

	query := cofoundry.SearchCustomEntityRenderSummariesQuery{
		PagingParameters:           cofoundry.PagingParameters{PageNumber: 1, PageSize: 2},
		CustomEntityDefinitionCode: "BLGPST",
		SortBy:                     cofoundry.SortTitle,
	}
	page, err := f.repo.SearchCustomEntityRenderSummaries(ctx, query, cqs.Ambient())
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalItems)
	assert.Equal(t, 2, page.PageCount)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "alpha", page.Items[0].Title)
	assert.Equal(t, "Bravo", page.Items[1].Title)
	assert.False(t, page.IsLastPage())

	query.PageNumber = 2
	page, err = f.repo.SearchCustomEntityRenderSummaries(ctx, query, cqs.Ambient())
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Charlie", page.Items[0].Title)
	assert.True(t, page.IsLastPage())

	query.PageNumber = 1
	query.SortDirection = cofoundry.SortDescending
	page, err = f.repo.SearchCustomEntityRenderSummaries(ctx, query, cqs.Ambient())
	require.NoError(t, err)
	assert.Equal(t, "Charlie", page.Items[0].Title)

	query.PagingParameters = cofoundry.PagingParameters{PageNumber: math.MaxInt / 10, PageSize: 20}
	page, err = f.repo.SearchCustomEntityRenderSummaries(ctx, query, cqs.Ambient())
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 3, page.TotalItems)

	admin, err := f.repo.SearchCustomEntitySummaries(ctx, cofoundry.SearchCustomEntitySummariesQuery{
		CustomEntityDefinitionCode: "BLGPST",
		Text:                       "DRAFT",
	}, cqs.Explicit(userWith(t, "BLGPST:read")))
	require.NoError(t, err)
	require.Len(t, admin.Items, 1)
	assert.Equal(t, "Delta draft", admin.Items[0].Title)
	assert.Equal(t, 20, admin.PageSize)

	_, err = f.repo.SearchCustomEntitySummaries(ctx, cofoundry.SearchCustomEntitySummariesQuery{CustomEntityDefinitionCode: "BLGPST"}, cqs.Ambient())
	assert.True(t, cofoundry.IsPermissionDeniedError(err))
}

func TestEnsureCustomEntityDefinitionExists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.repo.EnsureCustomEntityDefinitionExists(ctx, "faqitm", cqs.Ambient()))
	require.NoError(t, f.repo.EnsureCustomEntityDefinitionExists(ctx, "FAQITM", cqs.Ambient()))
	exists, err := f.store.DefinitionExists(ctx, "FAQITM")
	require.NoError(t, err)
	assert.True(t, exists)

	err = f.repo.EnsureCustomEntityDefinitionExists(ctx, "NOPE00", cqs.Ambient())
	assert.True(t, cofoundry.IsNotFoundError(err))
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Hello World!":         "hello-world",
		"  leading and trail ": "leading-and-trail",
		"Café au lait":         "caf-au-lait",
		"a--b__c":              "a-b-c",
		"!!!":                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}
