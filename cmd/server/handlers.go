package main

import (
	"fmt"
	"net/http"

	"github.com/markchipman/cofoundry"
	"github.com/markchipman/cofoundry/cqs"
)

// Every handler runs with the ambient context built by withExecutionContext.
var ambient = cqs.Ambient()

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, data any, err error) {
	if err != nil {
		writeRepositoryError(w, r, err)
		return
	}
	if data == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeSuccess(w, status, data)
}

func (s *Server) done(w http.ResponseWriter, r *http.Request, err error) {
	s.respond(w, r, http.StatusNoContent, nil, err)
}

// handleHealth handles GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, fmt.Sprintf("unhealthy: %v", err))
			return
		}
	}
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ============================================================================
// Definitions
// ============================================================================

// handleListDefinitions handles GET /api/v1/definitions
func (s *Server) handleListDefinitions(w http.ResponseWriter, r *http.Request) {
	res, err := s.repo.GetAllCustomEntityDefinitionMicroSummaries(r.Context(), ambient)
	s.respond(w, r, http.StatusOK, res, err)
}

// handleGetDefinition handles GET /api/v1/definitions/{code}
func (s *Server) handleGetDefinition(w http.ResponseWriter, r *http.Request) {
	res, err := s.repo.GetCustomEntityDefinitionMicroSummaryByCode(r.Context(), r.PathValue("code"), ambient)
	s.respond(w, r, http.StatusOK, res, err)
}

// handleGetDataModelSchema handles GET /api/v1/definitions/{code}/schema
func (s *Server) handleGetDataModelSchema(w http.ResponseWriter, r *http.Request) {
	res, err := s.repo.GetCustomEntityDataModelSchemaDetailsByCode(r.Context(), r.PathValue("code"), ambient)
	s.respond(w, r, http.StatusOK, res, err)
}

// handleEnsureDefinition handles POST /api/v1/definitions/{code}/ensure
func (s *Server) handleEnsureDefinition(w http.ResponseWriter, r *http.Request) {
	s.done(w, r, s.repo.EnsureCustomEntityDefinitionExists(r.Context(), r.PathValue("code"), ambient))
}

// handleRoutesByDefinition handles GET /api/v1/definitions/{code}/routes
func (s *Server) handleRoutesByDefinition(w http.ResponseWriter, r *http.Request) {
	res, err := s.repo.GetCustomEntityRoutesByDefinitionCode(r.Context(), r.PathValue("code"), ambient)
	s.respond(w, r, http.StatusOK, res, err)
}

// handleRenderSummariesByDefinition handles GET /api/v1/definitions/{code}/entities?status=&locale=
func (s *Server) handleRenderSummariesByDefinition(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status, err := parsePublishStatus(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	locale, err := parseOptionalInt(q, "locale")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.repo.GetCustomEntityRenderSummariesByDefinitionCode(r.Context(), cofoundry.GetCustomEntityRenderSummariesByDefinitionCodeQuery{
		CustomEntityDefinitionCode: r.PathValue("code"),
		PublishStatus:              status,
		LocaleID:                   locale,
	}, ambient)
	s.respond(w, r, http.StatusOK, res, err)
}

// handleSearchRenderSummaries handles GET /api/v1/definitions/{code}/search?page=&pageSize=&status=&sortBy=&sortDirection=&locale=
func (s *Server) handleSearchRenderSummaries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	paging, err := parsePaging(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status, err := parsePublishStatus(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sortBy, dir, err := parseSort(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	locale, err := parseOptionalInt(q, "locale")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.repo.SearchCustomEntityRenderSummaries(r.Context(), cofoundry.SearchCustomEntityRenderSummariesQuery{
		PagingParameters:           paging,
		CustomEntityDefinitionCode: r.PathValue("code"),
		PublishStatus:              status,
		SortBy:                     sortBy,
		SortDirection:              dir,
		LocaleID:                   locale,
	}, ambient)
	s.respond(w, r, http.StatusOK, res, err)
}

// handleReOrder handles PUT /api/v1/definitions/{code}/ordering
func (s *Server) handleReOrder(w http.ResponseWriter, r *http.Request) {
	var cmd cofoundry.ReOrderCustomEntitiesCommand
	if err := readJSONBody(r, &cmd); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
		return
	}
	cmd.CustomEntityDefinitionCode = r.PathValue("code")
	s.done(w, r, s.repo.ReOrderCustomEntities(r.Context(), cmd, ambient))
}

// ============================================================================
// Routing
// ============================================================================

// handleRoutingRules handles GET /api/v1/routing-rules[?routeFormat=]
func (s *Server) handleRoutingRules(w http.ResponseWriter, r *http.Request) {
	if format := r.URL.Query().Get("routeFormat"); format != "" {
		res, err := s.repo.GetCustomEntityRoutingRuleByRouteFormat(r.Context(), format, ambient)
		s.respond(w, r, http.StatusOK, res, err)
		return
	}
	res, err := s.repo.GetAllCustomEntityRoutingRules(r.Context(), ambient)
	s.respond(w, r, http.StatusOK, res, err)
}

// handleRouteByPath handles GET /api/v1/route?code=&id=&slug=&locale=
func (s *Server) handleRouteByPath(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, err := parseInt(q, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	locale, err := parseInt(q, "locale")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.repo.GetCustomEntityRouteByPath(r.Context(), cofoundry.GetCustomEntityRouteByPathQuery{
		CustomEntityDefinitionCode: q.Get("code"),
		CustomEntityID:             id,
		UrlSlug:                    q.Get("slug"),
		LocaleID:                   locale,
	}, ambient)
	s.respond(w, r, http.StatusOK, res, err)
}

// handlePathUnique handles GET /api/v1/path-unique?code=&slug=&locale=&excludeId=
func (s *Server) handlePathUnique(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	exclude, err := parseInt(q, "excludeId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	locale, err := parseInt(q, "locale")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	unique, err := s.repo.IsCustomEntityPathUnique(r.Context(), cofoundry.IsCustomEntityPathUniqueQuery{
		CustomEntityDefinitionCode: q.Get("code"),
		CustomEntityID:             exclude,
		UrlSlug:                    q.Get("slug"),
		LocaleID:                   locale,
	}, ambient)
	s.respond(w, r, http.StatusOK, map[string]bool{"isUnique": unique}, err)
}

// ============================================================================
// Rendering
// ============================================================================

// handleRenderSummariesByIDs handles GET /api/v1/entities?ids=1,2&status=
func (s *Server) handleRenderSummariesByIDs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ids, err := parseIDList(q.Get("ids"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status, err := parsePublishStatus(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.repo.GetCustomEntityRenderSummariesByIdRange(r.Context(), cofoundry.GetCustomEntityRenderSummariesByIdRangeQuery{
		CustomEntityIDs: ids,
		PublishStatus:   status,
	}, ambient)
	s.respond(w, r, http.StatusOK, res, err)
}

// handleRenderSummary handles GET /api/v1/entities/{id}?status=
func (s *Server) handleRenderSummary(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status, err := parsePublishStatus(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.repo.GetCustomEntityRenderSummaryById(r.Context(), cofoundry.GetCustomEntityRenderSummaryByIdQuery{
		CustomEntityID: id,
		PublishStatus:  status,
	}, ambient)
	s.respond(w, r, http.StatusOK, res, err)
}

// handleRenderDetails handles GET /api/v1/entities/{id}/render?status=
func (s *Server) handleRenderDetails(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status, err := parsePublishStatus(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.repo.GetCustomEntityRenderDetailsById(r.Context(), cofoundry.GetCustomEntityRenderDetailsByIdQuery{
		CustomEntityID: id,
		PublishStatus:  status,
	}, ambient)
	s.respond(w, r, http.StatusOK, res, err)
}

// handlePageBlockRenderDetails handles GET /api/v1/page-blocks/{id}?status=
func (s *Server) handlePageBlockRenderDetails(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status, err := parsePublishStatus(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.repo.GetCustomEntityVersionPageBlockRenderDetailsById(r.Context(), cofoundry.GetCustomEntityVersionPageBlockRenderDetailsByIdQuery{
		CustomEntityVersionPageBlockID: id,
		PublishStatus:                  status,
	}, ambient)
	s.respond(w, r, http.StatusOK, res, err)
}

// ============================================================================
// Administration
// ============================================================================

// handleSummariesByIDs handles GET /api/v1/admin/entities?ids=1,2
func (s *Server) handleSummariesByIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDList(r.URL.Query().Get("ids"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.repo.GetCustomEntitySummariesByIdRange(r.Context(), ids, ambient)
	s.respond(w, r, http.StatusOK, res, err)
}

// handleDetails handles GET /api/v1/admin/entities/{id}
func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.repo.GetCustomEntityDetailsById(r.Context(), id, ambient)
	s.respond(w, r, http.StatusOK, res, err)
}

// handleVersionSummaries handles GET /api/v1/admin/entities/{id}/versions
func (s *Server) handleVersionSummaries(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.repo.GetCustomEntityVersionSummariesByCustomEntityId(r.Context(), id, ambient)
	s.respond(w, r, http.StatusOK, res, err)
}

// handleSearchSummaries handles GET /api/v1/admin/definitions/{code}/search?text=&page=&pageSize=&locale=
func (s *Server) handleSearchSummaries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	paging, err := parsePaging(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	locale, err := parseOptionalInt(q, "locale")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.repo.SearchCustomEntitySummaries(r.Context(), cofoundry.SearchCustomEntitySummariesQuery{
		PagingParameters:           paging,
		CustomEntityDefinitionCode: r.PathValue("code"),
		Text:                       q.Get("text"),
		LocaleID:                   locale,
	}, ambient)
	s.respond(w, r, http.StatusOK, res, err)
}

// ============================================================================
// Commands
// ============================================================================

// handleAddEntity handles POST /api/v1/entities
func (s *Server) handleAddEntity(w http.ResponseWriter, r *http.Request) {
	var cmd cofoundry.AddCustomEntityCommand
	if err := readJSONBody(r, &cmd); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
		return
	}
	id, err := s.repo.AddCustomEntity(r.Context(), cmd, ambient)
	s.respond(w, r, http.StatusCreated, map[string]int{"customEntityId": id}, err)
}

// handleDeleteEntity handles DELETE /api/v1/entities/{id}
func (s *Server) handleDeleteEntity(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.done(w, r, s.repo.DeleteCustomEntity(r.Context(), id, ambient))
}

// handleUpdateUrl handles PUT /api/v1/entities/{id}/url
func (s *Server) handleUpdateUrl(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var cmd cofoundry.UpdateCustomEntityUrlCommand
	if err := readJSONBody(r, &cmd); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
		return
	}
	cmd.CustomEntityID = id
	s.done(w, r, s.repo.UpdateCustomEntityUrl(r.Context(), cmd, ambient))
}

// handleUpdateOrderingPosition handles PUT /api/v1/entities/{id}/ordering-position
func (s *Server) handleUpdateOrderingPosition(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var cmd cofoundry.UpdateCustomEntityOrderingPositionCommand
	if err := readJSONBody(r, &cmd); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
		return
	}
	cmd.CustomEntityID = id
	s.done(w, r, s.repo.UpdateCustomEntityOrderingPosition(r.Context(), cmd, ambient))
}

// handlePublish handles POST /api/v1/entities/{id}/publish with an optional
// {"publishDate": ...} body
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var cmd cofoundry.PublishCustomEntityCommand
	if r.ContentLength != 0 {
		if err := readJSONBody(r, &cmd); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
			return
		}
	}
	cmd.CustomEntityID = id
	s.done(w, r, s.repo.PublishCustomEntity(r.Context(), cmd, ambient))
}

// handleUnPublish handles POST /api/v1/entities/{id}/unpublish
func (s *Server) handleUnPublish(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.done(w, r, s.repo.UnPublishCustomEntity(r.Context(), id, ambient))
}

// handleAddDraft handles POST /api/v1/entities/{id}/draft
func (s *Server) handleAddDraft(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	versionID, err := s.repo.AddCustomEntityDraftVersion(r.Context(), cofoundry.AddCustomEntityDraftVersionCommand{CustomEntityID: id}, ambient)
	s.respond(w, r, http.StatusCreated, map[string]int{"customEntityVersionId": versionID}, err)
}

// handleUpdateDraft handles PUT /api/v1/entities/{id}/draft
func (s *Server) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var cmd cofoundry.UpdateCustomEntityDraftVersionCommand
	if err := readJSONBody(r, &cmd); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
		return
	}
	cmd.CustomEntityID = id
	s.done(w, r, s.repo.UpdateCustomEntityDraftVersion(r.Context(), cmd, ambient))
}

// handleDeleteDraft handles DELETE /api/v1/entities/{id}/draft
func (s *Server) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.done(w, r, s.repo.DeleteCustomEntityDraftVersion(r.Context(), id, ambient))
}

// handleAddPageBlock handles POST /api/v1/versions/{id}/page-blocks
func (s *Server) handleAddPageBlock(w http.ResponseWriter, r *http.Request) {
	versionID, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var cmd cofoundry.AddCustomEntityVersionPageBlockCommand
	if err := readJSONBody(r, &cmd); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
		return
	}
	cmd.CustomEntityVersionID = versionID
	id, err := s.repo.AddCustomEntityVersionPageBlock(r.Context(), cmd, ambient)
	s.respond(w, r, http.StatusCreated, map[string]int{"customEntityVersionPageBlockId": id}, err)
}

// handleUpdatePageBlock handles PUT /api/v1/page-blocks/{id}
func (s *Server) handleUpdatePageBlock(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var cmd cofoundry.UpdateCustomEntityVersionPageBlockCommand
	if err := readJSONBody(r, &cmd); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
		return
	}
	cmd.CustomEntityVersionPageBlockID = id
	s.done(w, r, s.repo.UpdateCustomEntityVersionPageBlock(r.Context(), cmd, ambient))
}

// handleMovePageBlock handles POST /api/v1/page-blocks/{id}/move
func (s *Server) handleMovePageBlock(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var cmd cofoundry.MoveCustomEntityVersionPageBlockCommand
	if err := readJSONBody(r, &cmd); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
		return
	}
	cmd.CustomEntityVersionPageBlockID = id
	s.done(w, r, s.repo.MoveCustomEntityVersionPageBlock(r.Context(), cmd, ambient))
}

// handleDeletePageBlock handles DELETE /api/v1/page-blocks/{id}
func (s *Server) handleDeletePageBlock(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.done(w, r, s.repo.DeleteCustomEntityVersionPageBlock(r.Context(), id, ambient))
}
