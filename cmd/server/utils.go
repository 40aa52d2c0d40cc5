package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/markchipman/cofoundry"
	"github.com/markchipman/cofoundry/cqs"
	"go.uber.org/zap"
)

const (
	headerUserID      = "X-User-ID"
	headerUsername    = "X-Username"
	headerPermissions = "X-Permissions"
)

// withExecutionContext builds the ambient execution context from trusted
// identity headers. Requests without X-User-ID are anonymous.
func withExecutionContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ec, err := executionContextFromHeaders(r.Header, time.Now().UTC())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(cqs.WithExecutionContext(r.Context(), ec)))
	})
}

func executionContextFromHeaders(h http.Header, now time.Time) (*cqs.ExecutionContext, error) {
	var perms []cqs.Permission
	for _, raw := range h.Values(headerPermissions) {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			p, err := cqs.ParsePermission(part)
			if err != nil {
				return nil, fmt.Errorf("invalid %s header: %w", headerPermissions, err)
			}
			perms = append(perms, p)
		}
	}

	var user *cqs.User
	if id := strings.TrimSpace(h.Get(headerUserID)); id != "" {
		n, err := strconv.Atoi(id)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid %s header: %q", headerUserID, id)
		}
		user = &cqs.User{ID: n, Username: h.Get(headerUsername)}
	}
	return cqs.NewExecutionContext(user, cqs.NewPermissionSet(perms...), now), nil
}

// parseID parses a positive integer path value
func parseID(r *http.Request, name string) (int, error) {
	raw := r.PathValue(name)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return id, nil
}

// parseIDList parses a comma-separated id list such as ids=1,2,3
func parseIDList(raw string) ([]int, error) {
	ids := []int{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseOptionalInt(q url.Values, key string) (*int, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return &n, nil
}

func parseInt(q url.Values, key string) (int, error) {
	n, err := parseOptionalInt(q, key)
	if err != nil || n == nil {
		return 0, err
	}
	return *n, nil
}

func parsePublishStatus(q url.Values) (cofoundry.PublishStatusQuery, error) {
	status, ok := cofoundry.ParsePublishStatusQuery(q.Get("status"))
	if !ok {
		return "", fmt.Errorf("invalid status: %q", q.Get("status"))
	}
	return status, nil
}

// parsePaging extracts page and pageSize; the handlers clamp the size
func parsePaging(q url.Values) (cofoundry.PagingParameters, error) {
	page, err := parseInt(q, "page")
	if err != nil {
		return cofoundry.PagingParameters{}, err
	}
	size, err := parseInt(q, "pageSize")
	if err != nil {
		return cofoundry.PagingParameters{}, err
	}
	return cofoundry.PagingParameters{PageNumber: page, PageSize: size}, nil
}

func parseSort(q url.Values) (cofoundry.CustomEntityQuerySortType, cofoundry.SortDirection, error) {
	sortBy := cofoundry.CustomEntityQuerySortType(q.Get("sortBy"))
	switch sortBy {
	case "", cofoundry.SortNatural, cofoundry.SortTitle, cofoundry.SortPublishDate, cofoundry.SortCreateDate:
	default:
		return "", "", fmt.Errorf("unsupported sortBy: %q", sortBy)
	}
	dir := cofoundry.SortDirection(strings.ToLower(q.Get("sortDirection")))
	switch dir {
	case "", cofoundry.SortAscending, cofoundry.SortDescending:
	default:
		return "", "", fmt.Errorf("unsupported sortDirection: %q", dir)
	}
	return sortBy, dir, nil
}

// APIResponse is the standard error response format
type APIResponse struct {
	Success bool                   `json:"success"`
	Data    any                    `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Code    string                 `json:"code,omitempty"`
	Fields  []cofoundry.FieldError `json:"fields,omitempty"`
}

// writeJSON writes JSON response to http.ResponseWriter
func writeJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, statusCode int, message string) error {
	return writeJSON(w, statusCode, APIResponse{
		Success: false,
		Error:   message,
	})
}

// writeSuccess writes a success response
func writeSuccess(w http.ResponseWriter, statusCode int, data any) error {
	return writeJSON(w, statusCode, data)
}

// statusFor maps the repository error taxonomy to an HTTP status
func statusFor(err error) int {
	switch {
	case cofoundry.IsValidationError(err):
		return http.StatusBadRequest
	case cofoundry.IsNotFoundError(err):
		return http.StatusNotFound
	case cofoundry.IsPermissionDeniedError(err):
		return http.StatusForbidden
	case cofoundry.IsBusinessRuleViolation(err):
		return http.StatusConflict
	case cqs.IsHandlerNotFound(err):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeRepositoryError writes err with its taxonomy code and field errors.
// Internal failures are logged and reported without detail.
func writeRepositoryError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zap.S().Errorw("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, status, "internal error")
		return
	}
	resp := APIResponse{Success: false, Error: err.Error()}
	var ce *cofoundry.Error
	if errors.As(err, &ce) {
		resp.Error = ce.Message
		resp.Code = ce.Code
		resp.Fields = ce.Fields
	}
	writeJSON(w, status, resp)
}

// readJSONBody reads and decodes JSON from request body
func readJSONBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
