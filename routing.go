package cofoundry

import (
	"sort"
	"strconv"
	"strings"
)

// CustomEntityRoutingRule maps a relative url to a custom entity and back. A
// page that lists custom entities is configured with one route format.
type CustomEntityRoutingRule interface {
	// RouteFormat is the token pattern, e.g. "{Id}/{UrlSlug}".
	RouteFormat() string
	// Priority orders rule evaluation, lowest first.
	Priority() int
	// RequiresUniqueUrlSlug reports whether the rule can only resolve
	// definitions that force unique url slugs.
	RequiresUniqueUrlSlug() bool
	// MatchesRule reports whether relativePath addresses route.
	MatchesRule(relativePath string, route CustomEntityRoute) bool
	// ExtractRoutingQuery builds a lookup query from relativePath.
	ExtractRoutingQuery(relativePath, definitionCode string) (GetCustomEntityRouteByPathQuery, bool)
	// MakeUrl builds the url of route below basePath.
	MakeUrl(basePath string, route CustomEntityRoute) string
}

// Routing rule priorities.
const (
	RoutingRulePriorityHigh   = 10
	RoutingRulePriorityNormal = 20
)

// IdAndUrlSlugRoutingRule resolves paths of the form "{Id}/{UrlSlug}". The id
// identifies the entity so slugs need not be unique.
type IdAndUrlSlugRoutingRule struct{}

func (IdAndUrlSlugRoutingRule) RouteFormat() string         { return "{Id}/{UrlSlug}" }
func (IdAndUrlSlugRoutingRule) Priority() int               { return RoutingRulePriorityHigh }
func (IdAndUrlSlugRoutingRule) RequiresUniqueUrlSlug() bool { return false }

func (r IdAndUrlSlugRoutingRule) MatchesRule(relativePath string, route CustomEntityRoute) bool {
	id, slug, ok := splitIdAndSlug(relativePath)
	return ok && id == route.CustomEntityID && strings.EqualFold(slug, route.UrlSlug)
}

func (r IdAndUrlSlugRoutingRule) ExtractRoutingQuery(relativePath, definitionCode string) (GetCustomEntityRouteByPathQuery, bool) {
	id, _, ok := splitIdAndSlug(relativePath)
	if !ok {
		return GetCustomEntityRouteByPathQuery{}, false
	}
	return GetCustomEntityRouteByPathQuery{
		CustomEntityDefinitionCode: definitionCode,
		CustomEntityID:             id,
	}, true
}

func (r IdAndUrlSlugRoutingRule) MakeUrl(basePath string, route CustomEntityRoute) string {
	return joinPath(basePath, strconv.Itoa(route.CustomEntityID), route.UrlSlug)
}

// UrlSlugRoutingRule resolves paths of the form "{UrlSlug}". It needs slugs to
// be unique within the definition.
type UrlSlugRoutingRule struct{}

func (UrlSlugRoutingRule) RouteFormat() string         { return "{UrlSlug}" }
func (UrlSlugRoutingRule) Priority() int               { return RoutingRulePriorityNormal }
func (UrlSlugRoutingRule) RequiresUniqueUrlSlug() bool { return true }

func (r UrlSlugRoutingRule) MatchesRule(relativePath string, route CustomEntityRoute) bool {
	slug, ok := singleSegment(relativePath)
	return ok && strings.EqualFold(slug, route.UrlSlug)
}

func (r UrlSlugRoutingRule) ExtractRoutingQuery(relativePath, definitionCode string) (GetCustomEntityRouteByPathQuery, bool) {
	slug, ok := singleSegment(relativePath)
	if !ok {
		return GetCustomEntityRouteByPathQuery{}, false
	}
	return GetCustomEntityRouteByPathQuery{
		CustomEntityDefinitionCode: definitionCode,
		UrlSlug:                    strings.ToLower(slug),
	}, true
}

func (r UrlSlugRoutingRule) MakeUrl(basePath string, route CustomEntityRoute) string {
	return joinPath(basePath, route.UrlSlug)
}

// DefaultRoutingRules returns the built-in rules ordered by priority.
func DefaultRoutingRules() []CustomEntityRoutingRule {
	rules := []CustomEntityRoutingRule{UrlSlugRoutingRule{}, IdAndUrlSlugRoutingRule{}}
	SortRoutingRules(rules)
	return rules
}

// SortRoutingRules orders rules by priority, then route format.
func SortRoutingRules(rules []CustomEntityRoutingRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority() != rules[j].Priority() {
			return rules[i].Priority() < rules[j].Priority()
		}
		return rules[i].RouteFormat() < rules[j].RouteFormat()
	})
}

func segments(relativePath string) []string {
	trimmed := strings.Trim(relativePath, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func splitIdAndSlug(relativePath string) (int, string, bool) {
	parts := segments(relativePath)
	if len(parts) != 2 || parts[1] == "" {
		return 0, "", false
	}
	id, err := strconv.Atoi(parts[0])
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, parts[1], true
}

func singleSegment(relativePath string) (string, bool) {
	parts := segments(relativePath)
	if len(parts) != 1 || parts[0] == "" {
		return "", false
	}
	return parts[0], true
}

func joinPath(base string, parts ...string) string {
	out := "/" + strings.Trim(base, "/")
	for _, p := range parts {
		if out != "/" {
			out += "/"
		}
		out += p
	}
	return out
}
