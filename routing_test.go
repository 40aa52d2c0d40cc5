package cofoundry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdAndUrlSlugRoutingRule(t *testing.T) {
	rule := IdAndUrlSlugRoutingRule{}
	route := CustomEntityRoute{CustomEntityDefinitionCode: "BLGPST", CustomEntityID: 12, UrlSlug: "hello-world"}

	assert.Equal(t, "/blog/12/hello-world", rule.MakeUrl("/blog/", route))
	assert.True(t, rule.MatchesRule("12/hello-world", route))
	assert.True(t, rule.MatchesRule("/12/Hello-World/", route))
	assert.False(t, rule.MatchesRule("13/hello-world", route))
	assert.False(t, rule.MatchesRule("hello-world", route))

	q, ok := rule.ExtractRoutingQuery("12/anything", "BLGPST")
	assert.True(t, ok)
	assert.Equal(t, 12, q.CustomEntityID)
	assert.Equal(t, "BLGPST", q.CustomEntityDefinitionCode)

	_, ok = rule.ExtractRoutingQuery("abc/slug", "BLGPST")
	assert.False(t, ok)
	_, ok = rule.ExtractRoutingQuery("0/slug", "BLGPST")
	assert.False(t, ok)
}

func TestUrlSlugRoutingRule(t *testing.T) {
	rule := UrlSlugRoutingRule{}
	route := CustomEntityRoute{CustomEntityID: 12, UrlSlug: "hello-world"}

	assert.True(t, rule.RequiresUniqueUrlSlug())
	assert.Equal(t, "/hello-world", rule.MakeUrl("", route))
	assert.True(t, rule.MatchesRule("/hello-world", route))
	assert.False(t, rule.MatchesRule("12/hello-world", route))

	q, ok := rule.ExtractRoutingQuery("Hello-World", "BLGPST")
	assert.True(t, ok)
	assert.Equal(t, "hello-world", q.UrlSlug)
	assert.Zero(t, q.CustomEntityID)

	_, ok = rule.ExtractRoutingQuery("", "BLGPST")
	assert.False(t, ok)
}

func TestDefaultRoutingRulesOrderedByPriority(t *testing.T) {
	rules := DefaultRoutingRules()
	if assert.Len(t, rules, 2) {
		assert.Equal(t, "{Id}/{UrlSlug}", rules[0].RouteFormat())
		assert.Equal(t, "{UrlSlug}", rules[1].RouteFormat())
	}
}
