package cofoundry

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// CustomEntityOrdering controls whether entities of a definition can be
// manually ordered.
type CustomEntityOrdering string

const (
	OrderingNone    CustomEntityOrdering = "none"
	OrderingPartial CustomEntityOrdering = "partial"
	OrderingFull    CustomEntityOrdering = "full"
)

// WorkFlowStatus is the lifecycle state of a version.
type WorkFlowStatus string

const (
	WorkFlowStatusDraft     WorkFlowStatus = "draft"
	WorkFlowStatusPublished WorkFlowStatus = "published"
)

// PublishStatus is the visibility of an entity as a whole.
type PublishStatus string

const (
	PublishStatusUnpublished PublishStatus = "unpublished"
	PublishStatusPublished   PublishStatus = "published"
)

// PublishStatusQuery selects which version a render query reads.
type PublishStatusQuery string

const (
	// PublishStatusQueryPublished reads the latest published version of a
	// published entity.
	PublishStatusQueryPublished PublishStatusQuery = "published"
	// PublishStatusQueryPreferPublished reads the latest published version,
	// falling back to the draft.
	PublishStatusQueryPreferPublished PublishStatusQuery = "preferPublished"
	// PublishStatusQueryDraft reads the draft, falling back to the latest
	// published version.
	PublishStatusQueryDraft PublishStatusQuery = "draft"
	// PublishStatusQueryLatest reads the newest version regardless of state.
	PublishStatusQueryLatest PublishStatusQuery = "latest"
)

// ParsePublishStatusQuery parses s case-insensitively. An empty string is
// PublishStatusQueryPublished.
func ParsePublishStatusQuery(s string) (PublishStatusQuery, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "published":
		return PublishStatusQueryPublished, true
	case "preferpublished":
		return PublishStatusQueryPreferPublished, true
	case "draft":
		return PublishStatusQueryDraft, true
	case "latest":
		return PublishStatusQueryLatest, true
	}
	return "", false
}

// OrDefault returns PublishStatusQueryPublished for the zero value.
func (q PublishStatusQuery) OrDefault() PublishStatusQuery {
	if q == "" {
		return PublishStatusQueryPublished
	}
	return q
}

// CustomEntityQuerySortType orders render summary searches.
type CustomEntityQuerySortType string

const (
	// SortNatural uses manual ordering when the definition supports it, then
	// newest first.
	SortNatural     CustomEntityQuerySortType = "natural"
	SortTitle       CustomEntityQuerySortType = "title"
	SortPublishDate CustomEntityQuerySortType = "publishDate"
	SortCreateDate  CustomEntityQuerySortType = "createDate"
)

// SortDirection is ascending or descending.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// PageBlockInsertMode positions a new block within its region.
type PageBlockInsertMode string

const (
	InsertModeLast       PageBlockInsertMode = "last"
	InsertModeFirst      PageBlockInsertMode = "first"
	InsertModeBeforeItem PageBlockInsertMode = "beforeItem"
	InsertModeAfterItem  PageBlockInsertMode = "afterItem"
)

// MoveDirection moves a block one place within its region.
type MoveDirection string

const (
	MoveUp   MoveDirection = "up"
	MoveDown MoveDirection = "down"
)

// AuditData records who created a record and when.
type AuditData struct {
	CreateDate time.Time `json:"createDate"`
	CreatorID  int       `json:"creatorId"`
}

// CustomEntityDefinitionMicroSummary is the smallest view of a definition.
type CustomEntityDefinitionMicroSummary struct {
	CustomEntityDefinitionCode string `json:"customEntityDefinitionCode"`
	Name                       string `json:"name"`
	NamePlural                 string `json:"namePlural"`
	Description                string `json:"description,omitempty"`
	ForceUrlSlugUniqueness     bool   `json:"forceUrlSlugUniqueness"`
}

// CustomEntityDataModelSchema describes the data model of a definition.
type CustomEntityDataModelSchema struct {
	CustomEntityDefinitionCode string          `json:"customEntityDefinitionCode"`
	Name                       string          `json:"name"`
	Properties                 []string        `json:"properties"`
	Required                   []string        `json:"required,omitempty"`
	Schema                     json.RawMessage `json:"schema"`
}

// CustomEntityVersionRoute is the routing view of one version.
type CustomEntityVersionRoute struct {
	VersionID      int            `json:"versionId"`
	Title          string         `json:"title"`
	WorkFlowStatus WorkFlowStatus `json:"workFlowStatus"`
	CreateDate     time.Time      `json:"createDate"`
}

// CustomEntityRoute is the routing view of an entity and its versions,
// newest version first.
type CustomEntityRoute struct {
	CustomEntityDefinitionCode string                     `json:"customEntityDefinitionCode"`
	CustomEntityID             int                        `json:"customEntityId"`
	UrlSlug                    string                     `json:"urlSlug"`
	LocaleID                   int                        `json:"localeId,omitempty"`
	Title                      string                     `json:"title"`
	Ordering                   *int                       `json:"ordering,omitempty"`
	PublishStatus              PublishStatus              `json:"publishStatus"`
	PublishDate                *time.Time                 `json:"publishDate,omitempty"`
	Versions                   []CustomEntityVersionRoute `json:"versions"`
}

// HasDraftVersion reports whether any version is a draft.
func (r CustomEntityRoute) HasDraftVersion() bool {
	for _, v := range r.Versions {
		if v.WorkFlowStatus == WorkFlowStatusDraft {
			return true
		}
	}
	return false
}

// CustomEntityVersionPageBlockRenderDetails is a single block of content in a
// version region.
type CustomEntityVersionPageBlockRenderDetails struct {
	CustomEntityVersionPageBlockID int             `json:"customEntityVersionPageBlockId"`
	CustomEntityVersionID          int             `json:"customEntityVersionId"`
	RegionName                     string          `json:"regionName"`
	BlockTypeCode                  string          `json:"blockTypeCode"`
	Ordering                       int             `json:"ordering"`
	Model                          json.RawMessage `json:"model,omitempty"`
}

// CustomEntityPageRegion groups blocks by region in display order.
type CustomEntityPageRegion struct {
	Name   string                                      `json:"name"`
	Blocks []CustomEntityVersionPageBlockRenderDetails `json:"blocks"`
}

// CustomEntityVersionDetails is the admin view of one version.
type CustomEntityVersionDetails struct {
	CustomEntityVersionID int                      `json:"customEntityVersionId"`
	Title                 string                   `json:"title"`
	WorkFlowStatus        WorkFlowStatus           `json:"workFlowStatus"`
	Model                 json.RawMessage          `json:"model,omitempty"`
	Regions               []CustomEntityPageRegion `json:"regions"`
	AuditData             AuditData                `json:"auditData"`
}

// CustomEntityDetails is the admin view of an entity and its latest version.
type CustomEntityDetails struct {
	CustomEntityID             int                        `json:"customEntityId"`
	CustomEntityDefinitionCode string                     `json:"customEntityDefinitionCode"`
	LocaleID                   int                        `json:"localeId,omitempty"`
	UrlSlug                    string                     `json:"urlSlug"`
	PublishStatus              PublishStatus              `json:"publishStatus"`
	PublishDate                *time.Time                 `json:"publishDate,omitempty"`
	Ordering                   *int                       `json:"ordering,omitempty"`
	HasDraftVersion            bool                       `json:"hasDraftVersion"`
	HasPublishedVersion        bool                       `json:"hasPublishedVersion"`
	LatestVersion              CustomEntityVersionDetails `json:"latestVersion"`
	AuditData                  AuditData                  `json:"auditData"`
}

// CustomEntitySummary is the admin list view of an entity.
type CustomEntitySummary struct {
	CustomEntityID             int           `json:"customEntityId"`
	CustomEntityDefinitionCode string        `json:"customEntityDefinitionCode"`
	LocaleID                   int           `json:"localeId,omitempty"`
	UrlSlug                    string        `json:"urlSlug"`
	Title                      string        `json:"title"`
	PublishStatus              PublishStatus `json:"publishStatus"`
	PublishDate                *time.Time    `json:"publishDate,omitempty"`
	Ordering                   *int          `json:"ordering,omitempty"`
	HasDraftVersion            bool          `json:"hasDraftVersion"`
	HasPublishedVersion        bool          `json:"hasPublishedVersion"`
	AuditData                  AuditData     `json:"auditData"`
}

// CustomEntityRenderSummary is the public list view of an entity for one
// resolved version.
type CustomEntityRenderSummary struct {
	CustomEntityID             int             `json:"customEntityId"`
	CustomEntityVersionID      int             `json:"customEntityVersionId"`
	CustomEntityDefinitionCode string          `json:"customEntityDefinitionCode"`
	LocaleID                   int             `json:"localeId,omitempty"`
	UrlSlug                    string          `json:"urlSlug"`
	Title                      string          `json:"title"`
	PublishStatus              PublishStatus   `json:"publishStatus"`
	PublishDate                *time.Time      `json:"publishDate,omitempty"`
	WorkFlowStatus             WorkFlowStatus  `json:"workFlowStatus"`
	Ordering                   *int            `json:"ordering,omitempty"`
	Model                      json.RawMessage `json:"model,omitempty"`
	CreateDate                 time.Time       `json:"createDate"`
}

// CustomEntityRenderDetails is a render summary with its page regions.
type CustomEntityRenderDetails struct {
	CustomEntityRenderSummary
	Regions []CustomEntityPageRegion `json:"regions"`
}

// CustomEntityVersionSummary is the admin list view of one version.
type CustomEntityVersionSummary struct {
	CustomEntityVersionID int            `json:"customEntityVersionId"`
	Title                 string         `json:"title"`
	WorkFlowStatus        WorkFlowStatus `json:"workFlowStatus"`
	IsLatestPublished     bool           `json:"isLatestPublishedVersion"`
	AuditData             AuditData      `json:"auditData"`
}

// PagingParameters requests one page of results. Page numbers start at 1.
type PagingParameters struct {
	PageNumber int `json:"pageNumber"`
	PageSize   int `json:"pageSize"`
}

// Normalize fills defaults and clamps the page size to max.
func (p PagingParameters) Normalize(defaultSize, max int) PagingParameters {
	if p.PageNumber < 1 {
		p.PageNumber = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultSize
	}
	if max > 0 && p.PageSize > max {
		p.PageSize = max
	}
	if p.PageSize > 0 && p.PageNumber > math.MaxInt/p.PageSize {
		p.PageNumber = math.MaxInt / p.PageSize
	}
	return p
}

// Offset is the number of items before the page. It saturates at
// math.MaxInt instead of overflowing.
func (p PagingParameters) Offset() int {
	if p.PageNumber <= 1 || p.PageSize <= 0 {
		return 0
	}
	if p.PageNumber-1 > math.MaxInt/p.PageSize {
		return math.MaxInt
	}
	return (p.PageNumber - 1) * p.PageSize
}

// PagedQueryResult is one page of a larger result set.
type PagedQueryResult[T any] struct {
	Items      []T `json:"items"`
	TotalItems int `json:"totalItems"`
	PageNumber int `json:"pageNumber"`
	PageSize   int `json:"pageSize"`
	PageCount  int `json:"pageCount"`
}

// NewPagedQueryResult slices all into the page described by p. p must be
// normalized.
func NewPagedQueryResult[T any](all []T, p PagingParameters) PagedQueryResult[T] {
	total := len(all)
	start := min(p.Offset(), total)
	end := start + min(max(p.PageSize, 0), total-start)
	items := make([]T, 0, end-start)
	items = append(items, all[start:end]...)

	pageCount := 0
	if p.PageSize > 0 {
		pageCount = (total + p.PageSize - 1) / p.PageSize
	}
	return PagedQueryResult[T]{
		Items:      items,
		TotalItems: total,
		PageNumber: p.PageNumber,
		PageSize:   p.PageSize,
		PageCount:  pageCount,
	}
}

// IsLastPage reports whether no further pages follow.
func (r PagedQueryResult[T]) IsLastPage() bool {
	return r.PageNumber >= r.PageCount
}
