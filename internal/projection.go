package internal

import (
	"sort"
	"strings"
	"time"

	"github.com/markchipman/cofoundry"
)

// versionSet indexes the versions of one entity. Versions are ordered by id,
// so the newest is last.
type versionSet []VersionRecord

func (vs versionSet) draft() (VersionRecord, bool) {
	for i := len(vs) - 1; i >= 0; i-- {
		if vs[i].WorkFlowStatus == cofoundry.WorkFlowStatusDraft {
			return vs[i], true
		}
	}
	return VersionRecord{}, false
}

func (vs versionSet) latestPublished() (VersionRecord, bool) {
	for i := len(vs) - 1; i >= 0; i-- {
		if vs[i].WorkFlowStatus == cofoundry.WorkFlowStatusPublished {
			return vs[i], true
		}
	}
	return VersionRecord{}, false
}

func (vs versionSet) latest() (VersionRecord, bool) {
	if len(vs) == 0 {
		return VersionRecord{}, false
	}
	return vs[len(vs)-1], true
}

func sortVersions(vs []VersionRecord) {
	sort.Slice(vs, func(i, j int) bool { return vs[i].ID < vs[j].ID })
}

// groupVersions splits a ListVersions result by entity id.
func groupVersions(all []VersionRecord) map[int]versionSet {
	out := make(map[int]versionSet)
	for _, v := range all {
		out[v.EntityID] = append(out[v.EntityID], v)
	}
	for id := range out {
		sortVersions(out[id])
	}
	return out
}

// isLive reports whether a published entity is visible at now.
func isLive(e EntityRecord, now time.Time) bool {
	if e.PublishStatus != cofoundry.PublishStatusPublished {
		return false
	}
	return e.PublishDate == nil || !e.PublishDate.After(now)
}

// resolveVersion picks the version a render query reads.
func resolveVersion(e EntityRecord, vs versionSet, status cofoundry.PublishStatusQuery, now time.Time) (VersionRecord, bool) {
	switch status.OrDefault() {
	case cofoundry.PublishStatusQueryPreferPublished:
		if v, ok := vs.latestPublished(); ok {
			return v, true
		}
		return vs.draft()
	case cofoundry.PublishStatusQueryDraft:
		if v, ok := vs.draft(); ok {
			return v, true
		}
		return vs.latestPublished()
	case cofoundry.PublishStatusQueryLatest:
		return vs.latest()
	default:
		if !isLive(e, now) {
			return VersionRecord{}, false
		}
		return vs.latestPublished()
	}
}

// ============================================================================
// View builders
// ============================================================================

func toRenderSummary(e EntityRecord, v VersionRecord) cofoundry.CustomEntityRenderSummary {
	return cofoundry.CustomEntityRenderSummary{
		CustomEntityID:             e.ID,
		CustomEntityVersionID:      v.ID,
		CustomEntityDefinitionCode: e.DefinitionCode,
		LocaleID:                   e.LocaleID,
		UrlSlug:                    e.UrlSlug,
		Title:                      v.Title,
		PublishStatus:              e.PublishStatus,
		PublishDate:                e.PublishDate,
		WorkFlowStatus:             v.WorkFlowStatus,
		Ordering:                   e.Ordering,
		Model:                      v.Model,
		CreateDate:                 e.CreateDate,
	}
}

func toBlockRenderDetails(b PageBlockRecord) cofoundry.CustomEntityVersionPageBlockRenderDetails {
	return cofoundry.CustomEntityVersionPageBlockRenderDetails{
		CustomEntityVersionPageBlockID: b.ID,
		CustomEntityVersionID:          b.VersionID,
		RegionName:                     b.RegionName,
		BlockTypeCode:                  b.BlockTypeCode,
		Ordering:                       b.Ordering,
		Model:                          b.Model,
	}
}

// toRegions groups blocks by region name, regions sorted by name.
func toRegions(blocks []PageBlockRecord) []cofoundry.CustomEntityPageRegion {
	sorted := append([]PageBlockRecord(nil), blocks...)
	sortBlocks(sorted)
	regions := []cofoundry.CustomEntityPageRegion{}
	for _, b := range sorted {
		if n := len(regions); n == 0 || regions[n-1].Name != b.RegionName {
			regions = append(regions, cofoundry.CustomEntityPageRegion{Name: b.RegionName})
		}
		r := &regions[len(regions)-1]
		r.Blocks = append(r.Blocks, toBlockRenderDetails(b))
	}
	return regions
}

func toRoute(e EntityRecord, vs versionSet) cofoundry.CustomEntityRoute {
	route := cofoundry.CustomEntityRoute{
		CustomEntityDefinitionCode: e.DefinitionCode,
		CustomEntityID:             e.ID,
		UrlSlug:                    e.UrlSlug,
		LocaleID:                   e.LocaleID,
		Ordering:                   e.Ordering,
		PublishStatus:              e.PublishStatus,
		PublishDate:                e.PublishDate,
		Versions:                   make([]cofoundry.CustomEntityVersionRoute, 0, len(vs)),
	}
	if v, ok := vs.latestPublished(); ok {
		route.Title = v.Title
	} else if v, ok := vs.latest(); ok {
		route.Title = v.Title
	}
	for i := len(vs) - 1; i >= 0; i-- {
		route.Versions = append(route.Versions, cofoundry.CustomEntityVersionRoute{
			VersionID:      vs[i].ID,
			Title:          vs[i].Title,
			WorkFlowStatus: vs[i].WorkFlowStatus,
			CreateDate:     vs[i].CreateDate,
		})
	}
	return route
}

func toSummary(e EntityRecord, vs versionSet) cofoundry.CustomEntitySummary {
	_, hasDraft := vs.draft()
	_, hasPublished := vs.latestPublished()
	s := cofoundry.CustomEntitySummary{
		CustomEntityID:             e.ID,
		CustomEntityDefinitionCode: e.DefinitionCode,
		LocaleID:                   e.LocaleID,
		UrlSlug:                    e.UrlSlug,
		PublishStatus:              e.PublishStatus,
		PublishDate:                e.PublishDate,
		Ordering:                   e.Ordering,
		HasDraftVersion:            hasDraft,
		HasPublishedVersion:        hasPublished,
		AuditData:                  cofoundry.AuditData{CreateDate: e.CreateDate, CreatorID: e.CreatorID},
	}
	if v, ok := vs.latest(); ok {
		s.Title = v.Title
	}
	return s
}

func toVersionSummaries(vs versionSet) []cofoundry.CustomEntityVersionSummary {
	latestPublished, _ := vs.latestPublished()
	out := make([]cofoundry.CustomEntityVersionSummary, 0, len(vs))
	for i := len(vs) - 1; i >= 0; i-- {
		v := vs[i]
		out = append(out, cofoundry.CustomEntityVersionSummary{
			CustomEntityVersionID: v.ID,
			Title:                 v.Title,
			WorkFlowStatus:        v.WorkFlowStatus,
			IsLatestPublished:     v.WorkFlowStatus == cofoundry.WorkFlowStatusPublished && v.ID == latestPublished.ID,
			AuditData:             cofoundry.AuditData{CreateDate: v.CreateDate, CreatorID: v.CreatorID},
		})
	}
	return out
}

// ============================================================================
// Sorting
// ============================================================================

func compareOrdering(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}

func compareTime(a, b time.Time) int {
	return a.Compare(b)
}

func publishDateOf(s cofoundry.CustomEntityRenderSummary) time.Time {
	if s.PublishDate == nil {
		return time.Time{}
	}
	return *s.PublishDate
}

// naturalLess orders by manual position, unpositioned entities last, then
// newest first.
func naturalLess(aOrder, bOrder *int, aCreated, bCreated time.Time, aID, bID int) bool {
	if c := compareOrdering(aOrder, bOrder); c != 0 {
		return c < 0
	}
	if c := compareTime(aCreated, bCreated); c != 0 {
		return c > 0
	}
	return aID > bID
}

// sortRenderSummaries applies a search sort. An empty direction sorts titles
// ascending and dates newest first.
func sortRenderSummaries(items []cofoundry.CustomEntityRenderSummary, by cofoundry.CustomEntityQuerySortType, dir cofoundry.SortDirection) {
	var less func(a, b cofoundry.CustomEntityRenderSummary) bool
	descending := dir == cofoundry.SortDescending
	switch by {
	case cofoundry.SortTitle:
		less = func(a, b cofoundry.CustomEntityRenderSummary) bool {
			c := strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
			if c == 0 {
				c = a.CustomEntityID - b.CustomEntityID
			}
			return c < 0
		}
	case cofoundry.SortPublishDate:
		descending = dir != cofoundry.SortAscending
		less = func(a, b cofoundry.CustomEntityRenderSummary) bool {
			if c := compareTime(publishDateOf(a), publishDateOf(b)); c != 0 {
				return c < 0
			}
			return a.CustomEntityID < b.CustomEntityID
		}
	case cofoundry.SortCreateDate:
		descending = dir != cofoundry.SortAscending
		less = func(a, b cofoundry.CustomEntityRenderSummary) bool {
			if c := compareTime(a.CreateDate, b.CreateDate); c != 0 {
				return c < 0
			}
			return a.CustomEntityID < b.CustomEntityID
		}
	default:
		less = func(a, b cofoundry.CustomEntityRenderSummary) bool {
			return naturalLess(a.Ordering, b.Ordering, a.CreateDate, b.CreateDate, a.CustomEntityID, b.CustomEntityID)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if descending {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}

func sortSummaries(items []cofoundry.CustomEntitySummary) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		return naturalLess(a.Ordering, b.Ordering, a.AuditData.CreateDate, b.AuditData.CreateDate, a.CustomEntityID, b.CustomEntityID)
	})
}

func sortRoutes(routes []cofoundry.CustomEntityRoute) {
	sort.SliceStable(routes, func(i, j int) bool {
		if c := compareOrdering(routes[i].Ordering, routes[j].Ordering); c != 0 {
			return c < 0
		}
		if routes[i].UrlSlug != routes[j].UrlSlug {
			return routes[i].UrlSlug < routes[j].UrlSlug
		}
		return routes[i].CustomEntityID < routes[j].CustomEntityID
	})
}
