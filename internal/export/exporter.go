// Package export writes JSON snapshots of custom entity render summaries to
// object storage.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/markchipman/cofoundry"
	"github.com/markchipman/cofoundry/cqs"
	"go.uber.org/zap"
)

// Uploader stores one object under key.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) error
}

// Snapshot is the document written for one definition.
type Snapshot struct {
	CustomEntityDefinitionCode string                                `json:"customEntityDefinitionCode"`
	PublishStatus              cofoundry.PublishStatusQuery          `json:"publishStatus"`
	ExportedAt                 time.Time                             `json:"exportedAt"`
	TotalItems                 int                                   `json:"totalItems"`
	Items                      []cofoundry.CustomEntityRenderSummary `json:"items"`
}

// Result describes one uploaded snapshot.
type Result struct {
	CustomEntityDefinitionCode string
	Key                        string
	Items                      int
}

// Exporter pages through render summaries with an elevated system context so
// that every entity of a definition is visible regardless of the caller.
type Exporter struct {
	repo     cofoundry.CustomEntityRepository
	uploader Uploader
	prefix   string
	pageSize int
	status   cofoundry.PublishStatusQuery
	now      func() time.Time
	newID    func() (uuid.UUID, error)
}

type Option func(*Exporter)

// WithPublishStatus selects which version of each entity is exported.
func WithPublishStatus(status cofoundry.PublishStatusQuery) Option {
	return func(e *Exporter) { e.status = status }
}

func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

func NewExporter(repo cofoundry.CustomEntityRepository, uploader Uploader, cfg cofoundry.ExportConfig, opts ...Option) *Exporter {
	e := &Exporter{
		repo:     repo,
		uploader: uploader,
		prefix:   strings.Trim(cfg.Prefix, "/"),
		pageSize: cfg.PageSize,
		status:   cofoundry.PublishStatusQueryPublished,
		now:      time.Now,
		newID:    uuid.NewV7,
	}
	if e.pageSize <= 0 {
		e.pageSize = 100
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExportAll exports every registered definition in name order. It stops at
// the first failure and returns the snapshots written so far.
func (e *Exporter) ExportAll(ctx context.Context) ([]Result, error) {
	now := e.now().UTC()
	defs, err := e.repo.GetAllCustomEntityDefinitionMicroSummaries(ctx, e.system(now))
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}

	results := make([]Result, 0, len(defs))
	for _, def := range defs {
		res, err := e.export(ctx, def.CustomEntityDefinitionCode, now)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// ExportDefinition exports the entities of one definition.
func (e *Exporter) ExportDefinition(ctx context.Context, definitionCode string) (Result, error) {
	return e.export(ctx, cofoundry.NormalizeDefinitionCode(definitionCode), e.now().UTC())
}

func (e *Exporter) system(now time.Time) cqs.ExecutionOption {
	return cqs.Explicit(cqs.SystemExecutionContext(now))
}

func (e *Exporter) export(ctx context.Context, code string, now time.Time) (Result, error) {
	snapshot := Snapshot{
		CustomEntityDefinitionCode: code,
		PublishStatus:              e.status,
		ExportedAt:                 now,
		Items:                      []cofoundry.CustomEntityRenderSummary{},
	}

	for page := 1; ; page++ {
		res, err := e.repo.SearchCustomEntityRenderSummaries(ctx, cofoundry.SearchCustomEntityRenderSummariesQuery{
			PagingParameters:           cofoundry.PagingParameters{PageNumber: page, PageSize: e.pageSize},
			CustomEntityDefinitionCode: code,
			PublishStatus:              e.status,
			SortBy:                     cofoundry.SortNatural,
		}, e.system(now))
		if err != nil {
			return Result{}, fmt.Errorf("search %s page %d: %w", code, page, err)
		}
		snapshot.Items = append(snapshot.Items, res.Items...)
		snapshot.TotalItems = res.TotalItems
		if len(res.Items) == 0 || res.IsLastPage() {
			break
		}
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return Result{}, fmt.Errorf("encode snapshot %s: %w", code, err)
	}
	id, err := e.newID()
	if err != nil {
		return Result{}, fmt.Errorf("generate object id: %w", err)
	}
	key := e.objectKey(code, now, id)
	if err := e.uploader.Upload(ctx, key, body, "application/json"); err != nil {
		return Result{}, err
	}

	zap.S().Infow("custom entity snapshot exported",
		"definition_code", code,
		"items", len(snapshot.Items),
		"key", key)
	return Result{CustomEntityDefinitionCode: code, Key: key, Items: len(snapshot.Items)}, nil
}

func (e *Exporter) objectKey(code string, now time.Time, id uuid.UUID) string {
	return path.Join(e.prefix, strings.ToLower(code), now.Format("2006/01/02"), id.String()+".json")
}
