package internal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/markchipman/cofoundry"
)

// EntityRecord is a stored custom entity.
type EntityRecord struct {
	ID             int
	DefinitionCode string
	LocaleID       int
	UrlSlug        string
	PublishStatus  cofoundry.PublishStatus
	PublishDate    *time.Time
	Ordering       *int
	CreateDate     time.Time
	CreatorID      int
}

// VersionRecord is a stored version of an entity.
type VersionRecord struct {
	ID             int
	EntityID       int
	Title          string
	WorkFlowStatus cofoundry.WorkFlowStatus
	Model          json.RawMessage
	CreateDate     time.Time
	CreatorID      int
}

// PageBlockRecord is a stored block of a version region.
type PageBlockRecord struct {
	ID            int
	VersionID     int
	RegionName    string
	BlockTypeCode string
	Ordering      int
	Model         json.RawMessage
	CreateDate    time.Time
	CreatorID     int
}

// EntityFilter narrows ListEntities. Zero fields match everything.
type EntityFilter struct {
	DefinitionCode string
	LocaleID       *int
	IDs            []int
}

// Reader gives read access to custom entity data.
type Reader interface {
	GetEntity(ctx context.Context, id int) (EntityRecord, bool, error)
	// ListEntities returns matching entities ordered by id.
	ListEntities(ctx context.Context, filter EntityFilter) ([]EntityRecord, error)
	GetVersion(ctx context.Context, id int) (VersionRecord, bool, error)
	// ListVersions returns the versions of the given entities ordered by
	// entity id then version id.
	ListVersions(ctx context.Context, entityIDs ...int) ([]VersionRecord, error)
	GetPageBlock(ctx context.Context, id int) (PageBlockRecord, bool, error)
	// ListPageBlocks returns the blocks of the given versions ordered by
	// version id, region name then ordering.
	ListPageBlocks(ctx context.Context, versionIDs ...int) ([]PageBlockRecord, error)
	DefinitionExists(ctx context.Context, code string) (bool, error)
}

// Writer mutates custom entity data inside one transaction.
type Writer interface {
	Reader
	InsertEntity(ctx context.Context, rec EntityRecord) (int, error)
	UpdateEntity(ctx context.Context, rec EntityRecord) error
	// DeleteEntity removes the entity with its versions and their blocks.
	DeleteEntity(ctx context.Context, id int) error
	InsertVersion(ctx context.Context, rec VersionRecord) (int, error)
	UpdateVersion(ctx context.Context, rec VersionRecord) error
	// DeleteVersion removes the version and its blocks.
	DeleteVersion(ctx context.Context, id int) error
	InsertPageBlock(ctx context.Context, rec PageBlockRecord) (int, error)
	UpdatePageBlock(ctx context.Context, rec PageBlockRecord) error
	DeletePageBlock(ctx context.Context, id int) error
	InsertDefinition(ctx context.Context, code string, createDate time.Time) error
	// LockDefinition serialises writers that check path uniqueness or
	// ordering for one definition until the transaction ends. The
	// definition must already be recorded.
	LockDefinition(ctx context.Context, code string) error
}

// Store is transactional custom entity storage. Mutations made through the
// Writer passed to fn become visible only if fn returns nil.
type Store interface {
	Reader
	WithTx(ctx context.Context, fn func(w Writer) error) error
}
