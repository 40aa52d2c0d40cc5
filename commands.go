package cofoundry

import (
	"encoding/json"
	"time"

	"github.com/markchipman/cofoundry/cqs"
)

// ============================================================================
// Entities
// ============================================================================

// AddCustomEntityCommand creates an entity with an initial draft version and
// returns the new entity id.
type AddCustomEntityCommand struct {
	cqs.Returns[int]
	CustomEntityDefinitionCode string          `json:"customEntityDefinitionCode"`
	LocaleID                   int             `json:"localeId,omitempty"`
	UrlSlug                    string          `json:"urlSlug,omitempty"`
	Title                      string          `json:"title"`
	Model                      json.RawMessage `json:"model,omitempty"`
	Publish                    bool            `json:"publish,omitempty"`
	PublishDate                *time.Time      `json:"publishDate,omitempty"`
}

func (AddCustomEntityCommand) CommandName() string { return "AddCustomEntity" }

// DeleteCustomEntityCommand removes an entity with all of its versions.
type DeleteCustomEntityCommand struct {
	cqs.Returns[cqs.Void]
	CustomEntityID int `json:"customEntityId"`
}

func (DeleteCustomEntityCommand) CommandName() string { return "DeleteCustomEntity" }

type UpdateCustomEntityUrlCommand struct {
	cqs.Returns[cqs.Void]
	CustomEntityID int    `json:"customEntityId"`
	LocaleID       int    `json:"localeId,omitempty"`
	UrlSlug        string `json:"urlSlug"`
}

func (UpdateCustomEntityUrlCommand) CommandName() string { return "UpdateCustomEntityUrl" }

// EnsureCustomEntityDefinitionExistsCommand records a registered definition in
// the store so entities can reference it.
type EnsureCustomEntityDefinitionExistsCommand struct {
	cqs.Returns[cqs.Void]
	CustomEntityDefinitionCode string `json:"customEntityDefinitionCode"`
}

func (EnsureCustomEntityDefinitionExistsCommand) CommandName() string {
	return "EnsureCustomEntityDefinitionExists"
}

// ============================================================================
// Publishing
// ============================================================================

// PublishCustomEntityCommand publishes the draft version, or republishes the
// latest published version of an unpublished entity.
type PublishCustomEntityCommand struct {
	cqs.Returns[cqs.Void]
	CustomEntityID int        `json:"customEntityId"`
	PublishDate    *time.Time `json:"publishDate,omitempty"`
}

func (PublishCustomEntityCommand) CommandName() string { return "PublishCustomEntity" }

type UnPublishCustomEntityCommand struct {
	cqs.Returns[cqs.Void]
	CustomEntityID int `json:"customEntityId"`
}

func (UnPublishCustomEntityCommand) CommandName() string { return "UnPublishCustomEntity" }

// ============================================================================
// Versions
// ============================================================================

// AddCustomEntityDraftVersionCommand copies the latest published version into
// a new draft and returns the draft version id.
type AddCustomEntityDraftVersionCommand struct {
	cqs.Returns[int]
	CustomEntityID int `json:"customEntityId"`
}

func (AddCustomEntityDraftVersionCommand) CommandName() string {
	return "AddCustomEntityDraftVersion"
}

// UpdateCustomEntityDraftVersionCommand sets the draft title and data model,
// creating the draft when none exists.
type UpdateCustomEntityDraftVersionCommand struct {
	cqs.Returns[cqs.Void]
	CustomEntityDefinitionCode string          `json:"customEntityDefinitionCode"`
	CustomEntityID             int             `json:"customEntityId"`
	Title                      string          `json:"title"`
	Model                      json.RawMessage `json:"model,omitempty"`
	Publish                    bool            `json:"publish,omitempty"`
	PublishDate                *time.Time      `json:"publishDate,omitempty"`
}

func (UpdateCustomEntityDraftVersionCommand) CommandName() string {
	return "UpdateCustomEntityDraftVersion"
}

type DeleteCustomEntityDraftVersionCommand struct {
	cqs.Returns[cqs.Void]
	CustomEntityID int `json:"customEntityId"`
}

func (DeleteCustomEntityDraftVersionCommand) CommandName() string {
	return "DeleteCustomEntityDraftVersion"
}

// ============================================================================
// Ordering
// ============================================================================

// ReOrderCustomEntitiesCommand sets the manual order of a definition's
// entities in one locale, first id first.
type ReOrderCustomEntitiesCommand struct {
	cqs.Returns[cqs.Void]
	CustomEntityDefinitionCode string `json:"customEntityDefinitionCode"`
	OrderedCustomEntityIDs     []int  `json:"orderedCustomEntityIds"`
	LocaleID                   int    `json:"localeId,omitempty"`
}

func (ReOrderCustomEntitiesCommand) CommandName() string { return "ReOrderCustomEntities" }

// UpdateCustomEntityOrderingPositionCommand moves one entity to a 1-based
// position. A nil position removes it from the manual order.
type UpdateCustomEntityOrderingPositionCommand struct {
	cqs.Returns[cqs.Void]
	CustomEntityID   int  `json:"customEntityId"`
	OrderingPosition *int `json:"orderingPosition,omitempty"`
}

func (UpdateCustomEntityOrderingPositionCommand) CommandName() string {
	return "UpdateCustomEntityOrderingPosition"
}

// ============================================================================
// Page blocks
// ============================================================================

// AddCustomEntityVersionPageBlockCommand adds a block to a draft version and
// returns the new block id. AdjacentVersionBlockID is required for the
// before and after insert modes.
type AddCustomEntityVersionPageBlockCommand struct {
	cqs.Returns[int]
	CustomEntityVersionID  int                 `json:"customEntityVersionId"`
	RegionName             string              `json:"regionName"`
	BlockTypeCode          string              `json:"blockTypeCode"`
	Model                  json.RawMessage     `json:"model,omitempty"`
	InsertMode             PageBlockInsertMode `json:"insertMode,omitempty"`
	AdjacentVersionBlockID int                 `json:"adjacentVersionBlockId,omitempty"`
}

func (AddCustomEntityVersionPageBlockCommand) CommandName() string {
	return "AddCustomEntityVersionPageBlock"
}

type UpdateCustomEntityVersionPageBlockCommand struct {
	cqs.Returns[cqs.Void]
	CustomEntityVersionPageBlockID int             `json:"customEntityVersionPageBlockId"`
	BlockTypeCode                  string          `json:"blockTypeCode"`
	Model                          json.RawMessage `json:"model,omitempty"`
}

func (UpdateCustomEntityVersionPageBlockCommand) CommandName() string {
	return "UpdateCustomEntityVersionPageBlock"
}

type MoveCustomEntityVersionPageBlockCommand struct {
	cqs.Returns[cqs.Void]
	CustomEntityVersionPageBlockID int           `json:"customEntityVersionPageBlockId"`
	Direction                      MoveDirection `json:"direction"`
}

func (MoveCustomEntityVersionPageBlockCommand) CommandName() string {
	return "MoveCustomEntityVersionPageBlock"
}

type DeleteCustomEntityVersionPageBlockCommand struct {
	cqs.Returns[cqs.Void]
	CustomEntityVersionPageBlockID int `json:"customEntityVersionPageBlockId"`
}

func (DeleteCustomEntityVersionPageBlockCommand) CommandName() string {
	return "DeleteCustomEntityVersionPageBlock"
}

// AllCommands returns a zero value of every command type, for startup
// validation.
func AllCommands() []cqs.NamedCommand {
	return []cqs.NamedCommand{
		AddCustomEntityCommand{},
		DeleteCustomEntityCommand{},
		UpdateCustomEntityUrlCommand{},
		EnsureCustomEntityDefinitionExistsCommand{},
		PublishCustomEntityCommand{},
		UnPublishCustomEntityCommand{},
		AddCustomEntityDraftVersionCommand{},
		UpdateCustomEntityDraftVersionCommand{},
		DeleteCustomEntityDraftVersionCommand{},
		ReOrderCustomEntitiesCommand{},
		UpdateCustomEntityOrderingPositionCommand{},
		AddCustomEntityVersionPageBlockCommand{},
		UpdateCustomEntityVersionPageBlockCommand{},
		MoveCustomEntityVersionPageBlockCommand{},
		DeleteCustomEntityVersionPageBlockCommand{},
	}
}
