package internal

import (
	"context"
	"fmt"
	"strings"

	"github.com/markchipman/cofoundry"
)

// PostgresSchemaDDL returns the statements that create the custom entity
// tables. Every statement is idempotent.
func PostgresSchemaDDL(names cofoundry.TableNames) []string {
	names = names.WithDefaults()
	t := newPgTables(names)
	index := func(table, suffix string) string {
		return sanitizeIdentifier(strings.ReplaceAll(table, ".", "_") + "_" + suffix)
	}

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	code        CHAR(6) PRIMARY KEY,
	create_date TIMESTAMPTZ NOT NULL
)`, t.definitions),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id              INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	definition_code CHAR(6) NOT NULL REFERENCES %s (code),
	locale_id       INTEGER NOT NULL DEFAULT 0,
	url_slug        TEXT NOT NULL,
	publish_status  TEXT NOT NULL,
	publish_date    TIMESTAMPTZ,
	ordering        INTEGER,
	create_date     TIMESTAMPTZ NOT NULL,
	creator_id      INTEGER NOT NULL DEFAULT 0
)`, t.entities, t.definitions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (definition_code, locale_id, url_slug)`,
			index(names.Entities, "path_idx"), t.entities),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id               INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	entity_id        INTEGER NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
	title            TEXT NOT NULL,
	work_flow_status TEXT NOT NULL,
	model            JSONB,
	create_date      TIMESTAMPTZ NOT NULL,
	creator_id       INTEGER NOT NULL DEFAULT 0
)`, t.versions, t.entities),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (entity_id, id)`,
			index(names.Versions, "entity_idx"), t.versions),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (entity_id) WHERE work_flow_status = 'draft'`,
			index(names.Versions, "single_draft_idx"), t.versions),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id              INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	version_id      INTEGER NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
	region_name     TEXT NOT NULL,
	block_type_code TEXT NOT NULL,
	ordering        INTEGER NOT NULL,
	model           JSONB,
	create_date     TIMESTAMPTZ NOT NULL,
	creator_id      INTEGER NOT NULL DEFAULT 0
)`, t.blocks, t.versions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (version_id, region_name, ordering)`,
			index(names.PageBlocks, "version_idx"), t.blocks),
	}
}

// ApplyPostgresSchema runs PostgresSchemaDDL against db.
func ApplyPostgresSchema(ctx context.Context, db pgQuerier, names cofoundry.TableNames) error {
	for _, stmt := range PostgresSchemaDDL(names) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
