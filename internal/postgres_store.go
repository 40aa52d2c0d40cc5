package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/markchipman/cofoundry"
	"go.uber.org/zap"
)

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgPool interface {
	pgQuerier
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type pgTables struct {
	definitions string
	entities    string
	versions    string
	blocks      string
}

func newPgTables(names cofoundry.TableNames) pgTables {
	names = names.WithDefaults()
	return pgTables{
		definitions: sanitizeIdentifier(names.Definitions),
		entities:    sanitizeIdentifier(names.Entities),
		versions:    sanitizeIdentifier(names.Versions),
		blocks:      sanitizeIdentifier(names.PageBlocks),
	}
}

// PostgresStore is a Store over pgx. Every WithTx call runs in one database
// transaction.
type PostgresStore struct {
	pgReader
	pool pgPool
}

// NewPostgresStore creates a store using the given pool and table names.
func NewPostgresStore(pool pgPool, names cofoundry.TableNames) *PostgresStore {
	tables := newPgTables(names)
	return &PostgresStore{pgReader: pgReader{db: pool, tables: tables}, pool: pool}
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(w Writer) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op if committed

	if err := fn(&pgWriter{pgReader: pgReader{db: tx, tables: s.tables}}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type pgReader struct {
	db     pgQuerier
	tables pgTables
}

const (
	entityColumns  = "id, definition_code, locale_id, url_slug, publish_status, publish_date, ordering, create_date, creator_id"
	versionColumns = "id, entity_id, title, work_flow_status, model, create_date, creator_id"
	blockColumns   = "id, version_id, region_name, block_type_code, ordering, model, create_date, creator_id"
)

func scanEntity(row pgx.Row) (EntityRecord, error) {
	var rec EntityRecord
	var status string
	err := row.Scan(&rec.ID, &rec.DefinitionCode, &rec.LocaleID, &rec.UrlSlug, &status,
		&rec.PublishDate, &rec.Ordering, &rec.CreateDate, &rec.CreatorID)
	rec.PublishStatus = cofoundry.PublishStatus(status)
	return rec, err
}

func scanVersion(row pgx.Row) (VersionRecord, error) {
	var rec VersionRecord
	var status string
	var model []byte
	err := row.Scan(&rec.ID, &rec.EntityID, &rec.Title, &status, &model, &rec.CreateDate, &rec.CreatorID)
	rec.WorkFlowStatus = cofoundry.WorkFlowStatus(status)
	if model != nil {
		rec.Model = json.RawMessage(model)
	}
	return rec, err
}

func scanBlock(row pgx.Row) (PageBlockRecord, error) {
	var rec PageBlockRecord
	var model []byte
	err := row.Scan(&rec.ID, &rec.VersionID, &rec.RegionName, &rec.BlockTypeCode, &rec.Ordering,
		&model, &rec.CreateDate, &rec.CreatorID)
	if model != nil {
		rec.Model = json.RawMessage(model)
	}
	return rec, err
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func notFound[T any](rec T, err error) (T, bool, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		var zero T
		return zero, false, nil
	}
	if err != nil {
		var zero T
		return zero, false, err
	}
	return rec, true, nil
}

func (r pgReader) GetEntity(ctx context.Context, id int) (EntityRecord, bool, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", entityColumns, r.tables.entities)
	rec, err := scanEntity(r.db.QueryRow(ctx, query, id))
	rec, ok, err := notFound(rec, err)
	if err != nil {
		return rec, false, fmt.Errorf("get entity %d: %w", id, err)
	}
	return rec, ok, nil
}

func (r pgReader) ListEntities(ctx context.Context, filter EntityFilter) ([]EntityRecord, error) {
	where, args := entityFilterClause(filter)
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY id", entityColumns, r.tables.entities, where)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	return collect(rows, scanEntity)
}

func entityFilterClause(filter EntityFilter) (string, []any) {
	var conds []string
	var args []any
	if filter.DefinitionCode != "" {
		args = append(args, filter.DefinitionCode)
		conds = append(conds, fmt.Sprintf("definition_code = $%d", len(args)))
	}
	if filter.LocaleID != nil {
		args = append(args, *filter.LocaleID)
		conds = append(conds, fmt.Sprintf("locale_id = $%d", len(args)))
	}
	if filter.IDs != nil {
		args = append(args, filter.IDs)
		conds = append(conds, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	clause := " WHERE " + conds[0]
	for _, c := range conds[1:] {
		clause += " AND " + c
	}
	return clause, args
}

func (r pgReader) GetVersion(ctx context.Context, id int) (VersionRecord, bool, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", versionColumns, r.tables.versions)
	rec, err := scanVersion(r.db.QueryRow(ctx, query, id))
	rec, ok, err := notFound(rec, err)
	if err != nil {
		return rec, false, fmt.Errorf("get version %d: %w", id, err)
	}
	return rec, ok, nil
}

func (r pgReader) ListVersions(ctx context.Context, entityIDs ...int) ([]VersionRecord, error) {
	if len(entityIDs) == 0 {
		return []VersionRecord{}, nil
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE entity_id = ANY($1) ORDER BY entity_id, id", versionColumns, r.tables.versions)
	rows, err := r.db.Query(ctx, query, entityIDs)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return collect(rows, scanVersion)
}

func (r pgReader) GetPageBlock(ctx context.Context, id int) (PageBlockRecord, bool, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", blockColumns, r.tables.blocks)
	rec, err := scanBlock(r.db.QueryRow(ctx, query, id))
	rec, ok, err := notFound(rec, err)
	if err != nil {
		return rec, false, fmt.Errorf("get page block %d: %w", id, err)
	}
	return rec, ok, nil
}

func (r pgReader) ListPageBlocks(ctx context.Context, versionIDs ...int) ([]PageBlockRecord, error) {
	if len(versionIDs) == 0 {
		return []PageBlockRecord{}, nil
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE version_id = ANY($1) ORDER BY version_id, region_name, ordering, id", blockColumns, r.tables.blocks)
	rows, err := r.db.Query(ctx, query, versionIDs)
	if err != nil {
		return nil, fmt.Errorf("list page blocks: %w", err)
	}
	return collect(rows, scanBlock)
}

func (r pgReader) DefinitionExists(ctx context.Context, code string) (bool, error) {
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE code = $1)", r.tables.definitions)
	var exists bool
	if err := r.db.QueryRow(ctx, query, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("check definition %s: %w", code, err)
	}
	return exists, nil
}

type pgWriter struct {
	pgReader
}

func nullableJSON(m json.RawMessage) any {
	if len(m) == 0 {
		return nil
	}
	return string(m)
}

func (w *pgWriter) InsertEntity(ctx context.Context, rec EntityRecord) (int, error) {
	query := fmt.Sprintf(
		`INSERT INTO %s (definition_code, locale_id, url_slug, publish_status, publish_date, ordering, create_date, creator_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		w.tables.entities,
	)
	var id int
	err := w.db.QueryRow(ctx, query, rec.DefinitionCode, rec.LocaleID, rec.UrlSlug, string(rec.PublishStatus),
		rec.PublishDate, rec.Ordering, rec.CreateDate, rec.CreatorID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert entity: %w", err)
	}
	return id, nil
}

func (w *pgWriter) UpdateEntity(ctx context.Context, rec EntityRecord) error {
	query := fmt.Sprintf(
		`UPDATE %s SET locale_id = $2, url_slug = $3, publish_status = $4, publish_date = $5, ordering = $6
			WHERE id = $1`,
		w.tables.entities,
	)
	tag, err := w.db.Exec(ctx, query, rec.ID, rec.LocaleID, rec.UrlSlug, string(rec.PublishStatus), rec.PublishDate, rec.Ordering)
	if err != nil {
		return fmt.Errorf("update entity %d: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update entity %d: no rows affected", rec.ID)
	}
	return nil
}

func (w *pgWriter) DeleteEntity(ctx context.Context, id int) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", w.tables.entities)
	if _, err := w.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete entity %d: %w", id, err)
	}
	return nil
}

func (w *pgWriter) InsertVersion(ctx context.Context, rec VersionRecord) (int, error) {
	query := fmt.Sprintf(
		`INSERT INTO %s (entity_id, title, work_flow_status, model, create_date, creator_id)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		w.tables.versions,
	)
	var id int
	err := w.db.QueryRow(ctx, query, rec.EntityID, rec.Title, string(rec.WorkFlowStatus), nullableJSON(rec.Model),
		rec.CreateDate, rec.CreatorID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert version: %w", err)
	}
	return id, nil
}

func (w *pgWriter) UpdateVersion(ctx context.Context, rec VersionRecord) error {
	query := fmt.Sprintf(
		"UPDATE %s SET title = $2, work_flow_status = $3, model = $4 WHERE id = $1",
		w.tables.versions,
	)
	tag, err := w.db.Exec(ctx, query, rec.ID, rec.Title, string(rec.WorkFlowStatus), nullableJSON(rec.Model))
	if err != nil {
		return fmt.Errorf("update version %d: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update version %d: no rows affected", rec.ID)
	}
	return nil
}

func (w *pgWriter) DeleteVersion(ctx context.Context, id int) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", w.tables.versions)
	if _, err := w.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete version %d: %w", id, err)
	}
	return nil
}

func (w *pgWriter) InsertPageBlock(ctx context.Context, rec PageBlockRecord) (int, error) {
	query := fmt.Sprintf(
		`INSERT INTO %s (version_id, region_name, block_type_code, ordering, model, create_date, creator_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		w.tables.blocks,
	)
	var id int
	err := w.db.QueryRow(ctx, query, rec.VersionID, rec.RegionName, rec.BlockTypeCode, rec.Ordering,
		nullableJSON(rec.Model), rec.CreateDate, rec.CreatorID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert page block: %w", err)
	}
	return id, nil
}

func (w *pgWriter) UpdatePageBlock(ctx context.Context, rec PageBlockRecord) error {
	query := fmt.Sprintf(
		"UPDATE %s SET region_name = $2, block_type_code = $3, ordering = $4, model = $5 WHERE id = $1",
		w.tables.blocks,
	)
	tag, err := w.db.Exec(ctx, query, rec.ID, rec.RegionName, rec.BlockTypeCode, rec.Ordering, nullableJSON(rec.Model))
	if err != nil {
		return fmt.Errorf("update page block %d: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update page block %d: no rows affected", rec.ID)
	}
	return nil
}

func (w *pgWriter) DeletePageBlock(ctx context.Context, id int) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", w.tables.blocks)
	if _, err := w.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete page block %d: %w", id, err)
	}
	return nil
}

func (w *pgWriter) InsertDefinition(ctx context.Context, code string, createDate time.Time) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (code, create_date) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING",
		w.tables.definitions,
	)
	tag, err := w.db.Exec(ctx, query, code, createDate)
	if err != nil {
		return fmt.Errorf("insert definition %s: %w", code, err)
	}
	if tag.RowsAffected() > 0 {
		zap.S().Infow("custom entity definition recorded", "code", code)
	}
	return nil
}

// LockDefinition takes a row lock on the definition. READ COMMITTED gives no
// predicate locks, so path and ordering checks would otherwise race.
func (w *pgWriter) LockDefinition(ctx context.Context, code string) error {
	query := fmt.Sprintf("SELECT code FROM %s WHERE code = $1 FOR UPDATE", w.tables.definitions)
	var locked string
	if err := w.db.QueryRow(ctx, query, code).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("lock definition %s: not recorded", code)
		}
		return fmt.Errorf("lock definition %s: %w", code, err)
	}
	return nil
}
