package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"
)

type memoryState struct {
	entities    map[int]EntityRecord
	versions    map[int]VersionRecord
	blocks      map[int]PageBlockRecord
	definitions map[string]time.Time
	nextEntity  int
	nextVersion int
	nextBlock   int
}

func newMemoryState() *memoryState {
	return &memoryState{
		entities:    map[int]EntityRecord{},
		versions:    map[int]VersionRecord{},
		blocks:      map[int]PageBlockRecord{},
		definitions: map[string]time.Time{},
	}
}

func (s *memoryState) clone() *memoryState {
	out := &memoryState{
		entities:    make(map[int]EntityRecord, len(s.entities)),
		versions:    make(map[int]VersionRecord, len(s.versions)),
		blocks:      make(map[int]PageBlockRecord, len(s.blocks)),
		definitions: make(map[string]time.Time, len(s.definitions)),
		nextEntity:  s.nextEntity,
		nextVersion: s.nextVersion,
		nextBlock:   s.nextBlock,
	}
	for k, v := range s.entities {
		out.entities[k] = cloneEntity(v)
	}
	for k, v := range s.versions {
		out.versions[k] = cloneVersion(v)
	}
	for k, v := range s.blocks {
		out.blocks[k] = cloneBlock(v)
	}
	for k, v := range s.definitions {
		out.definitions[k] = v
	}
	return out
}

func cloneModel(m json.RawMessage) json.RawMessage {
	if m == nil {
		return nil
	}
	return append(json.RawMessage(nil), m...)
}

func cloneEntity(e EntityRecord) EntityRecord {
	if e.PublishDate != nil {
		d := *e.PublishDate
		e.PublishDate = &d
	}
	if e.Ordering != nil {
		o := *e.Ordering
		e.Ordering = &o
	}
	return e
}

func cloneVersion(v VersionRecord) VersionRecord {
	v.Model = cloneModel(v.Model)
	return v
}

func cloneBlock(b PageBlockRecord) PageBlockRecord {
	b.Model = cloneModel(b.Model)
	return b
}

func (s *memoryState) getEntity(id int) (EntityRecord, bool) {
	e, ok := s.entities[id]
	if !ok {
		return EntityRecord{}, false
	}
	return cloneEntity(e), true
}

func (s *memoryState) listEntities(filter EntityFilter) []EntityRecord {
	var ids map[int]struct{}
	if filter.IDs != nil {
		ids = make(map[int]struct{}, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = struct{}{}
		}
	}
	out := make([]EntityRecord, 0)
	for _, e := range s.entities {
		if filter.DefinitionCode != "" && e.DefinitionCode != filter.DefinitionCode {
			continue
		}
		if filter.LocaleID != nil && e.LocaleID != *filter.LocaleID {
			continue
		}
		if ids != nil {
			if _, ok := ids[e.ID]; !ok {
				continue
			}
		}
		out = append(out, cloneEntity(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memoryState) getVersion(id int) (VersionRecord, bool) {
	v, ok := s.versions[id]
	if !ok {
		return VersionRecord{}, false
	}
	return cloneVersion(v), true
}

func (s *memoryState) listVersions(entityIDs []int) []VersionRecord {
	out := make([]VersionRecord, 0)
	for _, v := range s.versions {
		if slices.Contains(entityIDs, v.EntityID) {
			out = append(out, cloneVersion(v))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityID != out[j].EntityID {
			return out[i].EntityID < out[j].EntityID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *memoryState) getBlock(id int) (PageBlockRecord, bool) {
	b, ok := s.blocks[id]
	if !ok {
		return PageBlockRecord{}, false
	}
	return cloneBlock(b), true
}

func (s *memoryState) listBlocks(versionIDs []int) []PageBlockRecord {
	out := make([]PageBlockRecord, 0)
	for _, b := range s.blocks {
		if slices.Contains(versionIDs, b.VersionID) {
			out = append(out, cloneBlock(b))
		}
	}
	sortBlocks(out)
	return out
}

func sortBlocks(blocks []PageBlockRecord) {
	sort.Slice(blocks, func(i, j int) bool {
		a, b := blocks[i], blocks[j]
		if a.VersionID != b.VersionID {
			return a.VersionID < b.VersionID
		}
		if a.RegionName != b.RegionName {
			return a.RegionName < b.RegionName
		}
		if a.Ordering != b.Ordering {
			return a.Ordering < b.Ordering
		}
		return a.ID < b.ID
	})
}

// MemoryStore is an in-memory Store. Each transaction works on a private copy
// of the state that replaces the shared state on success; writers are
// serialised.
type MemoryStore struct {
	mu      sync.RWMutex
	writeMu sync.Mutex
	state   *memoryState
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState()}
}

func (m *MemoryStore) current() *memoryState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *MemoryStore) GetEntity(ctx context.Context, id int) (EntityRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return EntityRecord{}, false, err
	}
	e, ok := m.current().getEntity(id)
	return e, ok, nil
}

func (m *MemoryStore) ListEntities(ctx context.Context, filter EntityFilter) ([]EntityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.current().listEntities(filter), nil
}

func (m *MemoryStore) GetVersion(ctx context.Context, id int) (VersionRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return VersionRecord{}, false, err
	}
	v, ok := m.current().getVersion(id)
	return v, ok, nil
}

func (m *MemoryStore) ListVersions(ctx context.Context, entityIDs ...int) ([]VersionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.current().listVersions(entityIDs), nil
}

func (m *MemoryStore) GetPageBlock(ctx context.Context, id int) (PageBlockRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return PageBlockRecord{}, false, err
	}
	b, ok := m.current().getBlock(id)
	return b, ok, nil
}

func (m *MemoryStore) ListPageBlocks(ctx context.Context, versionIDs ...int) ([]PageBlockRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.current().listBlocks(versionIDs), nil
}

func (m *MemoryStore) DefinitionExists(ctx context.Context, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, ok := m.current().definitions[code]
	return ok, nil
}

// WithTx runs fn against a copy of the state and publishes the copy when fn
// succeeds and ctx is still live.
func (m *MemoryStore) WithTx(ctx context.Context, fn func(w Writer) error) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memoryTx{state: m.current().clone()}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.state = tx.state
	m.mu.Unlock()
	return nil
}

type memoryTx struct {
	state *memoryState
}

func (t *memoryTx) GetEntity(ctx context.Context, id int) (EntityRecord, bool, error) {
	e, ok := t.state.getEntity(id)
	return e, ok, nil
}

func (t *memoryTx) ListEntities(ctx context.Context, filter EntityFilter) ([]EntityRecord, error) {
	return t.state.listEntities(filter), nil
}

func (t *memoryTx) GetVersion(ctx context.Context, id int) (VersionRecord, bool, error) {
	v, ok := t.state.getVersion(id)
	return v, ok, nil
}

func (t *memoryTx) ListVersions(ctx context.Context, entityIDs ...int) ([]VersionRecord, error) {
	return t.state.listVersions(entityIDs), nil
}

func (t *memoryTx) GetPageBlock(ctx context.Context, id int) (PageBlockRecord, bool, error) {
	b, ok := t.state.getBlock(id)
	return b, ok, nil
}

func (t *memoryTx) ListPageBlocks(ctx context.Context, versionIDs ...int) ([]PageBlockRecord, error) {
	return t.state.listBlocks(versionIDs), nil
}

func (t *memoryTx) DefinitionExists(ctx context.Context, code string) (bool, error) {
	_, ok := t.state.definitions[code]
	return ok, nil
}

func (t *memoryTx) InsertEntity(ctx context.Context, rec EntityRecord) (int, error) {
	t.state.nextEntity++
	rec.ID = t.state.nextEntity
	t.state.entities[rec.ID] = cloneEntity(rec)
	return rec.ID, nil
}

func (t *memoryTx) UpdateEntity(ctx context.Context, rec EntityRecord) error {
	if _, ok := t.state.entities[rec.ID]; !ok {
		return fmt.Errorf("entity %d not found", rec.ID)
	}
	t.state.entities[rec.ID] = cloneEntity(rec)
	return nil
}

func (t *memoryTx) DeleteEntity(ctx context.Context, id int) error {
	delete(t.state.entities, id)
	for vid, v := range t.state.versions {
		if v.EntityID == id {
			t.deleteVersion(vid)
		}
	}
	return nil
}

func (t *memoryTx) InsertVersion(ctx context.Context, rec VersionRecord) (int, error) {
	if _, ok := t.state.entities[rec.EntityID]; !ok {
		return 0, fmt.Errorf("entity %d not found", rec.EntityID)
	}
	t.state.nextVersion++
	rec.ID = t.state.nextVersion
	t.state.versions[rec.ID] = cloneVersion(rec)
	return rec.ID, nil
}

func (t *memoryTx) UpdateVersion(ctx context.Context, rec VersionRecord) error {
	if _, ok := t.state.versions[rec.ID]; !ok {
		return fmt.Errorf("version %d not found", rec.ID)
	}
	t.state.versions[rec.ID] = cloneVersion(rec)
	return nil
}

func (t *memoryTx) DeleteVersion(ctx context.Context, id int) error {
	t.deleteVersion(id)
	return nil
}

func (t *memoryTx) deleteVersion(id int) {
	delete(t.state.versions, id)
	for bid, b := range t.state.blocks {
		if b.VersionID == id {
			delete(t.state.blocks, bid)
		}
	}
}

func (t *memoryTx) InsertPageBlock(ctx context.Context, rec PageBlockRecord) (int, error) {
	if _, ok := t.state.versions[rec.VersionID]; !ok {
		return 0, fmt.Errorf("version %d not found", rec.VersionID)
	}
	t.state.nextBlock++
	rec.ID = t.state.nextBlock
	t.state.blocks[rec.ID] = cloneBlock(rec)
	return rec.ID, nil
}

func (t *memoryTx) UpdatePageBlock(ctx context.Context, rec PageBlockRecord) error {
	if _, ok := t.state.blocks[rec.ID]; !ok {
		return fmt.Errorf("page block %d not found", rec.ID)
	}
	t.state.blocks[rec.ID] = cloneBlock(rec)
	return nil
}

func (t *memoryTx) DeletePageBlock(ctx context.Context, id int) error {
	delete(t.state.blocks, id)
	return nil
}

func (t *memoryTx) InsertDefinition(ctx context.Context, code string, createDate time.Time) error {
	if _, ok := t.state.definitions[code]; !ok {
		t.state.definitions[code] = createDate
	}
	return nil
}

// LockDefinition only checks the definition is recorded; WithTx already
// holds the write lock.
func (t *memoryTx) LockDefinition(ctx context.Context, code string) error {
	if _, ok := t.state.definitions[code]; !ok {
		return fmt.Errorf("lock definition %s: not recorded", code)
	}
	return nil
}
