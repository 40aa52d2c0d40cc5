package internal

import (
	"context"
	"fmt"
	"sort"

	"github.com/markchipman/cofoundry"
	"github.com/markchipman/cofoundry/cqs"
)

func orderingNotSupported(def cofoundry.CustomEntityDefinition) error {
	return cofoundry.NewBusinessRuleViolation(cofoundry.ErrCodeOrderingNotSupported,
		fmt.Sprintf("%s cannot be ordered", def.NamePlural))
}

// applyOrdering writes positions 1..n to ordered and clears the rest.
func applyOrdering(ctx context.Context, w Writer, all []EntityRecord, ordered []int) error {
	positions := make(map[int]int, len(ordered))
	for i, id := range ordered {
		positions[id] = i + 1
	}
	for _, e := range all {
		var next *int
		if pos, ok := positions[e.ID]; ok {
			next = &pos
		}
		if sameOrdering(e.Ordering, next) {
			continue
		}
		e.Ordering = next
		if err := w.UpdateEntity(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func sameOrdering(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// orderedIDs returns the ids of positioned entities in display order.
func orderedIDs(entities []EntityRecord) []int {
	positioned := make([]EntityRecord, 0, len(entities))
	for _, e := range entities {
		if e.Ordering != nil {
			positioned = append(positioned, e)
		}
	}
	sort.SliceStable(positioned, func(i, j int) bool {
		if *positioned[i].Ordering != *positioned[j].Ordering {
			return *positioned[i].Ordering < *positioned[j].Ordering
		}
		return positioned[i].ID < positioned[j].ID
	})
	ids := make([]int, len(positioned))
	for i, e := range positioned {
		ids[i] = e.ID
	}
	return ids
}

func (h *Handlers) reOrderCustomEntities(ctx context.Context, c cofoundry.ReOrderCustomEntitiesCommand, ec *cqs.ExecutionContext) (cqs.Void, error) {
	def, err := h.definition(c.CustomEntityDefinitionCode)
	if err != nil {
		return cqs.Void{}, err
	}
	if err := authorize(ec, def.Code, cqs.PermissionUpdate); err != nil {
		return cqs.Void{}, err
	}
	if !def.IsOrderable() {
		return cqs.Void{}, orderingNotSupported(def)
	}

	err = h.store.WithTx(ctx, func(w Writer) error {
		if err := lockDefinition(ctx, w, def.Code, ec.ExecutionDate); err != nil {
			return err
		}
		localeID := c.LocaleID
		entities, err := w.ListEntities(ctx, EntityFilter{DefinitionCode: def.Code, LocaleID: &localeID})
		if err != nil {
			return err
		}
		known := make(map[int]bool, len(entities))
		for _, e := range entities {
			known[e.ID] = true
		}

		var errs cofoundry.ValidationErrors
		seen := make(map[int]bool, len(c.OrderedCustomEntityIDs))
		for _, id := range c.OrderedCustomEntityIDs {
			switch {
			case !known[id]:
				errs.Add("orderedCustomEntityIds", fmt.Sprintf("custom entity %d is not a %s in locale %d", id, def.Name, localeID))
			case seen[id]:
				errs.Add("orderedCustomEntityIds", fmt.Sprintf("custom entity %d is listed more than once", id))
			}
			seen[id] = true
		}
		if def.Ordering == cofoundry.OrderingFull && len(seen) != len(known) {
			errs.Add("orderedCustomEntityIds", fmt.Sprintf("every %s must be listed", def.Name))
		}
		if err := errs.ToError(); err != nil {
			return err
		}
		return applyOrdering(ctx, w, entities, c.OrderedCustomEntityIDs)
	})
	return cqs.Void{}, err
}

func (h *Handlers) updateOrderingPosition(ctx context.Context, c cofoundry.UpdateCustomEntityOrderingPositionCommand, ec *cqs.ExecutionContext) (cqs.Void, error) {
	err := h.store.WithTx(ctx, func(w Writer) error {
		entity, _, err := loadEntity(ctx, w, c.CustomEntityID)
		if err != nil {
			return err
		}
		if err := authorize(ec, entity.DefinitionCode, cqs.PermissionUpdate); err != nil {
			return err
		}
		def, err := h.definition(entity.DefinitionCode)
		if err != nil {
			return err
		}
		if !def.IsOrderable() {
			return orderingNotSupported(def)
		}
		switch {
		case c.OrderingPosition == nil && def.Ordering == cofoundry.OrderingFull:
			return cofoundry.NewValidationError("orderingPosition", fmt.Sprintf("is required for %s", def.NamePlural))
		case c.OrderingPosition != nil && *c.OrderingPosition < 1:
			return cofoundry.NewValidationError("orderingPosition", "must be 1 or greater")
		}
		if err := lockDefinition(ctx, w, def.Code, ec.ExecutionDate); err != nil {
			return err
		}

		localeID := entity.LocaleID
		entities, err := w.ListEntities(ctx, EntityFilter{DefinitionCode: def.Code, LocaleID: &localeID})
		if err != nil {
			return err
		}
		ids := orderedIDs(entities)
		rest := make([]int, 0, len(ids)+1)
		for _, id := range ids {
			if id != entity.ID {
				rest = append(rest, id)
			}
		}
		if c.OrderingPosition != nil {
			at := min(*c.OrderingPosition-1, len(rest))
			rest = append(rest[:at], append([]int{entity.ID}, rest[at:]...)...)
		}
		return applyOrdering(ctx, w, entities, rest)
	})
	return cqs.Void{}, err
}
