package internal

import (
	"context"
	"fmt"
	"strings"

	"github.com/markchipman/cofoundry"
	"github.com/markchipman/cofoundry/cqs"
)

// draftVersionForUpdate loads a version and its entity, requiring update
// permission and a draft workflow status.
func draftVersionForUpdate(ctx context.Context, r Reader, versionID int, ec *cqs.ExecutionContext) (VersionRecord, error) {
	version, ok, err := r.GetVersion(ctx, versionID)
	if err != nil {
		return VersionRecord{}, err
	}
	if !ok {
		return VersionRecord{}, cofoundry.NewNotFoundError(cofoundry.ErrCodeVersionNotFound,
			"custom entity version %d not found", versionID)
	}
	entity, ok, err := r.GetEntity(ctx, version.EntityID)
	if err != nil {
		return VersionRecord{}, err
	}
	if !ok {
		return VersionRecord{}, entityNotFound(version.EntityID)
	}
	if err := authorize(ec, entity.DefinitionCode, cqs.PermissionUpdate); err != nil {
		return VersionRecord{}, err
	}
	if version.WorkFlowStatus != cofoundry.WorkFlowStatusDraft {
		return VersionRecord{}, cofoundry.NewBusinessRuleViolation(cofoundry.ErrCodeVersionNotDraft,
			fmt.Sprintf("custom entity version %d is not a draft", versionID))
	}
	return version, nil
}

func pageBlockNotFound(id int) error {
	return cofoundry.NewNotFoundError(cofoundry.ErrCodePageBlockNotFound, "custom entity page block %d not found", id)
}

// regionBlocks returns the blocks of one version region in display order.
func regionBlocks(ctx context.Context, r Reader, versionID int, region string) ([]PageBlockRecord, error) {
	blocks, err := r.ListPageBlocks(ctx, versionID)
	if err != nil {
		return nil, err
	}
	out := blocks[:0]
	for _, b := range blocks {
		if b.RegionName == region {
			out = append(out, b)
		}
	}
	return out, nil
}

// renumberBlocks writes positions 1..n, skipping blocks already in place.
func renumberBlocks(ctx context.Context, w Writer, blocks []PageBlockRecord) error {
	for i, b := range blocks {
		if b.Ordering == i+1 {
			continue
		}
		b.Ordering = i + 1
		if err := w.UpdatePageBlock(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

func indexOfBlock(blocks []PageBlockRecord, id int) int {
	for i, b := range blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func (h *Handlers) addPageBlock(ctx context.Context, c cofoundry.AddCustomEntityVersionPageBlockCommand, ec *cqs.ExecutionContext) (int, error) {
	var errs cofoundry.ValidationErrors
	region := strings.TrimSpace(c.RegionName)
	blockType := strings.TrimSpace(c.BlockTypeCode)
	if region == "" {
		errs.Add("regionName", "is required")
	}
	if blockType == "" {
		errs.Add("blockTypeCode", "is required")
	}
	mode := c.InsertMode
	if mode == "" {
		mode = cofoundry.InsertModeLast
	}
	switch mode {
	case cofoundry.InsertModeLast, cofoundry.InsertModeFirst:
	case cofoundry.InsertModeBeforeItem, cofoundry.InsertModeAfterItem:
		if c.AdjacentVersionBlockID <= 0 {
			errs.Add("adjacentVersionBlockId", fmt.Sprintf("is required when inserting %s", mode))
		}
	default:
		errs.Add("insertMode", fmt.Sprintf("unknown insert mode %q", mode))
	}
	if err := errs.ToError(); err != nil {
		return 0, err
	}
	model, err := h.validator.Normalize(c.Model)
	if err != nil {
		return 0, err
	}

	var id int
	err = h.store.WithTx(ctx, func(w Writer) error {
		version, err := draftVersionForUpdate(ctx, w, c.CustomEntityVersionID, ec)
		if err != nil {
			return err
		}
		blocks, err := regionBlocks(ctx, w, version.ID, region)
		if err != nil {
			return err
		}

		at := len(blocks)
		switch mode {
		case cofoundry.InsertModeFirst:
			at = 0
		case cofoundry.InsertModeBeforeItem, cofoundry.InsertModeAfterItem:
			at = indexOfBlock(blocks, c.AdjacentVersionBlockID)
			if at < 0 {
				return cofoundry.NewValidationError("adjacentVersionBlockId",
					fmt.Sprintf("page block %d is not in region %q of version %d", c.AdjacentVersionBlockID, region, version.ID))
			}
			if mode == cofoundry.InsertModeAfterItem {
				at++
			}
		}

		block := PageBlockRecord{
			VersionID:     version.ID,
			RegionName:    region,
			BlockTypeCode: blockType,
			Ordering:      at + 1,
			Model:         model,
			CreateDate:    ec.ExecutionDate,
			CreatorID:     ec.UserID(),
		}
		if id, err = w.InsertPageBlock(ctx, block); err != nil {
			return err
		}
		block.ID = id

		ordered := make([]PageBlockRecord, 0, len(blocks)+1)
		ordered = append(ordered, blocks[:at]...)
		ordered = append(ordered, block)
		ordered = append(ordered, blocks[at:]...)
		return renumberBlocks(ctx, w, ordered)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (h *Handlers) updatePageBlock(ctx context.Context, c cofoundry.UpdateCustomEntityVersionPageBlockCommand, ec *cqs.ExecutionContext) (cqs.Void, error) {
	blockType := strings.TrimSpace(c.BlockTypeCode)
	if blockType == "" {
		return cqs.Void{}, cofoundry.NewValidationError("blockTypeCode", "is required")
	}
	model, err := h.validator.Normalize(c.Model)
	if err != nil {
		return cqs.Void{}, err
	}

	err = h.store.WithTx(ctx, func(w Writer) error {
		block, ok, err := w.GetPageBlock(ctx, c.CustomEntityVersionPageBlockID)
		if err != nil {
			return err
		}
		if !ok {
			return pageBlockNotFound(c.CustomEntityVersionPageBlockID)
		}
		if _, err := draftVersionForUpdate(ctx, w, block.VersionID, ec); err != nil {
			return err
		}
		block.BlockTypeCode = blockType
		block.Model = model
		return w.UpdatePageBlock(ctx, block)
	})
	return cqs.Void{}, err
}

func (h *Handlers) movePageBlock(ctx context.Context, c cofoundry.MoveCustomEntityVersionPageBlockCommand, ec *cqs.ExecutionContext) (cqs.Void, error) {
	if c.Direction != cofoundry.MoveUp && c.Direction != cofoundry.MoveDown {
		return cqs.Void{}, cofoundry.NewValidationError("direction", fmt.Sprintf("unknown direction %q", c.Direction))
	}

	err := h.store.WithTx(ctx, func(w Writer) error {
		block, ok, err := w.GetPageBlock(ctx, c.CustomEntityVersionPageBlockID)
		if err != nil {
			return err
		}
		if !ok {
			return pageBlockNotFound(c.CustomEntityVersionPageBlockID)
		}
		if _, err := draftVersionForUpdate(ctx, w, block.VersionID, ec); err != nil {
			return err
		}
		blocks, err := regionBlocks(ctx, w, block.VersionID, block.RegionName)
		if err != nil {
			return err
		}

		i := indexOfBlock(blocks, block.ID)
		j := i - 1
		if c.Direction == cofoundry.MoveDown {
			j = i + 1
		}
		if i < 0 || j < 0 || j >= len(blocks) {
			return nil
		}
		blocks[i], blocks[j] = blocks[j], blocks[i]
		return renumberBlocks(ctx, w, blocks)
	})
	return cqs.Void{}, err
}

func (h *Handlers) deletePageBlock(ctx context.Context, c cofoundry.DeleteCustomEntityVersionPageBlockCommand, ec *cqs.ExecutionContext) (cqs.Void, error) {
	err := h.store.WithTx(ctx, func(w Writer) error {
		block, ok, err := w.GetPageBlock(ctx, c.CustomEntityVersionPageBlockID)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if _, err := draftVersionForUpdate(ctx, w, block.VersionID, ec); err != nil {
			return err
		}
		if err := w.DeletePageBlock(ctx, block.ID); err != nil {
			return err
		}
		blocks, err := regionBlocks(ctx, w, block.VersionID, block.RegionName)
		if err != nil {
			return err
		}
		return renumberBlocks(ctx, w, blocks)
	})
	return cqs.Void{}, err
}
