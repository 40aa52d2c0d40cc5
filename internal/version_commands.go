package internal

import (
	"context"
	"fmt"

	"github.com/markchipman/cofoundry"
	"github.com/markchipman/cofoundry/cqs"
)

// createDraftFrom copies source and its page blocks into a new draft version.
func createDraftFrom(ctx context.Context, w Writer, source VersionRecord, ec *cqs.ExecutionContext) (VersionRecord, error) {
	draft := VersionRecord{
		EntityID:       source.EntityID,
		Title:          source.Title,
		WorkFlowStatus: cofoundry.WorkFlowStatusDraft,
		Model:          cloneModel(source.Model),
		CreateDate:     ec.ExecutionDate,
		CreatorID:      ec.UserID(),
	}
	id, err := w.InsertVersion(ctx, draft)
	if err != nil {
		return VersionRecord{}, err
	}
	draft.ID = id

	blocks, err := w.ListPageBlocks(ctx, source.ID)
	if err != nil {
		return VersionRecord{}, err
	}
	for _, b := range blocks {
		b.ID = 0
		b.VersionID = id
		b.CreateDate = ec.ExecutionDate
		b.CreatorID = ec.UserID()
		if _, err := w.InsertPageBlock(ctx, b); err != nil {
			return VersionRecord{}, err
		}
	}
	return draft, nil
}

func (h *Handlers) addDraftVersion(ctx context.Context, c cofoundry.AddCustomEntityDraftVersionCommand, ec *cqs.ExecutionContext) (int, error) {
	var id int
	err := h.store.WithTx(ctx, func(w Writer) error {
		entity, versions, err := loadEntity(ctx, w, c.CustomEntityID)
		if err != nil {
			return err
		}
		if err := authorize(ec, entity.DefinitionCode, cqs.PermissionUpdate); err != nil {
			return err
		}
		sortVersions(versions)
		vs := versionSet(versions)
		if _, ok := vs.draft(); ok {
			return cofoundry.NewBusinessRuleViolation(cofoundry.ErrCodeDraftAlreadyExists,
				fmt.Sprintf("custom entity %d already has a draft version", entity.ID))
		}
		source, ok := vs.latestPublished()
		if !ok {
			return cofoundry.NewBusinessRuleViolation(cofoundry.ErrCodeNoPublishedVersion,
				fmt.Sprintf("custom entity %d has no published version to copy", entity.ID))
		}
		draft, err := createDraftFrom(ctx, w, source, ec)
		if err != nil {
			return err
		}
		id = draft.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (h *Handlers) updateDraftVersion(ctx context.Context, c cofoundry.UpdateCustomEntityDraftVersionCommand, ec *cqs.ExecutionContext) (cqs.Void, error) {
	err := h.store.WithTx(ctx, func(w Writer) error {
		entity, versions, err := loadEntity(ctx, w, c.CustomEntityID)
		if err != nil {
			return err
		}
		if err := authorize(ec, entity.DefinitionCode, cqs.PermissionUpdate); err != nil {
			return err
		}
		if c.Publish {
			if err := authorize(ec, entity.DefinitionCode, cqs.PermissionPublish); err != nil {
				return err
			}
		}
		if code := cofoundry.NormalizeDefinitionCode(c.CustomEntityDefinitionCode); code != "" && code != entity.DefinitionCode {
			return cofoundry.NewValidationError("customEntityDefinitionCode",
				fmt.Sprintf("custom entity %d belongs to definition %s", entity.ID, entity.DefinitionCode))
		}
		var errs cofoundry.ValidationErrors
		title := h.validateTitle(c.Title, &errs)
		if err := errs.ToError(); err != nil {
			return err
		}
		if err := h.validator.Validate(entity.DefinitionCode, c.Model); err != nil {
			return err
		}
		model, err := h.validator.Normalize(c.Model)
		if err != nil {
			return err
		}

		sortVersions(versions)
		vs := versionSet(versions)
		draft, ok := vs.draft()
		if !ok {
			source, hasPublished := vs.latestPublished()
			if !hasPublished {
				return cofoundry.NewBusinessRuleViolation(cofoundry.ErrCodeNoPublishedVersion,
					fmt.Sprintf("custom entity %d has no version to copy", entity.ID))
			}
			if draft, err = createDraftFrom(ctx, w, source, ec); err != nil {
				return err
			}
			vs = append(vs, draft)
		}

		draft.Title = title
		draft.Model = model
		if err := w.UpdateVersion(ctx, draft); err != nil {
			return err
		}
		if !c.Publish {
			return nil
		}
		for i := range vs {
			if vs[i].ID == draft.ID {
				vs[i] = draft
			}
		}
		return publishEntity(ctx, w, entity, vs, c.PublishDate, ec.ExecutionDate)
	})
	return cqs.Void{}, err
}

func (h *Handlers) deleteDraftVersion(ctx context.Context, c cofoundry.DeleteCustomEntityDraftVersionCommand, ec *cqs.ExecutionContext) (cqs.Void, error) {
	err := h.store.WithTx(ctx, func(w Writer) error {
		entity, versions, err := loadEntity(ctx, w, c.CustomEntityID)
		if err != nil {
			return err
		}
		if err := authorize(ec, entity.DefinitionCode, cqs.PermissionUpdate); err != nil {
			return err
		}
		draft, ok := versionSet(versions).draft()
		if !ok {
			return nil
		}
		if len(versions) == 1 {
			return cofoundry.NewBusinessRuleViolation(cofoundry.ErrCodeOnlyVersion,
				fmt.Sprintf("the draft is the only version of custom entity %d; delete the entity instead", entity.ID))
		}
		return w.DeleteVersion(ctx, draft.ID)
	})
	return cqs.Void{}, err
}
