package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/markchipman/cofoundry"
	"github.com/markchipman/cofoundry/cqs"
	"go.uber.org/zap"
)

func (h *Handlers) addCustomEntity(ctx context.Context, c cofoundry.AddCustomEntityCommand, ec *cqs.ExecutionContext) (int, error) {
	def, err := h.definition(c.CustomEntityDefinitionCode)
	if err != nil {
		return 0, err
	}
	if err := authorize(ec, def.Code, cqs.PermissionCreate); err != nil {
		return 0, err
	}
	publish := c.Publish || def.AutoPublish
	if publish {
		if err := authorize(ec, def.Code, cqs.PermissionPublish); err != nil {
			return 0, err
		}
	}

	var errs cofoundry.ValidationErrors
	title := h.validateTitle(c.Title, &errs)
	slug := h.normalizeUrlSlug(def, c.UrlSlug, title, &errs)
	validateLocale(def, c.LocaleID, &errs)
	if err := errs.ToError(); err != nil {
		return 0, err
	}
	if err := h.validator.Validate(def.Code, c.Model); err != nil {
		return 0, err
	}
	model, err := h.validator.Normalize(c.Model)
	if err != nil {
		return 0, err
	}

	now := ec.ExecutionDate
	var id int
	err = h.store.WithTx(ctx, func(w Writer) error {
		if err := lockDefinition(ctx, w, def.Code, now); err != nil {
			return err
		}
		if err := h.ensureUniquePath(ctx, w, def, c.LocaleID, slug, 0); err != nil {
			return err
		}

		entity := EntityRecord{
			DefinitionCode: def.Code,
			LocaleID:       c.LocaleID,
			UrlSlug:        slug,
			PublishStatus:  cofoundry.PublishStatusUnpublished,
			CreateDate:     now,
			CreatorID:      ec.UserID(),
		}
		status := cofoundry.WorkFlowStatusDraft
		if publish {
			status = cofoundry.WorkFlowStatusPublished
			entity.PublishStatus = cofoundry.PublishStatusPublished
			entity.PublishDate = publishDateOr(c.PublishDate, now)
		}
		if def.Ordering == cofoundry.OrderingFull {
			next, err := nextOrdering(ctx, w, def.Code, c.LocaleID)
			if err != nil {
				return err
			}
			entity.Ordering = &next
		}

		var err error
		if id, err = w.InsertEntity(ctx, entity); err != nil {
			return err
		}
		_, err = w.InsertVersion(ctx, VersionRecord{
			EntityID:       id,
			Title:          title,
			WorkFlowStatus: status,
			Model:          model,
			CreateDate:     now,
			CreatorID:      ec.UserID(),
		})
		return err
	})
	if err != nil {
		return 0, err
	}

	zap.S().Infow("custom entity added", "definition", def.Code, "id", id, "published", publish)
	return id, nil
}

// lockDefinition records the definition if needed and locks it for the rest
// of the transaction.
func lockDefinition(ctx context.Context, w Writer, code string, now time.Time) error {
	if err := w.InsertDefinition(ctx, code, now); err != nil {
		return err
	}
	return w.LockDefinition(ctx, code)
}

func publishDateOr(requested *time.Time, now time.Time) *time.Time {
	if requested != nil {
		t := requested.UTC()
		return &t
	}
	return &now
}

// nextOrdering returns the position after the last ordered entity.
func nextOrdering(ctx context.Context, r Reader, definitionCode string, localeID int) (int, error) {
	entities, err := r.ListEntities(ctx, EntityFilter{DefinitionCode: definitionCode, LocaleID: &localeID})
	if err != nil {
		return 0, fmt.Errorf("load ordering: %w", err)
	}
	next := 1
	for _, e := range entities {
		if e.Ordering != nil && *e.Ordering >= next {
			next = *e.Ordering + 1
		}
	}
	return next, nil
}

func (h *Handlers) deleteCustomEntity(ctx context.Context, c cofoundry.DeleteCustomEntityCommand, ec *cqs.ExecutionContext) (cqs.Void, error) {
	err := h.store.WithTx(ctx, func(w Writer) error {
		entity, ok, err := w.GetEntity(ctx, c.CustomEntityID)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := authorize(ec, entity.DefinitionCode, cqs.PermissionDelete); err != nil {
			return err
		}
		if err := w.DeleteEntity(ctx, entity.ID); err != nil {
			return err
		}
		zap.S().Infow("custom entity deleted", "definition", entity.DefinitionCode, "id", entity.ID)
		return nil
	})
	return cqs.Void{}, err
}

func (h *Handlers) updateCustomEntityUrl(ctx context.Context, c cofoundry.UpdateCustomEntityUrlCommand, ec *cqs.ExecutionContext) (cqs.Void, error) {
	err := h.store.WithTx(ctx, func(w Writer) error {
		entity, versions, err := loadEntity(ctx, w, c.CustomEntityID)
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

		if err := lockDefinition(ctx, w, def.Code, ec.ExecutionDate); err != nil {
			return err
		}

		title := ""
		if v, ok := versionSet(versions).latest(); ok {
			title = v.Title
		}
		var errs cofoundry.ValidationErrors
		slug := h.normalizeUrlSlug(def, c.UrlSlug, title, &errs)
		validateLocale(def, c.LocaleID, &errs)
		if err := errs.ToError(); err != nil {
			return err
		}
		if err := h.ensureUniquePath(ctx, w, def, c.LocaleID, slug, entity.ID); err != nil {
			return err
		}

		if entity.LocaleID != c.LocaleID && def.Ordering == cofoundry.OrderingFull {
			next, err := nextOrdering(ctx, w, def.Code, c.LocaleID)
			if err != nil {
				return err
			}
			entity.Ordering = &next
		} else if entity.LocaleID != c.LocaleID {
			entity.Ordering = nil
		}
		entity.UrlSlug = slug
		entity.LocaleID = c.LocaleID
		return w.UpdateEntity(ctx, entity)
	})
	return cqs.Void{}, err
}

func (h *Handlers) ensureDefinitionExists(ctx context.Context, c cofoundry.EnsureCustomEntityDefinitionExistsCommand, ec *cqs.ExecutionContext) (cqs.Void, error) {
	def, err := h.definition(c.CustomEntityDefinitionCode)
	if err != nil {
		return cqs.Void{}, err
	}
	err = h.store.WithTx(ctx, func(w Writer) error {
		return w.InsertDefinition(ctx, def.Code, ec.ExecutionDate)
	})
	return cqs.Void{}, err
}

// ============================================================================
// Publishing
// ============================================================================

// publishEntity promotes the draft, or republishes an unpublished entity.
func publishEntity(ctx context.Context, w Writer, entity EntityRecord, versions versionSet, requested *time.Time, now time.Time) error {
	draft, hasDraft := versions.draft()
	_, hasPublished := versions.latestPublished()

	switch {
	case hasDraft:
		draft.WorkFlowStatus = cofoundry.WorkFlowStatusPublished
		if err := w.UpdateVersion(ctx, draft); err != nil {
			return err
		}
	case !hasPublished:
		return cofoundry.NewBusinessRuleViolation(cofoundry.ErrCodeNoPublishedVersion,
			fmt.Sprintf("custom entity %d has no version to publish", entity.ID))
	case entity.PublishStatus == cofoundry.PublishStatusPublished:
		return cofoundry.NewBusinessRuleViolation(cofoundry.ErrCodeAlreadyPublished,
			fmt.Sprintf("custom entity %d is already published", entity.ID))
	}

	entity.PublishStatus = cofoundry.PublishStatusPublished
	if requested != nil || entity.PublishDate == nil {
		entity.PublishDate = publishDateOr(requested, now)
	}
	return w.UpdateEntity(ctx, entity)
}

func (h *Handlers) publishCustomEntity(ctx context.Context, c cofoundry.PublishCustomEntityCommand, ec *cqs.ExecutionContext) (cqs.Void, error) {
	err := h.store.WithTx(ctx, func(w Writer) error {
		entity, versions, err := loadEntity(ctx, w, c.CustomEntityID)
		if err != nil {
			return err
		}
		if err := authorize(ec, entity.DefinitionCode, cqs.PermissionPublish); err != nil {
			return err
		}
		sortVersions(versions)
		return publishEntity(ctx, w, entity, versions, c.PublishDate, ec.ExecutionDate)
	})
	return cqs.Void{}, err
}

func (h *Handlers) unPublishCustomEntity(ctx context.Context, c cofoundry.UnPublishCustomEntityCommand, ec *cqs.ExecutionContext) (cqs.Void, error) {
	err := h.store.WithTx(ctx, func(w Writer) error {
		entity, _, err := loadEntity(ctx, w, c.CustomEntityID)
		if err != nil {
			return err
		}
		if err := authorize(ec, entity.DefinitionCode, cqs.PermissionPublish); err != nil {
			return err
		}
		if entity.PublishStatus == cofoundry.PublishStatusUnpublished {
			return nil
		}
		entity.PublishStatus = cofoundry.PublishStatusUnpublished
		return w.UpdateEntity(ctx, entity)
	})
	return cqs.Void{}, err
}
