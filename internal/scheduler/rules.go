package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"moneymap/internal/core"
	"moneymap/internal/log"
)

// CreateRule validates and persists a new recurrence rule. The cursor
// starts at the rule's start date, so the first materialization lands on
// the start date itself.
func (p *Processor) CreateRule(ctx context.Context, r core.Recurrence) (core.Recurrence, error) {
	if err := r.Validate(); err != nil {
		return core.Recurrence{}, err
	}

	account, err := p.store.Queries().GetAccount(ctx, r.AccountID)
	if err != nil {
		return core.Recurrence{}, err
	}
	if account.OwnerID != r.OwnerID {
		return core.Recurrence{}, fmt.Errorf("account %s: %w", r.AccountID, core.ErrNotFound)
	}
	if r.CategoryID != "" {
		cat, err := p.store.Queries().GetCategory(ctx, r.CategoryID)
		if err != nil {
			return core.Recurrence{}, err
		}
		if cat.OwnerID != r.OwnerID {
			return core.Recurrence{}, fmt.Errorf("category %s: %w", r.CategoryID, core.ErrNotFound)
		}
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.OccurrencesCount = 0
	r.NextOccurrence = r.StartDate
	r.IsActive = true

	if err := p.store.Queries().CreateRecurrence(ctx, r); err != nil {
		return core.Recurrence{}, err
	}

	p.logger.InfoContext(ctx, "recurrence rule created",
		log.FieldRecurrenceID, r.ID,
		log.FieldOwnerID, r.OwnerID,
		log.FieldFrequency, string(r.Frequency),
		log.FieldCursor, r.NextOccurrence.String())
	return r, nil
}

// ResetStart rewinds a rule to a new start date and reactivates it. The
// next catch-up re-materializes from the new start; transactions already
// created from the rule are not touched, so moving the start back over
// covered ground duplicates those periods. Callers are expected to warn.
func (p *Processor) ResetStart(ctx context.Context, ownerID, ruleID string, start core.Date) error {
	if start.IsZero() {
		return fmt.Errorf("%w: start date is required", core.ErrInvalidArgument)
	}
	rule, err := p.store.Queries().GetRecurrence(ctx, ruleID)
	if err != nil {
		return err
	}
	if rule.OwnerID != ownerID {
		return fmt.Errorf("recurrence %s: %w", ruleID, core.ErrNotFound)
	}
	if !rule.EndDate.IsZero() && rule.EndDate.Before(start.Time) {
		return fmt.Errorf("%w: start date is past the end date", core.ErrInvalidArgument)
	}

	if err := p.store.Queries().ResetRecurrenceStart(ctx, ruleID, start); err != nil {
		return err
	}
	p.logger.InfoContext(ctx, "recurrence start reset",
		log.FieldRecurrenceID, ruleID,
		log.FieldCursor, start.String())
	return nil
}

// Cancel deactivates a rule so it never materializes again.
func (p *Processor) Cancel(ctx context.Context, ownerID, ruleID string) error {
	rule, err := p.store.Queries().GetRecurrence(ctx, ruleID)
	if err != nil {
		return err
	}
	if rule.OwnerID != ownerID {
		return fmt.Errorf("recurrence %s: %w", ruleID, core.ErrNotFound)
	}
	return p.store.Queries().DeactivateRecurrence(ctx, ruleID)
}
