// Package scheduler materializes recurrence rules into ledger
// transactions. Each rule keeps a cursor (the earliest period not yet
// materialized); a catch-up run walks the cursor forward one period at a
// time until it passes today, committing each step atomically so a crash
// can never double-post or skip a period.
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"moneymap/internal/core"
	"moneymap/internal/ledger"
	"moneymap/internal/log"
	"moneymap/internal/storage"
)

type Processor struct {
	store  *storage.Store
	logger *log.Logger
}

func NewProcessor(store *storage.Store, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Processor{
		store:  store,
		logger: logger.WithComponent(log.ComponentScheduler),
	}
}

// ProcessOwner runs a catch-up for every due rule of the owner as of the
// current day.
func (p *Processor) ProcessOwner(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	return p.ProcessDue(ctx, ownerID, core.DateOf(time.Now().UTC()))
}

// ProcessDue materializes every active rule of the owner whose cursor is
// on or before today, and returns the transactions it created. Running it
// twice with the same today is a no-op the second time.
func (p *Processor) ProcessDue(ctx context.Context, ownerID string, today core.Date) ([]core.Transaction, error) {
	rules, err := p.store.Queries().ListDueRecurrences(ctx, ownerID, today)
	if err != nil {
		return nil, err
	}

	var materialized []core.Transaction
	for _, rule := range rules {
		created, err := p.catchUp(ctx, rule, today)
		if err != nil {
			return materialized, err
		}
		materialized = append(materialized, created...)
	}

	if len(materialized) > 0 {
		p.logger.InfoContext(ctx, "recurrences processed",
			log.FieldOwnerID, ownerID,
			log.FieldCount, len(materialized),
			log.FieldDate, today.String())
	}
	return materialized, nil
}

// catchUp walks one rule's cursor forward to today. Every iteration
// commits the transaction row, the balance delta, the advanced cursor and
// the bumped count in a single unit of work.
func (p *Processor) catchUp(ctx context.Context, rule core.Recurrence, today core.Date) ([]core.Transaction, error) {
	var created []core.Transaction

	cursor := rule.NextOccurrence
	count := rule.OccurrencesCount

	for !cursor.After(today.Time) {
		if rule.OccurrencesLimit > 0 && count >= rule.OccurrencesLimit {
			break
		}
		if !rule.EndDate.IsZero() && cursor.After(rule.EndDate.Time) {
			break
		}

		t := core.Transaction{
			ID:           uuid.NewString(),
			AccountID:    rule.AccountID,
			CategoryID:   rule.CategoryID,
			RecurrenceID: rule.ID,
			Kind:         rule.Kind,
			Amount:       rule.Amount,
			Description:  rule.Description,
			Date:         cursor,
			CreatedAt:    time.Now().UTC(),
		}
		next := core.NextOccurrence(cursor, rule.Frequency)

		err := p.store.InTx(ctx, func(q *storage.Queries) error {
			if err := q.InsertTransaction(ctx, t); err != nil {
				return err
			}
			if err := ledger.ApplyDeltas(ctx, q, ledger.BalanceDeltas(t)); err != nil {
				return err
			}
			return q.AdvanceRecurrenceCursor(ctx, rule.ID, next, count+1)
		})
		if err != nil {
			return created, err
		}

		created = append(created, t)
		count++
		cursor = next

		p.logger.DebugContext(ctx, "recurrence materialized",
			log.FieldRecurrenceID, rule.ID,
			log.FieldTrxID, t.ID,
			log.FieldDate, t.Date.String(),
			log.FieldCursor, cursor.String(),
			log.FieldCount, count)
	}

	if p.exhausted(rule, cursor, count) {
		if err := p.store.Queries().DeactivateRecurrence(ctx, rule.ID); err != nil {
			return created, err
		}
		p.logger.InfoContext(ctx, "recurrence exhausted",
			log.FieldRecurrenceID, rule.ID,
			log.FieldFrequency, string(rule.Frequency),
			log.FieldCount, count)
	}

	return created, nil
}

// exhausted reports whether the rule can never fire again: the occurrence
// limit is used up, or the cursor has moved past the end date.
func (p *Processor) exhausted(rule core.Recurrence, cursor core.Date, count int) bool {
	if rule.OccurrencesLimit > 0 && count >= rule.OccurrencesLimit {
		return true
	}
	if !rule.EndDate.IsZero() && cursor.After(rule.EndDate.Time) {
		return true
	}
	return false
}
