// Package ledger is the single write path for transactions. Every create
// co-commits the transaction row with the signed balance deltas it implies,
// and every delete reverses exactly the deltas the create applied. Account
// balances are caches; this package is the only code allowed to move them.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"moneymap/internal/core"
	"moneymap/internal/events"
	"moneymap/internal/log"
	"moneymap/internal/storage"
)

// Delta is a signed balance effect on one account.
type Delta struct {
	AccountID string
	Cents     int64
}

// BalanceDeltas returns the balance effects of applying t. Income credits
// the source account, expense debits it, transfer debits the source and
// credits the target for the same amount.
func BalanceDeltas(t core.Transaction) []Delta {
	switch t.Kind {
	case core.Income:
		return []Delta{{AccountID: t.AccountID, Cents: t.Amount.Cents}}
	case core.Expense:
		return []Delta{{AccountID: t.AccountID, Cents: -t.Amount.Cents}}
	case core.Transfer:
		return []Delta{
			{AccountID: t.AccountID, Cents: -t.Amount.Cents},
			{AccountID: t.TargetAccountID, Cents: t.Amount.Cents},
		}
	}
	return nil
}

// ApplyDeltas writes a set of balance effects through q. Shared with the
// scheduler so materialized transactions move balances the same way manual
// ones do.
func ApplyDeltas(ctx context.Context, q *storage.Queries, deltas []Delta) error {
	for _, d := range deltas {
		if err := q.AdjustAccountBalance(ctx, d.AccountID, d.Cents); err != nil {
			return err
		}
	}
	return nil
}

func reverse(deltas []Delta) []Delta {
	out := make([]Delta, len(deltas))
	for i, d := range deltas {
		out[i] = Delta{AccountID: d.AccountID, Cents: -d.Cents}
	}
	return out
}

type Engine struct {
	store  *storage.Store
	events *events.Client
	logger *log.Logger
	locks  *accountLocks
}

// NewEngine wires the write path. events may be nil when messaging is not
// configured.
func NewEngine(store *storage.Store, evts *events.Client, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Engine{
		store:  store,
		events: evts,
		logger: logger.WithComponent(log.ComponentLedger),
		locks:  newAccountLocks(),
	}
}

// CreateTransaction validates, persists and applies a transaction for the
// given owner. The row insert and the balance deltas commit atomically.
func (e *Engine) CreateTransaction(ctx context.Context, ownerID string, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if !t.Amount.IsPositive() {
		return core.Transaction{}, fmt.Errorf("%w: amount must be positive", core.ErrInvalidArgument)
	}

	if err := e.checkAccounts(ctx, ownerID, t); err != nil {
		return core.Transaction{}, err
	}
	if t.CategoryID != "" {
		cat, err := e.store.Queries().GetCategory(ctx, t.CategoryID)
		if err != nil {
			return core.Transaction{}, err
		}
		if cat.OwnerID != ownerID {
			return core.Transaction{}, fmt.Errorf("category %s: %w", t.CategoryID, core.ErrNotFound)
		}
	}

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	release := e.locks.acquire(t.AccountID, t.TargetAccountID)
	defer release()

	err := e.store.InTx(ctx, func(q *storage.Queries) error {
		if err := q.InsertTransaction(ctx, t); err != nil {
			return err
		}
		return ApplyDeltas(ctx, q, BalanceDeltas(t))
	})
	if err != nil {
		return core.Transaction{}, err
	}

	e.logger.InfoContext(ctx, "transaction applied",
		log.FieldTrxID, t.ID,
		log.FieldKind, string(t.Kind),
		log.FieldAccountID, t.AccountID,
		log.FieldAmountCents, t.Amount.Cents,
		log.FieldDate, t.Date.String())

	e.publish(ctx, t.ID, ownerID, events.ActionCreated)
	return t, nil
}

// DeleteTransaction removes a transaction and reverses its balance effects
// in the same unit of work.
func (e *Engine) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	t, err := e.store.Queries().GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	account, err := e.store.Queries().GetAccount(ctx, t.AccountID)
	if err != nil {
		return err
	}
	if account.OwnerID != ownerID {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}

	release := e.locks.acquire(t.AccountID, t.TargetAccountID)
	defer release()

	err = e.store.InTx(ctx, func(q *storage.Queries) error {
		if err := ApplyDeltas(ctx, q, reverse(BalanceDeltas(t))); err != nil {
			return err
		}
		return q.DeleteTransactionRow(ctx, id)
	})
	if err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "transaction reversed",
		log.FieldTrxID, id,
		log.FieldKind, string(t.Kind),
		log.FieldAccountID, t.AccountID,
		log.FieldAmountCents, t.Amount.Cents)

	e.publish(ctx, id, ownerID, events.ActionDeleted)
	return nil
}

func (e *Engine) checkAccounts(ctx context.Context, ownerID string, t core.Transaction) error {
	source, err := e.store.Queries().GetAccount(ctx, t.AccountID)
	if err != nil {
		return err
	}
	if source.OwnerID != ownerID {
		return fmt.Errorf("account %s: %w", t.AccountID, core.ErrNotFound)
	}
	if t.Kind == core.Transfer {
		target, err := e.store.Queries().GetAccount(ctx, t.TargetAccountID)
		if err != nil {
			return err
		}
		if target.OwnerID != ownerID {
			return fmt.Errorf("account %s: %w", t.TargetAccountID, core.ErrNotFound)
		}
	}
	return nil
}

// publish is best effort; a messaging failure never fails the write that
// already committed.
func (e *Engine) publish(ctx context.Context, trxID, ownerID, action string) {
	if e.events == nil {
		return
	}
	if err := e.events.PublishLedgerEvent(ctx, events.NewLedgerEvent(trxID, ownerID, action)); err != nil {
		e.logger.WarnContext(ctx, "publish ledger event failed",
			log.FieldTrxID, trxID,
			log.FieldError, err)
	}
}
