// Package advance tracks interpersonal loans until they are repaid. Every
// advance mutation is mirrored into the ledger through a bookkeeping
// category, so account balances always reflect money currently out on
// loan. Status is derived, never set directly: pending until the first
// payment, partial while 0 < received < amount, paid at received == amount.
package advance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"moneymap/internal/core"
	"moneymap/internal/events"
	"moneymap/internal/ledger"
	"moneymap/internal/log"
	"moneymap/internal/storage"
)

type Service struct {
	store  *storage.Store
	events *events.Client
	logger *log.Logger
}

// PaymentResult describes one applied repayment: the advance after the
// payment, how much was paid, what is still outstanding, and the mirrored
// transaction when one was written.
type PaymentResult struct {
	Advance       core.Advance
	Payment       core.Money
	Remaining     core.Money
	FullyPaid     bool
	TransactionID string
}

// NewService wires the advance tracker. events may be nil.
func NewService(store *storage.Store, evts *events.Client, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Service{
		store:  store,
		events: evts,
		logger: logger.WithComponent(log.ComponentAdvance),
	}
}

// EnsureCategories provisions the four bookkeeping categories an owner
// needs before advances can be recorded. Existing ones are left alone.
func (s *Service) EnsureCategories(ctx context.Context, ownerID string) error {
	wanted := []struct {
		name string
		kind core.CategoryKind
	}{
		{core.CategoryAdvancesGiven, core.CategoryExpense},
		{core.CategoryRepayments, core.CategoryIncome},
		{core.CategoryBorrowings, core.CategoryIncome},
		{core.CategoryLoanRepayment, core.CategoryExpense},
	}
	for _, w := range wanted {
		_, err := s.store.Queries().FindCategoryByName(ctx, ownerID, w.name, w.kind)
		if err == nil {
			continue
		}
		if !errors.Is(err, core.ErrNotFound) {
			return err
		}
		err = s.store.Queries().CreateCategory(ctx, core.Category{
			ID:      uuid.NewString(),
			OwnerID: ownerID,
			Name:    w.name,
			Kind:    w.kind,
		})
		if err != nil {
			return fmt.Errorf("provision category %q: %w", w.name, err)
		}
	}
	return nil
}

// Create records a new advance together with its mirrored transaction:
// money given out is an expense, money borrowed is an income. The advance
// row, the transaction and the balance delta commit atomically. With
// skipTransaction the ledger side is left untouched, for advances whose
// movement was already booked some other way.
func (s *Service) Create(ctx context.Context, a core.Advance, skipTransaction bool) (core.Advance, error) {
	if !a.Amount.IsPositive() {
		return core.Advance{}, fmt.Errorf("%w: advance amount must be positive", core.ErrInvalidArgument)
	}
	if strings.TrimSpace(a.Person) == "" {
		return core.Advance{}, fmt.Errorf("%w: person is required", core.ErrInvalidArgument)
	}
	if !core.ValidDirection(a.Direction) {
		return core.Advance{}, fmt.Errorf("%w: unknown direction %q", core.ErrInvalidArgument, a.Direction)
	}
	if a.Date.IsZero() {
		return core.Advance{}, fmt.Errorf("%w: advance date is required", core.ErrInvalidArgument)
	}
	account, err := s.store.Queries().GetAccount(ctx, a.AccountID)
	if err != nil {
		return core.Advance{}, err
	}
	if account.OwnerID != a.OwnerID {
		return core.Advance{}, fmt.Errorf("account %s: %w", a.AccountID, core.ErrNotFound)
	}

	a.ID = uuid.NewString()
	a.Status = core.AdvancePending
	a.AmountReceived = core.Money{}

	if skipTransaction {
		if err := s.store.Queries().CreateAdvance(ctx, a); err != nil {
			return core.Advance{}, err
		}
		s.logger.InfoContext(ctx, "advance created without ledger entry",
			log.FieldAdvanceID, a.ID,
			log.FieldOwnerID, a.OwnerID,
			log.FieldAmountCents, a.Amount.Cents,
			"direction", string(a.Direction))
		return a, nil
	}

	var categoryName, description string
	var kind core.TransactionKind
	var categoryKind core.CategoryKind
	if a.Direction == core.Given {
		kind = core.Expense
		categoryName = core.CategoryAdvancesGiven
		categoryKind = core.CategoryExpense
		description = fmt.Sprintf("Advance to %s", a.Person)
	} else {
		kind = core.Income
		categoryName = core.CategoryBorrowings
		categoryKind = core.CategoryIncome
		description = fmt.Sprintf("Borrowed from %s", a.Person)
	}
	category, err := s.bookkeepingCategory(ctx, a.OwnerID, categoryName, categoryKind)
	if err != nil {
		return core.Advance{}, err
	}

	t := core.Transaction{
		ID:          uuid.NewString(),
		AccountID:   a.AccountID,
		CategoryID:  category.ID,
		Kind:        kind,
		Amount:      a.Amount,
		Description: description,
		Date:        a.Date,
		CreatedAt:   time.Now().UTC(),
	}
	a.TransactionID = t.ID

	err = s.store.InTx(ctx, func(q *storage.Queries) error {
		if err := q.InsertTransaction(ctx, t); err != nil {
			return err
		}
		if err := ledger.ApplyDeltas(ctx, q, ledger.BalanceDeltas(t)); err != nil {
			return err
		}
		return q.CreateAdvance(ctx, a)
	})
	if err != nil {
		return core.Advance{}, err
	}

	s.logger.InfoContext(ctx, "advance created",
		log.FieldAdvanceID, a.ID,
		log.FieldOwnerID, a.OwnerID,
		log.FieldAmountCents, a.Amount.Cents,
		"direction", string(a.Direction))

	s.publish(ctx, t.ID, a.OwnerID)
	return a, nil
}

// RecordPayment applies a repayment to an advance. A payment on a paid
// advance is a conflict, a non-positive payment is invalid, and a payment
// that would push received past the total is rejected before anything is
// written. The mirrored transaction flows the opposite way of the
// original: repayments of money given come in as income, repayments of
// money borrowed go out as expense. With skipTransaction only the
// advance's received amount and status move.
func (s *Service) RecordPayment(ctx context.Context, ownerID, advanceID string, payment core.Money, date core.Date, skipTransaction bool) (PaymentResult, error) {
	a, err := s.store.Queries().GetAdvance(ctx, advanceID)
	if err != nil {
		return PaymentResult{}, err
	}
	if a.OwnerID != ownerID {
		return PaymentResult{}, fmt.Errorf("advance %s: %w", advanceID, core.ErrNotFound)
	}
	if a.Status == core.AdvancePaid {
		return PaymentResult{}, fmt.Errorf("%w: advance is already paid", core.ErrConflictingState)
	}
	if !payment.IsPositive() {
		return PaymentResult{}, fmt.Errorf("%w: payment must be positive", core.ErrInvalidArgument)
	}
	newReceived := a.AmountReceived.Add(payment)
	if newReceived.Cents > a.Amount.Cents {
		return PaymentResult{}, fmt.Errorf("%w: payment exceeds the outstanding amount", core.ErrInvalidArgument)
	}
	if date.IsZero() {
		date = core.DateOf(time.Now().UTC())
	}
	status := core.AdvanceStatusFor(newReceived, a.Amount)

	if skipTransaction {
		if err := s.store.Queries().UpdateAdvancePayment(ctx, advanceID, newReceived, status); err != nil {
			return PaymentResult{}, err
		}
		a.AmountReceived = newReceived
		a.Status = status
		s.logger.InfoContext(ctx, "advance payment recorded without ledger entry",
			log.FieldAdvanceID, advanceID,
			log.FieldAmountCents, payment.Cents,
			log.FieldStatus, string(status))
		return PaymentResult{
			Advance:   a,
			Payment:   payment,
			Remaining: a.Amount.Sub(newReceived),
			FullyPaid: status == core.AdvancePaid,
		}, nil
	}

	var categoryName, description string
	var kind core.TransactionKind
	var categoryKind core.CategoryKind
	if a.Direction == core.Given {
		kind = core.Income
		categoryName = core.CategoryRepayments
		categoryKind = core.CategoryIncome
		description = fmt.Sprintf("Repayment from %s", a.Person)
	} else {
		kind = core.Expense
		categoryName = core.CategoryLoanRepayment
		categoryKind = core.CategoryExpense
		description = fmt.Sprintf("Repayment to %s", a.Person)
	}
	category, err := s.bookkeepingCategory(ctx, ownerID, categoryName, categoryKind)
	if err != nil {
		return PaymentResult{}, err
	}

	t := core.Transaction{
		ID:          uuid.NewString(),
		AccountID:   a.AccountID,
		CategoryID:  category.ID,
		Kind:        kind,
		Amount:      payment,
		Description: description,
		Date:        date,
		CreatedAt:   time.Now().UTC(),
	}

	err = s.store.InTx(ctx, func(q *storage.Queries) error {
		if err := q.InsertTransaction(ctx, t); err != nil {
			return err
		}
		if err := ledger.ApplyDeltas(ctx, q, ledger.BalanceDeltas(t)); err != nil {
			return err
		}
		return q.UpdateAdvancePayment(ctx, advanceID, newReceived, status)
	})
	if err != nil {
		return PaymentResult{}, err
	}

	a.AmountReceived = newReceived
	a.Status = status

	s.logger.InfoContext(ctx, "advance payment recorded",
		log.FieldAdvanceID, advanceID,
		log.FieldAmountCents, payment.Cents,
		log.FieldStatus, string(status))

	s.publish(ctx, t.ID, ownerID)
	return PaymentResult{
		Advance:       a,
		Payment:       payment,
		Remaining:     a.Amount.Sub(newReceived),
		FullyPaid:     status == core.AdvancePaid,
		TransactionID: t.ID,
	}, nil
}

// Summary groups the owner's open positions by person plus overall
// totals: money still owed to them (given) and money they still owe
// (received).
type Summary struct {
	ByPerson []storage.AdvancePersonSummary
	Totals   storage.AdvanceTotals
}

// Summarize aggregates the owner's advances, optionally restricted to one
// direction. Paid advances are excluded from the per-person breakdown but
// counted in the totals.
func (s *Service) Summarize(ctx context.Context, ownerID string, direction core.AdvanceDirection) (Summary, error) {
	if direction != "" && !core.ValidDirection(direction) {
		return Summary{}, fmt.Errorf("%w: unknown direction %q", core.ErrInvalidArgument, direction)
	}
	byPerson, err := s.store.Queries().SummarizeAdvancesByPerson(ctx, ownerID, direction)
	if err != nil {
		return Summary{}, err
	}
	totals, err := s.store.Queries().SummarizeAdvanceTotals(ctx, ownerID, direction)
	if err != nil {
		return Summary{}, err
	}
	return Summary{ByPerson: byPerson, Totals: totals}, nil
}

// bookkeepingCategory resolves one of the advance categories, translating
// absence into a missing dependency so callers know to run
// EnsureCategories.
func (s *Service) bookkeepingCategory(ctx context.Context, ownerID, name string, kind core.CategoryKind) (core.Category, error) {
	category, err := s.store.Queries().FindCategoryByName(ctx, ownerID, name, kind)
	if errors.Is(err, core.ErrNotFound) {
		return core.Category{}, fmt.Errorf("bookkeeping category %q: %w", name, core.ErrMissingDependency)
	}
	if err != nil {
		return core.Category{}, err
	}
	return category, nil
}

func (s *Service) publish(ctx context.Context, trxID, ownerID string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, events.NewLedgerEvent(trxID, ownerID, events.ActionCreated)); err != nil {
		s.logger.WarnContext(ctx, "publish ledger event failed",
			log.FieldTrxID, trxID,
			log.FieldError, err)
	}
}
