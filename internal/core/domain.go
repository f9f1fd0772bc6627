package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Transaction kinds. Transfer moves money between two accounts of the same
// owner; income and expense touch a single account.
const (
	Income   TransactionKind = "income"
	Expense  TransactionKind = "expense"
	Transfer TransactionKind = "transfer"
)

// Category kinds mirror the two non-transfer transaction kinds.
const (
	CategoryIncome  CategoryKind = "income"
	CategoryExpense CategoryKind = "expense"
)

// Recurrence frequencies.
const (
	Daily      Frequency = "daily"
	Weekly     Frequency = "weekly"
	Biweekly   Frequency = "biweekly"
	Monthly    Frequency = "monthly"
	Quarterly  Frequency = "quarterly"
	SemiAnnual Frequency = "semi_annual"
	Annual     Frequency = "annual"
)

// Advance directions: given = money lent out, received = money borrowed.
const (
	Given    AdvanceDirection = "given"
	Received AdvanceDirection = "received"
)

// Advance statuses, derived from amount received vs amount.
const (
	AdvancePending AdvanceStatus = "pending"
	AdvancePartial AdvanceStatus = "partial"
	AdvancePaid    AdvanceStatus = "paid"
)

type (
	TransactionKind  string
	CategoryKind     string
	Frequency        string
	AdvanceDirection string
	AdvanceStatus    string

	// Owner is the user all other entities are scoped to.
	Owner struct {
		ID        string
		Email     string
		FirstName string
		LastName  string
		CreatedAt time.Time
	}

	// Account holds a cached signed balance in cents. The balance is only
	// mutated by the ledger engine and must equal the sum of the signed
	// effects of every surviving transaction that touches the account.
	Account struct {
		ID        string
		OwnerID   string
		Name      string
		Type      string // checking, savings, cash, ...
		Balance   Money
		Currency  string
		Icon      string
		Color     string
		CreatedAt time.Time
	}

	// Category is a node in the owner-scoped category tree. ParentID is
	// empty for roots. A child's kind always equals its parent's kind.
	Category struct {
		ID        string
		OwnerID   string
		ParentID  string
		Name      string
		Kind      CategoryKind
		Icon      string
		Color     string
		IsDefault bool
	}

	// Transaction is the single leaf write of the system. TargetAccountID
	// is set if and only if Kind is Transfer. RecurrenceID is set when the
	// transaction was materialized from a recurrence rule.
	Transaction struct {
		ID              string
		AccountID       string
		TargetAccountID string
		CategoryID      string
		RecurrenceID    string
		Kind            TransactionKind
		Amount          Money
		Description     string
		Date            Date
		CreatedAt       time.Time
	}

	// Recurrence is a rule that materializes one transaction per period.
	// NextOccurrence is the cursor: the earliest period not yet
	// materialized. It never moves backward except through an explicit
	// start-date edit by the owner.
	Recurrence struct {
		ID               string
		OwnerID          string
		AccountID        string
		CategoryID       string
		Kind             TransactionKind
		Amount           Money
		Description      string
		Frequency        Frequency
		StartDate        Date
		EndDate          Date // zero value means no end date
		OccurrencesLimit int  // 0 means unlimited
		OccurrencesCount int
		NextOccurrence   Date
		IsActive         bool
	}

	// Budget binds a target amount to a category. The budget tree has at
	// most two levels and is independent from the category tree: spend is
	// always computed over the bound category plus its category-tree
	// descendants.
	Budget struct {
		ID             string
		OwnerID        string
		CategoryID     string
		ParentBudgetID string
		Target         Money
		DisplayOrder   int // 0 means unordered
	}

	// Advance is an interpersonal loan tracked until repaid.
	Advance struct {
		ID             string
		OwnerID        string
		AccountID      string
		Amount         Money
		Description    string
		Person         string
		Date           Date
		DueDate        Date // zero value means no due date
		Direction      AdvanceDirection
		Status         AdvanceStatus
		AmountReceived Money
		TransactionID  string
	}
)

// Error taxonomy. Concrete failures wrap one of these sentinels so callers
// can classify with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrConflictingState  = errors.New("conflicting state")
	ErrMissingDependency = errors.New("missing dependency")
)

// ValidFrequency reports whether f is one of the supported frequencies.
// Unknown frequencies would still advance (monthly fallback), but rule
// creation rejects them up front.
func ValidFrequency(f Frequency) bool {
	switch f {
	case Daily, Weekly, Biweekly, Monthly, Quarterly, SemiAnnual, Annual:
		return true
	}
	return false
}

func ValidTransactionKind(k TransactionKind) bool {
	return k == Income || k == Expense || k == Transfer
}

func ValidCategoryKind(k CategoryKind) bool {
	return k == CategoryIncome || k == CategoryExpense
}

func ValidDirection(d AdvanceDirection) bool {
	return d == Given || d == Received
}

// Validate checks the structural invariants of a transaction: the target
// account reference is present exactly for transfers and differs from the
// source. Amount sign is deliberately not checked here; that is the
// caller's responsibility.
func (t Transaction) Validate() error {
	if t.AccountID == "" {
		return fmt.Errorf("%w: source account is required", ErrInvalidArgument)
	}
	if !ValidTransactionKind(t.Kind) {
		return fmt.Errorf("%w: unknown transaction kind %q", ErrInvalidArgument, t.Kind)
	}
	if t.Kind == Transfer {
		if t.TargetAccountID == "" {
			return fmt.Errorf("%w: target account is required for a transfer", ErrInvalidArgument)
		}
		if t.TargetAccountID == t.AccountID {
			return fmt.Errorf("%w: target account must differ from source account", ErrInvalidArgument)
		}
	} else if t.TargetAccountID != "" {
		return fmt.Errorf("%w: target account is only allowed for transfers", ErrInvalidArgument)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: transaction date is required", ErrInvalidArgument)
	}
	return nil
}

// Validate checks a recurrence rule at creation time.
func (r Recurrence) Validate() error {
	if r.AccountID == "" {
		return fmt.Errorf("%w: account is required", ErrInvalidArgument)
	}
	if r.Kind != Income && r.Kind != Expense {
		return fmt.Errorf("%w: recurrence kind must be income or expense", ErrInvalidArgument)
	}
	if !ValidFrequency(r.Frequency) {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidArgument, r.Frequency)
	}
	if r.Amount.Cents <= 0 {
		return fmt.Errorf("%w: recurrence amount must be positive", ErrInvalidArgument)
	}
	if r.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", ErrInvalidArgument)
	}
	if !r.EndDate.IsZero() && r.EndDate.Before(r.StartDate.Time) {
		return fmt.Errorf("%w: end date must not precede start date", ErrInvalidArgument)
	}
	if r.OccurrencesLimit < 0 {
		return fmt.Errorf("%w: occurrences limit must not be negative", ErrInvalidArgument)
	}
	if len(strings.TrimSpace(r.Description)) == 0 {
		return fmt.Errorf("%w: description is required", ErrInvalidArgument)
	}
	return nil
}

// AdvanceStatusFor derives an advance status from the cumulative received
// amount. Status is a pure function of received vs total.
func AdvanceStatusFor(received, amount Money) AdvanceStatus {
	switch {
	case received.Cents <= 0:
		return AdvancePending
	case received.Cents >= amount.Cents:
		return AdvancePaid
	default:
		return AdvancePartial
	}
}
