package advance

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"moneymap/internal/core"
	"moneymap/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.Store, string, string) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	ownerID := uuid.NewString()
	err = store.Queries().CreateOwner(ctx, core.Owner{
		ID:        ownerID,
		Email:     ownerID + "@example.com",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed owner: %v", err)
	}
	accountID := uuid.NewString()
	err = store.Queries().CreateAccount(ctx, core.Account{
		ID:        accountID,
		OwnerID:   ownerID,
		Name:      "Checking",
		Type:      "checking",
		Currency:  "EUR",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}

	return NewService(store, nil, nil), store, ownerID, accountID
}

func balance(t *testing.T, store *storage.Store, accountID string) int64 {
	t.Helper()
	account, err := store.Queries().GetAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	return account.Balance.Cents
}

func TestCreateWithoutBookkeepingCategories(t *testing.T) {
	svc, _, ownerID, accountID := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, core.Advance{
		OwnerID:   ownerID,
		AccountID: accountID,
		Amount:    core.CentsOf(10000),
		Person:    "Ada",
		Date:      core.NewDate(2024, 3, 1),
		Direction: core.Given,
	}, false)
	if !errors.Is(err, core.ErrMissingDependency) {
		t.Fatalf("create without categories = %v, want ErrMissingDependency", err)
	}
}

func TestEnsureCategoriesIsIdempotent(t *testing.T) {
	svc, store, ownerID, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.EnsureCategories(ctx, ownerID); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := svc.EnsureCategories(ctx, ownerID); err != nil {
		t.Fatalf("second ensure: %v", err)
	}

	cats, err := store.Queries().ListCategoriesByOwner(ctx, ownerID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cats) != 4 {
		t.Errorf("got %d categories, want 4", len(cats))
	}
}

func TestGivenAdvanceLifecycle(t *testing.T) {
	svc, store, ownerID, accountID := newTestService(t)
	ctx := context.Background()
	if err := svc.EnsureCategories(ctx, ownerID); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	adv, err := svc.Create(ctx, core.Advance{
		OwnerID:   ownerID,
		AccountID: accountID,
		Amount:    core.CentsOf(10000),
		Person:    "Ada",
		Date:      core.NewDate(2024, 3, 1),
		Direction: core.Given,
	}, false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if adv.Status != core.AdvancePending {
		t.Errorf("status = %s, want pending", adv.Status)
	}
	if adv.TransactionID == "" {
		t.Error("mirrored transaction not linked")
	}
	// Lending money out is an expense.
	if got := balance(t, store, accountID); got != -10000 {
		t.Errorf("balance after lending = %d, want -10000", got)
	}
	mirrored, err := store.Queries().GetTransaction(ctx, adv.TransactionID)
	if err != nil {
		t.Fatalf("get mirrored transaction: %v", err)
	}
	if mirrored.Kind != core.Expense {
		t.Errorf("mirrored kind = %s, want expense", mirrored.Kind)
	}

	// First payment: partial.
	res, err := svc.RecordPayment(ctx, ownerID, adv.ID, core.CentsOf(4000), core.NewDate(2024, 4, 1), false)
	if err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if res.Advance.Status != core.AdvancePartial {
		t.Errorf("status = %s, want partial", res.Advance.Status)
	}
	if res.Remaining.Cents != 6000 {
		t.Errorf("remaining = %d, want 6000", res.Remaining.Cents)
	}
	if res.FullyPaid {
		t.Error("partial payment reported fully paid")
	}
	if res.TransactionID == "" {
		t.Error("repayment transaction not linked")
	}
	repay, err := store.Queries().GetTransaction(ctx, res.TransactionID)
	if err != nil {
		t.Fatalf("get repayment transaction: %v", err)
	}
	if repay.Kind != core.Income {
		t.Errorf("repayment kind = %s, want income", repay.Kind)
	}
	if got := balance(t, store, accountID); got != -6000 {
		t.Errorf("balance after partial repayment = %d, want -6000", got)
	}

	// Overpayment is rejected before anything is written.
	_, err = svc.RecordPayment(ctx, ownerID, adv.ID, core.CentsOf(6001), core.NewDate(2024, 4, 2), false)
	if !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("overpayment = %v, want ErrInvalidArgument", err)
	}
	if got := balance(t, store, accountID); got != -6000 {
		t.Errorf("balance moved by a rejected payment: %d", got)
	}

	// Exact payoff.
	res, err = svc.RecordPayment(ctx, ownerID, adv.ID, core.CentsOf(6000), core.NewDate(2024, 5, 1), false)
	if err != nil {
		t.Fatalf("final payment: %v", err)
	}
	if res.Advance.Status != core.AdvancePaid {
		t.Errorf("status = %s, want paid", res.Advance.Status)
	}
	if !res.FullyPaid || res.Remaining.Cents != 0 {
		t.Errorf("payoff result = fully paid %v remaining %d, want true and 0", res.FullyPaid, res.Remaining.Cents)
	}
	if got := balance(t, store, accountID); got != 0 {
		t.Errorf("balance after payoff = %d, want 0", got)
	}

	// Paid is terminal.
	_, err = svc.RecordPayment(ctx, ownerID, adv.ID, core.CentsOf(1), core.NewDate(2024, 5, 2), false)
	if !errors.Is(err, core.ErrConflictingState) {
		t.Errorf("payment on paid advance = %v, want ErrConflictingState", err)
	}
}

func TestReceivedAdvanceMirrorsAsIncome(t *testing.T) {
	svc, store, ownerID, accountID := newTestService(t)
	ctx := context.Background()
	if err := svc.EnsureCategories(ctx, ownerID); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	adv, err := svc.Create(ctx, core.Advance{
		OwnerID:   ownerID,
		AccountID: accountID,
		Amount:    core.CentsOf(5000),
		Person:    "Grace",
		Date:      core.NewDate(2024, 3, 1),
		Direction: core.Received,
	}, false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Borrowing money is an income.
	if got := balance(t, store, accountID); got != 5000 {
		t.Errorf("balance after borrowing = %d, want 5000", got)
	}

	// Paying it back flows out as an expense.
	if _, err := svc.RecordPayment(ctx, ownerID, adv.ID, core.CentsOf(5000), core.NewDate(2024, 4, 1), false); err != nil {
		t.Fatalf("payment: %v", err)
	}
	if got := balance(t, store, accountID); got != 0 {
		t.Errorf("balance after repayment = %d, want 0", got)
	}

	got, err := store.Queries().GetAdvance(ctx, adv.ID)
	if err != nil {
		t.Fatalf("get advance: %v", err)
	}
	if got.Status != core.AdvancePaid {
		t.Errorf("status = %s, want paid", got.Status)
	}
}

func TestSkipTransactionLeavesLedgerUntouched(t *testing.T) {
	svc, store, ownerID, accountID := newTestService(t)
	ctx := context.Background()

	// No bookkeeping categories provisioned: the skip path never needs
	// them, so this must still succeed.
	adv, err := svc.Create(ctx, core.Advance{
		OwnerID:   ownerID,
		AccountID: accountID,
		Amount:    core.CentsOf(10000),
		Person:    "Ada",
		Date:      core.NewDate(2024, 3, 1),
		Direction: core.Given,
	}, true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if adv.TransactionID != "" {
		t.Errorf("skip-transaction create linked a transaction %q", adv.TransactionID)
	}
	if got := balance(t, store, accountID); got != 0 {
		t.Errorf("balance after skip-transaction create = %d, want 0", got)
	}

	res, err := svc.RecordPayment(ctx, ownerID, adv.ID, core.CentsOf(10000), core.NewDate(2024, 4, 1), true)
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if res.Advance.Status != core.AdvancePaid {
		t.Errorf("status = %s, want paid", res.Advance.Status)
	}
	if res.TransactionID != "" {
		t.Errorf("skip-transaction payment linked a transaction %q", res.TransactionID)
	}
	if got := balance(t, store, accountID); got != 0 {
		t.Errorf("balance after skip-transaction payment = %d, want 0", got)
	}
}

func TestSummarizeGroupsByPerson(t *testing.T) {
	svc, _, ownerID, accountID := newTestService(t)
	ctx := context.Background()
	if err := svc.EnsureCategories(ctx, ownerID); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	mk := func(person string, cents int64, dir core.AdvanceDirection) core.Advance {
		t.Helper()
		adv, err := svc.Create(ctx, core.Advance{
			OwnerID:   ownerID,
			AccountID: accountID,
			Amount:    core.CentsOf(cents),
			Person:    person,
			Date:      core.NewDate(2024, 3, 1),
			Direction: dir,
		}, false)
		if err != nil {
			t.Fatalf("create advance for %s: %v", person, err)
		}
		return adv
	}

	ada1 := mk("Ada", 10000, core.Given)
	mk("Ada", 5000, core.Given)
	mk("Grace", 2000, core.Received)
	paid := mk("Ada", 3000, core.Given)

	if _, err := svc.RecordPayment(ctx, ownerID, ada1.ID, core.CentsOf(4000), core.NewDate(2024, 4, 1), false); err != nil {
		t.Fatalf("partial payment: %v", err)
	}
	if _, err := svc.RecordPayment(ctx, ownerID, paid.ID, core.CentsOf(3000), core.NewDate(2024, 4, 1), false); err != nil {
		t.Fatalf("payoff: %v", err)
	}

	sum, err := svc.Summarize(ctx, ownerID, core.Given)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	// The paid advance leaves the per-person breakdown but stays in the
	// totals.
	if len(sum.ByPerson) != 1 {
		t.Fatalf("got %d persons, want 1", len(sum.ByPerson))
	}
	ada := sum.ByPerson[0]
	if ada.Person != "Ada" || ada.Count != 2 {
		t.Errorf("person = %s count %d, want Ada with 2 open advances", ada.Person, ada.Count)
	}
	if ada.Pending.Cents != 11000 {
		t.Errorf("pending = %d, want 11000", ada.Pending.Cents)
	}
	if sum.Totals.Count != 3 || sum.Totals.CountPaid != 1 || sum.Totals.CountPartial != 1 {
		t.Errorf("totals = %+v, want 3 advances with 1 paid and 1 partial", sum.Totals)
	}
	if sum.Totals.Pending.Cents != 11000 {
		t.Errorf("total pending = %d, want 11000", sum.Totals.Pending.Cents)
	}

	// Both directions together pick up Grace's borrowed advance.
	sum, err = svc.Summarize(ctx, ownerID, "")
	if err != nil {
		t.Fatalf("summarize all: %v", err)
	}
	if len(sum.ByPerson) != 2 {
		t.Errorf("got %d persons, want 2", len(sum.ByPerson))
	}

	if _, err := svc.Summarize(ctx, ownerID, "sideways"); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("bad direction = %v, want ErrInvalidArgument", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, ownerID, accountID := newTestService(t)
	ctx := context.Background()
	if err := svc.EnsureCategories(ctx, ownerID); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	tests := []struct {
		name     string
		advance  core.Advance
		sentinel error
	}{
		{
			"zero amount",
			core.Advance{OwnerID: ownerID, AccountID: accountID, Person: "Ada", Date: core.NewDate(2024, 3, 1), Direction: core.Given},
			core.ErrInvalidArgument,
		},
		{
			"blank person",
			core.Advance{OwnerID: ownerID, AccountID: accountID, Amount: core.CentsOf(100), Person: " ", Date: core.NewDate(2024, 3, 1), Direction: core.Given},
			core.ErrInvalidArgument,
		},
		{
			"unknown direction",
			core.Advance{OwnerID: ownerID, AccountID: accountID, Amount: core.CentsOf(100), Person: "Ada", Date: core.NewDate(2024, 3, 1), Direction: "lost"},
			core.ErrInvalidArgument,
		},
		{
			"unknown account",
			core.Advance{OwnerID: ownerID, AccountID: "nope", Amount: core.CentsOf(100), Person: "Ada", Date: core.NewDate(2024, 3, 1), Direction: core.Given},
			core.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.advance, false)
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("Create = %v, want %v", err, tt.sentinel)
			}
		})
	}
}
