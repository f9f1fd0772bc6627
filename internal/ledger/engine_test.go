package ledger

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

func newTestEngine(t *testing.T) (*Engine, *storage.Store) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewEngine(store, nil, nil), store
}

func seedOwnerWithAccounts(t *testing.T, store *storage.Store, n int) (string, []string) {
	t.Helper()
	ctx := context.Background()
	ownerID := uuid.NewString()
	err := store.Queries().CreateOwner(ctx, core.Owner{
		ID:        ownerID,
		Email:     ownerID + "@example.com",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed owner: %v", err)
	}

	accounts := make([]string, n)
	for i := range accounts {
		accounts[i] = uuid.NewString()
		err := store.Queries().CreateAccount(ctx, core.Account{
			ID:        accounts[i],
			OwnerID:   ownerID,
			Name:      "Account",
			Type:      "checking",
			Currency:  "EUR",
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("seed account: %v", err)
		}
	}
	return ownerID, accounts
}

func balance(t *testing.T, store *storage.Store, accountID string) int64 {
	t.Helper()
	account, err := store.Queries().GetAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	return account.Balance.Cents
}

func TestCreateTransactionMovesBalance(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	ownerID, accounts := seedOwnerWithAccounts(t, store, 1)

	_, err := engine.CreateTransaction(ctx, ownerID, core.Transaction{
		AccountID: accounts[0],
		Kind:      core.Income,
		Amount:    core.CentsOf(250000),
		Date:      core.NewDate(2024, 3, 1),
	})
	if err != nil {
		t.Fatalf("create income: %v", err)
	}
	_, err = engine.CreateTransaction(ctx, ownerID, core.Transaction{
		AccountID: accounts[0],
		Kind:      core.Expense,
		Amount:    core.CentsOf(7350),
		Date:      core.NewDate(2024, 3, 2),
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}

	if got := balance(t, store, accounts[0]); got != 242650 {
		t.Errorf("balance = %d, want 242650", got)
	}
}

func TestTransferConservesMoney(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	ownerID, accounts := seedOwnerWithAccounts(t, store, 2)

	_, err := engine.CreateTransaction(ctx, ownerID, core.Transaction{
		AccountID:       accounts[0],
		TargetAccountID: accounts[1],
		Kind:            core.Transfer,
		Amount:          core.CentsOf(5000),
		Date:            core.NewDate(2024, 3, 1),
	})
	if err != nil {
		t.Fatalf("create transfer: %v", err)
	}

	src, dst := balance(t, store, accounts[0]), balance(t, store, accounts[1])
	if src != -5000 || dst != 5000 {
		t.Errorf("balances = (%d, %d), want (-5000, 5000)", src, dst)
	}
	if src+dst != 0 {
		t.Errorf("transfer created or destroyed money: net %d", src+dst)
	}
}

func TestDeleteTransactionReversesEffect(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	ownerID, accounts := seedOwnerWithAccounts(t, store, 2)

	trx, err := engine.CreateTransaction(ctx, ownerID, core.Transaction{
		AccountID:       accounts[0],
		TargetAccountID: accounts[1],
		Kind:            core.Transfer,
		Amount:          core.CentsOf(1234),
		Date:            core.NewDate(2024, 3, 1),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := engine.DeleteTransaction(ctx, ownerID, trx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if src := balance(t, store, accounts[0]); src != 0 {
		t.Errorf("source balance after reversal = %d, want 0", src)
	}
	if dst := balance(t, store, accounts[1]); dst != 0 {
		t.Errorf("target balance after reversal = %d, want 0", dst)
	}
	if _, err := store.Queries().GetTransaction(ctx, trx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("transaction row still present: %v", err)
	}

	if err := engine.DeleteTransaction(ctx, ownerID, trx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestCreateTransactionRejections(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	ownerID, accounts := seedOwnerWithAccounts(t, store, 1)
	_, strangerAccounts := seedOwnerWithAccounts(t, store, 1)

	tests := []struct {
		name     string
		trx      core.Transaction
		sentinel error
	}{
		{
			"zero amount",
			core.Transaction{AccountID: accounts[0], Kind: core.Expense, Date: core.NewDate(2024, 3, 1)},
			core.ErrInvalidArgument,
		},
		{
			"unknown account",
			core.Transaction{AccountID: "nope", Kind: core.Expense, Amount: core.CentsOf(100), Date: core.NewDate(2024, 3, 1)},
			core.ErrNotFound,
		},
		{
			"someone else's account",
			core.Transaction{AccountID: strangerAccounts[0], Kind: core.Expense, Amount: core.CentsOf(100), Date: core.NewDate(2024, 3, 1)},
			core.ErrNotFound,
		},
		{
			"transfer without target",
			core.Transaction{AccountID: accounts[0], Kind: core.Transfer, Amount: core.CentsOf(100), Date: core.NewDate(2024, 3, 1)},
			core.ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.CreateTransaction(ctx, ownerID, tt.trx)
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("CreateTransaction = %v, want %v", err, tt.sentinel)
			}
		})
	}

	// Nothing above may have moved the balance.
	if got := balance(t, store, accounts[0]); got != 0 {
		t.Errorf("balance after rejected writes = %d, want 0", got)
	}
}

func TestBalanceDeltas(t *testing.T) {
	tests := []struct {
		name string
		trx  core.Transaction
		want []Delta
	}{
		{
			"income credits source",
			core.Transaction{AccountID: "a", Kind: core.Income, Amount: core.CentsOf(100)},
			[]Delta{{AccountID: "a", Cents: 100}},
		},
		{
			"expense debits source",
			core.Transaction{AccountID: "a", Kind: core.Expense, Amount: core.CentsOf(100)},
			[]Delta{{AccountID: "a", Cents: -100}},
		},
		{
			"transfer moves between accounts",
			core.Transaction{AccountID: "a", TargetAccountID: "b", Kind: core.Transfer, Amount: core.CentsOf(100)},
			[]Delta{{AccountID: "a", Cents: -100}, {AccountID: "b", Cents: 100}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BalanceDeltas(tt.trx)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d deltas, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("delta[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
