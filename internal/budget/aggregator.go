// Package budget computes monthly spend against budget targets. A budget
// binds a target to a category; spend is always aggregated over the bound
// category plus all of its category-tree descendants, so a budget on
// "Transport" sees fuel and taxi expenses even when no child budget
// exists for them. The budget tree itself is at most two levels deep.
package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"moneymap/internal/cache"
	"moneymap/internal/core"
	"moneymap/internal/log"
	"moneymap/internal/storage"
)

const (
	treeCacheSize = 256
	treeCacheTTL  = 5 * time.Minute
)

// Status is one budget evaluated over a date window.
type Status struct {
	Budget       core.Budget
	CategoryName string
	Spent        core.Money
	Remaining    core.Money
	// Percentage is capped at 100 for display; Exceeded is computed from
	// the raw spend and can be true while Percentage reads 100. A
	// zero-target budget always reports percentage 0 but still exceeds on
	// any positive spend.
	Percentage float64
	Exceeded   bool
	Children   []Status
}

// Check answers "would this hypothetical expense blow an applicable
// budget". When no category on the ancestor path carries a budget,
// HasBudget is false and the rest is zero.
type Check struct {
	HasBudget       bool
	Status          Status
	NewTotal        core.Money
	RemainingBefore core.Money
	WouldExceed     bool
	Excess          core.Money
}

type Aggregator struct {
	store  *storage.Store
	trees  *cache.LRUCache[*core.CategoryTree]
	logger *log.Logger
}

func NewAggregator(store *storage.Store, logger *log.Logger) *Aggregator {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Aggregator{
		store:  store,
		trees:  cache.NewLRUCache[*core.CategoryTree](treeCacheSize, treeCacheTTL),
		logger: logger.WithComponent(log.ComponentBudget),
	}
}

// InvalidateOwner drops the cached category tree after a category
// mutation.
func (a *Aggregator) InvalidateOwner(ownerID string) {
	a.trees.Delete(ownerID)
}

// Create validates the two-level tree invariants and persists a budget.
// A zero target is allowed (it exceeds on any spend); a negative one is
// not.
func (a *Aggregator) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	if b.Target.Cents < 0 {
		return core.Budget{}, fmt.Errorf("%w: budget target must not be negative", core.ErrInvalidArgument)
	}
	cat, err := a.store.Queries().GetCategory(ctx, b.CategoryID)
	if err != nil {
		return core.Budget{}, err
	}
	if cat.OwnerID != b.OwnerID {
		return core.Budget{}, fmt.Errorf("category %s: %w", b.CategoryID, core.ErrNotFound)
	}
	if cat.Kind != core.CategoryExpense {
		return core.Budget{}, fmt.Errorf("%w: budgets only apply to expense categories", core.ErrInvalidArgument)
	}

	if b.ParentBudgetID == "" {
		if err := a.checkRootCreate(ctx, b); err != nil {
			return core.Budget{}, err
		}
	} else {
		if err := a.checkChildCreate(ctx, b); err != nil {
			return core.Budget{}, err
		}
	}

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if err := a.store.Queries().CreateBudget(ctx, b); err != nil {
		return core.Budget{}, err
	}

	a.logger.InfoContext(ctx, "budget created",
		log.FieldBudgetID, b.ID,
		log.FieldOwnerID, b.OwnerID,
		log.FieldCategoryID, b.CategoryID,
		log.FieldAmountCents, b.Target.Cents)
	return b, nil
}

func (a *Aggregator) checkRootCreate(ctx context.Context, b core.Budget) error {
	_, err := a.store.Queries().FindRootBudgetByCategory(ctx, b.OwnerID, b.CategoryID)
	if err == nil {
		return fmt.Errorf("%w: category already has a root budget", core.ErrConflictingState)
	}
	if !errors.Is(err, core.ErrNotFound) {
		return err
	}
	return nil
}

func (a *Aggregator) checkChildCreate(ctx context.Context, b core.Budget) error {
	parent, err := a.store.Queries().GetBudget(ctx, b.ParentBudgetID)
	if err != nil {
		return err
	}
	if parent.OwnerID != b.OwnerID {
		return fmt.Errorf("budget %s: %w", b.ParentBudgetID, core.ErrNotFound)
	}
	if parent.ParentBudgetID != "" {
		return fmt.Errorf("%w: budget tree is limited to two levels", core.ErrConflictingState)
	}

	// A category may be a child budget at most once owner-wide, not just
	// once per parent.
	_, err = a.store.Queries().FindChildBudgetByCategory(ctx, b.OwnerID, b.CategoryID)
	if err == nil {
		return fmt.Errorf("%w: category is already a child budget", core.ErrConflictingState)
	}
	if !errors.Is(err, core.ErrNotFound) {
		return err
	}

	// A category whose own root budget already has children cannot be
	// demoted to a child, that would make it both levels at once.
	root, err := a.store.Queries().FindRootBudgetByCategory(ctx, b.OwnerID, b.CategoryID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return err
	}
	hasChildren, err := a.store.Queries().BudgetHasChildren(ctx, root.ID)
	if err != nil {
		return err
	}
	if hasChildren {
		return fmt.Errorf("%w: category's root budget has children", core.ErrConflictingState)
	}
	return nil
}

// Delete removes a budget; its children go with it.
func (a *Aggregator) Delete(ctx context.Context, ownerID, id string) error {
	b, err := a.store.Queries().GetBudget(ctx, id)
	if err != nil {
		return err
	}
	if b.OwnerID != ownerID {
		return fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	return a.store.Queries().DeleteBudget(ctx, id)
}

// ComputeStatuses evaluates every budget of the owner over the inclusive
// [start, end] window, roots first with their children nested. Each
// budget's spend is independent: a child's spend is not subtracted from
// its parent's.
func (a *Aggregator) ComputeStatuses(ctx context.Context, ownerID string, start, end core.Date) ([]Status, error) {
	budgets, err := a.store.Queries().ListBudgetsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	tree, err := a.categoryTree(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	statuses := make(map[string]*Status, len(budgets))
	var rootIDs []string
	childIDs := make(map[string][]string)
	for _, b := range budgets {
		s, err := a.evaluate(ctx, ownerID, b, tree, start, end)
		if err != nil {
			return nil, err
		}
		statuses[b.ID] = &s
		if b.ParentBudgetID == "" {
			rootIDs = append(rootIDs, b.ID)
		} else {
			childIDs[b.ParentBudgetID] = append(childIDs[b.ParentBudgetID], b.ID)
		}
	}

	out := make([]Status, 0, len(rootIDs))
	for _, id := range rootIDs {
		root := statuses[id]
		for _, childID := range childIDs[id] {
			root.Children = append(root.Children, *statuses[childID])
		}
		out = append(out, *root)
	}
	return out, nil
}

// CheckExpense answers whether a hypothetical expense of amount against
// the category would exceed the nearest applicable budget: the category's
// own budget if it has one, root or child, otherwise the closest
// ancestor's. The spend window is the calendar month of asOf.
func (a *Aggregator) CheckExpense(ctx context.Context, ownerID, categoryID string, amount core.Money, asOf core.Date) (Check, error) {
	tree, err := a.categoryTree(ctx, ownerID)
	if err != nil {
		return Check{}, err
	}
	if _, ok := tree.Get(categoryID); !ok {
		return Check{}, fmt.Errorf("category %s: %w", categoryID, core.ErrNotFound)
	}

	for _, id := range tree.AncestorPath(categoryID) {
		b, err := a.store.Queries().FindBudgetByCategory(ctx, ownerID, id)
		if errors.Is(err, core.ErrNotFound) {
			continue
		}
		if err != nil {
			return Check{}, err
		}

		start, end := monthWindow(asOf.Year(), asOf.Month())
		status, err := a.evaluate(ctx, ownerID, b, tree, start, end)
		if err != nil {
			return Check{}, err
		}

		check := Check{
			HasBudget:       true,
			Status:          status,
			NewTotal:        status.Spent.Add(amount),
			RemainingBefore: status.Remaining,
		}
		if check.NewTotal.Cents > b.Target.Cents {
			check.WouldExceed = true
			check.Excess = check.NewTotal.Sub(b.Target)
		}
		return check, nil
	}
	return Check{}, nil
}

func (a *Aggregator) evaluate(ctx context.Context, ownerID string, b core.Budget, tree *core.CategoryTree, start, end core.Date) (Status, error) {
	spent, err := a.store.Queries().SumExpensesInCategories(ctx, ownerID, tree.DescendantsOf(b.CategoryID), start, end)
	if err != nil {
		return Status{}, err
	}

	s := Status{
		Budget:    b,
		Spent:     spent,
		Remaining: b.Target.Sub(spent),
		Exceeded:  spent.Cents > b.Target.Cents,
	}
	if cat, ok := tree.Get(b.CategoryID); ok {
		s.CategoryName = cat.Name
	}
	if b.Target.Cents > 0 {
		pct := float64(spent.Cents) / float64(b.Target.Cents) * 100
		if pct > 100 {
			pct = 100
		}
		s.Percentage = pct
	}
	return s, nil
}

func (a *Aggregator) categoryTree(ctx context.Context, ownerID string) (*core.CategoryTree, error) {
	if tree, ok := a.trees.Get(ownerID); ok {
		return tree, nil
	}
	cats, err := a.store.Queries().ListCategoriesByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	tree := core.NewCategoryTree(cats)
	a.trees.Set(ownerID, tree)
	return tree, nil
}

// monthWindow returns the first and last day of the month, inclusive.
func monthWindow(year int, month time.Month) (core.Date, core.Date) {
	start := core.NewDate(year, int(month), 1)
	end := core.NewDate(year, int(month)+1, 1).AddDays(-1)
	return start, end
}
