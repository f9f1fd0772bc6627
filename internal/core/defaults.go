package core

// DefaultCategory is one node of the static default category tree inserted
// for every new owner. The literal below is read-only seed data; runtime
// code never mutates it.
type DefaultCategory struct {
	Name     string
	Kind     CategoryKind
	Icon     string
	Color    string
	Children []DefaultCategory
}

// DefaultCategories is the tree provisioned for a new owner.
var DefaultCategories = []DefaultCategory{
	{
		Name: "Salary", Kind: CategoryIncome, Icon: "briefcase", Color: "#22c55e",
	},
	{
		Name: "Other income", Kind: CategoryIncome, Icon: "coins", Color: "#84cc16",
	},
	{
		Name: "Housing", Kind: CategoryExpense, Icon: "home", Color: "#0ea5e9",
		Children: []DefaultCategory{
			{Name: "Rent", Kind: CategoryExpense, Icon: "key", Color: "#0ea5e9"},
			{Name: "Utilities", Kind: CategoryExpense, Icon: "bolt", Color: "#0284c7"},
			{Name: "Internet", Kind: CategoryExpense, Icon: "wifi", Color: "#38bdf8"},
		},
	},
	{
		Name: "Groceries", Kind: CategoryExpense, Icon: "cart", Color: "#f59e0b",
	},
	{
		Name: "Transport", Kind: CategoryExpense, Icon: "car", Color: "#8b5cf6",
		Children: []DefaultCategory{
			{Name: "Fuel", Kind: CategoryExpense, Icon: "fuel", Color: "#8b5cf6"},
			{Name: "Taxi", Kind: CategoryExpense, Icon: "taxi", Color: "#a78bfa"},
			{Name: "Public transit", Kind: CategoryExpense, Icon: "bus", Color: "#7c3aed"},
		},
	},
	{
		Name: "Health", Kind: CategoryExpense, Icon: "heart", Color: "#ef4444",
		Children: []DefaultCategory{
			{Name: "Doctor", Kind: CategoryExpense, Icon: "stethoscope", Color: "#ef4444"},
			{Name: "Pharmacy", Kind: CategoryExpense, Icon: "pill", Color: "#f87171"},
		},
	},
	{
		Name: "Leisure", Kind: CategoryExpense, Icon: "gamepad", Color: "#ec4899",
	},
	{
		Name: "Other expenses", Kind: CategoryExpense, Icon: "dots", Color: "#6b7280",
	},
}

// Advance bookkeeping categories looked up by name+kind when mirroring an
// advance or a repayment as a transaction. They are provisioned on demand
// and their absence surfaces as ErrMissingDependency.
const (
	CategoryAdvancesGiven = "Advances"       // expense: money lent out
	CategoryRepayments    = "Repayments"     // income: lent money coming back
	CategoryBorrowings    = "Borrowings"     // income: money borrowed
	CategoryLoanRepayment = "Loan repayment" // expense: paying borrowed money back
)
