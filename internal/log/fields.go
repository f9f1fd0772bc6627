package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldError        = "error"
	FieldOwnerID      = "owner_id"
	FieldAccountID    = "account_id"
	FieldCategoryID   = "category_id"
	FieldRecurrenceID = "recurrence_id"
	FieldBudgetID     = "budget_id"
	FieldAdvanceID    = "advance_id"
	FieldTrxID        = "transaction_id"
	FieldKind         = "kind"
	FieldAmountCents  = "amount_cents"
	FieldDate         = "date"
	FieldCursor       = "next_occurrence"
	FieldCount        = "count"
	FieldFrequency    = "frequency"
	FieldStatus       = "status"
	FieldDuration     = "duration_ms"
	FieldSheetsRef    = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentLedger    = "ledger"
	ComponentScheduler = "scheduler"
	ComponentBudget    = "budget"
	ComponentAdvance   = "advance"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
)
