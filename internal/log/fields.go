package log

import (
	"github.com/shopspring/decimal"
)

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldDuration   = "duration_ms"
	FieldSuccess    = "success"
	FieldExpenseID  = "expense_id"
	FieldWalletID   = "wallet_id"
	FieldTxID       = "transaction_id"
	FieldCategoryID = "category_id"
	FieldAmount     = "amount"
	FieldCurrency   = "currency"
	FieldReason     = "reason"
	FieldKey        = "key"
	FieldBCV        = "bcv"
	FieldUSDT       = "usdt"
	FieldPaid       = "paid"
	FieldFailed     = "failed"
	FieldYear       = "year"
	FieldMonth      = "month"
	FieldSheetsRef  = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentTracker = "tracker"
	ComponentPayment = "payment"
	ComponentStorage = "storage"
	ComponentRates   = "rates"
	ComponentAMQP    = "amqp"
	ComponentNotify  = "notify"
	ComponentSheets  = "sheets"
	ComponentCache   = "cache"
	ComponentBackend = "backend"
	ComponentWorker  = "worker"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpPay      = "pay"
	OpTransfer = "transfer"
	OpRefresh  = "refresh"
	OpPublish  = "publish"
	OpExport   = "export"
	OpValidate = "validate"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithExpense adds fixed expense fields
func (f LogFields) WithExpense(id, walletID string) LogFields {
	f[FieldExpenseID] = id
	f[FieldWalletID] = walletID
	return f
}

// WithAmount adds a money amount with its currency
func (f LogFields) WithAmount(amount decimal.Decimal, currency string) LogFields {
	f[FieldAmount] = amount.String()
	f[FieldCurrency] = currency
	return f
}

// WithRates adds an exchange rate pair
func (f LogFields) WithRates(bcv, usdt decimal.Decimal) LogFields {
	f[FieldBCV] = bcv.String()
	f[FieldUSDT] = usdt.String()
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
