package amqp

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Message types, carried in the AMQP type property.
const (
	TypeReminder     = "reminder"
	TypePaymentBatch = "payment_batch"
)

// ReminderMessage asks a notification daemon to remind the user about a
// fixed expense at FireAt.
type ReminderMessage struct {
	ExpenseID   string          `json:"expenseId"`
	ExpenseName string          `json:"expenseName"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	DueDate     time.Time       `json:"dueDate"`
	FireAt      time.Time       `json:"fireAt"`
	Timestamp   time.Time       `json:"timestamp"`
}

// PaymentFailure is one unpaid expense inside a PaymentBatchMessage.
type PaymentFailure struct {
	ExpenseID string `json:"expenseId"`
	Reason    string `json:"reason"`
}

// PaymentBatchMessage announces a committed payment batch.
type PaymentBatchMessage struct {
	BatchID        string           `json:"batchId"`
	PaidIDs        []string         `json:"paidIds"`
	Failures       []PaymentFailure `json:"failures"`
	TransactionIDs []string         `json:"transactionIds"`
	PaidAt         time.Time        `json:"paidAt"`
	Timestamp      time.Time        `json:"timestamp"`
}

// NewPaymentBatchMessage creates a batch message stamped with the current time
func NewPaymentBatchMessage(batchID string, paidAt time.Time) *PaymentBatchMessage {
	return &PaymentBatchMessage{
		BatchID:        batchID,
		PaidIDs:        []string{},
		Failures:       []PaymentFailure{},
		TransactionIDs: []string{},
		PaidAt:         paidAt,
		Timestamp:      time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReminderMessageFromJSON creates a message from JSON bytes
func ReminderMessageFromJSON(data []byte) (*ReminderMessage, error) {
	var msg ReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ToJSON converts the message to JSON bytes
func (m *PaymentBatchMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PaymentBatchMessageFromJSON creates a message from JSON bytes
func PaymentBatchMessageFromJSON(data []byte) (*PaymentBatchMessage, error) {
	var msg PaymentBatchMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
