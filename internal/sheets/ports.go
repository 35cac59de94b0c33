// Package sheets exports the transaction log to spreadsheets.
package sheets

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"cartera/internal/core"
)

// Header is the first row of every transactions sheet.
var Header = []any{"Date", "Type", "Description", "Amount", "Currency", "Wallet", "Category", "ID"}

// Row is one exported transaction, denormalised for humans.
type Row struct {
	TransactionID string
	Date          time.Time
	Type          core.TransactionType
	Description   string
	Amount        decimal.Decimal
	Currency      core.Currency
	Wallet        string
	Category      string
}

// NewRow resolves the wallet and category names of tx. Unknown references
// keep their raw id.
func NewRow(tx core.Transaction, wallets []core.Wallet, categories []core.Category) Row {
	row := Row{
		TransactionID: tx.ID,
		Date:          tx.Date,
		Type:          tx.Type,
		Description:   tx.Description,
		Amount:        tx.Amount,
		Wallet:        tx.WalletID,
		Category:      tx.CategoryID,
	}
	if i := core.FindWallet(wallets, tx.WalletID); i >= 0 {
		row.Wallet = wallets[i].Name
		row.Currency = wallets[i].Currency
	}
	if c, ok := core.FindCategory(categories, tx.CategoryID); ok {
		row.Category = c.Name
	}
	return row
}

// Values renders the row in sheet column order.
func (r Row) Values() []any {
	return []any{
		r.Date.Format("2006-01-02"),
		string(r.Type),
		r.Description,
		r.Amount.StringFixed(2),
		string(r.Currency),
		r.Wallet,
		r.Category,
		r.TransactionID,
	}
}

// Ports for outbound adapters.
type (
	// TransactionWriter appends rows to the sheet of the given year.
	TransactionWriter interface {
		AppendRows(ctx context.Context, year int, rows []Row) (ref string, err error)
	}

	// TransactionLister returns the transaction ids already exported for a year.
	TransactionLister interface {
		ExportedIDs(ctx context.Context, year int) (map[string]bool, error)
	}

	// Exporter is a sheet backend that can both read and append.
	Exporter interface {
		TransactionWriter
		TransactionLister
	}
)
