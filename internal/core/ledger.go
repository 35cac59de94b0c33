package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Ledger rules keep wallet balances consistent with the transaction log.
// Every function works on a copy of the wallet slice and returns it; the
// input is never modified, so a rejected change leaves no trace.

func cloneWallets(wallets []Wallet) []Wallet {
	out := make([]Wallet, len(wallets))
	copy(out, wallets)
	return out
}

// signedAmount is the balance effect of tx.
func signedAmount(tx Transaction) decimal.Decimal {
	if tx.Type == Income {
		return tx.Amount
	}
	return tx.Amount.Neg()
}

func adjust(wallets []Wallet, walletID string, delta decimal.Decimal) error {
	i := FindWallet(wallets, walletID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrWalletNotFound, walletID)
	}
	next := wallets[i].Balance.Add(delta)
	if next.IsNegative() {
		return fmt.Errorf("%w: wallet %s has %s", ErrInsufficientFunds, wallets[i].Name, wallets[i].Balance.StringFixed(amountPlaces))
	}
	wallets[i].Balance = next
	return nil
}

// ApplyTransaction books tx against its wallet.
func ApplyTransaction(wallets []Wallet, tx Transaction) ([]Wallet, error) {
	out := cloneWallets(wallets)
	if err := adjust(out, tx.WalletID, signedAmount(tx)); err != nil {
		return wallets, err
	}
	return out, nil
}

// ReverseTransaction undoes the balance effect of tx, as when it is deleted.
// Reversing an income the wallet has already spent is rejected.
func ReverseTransaction(wallets []Wallet, tx Transaction) ([]Wallet, error) {
	out := cloneWallets(wallets)
	if err := adjust(out, tx.WalletID, signedAmount(tx).Neg()); err != nil {
		return wallets, err
	}
	return out, nil
}

// EditTransaction replaces old with updated, re-deriving both wallet deltas.
// The wallet may change between the two versions. Deltas touching the same
// wallet are netted first, so only the final balances must be non-negative.
func EditTransaction(wallets []Wallet, old, updated Transaction) ([]Wallet, error) {
	order := []string{old.WalletID}
	deltas := map[string]decimal.Decimal{old.WalletID: signedAmount(old).Neg()}
	if _, ok := deltas[updated.WalletID]; !ok {
		order = append(order, updated.WalletID)
	}
	deltas[updated.WalletID] = deltas[updated.WalletID].Add(signedAmount(updated))

	out := cloneWallets(wallets)
	for _, id := range order {
		if err := adjust(out, id, deltas[id]); err != nil {
			return wallets, fmt.Errorf("apply edit: %w", err)
		}
	}
	return out, nil
}

// Transfer moves amount (in the source wallet currency) between two wallets,
// converting with the full rate table. It returns the updated wallets and the
// amount credited to the destination.
func Transfer(wallets []Wallet, fromID, toID string, amount decimal.Decimal, rates Rates) ([]Wallet, decimal.Decimal, error) {
	if fromID == toID {
		return wallets, decimal.Zero, ErrSameWallet
	}
	if !amount.IsPositive() {
		return wallets, decimal.Zero, ErrInvalidAmount
	}
	src, dst := FindWallet(wallets, fromID), FindWallet(wallets, toID)
	if src < 0 {
		return wallets, decimal.Zero, fmt.Errorf("%w: %s", ErrWalletNotFound, fromID)
	}
	if dst < 0 {
		return wallets, decimal.Zero, fmt.Errorf("%w: %s", ErrWalletNotFound, toID)
	}
	from, to := wallets[src].Currency, wallets[dst].Currency
	if NeedsRate(from, to, false) && !rates.Available() {
		return wallets, decimal.Zero, ErrRatesUnavailable
	}
	credited := RoundAmount(rates.Convert(amount, from, to))
	if !credited.IsPositive() {
		return wallets, decimal.Zero, fmt.Errorf("%w: %s %s converts to nothing in %s", ErrAmountTooSmall, amount, from, to)
	}

	out := cloneWallets(wallets)
	if err := adjust(out, fromID, amount.Neg()); err != nil {
		return wallets, decimal.Zero, err
	}
	if err := adjust(out, toID, credited); err != nil {
		return wallets, decimal.Zero, err
	}
	return out, credited, nil
}
