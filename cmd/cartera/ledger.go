package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"cartera/internal/cli"
	"cartera/internal/core"
)

type txFlags struct {
	amount, txType, wallet, category, description, date, goal string
}

func (f *txFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.amount, "amount", "", "Amount in the wallet currency")
	cmd.Flags().StringVar(&f.txType, "type", string(core.Expense), "income or expense")
	cmd.Flags().StringVar(&f.wallet, "wallet", "", "Wallet id")
	cmd.Flags().StringVar(&f.category, "category", "", "Category id")
	cmd.Flags().StringVar(&f.description, "description", "", "Free text description")
	cmd.Flags().StringVar(&f.date, "date", "", "Date (YYYY-MM-DD), today when empty")
	cmd.Flags().StringVar(&f.goal, "goal", "", "Savings goal id this transaction contributes to")
}

// apply overlays the flags the user set onto tx.
func (f *txFlags) apply(cmd *cobra.Command, tx *core.Transaction) error {
	changed := cmd.Flags().Changed
	if changed("amount") {
		amt, err := parseAmount(f.amount)
		if err != nil {
			return err
		}
		tx.Amount = amt
	}
	if changed("type") || tx.Type == "" {
		tx.Type = core.TransactionType(f.txType)
	}
	if changed("wallet") {
		tx.WalletID = f.wallet
	}
	if changed("category") {
		tx.CategoryID = f.category
	}
	if changed("description") {
		tx.Description = f.description
	}
	if changed("date") {
		d, err := parseDate(f.date)
		if err != nil {
			return err
		}
		tx.Date = d
	}
	if changed("goal") {
		tx.GoalID = f.goal
	}
	return nil
}

func txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "List, add, edit and delete transactions",
	}
	cmd.AddCommand(listTxCmd(), addTxCmd(), editTxCmd(), deleteTxCmd())
	return cmd
}

func listTxCmd() *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the transactions of a month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.backend.Tracker.State(cmd.Context())
			if err != nil {
				return err
			}
			year, m, err := parseMonth(month, nowFunc())
			if err != nil {
				return err
			}
			txs := make([]core.Transaction, 0)
			for _, tx := range st.Transactions {
				if tx.Date.Year() == year && tx.Date.Month() == m {
					txs = append(txs, tx)
				}
			}
			sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date.Before(txs[j].Date) })
			if flagJSON {
				return printJSON(txs)
			}
			if len(txs) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No transactions this month."))
				return nil
			}
			rows := make([][]string, 0, len(txs))
			for _, tx := range txs {
				currency := core.Currency("")
				if i := core.FindWallet(st.Wallets, tx.WalletID); i >= 0 {
					currency = st.Wallets[i].Currency
				}
				amount := cli.Money(tx.Amount, currency)
				if tx.Type == core.Expense {
					amount = cli.ErrorStyle.Render("-" + amount)
				} else {
					amount = cli.SuccessStyle.Render("+" + amount)
				}
				rows = append(rows, []string{
					tx.Date.Format(dateLayout), tx.ID, tx.Description, amount,
					walletName(st.Wallets, tx.WalletID), categoryName(st.Categories, tx.CategoryID),
				})
			}
			fmt.Print(cli.RenderTable([]string{"Date", "ID", "Description", "Amount", "Wallet", "Category"}, rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Month (YYYY-MM), current when empty")
	return cmd
}

func addTxCmd() *cobra.Command {
	var f txFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an income or expense",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var tx core.Transaction
			if err := f.apply(cmd, &tx); err != nil {
				return err
			}
			tx, err := a.backend.Tracker.AddTransaction(cmd.Context(), tx)
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Transaction %s recorded", tx.ID)))
			return nil
		},
	}
	f.register(cmd)
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("wallet")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func editTxCmd() *cobra.Command {
	var f txFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a transaction; unset flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.backend.Tracker.State(ctx)
			if err != nil {
				return err
			}
			var tx *core.Transaction
			for i := range st.Transactions {
				if st.Transactions[i].ID == args[0] {
					tx = &st.Transactions[i]
					break
				}
			}
			if tx == nil {
				return fmt.Errorf("%w: %s", core.ErrTransactionNotFound, args[0])
			}
			if err := f.apply(cmd, tx); err != nil {
				return err
			}
			if err := a.backend.Tracker.EditTransaction(ctx, *tx); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Transaction %s updated", tx.ID)))
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func deleteTxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction and restore its wallet balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.backend.Tracker.DeleteTransaction(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Transaction %s deleted", args[0])))
			return nil
		},
	}
}

func transferCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "transfer <from-wallet> <to-wallet> <amount>",
		Short: "Move money between wallets, converting when currencies differ",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			booked, err := a.backend.Tracker.Transfer(cmd.Context(), args[0], args[1], amount, description)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(booked)
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Moved %s from %s, credited %s to %s",
				booked[0].Amount.StringFixed(2), args[0], booked[1].Amount.StringFixed(2), args[1])))
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Description for both legs")
	return cmd
}

func walletsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallets",
		Short: "List wallets and their balances",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.backend.Tracker.State(cmd.Context())
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(st.Wallets)
			}
			if len(st.Wallets) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No wallets. Use 'cartera wallets add' to create one."))
				return nil
			}
			rows := make([][]string, 0, len(st.Wallets))
			for _, w := range st.Wallets {
				rows = append(rows, []string{w.ID, w.Name, string(w.Currency), cli.Money(w.Balance, w.Currency)})
			}
			fmt.Print(cli.RenderTable([]string{"ID", "Name", "Currency", "Balance"}, rows))
			return nil
		},
	}
	cmd.AddCommand(addWalletCmd())
	return cmd
}

func addWalletCmd() *cobra.Command {
	var id, name, currency, balance string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a wallet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := core.ParseCurrency(currency)
			if err != nil {
				return err
			}
			bal, err := parseBalance(balance)
			if err != nil {
				return err
			}
			w, err := a.backend.Tracker.AddWallet(cmd.Context(), core.Wallet{ID: id, Name: name, Balance: bal, Currency: c})
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Wallet %s created (%s)", w.Name, w.ID)))
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Wallet id, generated when empty")
	cmd.Flags().StringVar(&name, "name", "", "Wallet name")
	cmd.Flags().StringVar(&currency, "currency", "USD", "VEF, USD or USDT")
	cmd.Flags().StringVar(&balance, "balance", "0", "Opening balance")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List transaction categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.backend.Tracker.State(cmd.Context())
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(st.Categories)
			}
			rows := make([][]string, 0, len(st.Categories))
			for _, c := range st.Categories {
				rows = append(rows, []string{c.ID, c.Name, string(c.Type)})
			}
			fmt.Print(cli.RenderTable([]string{"ID", "Name", "Type"}, rows))
			return nil
		},
	}

	var id, name, icon, catType string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a category",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.backend.Tracker.AddCategory(cmd.Context(), core.Category{
				ID: id, Name: name, Icon: icon, Type: core.TransactionType(catType),
			})
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Category %s created (%s)", c.Name, c.ID)))
			return nil
		},
	}
	add.Flags().StringVar(&id, "id", "", "Category id, generated when empty")
	add.Flags().StringVar(&name, "name", "", "Category name")
	add.Flags().StringVar(&icon, "icon", "", "Icon name")
	add.Flags().StringVar(&catType, "type", string(core.Expense), "income or expense")
	_ = add.MarkFlagRequired("name")
	cmd.AddCommand(add)
	return cmd
}
