package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cartera/internal/cli"
	"cartera/internal/core"
	"cartera/internal/services"
)

func dueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "due",
		Short: "List the fixed expenses due now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			due, err := a.backend.Tracker.DueExpenses(ctx)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(due)
			}
			if len(due) == 0 {
				fmt.Println(cli.SubtleStyle.Render("Nothing is due."))
				return nil
			}
			st, err := a.backend.Tracker.State(ctx)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(due))
			for _, e := range due {
				rows = append(rows, []string{
					e.ID, e.Name, cli.Money(e.Amount, e.Currency), string(e.Frequency),
					walletName(st.Wallets, e.WalletID), formatDate(e.LastPaid),
				})
			}
			fmt.Println(cli.FormatTitle(fmt.Sprintf("%d fixed expenses due", len(due))))
			fmt.Print(cli.RenderTable([]string{"ID", "Name", "Amount", "Frequency", "Wallet", "Last paid"}, rows))
			return nil
		},
	}
}

func payCmd() *cobra.Command {
	var only []string

	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Pay every due fixed expense, or only the ones named with --only",
		Long: `Pay due fixed expenses from their wallets. Each expense is paid or
fails on its own; a failure never blocks the rest of the batch.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var (
				result services.PaymentResult
				err    error
			)
			if len(only) > 0 {
				result, err = a.backend.Tracker.PaySelected(ctx, only)
			} else {
				result, err = a.backend.Tracker.PayDue(ctx)
			}
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(result)
			}
			printPaymentResult(result)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&only, "only", nil, "Fixed expense ids to pay, in order")
	return cmd
}

func printPaymentResult(result services.PaymentResult) {
	if len(result.PaidIDs) == 0 && len(result.Failures) == 0 {
		fmt.Println(cli.SubtleStyle.Render("Nothing to pay."))
		return
	}
	if len(result.Failures) == 0 {
		fmt.Println(cli.FormatSuccess(result.Summary()))
	} else {
		fmt.Println(cli.FormatWarning(result.Summary()))
	}

	if len(result.Transactions) > 0 {
		rows := make([][]string, 0, len(result.Transactions))
		for _, tx := range result.Transactions {
			currency := core.Currency("")
			if i := core.FindWallet(result.Wallets, tx.WalletID); i >= 0 {
				currency = result.Wallets[i].Currency
			}
			rows = append(rows, []string{tx.Description, cli.Money(tx.Amount, currency), walletName(result.Wallets, tx.WalletID)})
		}
		fmt.Print(cli.RenderTable([]string{"Paid", "Debited", "Wallet"}, rows))
	}
}
