package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cartera/internal/cli"
	"cartera/internal/core"
	"cartera/internal/services"
)

var nowFunc = time.Now

func expensesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "List fixed expenses with their next due date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.backend.Tracker.State(cmd.Context())
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(st.FixedExpenses)
			}
			if len(st.FixedExpenses) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No fixed expenses. Use 'cartera expenses add' to create one."))
				return nil
			}
			now := nowFunc()
			rows := make([][]string, 0, len(st.FixedExpenses))
			for _, e := range st.FixedExpenses {
				next := "-"
				if day, ok, err := services.NextDueDate(e, now); err == nil && ok {
					next = day.Format(dateLayout)
				}
				schedule := string(e.Frequency)
				if e.Frequency == core.Monthly {
					schedule = fmt.Sprintf("monthly, day %d", e.DayOfMonth)
				}
				rows = append(rows, []string{
					e.ID, e.Name, cli.Money(e.Amount, e.Currency), schedule,
					walletName(st.Wallets, e.WalletID), formatDate(e.LastPaid), next,
				})
			}
			fmt.Print(cli.RenderTable([]string{"ID", "Name", "Amount", "Schedule", "Wallet", "Last paid", "Next due"}, rows))
			return nil
		},
	}
	cmd.AddCommand(addExpenseCmd(), deleteExpenseCmd())
	return cmd
}

func addExpenseCmd() *cobra.Command {
	var (
		name, amount, currency, frequency string
		wallet, category, start, end      string
		day                               int
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a recurring fixed expense",
		RunE: func(cmd *cobra.Command, _ []string) error {
			amt, err := parseAmount(amount)
			if err != nil {
				return err
			}
			c, err := core.ParseCurrency(currency)
			if err != nil {
				return err
			}
			startDate, err := parseOptionalDate(start)
			if err != nil {
				return err
			}
			endDate, err := parseOptionalDate(end)
			if err != nil {
				return err
			}
			freq := core.Frequency(frequency)
			if freq != core.Monthly && !cmd.Flags().Changed("day") {
				day = 0
			}

			e, err := a.backend.Tracker.AddFixedExpense(cmd.Context(), core.FixedExpense{
				Name: name, Amount: amt, Currency: c, Frequency: freq, DayOfMonth: day,
				WalletID: wallet, CategoryID: category, StartDate: startDate, EndDate: endDate,
			})
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Fixed expense %s created (%s)", e.Name, e.ID)))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Expense name")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount per period")
	cmd.Flags().StringVar(&currency, "currency", "USD", "VEF, USD or USDT")
	cmd.Flags().StringVar(&frequency, "frequency", string(core.Monthly), "daily, weekly, biweekly, monthly or yearly")
	cmd.Flags().IntVar(&day, "day", 1, "Day of month for monthly expenses")
	cmd.Flags().StringVar(&wallet, "wallet", "", "Wallet id paying the expense")
	cmd.Flags().StringVar(&category, "category", "services", "Category id")
	cmd.Flags().StringVar(&start, "start", "", "First date the expense applies (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "Last date the expense applies (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("wallet")
	return cmd
}

func deleteExpenseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a fixed expense; its past payments stay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.backend.Tracker.DeleteFixedExpense(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Fixed expense %s deleted", args[0])))
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Append a month of transactions to Google Sheets",
		Long: `Append the transactions of a month to the "<year> <sheet>" tab of the
configured spreadsheet. Transactions already in the sheet are skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.backend.Exporter == nil {
				return fmt.Errorf("spreadsheet export is not configured (set GOOGLE_SPREADSHEET_ID and service account credentials)")
			}
			year, m, err := parseMonth(month, nowFunc())
			if err != nil {
				return err
			}
			result, err := a.backend.Tracker.ExportMonth(cmd.Context(), year, m)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(result)
			}
			if result.Exported == 0 {
				fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("Nothing new to export (%d already in the sheet).", result.Skipped)))
				return nil
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Exported %d transactions to %s", result.Exported, result.Ref)))
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Month (YYYY-MM), current when empty")
	return cmd
}
