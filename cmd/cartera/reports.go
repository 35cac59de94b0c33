package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cartera/internal/cli"
	"cartera/internal/core"
	"cartera/internal/rates"
)

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show balances per currency and consolidated in USD",
		RunE: func(cmd *cobra.Command, _ []string) error {
			summary, r, err := a.backend.Tracker.Summary(cmd.Context())
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(summary)
			}

			rows := make([][]string, 0, len(core.Currencies))
			for _, c := range core.Currencies {
				if total, ok := summary.ByCurrency[c]; ok {
					rows = append(rows, []string{string(c), cli.Money(total, c)})
				}
			}
			var b strings.Builder
			b.WriteString(cli.RenderTable([]string{"Currency", "Balance"}, rows))
			if r.Available() {
				fmt.Fprintf(&b, "\nTotal at BCV:     %s\n", cli.Money(summary.ConsolidatedBCV, core.USD))
				fmt.Fprintf(&b, "Total at average: %s", cli.Money(summary.ConsolidatedAverage, core.USD))
			} else {
				b.WriteString("\n" + cli.FormatWarning("Exchange rates unavailable, consolidated totals not computed"))
			}
			fmt.Println(cli.RenderBox("Summary", b.String()))
			return nil
		},
	}
}

func ratesCmd() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Show the current BCV and USDT rates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var (
				r      core.Rates
				source rates.Source
			)
			if refresh {
				fresh, err := a.backend.Rates.Refresh(ctx)
				if err != nil {
					return fmt.Errorf("refresh rates: %w", err)
				}
				r, source = fresh, rates.SourceFeed
			} else {
				r, source = a.backend.Rates.CurrentWithSource(ctx)
			}

			if flagJSON {
				return printJSON(struct {
					core.Rates
					Source rates.Source `json:"source"`
				}{r, source})
			}
			if !r.Available() {
				fmt.Println(cli.FormatWarning("No exchange rates available"))
				return nil
			}
			rows := [][]string{
				{"BCV", r.BCV.StringFixed(2)},
				{"USDT", r.USDT.StringFixed(2)},
				{"Average", r.Average().StringFixed(2)},
			}
			fmt.Print(cli.RenderTable([]string{"Rate", "Bs. per unit"}, rows))
			stamp := "unknown"
			if !r.Timestamp.IsZero() {
				stamp = r.Timestamp.Local().Format("2006-01-02 15:04")
			}
			fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("source: %s, as of %s", source, stamp)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Fetch from the feed, bypassing the cache")
	return cmd
}

func budgetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "Show spending against every budget this period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			statuses, err := a.backend.Tracker.Budgets(cmd.Context())
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(statuses)
			}
			if len(statuses) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No budgets. Use 'cartera budgets add' to create one."))
				return nil
			}
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				b := s.Budget
				rows = append(rows, []string{
					b.Name, string(b.Period),
					cli.Money(s.Spent, b.Currency), cli.Money(b.Amount, b.Currency),
					cli.ProgressBar(s.Percent, 20),
				})
			}
			fmt.Print(cli.RenderTable([]string{"Budget", "Period", "Spent", "Limit", "Progress"}, rows))
			return nil
		},
	}
	cmd.AddCommand(addBudgetCmd())
	return cmd
}

func addBudgetCmd() *cobra.Command {
	var name, amount, currency, period, category string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a budget over an expense category",
		RunE: func(cmd *cobra.Command, _ []string) error {
			amt, err := parseAmount(amount)
			if err != nil {
				return err
			}
			c, err := core.ParseCurrency(currency)
			if err != nil {
				return err
			}
			b, err := a.backend.Tracker.AddBudget(cmd.Context(), core.Budget{
				Name: name, Amount: amt, Currency: c,
				Period: core.BudgetPeriod(period), CategoryID: category,
			})
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Budget %s created (%s)", b.Name, b.ID)))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Budget name")
	cmd.Flags().StringVar(&amount, "amount", "", "Spending limit")
	cmd.Flags().StringVar(&currency, "currency", "USD", "Budget currency (VEF, USD, USDT)")
	cmd.Flags().StringVar(&period, "period", string(core.PeriodMonthly), "monthly or yearly")
	cmd.Flags().StringVar(&category, "category", "", "Expense category id")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func goalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Show progress towards every savings goal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			statuses, err := a.backend.Tracker.Goals(cmd.Context())
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(statuses)
			}
			if len(statuses) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No savings goals. Use 'cartera goals add' to create one."))
				return nil
			}
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				g := s.Goal
				rows = append(rows, []string{
					g.ID, g.Name,
					cli.Money(s.Saved, g.Currency), cli.Money(g.TargetAmount, g.Currency),
					formatDate(g.TargetDate), cli.ProgressBar(s.Percent, 20),
				})
			}
			fmt.Print(cli.RenderTable([]string{"ID", "Goal", "Saved", "Target", "By", "Progress"}, rows))
			return nil
		},
	}
	cmd.AddCommand(addGoalCmd())
	return cmd
}

func addGoalCmd() *cobra.Command {
	var name, target, currency, by string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a savings goal",
		Long:  "Create a savings goal. Contribute to it with 'cartera tx add --goal <id>'.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			amt, err := parseAmount(target)
			if err != nil {
				return err
			}
			c, err := core.ParseCurrency(currency)
			if err != nil {
				return err
			}
			targetDate, err := parseOptionalDate(by)
			if err != nil {
				return err
			}
			g, err := a.backend.Tracker.AddGoal(cmd.Context(), core.SavingsGoal{
				Name: name, TargetAmount: amt, Currency: c, TargetDate: targetDate,
			})
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Goal %s created (%s)", g.Name, g.ID)))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Goal name")
	cmd.Flags().StringVar(&target, "target", "", "Target amount")
	cmd.Flags().StringVar(&currency, "currency", "USD", "Goal currency (VEF, USD, USDT)")
	cmd.Flags().StringVar(&by, "by", "", "Target date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}
