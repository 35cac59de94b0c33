package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cartera/internal/amqp"
	"cartera/internal/cli"
	"cartera/internal/core"
	"cartera/internal/notify"
)

func remindCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Schedule reminders for upcoming fixed expenses",
		Long: `Compute the next reminder for every fixed expense from the notification
settings and publish it to the message broker. Without a broker the
reminders are only printed. With --watch the check repeats every
REMIND_INTERVAL until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !watch {
				_, err := remindOnce(cmd.Context(), nil)
				return err
			}

			ctx, done := cli.GracefulShutdown(a.logger.Logger, 10*time.Second, nil)
			sent := make(map[string]bool)
			ticker := time.NewTicker(a.cfg.RemindInterval)
			defer ticker.Stop()

			a.logger.Info("Reminder loop started", "interval", a.cfg.RemindInterval)
			for {
				if _, err := remindOnce(ctx, sent); err != nil {
					a.logger.Error("Reminder run failed", "error", err)
				}
				select {
				case <-ctx.Done():
					cli.WaitForShutdown(ctx, done)
					return nil
				case <-ticker.C:
				}
			}
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running and check every REMIND_INTERVAL")
	cmd.AddCommand(remindSettingsCmd(), remindListenCmd())
	return cmd
}

// reminderKey identifies one occurrence so a watch loop publishes it once.
func reminderKey(r notify.Reminder) string {
	return r.ExpenseID + "@" + r.DueDate.Format(dateLayout)
}

// remindOnce publishes the current reminders, skipping those already in
// sent when it is not nil.
func remindOnce(ctx context.Context, sent map[string]bool) ([]notify.Reminder, error) {
	st, err := a.backend.Tracker.State(ctx)
	if err != nil {
		return nil, err
	}
	if !st.Notifications.Enabled {
		fmt.Println(cli.SubtleStyle.Render("Reminders are disabled. Enable them with 'cartera remind settings --enabled'."))
		return nil, nil
	}

	reminders, buildErr := notify.BuildReminders(st.FixedExpenses, st.Notifications, nowFunc())
	if buildErr != nil {
		a.logger.WarnContext(ctx, "Some reminders could not be computed", "error", buildErr)
	}
	pending := pendingReminders(reminders, sent)

	if a.backend.Publisher == nil {
		if len(pending) > 0 {
			fmt.Println(cli.FormatWarning("No message broker configured, reminders not published"))
		}
	} else {
		pending, err = notify.NewScheduler(a.backend.Publisher).Publish(ctx, pending)
	}
	for _, r := range pending {
		if sent != nil {
			sent[reminderKey(r)] = true
		}
	}
	printReminders(pending)
	return pending, errors.Join(err, buildErr)
}

// pendingReminders drops the reminders recorded in sent. A nil sent keeps
// everything.
func pendingReminders(reminders []notify.Reminder, sent map[string]bool) []notify.Reminder {
	if sent == nil {
		return reminders
	}
	out := make([]notify.Reminder, 0, len(reminders))
	for _, r := range reminders {
		if !sent[reminderKey(r)] {
			out = append(out, r)
		}
	}
	return out
}

func printReminders(reminders []notify.Reminder) {
	if len(reminders) == 0 {
		return
	}
	rows := make([][]string, 0, len(reminders))
	for _, r := range reminders {
		rows = append(rows, []string{
			r.ExpenseName, cli.Money(r.Amount, r.Currency),
			r.DueDate.Format(dateLayout), r.FireAt.Format("2006-01-02 15:04"),
		})
	}
	fmt.Print(cli.RenderTable([]string{"Expense", "Amount", "Due", "Remind at"}, rows))
}

func remindSettingsCmd() *cobra.Command {
	var (
		enabled bool
		days    int
		at      string
	)

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change reminder settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := a.backend.Tracker.State(ctx)
			if err != nil {
				return err
			}
			settings := st.Notifications
			flags := cmd.Flags()
			if flags.Changed("enabled") || flags.Changed("days") || flags.Changed("time") {
				if flags.Changed("enabled") {
					settings.Enabled = enabled
				}
				if flags.Changed("days") {
					settings.ReminderDays = days
				}
				if flags.Changed("time") {
					settings.ReminderTime = at
				}
				if err := a.backend.Tracker.UpdateNotificationSettings(ctx, settings); err != nil {
					return err
				}
				fmt.Println(cli.FormatSuccess("Reminder settings saved"))
			}

			if flagJSON {
				return printJSON(settings)
			}
			state := "disabled"
			if settings.Enabled {
				state = "enabled"
			}
			fmt.Printf("Reminders %s, %d day(s) before at %s\n", state, settings.ReminderDays, settings.ReminderTime)
			return nil
		},
	}
	cmd.Flags().BoolVar(&enabled, "enabled", true, "Turn reminders on or off (--enabled=false)")
	cmd.Flags().IntVar(&days, "days", 1, "Days before the due date")
	cmd.Flags().StringVar(&at, "time", "09:00", "Clock time (HH:MM)")
	return cmd
}

func remindListenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Print reminder messages as they arrive on the broker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.backend.Publisher == nil {
				return fmt.Errorf("no message broker configured (set AMQP_URL)")
			}
			ctx, done := cli.GracefulShutdown(a.logger.Logger, 10*time.Second, nil)

			err := a.backend.Publisher.ConsumeReminders(ctx, func(msg *amqp.ReminderMessage) error {
				currency, err := core.ParseCurrency(msg.Currency)
				if err != nil {
					currency = core.Currency(msg.Currency)
				}
				fmt.Printf("%s %s due %s (%s)\n",
					cli.FormatWarning("Reminder:"), msg.ExpenseName,
					msg.DueDate.Format(dateLayout), cli.Money(msg.Amount, currency))
				return nil
			})
			if errors.Is(err, context.Canceled) {
				cli.WaitForShutdown(ctx, done)
				return nil
			}
			return err
		},
	}
}
