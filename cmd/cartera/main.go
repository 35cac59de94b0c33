// Command cartera tracks wallets, transactions and recurring expenses in
// bolivars, dollars and USDT.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cartera/internal/backend"
	"cartera/internal/cli"
	"cartera/internal/config"
	"cartera/internal/log"
)

var (
	flagEnvFile string
	flagJSON    bool
)

// app holds what every command needs once setup has run.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	backend *backend.Backend
	cleanup backend.CleanupFunc
}

var a app

var rootCmd = &cobra.Command{
	Use:               "cartera",
	Short:             "Personal finance tracker for VEF, USD and USDT",
	Long:              "Track wallets, transactions, fixed expenses, budgets and savings goals across bolivars, dollars and USDT.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(*cobra.Command, []string) error {
		return teardown()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "Environment file to load")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print machine readable JSON")

	rootCmd.AddCommand(
		dueCmd(),
		payCmd(),
		summaryCmd(),
		budgetsCmd(),
		goalsCmd(),
		ratesCmd(),
		txCmd(),
		transferCmd(),
		walletsCmd(),
		expensesCmd(),
		categoriesCmd(),
		remindCmd(),
		exportCmd(),
		workerCmd(),
	)
}

func setup(cmd *cobra.Command, _ []string) error {
	if err := cli.LoadEnvFile(flagEnvFile); err != nil {
		return err
	}
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg.LogLevel)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(cmd.Context(), bcfg)
	if err != nil {
		return fmt.Errorf("initialize backend: %w", err)
	}

	a = app{cfg: cfg, logger: logger, backend: result.Backend, cleanup: result.Cleanup}
	return nil
}

func teardown() error {
	if a.cleanup == nil {
		return nil
	}
	err := a.cleanup()
	a.cleanup = nil
	return err
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		_ = teardown()
		fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		os.Exit(1)
	}
}
