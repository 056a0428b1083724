package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	backend    string
	dbPath     string
	logLevel   string
}

// NewRootCmd builds the zombie command tree.
func NewRootCmd() *cobra.Command {
	o := &rootOptions{}
	root := &cobra.Command{
		Use:   "zombie",
		Short: "Zombie Finance: a tiny per-user income and expense ledger",
		Long: `Zombie Finance keeps one ledger per username. Record income and
expenses, see the balance and the zombie's mood, from the web page, the
terminal UI, or straight from the command line.`,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			LoadEnvFile()
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&o.configFile, "config", "", "TOML config file (overrides ZF_CONFIG_FILE)")
	f.StringVar(&o.backend, "backend", "", "storage backend: sqlite or memory")
	f.StringVar(&o.dbPath, "db", "", "SQLite database path")
	f.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newServeCmd(o),
		newTUICmd(o),
		newIncomeCmd(o),
		newExpenseCmd(o),
		newSummaryCmd(o),
		newCategoriesCmd(),
		newUsersCmd(o),
	)
	return root
}

// Execute runs the root command until it returns or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}
