package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitcall/packages/history"
)

// DefaultHistoryDB is used when neither --db nor HITCALL_HISTORY is set
const DefaultHistoryDB = "hitcall-history.db"

var (
	historyDBFlag     string
	historyClientFlag string
	historyFailedFlag bool
	historyLimitFlag  int
	historyPruneFlag  time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or prune recorded calls",
	Long: `Show calls recorded with 'hitcall call --history', newest first.

Examples:
  hitcall history --db calls.db
  hitcall history --client users --failed
  hitcall history --prune 720h`,
	Args: usageArgs(cobra.NoArgs),
	RunE: historyCommand,
}

func init() {
	historyCmd.Flags().StringVar(&historyDBFlag, "db", getEnvString("HITCALL_HISTORY", DefaultHistoryDB), "SQLite database with recorded calls (env: HITCALL_HISTORY)")
	historyCmd.Flags().StringVar(&historyClientFlag, "client", "", "Show only calls made through this client")
	historyCmd.Flags().BoolVar(&historyFailedFlag, "failed", false, "Show only calls with a status of 400 or above")
	historyCmd.Flags().IntVar(&historyLimitFlag, "limit", getEnvInt("HITCALL_HISTORY_LIMIT", 20), "Maximum number of calls to show, 0 for all (env: HITCALL_HISTORY_LIMIT)")
	historyCmd.Flags().DurationVar(&historyPruneFlag, "prune", 0, "Delete calls older than this (e.g. 720h) instead of listing")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}

	store, err := history.Open(historyDBFlag, env.config.Debug)
	if err != nil {
		return err
	}
	defer store.Close()

	if historyPruneFlag > 0 {
		removed, err := store.Prune(cmd.Context(), time.Now().Add(-historyPruneFlag))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d calls\n", removed)
		return nil
	}

	formatter, err := newFormatter(cmd)
	if err != nil {
		return err
	}
	records, err := store.Recent(cmd.Context(), history.Filter{
		Client:     historyClientFlag,
		FailedOnly: historyFailedFlag,
		Limit:      historyLimitFlag,
	})
	if err != nil {
		return err
	}
	formatter.FormatHistory(records)
	return formatter.Flush()
}
