/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/gradefactory/internal/store"
)

var (
	historyDBPath string
	historyLimit  int
	historyFull   bool
)

var errNoHistory = errors.New("no grading history")

// openExistingHistory opens the history database without creating it, so
// the read and maintenance commands never leave an empty file behind.
func openExistingHistory(dbPath string) (*store.Store, error) {
	if _, err := os.Stat(dbPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", errNoHistory, dbPath)
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the grading history",
	Long: `List, inspect, and clear the SQLite grading history.

The history keeps the final evaluations of every graded paper so an
unchanged paper is not sent to the backends again (see grade --force).`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List grading runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openExistingHistory(historyDBPath)
		if errors.Is(err, errNoHistory) {
			fmt.Println("No grading history at " + historyDBPath + ".")
			return nil
		}
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.ListRuns(context.Background(), historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}

		if len(runs) == 0 {
			fmt.Println("No grading runs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTARTED\tBACKENDS\tPAPERS\tGRADED\tCACHED\tFAILED\tINPUT")
		for _, r := range runs {
			total := fmt.Sprintf("%d", r.Total)
			if !r.Finished() {
				total += " (unfinished)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Backends,
				total, r.Graded, r.Cached, r.Failed, r.InputDir)
		}
		return w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the papers of a grading run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openExistingHistory(historyDBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		run, results, failures, err := db.GetRun(context.Background(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Run:      %s\n", run.ID)
		fmt.Printf("Started:  %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Input:    %s\n", run.InputDir)
		fmt.Printf("Output:   %s\n", run.OutputDir)
		fmt.Printf("Backends: %s\n\n", run.Backends)

		if len(results) > 0 {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PAPER\tCACHED\tGRADER A\tGRADER B\tMODERATOR\tOUTPUT")
			for _, r := range results {
				fmt.Fprintf(w, "%s\t%v\t%s\t%s\t%s\t%s\n",
					r.Paper, r.Cached,
					r.Result.GraderA.Latency, r.Result.GraderB.Latency, r.Result.Final.Latency,
					r.OutputPath)
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}

		for _, f := range failures {
			fmt.Printf("FAILED %s: %s\n", f.Paper, f.Error)
		}

		if historyFull {
			for _, r := range results {
				fmt.Printf("\n=== %s ===\n%s\n", r.Paper, r.Result.Final.Text)
			}
		}
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show grading history statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openExistingHistory(historyDBPath)
		if errors.Is(err, errNoHistory) {
			fmt.Println("No grading history at " + historyDBPath + ".")
			return nil
		}
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		fmt.Printf("Runs:           %d\n", stats.Runs)
		fmt.Printf("Graded papers:  %d\n", stats.Results)
		fmt.Printf("Reused results: %d\n", stats.Cached)
		fmt.Printf("Unique papers:  %d\n", stats.Papers)
		fmt.Printf("Failures:       %d\n", stats.Failures)
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a grading run and its results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openExistingHistory(historyDBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteRun(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to delete run: %w", err)
		}
		fmt.Printf("Deleted run: %s\n", args[0])
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the whole grading history",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openExistingHistory(historyDBPath)
		if errors.Is(err, errNoHistory) {
			fmt.Println("No grading history at " + historyDBPath + ".")
			return nil
		}
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.Clear(context.Background())
		if err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		fmt.Printf("Cleared %d runs from grading history.\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.PersistentFlags().StringVar(&historyDBPath, "db", "./data/gradefactory.db", "Database path")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show (0 = all)")
	historyShowCmd.Flags().BoolVar(&historyFull, "full", false, "Print the final moderator evaluation of each paper")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyClearCmd)
}
