package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	historyConfig string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query generation history database",
	Long:  `Query the generation history database for one configuration or all of them`,
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyConfig, "model", "", "only show generations of this configuration")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "maximum number of records to show (0 for all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	enableVerbose()

	orch, err := newOrchestrator()
	if err != nil {
		color.Red("Failed to initialize orchestrator: %v", err)
		os.Exit(1)
	}
	defer orch.Close()

	db := orch.GetDB()
	if db == nil || !db.IsEnabled() {
		color.Red("Error: Database is not enabled. Please enable it in config.yaml")
		os.Exit(1)
	}

	records, err := orch.History(context.Background(), historyConfig, historyLimit)
	if err != nil {
		color.Red("Failed to query database: %v", err)
		os.Exit(1)
	}

	if len(records) == 0 {
		if historyConfig != "" {
			color.Yellow("[INF] No generations of %s found in database.", historyConfig)
		} else {
			color.Yellow("[INF] No generations found in database.")
		}
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, color.CyanString("RUN\tCONFIG\tTEMP\tFILE\tCREATED"))
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, r := range records {
		status := color.GreenString
		if _, err := os.Stat(r.FilePath); err != nil {
			status = color.RedString
		}

		fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\n",
			r.RunID.String()[:8],
			r.ConfigName,
			r.Temperature,
			status(filepath.Base(r.FilePath)),
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()

	color.Green("\nTotal records: %d", len(records))
}
