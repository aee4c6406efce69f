package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-agent/internal/catalog"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past collection runs",
	Long: `History lists recent runs recorded in <outdir>/runs.db, newest first.
Use --run to show the final index of one run, or --search to find cataloged
papers by title across all runs.`,
	RunE: runHistory,
}

func init() {
	addHistoryFlags(historyCmd.Flags())
	rootCmd.AddCommand(historyCmd)
}

func addHistoryFlags(f *pflag.FlagSet) {
	f.String("outdir", defaultOutDir, "output directory holding runs.db")
	f.Int("limit", 20, "maximum rows to show")
	f.String("run", "", "show the items of this run ID")
	f.String("search", "", "find cataloged papers whose title contains this text")
	f.Bool("json", false, "output as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	outDir, _ := cmd.Flags().GetString("outdir")
	if !cmd.Flags().Changed("outdir") && viper.IsSet("persist.outdir") {
		outDir = viper.GetString("persist.outdir")
	}
	limit, _ := cmd.Flags().GetInt("limit")
	runID, _ := cmd.Flags().GetString("run")
	term, _ := cmd.Flags().GetString("search")
	asJSON, _ := cmd.Flags().GetBool("json")

	path := filepath.Join(outDir, catalog.DBFile)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no run catalog at %s", path)
	}
	cat, err := catalog.Open(path)
	if err != nil {
		return err
	}
	defer cat.Close()

	out := cmd.OutOrStdout()
	ctx := context.Background()
	if runID != "" || term != "" {
		var items []catalog.Item
		if runID != "" {
			items, err = cat.Items(ctx, runID)
		} else {
			items, err = cat.SearchTitles(ctx, term, limit)
		}
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(out, items)
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RANK\tSCORE\tYEAR\tSOURCE\tID\tTITLE")
		for _, it := range items {
			year := "-"
			if it.Year != nil {
				year = fmt.Sprint(*it.Year)
			}
			fmt.Fprintf(tw, "%d\t%.2f\t%s\t%s\t%s\t%s\n", it.Rank, it.Score, year, it.Source, it.ItemID, it.Title)
		}
		return tw.Flush()
	}

	runs, err := cat.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(out, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tRUN\tMODE\tCOLLECTED\tUNIQUE\tSAVED\tWARNINGS\tQUERY")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"), r.ID, r.Mode,
			r.Collected, r.Unique, r.Saved, r.Warnings, r.Query)
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
