package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"brandscraper/pkg/config"
	"brandscraper/pkg/models"
	"brandscraper/pkg/snapshot"
)

var showLimit int

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show [path]",
	Short: "Print the contents of an existing snapshot",
	Long: `Load a snapshot and print how many records of each kind it holds,
followed by the first few records of each.

Without a path the configured output path is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&showLimit, "limit", "n", 3, "records to print per kind, 0 for counts only")
}

func runShow(cmd *cobra.Command, args []string) error {
	path := config.DefaultConfig().Output.Path
	if len(args) == 1 {
		path = args[0]
	} else if cfg, err := config.Load(configFile, nil); err == nil {
		path = cfg.Output.Path
	}

	snap, err := snapshot.Load(path)
	if err != nil {
		return &exitError{code: exitFatal, err: err}
	}

	showSnapshot(path, snap, showLimit)
	return nil
}

func showSnapshot(path string, snap *models.Snapshot, limit int) {
	products, testimonials, reviews := snap.Counts()
	printer.Info("Snapshot", path)
	printer.Table([][]string{
		{"products", strconv.Itoa(products)},
		{"testimonials", strconv.Itoa(testimonials)},
		{"reviews", strconv.Itoa(reviews)},
	})

	if limit <= 0 {
		return
	}

	var rows [][]string
	for i, p := range snap.Products {
		if i == limit {
			break
		}
		rows = append(rows, []string{"product", fmt.Sprintf("%s (%s)", p.Name, p.Price)})
	}
	for i, t := range snap.Testimonials {
		if i == limit {
			break
		}
		rows = append(rows, []string{"testimonial", fmt.Sprintf("%s: %s", t.Author, truncate(t.Text, 60))})
	}
	for i, r := range snap.Reviews {
		if i == limit {
			break
		}
		rows = append(rows, []string{"review", fmt.Sprintf("%s: %s", r.Date, truncate(r.Text, 60))})
	}
	if len(rows) > 0 {
		printer.Println()
		printer.Table(rows)
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
