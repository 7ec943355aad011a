package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/runnerr0/histmerge/internal/browser"
	"github.com/runnerr0/histmerge/internal/harvest"
	"github.com/runnerr0/histmerge/internal/storage"
)

// statsJSON is the JSON output structure for the stats command.
type statsJSON struct {
	Version           string           `json:"version"`
	DatabasePath      string           `json:"database_path"`
	DatabaseSizeBytes int64            `json:"database_size_bytes"`
	Total             int64            `json:"total"`
	PerBrowser        map[string]int64 `json:"per_browser"`
	OldestVisit       string           `json:"oldest_visit,omitempty"`
	NewestVisit       string           `json:"newest_visit,omitempty"`
	LastRun           *lastRunJSON     `json:"last_run,omitempty"`
}

type lastRunJSON struct {
	ID          string `json:"id"`
	FinishedAt  string `json:"finished_at"`
	TotalMerged int    `json:"total_merged"`
}

// Execute implements the go-flags Commander interface for StatsCommand.
func (c *StatsCommand) Execute(args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx, c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithHarvester(ctx, a.harvester, a.dbPath)
}

// executeWithHarvester reports stats through a provided harvester (for testing).
func (c *StatsCommand) executeWithHarvester(ctx context.Context, h *harvest.Harvester, dbPath string) error {
	stats, err := h.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}
	run, err := h.LastRun(ctx)
	if err != nil {
		return fmt.Errorf("get last run: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return c.printStatsJSON(stats, run, dbPath)
	}
	return c.printStatsHuman(stats, run, dbPath)
}

func (c *StatsCommand) printStatsHuman(stats *storage.Stats, run *storage.RunRecord, dbPath string) error {
	fmt.Println("histmerge stats")
	fmt.Println("===============")
	fmt.Printf("Version:       %s\n", c.version)
	fmt.Printf("Database:      %s (%s)\n", dbPath, formatBytes(stats.DatabaseSizeBytes))
	fmt.Printf("Records:       %s\n", formatNumber(stats.Total))

	if stats.Total > 0 {
		fmt.Println()
		fmt.Println("Per browser:")
		for _, b := range browser.All() {
			if n, ok := stats.PerBrowser[b]; ok {
				fmt.Printf("  %-12s %s\n", b, formatNumber(n))
			}
		}
		fmt.Println()
		fmt.Printf("Oldest visit:  %s\n", stats.OldestVisit.Local().Format("2006-01-02 15:04"))
		fmt.Printf("Newest visit:  %s\n", stats.NewestVisit.Local().Format("2006-01-02 15:04"))
	}

	fmt.Println()
	if run == nil {
		fmt.Println("Last run:      never")
	} else {
		fmt.Printf("Last run:      %s (%s merged)\n",
			run.FinishedAt.Local().Format("2006-01-02 15:04:05"), formatNumber(int64(run.TotalMerged)))
	}

	return nil
}

func (c *StatsCommand) printStatsJSON(stats *storage.Stats, run *storage.RunRecord, dbPath string) error {
	out := statsJSON{
		Version:           c.version,
		DatabasePath:      dbPath,
		DatabaseSizeBytes: stats.DatabaseSizeBytes,
		Total:             stats.Total,
		PerBrowser:        make(map[string]int64, len(stats.PerBrowser)),
	}
	for b, n := range stats.PerBrowser {
		out.PerBrowser[string(b)] = n
	}

	if stats.Total > 0 {
		out.OldestVisit = stats.OldestVisit.UTC().Format(time.RFC3339)
		out.NewestVisit = stats.NewestVisit.UTC().Format(time.RFC3339)
	}
	if run != nil {
		out.LastRun = &lastRunJSON{
			ID:          run.ID,
			FinishedAt:  run.FinishedAt.UTC().Format(time.RFC3339),
			TotalMerged: run.TotalMerged,
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
