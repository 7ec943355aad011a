package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/runnerr0/histmerge/internal/harvest"
)

// Execute implements the go-flags Commander interface for ExtractCommand.
func (c *ExtractCommand) Execute(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := openApp(ctx, c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(c.Browser) > 0 {
		a.cfg.Extraction.Browsers = c.Browser
		if a.harvester, err = newHarvester(a.cfg, a.store, a.logger); err != nil {
			return err
		}
	}

	return c.executeWithHarvester(ctx, a.harvester)
}

// executeWithHarvester runs an extraction against a provided harvester (for testing).
func (c *ExtractCommand) executeWithHarvester(ctx context.Context, h *harvest.Harvester) error {
	report, err := h.RunExtraction(ctx)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(report)
	return nil
}

func printReport(r *harvest.Report) {
	elapsed := r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond)
	fmt.Printf("Extraction %s (%s)\n\n", r.RunID, elapsed)

	for _, b := range r.Browsers {
		switch {
		case !b.Found:
			fmt.Printf("  %-8s not found\n", b.Browser)
		case b.Error != "":
			fmt.Printf("  %-8s error: %s\n", b.Browser, b.Error)
			fmt.Printf("  %-8s %s\n", "", b.Path)
		default:
			fmt.Printf("  %-8s %s seen, %s merged", b.Browser,
				formatNumber(int64(b.RecordsSeen)), formatNumber(int64(b.RecordsMerged)))
			if b.Excluded > 0 {
				fmt.Printf(", %s excluded", formatNumber(int64(b.Excluded)))
			}
			fmt.Println()
			fmt.Printf("  %-8s %s\n", "", b.Path)
		}
	}

	fmt.Println()
	fmt.Printf("Total merged: %s %s\n", formatNumber(int64(r.TotalMerged)), plural(r.TotalMerged, "record"))
}
