package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/runnerr0/histmerge/internal/browser"
	"github.com/runnerr0/histmerge/internal/harvest"
	"github.com/runnerr0/histmerge/internal/storage"
)

// exportTimeLayout is the visit time format used in export files.
const exportTimeLayout = "2006-01-02 15:04:05"

// Execute implements the go-flags Commander interface for ExportCommand.
func (c *ExportCommand) Execute(args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx, c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithHarvester(ctx, a.harvester)
}

// executeWithHarvester exports through a provided harvester (for testing).
func (c *ExportCommand) executeWithHarvester(ctx context.Context, h *harvest.Harvester) error {
	browsers, err := selectBrowsers(c.Browser, browser.All())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	for _, b := range browsers {
		records, err := h.QueryHistory(ctx, b, c.Limit)
		if err != nil {
			return fmt.Errorf("query %s: %w", b, err)
		}
		if len(records) == 0 {
			continue
		}

		path := filepath.Join(c.Dir, fmt.Sprintf("history_%s.txt", b))
		if err := writeExport(path, records); err != nil {
			return err
		}
		fmt.Printf("Saved %s %s to %s\n", formatNumber(int64(len(records))), plural(len(records), "record"), path)
	}
	return nil
}

// writeExport writes one "visited_at - url - title" line per record.
func writeExport(path string, records []storage.HistoryRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, r := range records {
		fmt.Fprintf(w, "%s - %s - %s\n", r.VisitedAt.UTC().Format(exportTimeLayout), r.URL, r.Title)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write export file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}
