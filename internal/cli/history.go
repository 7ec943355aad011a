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

// Execute implements the go-flags Commander interface for HistoryCommand.
func (c *HistoryCommand) Execute(args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx, c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithHarvester(ctx, a.harvester)
}

// executeWithHarvester lists history through a provided harvester (for testing).
func (c *HistoryCommand) executeWithHarvester(ctx context.Context, h *harvest.Harvester) error {
	var b browser.Browser
	if c.Browser != "" {
		parsed, err := browser.Parse(c.Browser)
		if err != nil {
			return err
		}
		b = parsed
	}

	records, err := h.QueryHistory(ctx, b, c.Limit)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return c.printJSON(records)
	}
	return c.printHuman(records)
}

func (c *HistoryCommand) printHuman(records []storage.HistoryRecord) error {
	if len(records) == 0 {
		if c.Browser != "" {
			fmt.Printf("No history stored for %s\n", c.Browser)
		} else {
			fmt.Println("No history stored. Run \"histmerge extract\" first.")
		}
		return nil
	}

	fmt.Printf("%d %s\n\n", len(records), plural(len(records), "record"))

	for i, r := range records {
		title := r.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%d. %s\n", i+1, title)
		fmt.Printf("   %s\n", r.URL)
		fmt.Printf("   %s · %s\n", r.VisitedAt.Local().Format("2006-01-02 15:04"), r.Browser)

		if i < len(records)-1 {
			fmt.Println()
		}
	}

	return nil
}

type jsonRecord struct {
	Browser     string `json:"browser"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	VisitedAt   string `json:"visited_at"`
	ExtractedAt string `json:"extracted_at,omitempty"`
}

type jsonHistoryOutput struct {
	Count   int          `json:"count"`
	Browser string       `json:"browser,omitempty"`
	Records []jsonRecord `json:"records"`
}

func (c *HistoryCommand) printJSON(records []storage.HistoryRecord) error {
	out := jsonHistoryOutput{
		Count:   len(records),
		Browser: c.Browser,
		Records: make([]jsonRecord, len(records)),
	}

	for i, r := range records {
		out.Records[i] = jsonRecord{
			Browser:   string(r.Browser),
			URL:       r.URL,
			Title:     r.Title,
			VisitedAt: r.VisitedAt.UTC().Format(time.RFC3339),
		}
		if !r.ExtractedAt.IsZero() {
			out.Records[i].ExtractedAt = r.ExtractedAt.UTC().Format(time.RFC3339)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
