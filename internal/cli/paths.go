package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/runnerr0/histmerge/internal/browser"
	"github.com/runnerr0/histmerge/internal/locate"
)

type pathJSON struct {
	Browser    string   `json:"browser"`
	Found      bool     `json:"found"`
	Path       string   `json:"path,omitempty"`
	Candidates []string `json:"candidates,omitempty"`
}

// Execute implements the go-flags Commander interface for PathsCommand.
// It only reads configuration; the store is not opened.
func (c *PathsCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	browsers, err := cfg.ExtractionBrowsers()
	if err != nil {
		return err
	}
	overrides, err := cfg.PathOverrides()
	if err != nil {
		return err
	}

	return c.executeWithResolver(locate.NewResolver(overrides), browsers)
}

// executeWithResolver prints locations using a provided resolver (for testing).
func (c *PathsCommand) executeWithResolver(r *locate.Resolver, browsers []browser.Browser) error {
	out := make([]pathJSON, 0, len(browsers))
	for _, b := range browsers {
		p := pathJSON{Browser: string(b)}
		p.Path, p.Found = r.Resolve(b)
		if c.All {
			p.Candidates = r.Candidates(b)
		}
		out = append(out, p)
	}

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for _, p := range out {
		if p.Found {
			fmt.Printf("%-8s %s\n", p.Browser, p.Path)
		} else {
			fmt.Printf("%-8s not found\n", p.Browser)
		}
		for _, cand := range p.Candidates {
			fmt.Printf("%-8s   %s\n", "", cand)
		}
	}
	return nil
}
