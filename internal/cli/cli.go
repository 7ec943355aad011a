// Package cli implements the histmerge command line.
package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Extract *ExtractCommand
	History *HistoryCommand
	Stats   *StatsCommand
	Serve   *ServeCommand
	Export  *ExportCommand
	Paths   *PathsCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "histmerge"
	parser.LongDescription = "Extract browsing history from Chrome, Edge, Firefox and Opera and merge it into one local SQLite store."

	cmds := &commands{
		Extract: &ExtractCommand{globals: &globals, version: version},
		History: &HistoryCommand{globals: &globals, version: version},
		Stats:   &StatsCommand{globals: &globals, version: version},
		Serve:   &ServeCommand{globals: &globals, version: version},
		Export:  &ExportCommand{globals: &globals, version: version},
		Paths:   &PathsCommand{globals: &globals, version: version},
	}

	parser.AddCommand("extract", "Extract and merge browser history", "Snapshot each installed browser's history database, read the recent visits and merge them into the store.", cmds.Extract)
	parser.AddCommand("history", "List merged history", "List merged history records, most recent first.", cmds.History)
	parser.AddCommand("stats", "Show store statistics", "Show record totals per browser, the visit time range and the last extraction run.", cmds.Stats)
	parser.AddCommand("serve", "Start the JSON API", "Serve extraction, history and stats over a local JSON HTTP API.", cmds.Serve)
	parser.AddCommand("export", "Export history to text files", "Write one history_<browser>.txt file per browser from the merged store.", cmds.Export)
	parser.AddCommand("paths", "Show browser history locations", "Show where each browser's history database is found on this machine.", cmds.Paths)

	return parser, &globals, cmds
}

// Run is the main entry point for the histmerge CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("histmerge %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
