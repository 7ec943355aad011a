package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file (default $HISTMERGE_CONFIG or the XDG config dir)" default:""`
	DBPath  string `long:"db-path" description:"Override the history database file"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable debug logging"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// ExtractCommand reads every installed browser and merges into the store.
type ExtractCommand struct {
	Browser []string `long:"browser" description:"Only extract this browser (repeatable)"`

	globals *GlobalFlags
	version string
}

// HistoryCommand prints merged records, most recent first.
type HistoryCommand struct {
	Browser string `long:"browser" description:"Filter by browser"`
	Limit   int    `long:"limit" description:"Maximum results" default:"100"`

	globals *GlobalFlags
	version string
}

// StatsCommand shows totals per browser and the last extraction run.
type StatsCommand struct {
	globals *GlobalFlags
	version string
}

// ServeCommand starts the JSON HTTP API.
type ServeCommand struct {
	Host string `long:"host" description:"Override listen host"`
	Port int    `long:"port" description:"Override listen port"`

	globals *GlobalFlags
	version string
}

// ExportCommand writes history_<browser>.txt files.
type ExportCommand struct {
	Dir     string   `long:"dir" description:"Output directory" default:"."`
	Browser []string `long:"browser" description:"Only export this browser (repeatable)"`
	Limit   int      `long:"limit" description:"Maximum records per browser" default:"5000"`

	globals *GlobalFlags
	version string
}

// PathsCommand lists where each browser's history is looked for.
type PathsCommand struct {
	All bool `long:"all" description:"Show every candidate path, not just the resolved one"`

	globals *GlobalFlags
	version string
}
