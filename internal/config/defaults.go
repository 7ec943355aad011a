package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:          "",
			SQLiteFile:    "history.db",
			MaxOpenConns:  4,
			BusyTimeoutMS: 5000,
		},
		Extraction: ExtractionConfig{
			Browsers:              []string{"chrome", "edge", "firefox", "opera"},
			WindowDays:            30,
			ChromiumLimit:         3000,
			FirefoxLimit:          2000,
			BrowserTimeoutSeconds: 30,
			Workers:               4,
			ScratchDir:            "",
			Paths:                 map[string]string{},
		},
		Capture: CaptureConfig{
			DenylistDomains:    []string{},
			DenylistRegex:      []string{},
			UseDefaultDenylist: false,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8722,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}
