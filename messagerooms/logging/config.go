package logging

// Config defines the logging section of the roomchat config file.
type Config struct {
	// Level is the minimum log level to output (e.g., "debug", "info", "warn", "error").
	// Can be overridden by the MESSAGEROOMS_LOG_LEVEL environment variable.
	Level string `yaml:"level" json:"level,omitempty" toml:"level" jsonschema:"enum=trace,enum=debug,enum=info,enum=warn,enum=error"`

	// ReportCaller includes file, line and function in each entry.
	ReportCaller bool `yaml:"report_caller" json:"report_caller,omitempty" toml:"report_caller"`

	// Format is "text" (default) or "json".
	Format string `yaml:"format" json:"format,omitempty" toml:"format" jsonschema:"enum=text,enum=json"`

	// File, when set, receives every entry in addition to stderr.
	File string `yaml:"file" json:"file,omitempty" toml:"file"`

	// Stderr controls when entries are written to stderr.
	// Can be "auto" (default), "always", or "never". In auto mode stderr is
	// used only when debugging or when stderr is not a terminal, so the TUI
	// is not painted over.
	Stderr string `yaml:"stderr" json:"stderr,omitempty" toml:"stderr" jsonschema:"enum=auto,enum=always,enum=never"`
}
