// Package cli wires the engine (criteria, store, graphview, resolver,
// suggester) and its supporting infrastructure (auditfile, graphinput,
// filtergraph, difforacle, importer) into a cobra command hierarchy, the
// way cmd/cli/application.go wires the teacher's own tool families.
package cli

// Configuration is the CLI's own runtime configuration: file locations and
// behavioral defaults. It is distinct from audits.toml/config.toml, which
// are the engine's data and are parsed directly by internal/auditfile.
type Configuration struct {
	Common  CommonConfiguration  `mapstructure:"common"`
	Paths   PathsConfiguration   `mapstructure:"paths"`
	Oracle  OracleConfiguration  `mapstructure:"oracle"`
	Imports ImportsConfiguration `mapstructure:"imports"`
}

// CommonConfiguration holds logging and default-output settings shared by
// every subcommand.
type CommonConfiguration struct {
	LogLevel     string `mapstructure:"log_level"`
	LogFormat    string `mapstructure:"log_format"`
	OutputFormat string `mapstructure:"output_format"`
}

// PathsConfiguration locates the engine's persisted documents and the diff
// cache directory.
type PathsConfiguration struct {
	AuditsFile     string `mapstructure:"audits_file"`
	PolicyFile     string `mapstructure:"policy_file"`
	ImportsFile    string `mapstructure:"imports_file"`
	GraphFile      string `mapstructure:"graph_file"`
	CacheDirectory string `mapstructure:"cache_directory"`
}

// OracleConfiguration configures the default shell-backed diff oracle.
type OracleConfiguration struct {
	DiffCommand string `mapstructure:"diff_command"`
	Concurrency int    `mapstructure:"concurrency"`
}

// ImportsConfiguration lists the peer organizations whose audits.toml files
// fetch-imports pulls, and the concurrency bound for doing so.
type ImportsConfiguration struct {
	Concurrency int                         `mapstructure:"concurrency"`
	Sources     []ImportSourceConfiguration `mapstructure:"sources"`
}

// ImportSourceConfiguration names one peer import and its source URL.
type ImportSourceConfiguration struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// DefaultConfigurationValues seeds viper defaults, following the teacher's
// per-tool DefaultConfigurationValues convention.
func DefaultConfigurationValues() map[string]any {
	return map[string]any{
		"common.log_level":     "info",
		"common.log_format":    "structured",
		"common.output_format": "human",
		"paths.audits_file":    "audits.toml",
		"paths.policy_file":    "config.toml",
		"paths.imports_file":   "imports.lock",
		"paths.graph_file":     "graph.json",
		"paths.cache_directory": ".vetkit-cache",
		"oracle.diff_command":  "diff",
		"oracle.concurrency":   8,
		"imports.concurrency":  4,
	}
}
