// Package auditfile parses and emits the project's persisted TOML
// documents (audits.toml, config.toml, imports.lock) and converts them to
// and from the in-memory types the criteria and store packages consume.
// The engine itself never touches these documents directly — only the CLI
// layer does, at load and save time.
package auditfile

// StringOrSlice decodes a TOML value that may be written as either a bare
// string or an array of strings, and always re-encodes as an array once it
// holds more than one entry.
type StringOrSlice []string

// CriteriaEntryDocument is one entry of the top-level `criteria.<name>`
// table in audits.toml.
type CriteriaEntryDocument struct {
	Description string        `toml:"description"`
	Implies     StringOrSlice `toml:"implies,omitempty"`
}

// AuditEntryDocument is one entry in `audits.<package>`. Exactly one of
// Version or Delta is populated.
type AuditEntryDocument struct {
	Version            string                   `toml:"version,omitempty"`
	Delta              string                   `toml:"delta,omitempty"`
	Criteria           StringOrSlice             `toml:"criteria"`
	DependencyCriteria map[string]StringOrSlice `toml:"dependency-criteria,omitempty"`
	Notes              string                   `toml:"notes,omitempty"`
}

// ViolationEntryDocument is one entry in `violations.<package>`.
type ViolationEntryDocument struct {
	Version  string        `toml:"version"`
	Criteria StringOrSlice `toml:"criteria"`
}

// AuditsDocument is the parsed form of audits.toml (and, per import, of an
// entry under imports.lock).
type AuditsDocument struct {
	Criteria   map[string]CriteriaEntryDocument    `toml:"criteria,omitempty"`
	Audits     map[string][]AuditEntryDocument      `toml:"audits,omitempty"`
	Violations map[string][]ViolationEntryDocument  `toml:"violations,omitempty"`
}

// ExemptionEntryDocument is one entry in `[[exemptions.<package>]]`.
type ExemptionEntryDocument struct {
	Version  string        `toml:"version"`
	Criteria StringOrSlice `toml:"criteria"`
	Suggest  *bool         `toml:"suggest,omitempty"`
}

// PolicyEntryDocument is one entry in `[policy.<package>]`.
type PolicyEntryDocument struct {
	Criteria           StringOrSlice             `toml:"criteria"`
	DependencyCriteria map[string]StringOrSlice `toml:"dependency-criteria,omitempty"`
	IncludeDevDemands  bool                      `toml:"dev-demands,omitempty"`
}

// ConfigDocument is the parsed form of config.toml: exemptions and policy.
type ConfigDocument struct {
	Exemptions map[string][]ExemptionEntryDocument `toml:"exemptions,omitempty"`
	Policy     map[string]PolicyEntryDocument       `toml:"policy,omitempty"`
}

// ImportsDocument is the parsed form of imports.lock: one AuditsDocument per
// named peer import.
type ImportsDocument struct {
	Imports map[string]AuditsDocument `toml:"imports,omitempty"`
}
