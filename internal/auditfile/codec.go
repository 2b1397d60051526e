package auditfile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/vetkit/vetkit/internal/criteria"
	"github.com/vetkit/vetkit/internal/semver"
	"github.com/vetkit/vetkit/internal/store"
)

const (
	deltaSeparatorConstant                  = "->"
	malformedDeltaTemplateConstant          = "audit entry for %q has a malformed delta %q, expected \"from -> to\""
	missingEndpointTemplateConstant         = "audit entry for %q must set exactly one of version or delta"
	bothEndpointsSetTemplateConstant        = "audit entry for %q must not set both version and delta"
	decodeAuditsErrorTemplateConstant       = "failed to decode audits document: %w"
	decodeConfigErrorTemplateConstant       = "failed to decode config document: %w"
	decodeImportsErrorTemplateConstant      = "failed to decode imports document: %w"
	encodeAuditsErrorTemplateConstant       = "failed to encode audits document: %w"
	encodeConfigErrorTemplateConstant       = "failed to encode config document: %w"
	encodeImportsErrorTemplateConstant      = "failed to encode imports document: %w"
)

// ParseAudits decodes an audits.toml document.
func ParseAudits(data []byte) (AuditsDocument, error) {
	var document AuditsDocument
	if decodeError := toml.Unmarshal(data, &document); decodeError != nil {
		return AuditsDocument{}, fmt.Errorf(decodeAuditsErrorTemplateConstant, decodeError)
	}
	return document, nil
}

// ParseConfig decodes a config.toml document.
func ParseConfig(data []byte) (ConfigDocument, error) {
	var document ConfigDocument
	if decodeError := toml.Unmarshal(data, &document); decodeError != nil {
		return ConfigDocument{}, fmt.Errorf(decodeConfigErrorTemplateConstant, decodeError)
	}
	return document, nil
}

// ParseImports decodes an imports.lock document.
func ParseImports(data []byte) (ImportsDocument, error) {
	var document ImportsDocument
	if decodeError := toml.Unmarshal(data, &document); decodeError != nil {
		return ImportsDocument{}, fmt.Errorf(decodeImportsErrorTemplateConstant, decodeError)
	}
	return document, nil
}

// EncodeAudits serializes an AuditsDocument back to TOML.
func EncodeAudits(document AuditsDocument) ([]byte, error) {
	encoded, encodeError := toml.Marshal(document)
	if encodeError != nil {
		return nil, fmt.Errorf(encodeAuditsErrorTemplateConstant, encodeError)
	}
	return encoded, nil
}

// EncodeConfig serializes a ConfigDocument back to TOML.
func EncodeConfig(document ConfigDocument) ([]byte, error) {
	encoded, encodeError := toml.Marshal(document)
	if encodeError != nil {
		return nil, fmt.Errorf(encodeConfigErrorTemplateConstant, encodeError)
	}
	return encoded, nil
}

// EncodeImports serializes an ImportsDocument back to TOML.
func EncodeImports(document ImportsDocument) ([]byte, error) {
	encoded, encodeError := toml.Marshal(document)
	if encodeError != nil {
		return nil, fmt.Errorf(encodeImportsErrorTemplateConstant, encodeError)
	}
	return encoded, nil
}

// BuildCriteriaTable converts the document's criteria table into the
// validated in-memory criteria.Table.
func BuildCriteriaTable(document AuditsDocument) (*criteria.Table, error) {
	names := make([]string, 0, len(document.Criteria))
	for name := range document.Criteria {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]criteria.Entry, 0, len(names))
	for _, name := range names {
		raw := document.Criteria[name]
		entries = append(entries, criteria.Entry{
			Name:        name,
			Description: raw.Description,
			Implies:     []string(raw.Implies),
		})
	}

	return criteria.NewTable(entries)
}

// BuildStoreInputs converts a local AuditsDocument, its companion
// ConfigDocument, and any imported peer AuditsDocuments into store.Inputs.
// Entries originating from imports carry that import's name as Source.
func BuildStoreInputs(local AuditsDocument, configDocument ConfigDocument, imports map[string]AuditsDocument) (store.Inputs, error) {
	inputs := store.Inputs{}

	localFulls, localDeltas, localViolations, conversionError := convertAuditsDocument(local, store.Source{})
	if conversionError != nil {
		return store.Inputs{}, conversionError
	}
	inputs.Fulls = append(inputs.Fulls, localFulls...)
	inputs.Deltas = append(inputs.Deltas, localDeltas...)
	inputs.Violations = append(inputs.Violations, localViolations...)

	importNames := make([]string, 0, len(imports))
	for importName := range imports {
		importNames = append(importNames, importName)
	}
	sort.Strings(importNames)

	for _, importName := range importNames {
		importedFulls, importedDeltas, importedViolations, importConversionError := convertAuditsDocument(imports[importName], store.Source{ImportName: importName})
		if importConversionError != nil {
			return store.Inputs{}, importConversionError
		}
		inputs.Fulls = append(inputs.Fulls, importedFulls...)
		inputs.Deltas = append(inputs.Deltas, importedDeltas...)
		inputs.Violations = append(inputs.Violations, importedViolations...)
	}

	exemptions, exemptionError := convertExemptions(configDocument)
	if exemptionError != nil {
		return store.Inputs{}, exemptionError
	}
	inputs.Exemptions = exemptions

	policies, policyError := convertPolicies(configDocument)
	if policyError != nil {
		return store.Inputs{}, policyError
	}
	inputs.Policies = policies

	return inputs, nil
}

func convertAuditsDocument(document AuditsDocument, source store.Source) ([]store.FullAudit, []store.DeltaAudit, []store.Violation, error) {
	packageNames := make([]string, 0, len(document.Audits))
	for packageName := range document.Audits {
		packageNames = append(packageNames, packageName)
	}
	sort.Strings(packageNames)

	fulls := make([]store.FullAudit, 0)
	deltas := make([]store.DeltaAudit, 0)

	for _, packageName := range packageNames {
		for _, entry := range document.Audits[packageName] {
			hasVersion := len(entry.Version) > 0
			hasDelta := len(entry.Delta) > 0
			if hasVersion == hasDelta {
				if hasVersion {
					return nil, nil, nil, fmt.Errorf(bothEndpointsSetTemplateConstant, packageName)
				}
				return nil, nil, nil, fmt.Errorf(missingEndpointTemplateConstant, packageName)
			}

			dependencyCriteria, dependencyError := convertDependencyCriteria(entry.DependencyCriteria)
			if dependencyError != nil {
				return nil, nil, nil, dependencyError
			}

			if hasVersion {
				version, parseError := semver.Parse(entry.Version)
				if parseError != nil {
					return nil, nil, nil, parseError
				}
				fulls = append(fulls, store.FullAudit{
					Package:            packageName,
					Version:            version,
					Criteria:           criteria.NewSet(entry.Criteria...),
					DependencyCriteria: dependencyCriteria,
					Notes:              entry.Notes,
					Source:             source,
				})
				continue
			}

			fromVersion, toVersion, deltaParseError := parseDelta(packageName, entry.Delta)
			if deltaParseError != nil {
				return nil, nil, nil, deltaParseError
			}
			deltas = append(deltas, store.DeltaAudit{
				Package:            packageName,
				From:               fromVersion,
				To:                 toVersion,
				Criteria:           criteria.NewSet(entry.Criteria...),
				DependencyCriteria: dependencyCriteria,
				Notes:              entry.Notes,
				Source:             source,
			})
		}
	}

	violationPackageNames := make([]string, 0, len(document.Violations))
	for packageName := range document.Violations {
		violationPackageNames = append(violationPackageNames, packageName)
	}
	sort.Strings(violationPackageNames)

	violations := make([]store.Violation, 0)
	for _, packageName := range violationPackageNames {
		for _, entry := range document.Violations[packageName] {
			parsedRange, rangeError := semver.ParseRange(entry.Version)
			if rangeError != nil {
				return nil, nil, nil, rangeError
			}
			violations = append(violations, store.Violation{
				Package:  packageName,
				Range:    parsedRange,
				Criteria: criteria.NewSet(entry.Criteria...),
				Source:   source,
			})
		}
	}

	return fulls, deltas, violations, nil
}

func convertExemptions(document ConfigDocument) ([]store.Exemption, error) {
	packageNames := make([]string, 0, len(document.Exemptions))
	for packageName := range document.Exemptions {
		packageNames = append(packageNames, packageName)
	}
	sort.Strings(packageNames)

	exemptions := make([]store.Exemption, 0)
	for _, packageName := range packageNames {
		for _, entry := range document.Exemptions[packageName] {
			version, parseError := semver.Parse(entry.Version)
			if parseError != nil {
				return nil, parseError
			}
			suggest := true
			if entry.Suggest != nil {
				suggest = *entry.Suggest
			}
			exemptions = append(exemptions, store.Exemption{
				Package:  packageName,
				Version:  version,
				Criteria: criteria.NewSet(entry.Criteria...),
				Suggest:  suggest,
			})
		}
	}
	return exemptions, nil
}

func convertPolicies(document ConfigDocument) ([]store.Policy, error) {
	packageNames := make([]string, 0, len(document.Policy))
	for packageName := range document.Policy {
		packageNames = append(packageNames, packageName)
	}
	sort.Strings(packageNames)

	policies := make([]store.Policy, 0, len(packageNames))
	for _, packageName := range packageNames {
		entry := document.Policy[packageName]
		dependencyCriteria, dependencyError := convertDependencyCriteria(entry.DependencyCriteria)
		if dependencyError != nil {
			return nil, dependencyError
		}
		policies = append(policies, store.Policy{
			Package:            packageName,
			Criteria:           criteria.NewSet(entry.Criteria...),
			DependencyCriteria: dependencyCriteria,
			IncludeDevDemands:  entry.IncludeDevDemands,
		})
	}
	return policies, nil
}

func convertDependencyCriteria(raw map[string]StringOrSlice) (map[string]criteria.Set, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	converted := make(map[string]criteria.Set, len(raw))
	for dependencyName, names := range raw {
		converted[dependencyName] = criteria.NewSet(names...)
	}
	return converted, nil
}

func parseDelta(packageName, raw string) (semver.Version, semver.Version, error) {
	parts := strings.SplitN(raw, deltaSeparatorConstant, 2)
	if len(parts) != 2 {
		return semver.Version{}, semver.Version{}, fmt.Errorf(malformedDeltaTemplateConstant, packageName, raw)
	}

	fromVersion, fromError := semver.Parse(strings.TrimSpace(parts[0]))
	if fromError != nil {
		return semver.Version{}, semver.Version{}, fromError
	}
	toVersion, toError := semver.Parse(strings.TrimSpace(parts[1]))
	if toError != nil {
		return semver.Version{}, semver.Version{}, toError
	}
	return fromVersion, toVersion, nil
}
