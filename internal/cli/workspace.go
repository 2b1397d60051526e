package cli

import (
	"fmt"
	"os"

	"github.com/vetkit/vetkit/internal/auditfile"
	"github.com/vetkit/vetkit/internal/criteria"
	"github.com/vetkit/vetkit/internal/filtergraph"
	"github.com/vetkit/vetkit/internal/graphinput"
	"github.com/vetkit/vetkit/internal/graphview"
	"github.com/vetkit/vetkit/internal/store"
)

const (
	readAuditsErrorTemplateConstant  = "failed to read audits file %q: %w"
	readPolicyErrorTemplateConstant  = "failed to read policy file %q: %w"
	readImportsErrorTemplateConstant = "failed to read imports file %q: %w"
	readGraphErrorTemplateConstant   = "failed to read graph file %q: %w"
	parseAuditsErrorTemplateConstant = "failed to parse audits file %q: %w"
	parsePolicyErrorTemplateConstant = "failed to parse policy file %q: %w"
	parseImportsErrorTemplateConstant = "failed to parse imports file %q: %w"
	parseGraphErrorTemplateConstant  = "failed to parse graph file %q: %w"
	buildTableErrorTemplateConstant  = "failed to build criteria table: %w"
	buildStoreErrorTemplateConstant  = "failed to build audit store: %w"
	buildGraphErrorTemplateConstant  = "failed to build dependency graph: %w"
	filterGraphParseErrorTemplateConstant = "failed to parse --filter-graph expression: %w"
)

// Workspace bundles the engine's three load-time products — the criteria
// table, the audit store, and the dependency graph — plus the raw documents
// they were built from, so CLI commands that mutate on-disk files (certify,
// add-exemption, record-violation) can re-serialize without reloading.
type Workspace struct {
	AuditsDocument auditfile.AuditsDocument
	PolicyDocument auditfile.ConfigDocument
	Imports        map[string]auditfile.AuditsDocument

	Table *criteria.Table
	Store *store.Store
	Graph *graphview.Graph
}

// LoadOptions controls which documents Workspace reads and how the graph is
// post-processed.
type LoadOptions struct {
	AuditsPath      string
	PolicyPath      string
	ImportsPath     string
	GraphPath       string
	FilterGraphExpr string
	SkipGraph       bool
}

// LoadWorkspace reads and parses every configured document, builds the
// criteria table and audit store, and — unless SkipGraph is set — loads and
// optionally filters the dependency graph.
func LoadWorkspace(options LoadOptions) (*Workspace, error) {
	auditsDocument, auditsError := loadAudits(options.AuditsPath)
	if auditsError != nil {
		return nil, auditsError
	}

	policyDocument, policyError := loadPolicy(options.PolicyPath)
	if policyError != nil {
		return nil, policyError
	}

	imports, importsError := loadImports(options.ImportsPath)
	if importsError != nil {
		return nil, importsError
	}

	table, tableError := auditfile.BuildCriteriaTable(auditsDocument)
	if tableError != nil {
		return nil, fmt.Errorf(buildTableErrorTemplateConstant, tableError)
	}

	storeInputs, storeInputsError := auditfile.BuildStoreInputs(auditsDocument, policyDocument, imports)
	if storeInputsError != nil {
		return nil, storeInputsError
	}

	dataStore, storeError := store.NewStore(table, storeInputs)
	if storeError != nil {
		return nil, fmt.Errorf(buildStoreErrorTemplateConstant, storeError)
	}

	workspace := &Workspace{
		AuditsDocument: auditsDocument,
		PolicyDocument: policyDocument,
		Imports:        imports,
		Table:          table,
		Store:          dataStore,
	}

	if options.SkipGraph {
		return workspace, nil
	}

	graph, graphError := loadGraph(options.GraphPath)
	if graphError != nil {
		return nil, graphError
	}

	if len(options.FilterGraphExpr) > 0 {
		filter, filterParseError := filtergraph.Parse(options.FilterGraphExpr)
		if filterParseError != nil {
			return nil, fmt.Errorf(filterGraphParseErrorTemplateConstant, filterParseError)
		}
		graph = filtergraph.Apply(graph, filter)
	}

	workspace.Graph = graph
	return workspace, nil
}

func loadAudits(path string) (auditfile.AuditsDocument, error) {
	data, readError := readOptionalFile(path)
	if readError != nil {
		return auditfile.AuditsDocument{}, fmt.Errorf(readAuditsErrorTemplateConstant, path, readError)
	}
	document, parseError := auditfile.ParseAudits(data)
	if parseError != nil {
		return auditfile.AuditsDocument{}, fmt.Errorf(parseAuditsErrorTemplateConstant, path, parseError)
	}
	return document, nil
}

func loadPolicy(path string) (auditfile.ConfigDocument, error) {
	data, readError := readOptionalFile(path)
	if readError != nil {
		return auditfile.ConfigDocument{}, fmt.Errorf(readPolicyErrorTemplateConstant, path, readError)
	}
	document, parseError := auditfile.ParseConfig(data)
	if parseError != nil {
		return auditfile.ConfigDocument{}, fmt.Errorf(parsePolicyErrorTemplateConstant, path, parseError)
	}
	return document, nil
}

func loadImports(path string) (map[string]auditfile.AuditsDocument, error) {
	data, readError := readOptionalFile(path)
	if readError != nil {
		return nil, fmt.Errorf(readImportsErrorTemplateConstant, path, readError)
	}
	if len(data) == 0 {
		return map[string]auditfile.AuditsDocument{}, nil
	}
	document, parseError := auditfile.ParseImports(data)
	if parseError != nil {
		return nil, fmt.Errorf(parseImportsErrorTemplateConstant, path, parseError)
	}
	return document.Imports, nil
}

func loadGraph(path string) (*graphview.Graph, error) {
	data, readError := os.ReadFile(path)
	if readError != nil {
		return nil, fmt.Errorf(readGraphErrorTemplateConstant, path, readError)
	}
	document, parseError := graphinput.Parse(data)
	if parseError != nil {
		return nil, fmt.Errorf(parseGraphErrorTemplateConstant, path, parseError)
	}
	graph, buildError := graphinput.BuildGraph(document)
	if buildError != nil {
		return nil, fmt.Errorf(buildGraphErrorTemplateConstant, buildError)
	}
	return graph, nil
}

// readOptionalFile returns an empty document's worth of TOML (nothing) when
// path does not exist, so a brand-new project without audits.toml yet can
// still run commands like init.
func readOptionalFile(path string) ([]byte, error) {
	data, readError := os.ReadFile(path)
	if readError != nil {
		if os.IsNotExist(readError) {
			return nil, nil
		}
		return nil, readError
	}
	return data, nil
}
