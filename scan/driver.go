package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/hounddogai/scan-engine/catalog"
	"github.com/hounddogai/scan-engine/findings"
	"github.com/hounddogai/scan-engine/internal/logger"
)

// FileLister enumerates candidate files under a scan root, honoring ignore
// semantics; implemented by repoinfo.Walker. Kept as an interface
// here so this package does not depend on repoinfo, which in turn depends on
// this package's sibling concerns (git metadata, URL linking) only loosely.
type FileLister interface {
	ListFiles(root string) ([]string, error)
}

// Config configures one invocation of the driver.
// Skip-hash filtering is owned by the finding store passed to NewDriver, not
// by this struct (see findings.OpenSQLStore).
type Config struct {
	RootDir  string
	RepoName string
	Branch   string
	Lister   FileLister
	Linker   URLLinker
}

// Results is the aggregate the driver hands back after reading the store:
// every occurrence and vulnerability recorded during the run, stable-sorted
// most sensitive first (vulnerabilities by severity, occurrences by
// sensitivity), ties keeping the order the store returned them in.
type Results struct {
	Occurrences     []findings.Occurrence
	Vulnerabilities []findings.Vulnerability
}

// Driver enumerates files, parses each into a CST with the right
// frontend, drives TreeWalker with the matching visitor, and after every
// file has been scanned reads back sorted findings from the store.
type Driver struct {
	catalog *catalog.RuleCatalog
	store   findings.Store
	hasher  findings.IdentityHasher

	pythonParser     *sitter.Parser
	typescriptParser *sitter.Parser
	tsxParser        *sitter.Parser
	javascriptParser *sitter.Parser
}

// NewDriver builds per-language parsers eagerly so Run never pays grammar
// setup cost mid-scan.
func NewDriver(cat *catalog.RuleCatalog, store findings.Store, hasher findings.IdentityHasher) *Driver {
	py := sitter.NewParser()
	py.SetLanguage(python.GetLanguage())

	ts := sitter.NewParser()
	ts.SetLanguage(typescript.GetLanguage())

	tsxP := sitter.NewParser()
	tsxP.SetLanguage(tsx.GetLanguage())

	js := sitter.NewParser()
	js.SetLanguage(javascript.GetLanguage())

	return &Driver{
		catalog:          cat,
		store:            store,
		hasher:           hasher,
		pythonParser:     py,
		typescriptParser: ts,
		tsxParser:        tsxP,
		javascriptParser: js,
	}
}

type frontend struct {
	parser  *sitter.Parser
	visitor Visitor
}

func (d *Driver) frontendFor(path string) (frontend, catalog.Language, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return frontend{parser: d.pythonParser, visitor: &PythonVisitor{}}, catalog.Python, true
	case ".ts":
		return frontend{parser: d.typescriptParser, visitor: &TypescriptVisitor{}}, catalog.Typescript, true
	case ".tsx":
		return frontend{parser: d.tsxParser, visitor: &TypescriptVisitor{}}, catalog.Typescript, true
	case ".js", ".jsx":
		return frontend{parser: d.javascriptParser, visitor: &TypescriptVisitor{}}, catalog.Typescript, true
	default:
		return frontend{}, 0, false
	}
}

// Run scans every eligible file under cfg.RootDir and returns the aggregated,
// sorted findings. Per-file parse/read/invariant errors are logged and do not
// abort the scan; only enumeration failures propagate.
func (d *Driver) Run(ctx context.Context, cfg Config) (*Results, error) {
	paths, err := cfg.Lister.ListFiles(cfg.RootDir)
	if err != nil {
		return nil, fmt.Errorf("enumerating files under %s: %w", cfg.RootDir, err)
	}

	for _, absPath := range paths {
		fe, lang, ok := d.frontendFor(absPath)
		if !ok {
			continue
		}

		relPath, err := filepath.Rel(cfg.RootDir, absPath)
		if err != nil {
			relPath = absPath
		}
		relPath = filepath.ToSlash(relPath)

		source, err := os.ReadFile(absPath)
		if err != nil {
			logger.Warn(fmt.Sprintf("skipping file after read error: %s: %v", relPath, err))
			continue
		}

		tree, err := fe.parser.ParseCtx(ctx, nil, source)
		if err != nil {
			logger.Warn(fmt.Sprintf("skipping file after parse error: %s: %v", relPath, err))
			continue
		}
		root := tree.RootNode()
		if root.HasError() {
			logger.Warn(fmt.Sprintf("syntax errors encountered while parsing %s; scanning best-effort", relPath))
		}

		fileCtx := NewFileScanContext(source, absPath, relPath, lang, d.catalog, d.store, d.hasher, cfg.Linker)
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error(fmt.Sprintf("visitor invariant violated scanning %s: %v", relPath, r))
				}
			}()
			Walk(fileCtx, root, fe.visitor)
		}()

		tree.Close()
	}

	occurrences, err := d.store.AllOccurrences()
	if err != nil {
		return nil, fmt.Errorf("reading occurrences: %w", err)
	}
	vulnerabilities, err := d.store.AllVulnerabilities()
	if err != nil {
		return nil, fmt.Errorf("reading vulnerabilities: %w", err)
	}

	sort.SliceStable(vulnerabilities, func(i, j int) bool {
		return vulnerabilities[i].Severity < vulnerabilities[j].Severity
	})
	sort.SliceStable(occurrences, func(i, j int) bool {
		return occurrences[i].Sensitivity < occurrences[j].Sensitivity
	})

	return &Results{Occurrences: occurrences, Vulnerabilities: vulnerabilities}, nil
}
