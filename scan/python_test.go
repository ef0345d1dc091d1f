package scan

import (
	"context"
	"regexp"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/stretchr/testify/require"

	"github.com/hounddogai/scan-engine/catalog"
	"github.com/hounddogai/scan-engine/findings"
)

// memStore is a tiny in-process findings.Store used to assert on what a
// visitor recorded without needing a real SQL backing.
type memStore struct {
	occurrences     []findings.Occurrence
	vulnerabilities []findings.Vulnerability
}

func (m *memStore) PutOccurrence(o findings.Occurrence) error {
	m.occurrences = append(m.occurrences, o)
	return nil
}
func (m *memStore) PutVulnerability(v findings.Vulnerability) error {
	m.vulnerabilities = append(m.vulnerabilities, v)
	return nil
}
func (m *memStore) AllOccurrences() ([]findings.Occurrence, error)         { return m.occurrences, nil }
func (m *memStore) AllVulnerabilities() ([]findings.Vulnerability, error) { return m.vulnerabilities, nil }
func (m *memStore) Close() error                                          { return nil }

func testCatalog() *catalog.RuleCatalog {
	cat := catalog.New()
	cat.AddElement(&catalog.DataElement{
		ID:              "email",
		Name:            "Email Address",
		Sensitivity:     catalog.Critical,
		IsEnabled:       true,
		IncludePatterns: []*regexp.Regexp{regexp.MustCompile(`(?i)^email$`)},
	})
	cat.AddSink(&catalog.DataSink{
		ID:         "print-sink",
		Name:       "print",
		Language:   catalog.Python,
		OWASP:      []string{"Security Logging and Monitoring Failures"},
		MatchRules: []catalog.MatchRule{{Pattern: regexp.MustCompile(`^print$`)}},
	})
	return cat
}

func parsePython(t *testing.T, source string) *sitter.Node {
	t.Helper()
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, []byte(source))
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return tree.RootNode()
}

func TestPythonVisitorRecordsOccurrenceForBareIdentifier(t *testing.T) {
	source := "email = input()\n"
	root := parsePython(t, source)

	store := &memStore{}
	ctx := NewFileScanContext([]byte(source), "/repo/app.py", "app.py", catalog.Python, testCatalog(), store, findings.IdentityHasher{RepoName: "r", Branch: "main"}, nil)
	Walk(ctx, root, &PythonVisitor{})

	require.NotEmpty(t, store.occurrences)
	require.Equal(t, "email", store.occurrences[0].DataElementID)
}

func TestPythonVisitorRecordsVulnerabilityWhenSinkReceivesElement(t *testing.T) {
	source := "print(email)\n"
	root := parsePython(t, source)

	store := &memStore{}
	ctx := NewFileScanContext([]byte(source), "/repo/app.py", "app.py", catalog.Python, testCatalog(), store, findings.IdentityHasher{RepoName: "r", Branch: "main"}, nil)
	Walk(ctx, root, &PythonVisitor{})

	require.Len(t, store.vulnerabilities, 1)
	v := store.vulnerabilities[0]
	require.Equal(t, "print-sink", v.DataSinkID)
	require.Equal(t, []string{"email"}, v.DataElementIDs)
	require.Equal(t, catalog.SeverityCritical, v.Severity)
}

func TestPythonVisitorSkipsCallWithNoSensitiveArguments(t *testing.T) {
	source := "print(username)\n"
	root := parsePython(t, source)

	store := &memStore{}
	ctx := NewFileScanContext([]byte(source), "/repo/app.py", "app.py", catalog.Python, testCatalog(), store, findings.IdentityHasher{RepoName: "r", Branch: "main"}, nil)
	Walk(ctx, root, &PythonVisitor{})

	require.Empty(t, store.vulnerabilities)
}

func TestPythonVisitorResolvesSinkThroughImportAlias(t *testing.T) {
	source := "import print as p\np(email)\n"
	root := parsePython(t, source)

	store := &memStore{}
	ctx := NewFileScanContext([]byte(source), "/repo/app.py", "app.py", catalog.Python, testCatalog(), store, findings.IdentityHasher{RepoName: "r", Branch: "main"}, nil)
	Walk(ctx, root, &PythonVisitor{})

	require.Len(t, store.vulnerabilities, 1, "calling the aliased name p(...) should resolve through the import alias back to the print sink")
	require.Equal(t, "print-sink", store.vulnerabilities[0].DataSinkID)
}
