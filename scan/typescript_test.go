package scan

import (
	"context"
	"regexp"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/stretchr/testify/require"

	"github.com/hounddogai/scan-engine/catalog"
	"github.com/hounddogai/scan-engine/findings"
)

func parseTypescript(t *testing.T, source string) *sitter.Node {
	t.Helper()
	parser := sitter.NewParser()
	parser.SetLanguage(typescript.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, []byte(source))
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return tree.RootNode()
}

func newTSContext(source string, store *memStore) *FileScanContext {
	cat := testCatalog()
	cat.AddSink(&catalog.DataSink{
		ID:       "print-sink-ts",
		Name:     "print",
		Language: catalog.Typescript,
		MatchRules: []catalog.MatchRule{
			{Pattern: regexp.MustCompile(`^print$`)},
		},
	})
	return NewFileScanContext([]byte(source), "/repo/app.ts", "app.ts", catalog.Typescript, cat, store, findings.IdentityHasher{RepoName: "r", Branch: "main"}, nil)
}

func TestTypescriptVisitorRecordsOccurrenceForDirectArgument(t *testing.T) {
	source := "console.log(email);\n"
	root := parseTypescript(t, source)

	store := &memStore{}
	ctx := newTSContext(source, store)
	Walk(ctx, root, &TypescriptVisitor{})

	found := false
	for _, o := range store.occurrences {
		if o.DataElementID == "email" {
			found = true
		}
	}
	require.True(t, found)
}

func TestTypescriptVisitorRecordsVulnerabilityForDirectSinkCall(t *testing.T) {
	source := "print(email);\n"
	root := parseTypescript(t, source)

	store := &memStore{}
	ctx := newTSContext(source, store)
	Walk(ctx, root, &TypescriptVisitor{})

	require.Len(t, store.vulnerabilities, 1)
	require.Equal(t, "print-sink", store.vulnerabilities[0].DataSinkID)
}

func TestTypescriptVisitorRecoversIndirectParticipantThroughAlias(t *testing.T) {
	// A plain assignment (not a declaration with initializer) is what
	// visitAssignmentExpression tracks for indirect participant recovery;
	// visitVariableDeclarator only follows member-expression initializers.
	source := "let x;\nx = email;\nprint(x);\n"
	root := parseTypescript(t, source)

	store := &memStore{}
	ctx := newTSContext(source, store)
	Walk(ctx, root, &TypescriptVisitor{})

	require.Len(t, store.vulnerabilities, 1, "print(x) should resolve x back to the email element via the data-element alias table")
	require.Equal(t, []string{"email"}, store.vulnerabilities[0].DataElementIDs)
}

func TestTypescriptVisitorSkipsCallWithNoSensitiveArguments(t *testing.T) {
	source := "print(username);\n"
	root := parseTypescript(t, source)

	store := &memStore{}
	ctx := newTSContext(source, store)
	Walk(ctx, root, &TypescriptVisitor{})

	require.Empty(t, store.vulnerabilities)
}
