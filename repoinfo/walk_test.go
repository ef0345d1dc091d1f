package repoinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hounddogai/scan-engine/catalog"
)

func TestLanguageForPath(t *testing.T) {
	tests := []struct {
		path string
		lang catalog.Language
		ok   bool
	}{
		{"app.py", catalog.Python, true},
		{"component.tsx", catalog.Typescript, true},
		{"Main.java", catalog.Java, true},
		{"schema.graphql", catalog.GraphQL, true},
		{"README.md", 0, false},
	}
	for _, tt := range tests {
		lang, ok := LanguageForPath(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		if tt.ok {
			assert.Equal(t, tt.lang, lang, tt.path)
		}
	}
}

func TestLineCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0o644))

	n, err := LineCount(path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestWalkerHonorsGitignore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("secrets.py\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte("x = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secrets.py"), []byte("x = 2\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules", "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "pkg", "index.js"), []byte("1\n"), 0o644))

	files, err := Walker{}.ListFiles(dir)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		rel, relErr := filepath.Rel(dir, f)
		require.NoError(t, relErr)
		names = append(names, filepath.ToSlash(rel))
	}

	assert.Contains(t, names, ".gitignore")
	assert.Contains(t, names, "app.py")
	assert.NotContains(t, names, "secrets.py")
	assert.NotContains(t, names, "node_modules/pkg/index.js")
}
