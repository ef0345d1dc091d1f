package repoinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hounddogai/scan-engine/catalog"
)

func TestLoadNonGitDirectoryFallsBackToLocalMetadata(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte("x = 1\ny = 2\n"), 0o644))

	info, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "main", info.Branch)
	assert.Equal(t, "HEAD", info.Commit)
	assert.False(t, info.HasProvider)
	assert.Contains(t, info.Name, "local/")
	assert.Equal(t, 1, info.TotalStats.FileCount)
	assert.Equal(t, 2, info.TotalStats.LineCount)
	assert.Equal(t, 1, info.PerLanguageStats[catalog.Python].FileCount)
}

func TestRelativePathIsSlashSeparatedAndRootRelative(t *testing.T) {
	dir := t.TempDir()
	info := &Info{Path: dir}

	rel := info.RelativePath(filepath.Join(dir, "src", "app.py"))
	assert.Equal(t, "src/app.py", rel)
}
