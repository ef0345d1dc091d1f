package repoinfo

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/hounddogai/scan-engine/catalog"
)

// ignoreFileNames lists the ignore files consulted while walking a repo
// tree, in the precedence order original_source's WalkBuilder applies: the
// standard .gitignore plus a project-specific .hounddogignore.
var ignoreFileNames = []string{".gitignore", ".hounddogignore"}

var defaultIgnorePatterns = []string{
	".git/",
	"node_modules/",
	"vendor/",
	"dist/",
	"build/",
	".venv/",
}

// Walker enumerates regular files under a root directory, skipping the
// default directories above and paths matched by the .gitignore and
// .hounddogignore files found directly in the root
// (original_source/src/utils/file.rs get_files_in_dir). Ignore files in
// subdirectories are not read.
type Walker struct{}

// ListFiles implements scan.FileLister.
func (Walker) ListFiles(root string) ([]string, error) {
	patterns := append([]string{}, defaultIgnorePatterns...)
	for _, name := range ignoreFileNames {
		patterns = append(patterns, readIgnoreFile(filepath.Join(root, name))...)
	}
	matcher := gitignore.CompileIgnoreLines(patterns...)

	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && matcher.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if matcher.MatchesPath(rel) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

func readIgnoreFile(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// LanguageForPath maps a file's extension to a recognized Language, mirroring
// original_source/src/utils/file.rs get_file_language.
func LanguageForPath(path string) (catalog.Language, bool) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "cs":
		return catalog.CSharp, true
	case "gql", "graphql":
		return catalog.GraphQL, true
	case "java":
		return catalog.Java, true
	case "js", "jsx", "ts", "tsx":
		return catalog.Typescript, true
	case "kt":
		return catalog.Kotlin, true
	case "py":
		return catalog.Python, true
	case "rb":
		return catalog.Ruby, true
	case "sql":
		return catalog.SQL, true
	default:
		return 0, false
	}
}

// LineCount counts newline bytes in the file at path, used to build per-
// language file statistics.
func LineCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	buf := make([]byte, 32*1024)
	count := 0
	reader := bufio.NewReaderSize(f, len(buf))
	for {
		n, readErr := reader.Read(buf)
		count += bytes.Count(buf[:n], []byte{'\n'})
		if readErr != nil {
			break
		}
	}
	return count, nil
}
