package repoinfo

import (
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"

	"github.com/hounddogai/scan-engine/catalog"
)

// FileStats tallies files and lines scanned, either overall or for a single
// language.
type FileStats struct {
	FileCount int
	LineCount int
}

// Info is the repository-level context a scan run needs: where it lives, how
// to build a source link back to it, and what its tree looks like by
// language. Grounded on original_source/src/structs.rs Repository and
// original_source/src/utils/file.rs get_repository_info.
type Info struct {
	Path              string
	BaseURL           string
	Name              string
	Branch            string
	Commit            string
	Provider          catalog.GitProvider
	HasProvider       bool
	PerLanguageStats  map[catalog.Language]FileStats
	TotalStats        FileStats
}

// Load inspects the repository at path: if it is a Git checkout, its origin
// remote, branch, and commit are resolved; otherwise it is treated as a bare
// local directory scan with synthetic branch "main" and commit "HEAD".
// Per-language file statistics are always computed by walking the tree with
// Walker.
func Load(path string) (*Info, error) {
	stats, err := collectFileStats(path)
	if err != nil {
		return nil, fmt.Errorf("collecting file stats under %s: %w", path, err)
	}

	repo, err := git.PlainOpen(path)
	if err != nil {
		abs, absErr := filepath.Abs(path)
		if absErr != nil {
			abs = path
		}
		return &Info{
			Path:             path,
			BaseURL:          "file://" + abs,
			Name:             "local/" + filepath.Base(abs),
			Branch:           "main",
			Commit:           "HEAD",
			PerLanguageStats: stats.perLanguage,
			TotalStats:       stats.total,
		}, nil
	}

	originURL, err := OriginURL(repo)
	if err != nil {
		return nil, err
	}
	baseURL, repoName, err := ParseRemoteURL(originURL)
	if err != nil {
		return nil, err
	}

	ci := DetectCiType()
	branch, err := Branch(repo, ci)
	if err != nil {
		return nil, err
	}
	commit, err := Commit(repo, ci)
	if err != nil {
		return nil, err
	}

	provider, hasProvider := DetectProvider(baseURL)

	return &Info{
		Path:             path,
		BaseURL:          baseURL,
		Name:             repoName,
		Branch:           branch,
		Commit:           commit,
		Provider:         provider,
		HasProvider:      hasProvider,
		PerLanguageStats: stats.perLanguage,
		TotalStats:       stats.total,
	}, nil
}

// Linker builds the URLLinker this repository's findings should use.
func (i *Info) Linker() Linker {
	return Linker{BaseURL: i.BaseURL, Commit: i.Commit, Provider: i.Provider, HasProvider: i.HasProvider}
}

type fileStatsResult struct {
	perLanguage map[catalog.Language]FileStats
	total       FileStats
}

func collectFileStats(root string) (fileStatsResult, error) {
	perLanguage := make(map[catalog.Language]FileStats, len(catalog.AllLanguages()))
	for _, lang := range catalog.AllLanguages() {
		perLanguage[lang] = FileStats{}
	}
	var total FileStats

	files, err := (Walker{}).ListFiles(root)
	if err != nil {
		return fileStatsResult{}, err
	}
	for _, f := range files {
		lang, ok := LanguageForPath(f)
		if !ok {
			continue
		}
		lines, err := LineCount(f)
		if err != nil {
			continue
		}
		s := perLanguage[lang]
		s.FileCount++
		s.LineCount += lines
		perLanguage[lang] = s
		total.FileCount++
		total.LineCount += lines
	}
	return fileStatsResult{perLanguage: perLanguage, total: total}, nil
}

// RelativePath returns path relative to the repository root, slash-separated.
func (i *Info) RelativePath(path string) string {
	rel, err := filepath.Rel(i.Path, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
