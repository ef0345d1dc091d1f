package repoinfo

import (
	"fmt"

	"github.com/hounddogai/scan-engine/catalog"
)

// Linker builds a finding's source-host link from a repository's base url,
// commit, and git provider, matching the per-provider formats in
// original_source/src/utils/git.rs get_url_link. It implements
// scan.URLLinker.
type Linker struct {
	BaseURL     string
	Commit      string
	Provider    catalog.GitProvider
	HasProvider bool
}

// Link implements scan.URLLinker.
func (l Linker) Link(relativeFilePath string, lineStart, lineEnd uint) string {
	if !l.HasProvider {
		return l.BaseURL
	}
	switch l.Provider {
	case catalog.GitHub:
		return fmt.Sprintf("%s/blob/%s/%s#L%d-L%d", l.BaseURL, l.Commit, relativeFilePath, lineStart, lineEnd)
	case catalog.GitLab:
		return fmt.Sprintf("%s/-/blob/%s/%s#L%d-%d", l.BaseURL, l.Commit, relativeFilePath, lineStart, lineEnd)
	case catalog.Bitbucket:
		return fmt.Sprintf("%s/src/%s/%s#lines-%d:%d", l.BaseURL, l.Commit, relativeFilePath, lineStart, lineEnd)
	default:
		return l.BaseURL
	}
}
