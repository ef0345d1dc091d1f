package repoinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hounddogai/scan-engine/catalog"
)

func TestLinkerBuildsPerProviderFormats(t *testing.T) {
	tests := []struct {
		name     string
		linker   Linker
		expected string
	}{
		{
			name:     "github",
			linker:   Linker{BaseURL: "https://github.com/acme/widgets", Commit: "abc123", Provider: catalog.GitHub, HasProvider: true},
			expected: "https://github.com/acme/widgets/blob/abc123/src/app.py#L10-L12",
		},
		{
			name:     "gitlab",
			linker:   Linker{BaseURL: "https://gitlab.com/acme/widgets", Commit: "abc123", Provider: catalog.GitLab, HasProvider: true},
			expected: "https://gitlab.com/acme/widgets/-/blob/abc123/src/app.py#L10-12",
		},
		{
			name:     "bitbucket",
			linker:   Linker{BaseURL: "https://bitbucket.org/acme/widgets", Commit: "abc123", Provider: catalog.Bitbucket, HasProvider: true},
			expected: "https://bitbucket.org/acme/widgets/src/abc123/src/app.py#lines-10:12",
		},
		{
			name:     "no provider falls back to base url",
			linker:   Linker{BaseURL: "file:///home/dev/widgets", HasProvider: false},
			expected: "file:///home/dev/widgets",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.linker.Link("src/app.py", 10, 12))
		})
	}
}
