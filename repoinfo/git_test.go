package repoinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hounddogai/scan-engine/catalog"
)

func TestParseRemoteURLHTTPS(t *testing.T) {
	baseURL, repoName, err := ParseRemoteURL("https://github.com/acme/widgets.git")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/widgets", baseURL)
	assert.Equal(t, "acme/widgets", repoName)
}

func TestParseRemoteURLSSHShorthand(t *testing.T) {
	baseURL, repoName, err := ParseRemoteURL("git@gitlab.com:acme/widgets.git")
	require.NoError(t, err)
	assert.Equal(t, "https://gitlab.com/acme/widgets", baseURL)
	assert.Equal(t, "acme/widgets", repoName)
}

func TestParseRemoteURLSSHScheme(t *testing.T) {
	baseURL, repoName, err := ParseRemoteURL("ssh://git@bitbucket.org/acme/widgets.git")
	require.NoError(t, err)
	assert.Equal(t, "https://bitbucket.org/acme/widgets", baseURL)
	assert.Equal(t, "acme/widgets", repoName)
}

func TestParseRemoteURLFile(t *testing.T) {
	baseURL, repoName, err := ParseRemoteURL("file:///home/dev/widgets")
	require.NoError(t, err)
	assert.Equal(t, "file:///home/dev/widgets", baseURL)
	assert.Equal(t, "/home/dev/widgets", repoName)
}

func TestParseRemoteURLUnsupportedScheme(t *testing.T) {
	_, _, err := ParseRemoteURL("not-a-url")
	assert.Error(t, err)
}

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		baseURL  string
		provider catalog.GitProvider
	}{
		{"https://github.com/acme/widgets", catalog.GitHub},
		{"https://gitlab.com/acme/widgets", catalog.GitLab},
		{"https://bitbucket.org/acme/widgets", catalog.Bitbucket},
	}
	for _, tt := range tests {
		provider, ok := DetectProvider(tt.baseURL)
		require.True(t, ok)
		assert.Equal(t, tt.provider, provider)
	}

	_, ok := DetectProvider("https://git.internal.acme.corp/widgets")
	assert.False(t, ok)
}
