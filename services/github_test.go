package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGitHubURLHandlesHTTPSFormat(t *testing.T) {
	owner, name, err := parseGitHubURL("https://github.com/hounddogai/scan-engine")
	require.NoError(t, err)
	assert.Equal(t, "hounddogai", owner)
	assert.Equal(t, "scan-engine", name)
}

func TestParseGitHubURLStripsDotGitSuffix(t *testing.T) {
	owner, name, err := parseGitHubURL("https://github.com/hounddogai/scan-engine.git")
	require.NoError(t, err)
	assert.Equal(t, "hounddogai", owner)
	assert.Equal(t, "scan-engine", name)
}

func TestParseGitHubURLHandlesSSHFormat(t *testing.T) {
	owner, name, err := parseGitHubURL("git@github.com:hounddogai/scan-engine.git")
	require.NoError(t, err)
	assert.Equal(t, "hounddogai", owner)
	assert.Equal(t, "scan-engine", name)
}

func TestParseGitHubURLRejectsUnsupportedHost(t *testing.T) {
	_, _, err := parseGitHubURL("https://gitlab.com/hounddogai/scan-engine")
	assert.Error(t, err)
}

func TestParseGitHubURLRejectsMissingRepoSegment(t *testing.T) {
	_, _, err := parseGitHubURL("https://github.com/hounddogai")
	assert.Error(t, err)
}

func TestGetDatabaseConnectionReturnsNilWhenNoQueriesSet(t *testing.T) {
	svc := NewGitHubService(nil).(*gitHubService)
	assert.Nil(t, svc.GetDatabaseConnection())
}
