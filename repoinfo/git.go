// Package repoinfo inspects a checked-out repository: its remote, branch,
// and commit, the per-language file statistics of its tree, and the
// ignore-aware file listing the scan driver iterates over.
package repoinfo

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/hounddogai/scan-engine/catalog"
)

// CiType identifies the CI provider a scan is running under, used to recover
// the branch/commit when HEAD is detached (common for CI checkouts).
type CiType int

const (
	CiUnknown CiType = iota
	CiBitbucketPipelines
	CiBuildkite
	CiCircleCI
	CiGithubActions
	CiGitlabCICD
)

// DetectCiType inspects well-known CI environment variables to identify the
// running provider.
func DetectCiType() CiType {
	switch {
	case os.Getenv("BITBUCKET_BUILD_NUMBER") != "":
		return CiBitbucketPipelines
	case os.Getenv("BUILDKITE") != "":
		return CiBuildkite
	case os.Getenv("CIRCLECI") != "":
		return CiCircleCI
	case os.Getenv("GITHUB_ACTIONS") != "":
		return CiGithubActions
	case os.Getenv("GITLAB_CI") != "":
		return CiGitlabCICD
	default:
		return CiUnknown
	}
}

// ParseRemoteURL normalizes a Git remote URL into (base_url, repo_name),
// grounded on original_source/src/utils/git.rs's parse_git_remote_url. Three
// shapes are accepted: local file://, scheme:// (http/https/ssh), and the
// scp-like git@host:path form.
func ParseRemoteURL(remoteURL string) (baseURL, repoName string, err error) {
	switch {
	case strings.HasPrefix(remoteURL, "file://"):
		trimmed := strings.TrimSuffix(strings.TrimSuffix(remoteURL, "/"), ".git")
		repoName = strings.TrimPrefix(trimmed, "file://")
		return trimmed, repoName, nil

	case strings.Contains(remoteURL, "://"):
		parsed, parseErr := url.Parse(remoteURL)
		if parseErr != nil {
			return "", "", fmt.Errorf("failed to parse git remote url %q: %w", remoteURL, parseErr)
		}
		domain := parsed.Hostname()
		if domain == "" {
			return "", "", fmt.Errorf("failed to get domain from git remote url: %s", remoteURL)
		}
		scheme := parsed.Scheme
		if scheme == "ssh" {
			scheme = "https"
		}
		repoName = strings.TrimSuffix(strings.Trim(parsed.Path, "/"), ".git")
		if port := parsed.Port(); port != "" {
			baseURL = fmt.Sprintf("%s://%s:%s/%s", scheme, domain, port, repoName)
		} else {
			baseURL = fmt.Sprintf("%s://%s/%s", scheme, domain, repoName)
		}
		return baseURL, repoName, nil

	case strings.HasPrefix(remoteURL, "git@"):
		parts := strings.SplitN(strings.TrimPrefix(remoteURL, "git@"), ":", 2)
		if len(parts) != 2 {
			return "", "", fmt.Errorf("failed to parse git remote url: %s", remoteURL)
		}
		domain := parts[0]
		repoName = strings.TrimSuffix(strings.Trim(parts[1], "/"), ".git")
		baseURL = fmt.Sprintf("https://%s/%s", domain, repoName)
		return baseURL, repoName, nil

	default:
		return "", "", fmt.Errorf("unsupported git remote url scheme: %s", remoteURL)
	}
}

// DetectProvider classifies a normalized remote base url by substring, same
// precedence original_source uses (bitbucket, then github, then gitlab).
func DetectProvider(baseURL string) (catalog.GitProvider, bool) {
	lower := strings.ToLower(baseURL)
	switch {
	case strings.Contains(lower, "bitbucket"):
		return catalog.Bitbucket, true
	case strings.Contains(lower, "github"):
		return catalog.GitHub, true
	case strings.Contains(lower, "gitlab"):
		return catalog.GitLab, true
	default:
		return 0, false
	}
}

// Branch resolves the checked-out branch name, falling back to CI-specific
// environment variables when HEAD is detached (grounded on
// original_source/src/utils/git.rs get_git_branch).
func Branch(repo *git.Repository, ci CiType) (string, error) {
	if head, err := repo.Head(); err == nil && head.Name().IsBranch() {
		return head.Name().Short(), nil
	}

	var candidates []string
	switch ci {
	case CiBitbucketPipelines:
		candidates = []string{"BITBUCKET_BRANCH", "BITBUCKET_TAG"}
	case CiBuildkite:
		candidates = []string{"BUILDKITE_BRANCH", "BUILDKITE_TAG"}
	case CiCircleCI:
		candidates = []string{"CIRCLE_BRANCH", "CIRCLE_TAG"}
	case CiGithubActions:
		candidates = []string{"GITHUB_HEAD_REF", "GITHUB_REF_NAME"}
	case CiGitlabCICD:
		candidates = []string{"CI_COMMIT_REF_NAME", "CI_MERGE_REQUEST_SOURCE_BRANCH_NAME"}
	default:
		candidates = []string{"HOUNDDOG_GIT_BRANCH"}
	}
	for _, name := range candidates {
		if v := os.Getenv(name); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("failed to resolve git branch")
}

// Commit resolves the checked-out commit SHA, with the same CI fallback
// strategy as Branch.
func Commit(repo *git.Repository, ci CiType) (string, error) {
	if head, err := repo.Head(); err == nil {
		return head.Hash().String(), nil
	}

	var name string
	switch ci {
	case CiBitbucketPipelines:
		name = "BITBUCKET_COMMIT"
	case CiBuildkite:
		name = "BUILDKITE_COMMIT"
	case CiCircleCI:
		name = "CIRCLE_SHA1"
	case CiGithubActions:
		name = "GITHUB_SHA"
	case CiGitlabCICD:
		name = "CI_COMMIT_SHA"
	default:
		name = "HOUNDDOG_GIT_COMMIT"
	}
	if v := os.Getenv(name); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("failed to resolve git commit")
}

// OriginURL returns the lowercased, trailing-slash/".git"-trimmed URL of the
// "origin" remote.
func OriginURL(repo *git.Repository) (string, error) {
	remote, err := repo.Remote("origin")
	if err != nil {
		return "", fmt.Errorf("failed to access git remote origin: %w", err)
	}
	cfg := remote.Config()
	if len(cfg.URLs) == 0 {
		return "", fmt.Errorf("git remote origin has no configured url")
	}
	raw := strings.TrimSuffix(strings.TrimSuffix(cfg.URLs[0], "/"), ".git")
	return strings.ToLower(raw), nil
}
