package temporal

import (
	"testing"

	"github.com/hounddogai/scan-engine/services"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"
)

type workflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
}

func TestWorkflowTestSuite(t *testing.T) {
	suite.Run(t, new(workflowTestSuite))
}

func (s *workflowTestSuite) TestScanWorkflowReturnsVulnerabilitiesOnSuccess() {
	env := s.NewTestWorkflowEnvironment()

	env.OnActivity(CloneRepositoryActivity, mockCtx, CloneActivityInput{
		RepositoryID: "repo-1",
		CloneURL:     "https://github.com/acme/widgets.git",
	}).Return(&CloneActivityOutput{
		RepositoryID: "repo-1",
		RepoDir:      "/tmp/repos/repo-1",
	}, nil)

	env.OnActivity(ScanRepositoryActivity, mockCtx, ScanActivityInput{
		RepositoryID:   "repo-1",
		RepoDir:        "/tmp/repos/repo-1",
		VulnTypes:      []string{"Injection"},
		FileExtensions: []string{".py"},
		NotifyEmail:    false,
	}).Return(&ScanActivityOutput{
		RepositoryID: "repo-1",
		ScanID:       "scan-1",
		VulnCount:    1,
		VulnerabilitiesFound: []services.Vulnerability{
			{ID: "v1", Type: services.Injection, FilePath: "app.py", Severity: "high"},
		},
	}, nil)

	env.ExecuteWorkflow(ScanWorkflow, ScanWorkflowInput{
		RepositoryID:   "repo-1",
		CloneURL:       "https://github.com/acme/widgets.git",
		VulnTypes:      []string{"Injection"},
		FileExtensions: []string{".py"},
	})

	s.True(env.IsWorkflowCompleted())
	require.NoError(s.T(), env.GetWorkflowError())

	var result ScanWorkflowOutput
	require.NoError(s.T(), env.GetWorkflowResult(&result))
	s.Equal("completed", result.Status)
	s.Equal("scan-1", result.ScanID)
	require.Len(s.T(), result.Vulnerabilities, 1)
	s.Equal(services.Injection, result.Vulnerabilities[0].Type)
}

func (s *workflowTestSuite) TestScanWorkflowReportsCloneFailure() {
	env := s.NewTestWorkflowEnvironment()

	env.OnActivity(CloneRepositoryActivity, mockCtx, CloneActivityInput{
		RepositoryID: "repo-2",
		CloneURL:     "https://github.com/acme/broken.git",
	}).Return(nil, assertionError{"clone failed"})

	env.ExecuteWorkflow(ScanWorkflow, ScanWorkflowInput{
		RepositoryID: "repo-2",
		CloneURL:     "https://github.com/acme/broken.git",
	})

	s.True(env.IsWorkflowCompleted())
	require.Error(s.T(), env.GetWorkflowError())
}

// mockCtx matches any context.Context argument recorded by OnActivity; the
// temporal test environment only cares about the non-context arguments.
var mockCtx = mock.Anything

type assertionError struct{ msg string }

func (e assertionError) Error() string { return e.msg }
