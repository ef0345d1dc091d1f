package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderScanCompletionEmailWithVulnerabilitiesMentionsTheCount(t *testing.T) {
	body, err := renderScanCompletionEmail(ScanCompletionEmailData{
		RepositoryName: "acme/widgets",
		DashboardURL:   "https://app.example.com/dashboard/repos/abc",
		VulnCount:      3,
	})
	require.NoError(t, err)

	assert.Contains(t, body, "acme/widgets")
	assert.Contains(t, body, "https://app.example.com/dashboard/repos/abc")
	assert.Contains(t, body, "3 potential security issues")
	assert.NotContains(t, body, "No security issues were found")
}

func TestRenderScanCompletionEmailWithNoVulnerabilitiesOmitsTheCount(t *testing.T) {
	body, err := renderScanCompletionEmail(ScanCompletionEmailData{
		RepositoryName: "acme/widgets",
		DashboardURL:   "https://app.example.com/dashboard/repos/abc",
		VulnCount:      0,
	})
	require.NoError(t, err)

	assert.Contains(t, body, "No security issues were found")
	assert.NotContains(t, body, "potential security issues")
}

func TestComposeMessagePlacesHeadersBeforeABlankLineThenTheBody(t *testing.T) {
	message := composeMessage(map[string]string{
		"From":    "scans@example.com",
		"Subject": "Security Scan Results Available - acme/widgets",
	}, "<html>body</html>")

	parts := strings.SplitN(string(message), "\r\n\r\n", 2)
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0], "From: scans@example.com")
	assert.Contains(t, parts[0], "Subject: Security Scan Results Available - acme/widgets")
	assert.Equal(t, "<html>body</html>", parts[1])
}

func TestEmailServiceRejectsSendsWhenNotConfigured(t *testing.T) {
	s := NewEmailService(nil)

	err := s.SendScanCompletionEmail("user@example.com", "acme/widgets", "abc", 1)
	assert.Error(t, err)

	err = s.SendBulkScanCompletionEmail([]string{"a@example.com", "b@example.com"}, "acme/widgets", "abc", 1)
	assert.Error(t, err)
}

func TestEmailServiceRejectsBulkSendWithNoRecipients(t *testing.T) {
	s := &EmailService{
		smtpServer:   "smtp.example.com",
		smtpPort:     "587",
		smtpUsername: "user",
		smtpPassword: "pass",
		fromEmail:    "scans@example.com",
	}

	err := s.SendBulkScanCompletionEmail(nil, "acme/widgets", "abc", 1)
	assert.Error(t, err)
}
