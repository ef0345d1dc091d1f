package services

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hounddogai/scan-engine/catalog"
	"github.com/hounddogai/scan-engine/findings"
)

func TestToServiceVulnerabilityMapsFields(t *testing.T) {
	v := findings.Vulnerability{
		Hash:             "abc123",
		OWASP:            []string{"Injection"},
		RelativeFilePath: "src/app.py",
		LineStart:        10,
		LineEnd:          12,
		Severity:         catalog.SeverityCritical,
		Description:      "sensitive data reaches a logging sink",
		Remediation:      "redact before logging",
		CodeSegment:      "log.info(email)",
	}

	out := toServiceVulnerability(v)

	assert.Equal(t, "abc123", out.ID)
	assert.Equal(t, VulnerabilityType("Injection"), out.Type)
	assert.Equal(t, "src/app.py", out.FilePath)
	assert.Equal(t, 10, out.LineStart)
	assert.Equal(t, 12, out.LineEnd)
	assert.Equal(t, "critical", out.Severity)
	assert.Equal(t, "redact before logging", out.Remediation)
	assert.Equal(t, "log.info(email)", out.Code)
}

func TestToServiceVulnerabilityFallsBackToDataLeakType(t *testing.T) {
	out := toServiceVulnerability(findings.Vulnerability{})
	assert.Equal(t, VulnerabilityType("Data Leak"), out.Type)
}

func testScanCatalog() *catalog.RuleCatalog {
	cat := catalog.New()
	cat.AddElement(&catalog.DataElement{
		ID:              "email",
		Name:            "Email",
		Sensitivity:     catalog.Critical,
		Source:          catalog.SourceHoundDog,
		IsEnabled:       true,
		IncludePatterns: []*regexp.Regexp{regexp.MustCompile(`email`)},
	})
	cat.AddSink(&catalog.DataSink{
		ID:       "print-sink",
		Name:     "print",
		Language: catalog.Python,
		OWASP:    []string{"Security Logging and Monitoring Failures"},
		MatchRules: []catalog.MatchRule{
			{Pattern: regexp.MustCompile(`^print$`)},
		},
	})
	return cat
}

func TestScanFileFindsVulnerabilityInSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.py")
	require.NoError(t, os.WriteFile(path, []byte("print(email)\n"), 0o644))

	svc := &scannerService{catalog: testScanCatalog()}

	vulns, err := svc.ScanFile(context.Background(), path, nil)
	require.NoError(t, err)
	require.Len(t, vulns, 1)
	assert.Equal(t, "critical", vulns[0].Severity)
	assert.Equal(t, VulnerabilityType("Security Logging and Monitoring Failures"), vulns[0].Type)
}

func TestScanFileSkipsCallWithNoSensitiveArguments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.py")
	require.NoError(t, os.WriteFile(path, []byte("print(\"hello\")\n"), 0o644))

	svc := &scannerService{catalog: testScanCatalog()}

	vulns, err := svc.ScanFile(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Empty(t, vulns)
}
