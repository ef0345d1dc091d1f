package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadLocalBuildsCatalogFromDisk(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "data-elements", "email.json"), `{
		"id": "email",
		"name": "Email Address",
		"sensitivity": "critical",
		"source": "hounddog",
		"tags": ["pii"],
		"includePatterns": ["(?i)email"]
	}`)
	writeFile(t, filepath.Join(dir, "data-sinks", "logger.json"), `{
		"id": "logger",
		"name": "Logger",
		"language": "python",
		"cwe": ["CWE-532"],
		"owasp": ["Security Logging and Monitoring Failures"],
		"matchRules": [{"regex": "^log\\."}]
	}`)
	writeFile(t, filepath.Join(dir, "remediations", "logger.md"), "Redact sensitive fields before logging.\n")
	writeFile(t, filepath.Join(dir, "sanitizers", "sanitizers.json"), `[
		{"pattern": "redact\\(", "source": "hounddog", "description": "redaction helper", "type": "redactor"}
	]`)

	cat, err := LoadLocal(dir)
	require.NoError(t, err)

	require.Len(t, cat.OrderedElements(), 1)
	require.Equal(t, "email", cat.OrderedElements()[0].ID)
	require.True(t, cat.OrderedElements()[0].IsEnabled, "isEnabled defaults true when the field is absent")

	sinks := cat.OrderedSinks(Python)
	require.Len(t, sinks, 1)
	require.Equal(t, "Redact sensitive fields before logging.\n", sinks[0].Remediation, "remediation text is read from the sibling remediations dir")

	require.Len(t, cat.Sanitizers, 1)
	require.Equal(t, SanitizerRoleRedactor, cat.Sanitizers[0].Role)
}

func TestLoadLocalSkipsMalformedSinkFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "data-elements", "email.json"), `{
		"id": "email",
		"name": "Email Address",
		"sensitivity": "critical",
		"source": "hounddog"
	}`)
	writeFile(t, filepath.Join(dir, "data-sinks", "broken.json"), `not json`)
	writeFile(t, filepath.Join(dir, "sanitizers", "sanitizers.json"), `[]`)

	cat, err := LoadLocal(dir)
	require.NoError(t, err, "a malformed sink file is skipped rather than aborting the load")
	require.Empty(t, cat.OrderedSinks(Python))
}
