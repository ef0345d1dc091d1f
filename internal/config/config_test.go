package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSkipList(t *testing.T) {
	got := ParseSkipList(" email , ssn ,, phone")
	assert.Equal(t, map[string]struct{}{
		"email": {},
		"ssn":   {},
		"phone": {},
	}, got)

	assert.Empty(t, ParseSkipList(""))
}

func TestMaxScanFilesDefaultsToZero(t *testing.T) {
	os.Unsetenv("HOUNDDOG_MAX_SCAN_FILES")
	assert.Equal(t, 0, MaxScanFiles())

	t.Setenv("HOUNDDOG_MAX_SCAN_FILES", "250")
	assert.Equal(t, 250, MaxScanFiles())

	t.Setenv("HOUNDDOG_MAX_SCAN_FILES", "not-a-number")
	assert.Equal(t, 0, MaxScanFiles())

	t.Setenv("HOUNDDOG_MAX_SCAN_FILES", "-5")
	assert.Equal(t, 0, MaxScanFiles())
}

func TestFindingStorePathDefaultsToInMemory(t *testing.T) {
	os.Unsetenv("HOUNDDOG_FINDINGS_DB")
	assert.Equal(t, ":memory:", FindingStorePath())

	t.Setenv("HOUNDDOG_FINDINGS_DB", "/tmp/findings.db")
	assert.Equal(t, "/tmp/findings.db", FindingStorePath())
}
